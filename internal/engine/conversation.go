package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/chat"
	"go.uber.org/zap"
)

// ConversationExists probes for an existing conversation with the given
// counterparty. The probe reads the counterparty's registry, not the
// caller's own: a thread the counterparty already started must be found
// before the caller creates a duplicate.
func (e *Engine) ConversationExists(ctx context.Context, counterpartyUID string) (string, error) {
	self, err := e.ident.Current(ctx)
	if err != nil {
		return "", err
	}

	theirs, err := e.registry(ctx, counterpartyUID)
	if err != nil {
		return "", err
	}
	for _, s := range theirs {
		if s.CounterpartyUID == self.UID {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("%w: conversation with %s", chat.ErrNotFound, counterpartyUID)
}

// CreateConversation starts a conversation with the counterparty, carrying
// the first message. If a conversation already exists on the counterparty's
// side it is resumed and the message appended there instead.
//
// The write sequence is fail-forward: the receiver's summary is
// fire-and-forget, the sender's summary gates the message-log write, and
// nothing is rolled back on a later failure.
func (e *Engine) CreateConversation(ctx context.Context, counterparty chat.DirectoryEntry, kind chat.Kind, content string) (string, error) {
	if existing, err := e.ConversationExists(ctx, counterparty.UID); err == nil {
		if _, err := e.SendMessage(ctx, existing, counterparty, kind, content); err != nil {
			return "", err
		}
		return existing, nil
	}

	self, err := e.ident.Current(ctx)
	if err != nil {
		return "", err
	}

	now := e.now()
	message := e.compose(self, counterparty.UID, kind, content, now)
	conversationID := chat.ConversationID(message.ID)
	latest := chat.LatestMessage{Date: message.Date, Text: message.Content}

	receiverSummary := chat.ConversationSummary{
		ID:                conversationID,
		CounterpartyUID:   self.UID,
		CounterpartyEmail: self.Email,
		CounterpartyName:  self.DisplayName,
		LatestMessage:     latest,
	}
	if err := e.appendSummary(ctx, counterparty.UID, receiverSummary); err != nil {
		// Fire-and-forget: the receiver's inbox catches up on their next send.
		e.logger.Error("receiver summary write failed",
			zap.String("conversation_id", conversationID),
			zap.String("receiver_uid", counterparty.UID),
			zap.Error(err))
	}

	senderSummary := chat.ConversationSummary{
		ID:                conversationID,
		CounterpartyUID:   counterparty.UID,
		CounterpartyEmail: counterparty.Email,
		CounterpartyName:  counterparty.Name,
		LatestMessage:     latest,
	}
	if err := e.appendSummary(ctx, self.UID, senderSummary); err != nil {
		return "", err
	}

	if err := e.write(ctx, chat.MessagesPath(conversationID), []chat.Message{message}); err != nil {
		return "", fmt.Errorf("%w: message log %s: %w", chat.ErrWriteFailed, conversationID, err)
	}

	e.events.Publish(bus.Event{
		Kind:      bus.KindConversationCreated,
		Timestamp: time.Now(),
		Payload:   bus.ConversationEvent{ConversationID: conversationID, CounterpartyUID: counterparty.UID},
	})
	e.events.Publish(bus.Event{
		Kind:      bus.KindMessageSent,
		Timestamp: time.Now(),
		Payload:   bus.MessageEvent{ConversationID: conversationID, MessageID: message.ID, Kind: string(message.Kind)},
	})
	e.logger.Info("conversation created",
		zap.String("conversation_id", conversationID),
		zap.String("counterparty_uid", counterparty.UID))
	return conversationID, nil
}

// DeleteConversation removes the conversation from the caller's registry
// only. The counterparty's summary and the shared message log are left in
// place; this asymmetry is long-standing observable behavior and is kept
// deliberately.
func (e *Engine) DeleteConversation(ctx context.Context, conversationID string) error {
	self, err := e.ident.Current(ctx)
	if err != nil {
		return err
	}

	summaries, err := e.registry(ctx, self.UID)
	if err != nil {
		return err
	}

	kept := summaries[:0]
	found := false
	for _, s := range summaries {
		if s.ID == conversationID {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return fmt.Errorf("%w: conversation %s", chat.ErrNotFound, conversationID)
	}

	if err := e.write(ctx, chat.ConversationsPath(self.UID), kept); err != nil {
		return fmt.Errorf("%w: registry %s: %w", chat.ErrWriteFailed, self.UID, err)
	}

	e.events.Publish(bus.Event{
		Kind:      bus.KindConversationDeleted,
		Timestamp: time.Now(),
		Payload:   bus.ConversationEvent{ConversationID: conversationID},
	})
	e.logger.Info("conversation deleted", zap.String("conversation_id", conversationID))
	return nil
}

// appendSummary read-append-writes one summary onto a user's registry.
func (e *Engine) appendSummary(ctx context.Context, uid string, summary chat.ConversationSummary) error {
	summaries, err := e.registry(ctx, uid)
	if err != nil {
		return err
	}
	summaries = append(summaries, summary)
	if err := e.write(ctx, chat.ConversationsPath(uid), summaries); err != nil {
		return fmt.Errorf("%w: registry %s: %w", chat.ErrWriteFailed, uid, err)
	}
	return nil
}
