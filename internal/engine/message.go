package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/chat"
	"github.com/kshitizb/talk/internal/keyedstore"
	"github.com/kshitizb/talk/internal/media"
	"go.uber.org/zap"
)

// SendMessage appends a message to an existing conversation and refreshes
// both participants' summaries, in that order. The three writes are
// sequential and independent: a failure after the log write leaves the
// message delivered but one or both summaries stale (fail-forward).
func (e *Engine) SendMessage(ctx context.Context, conversationID string, counterparty chat.DirectoryEntry, kind chat.Kind, content string) (chat.Message, error) {
	self, err := e.ident.Current(ctx)
	if err != nil {
		return chat.Message{}, err
	}

	message := e.compose(self, counterparty.UID, kind, content, e.now())

	// Message log first; it is the authoritative record.
	logPath := chat.MessagesPath(conversationID)
	messages, err := e.messageLog(ctx, conversationID)
	if err != nil {
		return chat.Message{}, err
	}
	messages = append(messages, message)
	if err := e.write(ctx, logPath, messages); err != nil {
		return chat.Message{}, fmt.Errorf("%w: message log %s: %w", chat.ErrWriteFailed, conversationID, err)
	}

	latest := chat.LatestMessage{Date: message.Date, Text: message.Content}

	// Sender's summary, then the receiver's. A summary missing from a
	// registry is recreated rather than treated as an error.
	if err := e.refreshSummary(ctx, self.UID, conversationID, latest, chat.ConversationSummary{
		ID:                conversationID,
		CounterpartyUID:   counterparty.UID,
		CounterpartyEmail: counterparty.Email,
		CounterpartyName:  counterparty.Name,
		LatestMessage:     latest,
	}); err != nil {
		return message, err
	}

	if err := e.refreshSummary(ctx, counterparty.UID, conversationID, latest, chat.ConversationSummary{
		ID:                conversationID,
		CounterpartyUID:   self.UID,
		CounterpartyEmail: self.Email,
		CounterpartyName:  self.DisplayName,
		LatestMessage:     latest,
	}); err != nil {
		return message, err
	}

	e.events.Publish(bus.Event{
		Kind:      bus.KindMessageSent,
		Timestamp: time.Now(),
		Payload:   bus.MessageEvent{ConversationID: conversationID, MessageID: message.ID, Kind: string(message.Kind)},
	})
	return message, nil
}

// SendText sends a plain text message, creating the conversation when
// conversationID is empty.
func (e *Engine) SendText(ctx context.Context, conversationID string, counterparty chat.DirectoryEntry, text string) (string, chat.Message, error) {
	return e.deliver(ctx, conversationID, counterparty, chat.KindText, text)
}

// SendPhoto uploads the photo bytes, then sends a photo message whose
// content is the download URL. An upload failure aborts the send.
func (e *Engine) SendPhoto(ctx context.Context, conversationID string, counterparty chat.DirectoryEntry, data []byte) (string, chat.Message, error) {
	url, err := e.uploader.Upload(ctx, data, media.NewPhotoPath())
	if err != nil {
		return "", chat.Message{}, fmt.Errorf("%w: photo: %v", chat.ErrUploadFailed, err)
	}
	return e.deliver(ctx, conversationID, counterparty, chat.KindPhoto, url)
}

// SendVideo uploads the video bytes, then sends a video message whose
// content is the download URL.
func (e *Engine) SendVideo(ctx context.Context, conversationID string, counterparty chat.DirectoryEntry, data []byte) (string, chat.Message, error) {
	url, err := e.uploader.Upload(ctx, data, media.NewVideoPath())
	if err != nil {
		return "", chat.Message{}, fmt.Errorf("%w: video: %v", chat.ErrUploadFailed, err)
	}
	return e.deliver(ctx, conversationID, counterparty, chat.KindVideo, url)
}

// SendLocation sends a coordinate pair encoded as "<longitude>,<latitude>".
func (e *Engine) SendLocation(ctx context.Context, conversationID string, counterparty chat.DirectoryEntry, longitude, latitude float64) (string, chat.Message, error) {
	return e.deliver(ctx, conversationID, counterparty, chat.KindLocation, chat.EncodeLocation(longitude, latitude))
}

// deliver routes a composed content string to create-or-send.
func (e *Engine) deliver(ctx context.Context, conversationID string, counterparty chat.DirectoryEntry, kind chat.Kind, content string) (string, chat.Message, error) {
	if conversationID == "" {
		id, err := e.CreateConversation(ctx, counterparty, kind, content)
		if err != nil {
			return "", chat.Message{}, err
		}
		// The first message is the log's only entry at this point.
		messages, err := e.messageLog(ctx, id)
		if err != nil || len(messages) == 0 {
			return id, chat.Message{}, nil
		}
		return id, messages[len(messages)-1], nil
	}
	message, err := e.SendMessage(ctx, conversationID, counterparty, kind, content)
	return conversationID, message, err
}

// messageLog reads and decodes a conversation's log, treating an absent
// path as an empty log.
func (e *Engine) messageLog(ctx context.Context, conversationID string) ([]chat.Message, error) {
	path := chat.MessagesPath(conversationID)
	raw, err := e.read(ctx, path)
	if errors.Is(err, keyedstore.ErrAbsent) {
		return nil, nil
	}
	if errors.Is(err, chat.ErrTimeout) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: message log %s: %v", chat.ErrFetchFailed, conversationID, err)
	}
	messages, skipped, err := chat.DecodeMessages(raw)
	if err != nil {
		return nil, err
	}
	e.reportSkipped(path, skipped)
	return messages, nil
}

// refreshSummary read-modify-writes one registry entry's latest message.
// A missing entry is appended fresh: a summary deleted on one side comes
// back as soon as either participant sends again.
func (e *Engine) refreshSummary(ctx context.Context, uid, conversationID string, latest chat.LatestMessage, fallback chat.ConversationSummary) error {
	summaries, err := e.registry(ctx, uid)
	if err != nil {
		return err
	}

	found := false
	for i := range summaries {
		if summaries[i].ID == conversationID {
			summaries[i].LatestMessage = latest
			found = true
			break
		}
	}
	if !found {
		summaries = append(summaries, fallback)
		e.logger.Info("summary recreated",
			zap.String("conversation_id", conversationID),
			zap.String("uid", uid))
	}

	if err := e.write(ctx, chat.ConversationsPath(uid), summaries); err != nil {
		return fmt.Errorf("%w: registry %s: %w", chat.ErrWriteFailed, uid, err)
	}
	return nil
}
