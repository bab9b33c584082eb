// Package engine implements the conversation/message synchronization logic:
// creating conversations, appending to message logs, mirroring per-user
// summaries and streaming live updates.
//
// Consistency model: the store offers no multi-path atomicity, so every
// multi-step operation is fail-forward. The message log is written first
// and is authoritative (at-least-once); the two summary copies are mirrored
// best-effort and may lag or diverge under concurrent sends.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/chat"
	"github.com/kshitizb/talk/internal/identity"
	"github.com/kshitizb/talk/internal/keyedstore"
	"github.com/kshitizb/talk/internal/media"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each store read and write.
const DefaultTimeout = 10 * time.Second

// Engine performs all conversation and message writes. It is the sole
// writer of summaries and message logs; callers read through its query and
// stream surface only.
type Engine struct {
	store    keyedstore.Store
	ident    identity.Provider
	uploader media.Uploader
	events   *bus.Bus
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time

	writeTrouble atomic.Bool
}

// New creates an engine. All collaborators are injected; the engine never
// reaches into ambient state.
func New(store keyedstore.Store, ident identity.Provider, uploader media.Uploader, events *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		ident:    ident,
		uploader: uploader,
		events:   events,
		logger:   logger,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
}

// compose builds a new outgoing message addressed to counterpartyUID.
func (e *Engine) compose(self identity.Identity, counterpartyUID string, kind chat.Kind, content string, at time.Time) chat.Message {
	return chat.Message{
		ID:         chat.MessageID(counterpartyUID, self.UID, at),
		Kind:       kind,
		Content:    content,
		Date:       at.Format(chat.TimeFormat),
		SenderUID:  self.UID,
		SenderName: self.DisplayName,
	}
}

func (e *Engine) read(ctx context.Context, path string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	raw, err := e.store.ReadOnce(ctx, path)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: read %s", chat.ErrTimeout, path)
	}
	return raw, err
}

func (e *Engine) write(ctx context.Context, path string, value any) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	err := e.store.Write(ctx, path, value)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: write %s", chat.ErrTimeout, path)
	}
	if err != nil {
		e.writeTrouble.Store(true)
		e.events.Publish(bus.Event{
			Kind:      bus.KindWriteFailed,
			Timestamp: time.Now(),
			Payload:   bus.WriteEvent{Path: path},
		})
		return err
	}
	if e.writeTrouble.CompareAndSwap(true, false) {
		e.events.Publish(bus.Event{
			Kind:      bus.KindWriteRecovered,
			Timestamp: time.Now(),
			Payload:   bus.WriteEvent{Path: path},
		})
	}
	return nil
}

// registry reads and decodes a user's conversation registry, treating an
// absent path as empty. Malformed entries are dropped and reported.
func (e *Engine) registry(ctx context.Context, uid string) ([]chat.ConversationSummary, error) {
	path := chat.ConversationsPath(uid)
	raw, err := e.read(ctx, path)
	if errors.Is(err, keyedstore.ErrAbsent) {
		return nil, nil
	}
	if errors.Is(err, chat.ErrTimeout) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: registry %s: %v", chat.ErrFetchFailed, uid, err)
	}
	summaries, skipped, err := chat.DecodeSummaries(raw)
	if err != nil {
		return nil, err
	}
	e.reportSkipped(path, skipped)
	return summaries, nil
}

func (e *Engine) reportSkipped(path string, skipped int) {
	if skipped == 0 {
		return
	}
	e.logger.Warn("skipped malformed records", zap.String("path", path), zap.Int("count", skipped))
	e.events.Publish(bus.Event{
		Kind:      bus.KindDecodeSkipped,
		Timestamp: time.Now(),
		Payload:   bus.DecodeSkipEvent{Path: path, Skipped: skipped},
	})
}
