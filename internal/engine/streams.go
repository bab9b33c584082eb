package engine

import (
	"context"

	"github.com/kshitizb/talk/internal/chat"
)

// streamBuffer is the snapshot buffer per stream. A consumer that falls
// behind misses intermediate snapshots, never the channel close.
const streamBuffer = 16

// ConversationStream delivers registry snapshots until cancelled.
type ConversationStream struct {
	C      <-chan []chat.ConversationSummary
	cancel func()
}

// Cancel detaches the stream. Snapshots already buffered may still be read;
// the channel closes once drained.
func (s *ConversationStream) Cancel() { s.cancel() }

// MessageStream delivers message log snapshots until cancelled.
type MessageStream struct {
	C      <-chan []chat.Message
	cancel func()
}

// Cancel detaches the stream.
func (s *MessageStream) Cancel() { s.cancel() }

// ListConversations opens a standing subscription on the caller's registry.
// Every store change delivers the full decoded collection; malformed
// entries are skipped, and a snapshot that cannot be decoded at all is
// dropped without ending the stream.
func (e *Engine) ListConversations(ctx context.Context) (*ConversationStream, error) {
	self, err := e.ident.Current(ctx)
	if err != nil {
		return nil, err
	}

	path := chat.ConversationsPath(self.UID)
	raws, cancel := e.store.Subscribe(path)
	out := make(chan []chat.ConversationSummary, streamBuffer)

	go func() {
		defer close(out)
		for raw := range raws {
			summaries, skipped, err := chat.DecodeSummaries(raw)
			if err != nil {
				e.reportSkipped(path, 1)
				continue
			}
			e.reportSkipped(path, skipped)
			deliver(out, summaries)
		}
	}()

	return &ConversationStream{C: out, cancel: cancel}, nil
}

// ListMessages opens a standing subscription on a conversation's message
// log. Snapshot order is array order: the order messages were appended.
func (e *Engine) ListMessages(ctx context.Context, conversationID string) (*MessageStream, error) {
	if _, err := e.ident.Current(ctx); err != nil {
		return nil, err
	}

	path := chat.MessagesPath(conversationID)
	raws, cancel := e.store.Subscribe(path)
	out := make(chan []chat.Message, streamBuffer)

	go func() {
		defer close(out)
		for raw := range raws {
			messages, skipped, err := chat.DecodeMessages(raw)
			if err != nil {
				e.reportSkipped(path, 1)
				continue
			}
			e.reportSkipped(path, skipped)
			deliver(out, messages)
		}
	}()

	return &MessageStream{C: out, cancel: cancel}, nil
}

// deliver pushes a snapshot without blocking; when the consumer is full the
// oldest buffered snapshot is evicted so the newest wins.
func deliver[T any](out chan []T, snapshot []T) {
	for {
		select {
		case out <- snapshot:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}
