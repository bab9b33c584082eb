package bus

import "time"

// Event kinds published by the chat daemon. Subscribers filter by prefix,
// e.g. "conversation." or "message.".
const (
	KindConversationCreated = "conversation.created"
	KindConversationDeleted = "conversation.deleted"
	KindMessageSent         = "message.sent"
	KindDecodeSkipped       = "sync.decode_skipped"
	KindWriteFailed         = "sync.write_failed"
	KindWriteRecovered      = "sync.write_recovered"
	KindUserInserted        = "directory.user_inserted"
	KindStatusChanged       = "session.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// ConversationEvent is the payload of conversation.* events.
type ConversationEvent struct {
	ConversationID  string
	CounterpartyUID string
}

// MessageEvent is the payload of message.* events.
type MessageEvent struct {
	ConversationID string
	MessageID      string
	Kind           string
}

// DecodeSkipEvent is the payload of sync.decode_skipped events.
type DecodeSkipEvent struct {
	Path    string
	Skipped int
}

// WriteEvent is the payload of sync.write_failed and sync.write_recovered
// events.
type WriteEvent struct {
	Path string
}
