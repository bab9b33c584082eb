package chat

import (
	"fmt"
	"strings"
	"time"
)

// TimeFormat is the wire format for message timestamps. Existing records
// were written with this layout, so it must not change.
const TimeFormat = "Jan 2, 2006 at 3:04:05 PM MST"

// conversationPrefix prefixes every conversation id on the wire.
const conversationPrefix = "conversation_"

// Kind is a closed enum of message kinds.
type Kind string

const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindLocation Kind = "location"
)

// Valid reports whether k is a known canonical kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindPhoto, KindVideo, KindLocation:
		return true
	}
	return false
}

// UserRecord is the per-uid profile record stored at the {uid} path.
type UserRecord struct {
	UID       string `json:"uid"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// NewUserRecord builds a profile record with the email lowercased, matching
// how records have always been written.
func NewUserRecord(uid, firstName, lastName, email string) UserRecord {
	return UserRecord{
		UID:       uid,
		FirstName: firstName,
		LastName:  lastName,
		Email:     strings.ToLower(email),
	}
}

// Name returns the directory display name for the record.
func (u UserRecord) Name() string {
	return u.FirstName + " " + u.LastName
}

// ProfilePictureName returns the object name used for the user's avatar.
func (u UserRecord) ProfilePictureName() string {
	return ProfilePictureName(u.UID)
}

// ProfilePictureName returns the avatar object name for a uid.
func ProfilePictureName(uid string) string {
	return uid + "_profile_pic.png"
}

// DirectoryEntry is one row of the shared "users" sequence.
type DirectoryEntry struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LatestMessage is the denormalized digest of the newest message in a
// conversation, kept on both participants' summaries.
type LatestMessage struct {
	Date   string `json:"date"`
	Text   string `json:"text"`
	IsRead bool   `json:"is_read"`
}

// ConversationSummary is one participant's inbox entry for a conversation.
// Two physically independent copies exist, one per participant, each naming
// the other side as counterparty. They are mirrored best-effort, not
// atomically.
type ConversationSummary struct {
	ID                string        `json:"id"`
	CounterpartyUID   string        `json:"counterparty_uid"`
	CounterpartyEmail string        `json:"counterparty_email"`
	CounterpartyName  string        `json:"counterparty_name"`
	LatestMessage     LatestMessage `json:"latest_message"`
}

// Message is one record of a conversation's append-only log. Content is
// encoded per kind: raw text, media URL, or "<longitude>,<latitude>".
type Message struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"type"`
	Content    string `json:"content"`
	Date       string `json:"date"`
	SenderUID  string `json:"sender_uid"`
	SenderName string `json:"sender_name"`
	IsRead     bool   `json:"is_read"`
}

// MessageID derives the id for a new message sent to counterpartyUID.
func MessageID(counterpartyUID, selfUID string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", counterpartyUID, selfUID, at.Format(TimeFormat))
}

// ConversationID derives a conversation id from its first message id.
func ConversationID(firstMessageID string) string {
	return conversationPrefix + firstMessageID
}

// IsConversationID reports whether id carries the conversation prefix.
func IsConversationID(id string) bool {
	return strings.HasPrefix(id, conversationPrefix)
}
