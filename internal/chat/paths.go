package chat

// Path layout of the keyed store. The layout is shared with other clients
// of the same store and must be preserved:
//
//	{uid}                      profile record
//	users                      directory sequence
//	{uid}/conversations        per-user conversation summaries
//	{conversationId}/messages  per-conversation message log

// UserPath returns the path of a user's profile record.
func UserPath(uid string) string {
	return uid
}

// UsersPath returns the path of the shared directory sequence.
func UsersPath() string {
	return "users"
}

// ConversationsPath returns the path of a user's conversation registry.
func ConversationsPath(uid string) string {
	return uid + "/conversations"
}

// MessagesPath returns the path of a conversation's message log.
func MessagesPath(conversationID string) string {
	return conversationID + "/messages"
}
