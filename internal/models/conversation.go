package models

import "time"

// Conversation is a private conversation between exactly two users.
type Conversation struct {
	ID        string    `db:"id" json:"id"`
	User1ID   string    `db:"user1_id" json:"user1_id"`
	User2ID   string    `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ConversationSummary is the API-friendly view of a conversation for a user.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	FriendID       string    `json:"friend_id"`
	FriendName     string    `json:"friend_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Group is a multi-member chat group.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessageRead is a fire-and-forget read receipt. Upserting the same
// (message, reader) key repeatedly is harmless.
type MessageRead struct {
	MessageID string    `db:"message_id" json:"message_id"`
	ScopeKind ScopeKind `db:"scope_kind" json:"scope_kind"`
	ReaderID  string    `db:"reader_id" json:"reader_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}
