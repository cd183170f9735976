package models

import "time"

// TypingIndicator is an ephemeral "user is composing" record. The most recent
// write per (scope, user) wins; entries expire once LastTyped goes stale.
type TypingIndicator struct {
	ConversationID *string   `db:"conversation_id" json:"conversation_id,omitempty"`
	GroupID        *string   `db:"group_id" json:"group_id,omitempty"`
	UserID         string    `db:"user_id" json:"user_id"`
	UserName       string    `db:"user_name" json:"user_name"`
	IsTyping       bool      `db:"is_typing" json:"is_typing"`
	LastTyped      time.Time `db:"last_typed" json:"last_typed"`
}

// Scope returns the scope the indicator belongs to.
func (t TypingIndicator) Scope() Scope {
	switch {
	case t.ConversationID != nil:
		return ConversationScope(*t.ConversationID)
	case t.GroupID != nil:
		return GroupScope(*t.GroupID)
	default:
		return GlobalScope()
	}
}
