package models

// ChatState is the single aggregate the UI reads. Sessions hand out value
// copies; slices are never shared with the session's internal state.
type ChatState struct {
	Messages      []Message             `json:"messages"`
	TypingUsers   []TypingIndicator     `json:"typing_users"`
	OnlineUsers   []UserProfile         `json:"online_users"`
	Profile       *UserProfile          `json:"profile,omitempty"`
	Conversations []ConversationSummary `json:"conversations"`
	Groups        []Group               `json:"groups"`
	Scope         Scope                 `json:"scope"`
	State         string                `json:"state"`
	IsConnected   bool                  `json:"is_connected"`
	ChatAvailable bool                  `json:"chat_available"`
	Error         string                `json:"error,omitempty"`
	LoadError     string                `json:"load_error,omitempty"`
}
