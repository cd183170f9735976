package models

// ScopeKind partitions chat sessions.
type ScopeKind string

const (
	ScopeConversation ScopeKind = "conversation"
	ScopeGroup        ScopeKind = "group"
	ScopeGlobal       ScopeKind = "global"
)

// Scope identifies the conversation or group a session is bound to.
// The global scope carries no id and addresses the legacy shared feed.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

// ConversationScope builds a direct-conversation scope.
func ConversationScope(id string) Scope {
	return Scope{Kind: ScopeConversation, ID: id}
}

// GroupScope builds a group scope.
func GroupScope(id string) Scope {
	return Scope{Kind: ScopeGroup, ID: id}
}

// GlobalScope addresses the legacy global feed.
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// Key returns a stable identifier usable as a routing-key segment.
func (s Scope) Key() string {
	if s.Kind == ScopeGlobal {
		return "global"
	}
	return string(s.Kind) + "." + s.ID
}

func (s Scope) IsGlobal() bool {
	return s.Kind == ScopeGlobal
}
