package realtime

import "chat-sync/internal/models"

// ChangeKind is the kind of a change-feed event.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// MessageEvent is one event on a message change-feed.
type MessageEvent struct {
	Kind    ChangeKind     `json:"kind"`
	Message models.Message `json:"message"`
}

// TypingEvent is one event on a typing change-feed.
type TypingEvent struct {
	Kind      ChangeKind             `json:"kind"`
	Indicator models.TypingIndicator `json:"indicator"`
}

// PresenceEventKind distinguishes presence-channel events.
type PresenceEventKind string

const (
	PresenceSync  PresenceEventKind = "sync"
	PresenceJoin  PresenceEventKind = "join"
	PresenceLeave PresenceEventKind = "leave"
)

// PresenceEvent is one event on the shared presence channel. Sync events carry
// the full membership snapshot; join/leave carry the single affected user.
type PresenceEvent struct {
	Kind  PresenceEventKind    `json:"kind"`
	Users []models.UserProfile `json:"users,omitempty"`
	User  *models.UserProfile  `json:"user,omitempty"`
}

// MessageRoutingKey is the exchange routing key for a scope's message feed.
func MessageRoutingKey(scope models.Scope) string {
	return "messages." + scope.Key()
}

// TypingRoutingKey is the exchange routing key for a scope's typing feed.
func TypingRoutingKey(scope models.Scope) string {
	return "typing." + scope.Key()
}
