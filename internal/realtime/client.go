// Package realtime defines the boundary to the real-time data and presence
// collaborators: scoped change-feeds over the event exchange, the process-wide
// presence channel, and the one-shot online-status call. Sessions consume
// these interfaces and never the concrete transports.
package realtime

import (
	"context"

	"chat-sync/internal/models"
)

// MessageFeed is a live subscription to a scope's message events.
type MessageFeed interface {
	Events() <-chan MessageEvent
	Close() error
}

// TypingFeed is a live subscription to a scope's typing events.
type TypingFeed interface {
	Events() <-chan TypingEvent
	Close() error
}

// PresenceChannel is a joined membership on the shared presence channel.
type PresenceChannel interface {
	Events() <-chan PresenceEvent
	Leave() error
}

// FeedSource opens change-feeds and publishes the events that drive them.
type FeedSource interface {
	SubscribeMessages(ctx context.Context, scope models.Scope) (MessageFeed, error)
	SubscribeTyping(ctx context.Context, scope models.Scope) (TypingFeed, error)
	PublishMessageEvent(ctx context.Context, event MessageEvent) error
	PublishTypingEvent(ctx context.Context, event TypingEvent) error
}

// Presence is the shared presence channel.
type Presence interface {
	Join(ctx context.Context, self models.UserProfile) (PresenceChannel, error)
}

// StatusWriter is the ad-hoc call registering a user's online status.
type StatusWriter interface {
	SetOnlineStatus(ctx context.Context, userID string, status models.PresenceStatus) error
}
