package session

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
)

// Tracker maintains the online-user view from the shared presence channel.
// One tracker serves one authenticated user across all of their open scopes:
// the channel is joined once and never re-joined when the user switches
// conversations. Presence is best-effort throughout; every failure is logged
// and swallowed so chat keeps working without it.
type Tracker struct {
	presence realtime.Presence
	status   realtime.StatusWriter
	log      *zap.Logger

	mu      sync.RWMutex
	online  map[string]models.UserProfile
	self    *models.UserProfile
	started bool
	channel realtime.PresenceChannel
	subs    map[uint64]func()
	nextSub uint64
}

// NewTracker constructs an idle Tracker.
func NewTracker(presence realtime.Presence, status realtime.StatusWriter, log *zap.Logger) *Tracker {
	return &Tracker{
		presence: presence,
		status:   status,
		log:      log,
		online:   make(map[string]models.UserProfile),
		subs:     make(map[uint64]func()),
	}
}

// Start registers the user as online and joins the presence channel. Repeat
// calls are no-ops: the user's own payload is tracked exactly once.
func (t *Tracker) Start(ctx context.Context, self models.UserProfile) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.self = &self
	t.mu.Unlock()

	if t.status != nil {
		if err := t.status.SetOnlineStatus(ctx, self.UserID, models.StatusOnline); err != nil {
			t.log.Warn("presence status registration failed", zap.String("user_id", self.UserID), zap.Error(err))
		}
	}

	if t.presence == nil {
		return
	}
	channel, err := t.presence.Join(ctx, self)
	if err != nil {
		t.log.Warn("presence channel join failed", zap.String("user_id", self.UserID), zap.Error(err))
		return
	}

	t.mu.Lock()
	t.channel = channel
	t.mu.Unlock()

	go t.run(channel)
}

func (t *Tracker) run(channel realtime.PresenceChannel) {
	for event := range channel.Events() {
		switch event.Kind {
		case realtime.PresenceSync:
			t.applySync(event.Users)
		case realtime.PresenceJoin, realtime.PresenceLeave:
			// Log only; the authoritative state arrives with the next sync.
			if event.User != nil {
				t.log.Debug("presence membership change",
					zap.String("kind", string(event.Kind)),
					zap.String("user_id", event.User.UserID))
			}
		}
	}
}

// applySync fully replaces the online-user map with the snapshot. Last write
// wins per key; absent users drop out immediately.
func (t *Tracker) applySync(users []models.UserProfile) {
	next := make(map[string]models.UserProfile, len(users))
	for _, user := range users {
		next[user.UserID] = user
	}

	t.mu.Lock()
	t.online = next
	listeners := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnlineUsers returns the current snapshot ordered by user id.
func (t *Tracker) OnlineUsers() []models.UserProfile {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := make([]models.UserProfile, 0, len(t.online))
	for _, user := range t.online {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

// OthersOnline reports whether anyone besides the given user is online.
func (t *Tracker) OthersOnline(selfID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id := range t.online {
		if id != selfID {
			return true
		}
	}
	return false
}

// Subscribe registers a callback invoked after every sync. The returned
// function removes the subscription.
func (t *Tracker) Subscribe(fn func()) func() {
	t.mu.Lock()
	t.nextSub++
	id := t.nextSub
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Close leaves the presence channel.
func (t *Tracker) Close() {
	t.mu.Lock()
	channel := t.channel
	t.channel = nil
	t.mu.Unlock()

	if channel != nil {
		_ = channel.Leave()
	}
}
