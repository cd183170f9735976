// Package hub implements the process-wide presence channel. Members join with
// their profile payload; every subscriber receives join/leave notifications
// and periodic full-membership sync snapshots. The snapshot is authoritative:
// consumers replace their view on every sync rather than merging deltas.
package hub

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
)

const defaultSyncInterval = 3 * time.Second

// PresenceHub maintains presence-channel membership.
type PresenceHub struct {
	mu      sync.RWMutex
	members map[string]models.UserProfile
	counts  map[string]int
	subs    map[uint64]chan realtime.PresenceEvent
	nextID  uint64

	interval time.Duration
	log      *zap.Logger
	done     chan struct{}
	once     sync.Once
}

var _ realtime.Presence = (*PresenceHub)(nil)

// NewPresenceHub creates an empty hub. A non-positive interval falls back to
// the default sync cadence.
func NewPresenceHub(interval time.Duration, log *zap.Logger) *PresenceHub {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &PresenceHub{
		members:  make(map[string]models.UserProfile),
		counts:   make(map[string]int),
		subs:     make(map[uint64]chan realtime.PresenceEvent),
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic sync broadcast.
func (h *PresenceHub) Start() {
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				h.broadcastSync()
			}
		}
	}()
}

// Close stops the sync ticker and drops all subscribers.
func (h *PresenceHub) Close() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

// Join registers the user on the channel with their profile payload. The same
// user may join once per open session; they stay listed until the last
// membership leaves.
func (h *PresenceHub) Join(ctx context.Context, self models.UserProfile) (realtime.PresenceChannel, error) {
	self.IsOnline = true
	if self.Status == "" || self.Status == models.StatusOffline {
		self.Status = models.StatusOnline
	}

	ch := make(chan realtime.PresenceEvent, 16)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.counts[self.UserID]++
	h.members[self.UserID] = self
	h.mu.Unlock()

	h.log.Debug("presence join", zap.String("user_id", self.UserID))
	h.broadcast(realtime.PresenceEvent{Kind: realtime.PresenceJoin, User: &self})
	h.broadcastSync()

	return &membership{hub: h, id: id, userID: self.UserID}, nil
}

type membership struct {
	hub    *PresenceHub
	id     uint64
	userID string
	once   sync.Once
}

func (m *membership) Events() <-chan realtime.PresenceEvent {
	m.hub.mu.RLock()
	defer m.hub.mu.RUnlock()
	return m.hub.subs[m.id]
}

// Leave is idempotent.
func (m *membership) Leave() error {
	m.once.Do(func() { m.hub.leave(m.id, m.userID) })
	return nil
}

func (h *PresenceHub) leave(id uint64, userID string) {
	var left *models.UserProfile

	h.mu.Lock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
	if h.counts[userID] > 0 {
		h.counts[userID]--
	}
	if h.counts[userID] == 0 {
		if member, ok := h.members[userID]; ok {
			left = &member
		}
		delete(h.counts, userID)
		delete(h.members, userID)
	}
	h.mu.Unlock()

	if left != nil {
		h.log.Debug("presence leave", zap.String("user_id", userID))
		h.broadcast(realtime.PresenceEvent{Kind: realtime.PresenceLeave, User: left})
	}
	h.broadcastSync()
}

// Snapshot returns the current membership ordered by user id.
func (h *PresenceHub) Snapshot() []models.UserProfile {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]models.UserProfile, 0, len(h.members))
	for _, member := range h.members {
		users = append(users, member)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (h *PresenceHub) broadcastSync() {
	h.broadcast(realtime.PresenceEvent{Kind: realtime.PresenceSync, Users: h.Snapshot()})
}

// broadcast delivers without blocking; a subscriber that cannot keep up loses
// individual events but recovers on the next sync snapshot.
func (h *PresenceHub) broadcast(event realtime.PresenceEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
