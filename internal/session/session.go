// Package session implements the chat synchronization core: one Session per
// connected client folds the message change-feed, the typing change-feed and
// presence updates into a single ChatState aggregate.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"chat-sync/internal/identity"
	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/realtime"
	"chat-sync/internal/repositories"
	"chat-sync/internal/telemetry"
)

// ConnectionState is the session connection lifecycle state.
type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateConnected  ConnectionState = "connected"
	StateDegraded   ConnectionState = "degraded"
	StateClosed     ConnectionState = "closed"
)

// Deps wires a Session to its collaborators.
type Deps struct {
	Feeds         realtime.FeedSource
	Tracker       *Tracker
	Identity      identity.Provider
	Messages      repositories.MessageRepository
	GroupMessages repositories.GroupMessageRepository
	Conversations repositories.ConversationRepository
	Groups        repositories.GroupRepository
	Typing        repositories.TypingRepository
	Reporter      *Reporter
	Audit         *telemetry.AuditEmitter
	Log           *zap.Logger
}

// Options tunes a Session. Zero values fall back to defaults.
type Options struct {
	Token             string
	HistoryLimit      int
	TypingSweepEvery  time.Duration
	TypingStaleAfter  time.Duration
	VisibilityTimeout time.Duration
}

const (
	defaultHistoryLimit      = 50
	defaultTypingSweepEvery  = 5 * time.Second
	defaultTypingStaleAfter  = 10 * time.Second
	defaultVisibilityTimeout = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = defaultHistoryLimit
	}
	if o.TypingSweepEvery <= 0 {
		o.TypingSweepEvery = defaultTypingSweepEvery
	}
	if o.TypingStaleAfter <= 0 {
		o.TypingStaleAfter = defaultTypingStaleAfter
	}
	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = defaultVisibilityTimeout
	}
	return o
}

// Session owns one logical chat surface: the feed subscriptions, the timers
// and the ChatState for its active scope. Re-opening with a new scope fully
// tears down the previous one first; at most one scope is ever live.
//
// Every asynchronous callback captures the epoch current at subscription time
// and is discarded if the session has moved on — events destined for a closed
// scope never reach the successor's state.
type Session struct {
	deps Deps
	opts Options

	mu            sync.Mutex
	epoch         uint64
	scope         models.Scope
	state         ConnectionState
	profile       *models.UserProfile
	messages      []models.Message
	typing        map[string]models.TypingIndicator
	conversations []models.ConversationSummary
	groups        []models.Group
	errMsg        string
	loadErr       string
	reported      map[string]struct{}
	visibility    *Visibility
	cancel        context.CancelFunc
	msgFeed       realtime.MessageFeed
	typingFeed    realtime.TypingFeed
	unsubPresence func()
	active        bool

	updates chan struct{}
}

// NewSession constructs a closed Session.
func NewSession(deps Deps, opts Options) *Session {
	return &Session{
		deps:       deps,
		opts:       opts.withDefaults(),
		state:      StateClosed,
		typing:     make(map[string]models.TypingIndicator),
		reported:   make(map[string]struct{}),
		visibility: NewVisibility(),
		updates:    make(chan struct{}, 1),
	}
}

// Open establishes the session for a scope: resolves the current user, joins
// presence (best-effort), loads initial history and subscribes both
// change-feeds. A previous scope is fully closed first.
func (s *Session) Open(ctx context.Context, scope models.Scope) error {
	s.mu.Lock()
	s.teardownLocked()
	s.epoch++
	epoch := s.epoch
	s.scope = scope
	s.state = StateConnecting
	s.messages = nil
	s.typing = make(map[string]models.TypingIndicator)
	s.reported = make(map[string]struct{})
	s.errMsg, s.loadErr = "", ""
	vis := NewVisibility()
	s.visibility = vis
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.active = true
	s.mu.Unlock()

	observability.IncSessionActive(string(scope.Kind))
	s.reportTransition(StateConnecting, "")
	s.notify()

	profile, err := s.deps.Identity.CurrentUser(ctx, s.opts.Token)
	if err != nil {
		s.withEpoch(epoch, func() {
			s.loadErr = "failed to resolve current user"
			s.state = StateDegraded
		})
		s.reportTransition(StateDegraded, err.Error())
		s.notify()
		return err
	}
	if !s.withEpoch(epoch, func() { s.profile = &profile }) {
		return nil
	}

	// Presence never blocks chat: the tracker swallows its own failures and
	// the visibility timeout covers the case where no sync ever arrives.
	if s.deps.Tracker != nil {
		s.deps.Tracker.Start(ctx, profile)
		unsub := s.deps.Tracker.Subscribe(func() {
			vis.MarkResolved()
			s.notify()
		})
		if !s.withEpoch(epoch, func() { s.unsubPresence = unsub }) {
			unsub()
			return nil
		}
	}

	history, err := s.loadHistory(ctx, scope)
	if err != nil {
		s.deps.Log.Error("initial history load failed", zap.String("scope", scope.Key()), zap.Error(err))
		s.withEpoch(epoch, func() {
			s.loadErr = "failed to load messages"
		})
	} else if !s.withEpoch(epoch, func() { s.messages = history; s.reportInboundLocked(history) }) {
		return nil
	}

	s.loadSummaries(ctx, epoch, profile.UserID)

	degraded := false
	msgFeed, err := s.deps.Feeds.SubscribeMessages(runCtx, scope)
	if err != nil {
		degraded = true
		s.degrade(epoch, "live message updates unavailable", err)
	} else if s.withEpoch(epoch, func() { s.msgFeed = msgFeed }) {
		go s.runMessageFeed(epoch, msgFeed)
	} else {
		_ = msgFeed.Close()
		return nil
	}

	typingFeed, err := s.deps.Feeds.SubscribeTyping(runCtx, scope)
	if err != nil {
		degraded = true
		s.degrade(epoch, "typing updates unavailable", err)
	} else if s.withEpoch(epoch, func() { s.typingFeed = typingFeed }) {
		go s.runTypingFeed(epoch, typingFeed)
	} else {
		_ = typingFeed.Close()
		return nil
	}

	go s.runTypingSweep(runCtx, epoch)
	go s.runVisibilityTimeout(runCtx, vis)

	if !degraded {
		transitioned := s.withEpoch(epoch, func() {
			if s.state == StateConnecting {
				s.state = StateConnected
			}
		})
		if transitioned {
			s.reportTransition(StateConnected, "")
		}
	}
	s.notify()
	return nil
}

// Close tears down the feeds and timers. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	wasClosed := s.state == StateClosed
	s.teardownLocked()
	s.epoch++
	s.state = StateClosed
	s.mu.Unlock()

	if !wasClosed {
		s.reportTransition(StateClosed, "")
		s.notify()
	}
}

func (s *Session) teardownLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.msgFeed != nil {
		_ = s.msgFeed.Close()
		s.msgFeed = nil
	}
	if s.typingFeed != nil {
		_ = s.typingFeed.Close()
		s.typingFeed = nil
	}
	if s.unsubPresence != nil {
		s.unsubPresence()
		s.unsubPresence = nil
	}
	if s.active {
		observability.DecSessionActive(string(s.scope.Kind))
		s.active = false
	}
}

// withEpoch runs fn under the lock iff the session has not moved on since the
// epoch was captured. Returns false when the callback was discarded.
func (s *Session) withEpoch(epoch uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	fn()
	return true
}

func (s *Session) degrade(epoch uint64, msg string, cause error) {
	changed := s.withEpoch(epoch, func() {
		s.errMsg = msg
		s.state = StateDegraded
	})
	if changed {
		s.reportTransition(StateDegraded, cause.Error())
		s.notify()
	}
}

func (s *Session) reportTransition(state ConnectionState, detail string) {
	observability.IncSessionTransition(string(state))

	s.mu.Lock()
	scope := s.scope
	var userID *string
	if s.profile != nil {
		id := s.profile.UserID
		userID = &id
	}
	s.mu.Unlock()

	s.deps.Log.Info("session state transition",
		zap.String("scope", scope.Key()),
		zap.String("state", string(state)),
		zap.String("detail", detail))

	if s.deps.Audit != nil {
		text := "session " + string(state) + " scope=" + scope.Key()
		if detail != "" {
			text += " detail=" + detail
		}
		s.deps.Audit.Emit(context.Background(), "INFO", text, "", userID)
	}
}

func (s *Session) loadHistory(ctx context.Context, scope models.Scope) ([]models.Message, error) {
	switch scope.Kind {
	case models.ScopeConversation:
		return s.deps.Messages.ListConversationMessages(ctx, scope.ID)
	case models.ScopeGroup:
		return s.deps.GroupMessages.ListGroupMessages(ctx, scope.ID)
	default:
		msgs, err := s.deps.Messages.ListGlobalMessages(ctx, s.opts.HistoryLimit)
		if err != nil {
			return nil, err
		}
		// Store returns newest first; reverse to chronological order.
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
		return msgs, nil
	}
}

func (s *Session) loadSummaries(ctx context.Context, epoch uint64, userID string) {
	if s.deps.Conversations != nil {
		convs, err := s.deps.Conversations.ListConversations(ctx, userID)
		if err != nil {
			s.deps.Log.Warn("conversation list load failed", zap.Error(err))
		} else {
			s.withEpoch(epoch, func() { s.conversations = convs })
		}
	}
	if s.deps.Groups != nil {
		groups, err := s.deps.Groups.ListGroupsForUser(ctx, userID)
		if err != nil {
			s.deps.Log.Warn("group list load failed", zap.Error(err))
		} else {
			s.withEpoch(epoch, func() { s.groups = groups })
		}
	}
}

func (s *Session) runMessageFeed(epoch uint64, feed realtime.MessageFeed) {
	for event := range feed.Events() {
		s.applyMessageEvent(epoch, event)
	}

	s.mu.Lock()
	stale := epoch != s.epoch
	s.mu.Unlock()
	if !stale {
		s.degrade(epoch, "live message updates stalled", errFeedClosed)
	}
}

func (s *Session) runTypingFeed(epoch uint64, feed realtime.TypingFeed) {
	for event := range feed.Events() {
		s.applyTypingEvent(epoch, event)
	}
}

func (s *Session) runTypingSweep(ctx context.Context, epoch uint64) {
	ticker := time.NewTicker(s.opts.TypingSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepTyping(epoch)
		}
	}
}

func (s *Session) runVisibilityTimeout(ctx context.Context, vis *Visibility) {
	timer := time.NewTimer(s.opts.VisibilityTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
		vis.MarkTimedOut()
		s.notify()
	}
}

// reportInboundLocked fires read receipts for messages from other users that
// have not been reported yet. Caller holds the lock.
func (s *Session) reportInboundLocked(msgs []models.Message) {
	if s.deps.Reporter == nil || s.profile == nil {
		return
	}
	for _, msg := range msgs {
		if msg.SenderID == s.profile.UserID {
			continue
		}
		if _, ok := s.reported[msg.ID]; ok {
			continue
		}
		s.reported[msg.ID] = struct{}{}
		s.deps.Reporter.MarkRead(msg.ID, s.scope.Kind, s.profile.UserID)
	}
}
