package session

import (
	"sort"

	"chat-sync/internal/models"
)

// Snapshot returns a value copy of the current ChatState. Slices are copied so
// the caller can serialize without racing the fold loops.
func (s *Session) Snapshot() models.ChatState {
	var (
		online       []models.UserProfile
		othersOnline bool
	)
	if s.deps.Tracker != nil {
		online = s.deps.Tracker.OnlineUsers()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deps.Tracker != nil && s.profile != nil {
		othersOnline = s.deps.Tracker.OthersOnline(s.profile.UserID)
	}

	state := models.ChatState{
		Messages:      append([]models.Message(nil), s.messages...),
		TypingUsers:   s.typingLocked(),
		OnlineUsers:   online,
		Conversations: append([]models.ConversationSummary(nil), s.conversations...),
		Groups:        append([]models.Group(nil), s.groups...),
		Scope:         s.scope,
		State:         string(s.state),
		IsConnected:   s.state == StateConnected,
		ChatAvailable: ShouldOffer(othersOnline, s.profile != nil, s.visibility.TimedOut()),
		Error:         s.errMsg,
		LoadError:     s.loadErr,
	}
	if s.profile != nil {
		profile := *s.profile
		state.Profile = &profile
	}
	return state
}

func (s *Session) typingLocked() []models.TypingIndicator {
	indicators := make([]models.TypingIndicator, 0, len(s.typing))
	for _, indicator := range s.typing {
		indicators = append(indicators, indicator)
	}
	sort.Slice(indicators, func(i, j int) bool { return indicators[i].UserName < indicators[j].UserName })
	return indicators
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Scope returns the active scope.
func (s *Session) Scope() models.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// Profile returns the resolved user, or nil before resolution.
func (s *Session) Profile() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	profile := *s.profile
	return &profile
}

// Updates signals after every state change. The channel is buffered and
// coalescing: a pending signal absorbs later ones, so readers take a fresh
// Snapshot per receive.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
