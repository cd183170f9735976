package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/realtime"
)

// applyTypingEvent folds one typing event into the per-user indicator map.
// The session's own user is never shown as typing to itself.
func (s *Session) applyTypingEvent(epoch uint64, event realtime.TypingEvent) {
	indicator := event.Indicator
	changed := s.withEpoch(epoch, func() {
		if s.profile != nil && indicator.UserID == s.profile.UserID {
			return
		}
		if event.Kind == realtime.ChangeDelete || !indicator.IsTyping {
			delete(s.typing, indicator.UserID)
			return
		}
		s.typing[indicator.UserID] = indicator
	})
	if changed {
		s.notify()
	}
}

// sweepTyping drops indicators whose last keystroke is older than the
// staleness window. Covers peers that vanish without sending a stop event.
func (s *Session) sweepTyping(epoch uint64) {
	cutoff := time.Now().Add(-s.opts.TypingStaleAfter)
	swept := false
	changed := s.withEpoch(epoch, func() {
		for userID, indicator := range s.typing {
			if indicator.LastTyped.Before(cutoff) {
				delete(s.typing, userID)
				swept = true
			}
		}
	})
	if changed && swept {
		s.notify()
	}
}

// SetTyping broadcasts the user's typing state for the active scope. The
// database write and the feed publish both run detached; typing is ephemeral
// and never worth surfacing a failure for.
func (s *Session) SetTyping(isTyping bool) {
	s.mu.Lock()
	scope := s.scope
	profile := s.profile
	closed := s.state == StateClosed
	s.mu.Unlock()

	if profile == nil || closed {
		return
	}

	indicator := models.TypingIndicator{
		UserID:    profile.UserID,
		UserName:  profile.Name(),
		IsTyping:  isTyping,
		LastTyped: time.Now().UTC(),
	}
	switch scope.Kind {
	case models.ScopeConversation:
		id := scope.ID
		indicator.ConversationID = &id
	case models.ScopeGroup:
		id := scope.ID
		indicator.GroupID = &id
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), detachedWriteTimeout)
		defer cancel()

		if s.deps.Typing != nil {
			if err := s.deps.Typing.UpsertTyping(ctx, indicator); err != nil {
				observability.IncWriteFailure("typing")
				s.deps.Log.Warn("typing upsert failed", zap.String("user_id", indicator.UserID), zap.Error(err))
			}
		}

		event := realtime.TypingEvent{Kind: realtime.ChangeUpdate, Indicator: indicator}
		if err := s.deps.Feeds.PublishTypingEvent(ctx, event); err != nil {
			s.deps.Log.Warn("typing event publish failed", zap.String("user_id", indicator.UserID), zap.Error(err))
		}
	}()
}

// TypingUsers returns the active indicators sorted by user name for stable
// presentation.
func (s *Session) TypingUsers() []models.TypingIndicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typingLocked()
}
