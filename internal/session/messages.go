package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/realtime"
)

var (
	// ErrEmptyMessage rejects whitespace-only sends before any write happens.
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrNoProfile means the session has no resolved user to send as.
	ErrNoProfile = errors.New("current user not resolved")

	errFeedClosed = errors.New("change feed closed")
)

// applyMessageEvent folds one change-feed event into the message list.
// Inserts are idempotent by message id, so a send that was already applied
// locally is a no-op when its own event comes back around on the feed.
func (s *Session) applyMessageEvent(epoch uint64, event realtime.MessageEvent) {
	changed := s.withEpoch(epoch, func() {
		switch event.Kind {
		case realtime.ChangeInsert:
			s.insertMessageLocked(event.Message)
		case realtime.ChangeUpdate:
			s.updateMessageLocked(event.Message)
		case realtime.ChangeDelete:
			s.removeMessageLocked(event.Message.ID)
		}
	})
	if changed {
		s.notify()
	}
}

func (s *Session) insertMessageLocked(msg models.Message) {
	for _, existing := range s.messages {
		if existing.ID == msg.ID {
			return
		}
	}
	s.messages = append(s.messages, msg)
	s.reportInboundLocked([]models.Message{msg})
}

// updateMessageLocked replaces the message in place. Feed payloads built from
// partial rows can lack the original timestamp; the known one is preserved so
// ordering stays stable across edits.
func (s *Session) updateMessageLocked(msg models.Message) {
	for i, existing := range s.messages {
		if existing.ID != msg.ID {
			continue
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = existing.CreatedAt
		}
		s.messages[i] = msg
		return
	}
}

func (s *Session) removeMessageLocked(messageID string) {
	for i, existing := range s.messages {
		if existing.ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// Send validates, persists and broadcasts an outbound message, then applies it
// to local state immediately rather than waiting for the feed echo.
func (s *Session) Send(ctx context.Context, content string, opts models.SendOptions) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	epoch := s.epoch
	scope := s.scope
	profile := s.profile
	s.mu.Unlock()

	if profile == nil {
		return models.Message{}, ErrNoProfile
	}

	msgType := opts.Type
	if msgType == "" {
		msgType = models.MessageText
	}
	msg := models.Message{
		ID:          uuid.NewString(),
		SenderID:    profile.UserID,
		SenderName:  profile.Name(),
		Content:     content,
		Type:        msgType,
		ReplyToID:   opts.ReplyToID,
		Status:      models.DeliverySent,
		Attachments: opts.Attachments,
		Metadata:    opts.Metadata,
	}

	var (
		stored models.Message
		err    error
	)
	switch scope.Kind {
	case models.ScopeGroup:
		groupID := scope.ID
		msg.GroupID = &groupID
		stored, err = s.deps.GroupMessages.InsertGroupMessage(ctx, msg)
	case models.ScopeConversation:
		conversationID := scope.ID
		msg.ConversationID = &conversationID
		stored, err = s.deps.Messages.InsertMessage(ctx, msg)
	default:
		stored, err = s.deps.Messages.InsertMessage(ctx, msg)
	}
	if err != nil {
		observability.IncWriteFailure("message_send")
		s.deps.Log.Error("message send failed", zap.String("scope", scope.Key()), zap.Error(err))
		if s.withEpoch(epoch, func() { s.errMsg = "failed to send message" }) {
			s.notify()
		}
		return models.Message{}, err
	}

	event := realtime.MessageEvent{Kind: realtime.ChangeInsert, Message: stored}
	if err := s.deps.Feeds.PublishMessageEvent(ctx, event); err != nil {
		// The row is durable; peers catch up on their next history load.
		s.deps.Log.Warn("message event publish failed", zap.String("message_id", stored.ID), zap.Error(err))
	}

	s.applyMessageEvent(epoch, event)
	return stored, nil
}

// Refresh reloads history from the store, replacing the local message list.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.epoch
	scope := s.scope
	s.mu.Unlock()

	history, err := s.loadHistory(ctx, scope)
	if err != nil {
		if s.withEpoch(epoch, func() { s.loadErr = "failed to load messages" }) {
			s.notify()
		}
		return err
	}

	if s.withEpoch(epoch, func() {
		s.messages = history
		s.loadErr = ""
		s.reportInboundLocked(history)
	}) {
		s.notify()
	}
	return nil
}

// detachedWriteTimeout bounds fire-and-forget writes that outlive the request.
const detachedWriteTimeout = 5 * time.Second
