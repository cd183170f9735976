// Package mocks holds testify mocks for the repository and client interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
	"chat-sync/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)

func (m *ConversationRepositoryMock) CreateOrGetConversation(ctx context.Context, userID, friendID string) (models.Conversation, error) {
	args := m.Called(ctx, userID, friendID)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

func (m *MessageRepositoryMock) InsertMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) ListConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListGlobalMessages(ctx context.Context, limit int) ([]models.Message, error) {
	args := m.Called(ctx, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) EditMessage(ctx context.Context, messageID, senderID, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID, senderID string) (models.Message, error) {
	args := m.Called(ctx, messageID, senderID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.GroupMessageRepository = (*GroupMessageRepositoryMock)(nil)

func (m *GroupMessageRepositoryMock) InsertGroupMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *GroupMessageRepositoryMock) ListGroupMessages(ctx context.Context, groupID string) ([]models.Message, error) {
	args := m.Called(ctx, groupID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *GroupMessageRepositoryMock) GetGroupMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) SoftDeleteGroupMessage(ctx context.Context, messageID, senderID string) (models.Message, error) {
	args := m.Called(ctx, messageID, senderID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type GroupRepositoryMock struct {
	mock.Mock
}

var _ repositories.GroupRepository = (*GroupRepositoryMock)(nil)

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, ownerID, name string, memberIDs []string) (models.Group, error) {
	args := m.Called(ctx, ownerID, name, memberIDs)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

type TypingRepositoryMock struct {
	mock.Mock
}

var _ repositories.TypingRepository = (*TypingRepositoryMock)(nil)

func (m *TypingRepositoryMock) UpsertTyping(ctx context.Context, indicator models.TypingIndicator) error {
	args := m.Called(ctx, indicator)
	return args.Error(0)
}

func (m *TypingRepositoryMock) ListTyping(ctx context.Context, scope models.Scope) ([]models.TypingIndicator, error) {
	args := m.Called(ctx, scope)
	var indicators []models.TypingIndicator
	if val := args.Get(0); val != nil {
		indicators = val.([]models.TypingIndicator)
	}
	return indicators, args.Error(1)
}

type ReceiptRepositoryMock struct {
	mock.Mock
}

var _ repositories.ReceiptRepository = (*ReceiptRepositoryMock)(nil)

func (m *ReceiptRepositoryMock) UpsertRead(ctx context.Context, receipt models.MessageRead) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

var _ repositories.ProfileRepository = (*ProfileRepositoryMock)(nil)

func (m *ProfileRepositoryMock) GetProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	args := m.Called(ctx, userID)
	var profile models.UserProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.UserProfile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) UpsertProfile(ctx context.Context, profile models.UserProfile) (models.UserProfile, error) {
	args := m.Called(ctx, profile)
	var stored models.UserProfile
	if val := args.Get(0); val != nil {
		stored = val.(models.UserProfile)
	}
	return stored, args.Error(1)
}

func (m *ProfileRepositoryMock) SetOnlineStatus(ctx context.Context, userID string, status models.PresenceStatus) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}

type FeedSourceMock struct {
	mock.Mock
}

var _ realtime.FeedSource = (*FeedSourceMock)(nil)

func (m *FeedSourceMock) SubscribeMessages(ctx context.Context, scope models.Scope) (realtime.MessageFeed, error) {
	args := m.Called(ctx, scope)
	var feed realtime.MessageFeed
	if val := args.Get(0); val != nil {
		feed = val.(realtime.MessageFeed)
	}
	return feed, args.Error(1)
}

func (m *FeedSourceMock) SubscribeTyping(ctx context.Context, scope models.Scope) (realtime.TypingFeed, error) {
	args := m.Called(ctx, scope)
	var feed realtime.TypingFeed
	if val := args.Get(0); val != nil {
		feed = val.(realtime.TypingFeed)
	}
	return feed, args.Error(1)
}

func (m *FeedSourceMock) PublishMessageEvent(ctx context.Context, event realtime.MessageEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *FeedSourceMock) PublishTypingEvent(ctx context.Context, event realtime.TypingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type IdentityProviderMock struct {
	mock.Mock
}

func (m *IdentityProviderMock) CurrentUser(ctx context.Context, token string) (models.UserProfile, error) {
	args := m.Called(ctx, token)
	var profile models.UserProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.UserProfile)
	}
	return profile, args.Error(1)
}
