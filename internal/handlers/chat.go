package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
	"chat-sync/internal/repositories"
	"chat-sync/internal/session"
)

const defaultGlobalHistoryLimit = 50

// ChatHandler serves direct-conversation and global-feed endpoints. Every
// mutation goes to the store first, then out on the change-feed so connected
// sessions fold it without a reload.
type ChatHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	feeds         realtime.FeedSource
	typingRepo    repositories.TypingRepository
	reporter      *session.Reporter
	historyLimit  int
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	feeds realtime.FeedSource,
	typingRepo repositories.TypingRepository,
	reporter *session.Reporter,
	historyLimit int,
) *ChatHandler {
	if historyLimit <= 0 {
		historyLimit = defaultGlobalHistoryLimit
	}
	return &ChatHandler{
		conversations: conversations,
		messages:      messages,
		feeds:         feeds,
		typingRepo:    typingRepo,
		reporter:      reporter,
		historyLimit:  historyLimit,
	}
}

// ListConversations returns the conversations visible to the authenticated user.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := c.GetString("userID")

	conversations, err := h.conversations.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// StartConversation creates or returns the existing conversation with a friend.
func (h *ChatHandler) StartConversation(c *gin.Context) {
	var req struct {
		FriendID string `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if userID == req.FriendID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
		return
	}

	conversation, err := h.conversations.CreateOrGetConversation(c.Request.Context(), userID, req.FriendID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conversation.ID})
}

// GetConversationMessages returns the conversation history in chronological order.
func (h *ChatHandler) GetConversationMessages(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.GetString("userID")

	member, err := h.conversations.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	msgs, err := h.messages.ListConversationMessages(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostConversationMessage stores a message and pushes it on the change-feed.
func (h *ChatHandler) PostConversationMessage(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.GetString("userID")

	conversation, err := h.conversations.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}
	if !conversation.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	msg, ok := buildMessage(c)
	if !ok {
		return
	}
	msg.ConversationID = &conversationID

	stored, err := h.messages.InsertMessage(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.publishMessage(c, realtime.ChangeInsert, stored)
	c.JSON(http.StatusCreated, stored)
}

// GetGlobalMessages returns the most recent global-feed messages in
// chronological order.
func (h *ChatHandler) GetGlobalMessages(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	msgs, err := h.messages.ListGlobalMessages(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostGlobalMessage stores a global-feed message and pushes it on the change-feed.
func (h *ChatHandler) PostGlobalMessage(c *gin.Context) {
	msg, ok := buildMessage(c)
	if !ok {
		return
	}

	stored, err := h.messages.InsertMessage(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.publishMessage(c, realtime.ChangeInsert, stored)
	c.JSON(http.StatusCreated, stored)
}

// EditMessage replaces the content of the caller's own message and pushes an
// update event.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is empty"})
		return
	}

	msg, err := h.messages.EditMessage(c.Request.Context(), messageID, userID, content)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	h.publishMessage(c, realtime.ChangeUpdate, msg)
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage soft-deletes the caller's own message and pushes a delete event.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	msg, err := h.messages.SoftDeleteMessage(c.Request.Context(), messageID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	h.publishMessage(c, realtime.ChangeDelete, msg)
	c.Status(http.StatusNoContent)
}

// SetConversationTyping records and broadcasts the caller's typing state.
func (h *ChatHandler) SetConversationTyping(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	setTyping(c, models.ConversationScope(conversationID), h.typingRepo, h.feeds)
}

// SetGlobalTyping records and broadcasts typing on the global feed.
func (h *ChatHandler) SetGlobalTyping(c *gin.Context) {
	setTyping(c, models.GlobalScope(), h.typingRepo, h.feeds)
}

// MarkMessageRead records a read receipt for the caller. Fire-and-forget by
// contract, so the endpoint always answers 202.
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	var req struct {
		ScopeKind models.ScopeKind `json:"scope_kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ScopeKind == "" {
		req.ScopeKind = models.ScopeGlobal
	}

	h.reporter.MarkRead(messageID, req.ScopeKind, userID)
	c.Status(http.StatusAccepted)
}

// buildMessage binds and validates the shared message payload.
func buildMessage(c *gin.Context) (models.Message, bool) {
	var req struct {
		Content     string                `json:"content" binding:"required"`
		Type        models.MessageType    `json:"message_type"`
		ReplyToID   *string               `json:"reply_to_id"`
		Attachments models.AttachmentList `json:"attachments"`
		Metadata    models.Metadata       `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Message{}, false
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is empty"})
		return models.Message{}, false
	}

	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageText
	}

	profile, _ := c.Get("profile")
	senderName := c.GetString("userID")
	if p, ok := profile.(models.UserProfile); ok {
		senderName = p.Name()
	}

	return models.Message{
		ID:          uuid.NewString(),
		SenderID:    c.GetString("userID"),
		SenderName:  senderName,
		Content:     content,
		Type:        msgType,
		ReplyToID:   req.ReplyToID,
		Status:      models.DeliverySent,
		Attachments: req.Attachments,
		Metadata:    req.Metadata,
	}, true
}

// publishMessage pushes the event on the change-feed. The row is already
// durable, so a publish failure is not surfaced to the caller.
func (h *ChatHandler) publishMessage(c *gin.Context, kind realtime.ChangeKind, msg models.Message) {
	_ = h.feeds.PublishMessageEvent(c.Request.Context(), realtime.MessageEvent{Kind: kind, Message: msg})
}

func setTyping(c *gin.Context, scope models.Scope, typingRepo repositories.TypingRepository, feeds realtime.FeedSource) {
	var req struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	userName := userID
	if profile, ok := c.Get("profile"); ok {
		if p, ok := profile.(models.UserProfile); ok {
			userName = p.Name()
		}
	}

	indicator := models.TypingIndicator{
		UserID:    userID,
		UserName:  userName,
		IsTyping:  req.IsTyping,
		LastTyped: timeNow(),
	}
	switch scope.Kind {
	case models.ScopeConversation:
		id := scope.ID
		indicator.ConversationID = &id
	case models.ScopeGroup:
		id := scope.ID
		indicator.GroupID = &id
	}

	if err := typingRepo.UpsertTyping(c.Request.Context(), indicator); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record typing state"})
		return
	}
	_ = feeds.PublishTypingEvent(c.Request.Context(), realtime.TypingEvent{
		Kind:      realtime.ChangeUpdate,
		Indicator: indicator,
	})

	c.Status(http.StatusNoContent)
}
