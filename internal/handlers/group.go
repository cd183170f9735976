package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
	"chat-sync/internal/repositories"
)

// GroupHandler serves group chat endpoints.
type GroupHandler struct {
	groups        repositories.GroupRepository
	groupMessages repositories.GroupMessageRepository
	feeds         realtime.FeedSource
	typingRepo    repositories.TypingRepository
}

// NewGroupHandler builds a GroupHandler.
func NewGroupHandler(
	groups repositories.GroupRepository,
	groupMessages repositories.GroupMessageRepository,
	feeds realtime.FeedSource,
	typingRepo repositories.TypingRepository,
) *GroupHandler {
	return &GroupHandler{
		groups:        groups,
		groupMessages: groupMessages,
		feeds:         feeds,
		typingRepo:    typingRepo,
	}
}

// CreateGroup creates a group owned by the caller.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string   `json:"name" binding:"required"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	group, err := h.groups.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	c.JSON(http.StatusCreated, group)
}

// ListGroups returns the groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetString("userID")

	groups, err := h.groups.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroupMessages returns group history in chronological order.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("userID")

	if !h.requireMember(c, groupID, userID) {
		return
	}

	msgs, err := h.groupMessages.ListGroupMessages(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostGroupMessage stores a group message and pushes it on the change-feed.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("userID")

	if !h.requireMember(c, groupID, userID) {
		return
	}

	msg, ok := buildMessage(c)
	if !ok {
		return
	}
	msg.GroupID = &groupID

	stored, err := h.groupMessages.InsertGroupMessage(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	_ = h.feeds.PublishMessageEvent(c.Request.Context(), realtime.MessageEvent{
		Kind:    realtime.ChangeInsert,
		Message: stored,
	})
	c.JSON(http.StatusCreated, stored)
}

// DeleteGroupMessage soft-deletes the caller's own group message.
func (h *GroupHandler) DeleteGroupMessage(c *gin.Context) {
	groupID := c.Param("group_id")
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	if !h.requireMember(c, groupID, userID) {
		return
	}

	msg, err := h.groupMessages.SoftDeleteGroupMessage(c.Request.Context(), messageID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	_ = h.feeds.PublishMessageEvent(c.Request.Context(), realtime.MessageEvent{
		Kind:    realtime.ChangeDelete,
		Message: msg,
	})
	c.Status(http.StatusNoContent)
}

// SetGroupTyping records and broadcasts the caller's typing state in a group.
func (h *GroupHandler) SetGroupTyping(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("userID")

	if !h.requireMember(c, groupID, userID) {
		return
	}

	setTyping(c, models.GroupScope(groupID), h.typingRepo, h.feeds)
}

func (h *GroupHandler) requireMember(c *gin.Context, groupID, userID string) bool {
	member, err := h.groups.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return false
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a group member"})
		return false
	}
	return true
}
