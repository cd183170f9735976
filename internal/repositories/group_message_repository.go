package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

const groupMessageColumns = `id, group_id, sender_id, sender_name, content, message_type,
    reply_to_id, edited, deleted, forwarded, pinned, status, attachments, metadata,
    created_at, updated_at, edited_at, deleted_at`

// GroupMessageRepository defines persistence for group messages.
type GroupMessageRepository interface {
	InsertGroupMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListGroupMessages(ctx context.Context, groupID string) ([]models.Message, error)
	GetGroupMessage(ctx context.Context, messageID string) (models.Message, error)
	SoftDeleteGroupMessage(ctx context.Context, messageID, senderID string) (models.Message, error)
}

// GroupMessageRepo is a sqlx-backed GroupMessageRepository.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// InsertGroupMessage stores a message in a group.
func (r *GroupMessageRepo) InsertGroupMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var stored models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO group_messages
        (id, group_id, sender_id, sender_name, content, message_type, reply_to_id,
         forwarded, status, attachments, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+groupMessageColumns,
		msg.ID, msg.GroupID, msg.SenderID, msg.SenderName, msg.Content, msg.Type,
		msg.ReplyToID, msg.Forwarded, msg.Status, msg.Attachments, msg.Metadata).
		StructScan(&stored)
	return stored, err
}

// ListGroupMessages returns non-deleted group messages in chronological order.
func (r *GroupMessageRepo) ListGroupMessages(ctx context.Context, groupID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+groupMessageColumns+` FROM group_messages
        WHERE group_id=$1 AND deleted = FALSE
        ORDER BY created_at ASC`, groupID)
	return msgs, err
}

// GetGroupMessage retrieves a single group message.
func (r *GroupMessageRepo) GetGroupMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+groupMessageColumns+` FROM group_messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteGroupMessage flags the sender's own group message as deleted.
func (r *GroupMessageRepo) SoftDeleteGroupMessage(ctx context.Context, messageID, senderID string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE group_messages
        SET deleted=TRUE, deleted_at=$3, updated_at=$3
        WHERE id=$1 AND sender_id=$2
        RETURNING `+groupMessageColumns, messageID, senderID, time.Now().UTC()).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
