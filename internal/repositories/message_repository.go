package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, conversation_id, sender_id, sender_name, content, message_type,
    reply_to_id, edited, deleted, forwarded, pinned, status, attachments, metadata,
    created_at, updated_at, edited_at, deleted_at`

// MessageRepository defines persistence for direct-conversation and global messages.
type MessageRepository interface {
	InsertMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	ListGlobalMessages(ctx context.Context, limit int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	EditMessage(ctx context.Context, messageID, senderID, content string) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID, senderID string) (models.Message, error)
}

// MessageRepo is a sqlx-backed MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// InsertMessage stores a message. A nil conversation id targets the legacy
// global feed.
func (r *MessageRepo) InsertMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var stored models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages
        (id, conversation_id, sender_id, sender_name, content, message_type, reply_to_id,
         forwarded, status, attachments, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+messageColumns,
		msg.ID, msg.ConversationID, msg.SenderID, msg.SenderName, msg.Content, msg.Type,
		msg.ReplyToID, msg.Forwarded, msg.Status, msg.Attachments, msg.Metadata).
		StructScan(&stored)
	return stored, err
}

// ListConversationMessages returns non-deleted messages in chronological order.
func (r *MessageRepo) ListConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 AND deleted = FALSE
        ORDER BY created_at ASC`, conversationID)
	return msgs, err
}

// ListGlobalMessages returns the most recent global-feed messages, newest first.
// Callers reverse the slice to obtain chronological order.
func (r *MessageRepo) ListGlobalMessages(ctx context.Context, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id IS NULL AND deleted = FALSE
        ORDER BY created_at DESC
        LIMIT $1`, limit)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// EditMessage replaces the content of the sender's own message.
func (r *MessageRepo) EditMessage(ctx context.Context, messageID, senderID, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages
        SET content=$3, edited=TRUE, edited_at=$4, updated_at=$4
        WHERE id=$1 AND sender_id=$2
        RETURNING `+messageColumns, messageID, senderID, content, time.Now().UTC()).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteMessage flags the sender's own message as deleted. The row is
// retained; the flag only filters future history loads.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID, senderID string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages
        SET deleted=TRUE, deleted_at=$3, updated_at=$3
        WHERE id=$1 AND sender_id=$2
        RETURNING `+messageColumns, messageID, senderID, time.Now().UTC()).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
