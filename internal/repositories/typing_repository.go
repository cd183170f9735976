package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

// TypingRepository persists ephemeral typing indicators. Most recent write per
// (scope, user) wins; no other durability guarantee applies.
type TypingRepository interface {
	UpsertTyping(ctx context.Context, indicator models.TypingIndicator) error
	ListTyping(ctx context.Context, scope models.Scope) ([]models.TypingIndicator, error)
}

// TypingRepo is a sqlx-backed TypingRepository.
type TypingRepo struct {
	db *sqlx.DB
}

// NewTypingRepo constructs TypingRepo.
func NewTypingRepo(db *sqlx.DB) *TypingRepo {
	return &TypingRepo{db: db}
}

// UpsertTyping writes the indicator keyed by (scope, user).
func (r *TypingRepo) UpsertTyping(ctx context.Context, indicator models.TypingIndicator) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO typing_indicators
        (conversation_id, group_id, scope_key, user_id, user_name, is_typing, last_typed)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (scope_key, user_id) DO UPDATE
        SET is_typing = EXCLUDED.is_typing, last_typed = EXCLUDED.last_typed, user_name = EXCLUDED.user_name`,
		indicator.ConversationID, indicator.GroupID, indicator.Scope().Key(),
		indicator.UserID, indicator.UserName, indicator.IsTyping, indicator.LastTyped)
	return err
}

// ListTyping returns the active indicators for a scope.
func (r *TypingRepo) ListTyping(ctx context.Context, scope models.Scope) ([]models.TypingIndicator, error) {
	var indicators []models.TypingIndicator
	err := r.db.SelectContext(ctx, &indicators, `SELECT conversation_id, group_id, user_id, user_name, is_typing, last_typed
        FROM typing_indicators
        WHERE scope_key=$1 AND is_typing = TRUE`, scope.Key())
	return indicators, err
}
