package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

// ReceiptRepository is the write-only side channel for read receipts.
type ReceiptRepository interface {
	UpsertRead(ctx context.Context, receipt models.MessageRead) error
}

// ReceiptRepo is a sqlx-backed ReceiptRepository.
type ReceiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo constructs ReceiptRepo.
func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// UpsertRead records that a reader has seen a message. Repeating the same key
// refreshes read_at and is harmless.
func (r *ReceiptRepo) UpsertRead(ctx context.Context, receipt models.MessageRead) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, scope_kind, reader_id, read_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (message_id, reader_id) DO UPDATE SET read_at = EXCLUDED.read_at`,
		receipt.MessageID, receipt.ScopeKind, receipt.ReaderID, receipt.ReadAt)
	return err
}
