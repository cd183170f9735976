package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/repositories"
)

// Reporter writes read receipts as detached fire-and-forget tasks. Failures
// are logged and counted, never returned: read state is a write-only side
// channel and must not disturb the session.
type Reporter struct {
	receipts repositories.ReceiptRepository
	log      *zap.Logger
}

// NewReporter constructs a Reporter.
func NewReporter(receipts repositories.ReceiptRepository, log *zap.Logger) *Reporter {
	return &Reporter{receipts: receipts, log: log}
}

// MarkRead records that the reader has seen the message. Idempotent; safe to
// call repeatedly for the same message.
func (r *Reporter) MarkRead(messageID string, scopeKind models.ScopeKind, readerID string) {
	if r == nil || r.receipts == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := r.receipts.UpsertRead(ctx, models.MessageRead{
			MessageID: messageID,
			ScopeKind: scopeKind,
			ReaderID:  readerID,
			ReadAt:    time.Now().UTC(),
		})
		if err != nil {
			observability.IncWriteFailure("read_receipt")
			r.log.Warn("read receipt write failed",
				zap.String("message_id", messageID),
				zap.String("reader_id", readerID),
				zap.Error(err))
		}
	}()
}
