package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat-sync/internal/models"
)

func TestReporterMarkReadWritesReceipt(t *testing.T) {
	receipts := &fakeReceiptRepo{}
	reporter := NewReporter(receipts, zap.NewNop())

	reporter.MarkRead("m1", models.ScopeConversation, "u1")

	require.Eventually(t, func() bool {
		return len(receipts.recorded()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	receipt := receipts.recorded()[0]
	assert.Equal(t, "m1", receipt.MessageID)
	assert.Equal(t, "u1", receipt.ReaderID)
	assert.Equal(t, models.ScopeConversation, receipt.ScopeKind)
	assert.False(t, receipt.ReadAt.IsZero())
}

func TestReporterSwallowsWriteFailures(t *testing.T) {
	receipts := &fakeReceiptRepo{fail: true}
	reporter := NewReporter(receipts, zap.NewNop())

	// Must not panic or block the caller.
	reporter.MarkRead("m1", models.ScopeGlobal, "u1")
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, receipts.recorded())
}

func TestReporterNilSafe(t *testing.T) {
	var reporter *Reporter
	reporter.MarkRead("m1", models.ScopeGlobal, "u1")

	reporter = NewReporter(nil, zap.NewNop())
	reporter.MarkRead("m1", models.ScopeGlobal, "u1")
}
