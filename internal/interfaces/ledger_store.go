package interfaces

import (
	"context"

	"github.com/fintrack/ledger-core/internal/models"
)

// BalanceUpdate is one version-checked balance write inside an atomic batch.
// Record carries the desired new aggregate state; ExpectedVersion is the
// version the writer read before projecting. ExpectedVersion zero means the
// record must not exist yet and is inserted.
//
// The store stamps Record's UpdatedAt and bumps its Version inside the same
// write that persists the aggregates.
type BalanceUpdate struct {
	Record          models.BalanceRecord
	ExpectedVersion int64
}

// LedgerStore is durable keyed storage for balance records plus the
// append-only transaction log.
type LedgerStore interface {
	// GetBalance returns the balance record for userID, or a not-found
	// ledger error when the user has no record yet.
	GetBalance(ctx context.Context, userID string) (models.BalanceRecord, error)

	// ListTransactions returns userID's log entries ordered by created_at
	// descending, windowed by page.
	ListTransactions(ctx context.Context, userID string, page models.Pagination) ([]models.Transaction, error)

	// GetTransactionByKey looks up a previously stored transaction by its
	// idempotency key. ok is false when the key has never been seen.
	GetTransactionByKey(ctx context.Context, idempotencyKey string) (models.Transaction, bool, error)

	// GetTransferPair returns the rows sharing a transfer group id.
	GetTransferPair(ctx context.Context, transferGroupID string) ([]models.Transaction, error)

	// ApplyAtomic commits every balance update and appends every transaction
	// row as one unit: all writes land or none do. A stale ExpectedVersion
	// on any update fails the whole batch with models.ErrVersionConflict.
	ApplyAtomic(ctx context.Context, updates []BalanceUpdate, txs []models.Transaction) error
}
