package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/ledger-core/internal/interfaces"
	"github.com/fintrack/ledger-core/internal/models"
)

func record(userID, total string) models.BalanceRecord {
	r := models.NewBalanceRecord(userID)
	r.TotalBalance = decimal.RequireFromString(total)
	return r
}

func tx(id, userID string, createdAt time.Time) models.Transaction {
	return models.Transaction{
		ID:        id,
		UserID:    userID,
		Type:      models.TypeIncome,
		Amount:    decimal.NewFromInt(1),
		Status:    models.StatusCompleted,
		CreatedAt: createdAt,
	}
}

func TestGetBalanceUnknownUser(t *testing.T) {
	store := NewStore()

	_, err := store.GetBalance(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
}

func TestApplyAtomicInsertsAndStamps(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	before := time.Now().UTC()

	err := store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{{Record: record("u1", "25"), ExpectedVersion: 0}},
		[]models.Transaction{tx("t1", "u1", before)})
	require.NoError(t, err)

	got, err := store.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.TotalBalance.Equal(decimal.RequireFromString("25")))
	assert.EqualValues(t, 1, got.Version)
	assert.False(t, got.UpdatedAt.Before(before), "updated_at must be stamped by the write")
}

func TestApplyAtomicRejectsStaleVersion(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{{Record: record("u1", "10"), ExpectedVersion: 0}}, nil))

	// A writer that read version 0 lost the race against the write above.
	err := store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{{Record: record("u1", "20"), ExpectedVersion: 0}},
		[]models.Transaction{tx("t-stale", "u1", time.Now())})
	assert.ErrorIs(t, err, models.ErrVersionConflict)

	// The losing batch left nothing behind.
	got, err := store.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.TotalBalance.Equal(decimal.RequireFromString("10")))

	txs, err := store.ListTransactions(ctx, "u1", models.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestApplyAtomicBatchIsAllOrNothing(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{{Record: record("sender", "100"), ExpectedVersion: 0}}, nil))

	// Second update in the batch is stale; the first must not apply either.
	err := store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{
			{Record: record("receiver", "40"), ExpectedVersion: 0},
			{Record: record("sender", "60"), ExpectedVersion: 5},
		},
		[]models.Transaction{tx("t1", "sender", time.Now()), tx("t2", "receiver", time.Now())})
	assert.ErrorIs(t, err, models.ErrVersionConflict)

	_, err = store.GetBalance(ctx, "receiver")
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))

	sender, err := store.GetBalance(ctx, "sender")
	require.NoError(t, err)
	assert.True(t, sender.TotalBalance.Equal(decimal.RequireFromString("100")))
}

func TestListTransactionsOrderAndWindow(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var txs []models.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, tx(string(rune('a'+i)), "u1", base.Add(time.Duration(i)*time.Minute)))
	}
	txs = append(txs, tx("other", "u2", base))
	require.NoError(t, store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{{Record: record("u1", "5"), ExpectedVersion: 0}}, txs))

	got, err := store.ListTransactions(ctx, "u1", models.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e", got[0].ID)
	assert.Equal(t, "d", got[1].ID)

	got, err = store.ListTransactions(ctx, "u1", models.Pagination{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	got, err = store.ListTransactions(ctx, "u1", models.Pagination{Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIdempotencyKeyLookup(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	entry := tx("t1", "u1", time.Now())
	entry.IdempotencyKey = "the-key"
	require.NoError(t, store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{{Record: record("u1", "1"), ExpectedVersion: 0}},
		[]models.Transaction{entry}))

	got, ok, err := store.GetTransactionByKey(ctx, "the-key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t1", got.ID)

	_, ok, err = store.GetTransactionByKey(ctx, "unseen")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyAtomicRejectsReusedIdempotencyKey(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := tx("t1", "u1", time.Now())
	first.IdempotencyKey = "shared-key"
	require.NoError(t, store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{{Record: record("u1", "1"), ExpectedVersion: 0}},
		[]models.Transaction{first}))

	// A second batch reusing the key fails whole, even for a different user.
	second := tx("t2", "u2", time.Now())
	second.IdempotencyKey = "shared-key"
	err := store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{{Record: record("u2", "1"), ExpectedVersion: 0}},
		[]models.Transaction{second})
	require.Error(t, err)
	assert.Equal(t, models.CodeStorageFailure, models.CodeOf(err))

	_, err = store.GetBalance(ctx, "u2")
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))

	txs, err := store.ListTransactions(ctx, "u2", models.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestGetTransferPair(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	sent := tx("s1", "a", time.Now())
	sent.Type = models.TypeTransferSent
	sent.TransferGroupID = "group-1"
	received := tx("r1", "b", time.Now())
	received.Type = models.TypeTransferReceived
	received.TransferGroupID = "group-1"

	require.NoError(t, store.ApplyAtomic(ctx,
		[]interfaces.BalanceUpdate{
			{Record: record("a", "-1"), ExpectedVersion: 0},
			{Record: record("b", "1"), ExpectedVersion: 0},
		},
		[]models.Transaction{sent, received}))

	pair, err := store.GetTransferPair(ctx, "group-1")
	require.NoError(t, err)
	assert.Len(t, pair, 2)
}
