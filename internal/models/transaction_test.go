package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionTypeValid(t *testing.T) {
	for _, valid := range []TransactionType{TypeIncome, TypeExpense, TypeTransferSent, TypeTransferReceived} {
		assert.True(t, valid.Valid(), "%s", valid)
	}
	assert.False(t, TransactionType("refund").Valid())
	assert.False(t, TransactionType("").Valid())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusPending.CanTransitionTo(StatusFailed))

	// Terminal states accept nothing, including a hop back to pending.
	for _, terminal := range []TransactionStatus{StatusCompleted, StatusFailed} {
		for _, next := range []TransactionStatus{StatusPending, StatusCompleted, StatusFailed} {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}

	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
	assert.False(t, StatusPending.CanTransitionTo("archived"))
}

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{}.Normalize()
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = Pagination{Limit: 10_000, Offset: -3}.Normalize()
	assert.Equal(t, 200, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = Pagination{Limit: 25, Offset: 75}.Normalize()
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 75, p.Offset)
}
