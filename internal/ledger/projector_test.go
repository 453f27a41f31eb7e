package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fintrack/ledger-core/internal/models"
)

func TestProjectDeltaPerType(t *testing.T) {
	amount := decimal.RequireFromString("42.50")

	tests := []struct {
		txType       models.TransactionType
		totalBalance string
		income       string
		expenses     string
	}{
		{models.TypeIncome, "42.5", "42.5", "0"},
		{models.TypeExpense, "-42.5", "0", "42.5"},
		{models.TypeTransferSent, "-42.5", "0", "0"},
		{models.TypeTransferReceived, "42.5", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			delta := Project(models.Transaction{Type: tt.txType, Amount: amount})

			assert.True(t, delta.TotalBalance.Equal(decimal.RequireFromString(tt.totalBalance)),
				"total_balance got %s", delta.TotalBalance)
			assert.True(t, delta.Income.Equal(decimal.RequireFromString(tt.income)),
				"income got %s", delta.Income)
			assert.True(t, delta.Expenses.Equal(decimal.RequireFromString(tt.expenses)),
				"expenses got %s", delta.Expenses)
			assert.True(t, delta.Savings.IsZero(), "savings must never be projected")
		})
	}
}

func TestApplyIsAdditive(t *testing.T) {
	record := models.NewBalanceRecord("u1")
	record = record.Apply(Project(models.Transaction{Type: models.TypeIncome, Amount: decimal.NewFromInt(100)}))
	record = record.Apply(Project(models.Transaction{Type: models.TypeExpense, Amount: decimal.NewFromInt(30)}))

	assert.True(t, record.TotalBalance.Equal(decimal.NewFromInt(70)))
	assert.True(t, record.Income.Equal(decimal.NewFromInt(100)))
	assert.True(t, record.Expenses.Equal(decimal.NewFromInt(30)))
	assert.True(t, record.Savings.IsZero())
}
