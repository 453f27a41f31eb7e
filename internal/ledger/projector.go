package ledger

import (
	"github.com/fintrack/ledger-core/internal/models"
)

// Project computes the additive balance delta for a transaction. Savings is
// never touched here: none of the four transaction kinds owns that field.
func Project(tx models.Transaction) models.BalanceDelta {
	var delta models.BalanceDelta

	switch tx.Type {
	case models.TypeIncome:
		delta.TotalBalance = tx.Amount
		delta.Income = tx.Amount
	case models.TypeExpense:
		delta.TotalBalance = tx.Amount.Neg()
		delta.Expenses = tx.Amount
	case models.TypeTransferSent:
		delta.TotalBalance = tx.Amount.Neg()
	case models.TypeTransferReceived:
		delta.TotalBalance = tx.Amount
	}

	return delta
}
