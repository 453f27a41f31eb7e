package ledger

import (
	"github.com/fintrack/ledger-core/internal/models"
)

// Validate checks a draft against the transaction rules and returns the
// normalized draft: an omitted status defaults to completed. It is a pure
// function and never touches the store.
func Validate(draft models.TransactionDraft) (models.TransactionDraft, error) {
	if !draft.Amount.IsPositive() {
		return draft, models.NewValidationError("amount", "amount must be greater than zero")
	}
	if !draft.Amount.Equal(draft.Amount.Round(2)) {
		return draft, models.NewValidationError("amount", "amount must have at most two decimal places")
	}
	if !draft.Type.Valid() {
		return draft, models.NewValidationError("type", "unsupported transaction type "+string(draft.Type))
	}
	if draft.Status == "" {
		draft.Status = models.StatusCompleted
	}
	if !draft.Status.Valid() {
		return draft, models.NewValidationError("status", "unsupported transaction status "+string(draft.Status))
	}
	// failed is terminal-only: a row reaches it from pending, never at creation.
	if draft.Status == models.StatusFailed {
		return draft, models.NewValidationError("status", "a transaction cannot be created as failed")
	}
	return draft, nil
}
