package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionCompleted is published after a single submission commits.
type TransactionCompleted struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// TransferCompleted is published after both legs of a transfer commit.
type TransferCompleted struct {
	TransferGroupID string          `json:"transfer_group_id"`
	SenderID        string          `json:"sender_id"`
	ReceiverID      string          `json:"receiver_id"`
	Amount          decimal.Decimal `json:"amount"`
	OccurredAt      time.Time       `json:"occurred_at"`
}
