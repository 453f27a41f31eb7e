package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies how a transaction moves money for its owner.
type TransactionType string

const (
	TypeIncome           TransactionType = "income"
	TypeExpense          TransactionType = "expense"
	TypeTransferSent     TransactionType = "transfer_sent"
	TypeTransferReceived TransactionType = "transfer_received"
)

// Valid reports whether t is one of the four supported transaction kinds.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransferSent, TypeTransferReceived:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a transaction row.
//
// Transitions: pending -> completed or pending -> failed, both terminal.
// A row created directly as completed never passes through pending.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Valid reports whether s is one of the three supported statuses.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a row in status s may move to next.
// Only pending rows accept a transition; completed and failed are terminal.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s != StatusPending {
		return false
	}
	return next == StatusCompleted || next == StatusFailed
}

// Transaction is one immutable entry in the append-only transaction log.
// Once written with a terminal status it is never modified; status is the
// only field that may change, and only while the row is still pending.
type Transaction struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	Description     string            `json:"description"`
	FromAccount     string            `json:"from_account"`
	ToAccount       string            `json:"to_account"`
	Status          TransactionStatus `json:"status"`
	TransferGroupID string            `json:"transfer_group_id,omitempty"`
	IdempotencyKey  string            `json:"-"`
	CreatedAt       time.Time         `json:"created_at"`
}

// TransactionDraft is a caller-supplied transaction before validation.
// Zero-valued optional fields are filled with defaults by the validator:
// status becomes completed, the free-text labels stay empty strings.
type TransactionDraft struct {
	Type           TransactionType   `json:"type"`
	Amount         decimal.Decimal   `json:"amount"`
	Description    string            `json:"description"`
	FromAccount    string            `json:"from_account"`
	ToAccount      string            `json:"to_account"`
	Status         TransactionStatus `json:"status"`
	IdempotencyKey string            `json:"-"`
}
