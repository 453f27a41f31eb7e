package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceRecord is the per-user aggregate the ledger keeps in sync with the
// transaction log. Exactly one record exists per user id; it is created
// lazily on the user's first transaction and mutated only through the engine.
//
// Version is bumped by the store on every successful write and is the
// optimistic-concurrency token: a writer that read version N may only commit
// against version N.
type BalanceRecord struct {
	UserID       string          `json:"user_id"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Savings      decimal.Decimal `json:"savings"`
	Version      int64           `json:"version"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewBalanceRecord returns a zero-initialized record for userID.
func NewBalanceRecord(userID string) BalanceRecord {
	return BalanceRecord{
		UserID:       userID,
		TotalBalance: decimal.Zero,
		Income:       decimal.Zero,
		Expenses:     decimal.Zero,
		Savings:      decimal.Zero,
	}
}

// BalanceDelta is the additive change a single transaction applies to a
// balance record. Fields a transaction type does not own stay zero.
type BalanceDelta struct {
	TotalBalance decimal.Decimal
	Income       decimal.Decimal
	Expenses     decimal.Decimal
	Savings      decimal.Decimal
}

// Apply returns a copy of r with the delta added on top of every aggregate
// field. Version and UpdatedAt are left alone; stamping them is the store's
// job inside the same atomic write.
func (r BalanceRecord) Apply(d BalanceDelta) BalanceRecord {
	out := r
	out.TotalBalance = r.TotalBalance.Add(d.TotalBalance)
	out.Income = r.Income.Add(d.Income)
	out.Expenses = r.Expenses.Add(d.Expenses)
	out.Savings = r.Savings.Add(d.Savings)
	return out
}
