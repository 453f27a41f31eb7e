package models

import (
	"errors"
	"fmt"
)

// ErrorCode partitions ledger failures by how the caller should react.
type ErrorCode string

const (
	// CodeValidation marks user-correctable input problems. Never retried.
	CodeValidation ErrorCode = "validation"
	// CodeInsufficientFunds marks a transfer the sender cannot cover. Never retried.
	CodeInsufficientFunds ErrorCode = "insufficient_funds"
	// CodeNotFound marks a read for a user with no balance record.
	CodeNotFound ErrorCode = "not_found"
	// CodeTransientContention marks concurrent-writer conflicts that survived
	// the engine's internal retry budget. Safe for the caller to retry.
	CodeTransientContention ErrorCode = "transient_contention"
	// CodeStorageFailure marks an unavailable durability layer. Fatal to the call.
	CodeStorageFailure ErrorCode = "storage_failure"
)

// LedgerError is a structured domain error with a code, the offending field
// when one exists, and a human-readable message.
type LedgerError struct {
	Code    ErrorCode
	Field   string
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// NewValidationError reports a rejected draft with the field that failed.
func NewValidationError(field, message string) error {
	return &LedgerError{Code: CodeValidation, Field: field, Message: message}
}

// NewInsufficientFundsError reports a transfer the sender cannot cover.
func NewInsufficientFundsError(userID string) error {
	return &LedgerError{Code: CodeInsufficientFunds, Field: "amount", Message: fmt.Sprintf("balance of user %s cannot cover the transfer", userID)}
}

// NewNotFoundError reports a read for a user without a balance record.
func NewNotFoundError(userID string) error {
	return &LedgerError{Code: CodeNotFound, Message: fmt.Sprintf("no balance record for user %s", userID)}
}

// NewContentionError reports retry-budget exhaustion on a contended record.
func NewContentionError(userID string, attempts int) error {
	return &LedgerError{Code: CodeTransientContention, Message: fmt.Sprintf("balance of user %s still contended after %d attempts", userID, attempts)}
}

// NewStorageError wraps a durability-layer failure.
func NewStorageError(err error) error {
	return &LedgerError{Code: CodeStorageFailure, Message: "ledger store unavailable", Err: err}
}

// ErrVersionConflict is returned by stores when a balance write lost the race
// against a concurrent writer. The engine retries it; it never reaches callers.
var ErrVersionConflict = errors.New("balance record version conflict")

// CodeOf extracts the ledger error code from err, or "" when err is not a
// LedgerError.
func CodeOf(err error) ErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
