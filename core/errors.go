package core

import "errors"

// Typed failures reported synchronously to the immediate caller.
// Callers match with errors.Is; none of these are retried internally.
var (
	// ErrInvalidAmount signals a non-positive amount passed to a debit or spend.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientPoints signals a debit exceeding the available balance.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInconsistentTransaction signals a transaction that failed consistency
	// validation and must be rejected before commit.
	ErrInconsistentTransaction = errors.New("inconsistent transaction")
)
