package core

import "fmt"

// Ledger owns a single learner's point balance. TotalUsed never exceeds
// TotalEarned, so Available is never negative.
type Ledger struct {
	TotalEarned int64 `json:"total_earned"`
	TotalUsed   int64 `json:"total_used"`
}

// Available returns the spendable balance (earned minus used).
func (l Ledger) Available() int64 {
	return l.TotalEarned - l.TotalUsed
}

// Credit adds amount to the earned total. Non-positive amounts are a
// documented no-op, not an error.
func (l *Ledger) Credit(amount int64) error {
	if amount <= 0 {
		return nil
	}
	next, err := AddSafe(l.TotalEarned, amount)
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	l.TotalEarned = next
	return nil
}

// Debit consumes amount from the available balance. A failed debit leaves the
// ledger completely unmodified.
func (l *Ledger) Debit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit %d: %w", amount, ErrInvalidAmount)
	}
	if amount > l.Available() {
		return fmt.Errorf("debit %d with %d available: %w", amount, l.Available(), ErrInsufficientPoints)
	}
	l.TotalUsed += amount
	return nil
}

// CanAfford reports whether amount fits in the available balance.
// Non-positive amounts are always affordable.
func (l Ledger) CanAfford(amount int64) bool {
	return amount <= l.Available()
}
