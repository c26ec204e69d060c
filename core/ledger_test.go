package core

import (
	"errors"
	"testing"
)

func TestLedgerCreditDebit(t *testing.T) {
	var l Ledger
	if err := l.Credit(100); err != nil {
		t.Fatal(err)
	}
	if l.Available() != 100 {
		t.Fatalf("available = %d, want 100", l.Available())
	}
	if err := l.Debit(30); err != nil {
		t.Fatal(err)
	}
	if l.TotalEarned != 100 || l.TotalUsed != 30 || l.Available() != 70 {
		t.Fatalf("unexpected ledger state: %+v", l)
	}
}

func TestLedgerCreditNonPositiveIsNoop(t *testing.T) {
	l := Ledger{TotalEarned: 50}
	if err := l.Credit(0); err != nil {
		t.Fatal(err)
	}
	if err := l.Credit(-10); err != nil {
		t.Fatal(err)
	}
	if l.TotalEarned != 50 {
		t.Fatalf("earned = %d, want 50", l.TotalEarned)
	}
}

func TestLedgerDebitFailuresLeaveStateUnchanged(t *testing.T) {
	l := Ledger{TotalEarned: 50}

	if err := l.Debit(100); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}
	if err := l.Debit(0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if err := l.Debit(-10); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if l.TotalEarned != 50 || l.TotalUsed != 0 {
		t.Fatalf("ledger mutated by failed debits: %+v", l)
	}
}

func TestLedgerBalanceInvariant(t *testing.T) {
	// arbitrary credit/debit sequence keeps available >= 0 after every call
	var l Ledger
	ops := []int64{10, -5, 3, -20, 7, -1, -100, 50, -40}
	for _, op := range ops {
		if op >= 0 {
			_ = l.Credit(op)
		} else {
			_ = l.Debit(-op)
		}
		if l.Available() < 0 {
			t.Fatalf("available went negative after op %d: %+v", op, l)
		}
		if l.TotalUsed > l.TotalEarned {
			t.Fatalf("used exceeds earned after op %d: %+v", op, l)
		}
	}
}

func TestLedgerCanAfford(t *testing.T) {
	l := Ledger{TotalEarned: 100, TotalUsed: 60}
	if !l.CanAfford(40) {
		t.Fatal("40 should be affordable")
	}
	if l.CanAfford(41) {
		t.Fatal("41 should not be affordable")
	}
	if !l.CanAfford(0) || !l.CanAfford(-5) {
		t.Fatal("non-positive amounts are always affordable")
	}
}
