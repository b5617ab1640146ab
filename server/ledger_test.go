// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"testing"

	"github.com/go-taskboard/taskboard"
)

func TestLedgerCreditAndRead(t *testing.T) {
	l := newLedger()
	l.credit(1, 500, taskboard.EntryDeposit, 0)

	snap := l.read(1)
	if snap.Balance != 500 {
		t.Errorf("balance = %d, want 500", snap.Balance)
	}
	if len(snap.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(snap.History))
	}
	if snap.History[0].Kind != taskboard.EntryDeposit || snap.History[0].Amount != 500 {
		t.Errorf("unexpected entry: %+v", snap.History[0])
	}
}

func TestLedgerDebitInsufficient(t *testing.T) {
	l := newLedger()
	l.credit(1, 100, taskboard.EntryDeposit, 0)

	err := l.debit(1, 101, taskboard.EntryFreeze, 9)
	if !errors.Is(err, taskboard.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	// A failed debit must change nothing.
	snap := l.read(1)
	if snap.Balance != 100 {
		t.Errorf("balance = %d, want 100", snap.Balance)
	}
	if len(snap.History) != 1 {
		t.Errorf("history length = %d, want 1", len(snap.History))
	}
}

func TestLedgerDebitExactBalance(t *testing.T) {
	l := newLedger()
	l.credit(1, 100, taskboard.EntryDeposit, 0)

	if err := l.debit(1, 100, taskboard.EntryFreeze, 3); err != nil {
		t.Fatalf("debit to zero should succeed, got %v", err)
	}
	if got := l.balance(1); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestLedgerBalanceEqualsSignedHistory(t *testing.T) {
	l := newLedger()
	l.credit(1, 1000, taskboard.EntryDeposit, 0)
	_ = l.debit(1, 300, taskboard.EntryFreeze, 1)
	l.credit(1, 300, taskboard.EntryReturn, 1)
	_ = l.debit(1, 150, taskboard.EntryFreeze, 2)
	l.mark(1, 50, taskboard.EntryWithdrawStub)

	snap := l.read(1)
	var sum int64
	for _, e := range snap.History {
		sum += e.Signed()
	}
	if snap.Balance != sum {
		t.Errorf("balance %d != signed history sum %d", snap.Balance, sum)
	}
}

func TestLedgerReadUnknownUser(t *testing.T) {
	l := newLedger()
	snap := l.read(99)
	if snap.Balance != 0 || len(snap.History) != 0 {
		t.Errorf("unknown user should read empty, got %+v", snap)
	}
	if _, ok := l.accounts[99]; ok {
		t.Error("read must not create the account")
	}
}

func TestLedgerReadReturnsCopy(t *testing.T) {
	l := newLedger()
	l.credit(1, 10, taskboard.EntryDeposit, 0)

	snap := l.read(1)
	snap.History[0].Amount = 9999

	if l.read(1).History[0].Amount != 10 {
		t.Error("mutating a snapshot must not reach the ledger")
	}
}

func TestLedgerEnsure(t *testing.T) {
	l := newLedger()
	if !l.ensure(1) {
		t.Error("first ensure should report creation")
	}
	if l.ensure(1) {
		t.Error("second ensure should not report creation")
	}
}
