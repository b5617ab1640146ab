// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"time"

	"github.com/go-taskboard/taskboard"
)

// account is one user's coins plus the append-only audit trail behind them.
// The cached balance is maintained incrementally; it always equals the sum
// of signed history entries since the account was created.
type account struct {
	balance int64
	history []taskboard.LedgerEntry
}

// ledger owns all money movement. It carries no lock of its own: every call
// must happen under the engine mutex, so that a debit or credit is atomic
// with the task state change that caused it.
type ledger struct {
	accounts map[int64]*account
	now      func() time.Time
}

func newLedger() *ledger {
	return &ledger{
		accounts: make(map[int64]*account),
		now:      time.Now,
	}
}

// ensure creates the account if it does not exist yet and reports whether it
// did. New accounts start at zero; any starting grant is a separate credit
// so the history stays the full audit trail.
func (l *ledger) ensure(userID int64) bool {
	if _, ok := l.accounts[userID]; ok {
		return false
	}
	l.accounts[userID] = &account{}
	return true
}

func (l *ledger) balance(userID int64) int64 {
	if acct, ok := l.accounts[userID]; ok {
		return acct.balance
	}
	return 0
}

// debit removes amount coins from the user and appends an entry of the given
// kind. It fails with InsufficientFunds when the balance would go negative
// and in that case changes nothing.
func (l *ledger) debit(userID, amount int64, kind taskboard.EntryKind, taskID int64) error {
	acct := l.account(userID)
	if acct.balance < amount {
		return taskboard.ErrInsufficientFunds
	}
	acct.balance -= amount
	acct.history = append(acct.history, taskboard.LedgerEntry{
		Kind:   kind,
		Amount: amount,
		At:     l.now().UTC(),
		TaskID: taskID,
	})
	return nil
}

// credit adds amount coins to the user and appends an entry of the given kind.
func (l *ledger) credit(userID, amount int64, kind taskboard.EntryKind, taskID int64) {
	acct := l.account(userID)
	acct.balance += amount
	acct.history = append(acct.history, taskboard.LedgerEntry{
		Kind:   kind,
		Amount: amount,
		At:     l.now().UTC(),
		TaskID: taskID,
	})
}

// mark appends a zero-effect audit entry without touching the balance.
func (l *ledger) mark(userID, amount int64, kind taskboard.EntryKind) {
	acct := l.account(userID)
	acct.history = append(acct.history, taskboard.LedgerEntry{
		Kind:   kind,
		Amount: amount,
		At:     l.now().UTC(),
	})
}

// read returns a snapshot of the user's balance and history. It never
// creates the account, so it is safe under a read lock; an unknown user
// reads as an empty balance. The history slice is a copy; entries
// themselves are immutable.
func (l *ledger) read(userID int64) taskboard.Balance {
	acct, ok := l.accounts[userID]
	if !ok {
		return taskboard.Balance{History: []taskboard.LedgerEntry{}}
	}
	history := make([]taskboard.LedgerEntry, len(acct.history))
	copy(history, acct.history)
	return taskboard.Balance{Balance: acct.balance, History: history}
}

func (l *ledger) account(userID int64) *account {
	acct, ok := l.accounts[userID]
	if !ok {
		acct = &account{}
		l.accounts[userID] = acct
	}
	return acct
}
