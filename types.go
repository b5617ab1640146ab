// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskboard defines the domain model of the taskboard marketplace:
// tasks moving through an escrow-backed lifecycle, per-user coin balances
// with an append-only ledger, and the events published on every change.
//
// The package holds types and validation only. The state machine, the money
// movement, and the event fan-out live in the server package.
package taskboard

import (
	"time"
)

// TaskState is the lifecycle state of a task.
//
// The legal transition graph is
//
//	free -> taken -> completed -> confirmed
//
// with taken and completed additionally able to move to rejected. Both
// confirmed and rejected are terminal.
type TaskState string

const (
	// TaskStateFree means the task is posted and its price is frozen on the
	// customer's balance, waiting for a performer.
	TaskStateFree TaskState = "free"

	// TaskStateTaken means a performer claimed the task.
	TaskStateTaken TaskState = "taken"

	// TaskStateCompleted means the performer submitted a result and is
	// waiting for the customer's confirmation.
	TaskStateCompleted TaskState = "completed"

	// TaskStateConfirmed is the terminal success state; the frozen price has
	// been transferred to the performer.
	TaskStateConfirmed TaskState = "confirmed"

	// TaskStateRejected is the terminal failure state; the frozen price has
	// been returned to the customer.
	TaskStateRejected TaskState = "rejected"
)

// Valid reports whether s is a known task state.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateFree, TaskStateTaken, TaskStateCompleted, TaskStateConfirmed, TaskStateRejected:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state. No transition leaves a
// terminal state, which is what guarantees the frozen amount is released
// exactly once.
func (s TaskState) Terminal() bool {
	return s == TaskStateConfirmed || s == TaskStateRejected
}

// EntryKind is the kind of a ledger entry.
type EntryKind string

const (
	// EntryFreeze records funds removed from a customer when a task is created.
	EntryFreeze EntryKind = "freeze"

	// EntryReturn records frozen funds restored to a customer on rejection.
	EntryReturn EntryKind = "return"

	// EntryTransfer records frozen funds granted to a performer on confirmation.
	EntryTransfer EntryKind = "transfer"

	// EntryDeposit records coins added to a balance from outside the escrow
	// cycle: top-ups and the one-time starting grant.
	EntryDeposit EntryKind = "deposit"

	// EntryWithdrawStub records a withdrawal request. Payout is not
	// implemented; the entry is an audit marker only and moves no funds.
	EntryWithdrawStub EntryKind = "withdraw_stub"
)

// LedgerEntry is one immutable line of a balance's audit trail.
type LedgerEntry struct {
	Kind   EntryKind `json:"type"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"ts"`

	// TaskID references the task that caused the entry, zero for deposits.
	TaskID int64 `json:"task_id,omitempty"`
}

// Signed returns the entry amount with the sign of its effect on the
// balance: freezes are negative, everything else positive. Stub entries
// carry no effect.
func (e LedgerEntry) Signed() int64 {
	switch e.Kind {
	case EntryFreeze:
		return -e.Amount
	case EntryWithdrawStub:
		return 0
	default:
		return e.Amount
	}
}

// Balance is a snapshot of a user's coins and ledger history.
type Balance struct {
	Balance int64         `json:"balance"`
	History []LedgerEntry `json:"history"`
}

// Profile holds the mutable display attributes of a user.
type Profile struct {
	Name          string  `json:"name"`
	Username      string  `json:"username,omitempty"`
	Avatar        string  `json:"avatar,omitempty"`
	Rating        float64 `json:"rating"`
	CreatedTasks  int     `json:"created_tasks"`
	FinishedTasks int     `json:"finished_tasks"`
}

// User is a registered participant. Users are created lazily on first
// authenticated contact and never deleted.
type User struct {
	ID      int64   `json:"id"`
	Profile Profile `json:"profile"`
}

// Identity is a resolved caller: a stable user id plus the display fields
// the credential carried. It is what the auth package hands to the engine.
type Identity struct {
	ID       int64
	Name     string
	Username string
}

// Task is a posted unit of paid work. Customer and performer are weak
// references into the user set; price is immutable after creation.
type Task struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Price          int64     `json:"price"`
	CustomerID     int64     `json:"customer_id"`
	CustomerRating float64   `json:"customer_rating"`
	PerformerID    int64     `json:"performer_id,omitempty"`
	Status         TaskState `json:"status"`
	ResultText     string    `json:"result_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TaskView is a task enriched with customer and performer display names at
// read time. The names are a read-only join, never part of the stored task.
type TaskView struct {
	Task

	CustomerName      string `json:"customer_name,omitempty"`
	CustomerUsername  string `json:"customer_username,omitempty"`
	PerformerName     string `json:"performer_name,omitempty"`
	PerformerUsername string `json:"performer_username,omitempty"`
}

// SortKey orders a task listing.
type SortKey string

const (
	// SortNew orders by task id descending, newest first.
	SortNew SortKey = "new"

	// SortPrice orders by price descending.
	SortPrice SortKey = "price"

	// SortRating orders by the customer rating snapshot descending; equal
	// ratings keep their relative order.
	SortRating SortKey = "rating"
)

// TaskFilter selects a subset of tasks for listing. Nil bounds are open;
// both price bounds are inclusive.
type TaskFilter struct {
	Category string
	PriceMin *int64
	PriceMax *int64
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t *Task) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.PriceMin != nil && t.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && t.Price > *f.PriceMax {
		return false
	}
	return true
}
