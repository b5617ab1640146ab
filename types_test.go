// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package taskboard

import (
	"testing"
)

func TestTaskStateValid(t *testing.T) {
	for _, s := range []TaskState{TaskStateFree, TaskStateTaken, TaskStateCompleted, TaskStateConfirmed, TaskStateRejected} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if TaskState("pending").Valid() {
		t.Error("expected unknown state to be invalid")
	}
}

func TestTaskStateTerminal(t *testing.T) {
	terminal := map[TaskState]bool{
		TaskStateFree:      false,
		TaskStateTaken:     false,
		TaskStateCompleted: false,
		TaskStateConfirmed: true,
		TaskStateRejected:  true,
	}
	for state, want := range terminal {
		if got := state.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", state, got, want)
		}
	}
}

func TestLedgerEntrySigned(t *testing.T) {
	tests := []struct {
		kind EntryKind
		want int64
	}{
		{EntryFreeze, -50},
		{EntryReturn, 50},
		{EntryTransfer, 50},
		{EntryDeposit, 50},
		{EntryWithdrawStub, 0},
	}
	for _, tt := range tests {
		entry := LedgerEntry{Kind: tt.kind, Amount: 50}
		if got := entry.Signed(); got != tt.want {
			t.Errorf("Signed(%q) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestTaskInputValidate(t *testing.T) {
	valid := TaskInput{Title: "Walk the dog", Description: "30 minutes", Category: "errands", Price: 100}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid input, got %v", err)
	}

	tests := []struct {
		name  string
		input TaskInput
	}{
		{"empty title", TaskInput{Description: "d", Category: "c", Price: 1}},
		{"blank title", TaskInput{Title: "   ", Description: "d", Category: "c", Price: 1}},
		{"empty description", TaskInput{Title: "t", Category: "c", Price: 1}},
		{"empty category", TaskInput{Title: "t", Description: "d", Price: 1}},
		{"zero price", TaskInput{Title: "t", Description: "d", Category: "c"}},
		{"negative price", TaskInput{Title: "t", Description: "d", Category: "c", Price: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if KindOf(err) != KindInvalidInput {
				t.Errorf("KindOf = %q, want %q", KindOf(err), KindInvalidInput)
			}
		})
	}
}

func TestTaskFilterMatch(t *testing.T) {
	price := func(n int64) *int64 { return &n }
	task := &Task{Category: "design", Price: 30}

	tests := []struct {
		name   string
		filter TaskFilter
		want   bool
	}{
		{"empty filter", TaskFilter{}, true},
		{"category match", TaskFilter{Category: "design"}, true},
		{"category mismatch", TaskFilter{Category: "dev"}, false},
		{"in range", TaskFilter{PriceMin: price(10), PriceMax: price(50)}, true},
		{"at lower bound", TaskFilter{PriceMin: price(30)}, true},
		{"at upper bound", TaskFilter{PriceMax: price(30)}, true},
		{"below min", TaskFilter{PriceMin: price(31)}, false},
		{"above max", TaskFilter{PriceMax: price(29)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(task); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileUpdateApply(t *testing.T) {
	name := "Alice"
	prof := Profile{Name: "User1", Username: "alice_old", Rating: 5}

	ProfileUpdate{Name: &name}.Apply(&prof)

	if prof.Name != "Alice" {
		t.Errorf("Name = %q, want %q", prof.Name, "Alice")
	}
	if prof.Username != "alice_old" {
		t.Error("unset fields must stay untouched")
	}
}
