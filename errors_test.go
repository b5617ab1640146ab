// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package taskboard

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(KindConflict, "task not available")
	want := "conflict: task not available"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorfFormats(t *testing.T) {
	err := Errorf(KindInvariant, "task %d is completed without a performer", 7)
	if err.Kind != KindInvariant {
		t.Errorf("Kind = %q, want %q", err.Kind, KindInvariant)
	}
	if err.Message != "task 7 is completed without a performer" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	err := NewError(KindNotFound, "no such task: 42")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Error("expected same-kind errors to match")
	}
	if errors.Is(err, ErrInsufficientFunds) {
		t.Error("expected different kinds not to match")
	}
}

func TestErrorIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create: %w", ErrInsufficientFunds)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("expected wrapped sentinel to match")
	}
	if KindOf(err) != KindInsufficientFunds {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindInsufficientFunds)
	}
}

func TestKindOfUnknownError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInvariant {
		t.Errorf("KindOf(plain error) = %q, want %q", got, KindInvariant)
	}
}
