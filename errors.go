// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package taskboard

import (
	"errors"
	"fmt"
)

// Kind classifies an [Error] so transports can map it to a status code and
// callers can branch on it without string matching.
type Kind string

// Error kinds returned by core operations.
const (
	// KindInvalidInput marks malformed or missing request fields.
	KindInvalidInput Kind = "invalid_input"

	// KindUnauthorized marks a missing or unresolvable credential.
	KindUnauthorized Kind = "unauthorized"

	// KindForbidden marks an authenticated caller that is not entitled to
	// the action (self-take, wrong role).
	KindForbidden Kind = "forbidden"

	// KindNotFound marks an unknown task.
	KindNotFound Kind = "not_found"

	// KindConflict marks a precondition on the current task state that no
	// longer holds, typically because a concurrent mutation won the race.
	KindConflict Kind = "conflict"

	// KindInsufficientFunds marks a balance too low to freeze the price.
	KindInsufficientFunds Kind = "insufficient_funds"

	// KindInvariant marks a should-be-unreachable internal inconsistency.
	// It is logged loudly and surfaced as a server fault, never patched over.
	KindInvariant Kind = "invariant_violation"
)

// Error is the structured error carried by every failing core operation.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Is reports whether target is an *Error of the same kind. It lets callers
// use errors.Is against kind sentinels without matching messages.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return e.Kind == te.Kind
}

// NewError creates a structured error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates a structured error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindInvariant when err is not a
// structured [Error]. Unknown failures are treated as server faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInvariant
}

// Common sentinel errors. Operations may return these directly or a
// same-kind error carrying a more specific message.
var (
	ErrTaskNotFound      = NewError(KindNotFound, "task not found")
	ErrTokenRequired     = NewError(KindUnauthorized, "token required")
	ErrInvalidToken      = NewError(KindUnauthorized, "invalid token")
	ErrInsufficientFunds = NewError(KindInsufficientFunds, "insufficient balance")
)
