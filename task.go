// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package taskboard

import "strings"

// TaskInput carries the caller-supplied fields for creating a task.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
}

// Validate checks the input against the creation preconditions: non-empty
// title, description, and category, and a price of at least one coin.
// The balance check is not part of input validation; it belongs to the
// engine, which performs it under the same lock as the freeze.
func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return NewError(KindInvalidInput, "title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return NewError(KindInvalidInput, "description is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return NewError(KindInvalidInput, "category is required")
	}
	if in.Price < 1 {
		return NewError(KindInvalidInput, "price must be at least 1")
	}
	return nil
}

// ProfileUpdate carries optional profile field changes. Nil fields are left
// untouched; rating and the task counters are not caller-settable here.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Apply copies the set fields onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
}
