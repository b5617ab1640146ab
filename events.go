// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package taskboard

// EventName identifies a named frame on the event stream.
type EventName string

const (
	// EventHello is sent once to a subscriber immediately after connect.
	EventHello EventName = "hello"

	// EventTask announces a created or updated task with its full
	// enriched snapshot.
	EventTask EventName = "task"

	// EventBalance announces a user's new balance after money moved.
	EventBalance EventName = "balance"

	// EventPing is a periodic keepalive on an otherwise idle stream.
	EventPing EventName = "ping"
)

// Task event actions.
const (
	TaskActionCreated = "created"
	TaskActionUpdated = "updated"
)

// Event is one frame published to subscribers. Data is the payload struct
// for the event name; the transport marshals it.
type Event struct {
	Name EventName
	Data any
}

// TaskEventPayload is the payload of an [EventTask] frame.
type TaskEventPayload struct {
	Action string   `json:"action"`
	Task   TaskView `json:"task"`
}

// BalanceEventPayload is the payload of an [EventBalance] frame.
type BalanceEventPayload struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

// HelloPayload is the payload of the initial [EventHello] frame.
type HelloPayload struct {
	OK bool `json:"ok"`
}

// PingPayload is the payload of an [EventPing] keepalive frame.
type PingPayload struct {
	TS int64 `json:"ts"`
}
