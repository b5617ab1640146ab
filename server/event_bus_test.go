// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"testing"

	"github.com/go-taskboard/taskboard"
)

func TestEventBusBroadcast(t *testing.T) {
	bus := NewEventBus(testLogger())
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	bus.Publish(taskboard.Event{Name: taskboard.EventBalance})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case ev := <-sub.Events():
			if ev.Name != taskboard.EventBalance {
				t.Errorf("event = %q, want %q", ev.Name, taskboard.EventBalance)
			}
		default:
			t.Error("expected event to be queued")
		}
	}
}

func TestEventBusSlowConsumerIsolation(t *testing.T) {
	bus := NewEventBus(testLogger())
	slow := bus.Subscribe()
	fast := bus.Subscribe()
	defer slow.Close()
	defer fast.Close()

	// Fill the slow subscriber's queue without draining it.
	for i := 0; i < subscriberQueueSize; i++ {
		bus.Publish(taskboard.Event{Name: taskboard.EventPing})
	}
	for i := 0; i < subscriberQueueSize; i++ {
		<-fast.Events()
	}

	// The next publish is dropped for slow only.
	bus.Publish(taskboard.Event{Name: taskboard.EventTask})

	select {
	case ev := <-fast.Events():
		if ev.Name != taskboard.EventTask {
			t.Errorf("fast subscriber got %q, want %q", ev.Name, taskboard.EventTask)
		}
	default:
		t.Error("fast subscriber should still receive events")
	}

	if len(slow.ch) != subscriberQueueSize {
		t.Errorf("slow queue length = %d, want %d (event dropped)", len(slow.ch), subscriberQueueSize)
	}
}

func TestEventBusCloseRemovesSubscriber(t *testing.T) {
	bus := NewEventBus(testLogger())
	sub := bus.Subscribe()
	if bus.Len() != 1 {
		t.Fatalf("Len = %d, want 1", bus.Len())
	}

	sub.Close()
	if bus.Len() != 0 {
		t.Errorf("Len after close = %d, want 0", bus.Len())
	}

	// Publishing after close must not panic or deliver.
	bus.Publish(taskboard.Event{Name: taskboard.EventPing})

	if _, ok := <-sub.Events(); ok {
		t.Error("expected channel to be closed and drained")
	}
}

func TestEventBusCloseIdempotent(t *testing.T) {
	bus := NewEventBus(testLogger())
	sub := bus.Subscribe()
	sub.Close()
	sub.Close() // must not panic
}
