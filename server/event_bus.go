// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/go-taskboard/taskboard"
)

// subscriberQueueSize bounds each subscriber's queue. A subscriber whose
// queue is full loses the event; the publisher never blocks.
const subscriberQueueSize = 100

// EventBus fans published domain events out to every live subscriber.
// Publish is non-blocking with a per-subscriber drop policy, so a slow
// consumer can never stall a mutator.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	logger *slog.Logger
}

// NewEventBus creates an empty bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		subs:   make(map[string]*Subscriber),
		logger: logger,
	}
}

// Subscriber is one registered queue on the bus. A subscriber must be
// closed when its transport disconnects; that removes it from the broadcast
// set and closes its channel.
type Subscriber struct {
	id     string
	ch     chan taskboard.Event
	bus    *EventBus
	closed atomic.Bool
}

// Subscribe registers a new bounded queue and returns its subscriber.
func (b *EventBus) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:  uuid.NewString(),
		ch:  make(chan taskboard.Event, subscriberQueueSize),
		bus: b,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	b.logger.Debug("subscriber registered", "subscriber_id", sub.id)
	return sub
}

// Events returns the subscriber's queue. The channel is closed by [Subscriber.Close].
func (s *Subscriber) Events() <-chan taskboard.Event {
	return s.ch
}

// Close deregisters the subscriber and closes its channel. It is idempotent
// and safe to defer from the delivery loop.
func (s *Subscriber) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	// Closing under the bus lock keeps Publish from sending on a closed
	// channel: sends happen under the read lock.
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	close(s.ch)
	s.bus.mu.Unlock()

	s.bus.logger.Debug("subscriber removed", "subscriber_id", s.id)
}

// Publish broadcasts the event to all currently registered subscribers.
// Delivery is at-most-once per subscriber: a full queue drops the event for
// that subscriber only.
func (b *EventBus) Publish(ev taskboard.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("subscriber queue full, dropping event",
				"subscriber_id", sub.id, "event", string(ev.Name))
		}
	}
}

// Len reports the number of registered subscribers.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
