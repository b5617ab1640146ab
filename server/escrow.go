// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-taskboard/taskboard"
)

// defaultRating is the rating a user starts with.
const defaultRating = 5.0

// notifyTimeout bounds a single outward notification. The notifier runs off
// the critical path; this keeps a stuck endpoint from pinning goroutines.
const notifyTimeout = 5 * time.Second

// Notifier is the outward notification sink. Implementations must treat the
// call as best-effort: failures are swallowed, never returned to the engine.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// Notify implements [Notifier].
func (NopNotifier) Notify(context.Context, int64, string) {}

// EngineConfig holds construction parameters for [Engine].
type EngineConfig struct {
	// Bus receives domain events. Created on demand when nil.
	Bus *EventBus

	// Notifier is the outward notification sink. Defaults to NopNotifier.
	Notifier Notifier

	// StartingBalance is the one-time grant credited to a user's balance on
	// first authenticated contact.
	StartingBalance int64

	Logger *slog.Logger
	Tracer trace.Tracer
}

// Engine orchestrates the task lifecycle. Every transition is atomic with
// its ledger side effect: one mutex guards the task store, the ledger, and
// the user set, and events are published only after the lock is released so
// a subscriber can never stall a mutator.
type Engine struct {
	mu     sync.RWMutex
	tasks  *taskStore
	ledger *ledger
	users  map[int64]*taskboard.Profile

	bus             *EventBus
	notifier        Notifier
	startingBalance int64
	logger          *slog.Logger
	tracer          trace.Tracer
	now             func() time.Time
}

// NewEngine creates an engine with empty stores.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = NewEventBus(logger)
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer("github.com/go-taskboard/taskboard/server")
	}

	return &Engine{
		tasks:           newTaskStore(),
		ledger:          newLedger(),
		users:           make(map[int64]*taskboard.Profile),
		bus:             bus,
		notifier:        notifier,
		startingBalance: cfg.StartingBalance,
		logger:          logger,
		tracer:          tracer,
		now:             time.Now,
	}
}

// Bus returns the engine's event bus, for wiring subscribers.
func (e *Engine) Bus() *EventBus {
	return e.bus
}

// Touch ensures the caller's user and balance records exist, creating them
// lazily with the starting grant on first contact. It returns the user.
func (e *Engine) Touch(ctx context.Context, ident taskboard.Identity) *taskboard.User {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Touch",
		trace.WithAttributes(attribute.Int64("taskboard.user_id", ident.ID)))
	defer span.End()

	e.mu.Lock()
	prof := e.ensureUserLocked(ident)
	if e.ledger.ensure(ident.ID) && e.startingBalance > 0 {
		e.ledger.credit(ident.ID, e.startingBalance, taskboard.EntryDeposit, 0)
	}
	user := taskboard.User{ID: ident.ID, Profile: *prof}
	e.mu.Unlock()

	return &user
}

// Create posts a new task. The price is frozen on the customer's balance in
// the same critical section that inserts the task, so a customer can never
// post more work than they can pay for.
func (e *Engine) Create(ctx context.Context, actor taskboard.Identity, in taskboard.TaskInput) (*taskboard.TaskView, error) {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Create",
		trace.WithAttributes(attribute.Int64("taskboard.user_id", actor.ID)))
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	prof := e.ensureUserLocked(actor)
	if e.ledger.balance(actor.ID) < in.Price {
		e.mu.Unlock()
		return nil, taskboard.ErrInsufficientFunds
	}

	task := &taskboard.Task{
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		Price:          in.Price,
		CustomerID:     actor.ID,
		CustomerRating: prof.Rating,
		Status:         taskboard.TaskStateFree,
		CreatedAt:      e.now().UTC(),
	}
	e.tasks.insert(task)
	if err := e.ledger.debit(actor.ID, in.Price, taskboard.EntryFreeze, task.ID); err != nil {
		// Unreachable: the balance was checked under this lock.
		e.mu.Unlock()
		e.logger.Error("freeze failed after balance check", "task_id", task.ID, "error", err)
		return nil, taskboard.Errorf(taskboard.KindInvariant, "freeze failed: %v", err)
	}
	prof.CreatedTasks++

	view := e.viewLocked(task)
	balance := e.ledger.balance(actor.ID)
	e.mu.Unlock()

	e.publishTask(taskboard.TaskActionCreated, view)
	e.publishBalance(actor.ID, balance)
	e.send(actor.ID, fmt.Sprintf("Task created: <b>%s</b> for %d coins", view.Title, view.Price))

	e.logger.InfoContext(ctx, "task created",
		"task_id", view.ID, "customer_id", actor.ID, "price", view.Price)
	return &view, nil
}

// Take claims a free task for the acting performer.
func (e *Engine) Take(ctx context.Context, taskID int64, actor taskboard.Identity) (*taskboard.TaskView, error) {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Take",
		trace.WithAttributes(attribute.Int64("taskboard.task_id", taskID)))
	defer span.End()

	e.mu.Lock()
	e.ensureUserLocked(actor)
	task, ok := e.tasks.get(taskID)
	if !ok {
		e.mu.Unlock()
		return nil, taskboard.ErrTaskNotFound
	}
	if task.CustomerID == actor.ID {
		e.mu.Unlock()
		return nil, taskboard.NewError(taskboard.KindForbidden, "cannot take own task")
	}
	if task.Status != taskboard.TaskStateFree {
		e.mu.Unlock()
		return nil, taskboard.NewError(taskboard.KindConflict, "task not available")
	}

	task.Status = taskboard.TaskStateTaken
	task.PerformerID = actor.ID
	view := e.viewLocked(task)
	e.mu.Unlock()

	e.publishTask(taskboard.TaskActionUpdated, view)
	e.send(view.CustomerID, fmt.Sprintf("A performer took task #%d", view.ID))

	e.logger.InfoContext(ctx, "task taken", "task_id", view.ID, "performer_id", actor.ID)
	return &view, nil
}

// Complete submits the performer's result for a taken task.
func (e *Engine) Complete(ctx context.Context, taskID int64, actor taskboard.Identity, resultText string) (*taskboard.TaskView, error) {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Complete",
		trace.WithAttributes(attribute.Int64("taskboard.task_id", taskID)))
	defer span.End()

	e.mu.Lock()
	task, ok := e.tasks.get(taskID)
	if !ok {
		e.mu.Unlock()
		return nil, taskboard.ErrTaskNotFound
	}
	if task.PerformerID != actor.ID {
		e.mu.Unlock()
		return nil, taskboard.NewError(taskboard.KindForbidden, "not your task")
	}
	if task.Status != taskboard.TaskStateTaken {
		e.mu.Unlock()
		return nil, taskboard.NewError(taskboard.KindConflict, "task is not in progress")
	}

	task.Status = taskboard.TaskStateCompleted
	task.ResultText = resultText
	view := e.viewLocked(task)
	e.mu.Unlock()

	e.publishTask(taskboard.TaskActionUpdated, view)
	e.send(view.CustomerID, fmt.Sprintf("Task #%d was marked as completed", view.ID))

	e.logger.InfoContext(ctx, "task completed", "task_id", view.ID, "performer_id", actor.ID)
	return &view, nil
}

// Confirm accepts a completed task and releases the frozen price to the
// performer. Together with Reject it is the only way funds leave escrow, and
// the status check makes exactly one of them reachable per task.
func (e *Engine) Confirm(ctx context.Context, taskID int64, actor taskboard.Identity) (*taskboard.TaskView, error) {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Confirm",
		trace.WithAttributes(attribute.Int64("taskboard.task_id", taskID)))
	defer span.End()

	e.mu.Lock()
	task, ok := e.tasks.get(taskID)
	if !ok {
		e.mu.Unlock()
		return nil, taskboard.ErrTaskNotFound
	}
	if task.CustomerID != actor.ID {
		e.mu.Unlock()
		return nil, taskboard.NewError(taskboard.KindForbidden, "only the customer can confirm")
	}
	if task.Status != taskboard.TaskStateCompleted {
		e.mu.Unlock()
		return nil, taskboard.NewError(taskboard.KindConflict, "task is not awaiting confirmation")
	}
	if task.PerformerID == 0 {
		e.mu.Unlock()
		e.logger.ErrorContext(ctx, "completed task has no performer", "task_id", taskID)
		return nil, taskboard.Errorf(taskboard.KindInvariant, "task %d is completed without a performer", taskID)
	}

	task.Status = taskboard.TaskStateConfirmed
	performerID := task.PerformerID
	e.ledger.credit(performerID, task.Price, taskboard.EntryTransfer, task.ID)
	e.ensureUserLocked(taskboard.Identity{ID: performerID}).FinishedTasks++

	view := e.viewLocked(task)
	balance := e.ledger.balance(performerID)
	e.mu.Unlock()

	e.publishTask(taskboard.TaskActionUpdated, view)
	e.publishBalance(performerID, balance)
	e.send(performerID, fmt.Sprintf("Payment for task #%d received: %d coins", view.ID, view.Price))

	e.logger.InfoContext(ctx, "task confirmed",
		"task_id", view.ID, "performer_id", performerID, "price", view.Price)
	return &view, nil
}

// Reject refuses a taken or completed task and returns the frozen price to
// the customer.
func (e *Engine) Reject(ctx context.Context, taskID int64, actor taskboard.Identity) (*taskboard.TaskView, error) {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Reject",
		trace.WithAttributes(attribute.Int64("taskboard.task_id", taskID)))
	defer span.End()

	e.mu.Lock()
	task, ok := e.tasks.get(taskID)
	if !ok {
		e.mu.Unlock()
		return nil, taskboard.ErrTaskNotFound
	}
	if task.CustomerID != actor.ID {
		e.mu.Unlock()
		return nil, taskboard.NewError(taskboard.KindForbidden, "only the customer can reject")
	}
	if task.Status != taskboard.TaskStateTaken && task.Status != taskboard.TaskStateCompleted {
		e.mu.Unlock()
		return nil, taskboard.NewError(taskboard.KindConflict, "task cannot be rejected in its current state")
	}

	task.Status = taskboard.TaskStateRejected
	e.ledger.credit(task.CustomerID, task.Price, taskboard.EntryReturn, task.ID)

	view := e.viewLocked(task)
	balance := e.ledger.balance(task.CustomerID)
	performerID := task.PerformerID
	e.mu.Unlock()

	e.publishTask(taskboard.TaskActionUpdated, view)
	e.publishBalance(view.CustomerID, balance)
	if performerID != 0 {
		e.send(performerID, fmt.Sprintf("Task #%d was rejected by the customer", view.ID))
	}

	e.logger.InfoContext(ctx, "task rejected", "task_id", view.ID, "customer_id", actor.ID)
	return &view, nil
}

// Deposit adds coins to the caller's balance from outside the escrow cycle.
func (e *Engine) Deposit(ctx context.Context, actor taskboard.Identity, amount int64) (taskboard.Balance, error) {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Deposit",
		trace.WithAttributes(attribute.Int64("taskboard.user_id", actor.ID)))
	defer span.End()

	if amount < 1 {
		return taskboard.Balance{}, taskboard.NewError(taskboard.KindInvalidInput, "amount must be at least 1")
	}

	e.mu.Lock()
	e.ensureUserLocked(actor)
	e.ledger.credit(actor.ID, amount, taskboard.EntryDeposit, 0)
	snapshot := e.ledger.read(actor.ID)
	e.mu.Unlock()

	e.publishBalance(actor.ID, snapshot.Balance)

	e.logger.InfoContext(ctx, "balance deposit", "user_id", actor.ID, "amount", amount)
	return snapshot, nil
}

// Withdraw records a withdrawal request. Payout is not wired to anything;
// only a zero-effect audit entry is appended.
func (e *Engine) Withdraw(ctx context.Context, actor taskboard.Identity, amount int64) (taskboard.Balance, error) {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Withdraw",
		trace.WithAttributes(attribute.Int64("taskboard.user_id", actor.ID)))
	defer span.End()

	e.mu.Lock()
	e.ensureUserLocked(actor)
	e.ledger.mark(actor.ID, amount, taskboard.EntryWithdrawStub)
	snapshot := e.ledger.read(actor.ID)
	e.mu.Unlock()

	return snapshot, nil
}

// BalanceOf returns a snapshot of the caller's balance and ledger history.
func (e *Engine) BalanceOf(ctx context.Context, actor taskboard.Identity) taskboard.Balance {
	_, span := e.tracer.Start(ctx, "taskboard.engine.BalanceOf",
		trace.WithAttributes(attribute.Int64("taskboard.user_id", actor.ID)))
	defer span.End()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.read(actor.ID)
}

// Get returns the enriched view of one task.
func (e *Engine) Get(ctx context.Context, taskID int64) (*taskboard.TaskView, error) {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Get",
		trace.WithAttributes(attribute.Int64("taskboard.task_id", taskID)))
	defer span.End()

	e.mu.RLock()
	defer e.mu.RUnlock()

	task, ok := e.tasks.get(taskID)
	if !ok {
		return nil, taskboard.ErrTaskNotFound
	}
	view := e.viewLocked(task)
	return &view, nil
}

// List returns enriched views of the tasks passing the filter, in the given
// sort order. The listing is a snapshot: no transition is observed
// half-applied.
func (e *Engine) List(ctx context.Context, filter taskboard.TaskFilter, key taskboard.SortKey) []taskboard.TaskView {
	_, span := e.tracer.Start(ctx, "taskboard.engine.List")
	defer span.End()

	e.mu.RLock()
	defer e.mu.RUnlock()

	items := e.tasks.list(filter, key)
	views := make([]taskboard.TaskView, len(items))
	for i := range items {
		views[i] = e.viewLocked(&items[i])
	}
	return views
}

// Profile returns the caller's profile, creating the user lazily.
func (e *Engine) Profile(ctx context.Context, actor taskboard.Identity) taskboard.Profile {
	_, span := e.tracer.Start(ctx, "taskboard.engine.Profile",
		trace.WithAttributes(attribute.Int64("taskboard.user_id", actor.ID)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.ensureUserLocked(actor)
}

// UpdateProfile applies the set fields of upd to the caller's profile and
// returns the result.
func (e *Engine) UpdateProfile(ctx context.Context, actor taskboard.Identity, upd taskboard.ProfileUpdate) taskboard.Profile {
	_, span := e.tracer.Start(ctx, "taskboard.engine.UpdateProfile",
		trace.WithAttributes(attribute.Int64("taskboard.user_id", actor.ID)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	prof := e.ensureUserLocked(actor)
	upd.Apply(prof)
	return *prof
}

// ensureUserLocked returns the profile for the identity, creating it with
// defaults on first sight. Callers must hold the write lock.
func (e *Engine) ensureUserLocked(ident taskboard.Identity) *taskboard.Profile {
	prof, ok := e.users[ident.ID]
	if !ok {
		name := ident.Name
		if name == "" {
			name = fmt.Sprintf("User%d", ident.ID)
		}
		prof = &taskboard.Profile{
			Name:     name,
			Username: ident.Username,
			Rating:   defaultRating,
		}
		e.users[ident.ID] = prof
	}
	return prof
}

// viewLocked joins display names onto a copy of the task. Callers must hold
// at least the read lock.
func (e *Engine) viewLocked(t *taskboard.Task) taskboard.TaskView {
	view := taskboard.TaskView{Task: *t}
	if prof, ok := e.users[t.CustomerID]; ok {
		view.CustomerName = prof.Name
		view.CustomerUsername = prof.Username
	}
	if t.PerformerID != 0 {
		if prof, ok := e.users[t.PerformerID]; ok {
			view.PerformerName = prof.Name
			view.PerformerUsername = prof.Username
		}
	}
	return view
}

func (e *Engine) publishTask(action string, view taskboard.TaskView) {
	e.bus.Publish(taskboard.Event{
		Name: taskboard.EventTask,
		Data: taskboard.TaskEventPayload{Action: action, Task: view},
	})
}

func (e *Engine) publishBalance(userID, balance int64) {
	e.bus.Publish(taskboard.Event{
		Name: taskboard.EventBalance,
		Data: taskboard.BalanceEventPayload{UserID: userID, Balance: balance},
	})
}

// send dispatches an outward notification without ever blocking the caller.
func (e *Engine) send(userID int64, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		e.notifier.Notify(ctx, userID, text)
	}()
}
