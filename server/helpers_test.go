// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/go-taskboard/taskboard"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Notify(_ context.Context, _ int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

// newTestEngine creates an engine with a 1000-coin starting grant and the
// notifications discarded.
func newTestEngine() *Engine {
	return NewEngine(EngineConfig{
		StartingBalance: 1000,
		Logger:          testLogger(),
	})
}

func ident(id int64) taskboard.Identity {
	return taskboard.Identity{ID: id}
}
