// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"sort"

	"github.com/go-taskboard/taskboard"
)

// taskStore owns the task records and the id sequence. Like the ledger it is
// unlocked on its own; the engine mutex serializes access so that listing is
// a snapshot read and no transition is ever observed half-applied.
type taskStore struct {
	tasks  map[int64]*taskboard.Task
	nextID int64
}

func newTaskStore() *taskStore {
	return &taskStore{
		tasks:  make(map[int64]*taskboard.Task),
		nextID: 1,
	}
}

// insert assigns the next monotonically increasing id and stores the task.
func (s *taskStore) insert(t *taskboard.Task) {
	t.ID = s.nextID
	s.nextID++
	s.tasks[t.ID] = t
}

func (s *taskStore) get(id int64) (*taskboard.Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// list returns value copies of the tasks passing the filter, ordered by the
// sort key. The base order is id ascending, so the price and rating sorts
// are stable with respect to creation order and an empty key is
// deterministic.
func (s *taskStore) list(filter taskboard.TaskFilter, key taskboard.SortKey) []taskboard.Task {
	items := make([]taskboard.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Match(t) {
			items = append(items, *t)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	switch key {
	case taskboard.SortNew:
		sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	case taskboard.SortPrice:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Price > items[j].Price })
	case taskboard.SortRating:
		sort.SliceStable(items, func(i, j int) bool { return items[i].CustomerRating > items[j].CustomerRating })
	}
	return items
}
