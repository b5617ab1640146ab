// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"testing"

	"github.com/go-taskboard/taskboard"
)

func storeWith(tasks ...taskboard.Task) *taskStore {
	s := newTaskStore()
	for i := range tasks {
		t := tasks[i]
		s.insert(&t)
	}
	return s
}

func TestTaskStoreInsertAssignsMonotonicIDs(t *testing.T) {
	s := newTaskStore()
	for want := int64(1); want <= 5; want++ {
		task := &taskboard.Task{Title: "t"}
		s.insert(task)
		if task.ID != want {
			t.Errorf("id = %d, want %d", task.ID, want)
		}
	}
}

func TestTaskStoreGet(t *testing.T) {
	s := storeWith(taskboard.Task{Title: "a"})
	if _, ok := s.get(1); !ok {
		t.Error("expected task 1 to exist")
	}
	if _, ok := s.get(2); ok {
		t.Error("expected task 2 to be absent")
	}
}

func TestTaskStoreListPriceRange(t *testing.T) {
	s := storeWith(
		taskboard.Task{Price: 5},
		taskboard.Task{Price: 10},
		taskboard.Task{Price: 30},
		taskboard.Task{Price: 50},
		taskboard.Task{Price: 51},
	)

	low, high := int64(10), int64(50)
	items := s.list(taskboard.TaskFilter{PriceMin: &low, PriceMax: &high}, "")

	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for _, item := range items {
		if item.Price < low || item.Price > high {
			t.Errorf("price %d outside inclusive range [%d, %d]", item.Price, low, high)
		}
	}
}

func TestTaskStoreListCategory(t *testing.T) {
	s := storeWith(
		taskboard.Task{Category: "dev"},
		taskboard.Task{Category: "design"},
		taskboard.Task{Category: "dev"},
	)

	items := s.list(taskboard.TaskFilter{Category: "dev"}, "")
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestTaskStoreSortNew(t *testing.T) {
	s := storeWith(
		taskboard.Task{Price: 1},
		taskboard.Task{Price: 2},
		taskboard.Task{Price: 3},
		taskboard.Task{Price: 4},
	)

	items := s.list(taskboard.TaskFilter{}, taskboard.SortNew)
	for i := 1; i < len(items); i++ {
		if items[i-1].ID <= items[i].ID {
			t.Fatalf("ids not strictly descending: %d then %d", items[i-1].ID, items[i].ID)
		}
	}
}

func TestTaskStoreSortPrice(t *testing.T) {
	s := storeWith(
		taskboard.Task{Price: 20},
		taskboard.Task{Price: 50},
		taskboard.Task{Price: 10},
	)

	items := s.list(taskboard.TaskFilter{}, taskboard.SortPrice)
	want := []int64{50, 20, 10}
	for i, item := range items {
		if item.Price != want[i] {
			t.Errorf("position %d: price = %d, want %d", i, item.Price, want[i])
		}
	}
}

func TestTaskStoreSortRatingStable(t *testing.T) {
	s := storeWith(
		taskboard.Task{CustomerRating: 4},
		taskboard.Task{CustomerRating: 5},
		taskboard.Task{CustomerRating: 4},
	)

	items := s.list(taskboard.TaskFilter{}, taskboard.SortRating)
	if items[0].CustomerRating != 5 {
		t.Fatalf("highest rating first, got %v", items[0].CustomerRating)
	}
	// Equal ratings keep creation order.
	if items[1].ID != 1 || items[2].ID != 3 {
		t.Errorf("equal ratings reordered: ids %d, %d", items[1].ID, items[2].ID)
	}
}

func TestTaskStoreListIsSnapshot(t *testing.T) {
	s := storeWith(taskboard.Task{Title: "before"})

	items := s.list(taskboard.TaskFilter{}, "")
	items[0].Title = "after"

	stored, _ := s.get(1)
	if stored.Title != "before" {
		t.Error("mutating a listing copy must not reach the store")
	}
}
