// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifySendsFormRequest(t *testing.T) {
	var gotPath string
	var gotForm map[string]string

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotPath = r.URL.Path
		gotForm = map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	sink := NewTelegramSink("bot-secret", true, discardLogger(), WithAPIBase(api.URL))
	sink.Notify(context.Background(), 42, "Task created: <b>Test</b>")

	if gotPath != "/botbot-secret/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotForm["chat_id"] != "42" {
		t.Errorf("chat_id = %q, want 42", gotForm["chat_id"])
	}
	if gotForm["text"] != "Task created: <b>Test</b>" {
		t.Errorf("text = %q", gotForm["text"])
	}
	if gotForm["parse_mode"] != "HTML" {
		t.Errorf("parse_mode = %q, want HTML", gotForm["parse_mode"])
	}
}

func TestNotifyDisabledSinkIsNoop(t *testing.T) {
	called := false
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer api.Close()

	sink := NewTelegramSink("bot-secret", false, discardLogger(), WithAPIBase(api.URL))
	sink.Notify(context.Background(), 42, "hi")

	empty := NewTelegramSink("", true, discardLogger(), WithAPIBase(api.URL))
	empty.Notify(context.Background(), 42, "hi")

	if called {
		t.Error("disabled sink must not send")
	}
}

func TestNotifySwallowsServerErrors(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer api.Close()

	sink := NewTelegramSink("bot-secret", true, discardLogger(), WithAPIBase(api.URL))
	// Must not panic or return anything. A dead endpoint behaves the same.
	sink.Notify(context.Background(), 42, "hi")

	api.Close()
	sink.Notify(context.Background(), 42, "hi")
}
