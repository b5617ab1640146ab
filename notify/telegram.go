// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers best-effort outward notifications. Sends are
// fire-and-forget: every failure is swallowed after logging, and nothing
// here may ever block or fail a mutation in the engine.
package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramSink sends notifications through the Telegram Bot API.
type TelegramSink struct {
	botToken string
	enabled  bool
	apiBase  string
	client   *http.Client
	logger   *slog.Logger
}

// Option configures a TelegramSink.
type Option func(*TelegramSink)

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *TelegramSink) { s.client = client }
}

// WithAPIBase points the sink at a different Bot API host, mainly for tests.
func WithAPIBase(base string) Option {
	return func(s *TelegramSink) { s.apiBase = strings.TrimRight(base, "/") }
}

// NewTelegramSink creates a sink. A disabled sink, or one without a bot
// token, drops every notification silently.
func NewTelegramSink(botToken string, enabled bool, logger *slog.Logger, opts ...Option) *TelegramSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &TelegramSink{
		botToken: strings.TrimSpace(botToken),
		enabled:  enabled,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify implements the engine's Notifier contract: sendMessage to the user,
// HTML parse mode, link previews off. Errors are logged at debug level and
// discarded.
func (s *TelegramSink) Notify(ctx context.Context, userID int64, text string) {
	if !s.enabled || s.botToken == "" {
		return
	}

	form := url.Values{
		"chat_id":                  {strconv.FormatInt(userID, 10)},
		"text":                     {text},
		"parse_mode":               {"HTML"},
		"disable_web_page_preview": {"true"},
	}

	endpoint := s.apiBase + "/bot" + s.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Debug("notification request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("notification send failed", "user_id", userID, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("notification rejected", "user_id", userID, "status", resp.StatusCode)
	}
}
