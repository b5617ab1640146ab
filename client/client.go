// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client for the taskboard HTTP API, including
// the server-sent event stream.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-json-experiment/json"

	"github.com/go-taskboard/taskboard"
)

// Client talks to a taskboard server. It is safe for concurrent use; the
// session token is shared by all calls.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithToken sets an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token, empty before authentication.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authenticate exchanges a credential for a session token and stores it on
// the client.
func (c *Client) Authenticate(ctx context.Context, initData string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"initData": initData}
	if err := c.do(ctx, http.MethodPost, "/auth/telegram", nil, body, &out); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return out.Token, nil
}

// ListOptions filter and order a task listing.
type ListOptions struct {
	Category string
	PriceMin *int64
	PriceMax *int64
	Sort     taskboard.SortKey
}

// Tasks lists tasks.
func (c *Client) Tasks(ctx context.Context, opts ListOptions) ([]taskboard.TaskView, error) {
	query := url.Values{}
	if opts.Category != "" {
		query.Set("category", opts.Category)
	}
	if opts.PriceMin != nil {
		query.Set("price_min", strconv.FormatInt(*opts.PriceMin, 10))
	}
	if opts.PriceMax != nil {
		query.Set("price_max", strconv.FormatInt(*opts.PriceMax, 10))
	}
	if opts.Sort != "" {
		query.Set("sort", string(opts.Sort))
	}

	var out struct {
		Items []taskboard.TaskView `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Task fetches one task by id.
func (c *Client) Task(ctx context.Context, id int64) (*taskboard.TaskView, error) {
	var out taskboard.TaskView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask posts a new task, freezing its price on the caller's balance.
func (c *Client) CreateTask(ctx context.Context, in taskboard.TaskInput) (*taskboard.TaskView, error) {
	var out taskboard.TaskView
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Take claims a free task.
func (c *Client) Take(ctx context.Context, id int64) (*taskboard.TaskView, error) {
	return c.transition(ctx, id, "take", nil)
}

// Complete submits the result for a task the caller took.
func (c *Client) Complete(ctx context.Context, id int64, resultText string) (*taskboard.TaskView, error) {
	body := map[string]string{"result_text": resultText}
	return c.transition(ctx, id, "complete", body)
}

// Confirm accepts a completed task, releasing the payment to the performer.
func (c *Client) Confirm(ctx context.Context, id int64) (*taskboard.TaskView, error) {
	return c.transition(ctx, id, "confirm", nil)
}

// Reject refuses a taken or completed task, returning the frozen funds.
func (c *Client) Reject(ctx context.Context, id int64) (*taskboard.TaskView, error) {
	return c.transition(ctx, id, "reject", nil)
}

func (c *Client) transition(ctx context.Context, id int64, action string, body any) (*taskboard.TaskView, error) {
	var out taskboard.TaskView
	path := fmt.Sprintf("/tasks/%d/%s", id, action)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance fetches the caller's balance and ledger history.
func (c *Client) Balance(ctx context.Context) (taskboard.Balance, error) {
	var out taskboard.Balance
	err := c.do(ctx, http.MethodGet, "/balance", nil, nil, &out)
	return out, err
}

// AddBalance deposits coins onto the caller's balance.
func (c *Client) AddBalance(ctx context.Context, amount int64) (taskboard.Balance, error) {
	var out taskboard.Balance
	err := c.do(ctx, http.MethodPost, "/balance/add", nil, map[string]int64{"amount": amount}, &out)
	return out, err
}

// Profile fetches the caller's profile.
func (c *Client) Profile(ctx context.Context) (taskboard.Profile, error) {
	var out taskboard.Profile
	err := c.do(ctx, http.MethodGet, "/profile", nil, nil, &out)
	return out, err
}

// UpdateProfile applies the set fields and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, upd taskboard.ProfileUpdate) (taskboard.Profile, error) {
	var out taskboard.Profile
	err := c.do(ctx, http.MethodPost, "/profile", nil, upd, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("X-Token", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.UnmarshalRead(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError converts an error response back into the structured error the
// server mapped it from.
func decodeError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
		Kind   string `json:"kind"`
	}
	data, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(data, &payload)
	if payload.Detail == "" {
		payload.Detail = http.StatusText(resp.StatusCode)
	}

	kind := taskboard.Kind(payload.Kind)
	if kind == "" {
		kind = statusKind(resp.StatusCode)
	}
	return taskboard.NewError(kind, payload.Detail)
}

func statusKind(status int) taskboard.Kind {
	switch status {
	case http.StatusBadRequest:
		return taskboard.KindInvalidInput
	case http.StatusUnauthorized:
		return taskboard.KindUnauthorized
	case http.StatusForbidden:
		return taskboard.KindForbidden
	case http.StatusNotFound:
		return taskboard.KindNotFound
	case http.StatusConflict:
		return taskboard.KindConflict
	default:
		return taskboard.KindInvariant
	}
}
