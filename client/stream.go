// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/go-taskboard/taskboard"
)

// maxFrameSize caps a single SSE line. Task descriptions are unbounded, so
// the scanner default of 64 KiB is not enough for a task frame.
const maxFrameSize = 1 << 20

// StreamEvent is one decoded frame from the event stream. Exactly one of
// Task and Balance is set for their event names; Raw always carries the
// undecoded payload.
type StreamEvent struct {
	Name    taskboard.EventName
	Task    *taskboard.TaskEventPayload
	Balance *taskboard.BalanceEventPayload
	Raw     []byte
}

// Subscribe opens the SSE event stream and decodes frames onto the returned
// channel. The channel is closed when ctx is canceled or the connection
// drops; there is no replay on reconnect.
func (c *Client) Subscribe(ctx context.Context) (<-chan StreamEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, decodeError(resp)
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		var name, data string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "" && name != "":
				ev := decodeStreamEvent(taskboard.EventName(name), []byte(data))
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
				name, data = "", ""
			}
		}
	}()

	return events, nil
}

func decodeStreamEvent(name taskboard.EventName, data []byte) StreamEvent {
	ev := StreamEvent{Name: name, Raw: data}
	switch name {
	case taskboard.EventTask:
		var payload taskboard.TaskEventPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			ev.Task = &payload
		}
	case taskboard.EventBalance:
		var payload taskboard.BalanceEventPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			ev.Balance = &payload
		}
	}
	return ev
}
