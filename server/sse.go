// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/go-taskboard/taskboard"
)

const (
	// pingInterval is how long a stream may stay idle before a keepalive
	// ping is written.
	pingInterval = 20 * time.Second

	// idlePollInterval is how often an idle stream checks whether a ping
	// is due.
	idlePollInterval = 10 * time.Second
)

// handleEvents serves the SSE event stream. Each connection gets its own
// bounded queue on the bus; the queue is deregistered the moment the
// connection goes away, which is what keeps the broadcast set from
// accumulating dead subscribers.
func (s *Server) handleEvents(c *gin.Context) {
	sub := s.engine.Bus().Subscribe()
	defer sub.Close()

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	if err := writeEvent(c.Writer, taskboard.Event{
		Name: taskboard.EventHello,
		Data: taskboard.HelloPayload{OK: true},
	}); err != nil {
		return
	}
	c.Writer.Flush()

	ctx := c.Request.Context()
	lastWrite := time.Now()
	idle := time.NewTicker(idlePollInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(c.Writer, ev); err != nil {
				return
			}
			c.Writer.Flush()
			lastWrite = time.Now()

		case now := <-idle.C:
			if now.Sub(lastWrite) < pingInterval {
				continue
			}
			ping := taskboard.Event{
				Name: taskboard.EventPing,
				Data: taskboard.PingPayload{TS: now.Unix()},
			}
			if err := writeEvent(c.Writer, ping); err != nil {
				return
			}
			c.Writer.Flush()
			lastWrite = now
		}
	}
}

// writeEvent writes one named SSE frame.
func writeEvent(w io.Writer, ev taskboard.Event) error {
	data, err := sonic.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}
