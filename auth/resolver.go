// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-taskboard/taskboard"
)

// Resolver maps opaque caller credentials to identities and issues session
// tokens. It implements the server.TokenSource contract.
type Resolver struct {
	botToken string
	issuer   *Issuer
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver creates a resolver. With an empty botToken the HMAC check is
// skipped and only the fallback credential shapes are accepted.
func NewResolver(botToken string, issuer *Issuer, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		botToken: botToken,
		issuer:   issuer,
		maxAge:   InitDataMaxAge,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve turns a credential string into an identity. Verified initData is
// preferred; an initData-shaped string without a valid signature degrades to
// the unverified user record, and the "id:name:handle" demo form is the last
// resort.
func (r *Resolver) Resolve(initData string) (taskboard.Identity, error) {
	if r.botToken != "" && strings.Contains(initData, "hash=") {
		data, err := VerifyInitData(initData, r.botToken, r.maxAge, r.now())
		if err == nil && data.User != nil {
			return identityFromUser(data.User), nil
		}
		if err != nil {
			r.logger.Debug("initData verification failed", "error", err)
		}
	}

	if user := parseUnverifiedUser(initData); user != nil {
		return identityFromUser(user), nil
	}

	if ident, ok := parseFallback(initData); ok {
		return ident, nil
	}

	return taskboard.Identity{}, taskboard.NewError(taskboard.KindInvalidInput, "invalid initData format")
}

// Issue implements server.TokenSource.
func (r *Resolver) Issue(ident taskboard.Identity) (string, error) {
	return r.issuer.Issue(ident)
}

// Recover implements server.TokenSource.
func (r *Resolver) Recover(token string) (int64, error) {
	return r.issuer.Recover(token)
}

func identityFromUser(u *TelegramUser) taskboard.Identity {
	return taskboard.Identity{
		ID:       u.ID,
		Name:     u.DisplayName(),
		Username: u.Username,
	}
}

// parseFallback accepts the demo credential "<id>:<name>:<handle>"; name and
// handle are optional.
func parseFallback(s string) (taskboard.Identity, bool) {
	parts := strings.Split(s, ":")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return taskboard.Identity{}, false
	}

	ident := taskboard.Identity{ID: id, Name: "User" + parts[0]}
	if len(parts) > 1 && parts[1] != "" {
		ident.Name = parts[1]
	}
	if len(parts) > 2 {
		ident.Username = parts[2]
	}
	return ident, true
}
