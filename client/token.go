// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/go-taskboard/taskboard"
)

// TokenInfo is what a client can learn from a session token without the
// server's secret: the user id it encodes and when it was issued. Signed is
// true for JWT-shaped tokens; the signature itself is not checked here.
type TokenInfo struct {
	UserID   int64
	IssuedAt time.Time
	Signed   bool
}

// ParseToken inspects a session token of either shape: an HS256 JWT or the
// plain "<id>:<unix>" form.
func ParseToken(token string) (*TokenInfo, error) {
	if strings.Count(token, ".") == 2 {
		return parseSignedToken(token)
	}
	return parsePlainToken(token)
}

func parseSignedToken(token string) (*TokenInfo, error) {
	parsed, err := jwt.Parse([]byte(token), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, taskboard.ErrInvalidToken
	}

	var uid float64
	if err := parsed.Get("uid", &uid); err != nil {
		return nil, taskboard.ErrInvalidToken
	}

	info := &TokenInfo{UserID: int64(uid), Signed: true}
	if iat, ok := parsed.IssuedAt(); ok {
		info.IssuedAt = iat
	}
	return info, nil
}

func parsePlainToken(token string) (*TokenInfo, error) {
	head, rest, _ := strings.Cut(token, ":")
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return nil, taskboard.ErrInvalidToken
	}

	info := &TokenInfo{UserID: id}
	if unix, err := strconv.ParseInt(rest, 10, 64); err == nil {
		info.IssuedAt = time.Unix(unix, 0)
	}
	return info, nil
}
