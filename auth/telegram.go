// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth resolves caller credentials into stable user identities and
// manages the session tokens handed back to clients.
//
// Two credential shapes are accepted: Telegram WebApp initData verified with
// HMAC-SHA256 against the bot token, and a minimal "id:name:handle" fallback
// for deployments without a verifier secret.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/go-taskboard/taskboard"
)

// InitDataMaxAge is the recency bound on the auth_date embedded in initData.
const InitDataMaxAge = 24 * time.Hour

// TelegramUser is the user record embedded in verified initData.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// DisplayName derives the name shown for the user: first and last name,
// falling back to the username, falling back to User<id>.
func (u *TelegramUser) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return "User" + strconv.FormatInt(u.ID, 10)
}

// InitData is the verified content of a Telegram WebApp initData string.
type InitData struct {
	User     *TelegramUser
	AuthDate time.Time
}

// VerifyInitData checks a Telegram WebApp initData query string against the
// bot token per the Telegram scheme: HMAC-SHA256 over the sorted key=value
// pairs joined by newlines, keyed with SHA256 of the bot token. The embedded
// auth_date must be within maxAge of now.
func VerifyInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, taskboard.NewError(taskboard.KindUnauthorized, "malformed initData")
	}
	receivedHash := values.Get("hash")
	if receivedHash == "" {
		return nil, taskboard.NewError(taskboard.KindUnauthorized, "initData has no hash")
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(receivedHash)) {
		return nil, taskboard.NewError(taskboard.KindUnauthorized, "initData signature mismatch")
	}

	data := &InitData{}
	if raw := values.Get("auth_date"); raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, taskboard.NewError(taskboard.KindUnauthorized, "invalid auth_date")
		}
		data.AuthDate = time.Unix(unix, 0)
		if unix > 0 && now.Sub(data.AuthDate) > maxAge {
			return nil, taskboard.NewError(taskboard.KindUnauthorized, "initData expired")
		}
	}

	if raw := values.Get("user"); raw != "" {
		var user TelegramUser
		if err := sonic.Unmarshal([]byte(raw), &user); err == nil {
			data.User = &user
		}
	}

	return data, nil
}

// parseUnverifiedUser extracts the user record from an initData-shaped query
// string without checking the signature. Used as the soft fallback when the
// HMAC check is unavailable or failed.
func parseUnverifiedUser(initData string) *TelegramUser {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil
	}
	raw := values.Get("user")
	if raw == "" {
		return nil
	}
	var user TelegramUser
	if err := sonic.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}
