// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/go-taskboard/taskboard"
)

// Issuer creates and recovers session tokens.
//
// Without a secret, tokens are the plain "<id>:<unix>" form: identity
// recovery without a session store, and explicitly not a security boundary
// against forgery. With a secret configured, tokens are HS256-signed JWTs
// and only signed tokens are accepted back.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an issuer. An empty secret selects plain tokens.
func NewIssuer(secret string) *Issuer {
	i := &Issuer{now: time.Now}
	if secret != "" {
		i.secret = []byte(secret)
	}
	return i
}

// Signed reports whether the issuer produces signed tokens.
func (i *Issuer) Signed() bool {
	return i.secret != nil
}

// Issue creates a session token for the identity.
func (i *Issuer) Issue(ident taskboard.Identity) (string, error) {
	if i.secret == nil {
		return fmt.Sprintf("%d:%d", ident.ID, i.now().Unix()), nil
	}

	claims := jwt.MapClaims{
		"uid": ident.ID,
		"iat": i.now().Unix(),
		"jti": uuid.New().String(),
	}
	if ident.Name != "" {
		claims["name"] = ident.Name
	}
	if ident.Username != "" {
		claims["username"] = ident.Username
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", taskboard.Errorf(taskboard.KindInvariant, "sign token: %v", err)
	}
	return token, nil
}

// Recover extracts the user id from a token issued by this issuer.
func (i *Issuer) Recover(token string) (int64, error) {
	if i.secret == nil {
		return recoverPlain(token)
	}

	parsed, err := jwt.ParseWithClaims(token, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, taskboard.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, taskboard.ErrInvalidToken
	}
	uid, ok := claims["uid"].(float64)
	if !ok {
		return 0, taskboard.ErrInvalidToken
	}
	return int64(uid), nil
}

func recoverPlain(token string) (int64, error) {
	head, _, _ := strings.Cut(token, ":")
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, taskboard.ErrInvalidToken
	}
	return id, nil
}
