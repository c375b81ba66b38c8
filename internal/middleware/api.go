// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sarmadcodes/tbc/internal/model"
)

const apiKeyContextKey contextKey = "api_key"

// APIKeyStore loads and touches API keys for bearer authentication.
type APIKeyStore interface {
	GetAPIKeyByHash(ctx context.Context, keyHash string) (model.APIKey, error)
	TouchAPIKey(ctx context.Context, id int64, at time.Time) error
}

// APIKeyAuth authenticates headless clients by "Authorization: Bearer"
// API key, enforces the required permission, and rate limits per key.
type APIKeyAuth struct {
	store APIKeyStore

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewAPIKeyAuth creates a bearer authenticator allowing perMinute requests
// per key with a small burst.
func NewAPIKeyAuth(store APIKeyStore, perMinute int) *APIKeyAuth {
	if perMinute <= 0 {
		perMinute = 120
	}
	return &APIKeyAuth{
		store:    store,
		limiters: make(map[int64]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute / 4,
	}
}

// Require authenticates the request's bearer key and checks it carries
// the permission. The resolved key is put on the request context.
func (a *APIKeyAuth) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			key, err := a.store.GetAPIKeyByHash(r.Context(), model.HashAPIKey(raw))
			if err != nil {
				if !errors.Is(err, sql.ErrNoRows) {
					slog.Error("looking up API key", "category", model.EventCategoryAuth, "error", err)
				}
				writeJSONError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if !key.IsValid() {
				writeJSONError(w, http.StatusUnauthorized, "API key is revoked or expired")
				return
			}
			if !key.HasPermission(permission) {
				writeJSONError(w, http.StatusForbidden, "API key lacks permission")
				return
			}
			if !a.limiter(key.ID).Allow() {
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			if err := a.store.TouchAPIKey(r.Context(), key.ID, time.Now().UTC()); err != nil {
				slog.Warn("touching API key", "category", model.EventCategoryAuth, "error", err)
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyFrom returns the API key that authenticated the request, if any.
func APIKeyFrom(ctx context.Context) (model.APIKey, bool) {
	key, ok := ctx.Value(apiKeyContextKey).(model.APIKey)
	return key, ok
}

func (a *APIKeyAuth) limiter(keyID int64) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	lim, ok := a.limiters[keyID]
	if !ok {
		lim = rate.NewLimiter(a.limit, a.burst)
		a.limiters[keyID] = lim
	}
	return lim
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
