// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for sessions, API keys,
// CORS, security headers, and login rate limiting.
package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/sarmadcodes/tbc/internal/model"
)

// SessionUserKey is the session key holding the authenticated user's id.
const SessionUserKey = "userID"

type contextKey string

const userContextKey contextKey = "user"

// UserStore loads users for session resolution.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (model.User, error)
}

// LoadUser resolves the session's user id into a model.User on the
// request context. Requests without a valid session pass through
// anonymous; a stale session pointing at a deleted user is destroyed.
func LoadUser(sessions *scs.SessionManager, users UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sessions.GetInt64(r.Context(), SessionUserKey)
			if id == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(r.Context(), id)
			if err != nil {
				_ = sessions.Destroy(r.Context())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the authenticated user on the context, if any.
func UserFrom(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userContextKey).(model.User)
	return user, ok
}

// RequireCapability gates a route on an authenticated user holding the
// capability. Anonymous requests get 401, authenticated users without
// the capability get 403.
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !user.Can(capability) {
				writeJSONError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + message + `"}`))
}
