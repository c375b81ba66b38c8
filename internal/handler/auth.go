// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/sarmadcodes/tbc/internal/middleware"
	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/service"
)

// AuthHandler serves login, logout, and session introspection.
type AuthHandler struct {
	auth     *service.AuthService
	events   *service.EventService
	sessions *scs.SessionManager
	limiter  *middleware.LoginLimiter
}

func NewAuthHandler(auth *service.AuthService, events *service.EventService, sessions *scs.SessionManager, limiter *middleware.LoginLimiter) *AuthHandler {
	return &AuthHandler{auth: auth, events: events, sessions: sessions, limiter: limiter}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionUser is the user shape returned to the admin client.
type sessionUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login serves POST /api/auth/login. Bad credentials and an account that
// authenticates but lacks admin access fail differently: the second gets
// 403 so the client can say the account itself is not allowed in. No
// session is established on any failure.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, "email and password are required")
		return
	}

	if !h.limiter.Allow(req.Email) {
		h.events.Record(r.Context(), model.EventLevelWarning, model.EventCategoryAuth,
			"login throttled: "+req.Email, 0)
		WriteError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.events.Record(r.Context(), model.EventLevelWarning, model.EventCategoryAuth,
				"failed login: "+req.Email, 0)
			WriteUnauthorized(w, "invalid email or password")
		case errors.Is(err, service.ErrUnauthorized):
			h.events.Record(r.Context(), model.EventLevelWarning, model.EventCategoryAuth,
				"unauthorized account login: "+req.Email, 0)
			WriteForbidden(w, "account is not authorized for admin access")
		default:
			WriteInternalError(w, err)
		}
		return
	}

	// Rotate the session token on privilege change.
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		WriteInternalError(w, err)
		return
	}
	h.sessions.Put(r.Context(), middleware.SessionUserKey, user.ID)

	h.events.Record(r.Context(), model.EventLevelInfo, model.EventCategoryAuth,
		"login: "+user.Email, user.ID)
	WriteSuccess(w, sessionUser{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role})
}

// Logout serves POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.UserFrom(r.Context()); ok {
		h.events.Record(r.Context(), model.EventLevelInfo, model.EventCategoryAuth,
			"logout: "+user.Email, user.ID)
	}
	if err := h.sessions.Destroy(r.Context()); err != nil {
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, map[string]bool{"logged_out": true})
}

// Session serves GET /api/auth/session, reporting the logged-in user.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		WriteUnauthorized(w, "not logged in")
		return
	}
	WriteSuccess(w, sessionUser{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role})
}
