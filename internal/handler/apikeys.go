// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sarmadcodes/tbc/internal/middleware"
	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/service"
	"github.com/sarmadcodes/tbc/internal/store"
)

// APIKeyStore is the store surface for API key administration.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, arg store.CreateAPIKeyParams) (model.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]model.APIKey, error)
	SetAPIKeyActive(ctx context.Context, id int64, active bool, at time.Time) error
	DeleteAPIKey(ctx context.Context, id int64) error
}

// APIKeyHandler administers API keys for headless clients.
type APIKeyHandler struct {
	store  APIKeyStore
	events *service.EventService
}

func NewAPIKeyHandler(st APIKeyStore, events *service.EventService) *APIKeyHandler {
	return &APIKeyHandler{store: st, events: events}
}

// List serves GET /api/admin/keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		WriteInternalError(w, err)
		return
	}
	out := make([]apiKeyView, 0, len(keys))
	for i := range keys {
		out = append(out, newAPIKeyView(&keys[i]))
	}
	WriteSuccess(w, out)
}

type createKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	ExpiresDays int      `json:"expires_days"`
}

// apiKeyView is the key shape exposed to the admin client. The hash
// never leaves the server.
type apiKeyView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	KeyPrefix   string     `json:"key_prefix"`
	Permissions []string   `json:"permissions"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newAPIKeyView(k *model.APIKey) apiKeyView {
	v := apiKeyView{
		ID:          k.ID,
		Name:        k.Name,
		KeyPrefix:   k.KeyPrefix,
		Permissions: k.GetPermissions(),
		IsActive:    k.IsActive,
		CreatedAt:   k.CreatedAt,
	}
	if k.LastUsedAt.Valid {
		t := k.LastUsedAt.Time
		v.LastUsedAt = &t
	}
	if k.ExpiresAt.Valid {
		t := k.ExpiresAt.Time
		v.ExpiresAt = &t
	}
	return v
}

// Create serves POST /api/admin/keys. The raw key appears in this
// response only; the server stores just its hash.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		WriteBadRequest(w, "name is required")
		return
	}
	for _, p := range req.Permissions {
		if !validPermission(p) {
			WriteBadRequest(w, "unknown permission: "+p)
			return
		}
	}
	if len(req.Permissions) == 0 {
		req.Permissions = []string{model.PermissionArticlesRead}
	}

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		WriteInternalError(w, err)
		return
	}

	var expiresAt sql.NullTime
	if req.ExpiresDays > 0 {
		expiresAt = sql.NullTime{Time: time.Now().UTC().AddDate(0, 0, req.ExpiresDays), Valid: true}
	}

	var userID int64
	if user, ok := middleware.UserFrom(r.Context()); ok {
		userID = user.ID
	}

	now := time.Now().UTC()
	key, err := h.store.CreateAPIKey(r.Context(), store.CreateAPIKeyParams{
		Name:        req.Name,
		KeyHash:     model.HashAPIKey(rawKey),
		KeyPrefix:   prefix,
		Permissions: model.PermissionsToJSON(req.Permissions),
		ExpiresAt:   expiresAt,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		WriteInternalError(w, err)
		return
	}

	h.events.Record(r.Context(), model.EventLevelInfo, model.EventCategoryUser,
		"API key issued: "+key.Name, userID)

	WriteCreated(w, map[string]any{
		"key":     rawKey, // Shown once, never retrievable again
		"details": newAPIKeyView(&key),
	})
}

// Revoke serves POST /api/admin/keys/{id}/revoke.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := parseKeyID(w, r)
	if !ok {
		return
	}

	err := h.store.SetAPIKeyActive(r.Context(), id, false, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		WriteNotFound(w, "API key not found")
		return
	}
	if err != nil {
		WriteInternalError(w, err)
		return
	}

	var userID int64
	if user, uok := middleware.UserFrom(r.Context()); uok {
		userID = user.ID
	}
	h.events.Record(r.Context(), model.EventLevelInfo, model.EventCategoryUser,
		"API key revoked: "+strconv.FormatInt(id, 10), userID)
	WriteSuccess(w, map[string]bool{"revoked": true})
}

// Delete serves DELETE /api/admin/keys/{id}.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseKeyID(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteAPIKey(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		WriteNotFound(w, "API key not found")
		return
	}
	if err != nil {
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, map[string]bool{"deleted": true})
}

func parseKeyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		WriteBadRequest(w, "invalid key id")
		return 0, false
	}
	return id, true
}

func validPermission(p string) bool {
	for _, known := range model.AllPermissions() {
		if p == known {
			return true
		}
	}
	return false
}
