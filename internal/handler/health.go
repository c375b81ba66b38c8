// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"

	"github.com/sarmadcodes/tbc/internal/version"
)

// HealthHandler reports process and database health.
type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health serves GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	WriteSuccess(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}
