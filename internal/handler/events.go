// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sarmadcodes/tbc/internal/service"
)

// EventHandler serves the admin audit log.
type EventHandler struct {
	events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

type eventView struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	UserID    *int64    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// List serves GET /api/admin/events with an optional limit parameter.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			WriteBadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		WriteInternalError(w, err)
		return
	}

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		v := eventView{
			ID:        e.ID,
			Level:     e.Level,
			Category:  e.Category,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		}
		if e.UserID.Valid {
			id := e.UserID.Int64
			v.UserID = &id
		}
		out = append(out, v)
	}
	WriteSuccess(w, out)
}
