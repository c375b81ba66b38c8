// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/store"
)

// EventStore is the store surface the event service depends on.
type EventStore interface {
	CreateEvent(ctx context.Context, arg store.CreateEventParams) (int64, error)
	ListRecentEvents(ctx context.Context, limit int64) ([]model.Event, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventService records audit events and prunes old ones.
type EventService struct {
	store EventStore
}

func NewEventService(st EventStore) *EventService {
	return &EventService{store: st}
}

// Record writes an audit event. Failures are logged, never propagated:
// auditing must not break the operation being audited.
func (s *EventService) Record(ctx context.Context, level, category, message string, userID int64) {
	params := store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		Metadata:  "{}",
		CreatedAt: time.Now().UTC(),
	}
	if userID > 0 {
		params.UserID = sql.NullInt64{Int64: userID, Valid: true}
	}
	if _, err := s.store.CreateEvent(ctx, params); err != nil {
		slog.Error("recording audit event", "category", model.EventCategorySystem, "error", err)
	}
}

// Recent returns the newest events for the admin dashboard.
func (s *EventService) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	events, err := s.store.ListRecentEvents(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// Prune deletes events older than the retention window and reports how
// many rows were removed.
func (s *EventService) Prune(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted, err := s.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return deleted, nil
}
