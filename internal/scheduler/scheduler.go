// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/service"
)

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron          *cron.Cron
	events        *service.EventService
	retentionDays int
}

// New creates a scheduler that prunes old audit events nightly.
func New(events *service.EventService, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		events:        events,
		retentionDays: retentionDays,
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("15 3 * * *", s.pruneEvents)
	if err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("scheduler started", "category", model.EventCategorySystem,
		"event_retention_days", s.retentionDays)
	return nil
}

// Stop halts the cron loop, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) pruneEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.events.Prune(ctx, s.retentionDays)
	if err != nil {
		slog.Error("pruning events", "category", model.EventCategorySystem, "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("pruned old events", "category", model.EventCategorySystem, "deleted", deleted)
	}
}
