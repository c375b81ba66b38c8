// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/store"
)

type fakeEventStore struct {
	created   []store.CreateEventParams
	createErr error
	cutoff    time.Time
}

func (f *fakeEventStore) CreateEvent(_ context.Context, arg store.CreateEventParams) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, arg)
	return int64(len(f.created)), nil
}

func (f *fakeEventStore) ListRecentEvents(_ context.Context, limit int64) ([]model.Event, error) {
	n := int64(len(f.created))
	if n > limit {
		n = limit
	}
	return make([]model.Event, n), nil
}

func (f *fakeEventStore) DeleteEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, nil
}

func TestEventRecord(t *testing.T) {
	st := &fakeEventStore{}
	svc := NewEventService(st)

	svc.Record(context.Background(), model.EventLevelInfo, model.EventCategoryAuth, "login: x", 7)

	if len(st.created) != 1 {
		t.Fatalf("created %d events, want 1", len(st.created))
	}
	e := st.created[0]
	if e.Level != model.EventLevelInfo || e.Category != model.EventCategoryAuth {
		t.Errorf("event = %+v", e)
	}
	if !e.UserID.Valid || e.UserID.Int64 != 7 {
		t.Errorf("UserID = %+v, want 7", e.UserID)
	}
}

func TestEventRecordAnonymous(t *testing.T) {
	st := &fakeEventStore{}
	svc := NewEventService(st)

	svc.Record(context.Background(), model.EventLevelWarning, model.EventCategoryAuth, "failed login", 0)

	if st.created[0].UserID.Valid {
		t.Error("anonymous events should carry a NULL user id")
	}
}

func TestEventRecordSwallowsStoreErrors(t *testing.T) {
	st := &fakeEventStore{createErr: errors.New("db locked")}
	svc := NewEventService(st)

	// Must not panic or propagate; auditing is best-effort.
	svc.Record(context.Background(), model.EventLevelInfo, model.EventCategorySystem, "x", 0)
}

func TestEventPruneCutoff(t *testing.T) {
	st := &fakeEventStore{}
	svc := NewEventService(st)

	deleted, err := svc.Prune(context.Background(), 90)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}

	want := time.Now().UTC().AddDate(0, 0, -90)
	diff := st.cutoff.Sub(want)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", st.cutoff, want)
	}
}
