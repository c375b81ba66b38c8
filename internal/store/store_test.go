// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

// newTestDB opens a migrated throwaway database in a temp directory.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// mustCreateArticle inserts an article with sane defaults, applying
// overrides via the mutate callback.
func mustCreateArticle(t *testing.T, q *Queries, mutate func(*CreateArticleParams)) int64 {
	t.Helper()

	now := time.Now().UTC()
	params := CreateArticleParams{
		Title:     "Test Article",
		Content:   "Paragraph one.\nParagraph two.",
		Excerpt:   "Paragraph one....",
		Category:  "Culture",
		Tags:      `["test"]`,
		Author:    "Tester",
		CreatedAt: now,
		UpdatedAt: now,
		Published: true,
		ReadTime:  1,
		Slug:      "test-article",
	}
	if mutate != nil {
		mutate(&params)
	}

	raw, err := q.CreateArticle(context.Background(), params)
	if err != nil {
		t.Fatalf("creating article: %v", err)
	}
	return raw.ID
}
