// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	raw := RawArticle{ID: 7}

	article, defaults := Normalize(raw)

	if article.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", article.Title, DefaultTitle)
	}
	if article.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", article.Category, DefaultCategory)
	}
	if article.Author != DefaultAuthor {
		t.Errorf("Author = %q, want %q", article.Author, DefaultAuthor)
	}
	if article.ReadTime != DefaultReadTime {
		t.Errorf("ReadTime = %d, want %d", article.ReadTime, DefaultReadTime)
	}
	if article.Slug != "7" {
		t.Errorf("Slug = %q, want %q", article.Slug, "7")
	}
	if article.Views != 0 {
		t.Errorf("Views = %d, want 0", article.Views)
	}
	if article.Tags == nil || len(article.Tags) != 0 {
		t.Errorf("Tags = %v, want empty non-nil slice", article.Tags)
	}
	if article.CreatedAt.IsZero() || article.UpdatedAt.IsZero() {
		t.Error("missing timestamps should be filled in")
	}
	if len(defaults) == 0 {
		t.Error("expected recorded field defaults for an empty row")
	}
}

func TestNormalizeWhitespaceCategory(t *testing.T) {
	raw := RawArticle{
		ID:       1,
		Category: sql.NullString{String: "   ", Valid: true},
	}

	article, _ := Normalize(raw)

	if article.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", article.Category, DefaultCategory)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	raw := RawArticle{
		ID:        42,
		Title:     sql.NullString{String: "The Craft of Print", Valid: true},
		Content:   sql.NullString{String: "Body text.", Valid: true},
		Excerpt:   sql.NullString{String: "Body...", Valid: true},
		Category:  sql.NullString{String: "Culture", Valid: true},
		Tags:      sql.NullString{String: `["print","design"]`, Valid: true},
		Author:    sql.NullString{String: "R. Calder", Valid: true},
		CreatedAt: sql.NullTime{Time: now, Valid: true},
		UpdatedAt: sql.NullTime{Time: now, Valid: true},
		Published: sql.NullBool{Bool: true, Valid: true},
		ReadTime:  sql.NullInt64{Int64: 4, Valid: true},
		Slug:      sql.NullString{String: "the-craft-of-print", Valid: true},
		Views:     sql.NullInt64{Int64: 12, Valid: true},
	}

	first, defaults := Normalize(raw)
	if len(defaults) != 0 {
		t.Fatalf("complete row reported defaults: %v", defaults)
	}

	second, defaults := Normalize(first.Raw())
	if len(defaults) != 0 {
		t.Fatalf("second pass reported defaults: %v", defaults)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass changed the article:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestNormalizeMalformedTags(t *testing.T) {
	raw := RawArticle{
		ID:   3,
		Tags: sql.NullString{String: "not json", Valid: true},
	}

	article, defaults := Normalize(raw)

	if len(article.Tags) != 0 {
		t.Errorf("Tags = %v, want empty", article.Tags)
	}
	found := false
	for _, d := range defaults {
		if d.Field == "tags" {
			found = true
		}
	}
	if !found {
		t.Error("malformed tags should be reported as a substitution")
	}
}

func TestDeriveExcerpt(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short content keeps ellipsis", "Hello", "Hello..."},
		{"empty content", "", "..."},
		{"exact limit", strings.Repeat("a", 200), strings.Repeat("a", 200) + "..."},
		{"long content truncated", strings.Repeat("b", 250), strings.Repeat("b", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveExcerpt(tt.content); got != tt.want {
				t.Errorf("DeriveExcerpt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveReadTime(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 1},
		{"one word", "hello", 1},
		{"two hundred words", strings.Repeat("word ", 200), 1},
		{"two hundred one words", strings.Repeat("word ", 201), 2},
		{"four hundred words", strings.Repeat("word ", 400), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveReadTime(tt.content); got != tt.want {
				t.Errorf("DeriveReadTime() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty input", "", []string{}},
		{"single", "go", []string{"go"}},
		{"trims and drops empties", " go , web ,, cms ", []string{"go", "web", "cms"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTags(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTags(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUserCan(t *testing.T) {
	admin := User{Role: RoleAdmin}
	editor := User{Role: RoleEditor}

	if !admin.Can(CapAdminAccess) {
		t.Error("admin should have admin access")
	}
	if editor.Can(CapAdminAccess) {
		t.Error("editor should not have admin access")
	}
	if !editor.Can(CapArticlesWrite) {
		t.Error("editor should be able to write articles")
	}
	if editor.Can(CapArticlesPublish) {
		t.Error("editor should not be able to publish")
	}
	unknown := User{Role: "viewer"}
	if unknown.Can(CapArticlesRead) {
		t.Error("unknown role should grant nothing")
	}
}
