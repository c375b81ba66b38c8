// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"strings"

	"github.com/sarmadcodes/tbc/internal/model"
)

// Sentinel values that disable a filter dimension.
const (
	FilterAll       = "all"
	StatusAll       = "all"
	StatusPublished = "published"
	StatusDraft     = "draft"
)

// FilterSpec describes an in-memory filter over an already loaded listing.
// Zero values and the "all" sentinels match everything.
type FilterSpec struct {
	Text     string // Case-insensitive substring over title, excerpt, category, author, content
	Category string // Exact category match; "all" or empty matches any
	Status   string // "published", "draft", or "all"
}

// Filter applies the spec's dimensions AND-combined over the input,
// preserving order. It never mutates its input and always returns a
// non-nil slice.
func Filter(articles []model.Article, spec FilterSpec) []model.Article {
	out := make([]model.Article, 0, len(articles))
	needle := strings.ToLower(strings.TrimSpace(spec.Text))
	for _, a := range articles {
		if !matchesText(a, needle) {
			continue
		}
		if !matchesCategory(a, spec.Category) {
			continue
		}
		if !matchesStatus(a, spec.Status) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchesText(a model.Article, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Title), needle) ||
		strings.Contains(strings.ToLower(a.Excerpt), needle) ||
		strings.Contains(strings.ToLower(a.Category), needle) ||
		strings.Contains(strings.ToLower(a.Author), needle) ||
		strings.Contains(strings.ToLower(a.Content), needle)
}

func matchesCategory(a model.Article, category string) bool {
	if category == "" || category == FilterAll {
		return true
	}
	return a.Category == category
}

func matchesStatus(a model.Article, status string) bool {
	switch status {
	case StatusPublished:
		return a.Published
	case StatusDraft:
		return !a.Published
	default:
		return true
	}
}
