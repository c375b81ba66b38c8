// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including Article, User, Event, and API key structures.
package model

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Article field defaults applied by Normalize.
const (
	DefaultTitle    = "Untitled"
	DefaultCategory = "Uncategorized"
	DefaultAuthor   = "Unknown Author"
	DefaultReadTime = 1
)

// ExcerptLength is the number of content characters kept in a derived excerpt.
const ExcerptLength = 200

// ReadTimeWordsPerMinute is the reading speed used for read-time estimation.
const ReadTimeWordsPerMinute = 200

// Article is the single content entity managed by the magazine.
type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"` // Newline-delimited paragraphs
	Excerpt   string    `json:"excerpt"`
	ImageURL  string    `json:"image_url"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Published bool      `json:"published"`
	Featured  bool      `json:"featured"`
	ReadTime  int       `json:"read_time"` // Minutes
	Slug      string    `json:"slug"`
	Views     int64     `json:"views"`
}

// Identifier returns the article's store identifier in its public string form.
func (a *Article) Identifier() string {
	return strconv.FormatInt(a.ID, 10)
}

// RawArticle is an article row as stored, before defaults are applied.
// Rows imported from the legacy backend may be missing almost any field,
// so every column except the identifier is nullable.
type RawArticle struct {
	ID        int64
	Title     sql.NullString
	Content   sql.NullString
	Excerpt   sql.NullString
	ImageURL  sql.NullString
	Category  sql.NullString
	Tags      sql.NullString // JSON array
	Author    sql.NullString
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
	Published sql.NullBool
	Featured  sql.NullBool
	ReadTime  sql.NullInt64
	Slug      sql.NullString
	Views     sql.NullInt64
}

// FieldDefault records a field that Normalize had to fill in.
type FieldDefault struct {
	Field string // Field name, e.g. "category"
	Value string // The substituted value
}

// Normalize completes a raw article row into a fully-populated Article,
// applying field defaults. It reports every substitution it makes so
// callers can surface data-quality diagnostics. The function is pure and
// idempotent: normalizing an already-complete article changes nothing and
// reports no defaults.
func Normalize(raw RawArticle) (Article, []FieldDefault) {
	return normalizeAt(raw, time.Now())
}

// normalizeAt is Normalize with an injectable clock for missing timestamps.
func normalizeAt(raw RawArticle, now time.Time) (Article, []FieldDefault) {
	var defaults []FieldDefault
	noted := func(field, value string) {
		defaults = append(defaults, FieldDefault{Field: field, Value: value})
	}

	a := Article{ID: raw.ID}

	if raw.Title.Valid && raw.Title.String != "" {
		a.Title = raw.Title.String
	} else {
		a.Title = DefaultTitle
		noted("title", a.Title)
	}

	a.Content = raw.Content.String
	a.Excerpt = raw.Excerpt.String
	a.ImageURL = raw.ImageURL.String

	// Whitespace-only categories count as absent.
	if raw.Category.Valid && strings.TrimSpace(raw.Category.String) != "" {
		a.Category = raw.Category.String
	} else {
		a.Category = DefaultCategory
		noted("category", a.Category)
	}

	a.Tags = parseTagsJSON(raw.Tags)
	if a.Tags == nil {
		a.Tags = []string{}
		if raw.Tags.Valid && raw.Tags.String != "" && raw.Tags.String != "[]" {
			noted("tags", "[]")
		}
	}

	if raw.Author.Valid && raw.Author.String != "" {
		a.Author = raw.Author.String
	} else {
		a.Author = DefaultAuthor
		noted("author", a.Author)
	}

	if raw.CreatedAt.Valid {
		a.CreatedAt = raw.CreatedAt.Time
	} else {
		a.CreatedAt = now
		noted("created_at", now.Format(time.RFC3339))
	}

	if raw.UpdatedAt.Valid {
		a.UpdatedAt = raw.UpdatedAt.Time
	} else {
		a.UpdatedAt = now
		noted("updated_at", now.Format(time.RFC3339))
	}

	a.Published = raw.Published.Valid && raw.Published.Bool
	a.Featured = raw.Featured.Valid && raw.Featured.Bool

	if raw.ReadTime.Valid && raw.ReadTime.Int64 > 0 {
		a.ReadTime = int(raw.ReadTime.Int64)
	} else {
		a.ReadTime = DefaultReadTime
		noted("read_time", strconv.Itoa(a.ReadTime))
	}

	if raw.Slug.Valid && raw.Slug.String != "" {
		a.Slug = raw.Slug.String
	} else {
		a.Slug = strconv.FormatInt(raw.ID, 10)
		noted("slug", a.Slug)
	}

	if raw.Views.Valid && raw.Views.Int64 > 0 {
		a.Views = raw.Views.Int64
	}

	return a, defaults
}

// Raw converts a complete Article back into its row representation.
// Normalize(a.Raw()) returns an article equal to a.
func (a *Article) Raw() RawArticle {
	tags, _ := json.Marshal(a.Tags)
	return RawArticle{
		ID:        a.ID,
		Title:     sql.NullString{String: a.Title, Valid: true},
		Content:   sql.NullString{String: a.Content, Valid: true},
		Excerpt:   sql.NullString{String: a.Excerpt, Valid: true},
		ImageURL:  sql.NullString{String: a.ImageURL, Valid: true},
		Category:  sql.NullString{String: a.Category, Valid: true},
		Tags:      sql.NullString{String: string(tags), Valid: true},
		Author:    sql.NullString{String: a.Author, Valid: true},
		CreatedAt: sql.NullTime{Time: a.CreatedAt, Valid: true},
		UpdatedAt: sql.NullTime{Time: a.UpdatedAt, Valid: true},
		Published: sql.NullBool{Bool: a.Published, Valid: true},
		Featured:  sql.NullBool{Bool: a.Featured, Valid: true},
		ReadTime:  sql.NullInt64{Int64: int64(a.ReadTime), Valid: true},
		Slug:      sql.NullString{String: a.Slug, Valid: true},
		Views:     sql.NullInt64{Int64: a.Views, Valid: true},
	}
}

// parseTagsJSON decodes a stored tags column. Returns nil when the column
// is absent or does not hold a JSON string array.
func parseTagsJSON(col sql.NullString) []string {
	if !col.Valid || col.String == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(col.String), &tags); err != nil {
		return nil
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// DeriveExcerpt produces an excerpt from article content: the first
// ExcerptLength characters with an ellipsis appended. The ellipsis is
// appended even when the content is shorter than the limit, matching the
// behavior readers of the legacy data already depend on.
func DeriveExcerpt(content string) string {
	if len(content) > ExcerptLength {
		content = content[:ExcerptLength]
	}
	return content + "..."
}

// DeriveReadTime estimates reading time in whole minutes, rounding up,
// assuming ReadTimeWordsPerMinute. Never returns less than one minute.
func DeriveReadTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + ReadTimeWordsPerMinute - 1) / ReadTimeWordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// ParseTags splits a comma-separated tag string, trimming each entry and
// dropping empties. Returns an empty, non-nil slice for blank input.
func ParseTags(csv string) []string {
	tags := []string{}
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// TagsJSON encodes a tag list for storage.
func TagsJSON(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}
