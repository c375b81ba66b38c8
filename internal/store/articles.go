// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sarmadcodes/tbc/internal/model"
)

const articleColumns = `id, title, content, excerpt, image_url, category, tags, author,
	created_at, updated_at, published, featured, read_time, slug, views`

// scanArticle scans one article row in articleColumns order.
func scanArticle(row interface{ Scan(...any) error }) (model.RawArticle, error) {
	var a model.RawArticle
	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.Excerpt, &a.ImageURL, &a.Category,
		&a.Tags, &a.Author, &a.CreatedAt, &a.UpdatedAt, &a.Published,
		&a.Featured, &a.ReadTime, &a.Slug, &a.Views,
	)
	return a, err
}

// collectArticles drains rows into a slice of raw articles.
func collectArticles(rows *sql.Rows) ([]model.RawArticle, error) {
	defer func() { _ = rows.Close() }()

	var articles []model.RawArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CreateArticleParams holds the fields written when creating an article.
type CreateArticleParams struct {
	Title     string
	Content   string
	Excerpt   string
	ImageURL  string
	Category  string
	Tags      string // JSON array
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Published bool
	Featured  bool
	ReadTime  int64
	Slug      string
}

// CreateArticle inserts a new article with a zero view count and returns
// the stored row.
func (q *Queries) CreateArticle(ctx context.Context, arg CreateArticleParams) (model.RawArticle, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO articles (
			title, content, excerpt, image_url, category, tags, author,
			created_at, updated_at, published, featured, read_time, slug, views
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		RETURNING `+articleColumns,
		arg.Title, arg.Content, arg.Excerpt, arg.ImageURL, arg.Category,
		arg.Tags, arg.Author, arg.CreatedAt, arg.UpdatedAt, arg.Published,
		arg.Featured, arg.ReadTime, arg.Slug,
	)
	return scanArticle(row)
}

// UpdateArticleParams holds the fields patched when updating an article.
// created_at and views are never touched by an update.
type UpdateArticleParams struct {
	ID        int64
	Title     string
	Content   string
	Excerpt   string
	ImageURL  string
	Category  string
	Tags      string // JSON array
	Author    string
	UpdatedAt time.Time
	Published bool
	Featured  bool
	ReadTime  int64
	Slug      string
}

// UpdateArticle patches an existing article and returns the stored row.
func (q *Queries) UpdateArticle(ctx context.Context, arg UpdateArticleParams) (model.RawArticle, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE articles SET
			title = ?, content = ?, excerpt = ?, image_url = ?, category = ?,
			tags = ?, author = ?, updated_at = ?, published = ?, featured = ?,
			read_time = ?, slug = ?
		WHERE id = ?
		RETURNING `+articleColumns,
		arg.Title, arg.Content, arg.Excerpt, arg.ImageURL, arg.Category,
		arg.Tags, arg.Author, arg.UpdatedAt, arg.Published, arg.Featured,
		arg.ReadTime, arg.Slug, arg.ID,
	)
	return scanArticle(row)
}

// GetArticleByID returns the article with the given identifier, drafts included.
func (q *Queries) GetArticleByID(ctx context.Context, id int64) (model.RawArticle, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	return scanArticle(row)
}

// GetPublishedArticleBySlug returns the first published article with the
// given slug. Slug uniqueness is not enforced at write time; when several
// published articles share a slug, which one is first is unspecified.
func (q *Queries) GetPublishedArticleBySlug(ctx context.Context, slug string) (model.RawArticle, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE slug = ? AND published = 1 LIMIT 1`, slug)
	return scanArticle(row)
}

// ListArticles returns every article, newest first. Admin listing.
func (q *Queries) ListArticles(ctx context.Context) ([]model.RawArticle, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectArticles(rows)
}

// ListPublishedArticlesOrdered returns published articles, newest first.
func (q *Queries) ListPublishedArticlesOrdered(ctx context.Context) ([]model.RawArticle, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE published = 1 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectArticles(rows)
}

// ListPublishedArticles returns published articles in unspecified order.
// Fallback for when the ordered query cannot be served.
func (q *Queries) ListPublishedArticles(ctx context.Context) ([]model.RawArticle, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE published = 1`)
	if err != nil {
		return nil, err
	}
	return collectArticles(rows)
}

// ListFeaturedArticlesOrdered returns up to limit published+featured
// articles, newest first.
func (q *Queries) ListFeaturedArticlesOrdered(ctx context.Context, limit int64) ([]model.RawArticle, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE published = 1 AND featured = 1
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collectArticles(rows)
}

// ListFeaturedArticles returns published+featured articles in unspecified
// order, without a limit. Fallback counterpart of
// ListFeaturedArticlesOrdered; the caller sorts and truncates.
func (q *Queries) ListFeaturedArticles(ctx context.Context) ([]model.RawArticle, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE published = 1 AND featured = 1`)
	if err != nil {
		return nil, err
	}
	return collectArticles(rows)
}

// SetArticlePublishedParams holds the publish toggle fields.
type SetArticlePublishedParams struct {
	ID        int64
	Published bool
	UpdatedAt time.Time
}

// SetArticlePublished flips the published flag and refreshes updated_at.
func (q *Queries) SetArticlePublished(ctx context.Context, arg SetArticlePublishedParams) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE articles SET published = ?, updated_at = ? WHERE id = ?`,
		arg.Published, arg.UpdatedAt, arg.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeleteArticle removes an article permanently.
func (q *Queries) DeleteArticle(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// IncrementArticleViews atomically adds one to the article's view counter.
// The increment happens server-side so concurrent readers never lose updates.
func (q *Queries) IncrementArticleViews(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE articles SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// ArticleStats summarizes the article table for the admin dashboard.
type ArticleStats struct {
	Total      int64
	Published  int64
	Drafts     int64
	TotalViews int64
}

// GetArticleStats returns aggregate article counts and the view total.
func (q *Queries) GetArticleStats(ctx context.Context) (ArticleStats, error) {
	var s ArticleStats
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(published), 0),
			COUNT(*) - COALESCE(SUM(published), 0),
			COALESCE(SUM(views), 0)
		FROM articles`).Scan(&s.Total, &s.Published, &s.Drafts, &s.TotalViews)
	return s, err
}

// requireRowAffected converts a zero-row write into sql.ErrNoRows so
// callers can treat missing identifiers as not-found.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
