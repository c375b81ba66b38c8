// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic services for articles, media
// uploads, and audit events.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sarmadcodes/tbc/internal/cache"
	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/store"
	"github.com/sarmadcodes/tbc/internal/util"
)

// Sentinel errors for the error taxonomy: validation failures never reach
// the store, not-found is a regular outcome rather than a fault.
var (
	ErrNotFound   = errors.New("article not found")
	ErrValidation = errors.New("validation failed")
)

// ArticleStore is the store surface the article service depends on.
// *store.Queries satisfies it.
type ArticleStore interface {
	CreateArticle(ctx context.Context, arg store.CreateArticleParams) (model.RawArticle, error)
	UpdateArticle(ctx context.Context, arg store.UpdateArticleParams) (model.RawArticle, error)
	GetArticleByID(ctx context.Context, id int64) (model.RawArticle, error)
	GetPublishedArticleBySlug(ctx context.Context, slug string) (model.RawArticle, error)
	ListArticles(ctx context.Context) ([]model.RawArticle, error)
	ListPublishedArticlesOrdered(ctx context.Context) ([]model.RawArticle, error)
	ListPublishedArticles(ctx context.Context) ([]model.RawArticle, error)
	ListFeaturedArticlesOrdered(ctx context.Context, limit int64) ([]model.RawArticle, error)
	ListFeaturedArticles(ctx context.Context) ([]model.RawArticle, error)
	SetArticlePublished(ctx context.Context, arg store.SetArticlePublishedParams) error
	DeleteArticle(ctx context.Context, id int64) error
	IncrementArticleViews(ctx context.Context, id int64) error
	GetArticleStats(ctx context.Context) (store.ArticleStats, error)
}

// Uploader stores a staged image and returns its public URL.
type Uploader interface {
	UploadArticleImage(ctx context.Context, img *StagedImage) (string, error)
}

// ArticleService implements article querying and the edit/publish workflow.
type ArticleService struct {
	store         ArticleStore
	uploader      Uploader
	listCache     *cache.ArticleCache
	defaultAuthor string
}

// NewArticleService creates an ArticleService. The cache may be nil to
// disable listing caching (tests do this).
func NewArticleService(st ArticleStore, uploader Uploader, listCache *cache.ArticleCache, defaultAuthor string) *ArticleService {
	if defaultAuthor == "" {
		defaultAuthor = "Admin"
	}
	return &ArticleService{
		store:         st,
		uploader:      uploader,
		listCache:     listCache,
		defaultAuthor: defaultAuthor,
	}
}

// ListPublished returns all published articles, newest first. The primary
// ordered query is tried first; if the store rejects it, the equality-only
// query runs and the ordering is applied here. Both paths produce the same
// result. Only a failure of both surfaces an error.
func (s *ArticleService) ListPublished(ctx context.Context) ([]model.Article, error) {
	if s.listCache != nil {
		if cached, err := s.listCache.GetPublished(ctx); err == nil {
			return cached, nil
		}
	}

	articles, err := s.listOrderedWithFallback(ctx,
		s.store.ListPublishedArticlesOrdered,
		s.store.ListPublishedArticles,
	)
	if err != nil {
		return nil, fmt.Errorf("listing published articles: %w", err)
	}

	if s.listCache != nil {
		if err := s.listCache.SetPublished(ctx, articles); err != nil {
			slog.Warn("caching published articles", "category", model.EventCategoryCache, "error", err)
		}
	}
	return articles, nil
}

// ListFeatured returns up to limit articles that are both published and
// featured, newest first, with the same primary/fallback strategy as
// ListPublished.
func (s *ArticleService) ListFeatured(ctx context.Context, limit int) ([]model.Article, error) {
	if limit <= 0 {
		return []model.Article{}, nil
	}

	if s.listCache != nil {
		if cached, err := s.listCache.GetFeatured(ctx, limit); err == nil {
			return cached, nil
		}
	}

	articles, err := s.listOrderedWithFallback(ctx,
		func(ctx context.Context) ([]model.RawArticle, error) {
			return s.store.ListFeaturedArticlesOrdered(ctx, int64(limit))
		},
		s.store.ListFeaturedArticles,
	)
	if err != nil {
		return nil, fmt.Errorf("listing featured articles: %w", err)
	}

	if len(articles) > limit {
		articles = articles[:limit]
	}

	if s.listCache != nil {
		if err := s.listCache.SetFeatured(ctx, limit, articles); err != nil {
			slog.Warn("caching featured articles", "category", model.EventCategoryCache, "error", err)
		}
	}
	return articles, nil
}

// listOrderedWithFallback runs the primary ordered query, falling back to
// the unordered query plus a local descending sort when the primary fails.
// The two attempts are strictly sequential.
func (s *ArticleService) listOrderedWithFallback(
	ctx context.Context,
	primary func(context.Context) ([]model.RawArticle, error),
	fallback func(context.Context) ([]model.RawArticle, error),
) ([]model.Article, error) {
	raws, err := primary(ctx)
	if err == nil {
		return normalizeAll(raws), nil
	}

	slog.Warn("ordered article query failed, using fallback", "error", err)

	raws, err = fallback(ctx)
	if err != nil {
		return nil, err
	}

	articles := normalizeAll(raws)
	sortByCreatedDesc(articles)
	return articles, nil
}

// ListAll returns every article, drafts included, newest first. Admin use.
func (s *ArticleService) ListAll(ctx context.Context) ([]model.Article, error) {
	raws, err := s.store.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return normalizeAll(raws), nil
}

// GetByID returns the article with that identifier, drafts included, so
// the editor can load unpublished work.
func (s *ArticleService) GetByID(ctx context.Context, id int64) (model.Article, error) {
	raw, err := s.store.GetArticleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Article{}, ErrNotFound
		}
		return model.Article{}, fmt.Errorf("getting article %d: %w", id, err)
	}
	article, _ := model.Normalize(raw)
	return article, nil
}

// GetPublishedBySlugOrID resolves a public detail identifier: a direct
// identifier lookup first, then a published-only slug lookup. Public links
// may carry either the legacy identifier or the human-readable slug.
func (s *ArticleService) GetPublishedBySlugOrID(ctx context.Context, identifier string) (model.Article, error) {
	if id, convErr := strconv.ParseInt(identifier, 10, 64); convErr == nil {
		raw, err := s.store.GetArticleByID(ctx, id)
		if err == nil {
			article, _ := model.Normalize(raw)
			return article, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("article lookup by id failed, trying slug", "id", id, "error", err)
		}
	}

	raw, err := s.store.GetPublishedArticleBySlug(ctx, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Article{}, ErrNotFound
		}
		return model.Article{}, fmt.Errorf("getting article by slug %q: %w", identifier, err)
	}
	article, _ := model.Normalize(raw)
	return article, nil
}

// RecordView atomically increments an article's view counter. Callers pass
// the article's actual store identifier, never the slug it was resolved by.
func (s *ArticleService) RecordView(ctx context.Context, id int64) error {
	if err := s.store.IncrementArticleViews(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("incrementing views for article %d: %w", id, err)
	}
	return nil
}

// Stats returns aggregate article counts for the admin dashboard.
func (s *ArticleService) Stats(ctx context.Context) (store.ArticleStats, error) {
	return s.store.GetArticleStats(ctx)
}

// StagedImage is a locally staged image file awaiting upload.
type StagedImage struct {
	Filename string
	Data     []byte
}

// SaveParams carries one edit session's form state into a save.
type SaveParams struct {
	ID        int64 // 0 creates a new article
	Title     string
	Content   string
	Excerpt   string
	Category  string
	Tags      string // Comma-separated tag input
	Author    string
	Published bool // Form checkbox value
	Featured  bool
	ImageURL  string       // Current image URL, kept when no new image is staged
	Image     *StagedImage // Optional newly staged image
}

// SaveDraft persists the edit session honoring the form's published value.
func (s *ArticleService) SaveDraft(ctx context.Context, p SaveParams) (model.Article, error) {
	return s.save(ctx, p, false)
}

// Publish persists the edit session with published forced on, regardless
// of the form's checkbox.
func (s *ArticleService) Publish(ctx context.Context, p SaveParams) (model.Article, error) {
	return s.save(ctx, p, true)
}

// save implements the edit/publish workflow: local validation, optional
// image upload, field derivation, then exactly one row write. A failed
// upload aborts before anything is written.
func (s *ArticleService) save(ctx context.Context, p SaveParams, forcePublish bool) (model.Article, error) {
	title := strings.TrimSpace(p.Title)
	content := strings.TrimSpace(p.Content)
	if title == "" || content == "" {
		return model.Article{}, fmt.Errorf("%w: title and content are required", ErrValidation)
	}

	// The image upload is sequenced before the row write because the row
	// needs the upload's URL. A failed row write after a successful upload
	// leaves an orphaned file; that gap is accepted.
	imageURL := p.ImageURL
	if p.Image != nil {
		uploaded, err := s.uploader.UploadArticleImage(ctx, p.Image)
		if err != nil {
			return model.Article{}, fmt.Errorf("uploading image: %w", err)
		}
		imageURL = uploaded
	}

	excerpt := strings.TrimSpace(p.Excerpt)
	if excerpt == "" {
		excerpt = model.DeriveExcerpt(content)
	}

	author := strings.TrimSpace(p.Author)
	if author == "" {
		author = s.defaultAuthor
	}

	now := time.Now().UTC()
	published := forcePublish || p.Published

	var raw model.RawArticle
	var err error
	if p.ID == 0 {
		raw, err = s.store.CreateArticle(ctx, store.CreateArticleParams{
			Title:     title,
			Content:   content,
			Excerpt:   excerpt,
			ImageURL:  imageURL,
			Category:  p.Category,
			Tags:      model.TagsJSON(model.ParseTags(p.Tags)),
			Author:    author,
			CreatedAt: now,
			UpdatedAt: now,
			Published: published,
			Featured:  p.Featured,
			ReadTime:  int64(model.DeriveReadTime(content)),
			Slug:      util.Slugify(title),
		})
		if err != nil {
			return model.Article{}, fmt.Errorf("creating article: %w", err)
		}
	} else {
		raw, err = s.store.UpdateArticle(ctx, store.UpdateArticleParams{
			ID:        p.ID,
			Title:     title,
			Content:   content,
			Excerpt:   excerpt,
			ImageURL:  imageURL,
			Category:  p.Category,
			Tags:      model.TagsJSON(model.ParseTags(p.Tags)),
			Author:    author,
			UpdatedAt: now,
			Published: published,
			Featured:  p.Featured,
			ReadTime:  int64(model.DeriveReadTime(content)),
			Slug:      util.Slugify(title),
		})
		if errors.Is(err, sql.ErrNoRows) {
			return model.Article{}, ErrNotFound
		}
		if err != nil {
			return model.Article{}, fmt.Errorf("updating article %d: %w", p.ID, err)
		}
	}

	s.invalidateListings(ctx)

	article, _ := model.Normalize(raw)
	return article, nil
}

// TogglePublished flips an article's published flag and refreshes its
// updated_at timestamp.
func (s *ArticleService) TogglePublished(ctx context.Context, id int64) (model.Article, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return model.Article{}, err
	}

	err = s.store.SetArticlePublished(ctx, store.SetArticlePublishedParams{
		ID:        id,
		Published: !current.Published,
		UpdatedAt: time.Now().UTC(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Article{}, ErrNotFound
	}
	if err != nil {
		return model.Article{}, fmt.Errorf("toggling published for article %d: %w", id, err)
	}

	s.invalidateListings(ctx)
	return s.GetByID(ctx, id)
}

// Delete removes an article permanently. There is no soft delete.
func (s *ArticleService) Delete(ctx context.Context, id int64) error {
	err := s.store.DeleteArticle(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting article %d: %w", id, err)
	}

	s.invalidateListings(ctx)
	return nil
}

func (s *ArticleService) invalidateListings(ctx context.Context) {
	if s.listCache != nil {
		s.listCache.Invalidate(ctx)
	}
}

// normalizeAll normalizes a slice of raw rows, logging any defaulted
// fields as data-quality diagnostics.
func normalizeAll(raws []model.RawArticle) []model.Article {
	articles := make([]model.Article, 0, len(raws))
	for _, raw := range raws {
		article, defaults := model.Normalize(raw)
		if len(defaults) > 0 {
			slog.Debug("normalized incomplete article row",
				"id", raw.ID, "defaulted_fields", len(defaults))
		}
		articles = append(articles, article)
	}
	return articles
}

// sortByCreatedDesc sorts newest first. Stable so equal timestamps keep
// their store order, matching the ordered query.
func sortByCreatedDesc(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].CreatedAt.After(articles[j].CreatedAt)
	})
}

// Categories returns the distinct categories present in a listing, in
// first-seen order with "Uncategorized" always sorted last.
func Categories(articles []model.Article) []string {
	seen := make(map[string]bool)
	var categories []string
	hasUncategorized := false
	for _, a := range articles {
		if a.Category == model.DefaultCategory {
			hasUncategorized = true
			continue
		}
		if !seen[a.Category] {
			seen[a.Category] = true
			categories = append(categories, a.Category)
		}
	}
	if hasUncategorized {
		categories = append(categories, model.DefaultCategory)
	}
	return categories
}
