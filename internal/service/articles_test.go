// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/store"
)

// fakeArticleStore is an in-memory ArticleStore. Setting orderedErr makes
// the ordered listing queries fail so the fallback path can be exercised.
type fakeArticleStore struct {
	rows       map[int64]model.RawArticle
	nextID     int64
	orderedErr error
	viewCalls  []int64
}

func newFakeArticleStore() *fakeArticleStore {
	return &fakeArticleStore{rows: make(map[int64]model.RawArticle), nextID: 1}
}

func (f *fakeArticleStore) add(a model.Article) model.Article {
	a.ID = f.nextID
	f.nextID++
	raw := a.Raw()
	raw.ID = a.ID
	f.rows[a.ID] = raw
	return a
}

func (f *fakeArticleStore) CreateArticle(_ context.Context, arg store.CreateArticleParams) (model.RawArticle, error) {
	raw := model.RawArticle{
		ID:        f.nextID,
		Title:     sql.NullString{String: arg.Title, Valid: true},
		Content:   sql.NullString{String: arg.Content, Valid: true},
		Excerpt:   sql.NullString{String: arg.Excerpt, Valid: true},
		ImageURL:  sql.NullString{String: arg.ImageURL, Valid: true},
		Category:  sql.NullString{String: arg.Category, Valid: true},
		Tags:      sql.NullString{String: arg.Tags, Valid: true},
		Author:    sql.NullString{String: arg.Author, Valid: true},
		CreatedAt: sql.NullTime{Time: arg.CreatedAt, Valid: true},
		UpdatedAt: sql.NullTime{Time: arg.UpdatedAt, Valid: true},
		Published: sql.NullBool{Bool: arg.Published, Valid: true},
		Featured:  sql.NullBool{Bool: arg.Featured, Valid: true},
		ReadTime:  sql.NullInt64{Int64: arg.ReadTime, Valid: true},
		Slug:      sql.NullString{String: arg.Slug, Valid: true},
		Views:     sql.NullInt64{Int64: 0, Valid: true},
	}
	f.nextID++
	f.rows[raw.ID] = raw
	return raw, nil
}

func (f *fakeArticleStore) UpdateArticle(_ context.Context, arg store.UpdateArticleParams) (model.RawArticle, error) {
	raw, ok := f.rows[arg.ID]
	if !ok {
		return model.RawArticle{}, sql.ErrNoRows
	}
	raw.Title = sql.NullString{String: arg.Title, Valid: true}
	raw.Content = sql.NullString{String: arg.Content, Valid: true}
	raw.Excerpt = sql.NullString{String: arg.Excerpt, Valid: true}
	raw.ImageURL = sql.NullString{String: arg.ImageURL, Valid: true}
	raw.Category = sql.NullString{String: arg.Category, Valid: true}
	raw.Tags = sql.NullString{String: arg.Tags, Valid: true}
	raw.Author = sql.NullString{String: arg.Author, Valid: true}
	raw.UpdatedAt = sql.NullTime{Time: arg.UpdatedAt, Valid: true}
	raw.Published = sql.NullBool{Bool: arg.Published, Valid: true}
	raw.Featured = sql.NullBool{Bool: arg.Featured, Valid: true}
	raw.ReadTime = sql.NullInt64{Int64: arg.ReadTime, Valid: true}
	raw.Slug = sql.NullString{String: arg.Slug, Valid: true}
	f.rows[arg.ID] = raw
	return raw, nil
}

func (f *fakeArticleStore) GetArticleByID(_ context.Context, id int64) (model.RawArticle, error) {
	raw, ok := f.rows[id]
	if !ok {
		return model.RawArticle{}, sql.ErrNoRows
	}
	return raw, nil
}

func (f *fakeArticleStore) GetPublishedArticleBySlug(_ context.Context, slug string) (model.RawArticle, error) {
	for _, raw := range f.rows {
		if raw.Slug.String == slug && raw.Published.Bool {
			return raw, nil
		}
	}
	return model.RawArticle{}, sql.ErrNoRows
}

func (f *fakeArticleStore) ListArticles(context.Context) ([]model.RawArticle, error) {
	return f.collect(func(model.RawArticle) bool { return true }), nil
}

func (f *fakeArticleStore) ListPublishedArticlesOrdered(context.Context) ([]model.RawArticle, error) {
	if f.orderedErr != nil {
		return nil, f.orderedErr
	}
	rows := f.collect(func(r model.RawArticle) bool { return r.Published.Bool })
	sortRawDesc(rows)
	return rows, nil
}

func (f *fakeArticleStore) ListPublishedArticles(context.Context) ([]model.RawArticle, error) {
	return f.collect(func(r model.RawArticle) bool { return r.Published.Bool }), nil
}

func (f *fakeArticleStore) ListFeaturedArticlesOrdered(_ context.Context, limit int64) ([]model.RawArticle, error) {
	if f.orderedErr != nil {
		return nil, f.orderedErr
	}
	rows := f.collect(func(r model.RawArticle) bool { return r.Published.Bool && r.Featured.Bool })
	sortRawDesc(rows)
	if int64(len(rows)) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeArticleStore) ListFeaturedArticles(context.Context) ([]model.RawArticle, error) {
	return f.collect(func(r model.RawArticle) bool { return r.Published.Bool && r.Featured.Bool }), nil
}

func (f *fakeArticleStore) SetArticlePublished(_ context.Context, arg store.SetArticlePublishedParams) error {
	raw, ok := f.rows[arg.ID]
	if !ok {
		return sql.ErrNoRows
	}
	raw.Published = sql.NullBool{Bool: arg.Published, Valid: true}
	raw.UpdatedAt = sql.NullTime{Time: arg.UpdatedAt, Valid: true}
	f.rows[arg.ID] = raw
	return nil
}

func (f *fakeArticleStore) DeleteArticle(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeArticleStore) IncrementArticleViews(_ context.Context, id int64) error {
	raw, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	raw.Views = sql.NullInt64{Int64: raw.Views.Int64 + 1, Valid: true}
	f.rows[id] = raw
	f.viewCalls = append(f.viewCalls, id)
	return nil
}

func (f *fakeArticleStore) GetArticleStats(context.Context) (store.ArticleStats, error) {
	var s store.ArticleStats
	for _, raw := range f.rows {
		s.Total++
		if raw.Published.Bool {
			s.Published++
		} else {
			s.Drafts++
		}
		s.TotalViews += raw.Views.Int64
	}
	return s, nil
}

func (f *fakeArticleStore) collect(keep func(model.RawArticle) bool) []model.RawArticle {
	var out []model.RawArticle
	for _, raw := range f.rows {
		if keep(raw) {
			out = append(out, raw)
		}
	}
	return out
}

func sortRawDesc(rows []model.RawArticle) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].CreatedAt.Time.After(rows[j-1].CreatedAt.Time); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}

// fakeUploader records uploads and can be told to fail.
type fakeUploader struct {
	uploads int
	err     error
}

func (u *fakeUploader) UploadArticleImage(context.Context, *StagedImage) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.uploads++
	return "/uploads/articles/1_test.png", nil
}

func testArticle(title string, createdAt time.Time, published, featured bool) model.Article {
	return model.Article{
		Title:     title,
		Content:   "Content of " + title,
		Excerpt:   "Excerpt of " + title,
		Category:  "Culture",
		Tags:      []string{},
		Author:    "Tester",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Published: published,
		Featured:  featured,
		ReadTime:  1,
		Slug:      strings.ToLower(strings.ReplaceAll(title, " ", "-")),
	}
}

func newTestService(st *fakeArticleStore, up Uploader) *ArticleService {
	if up == nil {
		up = &fakeUploader{}
	}
	return NewArticleService(st, up, nil, "Admin")
}

func TestListPublishedFallbackMatchesPrimary(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := func() *fakeArticleStore {
		st := newFakeArticleStore()
		st.add(testArticle("Oldest", base, true, false))
		st.add(testArticle("Middle", base.AddDate(0, 0, 1), true, false))
		st.add(testArticle("Newest", base.AddDate(0, 0, 2), true, false))
		st.add(testArticle("Hidden Draft", base.AddDate(0, 0, 3), false, false))
		return st
	}

	primaryStore := seed()
	svc := newTestService(primaryStore, nil)
	viaPrimary, err := svc.ListPublished(context.Background())
	require.NoError(t, err)

	fallbackStore := seed()
	fallbackStore.orderedErr = errors.New("index unavailable")
	svc = newTestService(fallbackStore, nil)
	viaFallback, err := svc.ListPublished(context.Background())
	require.NoError(t, err)

	require.Len(t, viaPrimary, 3)
	assert.Equal(t, viaPrimary, viaFallback,
		"fallback path must produce the same listing as the ordered query")
	assert.Equal(t, "Newest", viaPrimary[0].Title)
	assert.Equal(t, "Oldest", viaPrimary[2].Title)
}

// erroringStore fails every listing query.
type erroringStore struct {
	*fakeArticleStore
}

func (e *erroringStore) ListPublishedArticlesOrdered(context.Context) ([]model.RawArticle, error) {
	return nil, errors.New("ordered query failed")
}

func (e *erroringStore) ListPublishedArticles(context.Context) ([]model.RawArticle, error) {
	return nil, errors.New("fallback query failed")
}

func TestListPublishedSurfacesTotalFailure(t *testing.T) {
	svc := NewArticleService(&erroringStore{newFakeArticleStore()}, &fakeUploader{}, nil, "Admin")

	_, err := svc.ListPublished(context.Background())
	require.Error(t, err)
}

func TestListFeaturedFallbackAppliesLimit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := newFakeArticleStore()
	for i := 0; i < 5; i++ {
		st.add(testArticle("Feature "+strings.Repeat("I", i+1), base.AddDate(0, 0, i), true, true))
	}
	st.orderedErr = errors.New("index unavailable")
	svc := newTestService(st, nil)

	articles, err := svc.ListFeatured(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, articles, 3, "fallback must truncate to the requested limit")
	assert.Equal(t, "Feature IIIII", articles[0].Title, "newest first after client-side sort")
}

func TestPublishForcesPublishedTrue(t *testing.T) {
	st := newFakeArticleStore()
	svc := newTestService(st, nil)

	article, err := svc.Publish(context.Background(), SaveParams{
		Title:     "Launch Day",
		Content:   "We are live.",
		Published: false, // The form checkbox says draft; publish wins.
	})
	require.NoError(t, err)
	assert.True(t, article.Published, "publish must force published=true")
}

func TestSaveDraftHonorsFormPublished(t *testing.T) {
	st := newFakeArticleStore()
	svc := newTestService(st, nil)

	draft, err := svc.SaveDraft(context.Background(), SaveParams{
		Title: "Quiet Work", Content: "Not ready.",
	})
	require.NoError(t, err)
	assert.False(t, draft.Published)

	live, err := svc.SaveDraft(context.Background(), SaveParams{
		Title: "Checked Box", Content: "Ready.", Published: true,
	})
	require.NoError(t, err)
	assert.True(t, live.Published)
}

func TestSaveValidation(t *testing.T) {
	svc := newTestService(newFakeArticleStore(), nil)

	_, err := svc.SaveDraft(context.Background(), SaveParams{Title: "  ", Content: "body"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SaveDraft(context.Background(), SaveParams{Title: "title", Content: "\n\t "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSaveDerivesFields(t *testing.T) {
	st := newFakeArticleStore()
	svc := newTestService(st, nil)

	content := strings.Repeat("w ", 250) // 250 words, needs 2 minutes
	article, err := svc.SaveDraft(context.Background(), SaveParams{
		Title:   "Hello, World!",
		Content: content,
		Tags:    " go , web ",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello-world", article.Slug)
	assert.Equal(t, 2, article.ReadTime)
	assert.Equal(t, []string{"go", "web"}, article.Tags)
	assert.Equal(t, "Admin", article.Author, "blank author falls back to the default")
	assert.True(t, strings.HasSuffix(article.Excerpt, "..."))
	assert.LessOrEqual(t, len(article.Excerpt), model.ExcerptLength+3)
}

func TestSaveKeepsProvidedExcerpt(t *testing.T) {
	svc := newTestService(newFakeArticleStore(), nil)

	article, err := svc.SaveDraft(context.Background(), SaveParams{
		Title: "T", Content: "C", Excerpt: "A handwritten summary.",
	})
	require.NoError(t, err)
	assert.Equal(t, "A handwritten summary.", article.Excerpt)
}

func TestSaveUploadsImageBeforeWrite(t *testing.T) {
	st := newFakeArticleStore()
	up := &fakeUploader{}
	svc := newTestService(st, up)

	article, err := svc.SaveDraft(context.Background(), SaveParams{
		Title: "Pictured", Content: "Body.",
		Image: &StagedImage{Filename: "photo.png", Data: []byte{1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, up.uploads)
	assert.Equal(t, "/uploads/articles/1_test.png", article.ImageURL)
}

func TestSaveAbortsWhenUploadFails(t *testing.T) {
	st := newFakeArticleStore()
	up := &fakeUploader{err: errors.New("disk full")}
	svc := newTestService(st, up)

	_, err := svc.SaveDraft(context.Background(), SaveParams{
		Title: "Pictured", Content: "Body.",
		Image: &StagedImage{Filename: "photo.png", Data: []byte{1}},
	})
	require.Error(t, err)
	assert.Empty(t, st.rows, "a failed upload must abort the save entirely")
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	st := newFakeArticleStore()
	svc := newTestService(st, nil)

	created, err := svc.SaveDraft(context.Background(), SaveParams{Title: "V1", Content: "First."})
	require.NoError(t, err)

	updated, err := svc.SaveDraft(context.Background(), SaveParams{
		ID: created.ID, Title: "V2", Content: "Second.",
	})
	require.NoError(t, err)

	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "V2", updated.Title)
}

func TestGetPublishedBySlugOrID(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := newFakeArticleStore()
	bySlug := st.add(testArticle("Findable Piece", base, true, false))
	draft := st.add(testArticle("Hidden Piece", base, false, false))
	svc := newTestService(st, nil)
	ctx := context.Background()

	// Slug resolution, published only.
	got, err := svc.GetPublishedBySlugOrID(ctx, "findable-piece")
	require.NoError(t, err)
	assert.Equal(t, bySlug.ID, got.ID)

	_, err = svc.GetPublishedBySlugOrID(ctx, "hidden-piece")
	assert.ErrorIs(t, err, ErrNotFound)

	// Direct identifier resolution.
	got, err = svc.GetPublishedBySlugOrID(ctx, draft.Identifier())
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	_, err = svc.GetPublishedBySlugOrID(ctx, "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordViewUsesActualID(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := newFakeArticleStore()
	article := st.add(testArticle("Counted Piece", base, true, false))
	svc := newTestService(st, nil)
	ctx := context.Background()

	resolved, err := svc.GetPublishedBySlugOrID(ctx, "counted-piece")
	require.NoError(t, err)

	require.NoError(t, svc.RecordView(ctx, resolved.ID))
	require.Equal(t, []int64{article.ID}, st.viewCalls,
		"the increment must target the store id, not the slug")

	assert.ErrorIs(t, svc.RecordView(ctx, 999), ErrNotFound)
}

func TestTogglePublished(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := newFakeArticleStore()
	article := st.add(testArticle("Toggle Me", base, false, false))
	svc := newTestService(st, nil)
	ctx := context.Background()

	toggled, err := svc.TogglePublished(ctx, article.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Published)

	toggled, err = svc.TogglePublished(ctx, article.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Published)

	_, err = svc.TogglePublished(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategories(t *testing.T) {
	articles := []model.Article{
		{Category: "Culture"},
		{Category: model.DefaultCategory},
		{Category: "Technology"},
		{Category: "Culture"},
	}

	got := Categories(articles)
	assert.Equal(t, []string{"Culture", "Technology", model.DefaultCategory}, got,
		"first-seen order with the default category last")
}
