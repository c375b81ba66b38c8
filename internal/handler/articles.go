// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sarmadcodes/tbc/internal/middleware"
	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/service"
)

// ArticleHandler serves public article browsing and admin authoring.
type ArticleHandler struct {
	articles      *service.ArticleService
	events        *service.EventService
	featuredLimit int
}

func NewArticleHandler(articles *service.ArticleService, events *service.EventService, featuredLimit int) *ArticleHandler {
	return &ArticleHandler{
		articles:      articles,
		events:        events,
		featuredLimit: featuredLimit,
	}
}

// articleDetail is an article plus its rendered HTML body.
type articleDetail struct {
	model.Article
	ContentHTML string `json:"content_html"`
}

// ListPublished serves GET /api/articles. Optional q and category query
// parameters narrow the listing.
func (h *ArticleHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	articles, err := h.articles.ListPublished(r.Context())
	if err != nil {
		WriteInternalError(w, err)
		return
	}

	categories := service.Categories(articles)
	articles = service.Filter(articles, service.FilterSpec{
		Text:     r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	})

	WriteSuccessMeta(w, articles, Meta{Total: len(articles), Categories: categories})
}

// ListFeatured serves GET /api/articles/featured.
func (h *ArticleHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	limit := h.featuredLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	articles, err := h.articles.ListFeatured(r.Context(), limit)
	if err != nil {
		WriteInternalError(w, err)
		return
	}
	WriteSuccessMeta(w, articles, Meta{Total: len(articles)})
}

// GetArticle serves GET /api/articles/{identifier}, accepting either an
// article id or a slug. Each successful fetch records a view against the
// article's actual id, never the identifier it was resolved by.
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	article, err := h.articles.GetPublishedBySlugOrID(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			WriteNotFound(w, "article not found")
			return
		}
		WriteInternalError(w, err)
		return
	}

	// A failed view count never blocks the read.
	if err := h.articles.RecordView(r.Context(), article.ID); err != nil {
		slog.Warn("recording article view",
			"category", model.EventCategoryArticle, "id", article.ID, "error", err)
	}

	WriteSuccess(w, articleDetail{
		Article:     article,
		ContentHTML: RenderContent(article.Content),
	})
}

// ListAll serves GET /api/admin/articles with optional q, category, and
// status filters over the full listing, drafts included.
func (h *ArticleHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	articles, err := h.articles.ListAll(r.Context())
	if err != nil {
		WriteInternalError(w, err)
		return
	}

	categories := service.Categories(articles)
	articles = service.Filter(articles, service.FilterSpec{
		Text:     r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
		Status:   r.URL.Query().Get("status"),
	})

	WriteSuccessMeta(w, articles, Meta{Total: len(articles), Categories: categories})
}

// GetByID serves GET /api/admin/articles/{id}, drafts included, so the
// editor can load unpublished work.
func (h *ArticleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	article, err := h.articles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			WriteNotFound(w, "article not found")
			return
		}
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, article)
}

// Create serves POST /api/admin/articles. The body is either JSON or
// multipart form data with an optional staged image. An action value of
// "publish" forces the article live regardless of the published field.
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, publish, err := h.parseSaveRequest(r, 0)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	h.save(w, r, params, publish, true)
}

// Update serves PUT /api/admin/articles/{id}.
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	params, publish, err := h.parseSaveRequest(r, id)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	h.save(w, r, params, publish, false)
}

func (h *ArticleHandler) save(w http.ResponseWriter, r *http.Request, params service.SaveParams, publish, created bool) {
	var article model.Article
	var err error
	if publish {
		article, err = h.articles.Publish(r.Context(), params)
	} else {
		article, err = h.articles.SaveDraft(r.Context(), params)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			WriteBadRequest(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			WriteNotFound(w, "article not found")
		default:
			WriteInternalError(w, err)
		}
		return
	}

	h.audit(r, "article saved: "+article.Title)
	if created {
		WriteCreated(w, article)
		return
	}
	WriteSuccess(w, article)
}

// TogglePublished serves POST /api/admin/articles/{id}/publish.
func (h *ArticleHandler) TogglePublished(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	article, err := h.articles.TogglePublished(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			WriteNotFound(w, "article not found")
			return
		}
		WriteInternalError(w, err)
		return
	}

	if article.Published {
		h.audit(r, "article published: "+article.Title)
	} else {
		h.audit(r, "article unpublished: "+article.Title)
	}
	WriteSuccess(w, article)
}

// Delete serves DELETE /api/admin/articles/{id}.
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.articles.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			WriteNotFound(w, "article not found")
			return
		}
		WriteInternalError(w, err)
		return
	}

	h.audit(r, "article deleted: "+strconv.FormatInt(id, 10))
	WriteSuccess(w, map[string]bool{"deleted": true})
}

// Stats serves GET /api/admin/stats for the dashboard.
func (h *ArticleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.articles.Stats(r.Context())
	if err != nil {
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, map[string]int64{
		"total":       stats.Total,
		"published":   stats.Published,
		"drafts":      stats.Drafts,
		"total_views": stats.TotalViews,
	})
}

// saveRequest is the JSON body for article create and update.
type saveRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Excerpt   string `json:"excerpt"`
	Category  string `json:"category"`
	Tags      string `json:"tags"`
	Author    string `json:"author"`
	Published bool   `json:"published"`
	Featured  bool   `json:"featured"`
	ImageURL  string `json:"image_url"`
	Action    string `json:"action"`
}

// parseSaveRequest reads either a JSON body or a multipart form with an
// optional "image" file into save parameters.
func (h *ArticleHandler) parseSaveRequest(r *http.Request, id int64) (service.SaveParams, bool, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.parseMultipartSave(r, id)
	}

	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		return service.SaveParams{}, false, errors.New("invalid JSON body")
	}
	return service.SaveParams{
		ID:        id,
		Title:     req.Title,
		Content:   req.Content,
		Excerpt:   req.Excerpt,
		Category:  req.Category,
		Tags:      req.Tags,
		Author:    req.Author,
		Published: req.Published,
		Featured:  req.Featured,
		ImageURL:  req.ImageURL,
	}, req.Action == "publish", nil
}

func (h *ArticleHandler) parseMultipartSave(r *http.Request, id int64) (service.SaveParams, bool, error) {
	if err := r.ParseMultipartForm(service.MaxImageSize + 1<<20); err != nil {
		return service.SaveParams{}, false, errors.New("invalid multipart form")
	}

	params := service.SaveParams{
		ID:        id,
		Title:     r.FormValue("title"),
		Content:   r.FormValue("content"),
		Excerpt:   r.FormValue("excerpt"),
		Category:  r.FormValue("category"),
		Tags:      r.FormValue("tags"),
		Author:    r.FormValue("author"),
		Published: r.FormValue("published") == "true",
		Featured:  r.FormValue("featured") == "true",
		ImageURL:  r.FormValue("image_url"),
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer func() { _ = file.Close() }()
		data, readErr := io.ReadAll(io.LimitReader(file, service.MaxImageSize+1))
		if readErr != nil {
			return service.SaveParams{}, false, errors.New("reading image upload")
		}
		params.Image = &service.StagedImage{Filename: header.Filename, Data: data}
	} else if !errors.Is(err, http.ErrMissingFile) {
		return service.SaveParams{}, false, errors.New("invalid image upload")
	}

	return params, r.FormValue("action") == "publish", nil
}

func (h *ArticleHandler) audit(r *http.Request, message string) {
	var userID int64
	if user, ok := middleware.UserFrom(r.Context()); ok {
		userID = user.ID
	}
	h.events.Record(r.Context(), model.EventLevelInfo, model.EventCategoryArticle, message, userID)
}

// parseID reads the {id} route parameter, writing a 400 when malformed.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		WriteBadRequest(w, "invalid article id")
		return 0, false
	}
	return id, true
}
