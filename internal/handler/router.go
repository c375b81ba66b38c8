// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sarmadcodes/tbc/internal/config"
	"github.com/sarmadcodes/tbc/internal/middleware"
	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/store"
)

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	Config   *config.Config
	Sessions *scs.SessionManager
	Queries  *store.Queries

	Articles *ArticleHandler
	Auth     *AuthHandler
	Media    *MediaHandler
	APIKeys  *APIKeyHandler
	Events   *EventHandler
	Health   *HealthHandler
}

// NewRouter builds the full route tree: public article browsing, session
// authenticated admin routes, and an API-key authenticated surface for
// headless clients.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(deps.Config.AllowedOrigins))

	r.Get("/api/health", deps.Health.Health)

	// Public browsing surface. No session required.
	r.Group(func(r chi.Router) {
		r.Get("/api/articles", deps.Articles.ListPublished)
		r.Get("/api/articles/featured", deps.Articles.ListFeatured)
		r.Get("/api/articles/{identifier}", deps.Articles.GetArticle)
	})

	// Session-backed routes.
	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.LoadAndSave)
		r.Use(middleware.LoadUser(deps.Sessions, deps.Queries))

		r.Post("/api/auth/login", deps.Auth.Login)
		r.Post("/api/auth/logout", deps.Auth.Logout)
		r.Get("/api/auth/session", deps.Auth.Session)

		r.Route("/api/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(model.CapArticlesRead))
				r.Get("/articles", deps.Articles.ListAll)
				r.Get("/articles/{id}", deps.Articles.GetByID)
				r.Get("/stats", deps.Articles.Stats)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(model.CapArticlesWrite))
				r.Post("/articles", deps.Articles.Create)
				r.Put("/articles/{id}", deps.Articles.Update)
				r.Delete("/articles/{id}", deps.Articles.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(model.CapArticlesPublish))
				r.Post("/articles/{id}/publish", deps.Articles.TogglePublished)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(model.CapMediaWrite))
				r.Post("/media", deps.Media.Upload)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(model.CapAdminAccess))
				r.Get("/events", deps.Events.List)
				r.Get("/keys", deps.APIKeys.List)
				r.Post("/keys", deps.APIKeys.Create)
				r.Post("/keys/{id}/revoke", deps.APIKeys.Revoke)
				r.Delete("/keys/{id}", deps.APIKeys.Delete)
			})
		})
	})

	// API-key surface for headless clients, read-only articles.
	keyAuth := middleware.NewAPIKeyAuth(deps.Queries, 120)
	r.Group(func(r chi.Router) {
		r.Use(keyAuth.Require(model.PermissionArticlesRead))
		r.Get("/api/v1/articles", deps.Articles.ListPublished)
		r.Get("/api/v1/articles/featured", deps.Articles.ListFeatured)
		r.Get("/api/v1/articles/{identifier}", deps.Articles.GetArticle)
	})

	// Uploaded article images.
	uploads := http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(deps.Config.UploadsDir)))
	r.Handle("/uploads/*", uploads)

	return r
}
