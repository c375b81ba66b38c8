// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarmadcodes/tbc/internal/auth"
	"github.com/sarmadcodes/tbc/internal/model"
)

// Default admin credentials used when no admin accounts are configured.
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// SeedAdmins ensures every configured admin email has an account with the
// admin role. With no configured emails a default admin is created so a
// fresh install is reachable.
func SeedAdmins(ctx context.Context, db *sql.DB, adminEmails []string, adminPassword string) error {
	queries := New(db)

	if len(adminEmails) == 0 {
		adminEmails = []string{DefaultAdminEmail}
	}
	if adminPassword == "" {
		adminPassword = DefaultAdminPassword
	}

	for _, email := range adminEmails {
		if err := seedAdmin(ctx, queries, email, adminPassword); err != nil {
			return err
		}
	}

	return nil
}

func seedAdmin(ctx context.Context, queries *Queries, email, password string) error {
	existing, err := queries.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role == model.RoleAdmin {
			return nil
		}
		// Promote a pre-existing account named in the admin set.
		_, uerr := queries.db.ExecContext(ctx,
			`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
			model.RoleAdmin, time.Now(), existing.ID)
		if uerr != nil {
			return fmt.Errorf("promoting admin %s: %w", email, uerr)
		}
		slog.Info("promoted existing user to admin", "email", email)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
		Name:         DefaultAdminName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created admin user", "id", user.ID, "email", user.Email)
	return nil
}

// SeedDemo inserts a handful of demo articles on an empty database when
// seeding is enabled. Never touches a database that already has articles.
func SeedDemo(ctx context.Context, db *sql.DB, enabled bool) error {
	if !enabled {
		return nil
	}

	queries := New(db)

	stats, err := queries.GetArticleStats(ctx)
	if err != nil {
		return fmt.Errorf("checking article count: %w", err)
	}
	if stats.Total > 0 {
		return nil
	}

	now := time.Now()
	demos := []CreateArticleParams{
		{
			Title:     "Welcome to the Chronicle",
			Content:   "This is the first article of your new magazine.\n\nEdit or delete it from the admin area, then publish your own stories.",
			Excerpt:   "This is the first article of your new magazine.",
			Category:  "Human Interest",
			Tags:      `["welcome"]`,
			Author:    "Admin",
			CreatedAt: now,
			UpdatedAt: now,
			Published: true,
			Featured:  true,
			ReadTime:  1,
			Slug:      "welcome-to-the-chronicle",
		},
		{
			Title:     "A Draft in Progress",
			Content:   "Drafts stay private until published.",
			Excerpt:   "Drafts stay private until published.",
			Category:  "Technology",
			Tags:      `[]`,
			Author:    "Admin",
			CreatedAt: now.Add(-time.Hour),
			UpdatedAt: now.Add(-time.Hour),
			Published: false,
			ReadTime:  1,
			Slug:      "a-draft-in-progress",
		},
	}

	for _, d := range demos {
		if _, err := queries.CreateArticle(ctx, d); err != nil {
			return fmt.Errorf("seeding demo article %q: %w", d.Title, err)
		}
	}

	slog.Info("seeded demo articles", "count", len(demos))
	return nil
}
