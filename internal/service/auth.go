// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sarmadcodes/tbc/internal/auth"
	"github.com/sarmadcodes/tbc/internal/model"
)

// Authentication outcomes. Bad credentials and a valid account that lacks
// admin access are reported distinctly: the second must not be retried
// with another password.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("account is not authorized for admin access")
)

// UserStore is the store surface the auth service depends on.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error
}

// AuthService verifies credentials and gates admin access by capability.
type AuthService struct {
	store UserStore
}

func NewAuthService(st UserStore) *AuthService {
	return &AuthService{store: st}
}

// Authenticate checks the credentials and the account's authoring
// capability. It returns ErrInvalidCredentials for unknown accounts and
// wrong passwords alike, and ErrUnauthorized when the password is right
// but the account's role grants no authoring access at all. Callers must
// not establish a session on any error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a hash anyway so unknown accounts cost the same as
			// wrong passwords.
			_, _ = auth.CheckPassword(password, auth.DummyHash)
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		return model.User{}, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}

	if !user.Can(model.CapArticlesRead) {
		slog.Warn("authenticated account lacks authoring access",
			"category", model.EventCategoryAuth, "email", email, "role", user.Role)
		return model.User{}, ErrUnauthorized
	}

	if err := s.store.UpdateUserLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		slog.Warn("updating last login", "category", model.EventCategoryAuth, "error", err)
	}

	return user, nil
}
