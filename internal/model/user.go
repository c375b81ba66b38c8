// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// User roles
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Capabilities checked by handlers and middleware. Roles map to capability
// sets rather than being compared directly, so granting a capability to a
// new role is a table change here, not a code audit.
const (
	CapArticlesRead    = "articles:read"
	CapArticlesWrite   = "articles:write"
	CapArticlesPublish = "articles:publish"
	CapMediaWrite      = "media:write"
	CapAdminAccess     = "admin:access"
)

// roleCapabilities maps each role to the capabilities it grants.
var roleCapabilities = map[string][]string{
	RoleAdmin: {
		CapArticlesRead,
		CapArticlesWrite,
		CapArticlesPublish,
		CapMediaWrite,
		CapAdminAccess,
	},
	RoleEditor: {
		CapArticlesRead,
		CapArticlesWrite,
	},
}

// User represents an authenticated account.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Role         string       `json:"role"`
	Name         string       `json:"name"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Can reports whether the user's role grants the given capability.
func (u *User) Can(capability string) bool {
	for _, c := range roleCapabilities[u.Role] {
		if c == capability {
			return true
		}
	}
	return false
}
