// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"
)

// API permissions
const (
	PermissionArticlesRead  = "articles:read"
	PermissionArticlesWrite = "articles:write"
	PermissionMediaWrite    = "media:write"
)

// AllPermissions returns all available API permissions.
func AllPermissions() []string {
	return []string{
		PermissionArticlesRead,
		PermissionArticlesWrite,
		PermissionMediaWrite,
	}
}

// APIKey represents an API authentication key for headless clients.
type APIKey struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	KeyHash     string       `json:"-"` // Never expose hash in JSON
	KeyPrefix   string       `json:"key_prefix"`
	Permissions string       `json:"-"` // JSON array stored as string
	LastUsedAt  sql.NullTime `json:"last_used_at,omitempty"`
	ExpiresAt   sql.NullTime `json:"expires_at,omitempty"`
	IsActive    bool         `json:"is_active"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// GenerateAPIKey generates a new random API key.
// Returns the raw key (to show user once) and the key prefix.
func GenerateAPIKey() (rawKey string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}

	rawKey = base64.URLEncoding.EncodeToString(bytes)
	prefix = rawKey[:8]

	return rawKey, prefix, nil
}

// HashAPIKey creates a SHA-256 hash of the API key for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// GetPermissions parses the JSON permissions string into a slice.
func (k *APIKey) GetPermissions() []string {
	var perms []string
	if k.Permissions == "" || k.Permissions == "[]" {
		return perms
	}
	_ = json.Unmarshal([]byte(k.Permissions), &perms)
	return perms
}

// HasPermission checks if the API key has a specific permission.
func (k *APIKey) HasPermission(perm string) bool {
	for _, p := range k.GetPermissions() {
		if p == perm {
			return true
		}
	}
	return false
}

// IsExpired checks if the API key has expired.
func (k *APIKey) IsExpired() bool {
	if !k.ExpiresAt.Valid {
		return false // No expiration set
	}
	return time.Now().After(k.ExpiresAt.Time)
}

// IsValid checks if the API key is active and not expired.
func (k *APIKey) IsValid() bool {
	return k.IsActive && !k.IsExpired()
}

// PermissionsToJSON converts a slice of permissions to a JSON string.
func PermissionsToJSON(perms []string) string {
	if len(perms) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(perms)
	return string(data)
}
