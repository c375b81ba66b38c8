// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sarmadcodes/tbc/internal/model"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, permissions,
	last_used_at, expires_at, is_active, created_by, created_at, updated_at`

func scanAPIKey(row interface{ Scan(...any) error }) (model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Permissions,
		&k.LastUsedAt, &k.ExpiresAt, &k.IsActive, &k.CreatedBy,
		&k.CreatedAt, &k.UpdatedAt)
	return k, err
}

// CreateAPIKeyParams holds the fields written when issuing an API key.
type CreateAPIKeyParams struct {
	Name        string
	KeyHash     string
	KeyPrefix   string
	Permissions string // JSON array
	ExpiresAt   sql.NullTime
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateAPIKey inserts a new API key and returns the stored row.
func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (name, key_hash, key_prefix, permissions,
			expires_at, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)
		RETURNING `+apiKeyColumns,
		arg.Name, arg.KeyHash, arg.KeyPrefix, arg.Permissions,
		arg.ExpiresAt, arg.CreatedBy, arg.CreatedAt, arg.UpdatedAt)
	return scanAPIKey(row)
}

// GetAPIKeyByHash returns the API key with the given hash.
func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?`, keyHash)
	return scanAPIKey(row)
}

// ListAPIKeys returns every API key, newest first.
func (q *Queries) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SetAPIKeyActive enables or disables an API key.
func (q *Queries) SetAPIKeyActive(ctx context.Context, id int64, active bool, at time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE api_keys SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, at, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// TouchAPIKey records the last time a key was used.
func (q *Queries) TouchAPIKey(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, at, id)
	return err
}

// DeleteAPIKey removes an API key permanently.
func (q *Queries) DeleteAPIKey(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}
