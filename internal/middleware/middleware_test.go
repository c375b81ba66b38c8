// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sarmadcodes/tbc/internal/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithUser(user model.User) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

func TestRequireCapabilityAnonymous(t *testing.T) {
	h := RequireCapability(model.CapArticlesRead)(okHandler())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireCapabilityForbidden(t *testing.T) {
	h := RequireCapability(model.CapArticlesPublish)(okHandler())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, requestWithUser(model.User{Role: model.RoleEditor}))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestRequireCapabilityAllowed(t *testing.T) {
	h := RequireCapability(model.CapArticlesPublish)(okHandler())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, requestWithUser(model.User{Role: model.RoleAdmin}))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLoginLimiter(t *testing.T) {
	limiter := NewLoginLimiter(time.Hour, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("user@example.com") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if limiter.Allow("user@example.com") {
		t.Error("fourth rapid attempt should be throttled")
	}
	if !limiter.Allow("other@example.com") {
		t.Error("another account must not share the throttle")
	}
}

func TestLoginLimiterNormalizesAccount(t *testing.T) {
	limiter := NewLoginLimiter(time.Hour, 1)

	if !limiter.Allow("User@Example.com") {
		t.Fatal("first attempt should be allowed")
	}
	if limiter.Allow(" user@example.com ") {
		t.Error("case and whitespace variants must share one bucket")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	h := CORS([]string{"https://site.example"})(okHandler())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://site.example")

	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://site.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("listed origins should allow credentials")
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	h := CORS([]string{"https://site.example"})(okHandler())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")

	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want unset", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(nil)(okHandler())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://any.example")

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("empty origin list should allow any origin")
	}
}

// fakeKeyStore serves one key by hash.
type fakeKeyStore struct {
	key     model.APIKey
	touched bool
}

func (f *fakeKeyStore) GetAPIKeyByHash(_ context.Context, keyHash string) (model.APIKey, error) {
	if keyHash != f.key.KeyHash {
		return model.APIKey{}, sql.ErrNoRows
	}
	return f.key, nil
}

func (f *fakeKeyStore) TouchAPIKey(_ context.Context, _ int64, _ time.Time) error {
	f.touched = true
	return nil
}

func TestAPIKeyAuth(t *testing.T) {
	rawKey := "test-raw-key-value"
	st := &fakeKeyStore{key: model.APIKey{
		ID:          1,
		KeyHash:     model.HashAPIKey(rawKey),
		Permissions: model.PermissionsToJSON([]string{model.PermissionArticlesRead}),
		IsActive:    true,
	}}
	auth := NewAPIKeyAuth(st, 120)
	h := auth.Require(model.PermissionArticlesRead)(okHandler())

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+rawKey)
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if !st.touched {
			t.Error("valid key use should touch last_used_at")
		}
	})

	t.Run("missing permission", func(t *testing.T) {
		writeGate := auth.Require(model.PermissionArticlesWrite)(okHandler())
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+rawKey)
		writeGate.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("revoked key", func(t *testing.T) {
		st.key.IsActive = false
		defer func() { st.key.IsActive = true }()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+rawKey)
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
