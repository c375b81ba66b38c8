// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
)

const testSecret = "Xk2p!mVn9qRt4wYz7bCd1fGh3jLs6uA8"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TBC_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/tbc.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("default env should be development")
	}
	if cfg.FeaturedLimit != 3 {
		t.Errorf("FeaturedLimit = %d, want 3", cfg.FeaturedLimit)
	}
	if cfg.EventRetention != 90 {
		t.Errorf("EventRetention = %d, want 90", cfg.EventRetention)
	}
	if cfg.UseRedisCache() {
		t.Error("redis cache should be off by default")
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("TBC_SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without a session secret")
	}
}

func TestLoadShortSecret(t *testing.T) {
	t.Setenv("TBC_SESSION_SECRET", "tooshort")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject a short secret")
	}
	if !strings.Contains(err.Error(), "at least") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadWeakKnownSecret(t *testing.T) {
	t.Setenv("TBC_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a known default secret")
	}
}

func TestAdminEmails(t *testing.T) {
	t.Setenv("TBC_SESSION_SECRET", testSecret)
	t.Setenv("TBC_ADMIN_EMAILS", "ed@example.com, chief@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.IsAdminEmail("ed@example.com") {
		t.Error("configured email not recognized")
	}
	if !cfg.IsAdminEmail("CHIEF@example.com") {
		t.Error("admin email match should be case-insensitive")
	}
	if cfg.IsAdminEmail("intruder@example.com") {
		t.Error("unconfigured email recognized as admin")
	}
}
