// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Hello", "hello"},
		{"punctuation collapses", "Hello, World!", "hello-world"},
		{"multiple spaces", "a   b", "a-b"},
		{"leading and trailing junk", "  --Title--  ", "title"},
		{"accents fold", "Café Olé", "cafe-ole"},
		{"numbers kept", "Top 10 of 2026", "top-10-of-2026"},
		{"whitespace only", "   ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	valid := []string{"hello", "hello-world", "top-10"}
	for _, s := range valid {
		if !IsValidSlug(s) {
			t.Errorf("IsValidSlug(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "Hello", "hello world", "hello--", "-hello"}
	for _, s := range invalid {
		if IsValidSlug(s) {
			t.Errorf("IsValidSlug(%q) = true, want false", s)
		}
	}
}
