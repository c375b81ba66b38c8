// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per account so a stolen email
// cannot be brute forced. Limiters are kept in memory and pruned when
// stale.
type LoginLimiter struct {
	mu      sync.Mutex
	entries map[string]*loginEntry
	limit   rate.Limit
	burst   int
}

type loginEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter allows burst immediate attempts per account, refilling
// one attempt every interval.
func NewLoginLimiter(interval time.Duration, burst int) *LoginLimiter {
	return &LoginLimiter{
		entries: make(map[string]*loginEntry),
		limit:   rate.Every(interval),
		burst:   burst,
	}
}

// Allow reports whether another attempt for the account may proceed now.
func (l *LoginLimiter) Allow(account string) bool {
	account = strings.ToLower(strings.TrimSpace(account))

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[account]
	if !ok {
		entry = &loginEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[account] = entry
	}
	entry.lastSeen = time.Now()

	l.pruneLocked()
	return entry.limiter.Allow()
}

// pruneLocked drops accounts idle for over an hour. Called with l.mu held.
func (l *LoginLimiter) pruneLocked() {
	cutoff := time.Now().Add(-time.Hour)
	for account, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, account)
		}
	}
}
