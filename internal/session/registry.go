// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/ollama-chat/internal/util"
)

// =============================================================================
// REGISTRY CONFIG
// =============================================================================

// Config holds configuration for a Registry.
type Config struct {
	// IdleTimeout is how long a session may go unused before it is evicted
	// (default: 2 hours). Eviction ends the session; nothing is persisted.
	IdleTimeout time.Duration

	// SweepInterval is how often Run looks for idle sessions (default: 1 minute)
	SweepInterval time.Duration
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   2 * time.Hour,
		SweepInterval: time.Minute,
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// entry is one browser session. mu is held for the whole of an action so a
// session only ever runs one action at a time.
type entry[T any] struct {
	mu           sync.Mutex
	value        T
	startTime    time.Time
	lastActivity time.Time
}

// Registry maps opaque session ids (browser cookies) to per-session values.
//
// Sessions are created on first use and evicted after IdleTimeout. Different
// sessions never share a value.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]

	newValue func() T
	timeout  time.Duration
	sweep    time.Duration
	logger   *slog.Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewRegistry creates a registry that builds fresh session values with
// newValue.
func NewRegistry[T any](cfg Config, newValue func() T, logger *slog.Logger) *Registry[T] {
	def := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry[T]{
		entries:  make(map[string]*entry[T]),
		newValue: newValue,
		timeout:  cfg.IdleTimeout,
		sweep:    cfg.SweepInterval,
		logger:   logger,
		now:      time.Now,
	}
}

// Do runs fn with the value of session id while holding that session's lock.
//
// When id is empty, unknown or expired a new session is created under a fresh
// id; the id actually used is returned so the caller can hand it back to the
// browser. Ids supplied by the client are never adopted.
func (r *Registry[T]) Do(id string, fn func(v T)) string {
	id, e := r.acquire(id)
	defer e.mu.Unlock()
	fn(e.value)
	return id
}

// Peek is Do for callers that must not create sessions. It reports whether
// id named a live session.
func (r *Registry[T]) Peek(id string, fn func(v T)) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok && r.expired(e) {
		r.evictLocked(id, "expired")
		ok = false
	}
	if ok {
		e.lastActivity = r.now()
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.value)
	return true
}

func (r *Registry[T]) acquire(id string) (string, *entry[T]) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok && r.expired(e) {
		r.evictLocked(id, "expired")
		ok = false
	}
	if !ok {
		id = uuid.NewString()
		now := r.now()
		e = &entry[T]{value: r.newValue(), startTime: now, lastActivity: now}
		r.entries[id] = e
		r.logger.Info("session created", "session", shortID(id), "active", len(r.entries))
	}
	e.lastActivity = r.now()
	r.mu.Unlock()

	// Lock outside r.mu so a long action in one session does not block the
	// registry for everyone else.
	e.mu.Lock()
	return id, e
}

// Remove ends session id. It reports whether the session existed.
func (r *Registry[T]) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	r.evictLocked(id, "removed")
	return true
}

// Len returns the number of live sessions.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// =============================================================================
// TIMEOUT CHECKING
// =============================================================================

func (r *Registry[T]) expired(e *entry[T]) bool {
	return r.now().Sub(e.lastActivity) >= r.timeout
}

func (r *Registry[T]) evictLocked(id, reason string) {
	e := r.entries[id]
	delete(r.entries, id)
	r.logger.Info("session ended",
		"session", shortID(id),
		"reason", reason,
		"duration", FormatDuration(r.now().Sub(e.startTime)),
		"active", len(r.entries))
}

// Sweep evicts every idle session and returns how many were removed.
func (r *Registry[T]) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if r.expired(e) {
			r.evictLocked(id, "idle")
			n++
		}
	}
	return n
}

// Run sweeps idle sessions until ctx is done.
func (r *Registry[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current state of one session.
type Status struct {
	SessionID     string
	StartTime     time.Time
	Duration      time.Duration
	IdleTime      time.Duration
	RemainingTime time.Duration
}

// GetStatus returns the status of session id.
func (r *Registry[T]) GetStatus(id string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Status{}, false
	}

	now := r.now()
	idle := now.Sub(e.lastActivity)
	remaining := r.timeout - idle
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		SessionID:     id,
		StartTime:     e.startTime,
		Duration:      now.Sub(e.startTime),
		IdleTime:      idle,
		RemainingTime: remaining,
	}, true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// shortID keeps session ids out of logs in full.
func shortID(id string) string {
	return util.TruncateRunesNoEllipsis(id, 8)
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		secs := int(d.Seconds())
		return util.IntToString(secs) + "s"
	}
	if d >= time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins == 0 {
			return util.IntToString(hours) + "h"
		}
		return util.IntToString(hours) + "h " + util.IntToString(mins) + "m"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return util.IntToString(mins) + "m"
	}
	return util.IntToString(mins) + "m " + util.IntToString(secs) + "s"
}
