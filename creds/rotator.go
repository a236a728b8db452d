// Package creds implements round-robin rotation over a fixed pool of
// API secrets, used to spread load and quota across multiple accounts.
package creds

import (
	"strings"
	"sync"
)

// Rotator dispenses secrets from an ordered pool in strict round-robin
// order. It is safe for concurrent use: rotation correctness (each
// credential used before any repeats) depends on the cursor advancing
// sequentially, so Next holds a mutex around the increment.
type Rotator struct {
	mu   sync.Mutex
	pool []string
	idx  int
}

// NewRotator parses a comma-delimited credential string into a pool.
// Entries are trimmed; empty entries are dropped. An empty source
// yields an empty pool, which never errors; Next simply reports
// unavailability.
func NewRotator(raw string) *Rotator {
	parts := strings.Split(raw, ",")
	pool := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			pool = append(pool, trimmed)
		}
	}
	return &Rotator{pool: pool}
}

// Next returns the secret at the cursor and advances modulo pool size.
// The second return is false when the pool is empty.
func (r *Rotator) Next() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pool) == 0 {
		return "", false
	}
	s := r.pool[r.idx]
	r.idx = (r.idx + 1) % len(r.pool)
	return s, true
}

// Current peeks at the secret under the cursor without advancing.
func (r *Rotator) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pool) == 0 {
		return "", false
	}
	return r.pool[r.idx], true
}

// Count returns the pool size.
func (r *Rotator) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}

// HasAny reports whether the pool holds at least one secret.
func (r *Rotator) HasAny() bool {
	return r.Count() > 0
}

// Reset moves the cursor back to the start of the pool.
func (r *Rotator) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idx = 0
}

// SetIndex positions the cursor for deterministic testing. Out-of-range
// values are reduced modulo the pool size.
func (r *Rotator) SetIndex(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pool) == 0 {
		r.idx = 0
		return
	}
	r.idx = ((i % len(r.pool)) + len(r.pool)) % len(r.pool)
}
