// Package segcache remembers the most recently created inactive segment per
// caller so the export flow can run without an explicit segment id. The
// cache is advisory: export always prefers an explicitly supplied id.
package segcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Store maps a caller key to the last inactive segment id for that caller.
// Writes are last-write-wins.
type Store interface {
	Put(ctx context.Context, callerKey, segmentID string) error
	Get(ctx context.Context, callerKey string) (string, bool, error)
}

// CallerKey derives the cache key from a caller's full API credential.
// The credential itself is never stored; only its SHA-256 digest is.
func CallerKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// Memory is an in-process Store. Entries live for the process lifetime with
// no expiry; a new analysis from the same caller overwrites the previous id.
type Memory struct {
	mu       sync.RWMutex
	segments map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{segments: make(map[string]string)}
}

// Put records segmentID as the latest segment for callerKey.
func (m *Memory) Put(_ context.Context, callerKey, segmentID string) error {
	m.mu.Lock()
	m.segments[callerKey] = segmentID
	m.mu.Unlock()
	return nil
}

// Get returns the latest segment id for callerKey.
func (m *Memory) Get(_ context.Context, callerKey string) (string, bool, error) {
	m.mu.RLock()
	id, ok := m.segments[callerKey]
	m.mu.RUnlock()
	return id, ok, nil
}
