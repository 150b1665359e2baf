// Package idempotency remembers the outcome of client requests that carry an
// Idempotency-Key so that a retried request replays the first result.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

// ErrInFlight is returned while another request holds the same key.
var ErrInFlight = domain.New(domain.ErrConflict, "request_in_progress", "a request with this idempotency key is still running")

// Store keeps one entry per key. An entry is either pending (held by a
// running request) or completed with a result.
type Store interface {
	// Lookup returns the result of a completed request.
	Lookup(ctx context.Context, key string) (result string, found bool, err error)
	// Acquire marks key pending for ttl, or fails with ErrInFlight if the
	// key is already taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) error
	// Complete stores result under key for ttl.
	Complete(ctx context.Context, key, result string, ttl time.Duration) error
	// Release drops a pending key so the request can be retried.
	Release(ctx context.Context, key string) error
}

type memoryEntry struct {
	result    string
	pending   bool
	expiresAt time.Time
}

// MemoryStore is an in-process Store for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) get(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if ok && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, ok
}

func (s *MemoryStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key)
	if !ok || e.pending {
		return "", false, nil
	}
	return e.result, true, nil
}

func (s *MemoryStore) Acquire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(key); ok {
		return ErrInFlight
	}
	s.entries[key] = memoryEntry{pending: true, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, key, result string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{result: result, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.get(key); ok && e.pending {
		delete(s.entries, key)
	}
	return nil
}
