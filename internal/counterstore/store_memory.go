package counterstore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// InMemoryStore implements Store with a process-local map. It exists for
// tests and single-instance development runs; distributed deployments must
// use RedisStore since in-process counters are not shared across instances.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	// now is swappable in tests.
	now func() time.Time
	// failing simulates an outage; every call returns ErrUnavailable.
	failing bool
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemory constructs an in-memory counter store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, ErrUnavailable
	}

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || entry.expired(now) {
		entry = &memoryEntry{value: "1"}
		if ttl > 0 {
			entry.expiresAt = now.Add(ttl)
		}
		s.entries[key] = entry
		return 1, nil
	}

	n, err := strconv.ParseInt(entry.value, 10, 64)
	if err != nil {
		n = 0
	}
	n++
	entry.value = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return "", ErrUnavailable
	}

	entry, ok := s.entries[key]
	if !ok || entry.expired(s.now()) {
		delete(s.entries, key)
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (s *InMemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return ErrUnavailable
	}

	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *InMemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return false, ErrUnavailable
	}

	entry, ok := s.entries[key]
	if !ok || entry.expired(s.now()) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

func (s *InMemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, ErrUnavailable
	}

	entry, ok := s.entries[key]
	now := s.now()
	if !ok || entry.expired(now) || entry.expiresAt.IsZero() {
		return 0, nil
	}
	return entry.expiresAt.Sub(now), nil
}

func (s *InMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return ErrUnavailable
	}

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// SetFailing toggles outage simulation. Test hook only.
func (s *InMemoryStore) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// SetClock overrides the time source. Test hook only.
func (s *InMemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

var _ Store = (*InMemoryStore)(nil)
