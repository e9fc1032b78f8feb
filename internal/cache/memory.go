package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. It is concurrency-safe and intended for
// local development and tests; entries do not survive restarts or span instances.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string]memoryEntry
	clock func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore constructs an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]memoryEntry),
		clock: time.Now,
	}
}

// WithClock overrides the time source, primarily for tests.
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	if clock != nil {
		s.clock = clock
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.data[key] = entry
	return nil
}

func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(key)
	var count int64
	if ok {
		current, err := strconv.ParseInt(string(entry.value), 10, 64)
		if err != nil {
			return 0, err
		}
		count = current
	}
	count++

	entry.value = []byte(strconv.FormatInt(count, 10))
	if count == 1 && window > 0 {
		entry.expiresAt = s.clock().Add(window)
	}
	s.data[key] = entry
	return count, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len reports the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.data {
		if _, ok := s.liveLocked(key); ok {
			n++
		}
	}
	return n
}

func (s *MemoryStore) liveLocked(key string) (memoryEntry, bool) {
	entry, ok := s.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !s.clock().Before(entry.expiresAt) {
		delete(s.data, key)
		return memoryEntry{}, false
	}
	return entry, true
}
