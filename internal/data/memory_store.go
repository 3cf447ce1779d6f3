package data

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryStoreSize bounds the number of keys held by a MemoryCounterStore.
// Each breaker uses at most four keys.
const DefaultMemoryStoreSize = 4096

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCounterStore is an in-process counter store with per-key expiry.
// State is only shared between breakers of the same process.
type MemoryCounterStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryCounterStore creates a store holding at most size keys; the least recently
// used key is evicted beyond that.
func NewMemoryCounterStore(size int) *MemoryCounterStore {
	if size <= 0 {
		size = DefaultMemoryStoreSize
	}
	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &MemoryCounterStore{cache: cache, now: time.Now}
}

// SetClock replaces time.Now, for tests.
func (s *MemoryCounterStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// lookup returns a live entry, dropping it when expired. Callers hold mu.
func (s *MemoryCounterStore) lookup(key string) (memoryEntry, bool) {
	entry, ok := s.cache.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(s.now()) {
		s.cache.Remove(key)
		return memoryEntry{}, false
	}
	return entry, true
}

// Get returns the value of key.
func (s *MemoryCounterStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	return entry.value, ok, nil
}

// Set stores value under key; a zero ttl keeps it until deleted.
func (s *MemoryCounterStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.cache.Add(key, entry)
	return nil
}

// Incr adds one to key, keeping its expiry.
func (s *MemoryCounterStore) Incr(_ context.Context, key string) (int64, error) {
	return s.add(key, 1)
}

// Decr subtracts one from key, keeping its expiry.
func (s *MemoryCounterStore) Decr(_ context.Context, key string) (int64, error) {
	return s.add(key, -1)
}

func (s *MemoryCounterStore) add(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	var n int64
	if ok {
		var err error
		n, err = strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("memory: value of key %s is not an integer", key)
		}
	}
	n += delta
	entry.value = strconv.FormatInt(n, 10)
	s.cache.Add(key, entry)
	return n, nil
}

// Expire sets the TTL of an existing key. A non-positive ttl deletes it.
func (s *MemoryCounterStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		s.cache.Remove(key)
		return nil
	}
	entry.expiresAt = s.now().Add(ttl)
	s.cache.Add(key, entry)
	return nil
}

// Del removes keys.
func (s *MemoryCounterStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.cache.Remove(key)
	}
	return nil
}

// Len returns the number of keys held, including expired ones not yet dropped.
func (s *MemoryCounterStore) Len() int {
	return s.cache.Len()
}
