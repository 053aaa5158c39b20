package ratelimiter

import (
	"errors"
	"sync"
	"time"
)

var ErrCacheMiss = errors.New("ratelimiter: key not found")

// Store keeps bucket state. Limiters that share a Store use distinct key
// prefixes.
type Store interface {
	Get(key string) (int, error)
	SetWithExpiration(key string, value int, expiration time.Duration) error
	Delete(keys ...string) error
	Close() error
}

type memoryEntry struct {
	value     int
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are swept on write,
// at most once per sweepEvery.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	now        func() time.Time
	sweepEvery time.Duration
	nextSweep  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
		sweepEvery: time.Minute,
	}
}

func (s *MemoryStore) Get(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		return 0, ErrCacheMiss
	}
	return e.value, nil
}

func (s *MemoryStore) SetWithExpiration(key string, value int, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := memoryEntry{value: value}
	if expiration > 0 {
		e.expiresAt = now.Add(expiration)
	}
	s.entries[key] = e

	if now.After(s.nextSweep) {
		for k, entry := range s.entries {
			if entry.expired(now) {
				delete(s.entries, k)
			}
		}
		s.nextSweep = now.Add(s.sweepEvery)
	}
	return nil
}

func (s *MemoryStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// Len counts stored entries, expired ones included until the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
