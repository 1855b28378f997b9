// Package otp issues and verifies short-lived one-time codes bound to a phone identifier.
package otp

import (
	"context"
	"sync"
	"time"
)

// Entry is the single outstanding code for a phone. The code itself is never stored.
type Entry struct {
	CodeHash  string
	ExpiresAt time.Time
}

func (e Entry) same(o Entry) bool {
	return e.CodeHash == o.CodeHash && e.ExpiresAt.Equal(o.ExpiresAt)
}

// Store keeps at most one Entry per phone.
type Store interface {
	// Put stores e for phone, replacing any previous entry.
	Put(ctx context.Context, phone string, e Entry) error
	// Get returns the entry for phone, expired or not.
	Get(ctx context.Context, phone string) (Entry, bool, error)
	// CompareAndDelete removes the entry only if it still equals e.
	// It reports false when the entry is gone or was replaced.
	CompareAndDelete(ctx context.Context, phone string, e Entry) (bool, error)
}

// Purger drops expired entries; implemented by stores without native expiry.
type Purger interface {
	Purge(ctx context.Context) int
}

// MemoryStore is an in-process Store. Entries do not survive a restart and are
// not shared between instances.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]Entry
	nowF func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]Entry),
		nowF: time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, phone string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[phone] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, phone string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[phone]
	return e, ok, nil
}

func (s *MemoryStore) CompareAndDelete(_ context.Context, phone string, e Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[phone]
	if !ok || !cur.same(e) {
		return false, nil
	}
	delete(s.m, phone)
	return true, nil
}

// Purge removes entries whose expiry has passed and returns how many were dropped.
func (s *MemoryStore) Purge(_ context.Context) int {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for phone, e := range s.m {
		if !now.Before(e.ExpiresAt) {
			delete(s.m, phone)
			n++
		}
	}
	return n
}

// Len is the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
