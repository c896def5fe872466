// Package countstore keeps per-hour action counters used to enforce hourly caps.
package countstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type CountStore interface {
	// GetCount returns the count recorded for name in the hour containing at.
	GetCount(ctx context.Context, name string, at time.Time) (int, error)
	Increment(ctx context.Context, name string, at time.Time) error
}

func hourBucket(name string, at time.Time) string {
	return fmt.Sprintf("%s/%s", name, at.UTC().Format("2006-01-02T15"))
}

type MemCountStore struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{counts: make(map[string]int)}
}

func (s *MemCountStore) GetCount(ctx context.Context, name string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[hourBucket(name, at)], nil
}

func (s *MemCountStore) Increment(ctx context.Context, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[hourBucket(name, at)]++
	return nil
}
