// Package preview holds SQL statements that were validated in a dry run and
// are awaiting user confirmation. Entries are immutable once created and are
// removed either by a successful execution or by the TTL sweep; the store is
// process-local and non-durable.
package preview

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrNotFound is returned when a preview id is unknown or expired.
var ErrNotFound = errors.New("preview not found")

// DefaultTTL bounds how long an unconfirmed preview stays executable.
const DefaultTTL = time.Hour

// Pending is a stored query awaiting confirmation.
type Pending struct {
	ID        string
	Query     string
	UserID    string
	UserRole  string
	CreatedAt time.Time
}

// Store is the pipeline's view of the preview holding area. Delete is
// idempotent so a confirmation and a sweep may race on the same id safely.
type Store interface {
	Put(ctx context.Context, query, userID, userRole string) (string, error)
	Get(ctx context.Context, id string) (Pending, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is the in-process Store implementation. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Pending
	ttl     time.Duration
	clock   func() time.Time
}

// NewMemoryStore builds a store with the given TTL; a non-positive ttl falls
// back to DefaultTTL. The clock is injectable for tests; nil means time.Now.
func NewMemoryStore(ttl time.Duration, clock func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		entries: map[string]Pending{},
		ttl:     ttl,
		clock:   clock,
	}
}

// Put stores the query and returns a fresh id. IDs carry a time prefix plus a
// random suffix; a collision with a live entry re-rolls.
func (s *MemoryStore) Put(_ context.Context, query, userID, userRole string) (string, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < 5; attempt++ {
		id, err := newID(now)
		if err != nil {
			return "", err
		}
		if _, exists := s.entries[id]; exists {
			continue
		}
		s.entries[id] = Pending{
			ID:        id,
			Query:     query,
			UserID:    userID,
			UserRole:  userRole,
			CreatedAt: now,
		}
		return id, nil
	}
	return "", fmt.Errorf("could not allocate a unique preview id")
}

// Get returns the entry for id. An entry past its TTL is NotFound even if the
// sweep has not removed it yet.
func (s *MemoryStore) Get(_ context.Context, id string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return Pending{}, ErrNotFound
	}
	if s.clock().Sub(entry.CreatedAt) > s.ttl {
		delete(s.entries, id)
		return Pending{}, ErrNotFound
	}
	return entry, nil
}

// Delete removes id if present. Deleting an absent id is a no-op.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// expiredIDs snapshots the ids past their TTL so the sweep can delete them
// without holding the lock across the whole operation.
func (s *MemoryStore) expiredIDs() []string {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, entry := range s.entries {
		if now.Sub(entry.CreatedAt) > s.ttl {
			ids = append(ids, id)
		}
	}
	return ids
}

func newID(now time.Time) (string, error) {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate preview id: %w", err)
	}
	return strconv.FormatInt(now.UnixNano(), 36) + "-" + hex.EncodeToString(suffix), nil
}
