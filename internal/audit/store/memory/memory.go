// Package memory provides an in-memory audit store for tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"acip/internal/audit"
	"acip/internal/sentinel"
)

// Store is an in-memory append-only audit store.
type Store struct {
	mu      sync.Mutex
	entries map[string][]audit.Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string][]audit.Entry)}
}

// Append stores the entry with the next per-case sequence number.
func (s *Store) Append(_ context.Context, entry audit.Entry) (*audit.Entry, error) {
	if entry.CaseID == "" {
		return nil, sentinel.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Sequence = len(s.entries[entry.CaseID]) + 1
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.entries[entry.CaseID] = append(s.entries[entry.CaseID], entry)

	stored := entry
	return &stored, nil
}

// List returns the ordered entries for a case.
func (s *Store) List(_ context.Context, caseID string) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.entries[caseID]
	out := make([]audit.Entry, len(src))
	copy(out, src)
	return out, nil
}
