// Package memory provides an in-memory case store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"

	"acip/internal/cases"
	"acip/internal/sentinel"
)

// Store keeps cases in a map guarded by a mutex.
type Store struct {
	mu    sync.RWMutex
	cases map[string]cases.Case
}

// New creates an empty in-memory case store.
func New() *Store {
	return &Store{cases: make(map[string]cases.Case)}
}

// Put inserts or replaces the case.
func (s *Store) Put(_ context.Context, c cases.Case) error {
	if c.CaseID == "" {
		return sentinel.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.CaseID] = c
	return nil
}

// Get returns the case by ID.
func (s *Store) Get(_ context.Context, caseID string) (*cases.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

// List returns all cases ordered by creation time, newest first.
func (s *Store) List(_ context.Context) ([]cases.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]cases.Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CaseID < out[j].CaseID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
