// Package memory provides the default in-process checkpoint store.
package memory

import (
	"context"
	"sync"
	"time"

	"acip/internal/sentinel"
	"acip/internal/workflow/checkpoint"
)

// Store is an in-memory checkpoint store.
type Store struct {
	mu          sync.Mutex
	checkpoints map[string]*checkpoint.Checkpoint
}

// New creates an empty store.
func New() *Store {
	return &Store{checkpoints: make(map[string]*checkpoint.Checkpoint)}
}

// Put stores the checkpoint.
func (s *Store) Put(_ context.Context, cp checkpoint.Checkpoint) error {
	if cp.InstanceID == "" {
		return sentinel.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.InstanceID] = &cp
	return nil
}

// Get returns a copy of the checkpoint.
func (s *Store) Get(_ context.Context, instanceID string) (*checkpoint.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[instanceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *cp
	return &out, nil
}

// Consume claims the checkpoint for a resume call. The check and the mark
// happen under one lock so only the first caller wins.
func (s *Store) Consume(_ context.Context, instanceID, actor string) (*checkpoint.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[instanceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if cp.Resumed {
		return nil, sentinel.ErrAlreadyUsed
	}

	now := time.Now().UTC()
	cp.Resumed = true
	cp.ResumedAt = &now
	cp.ResumedBy = actor

	out := *cp
	return &out, nil
}
