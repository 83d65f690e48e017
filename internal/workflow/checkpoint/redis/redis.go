// Package redis provides a durable checkpoint store backed by Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"acip/internal/sentinel"
	"acip/internal/workflow/checkpoint"
)

const keyPrefix = "acip:checkpoint:"

// Client is the subset of the go-redis client the store needs.
type Client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// Store persists checkpoints as JSON blobs. Single-consume semantics come
// from a SETNX claim marker per instance: the blob stays readable after the
// claim, the marker decides who resumed first.
type Store struct {
	client Client
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL bounds checkpoint retention. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New creates a Redis checkpoint store.
func New(client Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func blobKey(instanceID string) string  { return keyPrefix + instanceID }
func claimKey(instanceID string) string { return keyPrefix + instanceID + ":claim" }

// Put stores the checkpoint blob.
func (s *Store) Put(ctx context.Context, cp checkpoint.Checkpoint) error {
	if cp.InstanceID == "" {
		return sentinel.ErrInvalidInput
	}

	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := s.client.Set(ctx, blobKey(cp.InstanceID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store checkpoint: %w", err)
	}
	return nil
}

// Get returns the checkpoint for the instance.
func (s *Store) Get(ctx context.Context, instanceID string) (*checkpoint.Checkpoint, error) {
	payload, err := s.client.Get(ctx, blobKey(instanceID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var cp checkpoint.Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Consume claims the checkpoint in two phases: read the blob, then take the
// claim marker with SETNX. Only the caller whose SETNX succeeds proceeds;
// the blob is then rewritten with the resume metadata, best effort.
func (s *Store) Consume(ctx context.Context, instanceID, actor string) (*checkpoint.Checkpoint, error) {
	cp, err := s.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if cp.Resumed {
		return nil, sentinel.ErrAlreadyUsed
	}

	claimed, err := s.client.SetNX(ctx, claimKey(instanceID), actor, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim checkpoint: %w", err)
	}
	if !claimed {
		return nil, sentinel.ErrAlreadyUsed
	}

	now := time.Now().UTC()
	cp.Resumed = true
	cp.ResumedAt = &now
	cp.ResumedBy = actor

	if err := s.Put(ctx, *cp); err != nil {
		// The claim marker already guarantees single consumption.
		return cp, nil //nolint:nilerr
	}
	return cp, nil
}
