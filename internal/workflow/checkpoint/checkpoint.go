// Package checkpoint persists the suspended state of a workflow instance so
// a case can wait indefinitely for a human decision, across process
// restarts, without holding any thread or connection.
package checkpoint

import (
	"context"
	"encoding/json"
	"time"
)

// Checkpoint is a serialized case context taken at the suspend point,
// keyed by workflow instance ID. It is consumed at most once.
type Checkpoint struct {
	InstanceID string          `json:"instance_id"`
	CaseID     string          `json:"case_id"`
	TakenAt    time.Time       `json:"taken_at"`
	Context    json.RawMessage `json:"context"`
	Resumed    bool            `json:"resumed"`
	ResumedAt  *time.Time      `json:"resumed_at,omitempty"`
	ResumedBy  string          `json:"resumed_by,omitempty"`
}

// Store persists checkpoints.
//
// Consume claims the checkpoint for a resume call: exactly one caller
// observes success, every later caller gets sentinel.ErrAlreadyUsed, and a
// missing instance yields sentinel.ErrNotFound. The consumed checkpoint is
// retained, marked resumed, for later inspection.
type Store interface {
	Put(ctx context.Context, cp Checkpoint) error
	Get(ctx context.Context, instanceID string) (*Checkpoint, error)
	Consume(ctx context.Context, instanceID, actor string) (*Checkpoint, error)
}
