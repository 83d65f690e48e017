// Package audit holds the append-only audit trail that makes every case
// decision reconstructible.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Step names recorded in the audit trail.
const (
	StepCaseReceived         = "CASE_RECEIVED"
	StepDocumentInspection   = "DOCUMENT_INSPECTION"
	StepExternalVerification = "EXTERNAL_VERIFICATION"
	StepRiskDetermination    = "ACIP_DETERMINATION"
	StepCheckpointSuspended  = "CHECKPOINT_SUSPENDED"
	StepHumanDecision        = "HUMAN_DECISION"
)

// Entry is one immutable audit record. Sequence is assigned by the store
// and is monotonic per case; entries are never mutated, deleted, or
// reordered.
type Entry struct {
	Sequence  int             `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	CaseID    string          `json:"case_id"`
	Step      string          `json:"step"`
	Actor     string          `json:"actor"`
	State     string          `json:"state"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
}

// Store persists audit entries. Append assigns the per-case sequence.
type Store interface {
	Append(ctx context.Context, entry Entry) (*Entry, error)
	List(ctx context.Context, caseID string) ([]Entry, error)
}

// Snapshot marshals a step result for storage in an entry.
// A nil value yields a nil snapshot.
func Snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
