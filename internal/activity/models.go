// Package activity records every step attempt of a case workflow and fans
// the entries out to registered sinks for live observation.
package activity

import (
	"context"
	"time"
)

// Actor identifies who performed an activity.
type Actor string

const (
	ActorDocumentInspector Actor = "document_inspector"
	ActorExternalVerifier  Actor = "external_verifier"
	ActorComplianceOfficer Actor = "compliance_officer"
	ActorSystem            Actor = "system"
)

// DisplayName returns a human-readable actor label.
func (a Actor) DisplayName() string {
	switch a {
	case ActorDocumentInspector:
		return "Document Inspector"
	case ActorExternalVerifier:
		return "External Verifier"
	case ActorComplianceOfficer:
		return "Compliance Officer"
	case ActorSystem:
		return "System"
	default:
		return string(a)
	}
}

// Status classifies an activity entry.
type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusWarning    Status = "warning"
	StatusError      Status = "error"
	StatusDecision   Status = "decision"
)

// Entry is a single activity record. Sequence is monotonic per case.
type Entry struct {
	Sequence   int            `json:"sequence"`
	Timestamp  time.Time      `json:"timestamp"`
	CaseID     string         `json:"case_id"`
	Actor      Actor          `json:"actor"`
	Action     string         `json:"action"`
	Detail     string         `json:"detail"`
	Status     Status         `json:"status"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Sink receives activity entries. Sink failures are logged and swallowed by
// the Log; they never block or fail the state transition that produced the
// entry.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, entry Entry) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, entry Entry) error {
	return f(ctx, entry)
}
