// Package workflow drives identity-verification cases through the evidence
// pipeline, suspends them at the human-review checkpoint, and resumes them
// on an out-of-band human decision.
package workflow

import (
	"time"

	"acip/internal/customers"
	"acip/internal/decision"
	"acip/internal/inspection"
	"acip/internal/verification"
)

// State is a case lifecycle state.
type State string

const (
	StatePending          State = "PENDING"
	StateProcessing       State = "PROCESSING"
	StateVerifying        State = "VERIFYING"
	StateComplianceReview State = "COMPLIANCE_REVIEW"
	StateAwaitingHuman    State = "AWAITING_HUMAN"
	StateApproved         State = "APPROVED"
	StateRejected         State = "REJECTED"
	StateEscalated        State = "ESCALATED"
)

// IsTerminal reports whether the state ends the workflow.
func (s State) IsTerminal() bool {
	switch s {
	case StateApproved, StateRejected, StateEscalated:
		return true
	}
	return false
}

// transitions is the allowed state machine. A transition absent from this
// table is invalid regardless of trigger.
var transitions = map[State][]State{
	StatePending:          {StateProcessing},
	StateProcessing:       {StateVerifying, StateAwaitingHuman},
	StateVerifying:        {StateComplianceReview, StateAwaitingHuman},
	StateComplianceReview: {StateApproved, StateRejected, StateAwaitingHuman},
	StateAwaitingHuman:    {StateApproved, StateRejected, StateEscalated},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// HumanDecision is the out-of-band reviewer input that resumes a suspended
// case.
type HumanDecision struct {
	Decision  decision.Decision `json:"decision"`
	Actor     string            `json:"actor"`
	Notes     string            `json:"notes,omitempty"`
	DecidedAt time.Time         `json:"decided_at"`
}

// TerminalState maps the human decision onto the case's terminal state.
func (h HumanDecision) TerminalState() (State, bool) {
	switch h.Decision {
	case decision.DecisionApprove:
		return StateApproved, true
	case decision.DecisionReject:
		return StateRejected, true
	case decision.DecisionEscalate:
		return StateEscalated, true
	}
	return "", false
}

// StartRequest carries the inputs for a new case run.
type StartRequest struct {
	CaseID       string            `json:"case_id"`
	CustomerName string            `json:"customer_name"`
	DocumentRef  string            `json:"document_ref"`
	Customer     *customers.Record `json:"customer,omitempty"`
}

// CaseContext is the mutable record threaded through the workflow. Step
// results are immutable once set; later steps read but never discard them.
type CaseContext struct {
	CaseID       string            `json:"case_id"`
	InstanceID   string            `json:"instance_id"`
	CustomerName string            `json:"customer_name"`
	DocumentRef  string            `json:"document_ref"`
	Customer     *customers.Record `json:"customer,omitempty"`

	State     State              `json:"state"`
	RiskLevel decision.RiskLevel `json:"risk_level,omitempty"`
	Issues    []string           `json:"issues,omitempty"`

	Inspection    *inspection.Result   `json:"inspection,omitempty"`
	Verification  *verification.Result `json:"verification,omitempty"`
	Decision      *decision.Result     `json:"decision,omitempty"`
	HumanDecision *HumanDecision       `json:"human_decision,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep-enough copy for read-only snapshots: step results are
// immutable once produced, so sharing them is safe.
func (c *CaseContext) Clone() *CaseContext {
	if c == nil {
		return nil
	}
	out := *c
	out.Issues = append([]string(nil), c.Issues...)
	return &out
}
