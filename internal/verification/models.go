// Package verification runs the external verification checks for a case:
// document validity, customer database match, restricted-person screening,
// and sanctions screening.
package verification

import (
	"context"
	"time"

	"acip/internal/customers"
)

// Status is the overall verification outcome derived from the sub-checks.
type Status string

const (
	StatusVerified     Status = "VERIFIED"
	StatusPartialMatch Status = "PARTIAL_MATCH"
	StatusNoMatch      Status = "NO_MATCH"
	StatusFlagged      Status = "FLAGGED"
)

// Risk indicators contributed by the sub-checks.
const (
	IndicatorSanctionsMatch      = "SANCTIONS_MATCH"
	IndicatorRestrictedPerson    = "RESTRICTED_PERSON_MATCH"
	IndicatorValidityFailed      = "VALIDITY_FAILED"
	IndicatorDatabaseDiscrepancy = "DATABASE_DISCREPANCY"
)

// Request carries the inputs for a verification run. Fields are the
// normalized extraction output from document inspection.
type Request struct {
	CaseID    string
	Fields    map[string]string
	Reference *customers.Record
}

// ValidityResult is the outcome of the document validity check.
type ValidityResult struct {
	Verified        bool      `json:"verified"`
	MatchScore      float64   `json:"match_score"`
	DocumentValid   bool      `json:"document_valid"`
	DocumentExpired bool      `json:"document_expired"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
}

// Discrepancy records a field where the document and database disagree.
type Discrepancy struct {
	Field         string `json:"field"`
	DocumentValue string `json:"document_value"`
	DatabaseValue string `json:"database_value"`
}

// Database match statuses.
const (
	MatchVerified    = "VERIFIED"
	MatchDiscrepancy = "DISCREPANCY"
	MatchNotChecked  = "NOT_CHECKED"
)

// DatabaseMatch is the outcome of comparing extracted fields against the
// reference customer record.
type DatabaseMatch struct {
	Status          string        `json:"status"`
	MatchPercentage float64       `json:"match_percentage"`
	MatchedFields   []string      `json:"matched_fields,omitempty"`
	Discrepancies   []Discrepancy `json:"discrepancies,omitempty"`
	CustomerID      string        `json:"customer_id,omitempty"`
}

// ScreeningResult is the outcome of a list screening check
// (restricted persons or sanctions).
type ScreeningResult struct {
	Checked   bool      `json:"checked"`
	Hit       bool      `json:"hit"`
	Category  string    `json:"category,omitempty"`
	Sources   []string  `json:"sources,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Result aggregates the four sub-checks with a derived overall status.
type Result struct {
	Success             bool             `json:"success"`
	Validity            *ValidityResult  `json:"validity,omitempty"`
	DatabaseMatch       *DatabaseMatch   `json:"database_match,omitempty"`
	RestrictedPerson    *ScreeningResult `json:"restricted_person,omitempty"`
	Sanctions           *ScreeningResult `json:"sanctions,omitempty"`
	OverallStatus       Status           `json:"overall_status"`
	RiskIndicators      []string         `json:"risk_indicators"`
	RequiresHumanReview bool             `json:"requires_human_review"`
	VerifiedAt          time.Time        `json:"verified_at"`
}

// Provider runs the external verification checks.
type Provider interface {
	Verify(ctx context.Context, req Request) (*Result, error)
}
