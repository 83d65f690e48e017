// Package cases exposes the verification case lifecycle over storage and the
// workflow engine: intake, status, human decisions, and reporting.
package cases

import (
	"context"
	"time"

	"acip/internal/activity"
	"acip/internal/audit"
	"acip/internal/decision"
	"acip/internal/workflow"
)

// ReviewBusinessDays is the regulatory window for completing a case once it
// suspends for human review. Weekends do not count.
const ReviewBusinessDays = 15

// Case is the stored view of one verification case.
type Case struct {
	CaseID       string             `json:"case_id"`
	InstanceID   string             `json:"instance_id"`
	CustomerID   string             `json:"customer_id,omitempty"`
	CustomerName string             `json:"customer_name"`
	DocumentRef  string             `json:"document_ref"`
	State        workflow.State     `json:"state"`
	RiskLevel    decision.RiskLevel `json:"risk_level,omitempty"`
	Deadline     time.Time          `json:"deadline"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// IsOverdue reports whether an open case has passed its review deadline.
func (c Case) IsOverdue(now time.Time) bool {
	if c.State.IsTerminal() {
		return false
	}
	return now.After(c.Deadline)
}

// BusinessDaysRemaining counts the business days left before the deadline.
func (c Case) BusinessDaysRemaining(now time.Time) int {
	return countBusinessDays(now, c.Deadline)
}

// Detail is a case joined with its live workflow context.
type Detail struct {
	Case    Case                  `json:"case"`
	Context *workflow.CaseContext `json:"context,omitempty"`
}

// Timeline is the full reconstruction bundle for one case.
type Timeline struct {
	Case       Case             `json:"case"`
	AuditTrail []audit.Entry    `json:"audit_trail"`
	Activities []activity.Entry `json:"activities"`
}

// Store persists cases.
type Store interface {
	Put(ctx context.Context, c Case) error
	Get(ctx context.Context, caseID string) (*Case, error)
	List(ctx context.Context) ([]Case, error)
}

// BusinessDeadline returns the date the given number of business days after
// from, skipping Saturdays and Sundays.
func BusinessDeadline(from time.Time, days int) time.Time {
	d := from
	for remaining := days; remaining > 0; {
		d = d.AddDate(0, 0, 1)
		if isBusinessDay(d) {
			remaining--
		}
	}
	return d
}

// countBusinessDays counts the business days in (from, to]. Returns zero when
// from is not before to.
func countBusinessDays(from, to time.Time) int {
	if !from.Before(to) {
		return 0
	}
	days := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if isBusinessDay(d) {
			days++
		}
	}
	return days
}

func isBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
