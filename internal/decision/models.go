// Package decision makes the final risk determination for a case from the
// inspection and verification evidence.
package decision

import (
	"context"
	"time"

	"acip/internal/inspection"
	"acip/internal/verification"
)

// Decision is the closed set of case outcomes.
type Decision string

const (
	DecisionApprove  Decision = "APPROVE"
	DecisionReject   Decision = "REJECT"
	DecisionEscalate Decision = "ESCALATE"
)

// RiskLevel classifies the assessed risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Account restriction markers attached to high-consequence outcomes.
const (
	RestrictionAccountFrozen       = "ACCOUNT_FROZEN"
	RestrictionNoTransactions      = "NO_TRANSACTIONS"
	RestrictionLimitedTransactions = "LIMITED_TRANSACTIONS"
)

// Policy holds the deployment's decisioning configuration.
// AutoApproveLowRisk permits auto-approval of fully verified low-risk cases;
// when false every non-rejected case escalates to a human.
type Policy struct {
	AutoApproveLowRisk bool
}

// Request carries the evidence gathered by the earlier steps.
type Request struct {
	CaseID       string
	Inspection   *inspection.Result
	Verification *verification.Result
}

// Result is the final risk determination.
type Result struct {
	Decision          Decision  `json:"decision"`
	RiskLevel         RiskLevel `json:"risk_level"`
	ConfidenceScore   float64   `json:"confidence_score"`
	Reasoning         string    `json:"reasoning"`
	NextSteps         string    `json:"next_steps"`
	Restrictions      []string  `json:"restrictions"`
	RiskFactors       []string  `json:"risk_factors"`
	MitigatingFactors []string  `json:"mitigating_factors"`
	AssessedAt        time.Time `json:"assessed_at"`
}

// Provider produces the final risk determination for a case.
type Provider interface {
	Assess(ctx context.Context, req Request) (*Result, error)
}
