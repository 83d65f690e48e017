package decision

import (
	"context"
	"log/slog"
	"time"

	"acip/internal/verification"
)

// Service applies the decision policy to the gathered evidence.
type Service struct {
	policy Policy
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a decision service with the given policy.
func New(policy Policy, opts ...Option) *Service {
	s := &Service{policy: policy}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess makes the final determination. Hard rules apply first and
// short-circuit all scoring; otherwise the computed risk level and the
// auto-approval policy decide between APPROVE and ESCALATE.
func (s *Service) Assess(ctx context.Context, req Request) (*Result, error) {
	docRisks, docMitigations := assessDocumentEvidence(req)
	extRisks, extMitigations := assessExternalEvidence(req)

	risks := append(docRisks, extRisks...)
	mitigations := append(docMitigations, extMitigations...)

	riskLevel := classifyRisk(risks, mitigations)

	result := s.decide(req, riskLevel, risks)
	result.RiskFactors = risks
	result.MitigatingFactors = mitigations
	result.AssessedAt = time.Now().UTC()

	if s.logger != nil {
		s.logger.InfoContext(ctx, "risk determination made",
			"case_id", req.CaseID,
			"decision", result.Decision,
			"risk_level", result.RiskLevel,
			"confidence", result.ConfidenceScore,
		)
	}

	return result, nil
}

func (s *Service) decide(req Request, riskLevel RiskLevel, risks []string) *Result {
	ver := req.Verification

	// Hard rule: a sanctions hit is a regulatory rejection.
	if ver != nil && ver.Sanctions != nil && ver.Sanctions.Hit {
		return &Result{
			Decision:        DecisionReject,
			RiskLevel:       riskLevel,
			ConfidenceScore: 0.99,
			Reasoning:       "Automatic rejection due to sanctions list match. This is a regulatory requirement.",
			NextSteps:       "Case flagged for Compliance review. Customer must not be onboarded.",
			Restrictions:    []string{RestrictionAccountFrozen, RestrictionNoTransactions},
		}
	}

	// Hard rule: a restricted person requires enhanced due diligence.
	if ver != nil && ver.RestrictedPerson != nil && ver.RestrictedPerson.Hit {
		category := ver.RestrictedPerson.Category
		if category == "" {
			category = "Unknown"
		}
		return &Result{
			Decision:        DecisionEscalate,
			RiskLevel:       riskLevel,
			ConfidenceScore: 0.85,
			Reasoning:       "Customer identified as restricted person (" + category + "). Enhanced due diligence required per policy.",
			NextSteps:       "Escalated to Senior Compliance Officer for enhanced due diligence review.",
			Restrictions:    []string{RestrictionLimitedTransactions},
		}
	}

	verStatus := verification.Status("")
	if ver != nil {
		verStatus = ver.OverallStatus
	}

	fullyVerified := verStatus == verification.StatusVerified

	if s.policy.AutoApproveLowRisk && fullyVerified && riskLevel == RiskLow {
		return &Result{
			Decision:        DecisionApprove,
			RiskLevel:       riskLevel,
			ConfidenceScore: 0.85,
			Reasoning:       "Fully verified with low risk profile. Auto-approved per deployment policy.",
			NextSteps:       "Customer onboarding may proceed.",
			Restrictions:    []string{},
		}
	}

	confidence := 0.70
	if fullyVerified && riskLevel == RiskLow {
		confidence = 0.85
	}

	restrictions := []string{}
	if riskLevel == RiskMedium || riskLevel == RiskHigh {
		restrictions = append(restrictions, RestrictionLimitedTransactions)
	}

	return &Result{
		Decision:        DecisionEscalate,
		RiskLevel:       riskLevel,
		ConfidenceScore: confidence,
		Reasoning:       buildEscalationReasoning(risks, verStatus, riskLevel),
		NextSteps:       "Escalated to Operations team for manual review and approval.",
		Restrictions:    restrictions,
	}
}
