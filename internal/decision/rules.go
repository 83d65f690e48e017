package decision

import (
	"fmt"
	"strings"

	"acip/internal/verification"
)

// criticalKeywords in any risk factor force a HIGH classification regardless
// of the computed score.
var criticalKeywords = []string{"SANCTIONS", "Restricted person status", "validity check failed"}

// assessDocumentEvidence derives risk and mitigating factors from the
// inspection result.
func assessDocumentEvidence(req Request) (risks, mitigations []string) {
	insp := req.Inspection
	if insp == nil || !insp.Success {
		risks = append(risks, "Document extraction failed")
		return risks, mitigations
	}

	mitigations = append(mitigations, "Document successfully extracted")

	if insp.QualityScore >= 0.9 {
		mitigations = append(mitigations, fmt.Sprintf("High quality document (%.0f%%)", insp.QualityScore*100))
	} else if insp.QualityScore < 0.7 {
		risks = append(risks, fmt.Sprintf("Low quality document (%.0f%%)", insp.QualityScore*100))
	}

	if len(insp.Issues) > 0 {
		for _, issue := range insp.Issues {
			risks = append(risks, "Validation issue: "+issue)
		}
	} else {
		mitigations = append(mitigations, "All document fields validated")
	}

	return risks, mitigations
}

// assessExternalEvidence derives risk and mitigating factors from the
// verification result.
func assessExternalEvidence(req Request) (risks, mitigations []string) {
	ver := req.Verification
	if ver == nil {
		risks = append(risks, "External verification not performed")
		return risks, mitigations
	}

	if ver.Validity != nil && ver.Validity.Verified {
		mitigations = append(mitigations, fmt.Sprintf("Document validity confirmed (Match: %.0f%%)", ver.Validity.MatchScore*100))
	} else {
		risks = append(risks, "Document validity check failed")
	}

	if ver.DatabaseMatch != nil {
		switch {
		case ver.DatabaseMatch.Status == verification.MatchVerified:
			mitigations = append(mitigations, "Customer database match confirmed")
		case len(ver.DatabaseMatch.Discrepancies) > 0:
			for _, d := range ver.DatabaseMatch.Discrepancies {
				risks = append(risks, "Discrepancy in "+d.Field)
			}
		}
	}

	if ver.RestrictedPerson != nil && ver.RestrictedPerson.Hit {
		category := ver.RestrictedPerson.Category
		if category == "" {
			category = "Unknown"
		}
		risks = append(risks, "Restricted person status: "+category)
	} else {
		mitigations = append(mitigations, "No restricted-person associations found")
	}

	if ver.Sanctions != nil && ver.Sanctions.Hit {
		risks = append(risks, "SANCTIONS HIT")
	} else {
		mitigations = append(mitigations, "Cleared all sanctions lists")
	}

	return risks, mitigations
}

// classifyRisk computes the risk level from the factor counts.
// Critical factors short-circuit to HIGH.
func classifyRisk(risks, mitigations []string) RiskLevel {
	for _, factor := range risks {
		for _, keyword := range criticalKeywords {
			if strings.Contains(factor, keyword) {
				return RiskHigh
			}
		}
	}

	score := len(risks)*2 - len(mitigations)
	switch {
	case score <= -2:
		return RiskLow
	case score <= 2:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// buildEscalationReasoning assembles the rationale from the leading factors.
func buildEscalationReasoning(risks []string, status verification.Status, level RiskLevel) string {
	var reasons []string

	if len(risks) > 0 {
		leading := risks
		if len(leading) > 3 {
			leading = leading[:3]
		}
		reasons = append(reasons, "Risk factors identified: "+strings.Join(leading, ", "))
	}
	if status != verification.StatusVerified {
		reasons = append(reasons, fmt.Sprintf("Verification status: %s", status))
	}
	if level == RiskLow && status == verification.StatusVerified {
		reasons = append(reasons, "Low risk profile - ready for human review")
	} else {
		reasons = append(reasons, fmt.Sprintf("Risk level: %s", level))
	}

	return strings.Join(reasons, " ")
}
