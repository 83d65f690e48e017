// Package report renders human-readable reconstructions of a case: a
// plain-text audit report for compliance and an HTML activity timeline.
package report

import (
	"fmt"
	"strings"
	"time"

	"acip/internal/audit"
	"acip/internal/decision"
	"acip/internal/workflow"
)

const lineWidth = 60

// CaseView carries the case fields the reports render. The renderers are
// pure; callers assemble the view from storage.
type CaseView struct {
	CaseID        string
	CustomerName  string
	DocumentRef   string
	State         workflow.State
	Decision      *decision.Result
	HumanDecision *workflow.HumanDecision
	GeneratedAt   time.Time
}

// Audit renders the plain-text audit report for a case.
func Audit(view CaseView, trail []audit.Entry) string {
	var b strings.Builder
	heavy := strings.Repeat("=", lineWidth)
	light := strings.Repeat("-", lineWidth)

	b.WriteString(heavy + "\n")
	b.WriteString(center("ACIP VERIFICATION AUDIT REPORT") + "\n")
	b.WriteString(heavy + "\n")
	writeField(&b, "Case ID", view.CaseID)
	writeField(&b, "Customer", view.CustomerName)
	writeField(&b, "Document", view.DocumentRef)
	writeField(&b, "Final State", string(view.State))
	writeField(&b, "Generated", view.GeneratedAt.UTC().Format(time.RFC3339))

	if d := view.Decision; d != nil {
		b.WriteString("\nSUMMARY\n" + light + "\n")
		writeField(&b, "Decision", string(d.Decision))
		writeField(&b, "Risk Level", string(d.RiskLevel))
		writeField(&b, "Confidence", fmt.Sprintf("%.0f%%", d.ConfidenceScore*100))
		if len(d.Restrictions) > 0 {
			writeField(&b, "Restrictions", strings.Join(d.Restrictions, ", "))
		}

		b.WriteString("\nREASONING\n" + light + "\n")
		b.WriteString(d.Reasoning + "\n")

		b.WriteString("\nRISK FACTORS\n" + light + "\n")
		writeList(&b, d.RiskFactors, "(none identified)")

		b.WriteString("\nMITIGATING FACTORS\n" + light + "\n")
		writeList(&b, d.MitigatingFactors, "(none identified)")
	}

	if h := view.HumanDecision; h != nil {
		b.WriteString("\nHUMAN REVIEW\n" + light + "\n")
		writeField(&b, "Reviewer", h.Actor)
		writeField(&b, "Decision", string(h.Decision))
		writeField(&b, "Decided", h.DecidedAt.UTC().Format(time.RFC3339))
		if h.Notes != "" {
			writeField(&b, "Notes", h.Notes)
		}
	}

	if view.Decision != nil && view.Decision.NextSteps != "" {
		b.WriteString("\nNEXT STEPS\n" + light + "\n")
		b.WriteString(view.Decision.NextSteps + "\n")
	}

	b.WriteString("\nAUDIT TRAIL\n" + light + "\n")
	if len(trail) == 0 {
		b.WriteString("  (no entries recorded)\n")
	}
	for _, e := range trail {
		b.WriteString(fmt.Sprintf("%4d. %s  %-22s %-17s %s\n",
			e.Sequence,
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Step,
			e.State,
			e.Actor,
		))
	}

	b.WriteString(heavy + "\n")
	return b.String()
}

func center(s string) string {
	pad := (lineWidth - len(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-14s %s\n", label+":", value)
}

func writeList(b *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		b.WriteString("  " + empty + "\n")
		return
	}
	for _, item := range items {
		b.WriteString("  - " + item + "\n")
	}
}
