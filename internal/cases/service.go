package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"acip/internal/activity"
	"acip/internal/customers"
	"acip/internal/report"
	"acip/internal/sentinel"
	"acip/internal/workflow"
	dErrors "acip/pkg/domain-errors"
)

// Service coordinates case intake, workflow execution, and reconstruction.
type Service struct {
	store      Store
	engine     *workflow.Engine
	customers  *customers.Store
	activities *activity.Log
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the case service.
func NewService(store Store, engine *workflow.Engine, customerStore *customers.Store, activities *activity.Log, opts ...Option) *Service {
	s := &Service{
		store:      store,
		engine:     engine,
		customers:  customerStore,
		activities: activities,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest is the intake payload for a new case.
type CreateRequest struct {
	CustomerID   string `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	DocumentRef  string `json:"document_ref"`
}

// Validate implements httputil.Validatable.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.DocumentRef) == "" {
		return dErrors.New(dErrors.CodeValidation, "document_ref is required")
	}
	return nil
}

// Normalize implements httputil.Normalizable.
func (r *CreateRequest) Normalize() {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.DocumentRef = strings.TrimSpace(r.DocumentRef)
}

// Create opens a case and runs the workflow to completion or suspension.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Detail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var reference *customers.Record
	customerName := req.CustomerName
	if req.CustomerID != "" {
		rec, err := s.customers.Get(ctx, req.CustomerID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("customer %s not found", req.CustomerID))
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load customer")
		}
		reference = rec
		if customerName == "" {
			customerName = rec.FullName()
		}
	}
	if customerName == "" {
		customerName = "Unknown Customer"
	}

	now := s.now().UTC()
	caseID := newCaseID(now)

	cc, err := s.engine.StartCase(ctx, workflow.StartRequest{
		CaseID:       caseID,
		CustomerName: customerName,
		DocumentRef:  req.DocumentRef,
		Customer:     reference,
	})
	if err != nil {
		return nil, err
	}

	c := Case{
		CaseID:       caseID,
		InstanceID:   cc.InstanceID,
		CustomerID:   req.CustomerID,
		CustomerName: customerName,
		DocumentRef:  req.DocumentRef,
		State:        cc.State,
		RiskLevel:    cc.RiskLevel,
		Deadline:     BusinessDeadline(now, ReviewBusinessDays),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Put(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist case")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "case created",
			"case_id", caseID,
			"instance_id", cc.InstanceID,
			"state", cc.State,
		)
	}

	return &Detail{Case: c, Context: cc}, nil
}

// Get returns the case with its live workflow context.
func (s *Service) Get(ctx context.Context, caseID string) (*Detail, error) {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}

	cc, err := s.engine.GetState(ctx, c.InstanceID)
	if err != nil {
		// The stored case is still authoritative for its last known state.
		return &Detail{Case: *c}, nil
	}
	return &Detail{Case: *c, Context: cc}, nil
}

// List returns all cases, newest first.
func (s *Service) List(ctx context.Context) ([]Case, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list cases")
	}
	return out, nil
}

// Timeline returns the case with its full audit trail and activity log.
func (s *Service) Timeline(ctx context.Context, caseID string) (*Timeline, error) {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}

	trail, err := s.engine.AuditTrail(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load audit trail")
	}

	return &Timeline{
		Case:       *c,
		AuditTrail: trail,
		Activities: s.activities.Entries(caseID),
	}, nil
}

// Decide applies the reviewer's decision to a suspended case.
func (s *Service) Decide(ctx context.Context, caseID string, hd workflow.HumanDecision) (*Detail, error) {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}

	cc, err := s.engine.ResumeCase(ctx, c.InstanceID, hd)
	if err != nil {
		return nil, err
	}

	c.State = cc.State
	c.RiskLevel = cc.RiskLevel
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Put(ctx, *c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist case")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "human decision applied",
			"case_id", caseID,
			"decision", hd.Decision,
			"actor", hd.Actor,
			"state", cc.State,
		)
	}

	return &Detail{Case: *c, Context: cc}, nil
}

// AuditReport renders the plain-text audit report for a case.
func (s *Service) AuditReport(ctx context.Context, caseID string) (string, error) {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return "", err
	}

	trail, err := s.engine.AuditTrail(ctx, caseID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "load audit trail")
	}

	view := report.CaseView{
		CaseID:       c.CaseID,
		CustomerName: c.CustomerName,
		DocumentRef:  c.DocumentRef,
		State:        c.State,
		GeneratedAt:  s.now(),
	}
	if cc, err := s.engine.GetState(ctx, c.InstanceID); err == nil {
		view.Decision = cc.Decision
		view.HumanDecision = cc.HumanDecision
	}

	return report.Audit(view, trail), nil
}

// ActivityReport renders the HTML activity timeline for a case.
func (s *Service) ActivityReport(ctx context.Context, caseID string) (string, error) {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return "", err
	}

	page, err := report.ActivityHTML(c.CaseID, s.activities.Entries(c.CaseID))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "render activity report")
	}
	return page, nil
}

func (s *Service) load(ctx context.Context, caseID string) (*Case, error) {
	c, err := s.store.Get(ctx, caseID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("case %s not found", caseID))
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load case")
	}
	return c, nil
}

// newCaseID builds a readable, unique case identifier.
func newCaseID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CASE-%s-%s", now.Format("20060102"), suffix)
}
