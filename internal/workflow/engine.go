package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"acip/internal/activity"
	"acip/internal/audit"
	"acip/internal/decision"
	"acip/internal/inspection"
	"acip/internal/sentinel"
	"acip/internal/verification"
	"acip/internal/workflow/checkpoint"
	"acip/internal/workflow/metrics"
	dErrors "acip/pkg/domain-errors"
	platformsync "acip/pkg/platform/sync"
)

const defaultProviderTimeout = 30 * time.Second

// Engine drives a per-case state machine through the evidence providers.
// Concurrent cases share only the checkpoint store, the audit store, and the
// activity sinks.
type Engine struct {
	inspector   inspection.Provider
	verifier    verification.Provider
	decider     decision.Provider
	checkpoints checkpoint.Store
	auditStore  audit.Store
	activities  *activity.Log

	mu        sync.RWMutex
	instances map[string]*CaseContext

	resumeLocks     *platformsync.ShardedMutex
	providerTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics collector for the engine.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithProviderTimeout bounds each evidence provider call per case.
func WithProviderTimeout(d time.Duration) Option {
	return func(e *Engine) { e.providerTimeout = d }
}

// New creates a workflow engine.
// Panics if a required dependency is nil - fail fast at startup.
func New(
	inspector inspection.Provider,
	verifier verification.Provider,
	decider decision.Provider,
	checkpoints checkpoint.Store,
	auditStore audit.Store,
	activities *activity.Log,
	opts ...Option,
) *Engine {
	if inspector == nil {
		panic("workflow.New: inspection provider is required")
	}
	if verifier == nil {
		panic("workflow.New: verification provider is required")
	}
	if decider == nil {
		panic("workflow.New: decision provider is required")
	}
	if checkpoints == nil {
		panic("workflow.New: checkpoint store is required")
	}
	if auditStore == nil {
		panic("workflow.New: audit store is required for regulatory reconstruction")
	}
	if activities == nil {
		panic("workflow.New: activity log is required")
	}

	e := &Engine{
		inspector:       inspector,
		verifier:        verifier,
		decider:         decider,
		checkpoints:     checkpoints,
		auditStore:      auditStore,
		activities:      activities,
		instances:       make(map[string]*CaseContext),
		resumeLocks:     platformsync.NewShardedMutex(),
		providerTimeout: defaultProviderTimeout,
		tracer:          otel.Tracer("acip/workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartCase drives a new case to completion or suspension synchronously.
func (e *Engine) StartCase(ctx context.Context, req StartRequest) (*CaseContext, error) {
	if req.CaseID == "" || req.DocumentRef == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "case_id and document_ref are required")
	}

	now := time.Now().UTC()
	cc := &CaseContext{
		CaseID:       req.CaseID,
		InstanceID:   uuid.New().String(),
		CustomerName: req.CustomerName,
		DocumentRef:  req.DocumentRef,
		Customer:     req.Customer,
		State:        StatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	e.storeInstance(cc)
	if e.metrics != nil {
		e.metrics.IncCasesStarted()
	}

	e.activities.Record(ctx, cc.CaseID, activity.ActorSystem, "Case Received",
		fmt.Sprintf("Starting verification for %s", cc.CustomerName), activity.StatusStarted,
		map[string]any{"instance_id": cc.InstanceID, "document_ref": cc.DocumentRef})

	if err := e.transition(cc, StateProcessing); err != nil {
		return nil, err
	}
	if err := e.appendAudit(ctx, cc, audit.StepCaseReceived, "system", map[string]any{
		"customer_name": cc.CustomerName,
		"document_ref":  cc.DocumentRef,
	}); err != nil {
		return nil, err
	}

	if done, err := e.runInspection(ctx, cc); done || err != nil {
		return cc.Clone(), err
	}
	if done, err := e.runVerification(ctx, cc); done || err != nil {
		return cc.Clone(), err
	}
	if err := e.runDecision(ctx, cc); err != nil {
		return cc.Clone(), err
	}

	return cc.Clone(), nil
}

// runInspection executes the document inspection step.
// Returns done=true when the case suspended and the pipeline must stop.
func (e *Engine) runInspection(ctx context.Context, cc *CaseContext) (bool, error) {
	e.activities.Record(ctx, cc.CaseID, activity.ActorDocumentInspector, "Extracting Data",
		fmt.Sprintf("Analyzing %s", cc.DocumentRef), activity.StatusInProgress, nil)

	res, err := runStep(ctx, e, "inspection", func(stepCtx context.Context) (*inspection.Result, error) {
		return e.inspector.Inspect(stepCtx, inspection.Request{
			CaseID:      cc.CaseID,
			DocumentRef: cc.DocumentRef,
			Reference:   cc.Customer,
		})
	})
	if err != nil {
		return true, e.suspendOnStepFailure(ctx, cc, audit.StepDocumentInspection,
			activity.ActorDocumentInspector, "Extraction Failed",
			fmt.Sprintf("document inspection failed: %v", err))
	}

	cc.Inspection = res

	if !res.Success {
		cc.Issues = append(cc.Issues, res.Issues...)
		e.activities.Record(ctx, cc.CaseID, activity.ActorDocumentInspector, "Extraction Failed",
			"Image quality too low. Please upload a clearer photo.", activity.StatusError,
			map[string]any{"quality_score": res.QualityScore})

		if err := e.transition(cc, StateAwaitingHuman); err != nil {
			return true, err
		}
		if err := e.appendAudit(ctx, cc, audit.StepDocumentInspection, string(activity.ActorDocumentInspector), res); err != nil {
			return true, err
		}
		return true, e.suspend(ctx, cc)
	}

	if err := e.transition(cc, StateVerifying); err != nil {
		return true, err
	}
	if err := e.appendAudit(ctx, cc, audit.StepDocumentInspection, string(activity.ActorDocumentInspector), res); err != nil {
		return true, err
	}

	name := res.Field(inspection.FieldFirstName) + " " + res.Field(inspection.FieldLastName)
	e.activities.Record(ctx, cc.CaseID, activity.ActorDocumentInspector, "Extracting Data",
		fmt.Sprintf("Extracted: %s | %s | ID: %s", name, res.DocumentType, res.Field(inspection.FieldIDNumber)),
		activity.StatusSuccess, nil)

	return false, nil
}

// runVerification executes the external verification step.
func (e *Engine) runVerification(ctx context.Context, cc *CaseContext) (bool, error) {
	e.activities.Record(ctx, cc.CaseID, activity.ActorExternalVerifier, "Verifying",
		"Checking validity, registry & sanctions databases", activity.StatusInProgress, nil)

	res, err := runStep(ctx, e, "verification", func(stepCtx context.Context) (*verification.Result, error) {
		return e.verifier.Verify(stepCtx, verification.Request{
			CaseID:    cc.CaseID,
			Fields:    cc.Inspection.Fields,
			Reference: cc.Customer,
		})
	})
	if err != nil {
		return true, e.suspendOnStepFailure(ctx, cc, audit.StepExternalVerification,
			activity.ActorExternalVerifier, "Verification Failed",
			fmt.Sprintf("external verification failed: %v", err))
	}

	cc.Verification = res

	if err := e.transition(cc, StateComplianceReview); err != nil {
		return true, err
	}
	if err := e.appendAudit(ctx, cc, audit.StepExternalVerification, string(activity.ActorExternalVerifier), res); err != nil {
		return true, err
	}

	status := activity.StatusSuccess
	if res.OverallStatus != verification.StatusVerified {
		status = activity.StatusWarning
	}
	e.activities.Record(ctx, cc.CaseID, activity.ActorExternalVerifier, "Verifying",
		fmt.Sprintf("Overall status: %s", res.OverallStatus), status,
		map[string]any{"risk_indicators": res.RiskIndicators})

	return false, nil
}

// runDecision executes the risk decision step and drives the case to a
// terminal state or to the human-review checkpoint.
func (e *Engine) runDecision(ctx context.Context, cc *CaseContext) error {
	e.activities.Record(ctx, cc.CaseID, activity.ActorComplianceOfficer, "Assessing Risk",
		"Evaluating evidence against compliance rules", activity.StatusInProgress, nil)

	res, err := runStep(ctx, e, "decision", func(stepCtx context.Context) (*decision.Result, error) {
		return e.decider.Assess(stepCtx, decision.Request{
			CaseID:       cc.CaseID,
			Inspection:   cc.Inspection,
			Verification: cc.Verification,
		})
	})
	if err != nil {
		return e.suspendOnStepFailure(ctx, cc, audit.StepRiskDetermination,
			activity.ActorComplianceOfficer, "Assessment Failed",
			fmt.Sprintf("risk determination failed: %v", err))
	}

	cc.Decision = res
	cc.RiskLevel = res.RiskLevel

	e.activities.Record(ctx, cc.CaseID, activity.ActorComplianceOfficer, "ACIP Decision",
		fmt.Sprintf("Decision: %s | Risk: %s", res.Decision, res.RiskLevel), activity.StatusDecision,
		map[string]any{"decision": res.Decision, "risk_level": res.RiskLevel, "confidence": res.ConfidenceScore})

	switch res.Decision {
	case decision.DecisionApprove, decision.DecisionReject:
		terminal := StateApproved
		if res.Decision == decision.DecisionReject {
			terminal = StateRejected
		}
		if err := e.transition(cc, terminal); err != nil {
			return err
		}
		if err := e.appendAudit(ctx, cc, audit.StepRiskDetermination, string(activity.ActorComplianceOfficer), res); err != nil {
			return err
		}
		e.finalize(ctx, cc)
		return nil

	default:
		if err := e.transition(cc, StateAwaitingHuman); err != nil {
			return err
		}
		if err := e.appendAudit(ctx, cc, audit.StepRiskDetermination, string(activity.ActorComplianceOfficer), res); err != nil {
			return err
		}
		return e.suspend(ctx, cc)
	}
}

// runStep executes one provider call under the per-case timeout with a span
// and a latency observation.
func runStep[T any](ctx context.Context, e *Engine, step string, fn func(context.Context) (*T, error)) (*T, error) {
	stepCtx, cancel := context.WithTimeout(ctx, e.providerTimeout)
	defer cancel()

	stepCtx, span := e.tracer.Start(stepCtx, "workflow."+step)
	defer span.End()

	start := time.Now()
	res, err := fn(stepCtx)
	if e.metrics != nil {
		e.metrics.ObserveStepLatency(step, time.Since(start))
	}
	if err != nil {
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeProviderFailure, step+" provider timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeProviderFailure, step+" provider failed")
	}
	return res, nil
}

// suspendOnStepFailure records the provider failure as an issue and routes
// the case to the human-review checkpoint. A step failure is never an
// engine fault.
func (e *Engine) suspendOnStepFailure(ctx context.Context, cc *CaseContext, step string, actor activity.Actor, action, issue string) error {
	cc.Issues = append(cc.Issues, issue)

	e.activities.Record(ctx, cc.CaseID, actor, action, issue, activity.StatusError, nil)

	if e.logger != nil {
		e.logger.WarnContext(ctx, "step failed, routing to human review",
			"case_id", cc.CaseID,
			"step", step,
			"issue", issue,
		)
	}

	if err := e.transition(cc, StateAwaitingHuman); err != nil {
		return err
	}
	if err := e.appendAudit(ctx, cc, step, string(actor), map[string]any{"issue": issue}); err != nil {
		return err
	}
	return e.suspend(ctx, cc)
}

// suspend persists the checkpoint at the human-review suspend point and
// returns control to the caller. Nothing blocks while the case waits.
func (e *Engine) suspend(ctx context.Context, cc *CaseContext) error {
	payload, err := json.Marshal(cc)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "serialize checkpoint")
	}

	cp := checkpoint.Checkpoint{
		InstanceID: cc.InstanceID,
		CaseID:     cc.CaseID,
		TakenAt:    time.Now().UTC(),
		Context:    payload,
	}
	if err := e.checkpoints.Put(ctx, cp); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist checkpoint")
	}

	if err := e.appendAudit(ctx, cc, audit.StepCheckpointSuspended, "system", map[string]any{
		"instance_id": cc.InstanceID,
	}); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.IncSuspensions()
	}
	e.activities.Record(ctx, cc.CaseID, activity.ActorSystem, "Human Review",
		"Case suspended pending human decision", activity.StatusStarted,
		map[string]any{"instance_id": cc.InstanceID})

	if e.logger != nil {
		e.logger.InfoContext(ctx, "case suspended at human-review checkpoint",
			"case_id", cc.CaseID,
			"instance_id", cc.InstanceID,
		)
	}
	return nil
}

// ResumeCase applies the human decision to a suspended instance and drives
// it to its terminal state. Resume calls for the same instance are
// serialized; the first writer wins.
func (e *Engine) ResumeCase(ctx context.Context, instanceID string, hd HumanDecision) (*CaseContext, error) {
	terminal, ok := hd.TerminalState()
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown decision %q", hd.Decision))
	}
	if hd.Actor == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "actor is required")
	}

	e.resumeLocks.Lock(instanceID)
	defer e.resumeLocks.Unlock(instanceID)

	cp, err := e.checkpoints.Consume(ctx, instanceID, hd.Actor)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeUnknownInstance, "no pending checkpoint for instance")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return nil, dErrors.New(dErrors.CodeAlreadyResumed, "instance was already resumed")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "consume checkpoint")
	}

	cc := &CaseContext{}
	if err := json.Unmarshal(cp.Context, cc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "restore case context")
	}
	if cc.State != StateAwaitingHuman {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("instance is in state %s, not awaiting human input", cc.State))
	}

	if hd.DecidedAt.IsZero() {
		hd.DecidedAt = time.Now().UTC()
	}
	cc.HumanDecision = &hd

	if err := e.transition(cc, terminal); err != nil {
		return nil, err
	}
	if err := e.appendAudit(ctx, cc, audit.StepHumanDecision, hd.Actor, hd); err != nil {
		return nil, err
	}

	e.activities.Record(ctx, cc.CaseID, activity.ActorSystem, "Human Review",
		fmt.Sprintf("Decision %s recorded by %s", hd.Decision, hd.Actor), activity.StatusSuccess, nil)
	e.activities.Record(ctx, cc.CaseID, activity.Actor(hd.Actor), "Human Decision",
		fmt.Sprintf("Decision: %s", hd.Decision), activity.StatusDecision,
		map[string]any{"decision": hd.Decision, "notes": hd.Notes})

	if e.metrics != nil {
		e.metrics.IncCasesResumed()
	}
	e.finalize(ctx, cc)

	return cc.Clone(), nil
}

// GetState returns a read-only snapshot of the instance.
func (e *Engine) GetState(ctx context.Context, instanceID string) (*CaseContext, error) {
	e.mu.RLock()
	cc, ok := e.instances[instanceID]
	e.mu.RUnlock()
	if ok {
		return cc.Clone(), nil
	}

	// After a restart the in-memory index is empty; fall back to the
	// durable checkpoint.
	cp, err := e.checkpoints.Get(ctx, instanceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnknownInstance, "unknown workflow instance")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load checkpoint")
	}

	restored := &CaseContext{}
	if err := json.Unmarshal(cp.Context, restored); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "restore case context")
	}
	return restored, nil
}

// AuditTrail returns the ordered audit entries for a case.
func (e *Engine) AuditTrail(ctx context.Context, caseID string) ([]audit.Entry, error) {
	return e.auditStore.List(ctx, caseID)
}

// transition moves the case to the next state, enforcing the state machine.
func (e *Engine) transition(cc *CaseContext, to State) error {
	if !CanTransition(cc.State, to) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", cc.State, to))
	}
	cc.State = to
	cc.UpdatedAt = time.Now().UTC()
	e.storeInstance(cc)
	return nil
}

// appendAudit records one audit entry for the step at the case's current
// state. The recorded state of the final entry always equals the state the
// engine returns.
func (e *Engine) appendAudit(ctx context.Context, cc *CaseContext, step, actor string, snapshot any) error {
	raw, err := audit.Snapshot(snapshot)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "serialize audit snapshot")
	}

	_, err = e.auditStore.Append(ctx, audit.Entry{
		CaseID:   cc.CaseID,
		Step:     step,
		Actor:    actor,
		State:    string(cc.State),
		Snapshot: raw,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append audit entry")
	}
	return nil
}

func (e *Engine) finalize(ctx context.Context, cc *CaseContext) {
	if e.metrics != nil {
		e.metrics.IncTerminalState(string(cc.State))
	}
	e.activities.Record(ctx, cc.CaseID, activity.ActorSystem, "Case Received",
		fmt.Sprintf("Case completed with state %s", cc.State), activity.StatusSuccess, nil)

	if e.logger != nil {
		e.logger.InfoContext(ctx, "case reached terminal state",
			"case_id", cc.CaseID,
			"instance_id", cc.InstanceID,
			"state", cc.State,
		)
	}
}

func (e *Engine) storeInstance(cc *CaseContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instances[cc.InstanceID] = cc.Clone()
}
