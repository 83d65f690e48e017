package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acip/internal/activity"
	"acip/internal/audit"
	auditmemory "acip/internal/audit/store/memory"
	"acip/internal/customers"
	"acip/internal/decision"
	"acip/internal/inspection"
	"acip/internal/inspection/fixture"
	"acip/internal/verification"
	checkpointmemory "acip/internal/workflow/checkpoint/memory"
	dErrors "acip/pkg/domain-errors"
)

type stubInspector struct {
	res *inspection.Result
	err error
}

func (s stubInspector) Inspect(ctx context.Context, req inspection.Request) (*inspection.Result, error) {
	return s.res, s.err
}

type stubVerifier struct {
	res *verification.Result
	err error
}

func (s stubVerifier) Verify(ctx context.Context, req verification.Request) (*verification.Result, error) {
	return s.res, s.err
}

type harness struct {
	engine      *Engine
	auditStore  *auditmemory.Store
	checkpoints *checkpointmemory.Store
	activities  *activity.Log
}

func newHarness(t *testing.T, inspector inspection.Provider, verifier verification.Provider, policy decision.Policy) *harness {
	t.Helper()
	auditStore := auditmemory.New()
	checkpoints := checkpointmemory.New()
	activities := activity.NewLog()
	engine := New(inspector, verifier, decision.New(policy), checkpoints, auditStore, activities)
	return &harness{engine: engine, auditStore: auditStore, checkpoints: checkpoints, activities: activities}
}

func janeCustomer() *customers.Record {
	return &customers.Record{
		CustomerID:   "CUST-002",
		FirstName:    "JANE",
		LastName:     "CITIZEN",
		DOB:          "1991-05-04",
		IDNumber:     "RA0123456",
		DocumentType: "PASSPORT",
	}
}

func janeRequest() StartRequest {
	return StartRequest{
		CaseID:       "CASE-1",
		CustomerName: "Jane Citizen",
		DocumentRef:  "jane_passport.jpg",
		Customer:     janeCustomer(),
	}
}

func auditSteps(t *testing.T, h *harness, caseID string) []string {
	t.Helper()
	entries, err := h.auditStore.List(context.Background(), caseID)
	require.NoError(t, err)
	steps := make([]string, 0, len(entries))
	for _, e := range entries {
		steps = append(steps, e.Step)
	}
	return steps
}

func TestEngine_StartCase_AutoApprove(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixture.New(), verification.New(), decision.Policy{AutoApproveLowRisk: true})

	cc, err := h.engine.StartCase(ctx, janeRequest())
	require.NoError(t, err)

	assert.Equal(t, StateApproved, cc.State)
	assert.Equal(t, decision.RiskLow, cc.RiskLevel)
	require.NotNil(t, cc.Verification)
	assert.Equal(t, verification.StatusVerified, cc.Verification.OverallStatus)
	assert.Empty(t, cc.Verification.DatabaseMatch.Discrepancies)
	require.NotNil(t, cc.Decision)
	assert.Equal(t, decision.DecisionApprove, cc.Decision.Decision)

	entries, err := h.auditStore.List(ctx, "CASE-1")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	// The last audit entry records the state the caller observed.
	last := entries[len(entries)-1]
	assert.Equal(t, audit.StepRiskDetermination, last.Step)
	assert.Equal(t, string(StateApproved), last.State)

	// Sequences are dense and ordered.
	for i, e := range entries {
		assert.Equal(t, i+1, e.Sequence)
	}
}

func TestEngine_StartCase_EscalatesWhenAutoApproveOff(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixture.New(), verification.New(), decision.Policy{AutoApproveLowRisk: false})

	cc, err := h.engine.StartCase(ctx, janeRequest())
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingHuman, cc.State)
	assert.Equal(t, decision.RiskLow, cc.RiskLevel)
	require.NotNil(t, cc.Decision)
	assert.Equal(t, decision.DecisionEscalate, cc.Decision.Decision)

	// The checkpoint exists and carries the full case context.
	cp, err := h.checkpoints.Get(ctx, cc.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, "CASE-1", cp.CaseID)
	assert.False(t, cp.Resumed)

	steps := auditSteps(t, h, "CASE-1")
	assert.Contains(t, steps, audit.StepCheckpointSuspended)
}

func TestEngine_StartCase_SanctionsHitRejects(t *testing.T) {
	ctx := context.Background()

	inspector := stubInspector{res: &inspection.Result{
		Success:      true,
		DocumentType: "PASSPORT",
		QualityScore: 0.92,
		Fields: map[string]string{
			inspection.FieldFirstName:      "SANCTIONED",
			inspection.FieldLastName:       "PERSON",
			inspection.FieldDOB:            "1970-01-01",
			inspection.FieldDocumentType:   "PASSPORT",
			inspection.FieldDocumentNumber: "SP000001",
			inspection.FieldIDNumber:       "SP000001",
		},
	}}
	h := newHarness(t, inspector, verification.New(), decision.Policy{AutoApproveLowRisk: true})

	cc, err := h.engine.StartCase(ctx, StartRequest{
		CaseID:       "CASE-2",
		CustomerName: "Sanctioned Person",
		DocumentRef:  "passport.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, StateRejected, cc.State)
	require.NotNil(t, cc.Decision)
	assert.Equal(t, decision.DecisionReject, cc.Decision.Decision)
	assert.Equal(t, decision.RiskHigh, cc.Decision.RiskLevel)
	assert.InDelta(t, 0.99, cc.Decision.ConfidenceScore, 0.001)
	assert.Contains(t, cc.Decision.Restrictions, decision.RestrictionAccountFrozen)

	entries, err := h.auditStore.List(ctx, "CASE-2")
	require.NoError(t, err)
	assert.Equal(t, string(StateRejected), entries[len(entries)-1].State)
}

func TestEngine_StartCase_LowQualitySuspendsBeforeVerification(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixture.New(), verification.New(), decision.Policy{AutoApproveLowRisk: true})

	cc, err := h.engine.StartCase(ctx, StartRequest{
		CaseID:       "CASE-3",
		CustomerName: "Jane Citizen",
		DocumentRef:  "blurry_scan.jpg",
		Customer:     janeCustomer(),
	})
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingHuman, cc.State)
	assert.Contains(t, cc.Issues, inspection.LowQualityIssue)
	assert.Nil(t, cc.Verification)
	assert.Nil(t, cc.Decision)

	steps := auditSteps(t, h, "CASE-3")
	assert.NotContains(t, steps, audit.StepExternalVerification)
	assert.NotContains(t, steps, audit.StepRiskDetermination)
	assert.Contains(t, steps, audit.StepCheckpointSuspended)
}

func TestEngine_StartCase_ProviderFailureSuspends(t *testing.T) {
	ctx := context.Background()
	verifier := stubVerifier{err: errors.New("registry unreachable")}
	h := newHarness(t, fixture.New(), verifier, decision.Policy{AutoApproveLowRisk: true})

	cc, err := h.engine.StartCase(ctx, janeRequest())
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingHuman, cc.State)
	require.NotEmpty(t, cc.Issues)
	assert.Contains(t, cc.Issues[0], "external verification failed")

	// All evidence recorded before the failure survives.
	require.NotNil(t, cc.Inspection)
	steps := auditSteps(t, h, "CASE-1")
	assert.Contains(t, steps, audit.StepDocumentInspection)
	assert.Contains(t, steps, audit.StepExternalVerification)
}

func TestEngine_ResumeCase(t *testing.T) {
	ctx := context.Background()

	suspend := func(t *testing.T) (*harness, *CaseContext) {
		t.Helper()
		h := newHarness(t, fixture.New(), verification.New(), decision.Policy{AutoApproveLowRisk: false})
		cc, err := h.engine.StartCase(ctx, janeRequest())
		require.NoError(t, err)
		require.Equal(t, StateAwaitingHuman, cc.State)
		return h, cc
	}

	t.Run("approve drives the case to APPROVED", func(t *testing.T) {
		h, cc := suspend(t)

		resumed, err := h.engine.ResumeCase(ctx, cc.InstanceID, HumanDecision{
			Decision: decision.DecisionApprove,
			Actor:    "reviewer-sarah",
			Notes:    "Documents check out",
		})
		require.NoError(t, err)

		assert.Equal(t, StateApproved, resumed.State)
		require.NotNil(t, resumed.HumanDecision)
		assert.Equal(t, "reviewer-sarah", resumed.HumanDecision.Actor)
		assert.False(t, resumed.HumanDecision.DecidedAt.IsZero())

		entries, err := h.auditStore.List(ctx, "CASE-1")
		require.NoError(t, err)
		last := entries[len(entries)-1]
		assert.Equal(t, audit.StepHumanDecision, last.Step)
		assert.Equal(t, string(StateApproved), last.State)
		assert.Equal(t, "reviewer-sarah", last.Actor)
	})

	t.Run("second resume fails and changes nothing", func(t *testing.T) {
		h, cc := suspend(t)

		_, err := h.engine.ResumeCase(ctx, cc.InstanceID, HumanDecision{Decision: decision.DecisionApprove, Actor: "first"})
		require.NoError(t, err)

		before := auditSteps(t, h, "CASE-1")

		_, err = h.engine.ResumeCase(ctx, cc.InstanceID, HumanDecision{Decision: decision.DecisionReject, Actor: "second"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyResumed))

		assert.Equal(t, before, auditSteps(t, h, "CASE-1"))

		state, err := h.engine.GetState(ctx, cc.InstanceID)
		require.NoError(t, err)
		assert.Equal(t, StateApproved, state.State)
	})

	t.Run("unknown instance leaves no audit trace", func(t *testing.T) {
		h, _ := suspend(t)
		before := auditSteps(t, h, "CASE-1")

		_, err := h.engine.ResumeCase(ctx, "no-such-instance", HumanDecision{Decision: decision.DecisionApprove, Actor: "reviewer"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownInstance))

		assert.Equal(t, before, auditSteps(t, h, "CASE-1"))
	})

	t.Run("invalid decision is rejected", func(t *testing.T) {
		h, cc := suspend(t)
		_, err := h.engine.ResumeCase(ctx, cc.InstanceID, HumanDecision{Decision: "MAYBE", Actor: "reviewer"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("concurrent resumes yield exactly one winner", func(t *testing.T) {
		h, cc := suspend(t)

		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.engine.ResumeCase(ctx, cc.InstanceID, HumanDecision{Decision: decision.DecisionEscalate, Actor: "reviewer"})
				if err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners)

		state, err := h.engine.GetState(ctx, cc.InstanceID)
		require.NoError(t, err)
		assert.Equal(t, StateEscalated, state.State)
	})
}

func TestEngine_GetState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixture.New(), verification.New(), decision.Policy{AutoApproveLowRisk: false})

	cc, err := h.engine.StartCase(ctx, janeRequest())
	require.NoError(t, err)

	t.Run("snapshot matches the running instance", func(t *testing.T) {
		state, err := h.engine.GetState(ctx, cc.InstanceID)
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingHuman, state.State)
		assert.Equal(t, "CASE-1", state.CaseID)
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		state, err := h.engine.GetState(ctx, cc.InstanceID)
		require.NoError(t, err)
		state.Issues = append(state.Issues, "mutated")

		fresh, err := h.engine.GetState(ctx, cc.InstanceID)
		require.NoError(t, err)
		assert.NotContains(t, fresh.Issues, "mutated")
	})

	t.Run("unknown instance", func(t *testing.T) {
		_, err := h.engine.GetState(ctx, "no-such-instance")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownInstance))
	})

	t.Run("falls back to the checkpoint after a restart", func(t *testing.T) {
		// A fresh engine sharing the same checkpoint store stands in for a
		// restarted process.
		restarted := New(fixture.New(), verification.New(), decision.New(decision.Policy{}),
			h.checkpoints, h.auditStore, h.activities)

		state, err := restarted.GetState(ctx, cc.InstanceID)
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingHuman, state.State)
		assert.Equal(t, "CASE-1", state.CaseID)
	})
}

func TestEngine_StateMachine(t *testing.T) {
	assert.True(t, CanTransition(StatePending, StateProcessing))
	assert.True(t, CanTransition(StateComplianceReview, StateAwaitingHuman))
	assert.True(t, CanTransition(StateAwaitingHuman, StateEscalated))

	assert.False(t, CanTransition(StatePending, StateApproved))
	assert.False(t, CanTransition(StateApproved, StateRejected))
	assert.False(t, CanTransition(StateAwaitingHuman, StateProcessing))

	for _, s := range []State{StateApproved, StateRejected, StateEscalated} {
		assert.True(t, s.IsTerminal())
		assert.Empty(t, transitions[s])
	}
}
