package cases_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acip/internal/activity"
	auditmemory "acip/internal/audit/store/memory"
	"acip/internal/cases"
	casememory "acip/internal/cases/store/memory"
	"acip/internal/customers"
	"acip/internal/decision"
	"acip/internal/inspection/fixture"
	"acip/internal/verification"
	"acip/internal/workflow"
	checkpointmemory "acip/internal/workflow/checkpoint/memory"
	dErrors "acip/pkg/domain-errors"
)

func newService(t *testing.T, policy decision.Policy) *cases.Service {
	t.Helper()

	activities := activity.NewLog()
	engine := workflow.New(
		fixture.New(),
		verification.New(),
		decision.New(policy),
		checkpointmemory.New(),
		auditmemory.New(),
		activities,
	)
	return cases.NewService(casememory.New(), engine, customers.NewSeededStore(), activities)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("known customer runs to suspension", func(t *testing.T) {
		svc := newService(t, decision.Policy{AutoApproveLowRisk: false})

		detail, err := svc.Create(ctx, cases.CreateRequest{
			CustomerID:  "CUST-002",
			DocumentRef: "jane_passport.jpg",
		})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(detail.Case.CaseID, "CASE-"))
		assert.Equal(t, "Jane Citizen", detail.Case.CustomerName)
		assert.Equal(t, workflow.StateAwaitingHuman, detail.Case.State)
		assert.False(t, detail.Case.Deadline.IsZero())
		require.NotNil(t, detail.Context)
		assert.Equal(t, verification.StatusVerified, detail.Context.Verification.OverallStatus)
	})

	t.Run("auto-approve completes the case", func(t *testing.T) {
		svc := newService(t, decision.Policy{AutoApproveLowRisk: true})

		detail, err := svc.Create(ctx, cases.CreateRequest{
			CustomerID:  "CUST-002",
			DocumentRef: "jane_passport.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, workflow.StateApproved, detail.Case.State)
	})

	t.Run("unknown customer is rejected", func(t *testing.T) {
		svc := newService(t, decision.Policy{})

		_, err := svc.Create(ctx, cases.CreateRequest{
			CustomerID:  "CUST-999",
			DocumentRef: "passport.jpg",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("missing document reference fails validation", func(t *testing.T) {
		svc := newService(t, decision.Policy{})

		_, err := svc.Create(ctx, cases.CreateRequest{CustomerID: "CUST-002"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestService_Decide(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, decision.Policy{AutoApproveLowRisk: false})

	created, err := svc.Create(ctx, cases.CreateRequest{
		CustomerID:  "CUST-002",
		DocumentRef: "jane_passport.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, workflow.StateAwaitingHuman, created.Case.State)

	t.Run("decision drives the case terminal and persists", func(t *testing.T) {
		detail, err := svc.Decide(ctx, created.Case.CaseID, workflow.HumanDecision{
			Decision: decision.DecisionApprove,
			Actor:    "reviewer-sarah",
			Notes:    "Verified against source documents",
		})
		require.NoError(t, err)
		assert.Equal(t, workflow.StateApproved, detail.Case.State)

		reloaded, err := svc.Get(ctx, created.Case.CaseID)
		require.NoError(t, err)
		assert.Equal(t, workflow.StateApproved, reloaded.Case.State)
	})

	t.Run("second decision conflicts", func(t *testing.T) {
		_, err := svc.Decide(ctx, created.Case.CaseID, workflow.HumanDecision{
			Decision: decision.DecisionReject,
			Actor:    "reviewer-tom",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyResumed))
	})

	t.Run("unknown case", func(t *testing.T) {
		_, err := svc.Decide(ctx, "CASE-MISSING", workflow.HumanDecision{
			Decision: decision.DecisionApprove,
			Actor:    "reviewer",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestService_Reports(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, decision.Policy{AutoApproveLowRisk: false})

	created, err := svc.Create(ctx, cases.CreateRequest{
		CustomerID:  "CUST-002",
		DocumentRef: "jane_passport.jpg",
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, created.Case.CaseID, workflow.HumanDecision{
		Decision: decision.DecisionApprove,
		Actor:    "reviewer-sarah",
		Notes:    "All good",
	})
	require.NoError(t, err)

	t.Run("audit report", func(t *testing.T) {
		text, err := svc.AuditReport(ctx, created.Case.CaseID)
		require.NoError(t, err)

		assert.Contains(t, text, "ACIP VERIFICATION AUDIT REPORT")
		assert.Contains(t, text, created.Case.CaseID)
		assert.Contains(t, text, "Jane Citizen")
		assert.Contains(t, text, "HUMAN_DECISION")
		assert.Contains(t, text, "reviewer-sarah")
	})

	t.Run("activity report", func(t *testing.T) {
		page, err := svc.ActivityReport(ctx, created.Case.CaseID)
		require.NoError(t, err)

		assert.Contains(t, page, "<title>Activity - "+created.Case.CaseID+"</title>")
		assert.Contains(t, page, "Document Inspector")
		assert.Contains(t, page, "Compliance Officer")
	})

	t.Run("timeline bundles audit trail and activities", func(t *testing.T) {
		timeline, err := svc.Timeline(ctx, created.Case.CaseID)
		require.NoError(t, err)

		assert.NotEmpty(t, timeline.AuditTrail)
		assert.NotEmpty(t, timeline.Activities)
		assert.Equal(t, created.Case.CaseID, timeline.Case.CaseID)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, decision.Policy{AutoApproveLowRisk: true})

	for _, ref := range []string{"jane_passport.jpg", "craig_license.jpg"} {
		_, err := svc.Create(ctx, cases.CreateRequest{CustomerName: "Walk In", DocumentRef: ref})
		require.NoError(t, err)
	}

	out, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
