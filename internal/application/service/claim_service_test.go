package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/claim"
)

func draftClaim(submitter string) *claim.Claim {
	item := claim.NewLineItem(uuid.New(), claim.CategoryHotel, decimal.RequireFromString("300"), "USD", decimal.NewFromInt(1), time.Now())
	return &claim.Claim{
		ID:           uuid.New(),
		OrgID:        "org-1",
		SubmitterID:  submitter,
		Department:   "engineering",
		Title:        "Berlin onsite",
		BaseCurrency: "USD",
		Status:       claim.StatusDraft,
		Items:        []claim.LineItem{item},
	}
}

func managerRule() *approval.Rule {
	return &approval.Rule{
		ID:       uuid.New(),
		OrgID:    "org-1",
		Name:     "manager review",
		Priority: 10,
		IsActive: true,
		Steps:    []approval.StepTemplate{{Type: approval.StepTypeManager, Name: "Manager", Role: "manager"}},
	}
}

func TestClaimService_CreateClaim(t *testing.T) {
	var created *claim.Claim
	claimRepo := &mockClaimRepo{
		createFunc: func(ctx context.Context, c *claim.Claim) error {
			created = c
			return nil
		},
	}
	history := &mockHistoryRepo{}
	svc := NewClaimService(claimRepo, &mockChainRepo{}, history, &mockRuleSource{}, passthroughTx{}, nopLogger{})

	c, err := svc.CreateClaim(context.Background(), CreateClaimInput{
		OrgID:        "org-1",
		SubmitterID:  "user-1",
		Title:        "Berlin onsite",
		BaseCurrency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, claim.StatusDraft, c.Status)
	assert.Equal(t, created.ID, c.ID)
	require.Len(t, history.entries, 1)
	assert.Equal(t, "CREATE", history.entries[0].Action)
}

func TestClaimService_CreateClaim_MissingFields(t *testing.T) {
	svc := NewClaimService(&mockClaimRepo{}, &mockChainRepo{}, &mockHistoryRepo{}, &mockRuleSource{}, passthroughTx{}, nopLogger{})

	_, err := svc.CreateClaim(context.Background(), CreateClaimInput{OrgID: "org-1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClaimService_SubmitClaim_BuildsChainAndGoesPending(t *testing.T) {
	c := draftClaim("user-1")
	var persistedSteps []approval.Step
	var newStatus claim.Status

	claimRepo := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
		updateStatusFunc: func(ctx context.Context, id uuid.UUID, status claim.Status, rejectReason string) error {
			newStatus = status
			return nil
		},
	}
	chainRepo := &mockChainRepo{
		createStepsFunc: func(ctx context.Context, steps []approval.Step) error {
			persistedSteps = steps
			return nil
		},
	}
	history := &mockHistoryRepo{}
	rules := &mockRuleSource{rules: []*approval.Rule{managerRule()}}
	svc := NewClaimService(claimRepo, chainRepo, history, rules, passthroughTx{}, nopLogger{})

	got, err := svc.SubmitClaim(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, claim.StatusPending, got.Status)
	assert.Equal(t, claim.StatusPending, newStatus)
	require.Len(t, persistedSteps, 1)
	assert.Equal(t, approval.StepPending, persistedSteps[0].Status)
	assert.NotNil(t, got.SubmittedAt)
	require.Len(t, history.entries, 1)
	assert.Equal(t, "SUBMIT", history.entries[0].Action)
}

func TestClaimService_SubmitClaim_ZeroStepRuleAutoApproves(t *testing.T) {
	c := draftClaim("user-1")
	rule := managerRule()
	rule.Steps = nil

	var newStatus claim.Status
	stepsCreated := false
	claimRepo := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
		updateStatusFunc: func(ctx context.Context, id uuid.UUID, status claim.Status, rejectReason string) error {
			newStatus = status
			return nil
		},
	}
	chainRepo := &mockChainRepo{
		createStepsFunc: func(ctx context.Context, steps []approval.Step) error {
			stepsCreated = true
			return nil
		},
	}
	history := &mockHistoryRepo{}
	svc := NewClaimService(claimRepo, chainRepo, history, &mockRuleSource{rules: []*approval.Rule{rule}}, passthroughTx{}, nopLogger{})

	got, err := svc.SubmitClaim(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, claim.StatusApproved, got.Status)
	assert.Equal(t, claim.StatusApproved, newStatus)
	assert.False(t, stepsCreated, "no steps should be persisted for a zero-step rule")
	require.Len(t, history.entries, 1)
	assert.Equal(t, "AUTO_APPROVE", history.entries[0].Action)
}

func TestClaimService_SubmitClaim_NoApplicableRule(t *testing.T) {
	c := draftClaim("user-1")
	claimRepo := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
	}
	svc := NewClaimService(claimRepo, &mockChainRepo{}, &mockHistoryRepo{}, &mockRuleSource{}, passthroughTx{}, nopLogger{})

	_, err := svc.SubmitClaim(context.Background(), c.ID, "user-1")
	assert.ErrorIs(t, err, approval.ErrNoApplicableRule)
	assert.Equal(t, claim.StatusDraft, c.Status, "claim must stay draft when no rule applies")
}

func TestClaimService_SubmitClaim_Guards(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *claim.Claim)
		actor   string
		wantErr error
	}{
		{"not owner", func(c *claim.Claim) {}, "someone-else", ErrNotOwner},
		{"already pending", func(c *claim.Claim) { c.Status = claim.StatusPending }, "user-1", ErrClaimNotEditable},
		{"no items", func(c *claim.Claim) { c.Items = nil }, "user-1", ErrEmptyClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := draftClaim("user-1")
			tt.mutate(c)
			claimRepo := &mockClaimRepo{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
			}
			svc := NewClaimService(claimRepo, &mockChainRepo{}, &mockHistoryRepo{}, &mockRuleSource{rules: []*approval.Rule{managerRule()}}, passthroughTx{}, nopLogger{})

			_, err := svc.SubmitClaim(context.Background(), c.ID, tt.actor)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClaimService_AddLineItem(t *testing.T) {
	c := draftClaim("user-1")
	claimRepo := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
	}
	svc := NewClaimService(claimRepo, &mockChainRepo{}, &mockHistoryRepo{}, &mockRuleSource{}, passthroughTx{}, nopLogger{})

	item, err := svc.AddLineItem(context.Background(), c.ID, "user-1", AddItemInput{
		Category:     claim.CategoryMeal,
		Amount:       decimal.RequireFromString("42.50"),
		Currency:     "EUR",
		ExchangeRate: decimal.RequireFromString("1.1"),
		ExpenseDate:  time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, item.Normalized.Equal(decimal.RequireFromString("46.75")), "normalized = amount * rate")
}

func TestClaimService_AddLineItem_Guards(t *testing.T) {
	c := draftClaim("user-1")
	claimRepo := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
	}
	svc := NewClaimService(claimRepo, &mockChainRepo{}, &mockHistoryRepo{}, &mockRuleSource{}, passthroughTx{}, nopLogger{})

	valid := AddItemInput{
		Category:     claim.CategoryMeal,
		Amount:       decimal.NewFromInt(10),
		Currency:     "USD",
		ExchangeRate: decimal.NewFromInt(1),
		ExpenseDate:  time.Now(),
	}

	bad := valid
	bad.Category = claim.Category("snacks")
	_, err := svc.AddLineItem(context.Background(), c.ID, "user-1", bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = valid
	bad.Amount = decimal.NewFromInt(-5)
	_, err = svc.AddLineItem(context.Background(), c.ID, "user-1", bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddLineItem(context.Background(), c.ID, "other-user", valid)
	assert.ErrorIs(t, err, ErrNotOwner)

	c.Status = claim.StatusPending
	_, err = svc.AddLineItem(context.Background(), c.ID, "user-1", valid)
	assert.ErrorIs(t, err, ErrClaimNotEditable)
}

func TestClaimService_ReEditClaim(t *testing.T) {
	c := draftClaim("user-1")
	c.Status = claim.StatusRejected

	chainDeleted := false
	var newStatus claim.Status
	claimRepo := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
		updateStatusFunc: func(ctx context.Context, id uuid.UUID, status claim.Status, rejectReason string) error {
			newStatus = status
			return nil
		},
	}
	chainRepo := &mockChainRepo{
		deleteByClaimIDFunc: func(ctx context.Context, claimID uuid.UUID) error {
			chainDeleted = true
			return nil
		},
	}
	svc := NewClaimService(claimRepo, chainRepo, &mockHistoryRepo{}, &mockRuleSource{}, passthroughTx{}, nopLogger{})

	err := svc.ReEditClaim(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, chainDeleted, "stale chain must be discarded")
	assert.Equal(t, claim.StatusDraft, newStatus)
}

func TestClaimService_ReEditClaim_OnlyFromRejected(t *testing.T) {
	c := draftClaim("user-1")
	c.Status = claim.StatusApproved
	claimRepo := &mockClaimRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
	}
	svc := NewClaimService(claimRepo, &mockChainRepo{}, &mockHistoryRepo{}, &mockRuleSource{}, passthroughTx{}, nopLogger{})

	err := svc.ReEditClaim(context.Background(), c.ID, "user-1")
	assert.ErrorIs(t, err, claim.ErrInvalidTransition)
}

func TestClaimService_DeleteClaim(t *testing.T) {
	tests := []struct {
		name    string
		status  claim.Status
		actor   string
		wantErr error
	}{
		{"draft by owner", claim.StatusDraft, "user-1", nil},
		{"rejected by owner", claim.StatusRejected, "user-1", nil},
		{"pending by owner", claim.StatusPending, "user-1", ErrClaimNotDeletable},
		{"draft by other", claim.StatusDraft, "intruder", ErrNotOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := draftClaim("user-1")
			c.Status = tt.status
			claimRepo := &mockClaimRepo{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*claim.Claim, error) { return c, nil },
			}
			svc := NewClaimService(claimRepo, &mockChainRepo{}, &mockHistoryRepo{}, &mockRuleSource{}, passthroughTx{}, nopLogger{})

			err := svc.DeleteClaim(context.Background(), c.ID, tt.actor)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestClaimService_GetClaim_NotFound(t *testing.T) {
	svc := NewClaimService(&mockClaimRepo{}, &mockChainRepo{}, &mockHistoryRepo{}, &mockRuleSource{}, passthroughTx{}, nopLogger{})

	_, err := svc.GetClaim(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrClaimNotFound)
}
