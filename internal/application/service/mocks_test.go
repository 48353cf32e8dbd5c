package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/claim"
	"github.com/oakledger/claimflow/internal/domain/policy"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// passthroughTx runs the function directly, without a database
type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockClaimRepo struct {
	createFunc         func(ctx context.Context, c *claim.Claim) error
	getByIDFunc        func(ctx context.Context, id uuid.UUID) (*claim.Claim, error)
	listByOrgFunc      func(ctx context.Context, orgID string, limit, offset int) ([]*claim.Claim, error)
	updateStatusFunc   func(ctx context.Context, id uuid.UUID, status claim.Status, rejectReason string) error
	setSubmittedAtFunc func(ctx context.Context, id uuid.UUID, t time.Time) error
	deleteFunc         func(ctx context.Context, id uuid.UUID) error
	addItemFunc        func(ctx context.Context, item *claim.LineItem) error
}

func (m *mockClaimRepo) Create(ctx context.Context, c *claim.Claim) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, c)
	}
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockClaimRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]*claim.Claim, error) {
	if m.listByOrgFunc != nil {
		return m.listByOrgFunc(ctx, orgID, limit, offset)
	}
	return nil, nil
}

func (m *mockClaimRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status claim.Status, rejectReason string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status, rejectReason)
	}
	return nil
}

func (m *mockClaimRepo) SetSubmittedAt(ctx context.Context, id uuid.UUID, t time.Time) error {
	if m.setSubmittedAtFunc != nil {
		return m.setSubmittedAtFunc(ctx, id, t)
	}
	return nil
}

func (m *mockClaimRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockClaimRepo) AddItem(ctx context.Context, item *claim.LineItem) error {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, item)
	}
	return nil
}

type mockChainRepo struct {
	createStepsFunc     func(ctx context.Context, steps []approval.Step) error
	getByClaimIDFunc    func(ctx context.Context, claimID uuid.UUID) (*approval.Chain, error)
	updateStepFunc      func(ctx context.Context, step *approval.Step) error
	deleteByClaimIDFunc func(ctx context.Context, claimID uuid.UUID) error
}

func (m *mockChainRepo) CreateSteps(ctx context.Context, steps []approval.Step) error {
	if m.createStepsFunc != nil {
		return m.createStepsFunc(ctx, steps)
	}
	return nil
}

func (m *mockChainRepo) GetByClaimID(ctx context.Context, claimID uuid.UUID) (*approval.Chain, error) {
	if m.getByClaimIDFunc != nil {
		return m.getByClaimIDFunc(ctx, claimID)
	}
	return nil, nil
}

func (m *mockChainRepo) UpdateStep(ctx context.Context, step *approval.Step) error {
	if m.updateStepFunc != nil {
		return m.updateStepFunc(ctx, step)
	}
	return nil
}

func (m *mockChainRepo) DeleteByClaimID(ctx context.Context, claimID uuid.UUID) error {
	if m.deleteByClaimIDFunc != nil {
		return m.deleteByClaimIDFunc(ctx, claimID)
	}
	return nil
}

type mockHistoryRepo struct {
	entries    []*claim.HistoryEntry
	appendFunc func(ctx context.Context, entry *claim.HistoryEntry) error
}

func (m *mockHistoryRepo) Append(ctx context.Context, entry *claim.HistoryEntry) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, entry)
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistoryRepo) ListByClaimID(ctx context.Context, claimID uuid.UUID) ([]*claim.HistoryEntry, error) {
	return m.entries, nil
}

type mockRuleSource struct {
	rules []*approval.Rule
	err   error
}

func (m *mockRuleSource) RulesByOrg(ctx context.Context, orgID string) ([]*approval.Rule, error) {
	return m.rules, m.err
}

type mockPolicySource struct {
	policies []*policy.Policy
	err      error
}

func (m *mockPolicySource) ActivePoliciesByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error) {
	return m.policies, m.err
}
