package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/claim"
	"github.com/oakledger/claimflow/internal/domain/policy"
)

type countingRuleRepo struct {
	listCalls int
	rules     []*approval.Rule
}

func (r *countingRuleRepo) Create(ctx context.Context, rule *approval.Rule) error { return nil }
func (r *countingRuleRepo) Update(ctx context.Context, rule *approval.Rule) error { return nil }
func (r *countingRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*approval.Rule, error) {
	return nil, nil
}
func (r *countingRuleRepo) ListByOrg(ctx context.Context, orgID string) ([]*approval.Rule, error) {
	r.listCalls++
	return r.rules, nil
}
func (r *countingRuleRepo) SetDefault(ctx context.Context, orgID string, ruleID uuid.UUID) error {
	return nil
}
func (r *countingRuleRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}
func (r *countingRuleRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type countingPolicyRepo struct {
	listActiveCalls int
	policies        []*policy.Policy
}

func (r *countingPolicyRepo) Create(ctx context.Context, p *policy.Policy) error { return nil }
func (r *countingPolicyRepo) Update(ctx context.Context, p *policy.Policy) error { return nil }
func (r *countingPolicyRepo) GetByID(ctx context.Context, id uuid.UUID) (*policy.Policy, error) {
	return nil, nil
}
func (r *countingPolicyRepo) ListByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error) {
	return r.policies, nil
}
func (r *countingPolicyRepo) ListActiveByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error) {
	r.listActiveCalls++
	return r.policies, nil
}
func (r *countingPolicyRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func TestReferenceCache_RulesReadThrough(t *testing.T) {
	repo := &countingRuleRepo{rules: []*approval.Rule{{ID: uuid.New(), OrgID: "org-1", Name: "r"}}}
	c := NewReferenceCache(repo, &countingPolicyRepo{}, zap.NewNop())

	for i := 0; i < 3; i++ {
		rules, err := c.RulesByOrg(context.Background(), "org-1")
		if err != nil {
			t.Fatalf("RulesByOrg() error = %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("RulesByOrg() = %d rules, want 1", len(rules))
		}
	}
	if repo.listCalls != 1 {
		t.Errorf("repository hit %d times, want 1 (cached reads)", repo.listCalls)
	}
}

func TestReferenceCache_InvalidateRulesForcesReload(t *testing.T) {
	repo := &countingRuleRepo{}
	c := NewReferenceCache(repo, &countingPolicyRepo{}, zap.NewNop())

	if _, err := c.RulesByOrg(context.Background(), "org-1"); err != nil {
		t.Fatal(err)
	}
	c.InvalidateRules("org-1")
	if _, err := c.RulesByOrg(context.Background(), "org-1"); err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 2 {
		t.Errorf("repository hit %d times, want 2 after invalidation", repo.listCalls)
	}
}

func TestReferenceCache_InvalidationIsPerOrg(t *testing.T) {
	repo := &countingRuleRepo{}
	c := NewReferenceCache(repo, &countingPolicyRepo{}, zap.NewNop())

	if _, err := c.RulesByOrg(context.Background(), "org-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RulesByOrg(context.Background(), "org-2"); err != nil {
		t.Fatal(err)
	}
	c.InvalidateRules("org-2")
	if _, err := c.RulesByOrg(context.Background(), "org-1"); err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 2 {
		t.Errorf("repository hit %d times, want 2: org-1 entry must survive org-2 invalidation", repo.listCalls)
	}
}

func TestReferenceCache_PoliciesReadThrough(t *testing.T) {
	repo := &countingPolicyRepo{policies: []*policy.Policy{{
		ID: uuid.New(), OrgID: "org-1", Name: "p", IsActive: true,
		Rules: []policy.Rule{{ID: uuid.New(), Name: "cap", Categories: []claim.Category{claim.CategoryMeal}}},
	}}}
	c := NewReferenceCache(&countingRuleRepo{}, repo, zap.NewNop())

	for i := 0; i < 2; i++ {
		policies, err := c.ActivePoliciesByOrg(context.Background(), "org-1")
		if err != nil {
			t.Fatalf("ActivePoliciesByOrg() error = %v", err)
		}
		if len(policies) != 1 {
			t.Fatalf("ActivePoliciesByOrg() = %d policies, want 1", len(policies))
		}
	}
	if repo.listActiveCalls != 1 {
		t.Errorf("repository hit %d times, want 1", repo.listActiveCalls)
	}

	c.InvalidatePolicies("org-1")
	if _, err := c.ActivePoliciesByOrg(context.Background(), "org-1"); err != nil {
		t.Fatal(err)
	}
	if repo.listActiveCalls != 2 {
		t.Errorf("repository hit %d times after invalidation, want 2", repo.listActiveCalls)
	}
}
