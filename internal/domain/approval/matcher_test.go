package approval

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakledger/claimflow/internal/domain/claim"
)

func amountRule(name string, priority int, op ConditionOp, amount string) *Rule {
	return &Rule{
		ID:       uuid.New(),
		OrgID:    "org-1",
		Name:     name,
		Priority: priority,
		IsActive: true,
		Conditions: []Condition{
			{Field: FieldAmount, Op: op, Amount: decimal.RequireFromString(amount)},
		},
		Steps: []StepTemplate{{Type: StepTypeManager, Name: "Manager", Role: "manager"}},
	}
}

func TestSelectRule_PriorityOrder(t *testing.T) {
	low := amountRule("low priority", 20, OpGT, "0")
	high := amountRule("high priority", 10, OpGT, "0")

	attrs := ClaimAttributes{TotalNormalized: decimal.RequireFromString("500")}
	got, err := SelectRule(attrs, []*Rule{low, high})
	if err != nil {
		t.Fatalf("SelectRule() error = %v", err)
	}
	if got.Name != "high priority" {
		t.Errorf("SelectRule() = %q, want lower priority number to win", got.Name)
	}
}

func TestSelectRule_TieBreakIsDeterministic(t *testing.T) {
	a := amountRule("rule a", 10, OpGT, "0")
	b := amountRule("rule b", 10, OpGT, "0")

	attrs := ClaimAttributes{TotalNormalized: decimal.RequireFromString("500")}

	first, err := SelectRule(attrs, []*Rule{a, b})
	if err != nil {
		t.Fatalf("SelectRule() error = %v", err)
	}
	// Same rule set in reverse order must select the same rule
	second, err := SelectRule(attrs, []*Rule{b, a})
	if err != nil {
		t.Fatalf("SelectRule() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("SelectRule() tie-break not deterministic: %v vs %v", first.ID, second.ID)
	}
}

func TestSelectRule_CategoryConditionBeatsDefault(t *testing.T) {
	hotel := &Rule{
		ID:       uuid.New(),
		OrgID:    "org-1",
		Name:     "hotel review",
		Priority: 5,
		IsActive: true,
		Conditions: []Condition{
			{Field: FieldCategory, Op: OpIn, Values: []string{"hotel"}},
		},
		Steps: []StepTemplate{{Type: StepTypeFinance, Name: "Finance", Role: "finance"}},
	}
	fallback := &Rule{
		ID:        uuid.New(),
		OrgID:     "org-1",
		Name:      "catch-all",
		Priority:  100,
		IsActive:  true,
		IsDefault: true,
		Steps:     []StepTemplate{{Type: StepTypeManager, Name: "Manager", Role: "manager"}},
	}

	hotelClaim := ClaimAttributes{
		TotalNormalized: decimal.RequireFromString("300"),
		Categories:      []claim.Category{claim.CategoryHotel},
	}
	got, err := SelectRule(hotelClaim, []*Rule{fallback, hotel})
	if err != nil {
		t.Fatalf("SelectRule() error = %v", err)
	}
	if got.Name != "hotel review" {
		t.Errorf("SelectRule() = %q, want the conditioned rule over the default", got.Name)
	}

	mealClaim := ClaimAttributes{
		TotalNormalized: decimal.RequireFromString("40"),
		Categories:      []claim.Category{claim.CategoryMeal},
	}
	got, err = SelectRule(mealClaim, []*Rule{fallback, hotel})
	if err != nil {
		t.Fatalf("SelectRule() error = %v", err)
	}
	if got.Name != "catch-all" {
		t.Errorf("SelectRule() = %q, want the default when nothing else matches", got.Name)
	}
}

func TestSelectRule_NoApplicableRule(t *testing.T) {
	over1000 := amountRule("large claims", 10, OpGT, "1000")

	attrs := ClaimAttributes{TotalNormalized: decimal.RequireFromString("10")}
	_, err := SelectRule(attrs, []*Rule{over1000})
	if !errors.Is(err, ErrNoApplicableRule) {
		t.Fatalf("SelectRule() error = %v, want ErrNoApplicableRule", err)
	}
}

func TestSelectRule_IgnoresInactiveRules(t *testing.T) {
	inactive := amountRule("inactive", 1, OpGT, "0")
	inactive.IsActive = false
	active := amountRule("active", 50, OpGT, "0")

	attrs := ClaimAttributes{TotalNormalized: decimal.RequireFromString("100")}
	got, err := SelectRule(attrs, []*Rule{inactive, active})
	if err != nil {
		t.Fatalf("SelectRule() error = %v", err)
	}
	if got.Name != "active" {
		t.Errorf("SelectRule() = %q, want inactive rules ignored", got.Name)
	}
}

func TestSelectRule_DefaultDemotedStillMatchesByCondition(t *testing.T) {
	// A default rule with conditions only serves as fallback; its
	// conditions are not evaluated ahead of non-default rules.
	fallback := &Rule{
		ID:        uuid.New(),
		OrgID:     "org-1",
		Name:      "catch-all",
		Priority:  1,
		IsActive:  true,
		IsDefault: true,
	}
	specific := amountRule("specific", 99, OpGT, "0")

	attrs := ClaimAttributes{TotalNormalized: decimal.RequireFromString("100")}
	got, err := SelectRule(attrs, []*Rule{fallback, specific})
	if err != nil {
		t.Fatalf("SelectRule() error = %v", err)
	}
	if got.Name != "specific" {
		t.Errorf("SelectRule() = %q, want non-default rules considered before the default", got.Name)
	}
}

func TestRule_MatchesClaim_AllConditionsMustHold(t *testing.T) {
	rule := &Rule{
		ID:       uuid.New(),
		IsActive: true,
		Conditions: []Condition{
			{Field: FieldAmount, Op: OpGTE, Amount: decimal.RequireFromString("100")},
			{Field: FieldDepartment, Op: OpEQ, Values: []string{"engineering"}},
		},
	}

	match := ClaimAttributes{
		TotalNormalized: decimal.RequireFromString("150"),
		Department:      "engineering",
	}
	if !rule.MatchesClaim(match) {
		t.Error("MatchesClaim() = false, want true when all conditions hold")
	}

	wrongDept := match
	wrongDept.Department = "sales"
	if rule.MatchesClaim(wrongDept) {
		t.Error("MatchesClaim() = true, want false when one condition fails")
	}
}
