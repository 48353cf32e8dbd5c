package policy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakledger/claimflow/internal/domain/claim"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func itemOn(day string, category claim.Category, amount string) claim.LineItem {
	d, _ := time.Parse("2006-01-02", day)
	return claim.LineItem{
		ID:           uuid.New(),
		Category:     category,
		Amount:       dec(amount),
		Currency:     "USD",
		ExchangeRate: decimal.NewFromInt(1),
		Normalized:   dec(amount),
		ExpenseDate:  d,
		ReceiptURL:   "https://receipts/r.pdf",
	}
}

func hotelPolicy(limitType LimitType, limit string) *Policy {
	return &Policy{
		ID:       uuid.New(),
		OrgID:    "org-1",
		Name:     "travel policy",
		IsActive: true,
		Rules: []Rule{{
			ID:         uuid.New(),
			Name:       "hotel cap",
			Categories: []claim.Category{claim.CategoryHotel},
			Limit:      &Limit{Type: limitType, Amount: dec(limit), Currency: "USD"},
		}},
	}
}

func TestAnalyze_LimitIsInclusive(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	policies := []*Policy{hotelPolicy(LimitPerItem, "200")}

	atLimit := &claim.Claim{
		ID:    uuid.New(),
		Items: []claim.LineItem{itemOn("2026-03-01", claim.CategoryHotel, "200")},
	}
	if alerts := analyzer.Analyze(atLimit, policies); len(alerts) != 0 {
		t.Errorf("Analyze() at exactly the limit = %d alerts, want 0", len(alerts))
	}

	overLimit := &claim.Claim{
		ID:    uuid.New(),
		Items: []claim.LineItem{itemOn("2026-03-01", claim.CategoryHotel, "200.01")},
	}
	alerts := analyzer.Analyze(overLimit, policies)
	if len(alerts) != 1 {
		t.Fatalf("Analyze() one cent over = %d alerts, want 1", len(alerts))
	}
	if alerts[0].Kind != AlertOverBudget {
		t.Errorf("alert kind = %v, want over budget", alerts[0].Kind)
	}
}

func TestAnalyze_PercentOver(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	policies := []*Policy{hotelPolicy(LimitPerItem, "200")}

	c := &claim.Claim{
		ID:    uuid.New(),
		Items: []claim.LineItem{itemOn("2026-03-01", claim.CategoryHotel, "250")},
	}
	alerts := analyzer.Analyze(c, policies)
	if len(alerts) != 1 {
		t.Fatalf("Analyze() = %d alerts, want 1", len(alerts))
	}
	if alerts[0].PercentOver != 25.0 {
		t.Errorf("PercentOver = %v, want 25", alerts[0].PercentOver)
	}
	if alerts[0].Severity != SeverityMedium {
		t.Errorf("Severity = %v, want medium for a 25%% overage", alerts[0].Severity)
	}
}

func TestAnalyze_LargeOverageIsHighSeverity(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	policies := []*Policy{hotelPolicy(LimitPerItem, "200")}

	c := &claim.Claim{
		ID:    uuid.New(),
		Items: []claim.LineItem{itemOn("2026-03-01", claim.CategoryHotel, "301")},
	}
	alerts := analyzer.Analyze(c, policies)
	if len(alerts) != 1 {
		t.Fatalf("Analyze() = %d alerts, want 1", len(alerts))
	}
	if alerts[0].Severity != SeverityHigh {
		t.Errorf("Severity = %v, want high when overage exceeds half the limit", alerts[0].Severity)
	}
}

func TestAnalyze_PerDayGroupsByExpenseDate(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	policies := []*Policy{{
		ID:       uuid.New(),
		OrgID:    "org-1",
		Name:     "meals",
		IsActive: true,
		Rules: []Rule{{
			ID:         uuid.New(),
			Name:       "daily meals",
			Categories: []claim.Category{claim.CategoryMeal},
			Limit:      &Limit{Type: LimitPerDay, Amount: dec("80"), Currency: "USD"},
		}},
	}}

	c := &claim.Claim{
		ID: uuid.New(),
		Items: []claim.LineItem{
			itemOn("2026-03-01", claim.CategoryMeal, "50"),
			itemOn("2026-03-01", claim.CategoryMeal, "45"), // day total 95 > 80
			itemOn("2026-03-02", claim.CategoryMeal, "60"), // under
		},
	}
	alerts := analyzer.Analyze(c, policies)
	if len(alerts) != 1 {
		t.Fatalf("Analyze() = %d alerts, want 1 for the single overspent day", len(alerts))
	}
	if !alerts[0].Actual.Equal(dec("95")) {
		t.Errorf("Actual = %s, want 95", alerts[0].Actual)
	}
}

func TestAnalyze_PerTripAggregatesWholeClaim(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	policies := []*Policy{hotelPolicy(LimitPerTrip, "500")}

	c := &claim.Claim{
		ID: uuid.New(),
		Items: []claim.LineItem{
			itemOn("2026-03-01", claim.CategoryHotel, "300"),
			itemOn("2026-03-02", claim.CategoryHotel, "300"),
		},
	}
	alerts := analyzer.Analyze(c, policies)
	if len(alerts) != 1 {
		t.Fatalf("Analyze() = %d alerts, want 1", len(alerts))
	}
	if alerts[0].Severity != SeverityHigh {
		t.Errorf("Severity = %v, want high for whole-claim limits", alerts[0].Severity)
	}
	if !alerts[0].Actual.Equal(dec("600")) {
		t.Errorf("Actual = %s, want 600", alerts[0].Actual)
	}
}

func TestAnalyze_PerYearIsSkipped(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	policies := []*Policy{hotelPolicy(LimitPerYear, "1000")}

	c := &claim.Claim{
		ID:    uuid.New(),
		Items: []claim.LineItem{itemOn("2026-03-01", claim.CategoryHotel, "5000")},
	}
	if alerts := analyzer.Analyze(c, policies); len(alerts) != 0 {
		t.Errorf("Analyze() = %d alerts for per-year rule, want 0", len(alerts))
	}
}

func TestAnalyze_MissingReceiptAboveMateriality(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))

	small := itemOn("2026-03-01", claim.CategoryMeal, "40")
	small.ReceiptURL = ""
	large := itemOn("2026-03-01", claim.CategoryHotel, "400")
	large.ReceiptURL = ""

	c := &claim.Claim{ID: uuid.New(), Items: []claim.LineItem{small, large}}
	alerts := analyzer.Analyze(c, nil)
	if len(alerts) != 1 {
		t.Fatalf("Analyze() = %d alerts, want 1 for the material item only", len(alerts))
	}
	if alerts[0].Kind != AlertMissingAttachment || alerts[0].Severity != SeverityLow {
		t.Errorf("alert = %+v, want low-severity missing attachment", alerts[0])
	}
	if alerts[0].ItemID == nil || *alerts[0].ItemID != large.ID {
		t.Error("alert should point at the material item")
	}
}

func TestAnalyze_InvalidReceiptCarriesRemediation(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))

	invalid := false
	item := itemOn("2026-03-01", claim.CategoryOffice, "150")
	item.ReceiptValid = &invalid
	item.ReceiptNote = "request an itemized invoice from the vendor"

	c := &claim.Claim{ID: uuid.New(), Items: []claim.LineItem{item}}
	alerts := analyzer.Analyze(c, nil)
	if len(alerts) != 1 {
		t.Fatalf("Analyze() = %d alerts, want 1", len(alerts))
	}
	if alerts[0].Kind != AlertNonCompliantReceipt || alerts[0].Severity != SeverityMedium {
		t.Errorf("alert = %+v, want medium-severity non-compliant receipt", alerts[0])
	}
	if alerts[0].Remediation != item.ReceiptNote {
		t.Errorf("Remediation = %q, want the receipt note", alerts[0].Remediation)
	}
}

func TestAnalyze_AlertsSortedBySeverity(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	policies := []*Policy{hotelPolicy(LimitPerItem, "200")}

	noReceipt := itemOn("2026-03-01", claim.CategoryMeal, "150")
	noReceipt.ReceiptURL = ""
	wayOver := itemOn("2026-03-02", claim.CategoryHotel, "600")

	c := &claim.Claim{ID: uuid.New(), Items: []claim.LineItem{noReceipt, wayOver}}
	alerts := analyzer.Analyze(c, policies)
	if len(alerts) != 2 {
		t.Fatalf("Analyze() = %d alerts, want 2", len(alerts))
	}
	if alerts[0].Severity != SeverityHigh || alerts[1].Severity != SeverityLow {
		t.Errorf("alerts not sorted by severity: %v then %v", alerts[0].Severity, alerts[1].Severity)
	}
}

func TestAnalyze_InactivePolicyIgnored(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	p := hotelPolicy(LimitPerItem, "10")
	p.IsActive = false

	c := &claim.Claim{
		ID:    uuid.New(),
		Items: []claim.LineItem{itemOn("2026-03-01", claim.CategoryHotel, "999")},
	}
	if alerts := analyzer.Analyze(c, []*Policy{p}); len(alerts) != 0 {
		t.Errorf("Analyze() = %d alerts from an inactive policy, want 0", len(alerts))
	}
}

func TestAnalyze_EmptyCategoriesAppliesToAll(t *testing.T) {
	analyzer := NewAnalyzer(dec("100"))
	policies := []*Policy{{
		ID:       uuid.New(),
		OrgID:    "org-1",
		Name:     "global",
		IsActive: true,
		Rules: []Rule{{
			ID:    uuid.New(),
			Name:  "any expense",
			Limit: &Limit{Type: LimitPerItem, Amount: dec("100"), Currency: "USD"},
		}},
	}}

	c := &claim.Claim{
		ID:    uuid.New(),
		Items: []claim.LineItem{itemOn("2026-03-01", claim.CategoryOther, "120")},
	}
	if alerts := analyzer.Analyze(c, policies); len(alerts) != 1 {
		t.Errorf("Analyze() = %d alerts, want 1: empty category list matches all", len(alerts))
	}
}
