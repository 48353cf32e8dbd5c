package policy

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/oakledger/claimflow/internal/domain/claim"
)

// Analyzer evaluates spending policies against a claim and produces ranked
// risk alerts. Evaluation is pure and side-effect free; it may run at any
// point in the claim lifecycle, including before submission.
type Analyzer struct {
	materiality decimal.Decimal
}

// NewAnalyzer creates an analyzer. Line items at or below the materiality
// threshold never trigger missing-receipt alerts.
func NewAnalyzer(materiality decimal.Decimal) *Analyzer {
	return &Analyzer{materiality: materiality}
}

// Analyze evaluates all active policies against the claim and returns alerts
// sorted by severity (high, medium, low), then by detection order. Limits
// are inclusive: only amounts strictly above a limit alert.
func (a *Analyzer) Analyze(c *claim.Claim, policies []*Policy) []RiskAlert {
	alerts := []RiskAlert{}

	for _, p := range policies {
		if !p.IsActive {
			continue
		}
		for i := range p.Rules {
			alerts = append(alerts, a.evaluateRule(c, &p.Rules[i])...)
		}
	}

	alerts = append(alerts, a.checkReceipts(c)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	return alerts
}

func (a *Analyzer) evaluateRule(c *claim.Claim, rule *Rule) []RiskAlert {
	if rule.Limit == nil {
		return nil
	}

	switch rule.Limit.Type {
	case LimitPerItem:
		return a.perItem(c, rule)
	case LimitPerDay:
		return a.perDay(c, rule)
	case LimitPerMonth, LimitPerTrip:
		// Claims are single-period: both aggregate over all matching
		// items in the claim.
		return a.wholeClaim(c, rule)
	case LimitPerYear:
		// Annual totals need a cross-claim aggregator; a single claim
		// cannot determine them.
		return nil
	}
	return nil
}

func (a *Analyzer) perItem(c *claim.Claim, rule *Rule) []RiskAlert {
	var alerts []RiskAlert
	for i := range c.Items {
		item := &c.Items[i]
		if !rule.AppliesTo(item.Category) {
			continue
		}
		if item.Normalized.Cmp(rule.Limit.Amount) <= 0 {
			continue
		}
		itemID := item.ID
		alerts = append(alerts, RiskAlert{
			Kind:        AlertOverBudget,
			Severity:    overageSeverity(item.Normalized, rule.Limit.Amount),
			RuleName:    rule.Name,
			ItemID:      &itemID,
			Message:     fmt.Sprintf("%s: item exceeds %s limit of %s (actual %s)", rule.Name, rule.Limit.Type, rule.Limit.Amount, item.Normalized),
			Limit:       rule.Limit.Amount,
			Actual:      item.Normalized,
			PercentOver: percentOver(item.Normalized, rule.Limit.Amount),
		})
	}
	return alerts
}

func (a *Analyzer) perDay(c *claim.Claim, rule *Rule) []RiskAlert {
	totals := make(map[string]decimal.Decimal)
	var days []string // first-seen order keeps detection order stable

	for i := range c.Items {
		item := &c.Items[i]
		if !rule.AppliesTo(item.Category) {
			continue
		}
		day := item.ExpenseDate.Format("2006-01-02")
		if _, seen := totals[day]; !seen {
			days = append(days, day)
		}
		totals[day] = totals[day].Add(item.Normalized)
	}

	var alerts []RiskAlert
	for _, day := range days {
		actual := totals[day]
		if actual.Cmp(rule.Limit.Amount) <= 0 {
			continue
		}
		alerts = append(alerts, RiskAlert{
			Kind:        AlertOverBudget,
			Severity:    overageSeverity(actual, rule.Limit.Amount),
			RuleName:    rule.Name,
			Message:     fmt.Sprintf("%s: spending on %s exceeds daily limit of %s (actual %s)", rule.Name, day, rule.Limit.Amount, actual),
			Limit:       rule.Limit.Amount,
			Actual:      actual,
			PercentOver: percentOver(actual, rule.Limit.Amount),
		})
	}
	return alerts
}

func (a *Analyzer) wholeClaim(c *claim.Claim, rule *Rule) []RiskAlert {
	actual := decimal.Zero
	matched := false
	for i := range c.Items {
		if rule.AppliesTo(c.Items[i].Category) {
			actual = actual.Add(c.Items[i].Normalized)
			matched = true
		}
	}
	if !matched || actual.Cmp(rule.Limit.Amount) <= 0 {
		return nil
	}
	return []RiskAlert{{
		Kind:        AlertOverBudget,
		Severity:    SeverityHigh,
		RuleName:    rule.Name,
		Message:     fmt.Sprintf("%s: claim total exceeds %s limit of %s (actual %s)", rule.Name, rule.Limit.Type, rule.Limit.Amount, actual),
		Limit:       rule.Limit.Amount,
		Actual:      actual,
		PercentOver: percentOver(actual, rule.Limit.Amount),
	}}
}

// checkReceipts runs independently of limit rules: material items without a
// receipt, and receipts flagged invalid by the receipt collaborator.
func (a *Analyzer) checkReceipts(c *claim.Claim) []RiskAlert {
	var alerts []RiskAlert
	for i := range c.Items {
		item := &c.Items[i]
		itemID := item.ID

		if !item.HasReceipt() {
			if item.Normalized.Cmp(a.materiality) > 0 {
				alerts = append(alerts, RiskAlert{
					Kind:     AlertMissingAttachment,
					Severity: SeverityLow,
					ItemID:   &itemID,
					Message:  fmt.Sprintf("item of %s has no receipt attached", item.Normalized),
					Actual:   item.Normalized,
				})
			}
			continue
		}

		if item.ReceiptValid != nil && !*item.ReceiptValid {
			alerts = append(alerts, RiskAlert{
				Kind:        AlertNonCompliantReceipt,
				Severity:    SeverityMedium,
				ItemID:      &itemID,
				Message:     "receipt is not an officially valid document",
				Remediation: item.ReceiptNote,
			})
		}
	}
	return alerts
}

// overageSeverity is high when the overage exceeds half the limit
func overageSeverity(actual, limit decimal.Decimal) Severity {
	overage := actual.Sub(limit)
	if overage.Cmp(limit.Div(decimal.NewFromInt(2))) > 0 {
		return SeverityHigh
	}
	return SeverityMedium
}

// percentOver returns (actual-limit)/limit as a percentage
func percentOver(actual, limit decimal.Decimal) float64 {
	if limit.IsZero() {
		return 0
	}
	f, _ := actual.Sub(limit).Div(limit).Mul(decimal.NewFromInt(100)).Float64()
	return f
}
