package policy

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertKind classifies a detected compliance issue
type AlertKind string

const (
	AlertOverBudget          AlertKind = "over_budget"
	AlertMissingAttachment   AlertKind = "missing_attachment"
	AlertNonCompliantReceipt AlertKind = "non_compliant_receipt"
)

// Severity ranks alerts for display ordering
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

var severityRank = map[Severity]int{
	SeverityHigh:   0,
	SeverityMedium: 1,
	SeverityLow:    2,
}

// Rank returns the sort position of the severity, high first
func (s Severity) Rank() int {
	return severityRank[s]
}

// RiskAlert is an ephemeral, derived compliance warning. Alerts are never
// persisted; they are recomputed on demand for advisory display.
type RiskAlert struct {
	Kind        AlertKind       `json:"kind"`
	Severity    Severity        `json:"severity"`
	RuleName    string          `json:"rule_name,omitempty"`
	ItemID      *uuid.UUID      `json:"item_id,omitempty"`
	Message     string          `json:"message"`
	Limit       decimal.Decimal `json:"limit,omitempty"`
	Actual      decimal.Decimal `json:"actual,omitempty"`
	PercentOver float64         `json:"percent_over,omitempty"`
	Remediation string          `json:"remediation,omitempty"`
}
