// Package approval implements approval routing: rule selection, chain
// construction, and the step-level decision state machine.
package approval

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakledger/claimflow/internal/domain/claim"
)

// ConditionField identifies the claim attribute a condition inspects
type ConditionField string

const (
	FieldAmount     ConditionField = "amount"
	FieldCategory   ConditionField = "category"
	FieldDepartment ConditionField = "department"
)

// ConditionOp is a comparison operator
type ConditionOp string

const (
	OpGT  ConditionOp = "gt"
	OpGTE ConditionOp = "gte"
	OpLT  ConditionOp = "lt"
	OpLTE ConditionOp = "lte"
	OpEQ  ConditionOp = "eq"
	OpIn  ConditionOp = "in"
)

// Condition is one predicate over a claim's attributes. Amount conditions
// compare against the claim's total in base currency; category conditions
// match any category present on the claim.
type Condition struct {
	Field  ConditionField  `json:"field"`
	Op     ConditionOp     `json:"op"`
	Amount decimal.Decimal `json:"amount,omitempty"`
	Values []string        `json:"values,omitempty"`
}

// ClaimAttributes are the claim facts rules match against
type ClaimAttributes struct {
	TotalNormalized decimal.Decimal
	Categories      []claim.Category
	Department      string
	SubmitterID     string
}

// AttributesOf extracts the matchable attributes from a claim
func AttributesOf(c *claim.Claim) ClaimAttributes {
	return ClaimAttributes{
		TotalNormalized: c.TotalNormalized(),
		Categories:      c.Categories(),
		Department:      c.Department,
		SubmitterID:     c.SubmitterID,
	}
}

// Matches evaluates the condition against the claim attributes
func (cond Condition) Matches(attrs ClaimAttributes) bool {
	switch cond.Field {
	case FieldAmount:
		cmp := attrs.TotalNormalized.Cmp(cond.Amount)
		switch cond.Op {
		case OpGT:
			return cmp > 0
		case OpGTE:
			return cmp >= 0
		case OpLT:
			return cmp < 0
		case OpLTE:
			return cmp <= 0
		case OpEQ:
			return cmp == 0
		}
		return false
	case FieldCategory:
		for _, cat := range attrs.Categories {
			for _, v := range cond.Values {
				if string(cat) == v {
					return true
				}
			}
		}
		return false
	case FieldDepartment:
		switch cond.Op {
		case OpEQ:
			return len(cond.Values) == 1 && attrs.Department == cond.Values[0]
		case OpIn:
			for _, v := range cond.Values {
				if attrs.Department == v {
					return true
				}
			}
			return false
		}
		return false
	}
	return false
}

// StepType classifies an approval checkpoint
type StepType string

const (
	StepTypeManager StepType = "manager"
	StepTypeFinance StepType = "finance"
	StepTypeAdmin   StepType = "admin"
	StepTypeCustom  StepType = "custom"
)

// StepTemplate defines one approval checkpoint within a rule. Either
// ApproverID (a specific person) or Role is set, never both.
type StepTemplate struct {
	Type       StepType `json:"type"`
	Name       string   `json:"name"`
	ApproverID string   `json:"approver_id,omitempty"`
	Role       string   `json:"role,omitempty"`
}

// Rule routes claims into approval chains. Lower priority numbers match
// first; the default rule is used only when no non-default rule matches.
// At most one default rule may be active per organization.
type Rule struct {
	ID         uuid.UUID
	OrgID      string
	Name       string
	Priority   int
	IsActive   bool
	IsDefault  bool
	Conditions []Condition
	Steps      []StepTemplate
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MatchesClaim returns true if every condition evaluates true against the
// claim attributes. A rule with no conditions matches everything.
func (r *Rule) MatchesClaim(attrs ClaimAttributes) bool {
	for _, cond := range r.Conditions {
		if !cond.Matches(attrs) {
			return false
		}
	}
	return true
}
