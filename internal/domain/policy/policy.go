// Package policy holds spending-policy reference data and the compliance
// analyzer that evaluates it against claims. Policies are administrator-owned
// and read-only on the evaluation path.
package policy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakledger/claimflow/internal/domain/claim"
)

// LimitType is the aggregation window a spending limit applies to
type LimitType string

const (
	LimitPerItem  LimitType = "per_item"
	LimitPerDay   LimitType = "per_day"
	LimitPerMonth LimitType = "per_month"
	LimitPerTrip  LimitType = "per_trip"
	LimitPerYear  LimitType = "per_year"
)

// Limit is an inclusive spending ceiling: only strictly exceeding it is a
// violation. Amounts are in the organization's base currency.
type Limit struct {
	Type     LimitType       `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Rule is one spending-policy rule. An empty category list means the rule
// covers all categories.
type Rule struct {
	ID               uuid.UUID
	Name             string
	Categories       []claim.Category
	Limit            *Limit
	RequiresReceipt  bool
	RequiresApproval bool
}

// AppliesTo returns true if the rule's category scope covers the category
func (r *Rule) AppliesTo(cat claim.Category) bool {
	if len(r.Categories) == 0 {
		return true
	}
	for _, c := range r.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// Policy is a named, administrator-owned set of spending rules
type Policy struct {
	ID        uuid.UUID
	OrgID     string
	Name      string
	IsActive  bool
	Rules     []Rule
	CreatedAt time.Time
	UpdatedAt time.Time
}
