// Package claim holds the reimbursement claim aggregate: the claim itself,
// its line items, and the status lifecycle that the approval chain drives.
package claim

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is an enumerated expense type
type Category string

const (
	CategoryFlight        Category = "flight"
	CategoryHotel         Category = "hotel"
	CategoryMeal          Category = "meal"
	CategoryTransport     Category = "transport"
	CategoryOffice        Category = "office"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

var validCategories = map[Category]bool{
	CategoryFlight:        true,
	CategoryHotel:         true,
	CategoryMeal:          true,
	CategoryTransport:     true,
	CategoryOffice:        true,
	CategoryEntertainment: true,
	CategoryOther:         true,
}

// IsValid returns true if the category is a known expense type
func (c Category) IsValid() bool {
	return validCategories[c]
}

// Claim is an employee's expense reimbursement request
type Claim struct {
	ID           uuid.UUID
	OrgID        string
	SubmitterID  string
	Department   string
	Title        string
	BaseCurrency string
	Status       Status
	Items        []LineItem
	RejectReason string
	CreatedAt    time.Time
	SubmittedAt  *time.Time
	UpdatedAt    time.Time
}

// LineItem is one itemized expense within a claim. Normalized is the amount
// converted to the organization's base currency with the exchange rate
// recorded at item-creation time; it is never revalued afterwards.
type LineItem struct {
	ID           uuid.UUID
	ClaimID      uuid.UUID
	Category     Category
	Amount       decimal.Decimal
	Currency     string
	ExchangeRate decimal.Decimal
	Normalized   decimal.Decimal
	ExpenseDate  time.Time
	Vendor       string
	ReceiptURL   string
	ReceiptValid *bool  // nil until the receipt collaborator has checked it
	ReceiptNote  string // remediation text supplied by the receipt collaborator
	CreatedAt    time.Time
}

// NewLineItem builds a line item with its normalized amount derived from the
// collaborator-supplied exchange rate.
func NewLineItem(claimID uuid.UUID, category Category, amount decimal.Decimal, currency string, rate decimal.Decimal, expenseDate time.Time) LineItem {
	return LineItem{
		ID:           uuid.New(),
		ClaimID:      claimID,
		Category:     category,
		Amount:       amount,
		Currency:     currency,
		ExchangeRate: rate,
		Normalized:   amount.Mul(rate),
		ExpenseDate:  expenseDate,
		CreatedAt:    time.Now(),
	}
}

// HasReceipt returns true if the item carries a receipt reference
func (li LineItem) HasReceipt() bool {
	return li.ReceiptURL != ""
}

// TotalNormalized sums all line item amounts in the base currency
func (c *Claim) TotalNormalized() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Normalized)
	}
	return total
}

// Categories returns the distinct expense categories present on the claim
func (c *Claim) Categories() []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, item := range c.Items {
		if !seen[item.Category] {
			seen[item.Category] = true
			out = append(out, item.Category)
		}
	}
	return out
}

// Editable returns true while the submitter may still mutate the claim.
// Once an approval chain exists and is active, mutation flows only through
// the chain's decision recording.
func (c *Claim) Editable() bool {
	return c.Status == StatusDraft
}

// DeletableBy returns true if the given user may delete the claim: only its
// submitter, and only in draft or terminal-rejected state.
func (c *Claim) DeletableBy(userID string) bool {
	if c.SubmitterID != userID {
		return false
	}
	return c.Status == StatusDraft || c.Status == StatusRejected
}
