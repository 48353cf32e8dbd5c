// Package port defines the persistence interfaces the application layer
// depends on. Implementations live under internal/infrastructure.
package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/claim"
	"github.com/oakledger/claimflow/internal/domain/policy"
)

// ClaimRepository defines persistence operations for claims and their items
type ClaimRepository interface {
	Create(ctx context.Context, c *claim.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error)
	ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]*claim.Claim, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status claim.Status, rejectReason string) error
	SetSubmittedAt(ctx context.Context, id uuid.UUID, t time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddItem(ctx context.Context, item *claim.LineItem) error
}

// ChainRepository defines persistence operations for approval chains.
// A chain is stored as its ordered steps keyed by claim ID.
type ChainRepository interface {
	CreateSteps(ctx context.Context, steps []approval.Step) error
	GetByClaimID(ctx context.Context, claimID uuid.UUID) (*approval.Chain, error)
	UpdateStep(ctx context.Context, step *approval.Step) error
	DeleteByClaimID(ctx context.Context, claimID uuid.UUID) error
}

// RuleRepository defines persistence operations for approval rules
type RuleRepository interface {
	Create(ctx context.Context, rule *approval.Rule) error
	Update(ctx context.Context, rule *approval.Rule) error
	GetByID(ctx context.Context, id uuid.UUID) (*approval.Rule, error)
	ListByOrg(ctx context.Context, orgID string) ([]*approval.Rule, error)
	// SetDefault marks the rule as the organization's default and demotes
	// any previous default within the same transaction scope.
	SetDefault(ctx context.Context, orgID string, ruleID uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PolicyRepository defines persistence operations for spending policies
type PolicyRepository interface {
	Create(ctx context.Context, p *policy.Policy) error
	Update(ctx context.Context, p *policy.Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*policy.Policy, error)
	ListByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error)
	ListActiveByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryRepository defines persistence operations for claim history
type HistoryRepository interface {
	Append(ctx context.Context, entry *claim.HistoryEntry) error
	ListByClaimID(ctx context.Context, claimID uuid.UUID) ([]*claim.HistoryEntry, error)
}

// TransactionManager executes a function within a database transaction.
// Repositories called with the derived context join the same transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
