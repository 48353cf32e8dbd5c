// Package service wires the domain core to persistence: each service method
// is one synchronous use case, with mutations grouped into per-claim
// transactions.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/claim"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RuleSource supplies an organization's approval rules; backed by the
// reference cache in production.
type RuleSource interface {
	RulesByOrg(ctx context.Context, orgID string) ([]*approval.Rule, error)
}

// CreateClaimInput describes a new draft claim
type CreateClaimInput struct {
	OrgID        string
	SubmitterID  string
	Department   string
	Title        string
	BaseCurrency string
}

// AddItemInput describes a new line item. ExchangeRate is the
// currency collaborator's rate at creation time.
type AddItemInput struct {
	Category     claim.Category
	Amount       decimal.Decimal
	Currency     string
	ExchangeRate decimal.Decimal
	ExpenseDate  time.Time
	Vendor       string
	ReceiptURL   string
	ReceiptValid *bool
	ReceiptNote  string
}

// ClaimService manages the claim lifecycle up to and around the approval
// chain: drafting, submission, re-edit and deletion.
type ClaimService interface {
	CreateClaim(ctx context.Context, in CreateClaimInput) (*claim.Claim, error)
	AddLineItem(ctx context.Context, claimID uuid.UUID, actorID string, in AddItemInput) (*claim.LineItem, error)
	GetClaim(ctx context.Context, id uuid.UUID) (*claim.Claim, error)
	ListClaims(ctx context.Context, orgID string, limit, offset int) ([]*claim.Claim, error)
	SubmitClaim(ctx context.Context, claimID uuid.UUID, actorID string) (*claim.Claim, error)
	ReEditClaim(ctx context.Context, claimID uuid.UUID, actorID string) error
	DeleteClaim(ctx context.Context, claimID uuid.UUID, actorID string) error
	History(ctx context.Context, claimID uuid.UUID) ([]*claim.HistoryEntry, error)
}

type claimServiceImpl struct {
	claimRepo   port.ClaimRepository
	chainRepo   port.ChainRepository
	historyRepo port.HistoryRepository
	rules       RuleSource
	txManager   port.TransactionManager
	logger      Logger
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claimRepo port.ClaimRepository,
	chainRepo port.ChainRepository,
	historyRepo port.HistoryRepository,
	rules RuleSource,
	txManager port.TransactionManager,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		claimRepo:   claimRepo,
		chainRepo:   chainRepo,
		historyRepo: historyRepo,
		rules:       rules,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreateClaim creates a new draft claim
func (s *claimServiceImpl) CreateClaim(ctx context.Context, in CreateClaimInput) (*claim.Claim, error) {
	if in.OrgID == "" || in.SubmitterID == "" || in.BaseCurrency == "" {
		return nil, fmt.Errorf("%w: org, submitter and base currency are required", ErrInvalidInput)
	}

	c := &claim.Claim{
		ID:           uuid.New(),
		OrgID:        in.OrgID,
		SubmitterID:  in.SubmitterID,
		Department:   in.Department,
		Title:        in.Title,
		BaseCurrency: in.BaseCurrency,
		Status:       claim.StatusDraft,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Create(txCtx, c); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}
		return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
			ClaimID:   c.ID,
			ActorID:   in.SubmitterID,
			ToStatus:  claim.StatusDraft,
			Action:    "CREATE",
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to create claim", "error", err, "org_id", in.OrgID)
		return nil, err
	}

	s.logger.Info("Claim created", "id", c.ID, "org_id", c.OrgID)
	return c, nil
}

// AddLineItem appends an expense item to a draft claim. The normalized
// amount is fixed from the supplied exchange rate; it is never recomputed.
func (s *claimServiceImpl) AddLineItem(ctx context.Context, claimID uuid.UUID, actorID string, in AddItemInput) (*claim.LineItem, error) {
	if !in.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if in.Amount.Sign() <= 0 || in.ExchangeRate.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount and exchange rate must be positive", ErrInvalidInput)
	}

	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClaimNotFound
	}
	if c.SubmitterID != actorID {
		return nil, ErrNotOwner
	}
	if !c.Editable() {
		return nil, fmt.Errorf("%w: status %s", ErrClaimNotEditable, c.Status)
	}

	item := claim.NewLineItem(claimID, in.Category, in.Amount, in.Currency, in.ExchangeRate, in.ExpenseDate)
	item.Vendor = in.Vendor
	item.ReceiptURL = in.ReceiptURL
	item.ReceiptValid = in.ReceiptValid
	item.ReceiptNote = in.ReceiptNote

	if err := s.claimRepo.AddItem(ctx, &item); err != nil {
		s.logger.Error("Failed to add line item", "error", err, "claim_id", claimID)
		return nil, err
	}

	s.logger.Info("Line item added", "claim_id", claimID, "item_id", item.ID, "category", item.Category)
	return &item, nil
}

// GetClaim retrieves a claim with its line items
func (s *claimServiceImpl) GetClaim(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	c, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClaimNotFound
	}
	return c, nil
}

// ListClaims retrieves a page of an organization's claims
func (s *claimServiceImpl) ListClaims(ctx context.Context, orgID string, limit, offset int) ([]*claim.Claim, error) {
	return s.claimRepo.ListByOrg(ctx, orgID, limit, offset)
}

// SubmitClaim selects the governing rule, materializes the approval chain
// and moves the claim to pending, all in one transaction, so a chain can
// never exist without the matching claim status or vice versa. A zero-step
// chain auto-approves the claim immediately.
func (s *claimServiceImpl) SubmitClaim(ctx context.Context, claimID uuid.UUID, actorID string) (*claim.Claim, error) {
	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClaimNotFound
	}
	if c.SubmitterID != actorID {
		return nil, ErrNotOwner
	}
	if c.Status != claim.StatusDraft {
		return nil, fmt.Errorf("%w: status %s", ErrClaimNotEditable, c.Status)
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyClaim
	}

	rules, err := s.rules.RulesByOrg(ctx, c.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	rule, err := approval.SelectRule(approval.AttributesOf(c), rules)
	if err != nil {
		s.logger.Warn("No applicable approval rule", "claim_id", claimID, "org_id", c.OrgID)
		return nil, err
	}

	chain := approval.BuildChain(rule, c)

	newStatus := claim.StatusPending
	action := "SUBMIT"
	if chain.IsComplete() {
		// Zero-step rule: deliberate auto-approval configuration.
		newStatus = claim.StatusApproved
		action = "AUTO_APPROVE"
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if len(chain.Steps) > 0 {
			if err := s.chainRepo.CreateSteps(txCtx, chain.Steps); err != nil {
				return fmt.Errorf("create chain: %w", err)
			}
		}
		if err := s.claimRepo.UpdateStatus(txCtx, claimID, newStatus, ""); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if err := s.claimRepo.SetSubmittedAt(txCtx, claimID, now); err != nil {
			return fmt.Errorf("set submitted_at: %w", err)
		}
		return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
			ClaimID:    claimID,
			ActorID:    actorID,
			FromStatus: claim.StatusDraft,
			ToStatus:   newStatus,
			Action:     action,
			Detail:     fmt.Sprintf("rule %q selected", rule.Name),
			CreatedAt:  now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to submit claim", "error", err, "claim_id", claimID)
		return nil, err
	}

	c.Status = newStatus
	c.SubmittedAt = &now
	s.logger.Info("Claim submitted", "claim_id", claimID, "rule", rule.Name, "status", newStatus)
	return c, nil
}

// ReEditClaim returns a rejected claim to draft, discarding its chain so a
// fresh submission rebuilds one.
func (s *claimServiceImpl) ReEditClaim(ctx context.Context, claimID uuid.UUID, actorID string) error {
	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrClaimNotFound
	}
	if c.SubmitterID != actorID {
		return ErrNotOwner
	}

	lc, err := claim.NewLifecycle(c.Status)
	if err != nil {
		return err
	}
	if _, err := lc.Fire(claim.TriggerReedit); err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.chainRepo.DeleteByClaimID(txCtx, claimID); err != nil {
			return fmt.Errorf("delete chain: %w", err)
		}
		if err := s.claimRepo.UpdateStatus(txCtx, claimID, claim.StatusDraft, ""); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
			ClaimID:    claimID,
			ActorID:    actorID,
			FromStatus: c.Status,
			ToStatus:   claim.StatusDraft,
			Action:     "REEDIT",
			CreatedAt:  time.Now(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to re-edit claim", "error", err, "claim_id", claimID)
		return err
	}

	s.logger.Info("Claim returned to draft", "claim_id", claimID)
	return nil
}

// DeleteClaim removes a claim; only its submitter may delete it, and only
// in draft or rejected state
func (s *claimServiceImpl) DeleteClaim(ctx context.Context, claimID uuid.UUID, actorID string) error {
	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrClaimNotFound
	}
	if c.SubmitterID != actorID {
		return ErrNotOwner
	}
	if !c.DeletableBy(actorID) {
		return fmt.Errorf("%w: status %s", ErrClaimNotDeletable, c.Status)
	}

	if err := s.claimRepo.Delete(ctx, claimID); err != nil {
		s.logger.Error("Failed to delete claim", "error", err, "claim_id", claimID)
		return err
	}

	s.logger.Info("Claim deleted", "claim_id", claimID)
	return nil
}

// History returns a claim's transition and decision history
func (s *claimServiceImpl) History(ctx context.Context, claimID uuid.UUID) ([]*claim.HistoryEntry, error) {
	return s.historyRepo.ListByClaimID(ctx, claimID)
}
