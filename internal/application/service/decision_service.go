package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/claim"
)

// DecisionService records approver decisions against a claim's chain. It is
// the only mutating, order-sensitive operation in the core: every call runs
// in a claim-scoped transaction, so two concurrent decisions on the same
// step cannot both succeed: the loser observes AlreadyResolved or
// NotActionable after the winner commits.
type DecisionService interface {
	RecordDecision(ctx context.Context, claimID, stepID uuid.UUID, actor approval.Actor, decision approval.Decision, comment string) (*approval.Outcome, error)
	SkipStep(ctx context.Context, claimID, stepID uuid.UUID, reason string) (*approval.Outcome, error)
	CanAct(ctx context.Context, claimID uuid.UUID, actor approval.Actor) (bool, error)
	GetChain(ctx context.Context, claimID uuid.UUID) (*approval.Chain, error)
}

type decisionServiceImpl struct {
	claimRepo   port.ClaimRepository
	chainRepo   port.ChainRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	logger      Logger
}

// NewDecisionService creates a new DecisionService
func NewDecisionService(
	claimRepo port.ClaimRepository,
	chainRepo port.ChainRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	logger Logger,
) DecisionService {
	return &decisionServiceImpl{
		claimRepo:   claimRepo,
		chainRepo:   chainRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// RecordDecision applies an approver's decision and mirrors its chain-level
// effect onto the claim status in the same transaction. A failed decision
// leaves both step and claim untouched.
func (s *decisionServiceImpl) RecordDecision(ctx context.Context, claimID, stepID uuid.UUID, actor approval.Actor, decision approval.Decision, comment string) (*approval.Outcome, error) {
	var outcome *approval.Outcome

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		c, chain, err := s.loadClaimAndChain(txCtx, claimID)
		if err != nil {
			return err
		}
		if c.Status != claim.StatusPending {
			return fmt.Errorf("%w: claim is %s", approval.ErrNotActionable, c.Status)
		}

		outcome, err = approval.RecordDecision(chain, stepID, actor, decision, comment)
		if err != nil {
			return err
		}

		if err := s.persistOutcome(txCtx, chain, outcome); err != nil {
			return err
		}

		switch {
		case outcome.ChainRejected:
			if err := s.claimRepo.UpdateStatus(txCtx, claimID, claim.StatusRejected, comment); err != nil {
				return fmt.Errorf("update claim status: %w", err)
			}
			return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
				ClaimID:    claimID,
				ActorID:    actor.UserID,
				FromStatus: claim.StatusPending,
				ToStatus:   claim.StatusRejected,
				Action:     "REJECT",
				Detail:     comment,
				CreatedAt:  time.Now(),
			})
		case outcome.ChainComplete:
			if err := s.claimRepo.UpdateStatus(txCtx, claimID, claim.StatusApproved, ""); err != nil {
				return fmt.Errorf("update claim status: %w", err)
			}
			return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
				ClaimID:    claimID,
				ActorID:    actor.UserID,
				FromStatus: claim.StatusPending,
				ToStatus:   claim.StatusApproved,
				Action:     "APPROVE",
				Detail:     comment,
				CreatedAt:  time.Now(),
			})
		default:
			// Mid-chain approval: claim stays pending, next step is active.
			return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
				ClaimID:    claimID,
				ActorID:    actor.UserID,
				FromStatus: claim.StatusPending,
				ToStatus:   claim.StatusPending,
				Action:     "STEP_" + string(decision),
				Detail:     comment,
				CreatedAt:  time.Now(),
			})
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Decision recorded",
		"claim_id", claimID, "step_id", stepID,
		"decision", decision, "actor", actor.UserID)
	return outcome, nil
}

// SkipStep resolves a conditional step as skipped on behalf of rule logic,
// mirroring completion onto the claim exactly as an approval would
func (s *decisionServiceImpl) SkipStep(ctx context.Context, claimID, stepID uuid.UUID, reason string) (*approval.Outcome, error) {
	var outcome *approval.Outcome

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		c, chain, err := s.loadClaimAndChain(txCtx, claimID)
		if err != nil {
			return err
		}
		if c.Status != claim.StatusPending {
			return fmt.Errorf("%w: claim is %s", approval.ErrNotActionable, c.Status)
		}

		outcome, err = approval.SkipStep(chain, stepID)
		if err != nil {
			return err
		}
		outcome.Step.Comment = reason

		if err := s.chainRepo.UpdateStep(txCtx, outcome.Step); err != nil {
			return fmt.Errorf("update step: %w", err)
		}

		toStatus := c.Status
		if outcome.ChainComplete {
			if err := s.claimRepo.UpdateStatus(txCtx, claimID, claim.StatusApproved, ""); err != nil {
				return fmt.Errorf("update claim status: %w", err)
			}
			toStatus = claim.StatusApproved
		}
		return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
			ClaimID:    claimID,
			FromStatus: claim.StatusPending,
			ToStatus:   toStatus,
			Action:     "STEP_SKIP",
			Detail:     reason,
			CreatedAt:  time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// CanAct reports whether the actor owns the chain's current turn
func (s *decisionServiceImpl) CanAct(ctx context.Context, claimID uuid.UUID, actor approval.Actor) (bool, error) {
	chain, err := s.chainRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return false, err
	}
	if chain == nil {
		return false, nil
	}
	return chain.CanAct(actor), nil
}

// GetChain retrieves a claim's approval chain
func (s *decisionServiceImpl) GetChain(ctx context.Context, claimID uuid.UUID) (*approval.Chain, error) {
	chain, err := s.chainRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, ErrChainNotFound
	}
	return chain, nil
}

func (s *decisionServiceImpl) loadClaimAndChain(ctx context.Context, claimID uuid.UUID) (*claim.Claim, *approval.Chain, error) {
	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, ErrClaimNotFound
	}

	chain, err := s.chainRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, nil, err
	}
	if chain == nil {
		return nil, nil, ErrChainNotFound
	}
	return c, chain, nil
}

func (s *decisionServiceImpl) persistOutcome(ctx context.Context, chain *approval.Chain, outcome *approval.Outcome) error {
	if err := s.chainRepo.UpdateStep(ctx, outcome.Step); err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	for _, skippedID := range outcome.SkippedSteps {
		step := chain.StepByID(skippedID)
		if step == nil {
			continue
		}
		if err := s.chainRepo.UpdateStep(ctx, step); err != nil {
			return fmt.Errorf("update skipped step: %w", err)
		}
	}
	return nil
}
