package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/claim"
)

// VoucherWriter renders an approved claim as a payout voucher document
type VoucherWriter interface {
	Write(c *claim.Claim, voucherNumber string) (string, error)
}

// VoucherResult reports a generated voucher
type VoucherResult struct {
	VoucherNumber string
	FilePath      string
}

// VoucherService drives the payout tail of the claim lifecycle: voucher
// issuance moves an approved claim into processing, settlement marks it paid.
type VoucherService interface {
	IssueVoucher(ctx context.Context, claimID uuid.UUID) (*VoucherResult, error)
	SettleClaim(ctx context.Context, claimID uuid.UUID) error
}

type voucherServiceImpl struct {
	claimRepo   port.ClaimRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	writer      VoucherWriter
	logger      Logger
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(claimRepo port.ClaimRepository, historyRepo port.HistoryRepository, txManager port.TransactionManager, writer VoucherWriter, logger Logger) VoucherService {
	return &voucherServiceImpl{
		claimRepo:   claimRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		writer:      writer,
		logger:      logger,
	}
}

// IssueVoucher writes the payout voucher for an approved claim and advances
// it to processing. The file is written before the status flips so a render
// failure leaves the claim approved and retryable.
func (s *voucherServiceImpl) IssueVoucher(ctx context.Context, claimID uuid.UUID) (*VoucherResult, error) {
	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClaimNotFound
	}
	if c.Status != claim.StatusApproved {
		return nil, fmt.Errorf("%w: claim is %s", ErrClaimNotApproved, c.Status)
	}

	voucherNumber := voucherNumberFor(c)
	path, err := s.writer.Write(c, voucherNumber)
	if err != nil {
		s.logger.Error("Failed to write voucher", "error", err, "claim_id", claimID)
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.UpdateStatus(txCtx, claimID, claim.StatusProcessing, ""); err != nil {
			return err
		}
		return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
			ClaimID:    claimID,
			ActorID:    c.SubmitterID,
			FromStatus: claim.StatusApproved,
			ToStatus:   claim.StatusProcessing,
			Action:     "ISSUE_VOUCHER",
			Detail:     fmt.Sprintf("voucher %s issued", voucherNumber),
			CreatedAt:  time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Voucher issued", "claim_id", claimID, "voucher_number", voucherNumber, "path", path)
	return &VoucherResult{VoucherNumber: voucherNumber, FilePath: path}, nil
}

// SettleClaim marks a processing claim as paid
func (s *voucherServiceImpl) SettleClaim(ctx context.Context, claimID uuid.UUID) error {
	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrClaimNotFound
	}

	lc, err := claim.NewLifecycle(c.Status)
	if err != nil {
		return err
	}
	if _, err := lc.Fire(claim.TriggerSettle); err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.UpdateStatus(txCtx, claimID, claim.StatusPaid, ""); err != nil {
			return err
		}
		return s.historyRepo.Append(txCtx, &claim.HistoryEntry{
			ClaimID:    claimID,
			ActorID:    c.SubmitterID,
			FromStatus: c.Status,
			ToStatus:   claim.StatusPaid,
			Action:     "SETTLE",
			CreatedAt:  time.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("Claim settled", "claim_id", claimID)
	return nil
}

// voucherNumberFor derives a stable, human-readable voucher number from the
// claim identity and issue date.
func voucherNumberFor(c *claim.Claim) string {
	short := c.ID.String()[:8]
	return fmt.Sprintf("RV-%s-%s", time.Now().Format("20060102"), short)
}
