package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/infrastructure/persistence/sqlite"
)

// ChainRepository implements port.ChainRepository
type ChainRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewChainRepository creates a new chain repository
func NewChainRepository(db *sql.DB, logger *zap.Logger) port.ChainRepository {
	return &ChainRepository{db: db, logger: logger}
}

// CreateSteps persists all steps of a freshly built chain
func (r *ChainRepository) CreateSteps(ctx context.Context, steps []approval.Step) error {
	query := `
		INSERT INTO approval_steps (
			id, claim_id, step_order, step_type, name,
			approver_kind, approver_user_id, approver_role,
			status, comment, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	for i := range steps {
		s := &steps[i]
		_, err := exec.ExecContext(ctx, query,
			s.ID.String(),
			s.ClaimID.String(),
			s.Order,
			string(s.Type),
			s.Name,
			string(s.Approver.Kind),
			s.Approver.UserID,
			s.Approver.Role,
			string(s.Status),
			s.Comment,
			s.ResolvedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create approval step",
				zap.String("claim_id", s.ClaimID.String()),
				zap.Int("order", s.Order),
				zap.Error(err))
			return fmt.Errorf("failed to create approval step: %w", err)
		}
	}
	return nil
}

// GetByClaimID loads the claim's chain, steps in order. Returns nil if the
// claim has no chain.
func (r *ChainRepository) GetByClaimID(ctx context.Context, claimID uuid.UUID) (*approval.Chain, error) {
	query := `
		SELECT id, claim_id, step_order, step_type, name,
			approver_kind, approver_user_id, approver_role,
			status, comment, resolved_at
		FROM approval_steps
		WHERE claim_id = ?
		ORDER BY step_order
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, claimID.String())
	if err != nil {
		r.logger.Error("Failed to query approval steps", zap.String("claim_id", claimID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to query approval steps: %w", err)
	}
	defer rows.Close()

	var steps []approval.Step
	for rows.Next() {
		var (
			s          approval.Step
			idStr      string
			claimIDStr string
			stepType   string
			kind       string
			status     string
			resolvedAt sql.NullTime
		)
		if err := rows.Scan(
			&idStr, &claimIDStr, &s.Order, &stepType, &s.Name,
			&kind, &s.Approver.UserID, &s.Approver.Role,
			&status, &s.Comment, &resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval step: %w", err)
		}

		if s.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("invalid step id: %w", err)
		}
		if s.ClaimID, err = uuid.Parse(claimIDStr); err != nil {
			return nil, fmt.Errorf("invalid claim id: %w", err)
		}
		s.Type = approval.StepType(stepType)
		s.Approver.Kind = approval.ApproverKind(kind)
		s.Status = approval.StepStatus(status)
		if resolvedAt.Valid {
			s.ResolvedAt = &resolvedAt.Time
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if steps == nil {
		return nil, nil
	}
	return &approval.Chain{ClaimID: claimID, Steps: steps}, nil
}

// UpdateStep persists a step's resolution
func (r *ChainRepository) UpdateStep(ctx context.Context, step *approval.Step) error {
	query := `
		UPDATE approval_steps
		SET status = ?, comment = ?, resolved_at = ?
		WHERE id = ?
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		string(step.Status), step.Comment, step.ResolvedAt, step.ID.String())
	if err != nil {
		r.logger.Error("Failed to update approval step", zap.String("id", step.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update approval step: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("approval step %s not found", step.ID)
	}
	return nil
}

// DeleteByClaimID removes the claim's chain, used when a rejected claim is
// re-edited back to draft
func (r *ChainRepository) DeleteByClaimID(ctx context.Context, claimID uuid.UUID) error {
	exec := sqlite.GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM approval_steps WHERE claim_id = ?`, claimID.String()); err != nil {
		r.logger.Error("Failed to delete approval steps", zap.String("claim_id", claimID.String()), zap.Error(err))
		return fmt.Errorf("failed to delete approval steps: %w", err)
	}
	return nil
}

var _ port.ChainRepository = (*ChainRepository)(nil)
