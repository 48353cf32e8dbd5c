// Package repository implements the port persistence interfaces over
// sqlite. Every method routes through the context-aware executor so calls
// inside a transaction join it.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/claim"
	"github.com/oakledger/claimflow/internal/infrastructure/persistence/sqlite"
)

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{db: db, logger: logger}
}

// Create persists a claim and any line items already attached to it
func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	query := `
		INSERT INTO claims (
			id, org_id, submitter_id, department, title,
			base_currency, status, reject_reason, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query,
		c.ID.String(),
		c.OrgID,
		c.SubmitterID,
		c.Department,
		c.Title,
		c.BaseCurrency,
		string(c.Status),
		c.RejectReason,
		c.SubmittedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	for i := range c.Items {
		if err := r.AddItem(ctx, &c.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a claim with its line items
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	query := `
		SELECT id, org_id, submitter_id, department, title, base_currency,
			status, reject_reason, submitted_at, created_at, updated_at
		FROM claims
		WHERE id = ?
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	c, err := scanClaim(exec.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	items, err := r.itemsByClaimID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return c, nil
}

// ListByOrg retrieves a page of an organization's claims, newest first.
// Line items are loaded per claim.
func (r *ClaimRepository) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]*claim.Claim, error) {
	query := `
		SELECT id, org_id, submitter_id, department, title, base_currency,
			status, reject_reason, submitted_at, created_at, updated_at
		FROM claims
		WHERE org_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.String("org_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range claims {
		items, err := r.itemsByClaimID(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Items = items
	}
	return claims, nil
}

// UpdateStatus updates the claim status and rejection reason
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status claim.Status, rejectReason string) error {
	query := `
		UPDATE claims
		SET status = ?, reject_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, string(status), rejectReason, id.String())
	if err != nil {
		r.logger.Error("Failed to update claim status", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update claim status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("claim %s not found", id)
	}
	return nil
}

// SetSubmittedAt records the submission timestamp
func (r *ClaimRepository) SetSubmittedAt(ctx context.Context, id uuid.UUID, t time.Time) error {
	query := `UPDATE claims SET submitted_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	exec := sqlite.GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, t, id.String()); err != nil {
		r.logger.Error("Failed to set submitted_at", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to set submitted_at: %w", err)
	}
	return nil
}

// Delete removes the claim; line items and steps cascade
func (r *ClaimRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec := sqlite.GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM claims WHERE id = ?`, id.String()); err != nil {
		r.logger.Error("Failed to delete claim", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to delete claim: %w", err)
	}
	return nil
}

// AddItem persists one line item
func (r *ClaimRepository) AddItem(ctx context.Context, item *claim.LineItem) error {
	query := `
		INSERT INTO line_items (
			id, claim_id, category, amount, currency, exchange_rate,
			normalized, expense_date, vendor, receipt_url, receipt_valid, receipt_note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var receiptValid interface{}
	if item.ReceiptValid != nil {
		receiptValid = *item.ReceiptValid
	}

	exec := sqlite.GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query,
		item.ID.String(),
		item.ClaimID.String(),
		string(item.Category),
		item.Amount.String(),
		item.Currency,
		item.ExchangeRate.String(),
		item.Normalized.String(),
		item.ExpenseDate.Format("2006-01-02"),
		item.Vendor,
		item.ReceiptURL,
		receiptValid,
		item.ReceiptNote,
	)
	if err != nil {
		r.logger.Error("Failed to add line item", zap.Error(err))
		return fmt.Errorf("failed to add line item: %w", err)
	}
	return nil
}

func (r *ClaimRepository) itemsByClaimID(ctx context.Context, claimID uuid.UUID) ([]claim.LineItem, error) {
	query := `
		SELECT id, claim_id, category, amount, currency, exchange_rate,
			normalized, expense_date, vendor, receipt_url, receipt_valid,
			receipt_note, created_at
		FROM line_items
		WHERE claim_id = ?
		ORDER BY created_at, id
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, claimID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var items []claim.LineItem
	for rows.Next() {
		var (
			item         claim.LineItem
			idStr        string
			claimIDStr   string
			category     string
			amount       string
			rate         string
			normalized   string
			receiptValid sql.NullBool
		)
		// expense_date is a DATE column, the driver hands it back as time.Time
		if err := rows.Scan(
			&idStr, &claimIDStr, &category, &amount, &item.Currency,
			&rate, &normalized, &item.ExpenseDate, &item.Vendor,
			&item.ReceiptURL, &receiptValid, &item.ReceiptNote, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}

		if item.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("invalid item id: %w", err)
		}
		if item.ClaimID, err = uuid.Parse(claimIDStr); err != nil {
			return nil, fmt.Errorf("invalid claim id: %w", err)
		}
		item.Category = claim.Category(category)
		if item.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
		if item.ExchangeRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("invalid exchange rate: %w", err)
		}
		if item.Normalized, err = decimal.NewFromString(normalized); err != nil {
			return nil, fmt.Errorf("invalid normalized amount: %w", err)
		}
		if receiptValid.Valid {
			v := receiptValid.Bool
			item.ReceiptValid = &v
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*claim.Claim, error) {
	var (
		c           claim.Claim
		idStr       string
		status      string
		submittedAt sql.NullTime
	)
	err := row.Scan(
		&idStr, &c.OrgID, &c.SubmitterID, &c.Department, &c.Title,
		&c.BaseCurrency, &status, &c.RejectReason, &submittedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid claim id: %w", err)
	}
	c.ID = id
	c.Status = claim.Status(status)
	if submittedAt.Valid {
		c.SubmittedAt = &submittedAt.Time
	}
	return &c, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
