package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/claim"
	"github.com/oakledger/claimflow/internal/domain/policy"
	"github.com/oakledger/claimflow/internal/infrastructure/persistence/sqlite"
)

// PolicyRepository implements port.PolicyRepository. A policy row owns its
// policy_rules rows; updates replace the rule set wholesale since policies
// are small, administrator-edited reference data.
type PolicyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sql.DB, logger *zap.Logger) port.PolicyRepository {
	return &PolicyRepository{db: db, logger: logger}
}

// Create persists a policy with its rules
func (r *PolicyRepository) Create(ctx context.Context, p *policy.Policy) error {
	exec := sqlite.GetExecutor(ctx, r.db)

	_, err := exec.ExecContext(ctx,
		`INSERT INTO policies (id, org_id, name, is_active) VALUES (?, ?, ?, ?)`,
		p.ID.String(), p.OrgID, p.Name, p.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create policy", zap.Error(err))
		return fmt.Errorf("failed to create policy: %w", err)
	}

	return r.insertRules(ctx, p)
}

// Update rewrites a policy and replaces its rule set
func (r *PolicyRepository) Update(ctx context.Context, p *policy.Policy) error {
	exec := sqlite.GetExecutor(ctx, r.db)

	result, err := exec.ExecContext(ctx,
		`UPDATE policies SET name = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Name, p.IsActive, p.ID.String(),
	)
	if err != nil {
		r.logger.Error("Failed to update policy", zap.String("id", p.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update policy: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("policy %s not found", p.ID)
	}

	if _, err := exec.ExecContext(ctx, `DELETE FROM policy_rules WHERE policy_id = ?`, p.ID.String()); err != nil {
		return fmt.Errorf("failed to clear policy rules: %w", err)
	}
	return r.insertRules(ctx, p)
}

// GetByID retrieves a policy with its rules
func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*policy.Policy, error) {
	query := `
		SELECT id, org_id, name, is_active, created_at, updated_at
		FROM policies
		WHERE id = ?
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	p, err := scanPolicy(exec.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get policy", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	rules, err := r.rulesByPolicyID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Rules = rules
	return p, nil
}

// ListByOrg retrieves all of an organization's policies
func (r *PolicyRepository) ListByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error) {
	return r.list(ctx, `SELECT id, org_id, name, is_active, created_at, updated_at FROM policies WHERE org_id = ? ORDER BY name`, orgID)
}

// ListActiveByOrg retrieves the organization's active policies, the set the
// compliance analyzer evaluates
func (r *PolicyRepository) ListActiveByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error) {
	return r.list(ctx, `SELECT id, org_id, name, is_active, created_at, updated_at FROM policies WHERE org_id = ? AND is_active = 1 ORDER BY name`, orgID)
}

// Delete removes a policy; its rules cascade
func (r *PolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec := sqlite.GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM policies WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	return nil
}

func (r *PolicyRepository) list(ctx context.Context, query, orgID string) ([]*policy.Policy, error) {
	exec := sqlite.GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, orgID)
	if err != nil {
		r.logger.Error("Failed to list policies", zap.String("org_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []*policy.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range policies {
		rules, err := r.rulesByPolicyID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Rules = rules
	}
	return policies, nil
}

func (r *PolicyRepository) insertRules(ctx context.Context, p *policy.Policy) error {
	query := `
		INSERT INTO policy_rules (
			id, policy_id, name, categories, limit_type, limit_amount,
			limit_currency, requires_receipt, requires_approval
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	for i := range p.Rules {
		rule := &p.Rules[i]
		if rule.ID == uuid.Nil {
			rule.ID = uuid.New()
		}

		categories, err := json.Marshal(rule.Categories)
		if err != nil {
			return fmt.Errorf("failed to marshal categories: %w", err)
		}

		var limitType, limitAmount, limitCurrency interface{}
		if rule.Limit != nil {
			limitType = string(rule.Limit.Type)
			limitAmount = rule.Limit.Amount.String()
			limitCurrency = rule.Limit.Currency
		}

		if _, err := exec.ExecContext(ctx, query,
			rule.ID.String(), p.ID.String(), rule.Name, string(categories),
			limitType, limitAmount, limitCurrency,
			rule.RequiresReceipt, rule.RequiresApproval,
		); err != nil {
			return fmt.Errorf("failed to insert policy rule: %w", err)
		}
	}
	return nil
}

func (r *PolicyRepository) rulesByPolicyID(ctx context.Context, policyID uuid.UUID) ([]policy.Rule, error) {
	query := `
		SELECT id, name, categories, limit_type, limit_amount,
			limit_currency, requires_receipt, requires_approval
		FROM policy_rules
		WHERE policy_id = ?
		ORDER BY name, id
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, policyID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query policy rules: %w", err)
	}
	defer rows.Close()

	var rules []policy.Rule
	for rows.Next() {
		var (
			rule          policy.Rule
			idStr         string
			categories    string
			limitType     sql.NullString
			limitAmount   sql.NullString
			limitCurrency sql.NullString
		)
		if err := rows.Scan(
			&idStr, &rule.Name, &categories,
			&limitType, &limitAmount, &limitCurrency,
			&rule.RequiresReceipt, &rule.RequiresApproval,
		); err != nil {
			return nil, fmt.Errorf("failed to scan policy rule: %w", err)
		}

		if rule.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("invalid policy rule id: %w", err)
		}

		var cats []claim.Category
		if err := json.Unmarshal([]byte(categories), &cats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
		rule.Categories = cats

		if limitType.Valid {
			amount, err := decimal.NewFromString(limitAmount.String)
			if err != nil {
				return nil, fmt.Errorf("invalid limit amount: %w", err)
			}
			rule.Limit = &policy.Limit{
				Type:     policy.LimitType(limitType.String),
				Amount:   amount,
				Currency: limitCurrency.String,
			}
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanPolicy(row rowScanner) (*policy.Policy, error) {
	var (
		p     policy.Policy
		idStr string
	)
	err := row.Scan(&idStr, &p.OrgID, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid policy id: %w", err)
	}
	p.ID = id
	return &p, nil
}

var _ port.PolicyRepository = (*PolicyRepository)(nil)
