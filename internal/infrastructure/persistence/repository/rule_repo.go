package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/infrastructure/persistence/sqlite"
)

// RuleRepository implements port.RuleRepository. Conditions and step
// templates are stored as JSON columns; they are always read and written as
// a whole with their rule.
type RuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sql.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

// Create persists an approval rule
func (r *RuleRepository) Create(ctx context.Context, rule *approval.Rule) error {
	conditions, steps, err := marshalRule(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approval_rules (
			id, org_id, name, priority, is_active, is_default, conditions, steps
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	_, err = exec.ExecContext(ctx, query,
		rule.ID.String(), rule.OrgID, rule.Name, rule.Priority,
		rule.IsActive, rule.IsDefault, conditions, steps,
	)
	if err != nil {
		r.logger.Error("Failed to create rule", zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// Update rewrites a rule's mutable fields
func (r *RuleRepository) Update(ctx context.Context, rule *approval.Rule) error {
	conditions, steps, err := marshalRule(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE approval_rules
		SET name = ?, priority = ?, is_active = ?, is_default = ?,
			conditions = ?, steps = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		rule.Name, rule.Priority, rule.IsActive, rule.IsDefault,
		conditions, steps, rule.ID.String(),
	)
	if err != nil {
		r.logger.Error("Failed to update rule", zap.String("id", rule.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s not found", rule.ID)
	}
	return nil
}

// GetByID retrieves an approval rule
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*approval.Rule, error) {
	query := ruleSelect + ` WHERE id = ?`

	exec := sqlite.GetExecutor(ctx, r.db)
	rule, err := scanRule(exec.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get rule", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListByOrg retrieves all of an organization's rules, default last within
// equal priority so matching order is stable
func (r *RuleRepository) ListByOrg(ctx context.Context, orgID string) ([]*approval.Rule, error) {
	query := ruleSelect + ` WHERE org_id = ? ORDER BY priority, id`

	exec := sqlite.GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, orgID)
	if err != nil {
		r.logger.Error("Failed to list rules", zap.String("org_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*approval.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SetDefault promotes the rule to the organization's default, demoting any
// previous default. Both statements run on the same executor so a wrapping
// transaction keeps the at-most-one-default invariant.
func (r *RuleRepository) SetDefault(ctx context.Context, orgID string, ruleID uuid.UUID) error {
	exec := sqlite.GetExecutor(ctx, r.db)

	if _, err := exec.ExecContext(ctx,
		`UPDATE approval_rules SET is_default = 0, updated_at = CURRENT_TIMESTAMP WHERE org_id = ? AND is_default = 1`,
		orgID,
	); err != nil {
		return fmt.Errorf("failed to demote previous default: %w", err)
	}

	result, err := exec.ExecContext(ctx,
		`UPDATE approval_rules SET is_default = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND org_id = ?`,
		ruleID.String(), orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to set default rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s not found in org %s", ruleID, orgID)
	}
	return nil
}

// SetActive toggles a rule's active flag
func (r *RuleRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	exec := sqlite.GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`UPDATE approval_rules SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to set rule active: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s not found", id)
	}
	return nil
}

// Delete removes a rule
func (r *RuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec := sqlite.GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM approval_rules WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

const ruleSelect = `
	SELECT id, org_id, name, priority, is_active, is_default,
		conditions, steps, created_at, updated_at
	FROM approval_rules`

func marshalRule(rule *approval.Rule) (conditions, steps string, err error) {
	condBytes, err := json.Marshal(rule.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal conditions: %w", err)
	}
	stepBytes, err := json.Marshal(rule.Steps)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal step templates: %w", err)
	}
	return string(condBytes), string(stepBytes), nil
}

func scanRule(row rowScanner) (*approval.Rule, error) {
	var (
		rule       approval.Rule
		idStr      string
		conditions string
		steps      string
	)
	err := row.Scan(
		&idStr, &rule.OrgID, &rule.Name, &rule.Priority,
		&rule.IsActive, &rule.IsDefault, &conditions, &steps,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid rule id: %w", err)
	}
	rule.ID = id

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &rule.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step templates: %w", err)
	}
	return &rule, nil
}

var _ port.RuleRepository = (*RuleRepository)(nil)
