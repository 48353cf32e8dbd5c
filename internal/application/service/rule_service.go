package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/approval"
)

// RuleCacheInvalidator drops cached rules after administrator edits
type RuleCacheInvalidator interface {
	InvalidateRules(orgID string)
}

// RuleInput describes a new or updated approval rule
type RuleInput struct {
	OrgID      string
	Name       string
	Priority   int
	IsActive   bool
	Conditions []approval.Condition
	Steps      []approval.StepTemplate
}

// RuleService is the administrator surface for approval rules. Every write
// invalidates the reference cache for the owning organization.
type RuleService interface {
	CreateRule(ctx context.Context, in RuleInput) (*approval.Rule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, in RuleInput) (*approval.Rule, error)
	GetRule(ctx context.Context, id uuid.UUID) (*approval.Rule, error)
	ListRules(ctx context.Context, orgID string) ([]*approval.Rule, error)
	SetDefaultRule(ctx context.Context, orgID string, id uuid.UUID) error
	SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

type ruleServiceImpl struct {
	ruleRepo  port.RuleRepository
	txManager port.TransactionManager
	cache     RuleCacheInvalidator
	logger    Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(ruleRepo port.RuleRepository, txManager port.TransactionManager, cache RuleCacheInvalidator, logger Logger) RuleService {
	return &ruleServiceImpl{
		ruleRepo:  ruleRepo,
		txManager: txManager,
		cache:     cache,
		logger:    logger,
	}
}

// CreateRule persists a new, non-default rule. Promotion to default goes
// through SetDefaultRule so the at-most-one-default invariant is enforced
// in one place.
func (s *ruleServiceImpl) CreateRule(ctx context.Context, in RuleInput) (*approval.Rule, error) {
	if in.OrgID == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: org and name are required", ErrInvalidInput)
	}

	rule := &approval.Rule{
		ID:         uuid.New(),
		OrgID:      in.OrgID,
		Name:       in.Name,
		Priority:   in.Priority,
		IsActive:   in.IsActive,
		Conditions: in.Conditions,
		Steps:      in.Steps,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		s.logger.Error("Failed to create rule", "error", err, "org_id", in.OrgID)
		return nil, err
	}

	s.cache.InvalidateRules(in.OrgID)
	s.logger.Info("Rule created", "id", rule.ID, "org_id", rule.OrgID, "name", rule.Name)
	return rule, nil
}

// UpdateRule rewrites a rule's conditions, steps and metadata
func (s *ruleServiceImpl) UpdateRule(ctx context.Context, id uuid.UUID, in RuleInput) (*approval.Rule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	rule.Name = in.Name
	rule.Priority = in.Priority
	rule.IsActive = in.IsActive
	rule.Conditions = in.Conditions
	rule.Steps = in.Steps
	rule.UpdatedAt = time.Now()

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		s.logger.Error("Failed to update rule", "error", err, "id", id)
		return nil, err
	}

	s.cache.InvalidateRules(rule.OrgID)
	s.logger.Info("Rule updated", "id", id, "name", rule.Name)
	return rule, nil
}

// GetRule retrieves a rule
func (s *ruleServiceImpl) GetRule(ctx context.Context, id uuid.UUID) (*approval.Rule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// ListRules retrieves all of an organization's rules
func (s *ruleServiceImpl) ListRules(ctx context.Context, orgID string) ([]*approval.Rule, error) {
	return s.ruleRepo.ListByOrg(ctx, orgID)
}

// SetDefaultRule promotes a rule to the organization's default, demoting
// any previous default in the same transaction
func (s *ruleServiceImpl) SetDefaultRule(ctx context.Context, orgID string, id uuid.UUID) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.ruleRepo.SetDefault(txCtx, orgID, id)
	})
	if err != nil {
		s.logger.Error("Failed to set default rule", "error", err, "id", id, "org_id", orgID)
		return err
	}

	s.cache.InvalidateRules(orgID)
	s.logger.Info("Default rule set", "id", id, "org_id", orgID)
	return nil
}

// SetRuleActive toggles a rule's active flag
func (s *ruleServiceImpl) SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrRuleNotFound
	}

	if err := s.ruleRepo.SetActive(ctx, id, active); err != nil {
		s.logger.Error("Failed to toggle rule", "error", err, "id", id)
		return err
	}

	s.cache.InvalidateRules(rule.OrgID)
	s.logger.Info("Rule toggled", "id", id, "active", active)
	return nil
}

// DeleteRule removes a rule
func (s *ruleServiceImpl) DeleteRule(ctx context.Context, id uuid.UUID) error {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrRuleNotFound
	}

	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete rule", "error", err, "id", id)
		return err
	}

	s.cache.InvalidateRules(rule.OrgID)
	s.logger.Info("Rule deleted", "id", id)
	return nil
}
