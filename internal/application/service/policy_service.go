package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/policy"
)

// PolicyCacheInvalidator drops cached policies after administrator edits
type PolicyCacheInvalidator interface {
	InvalidatePolicies(orgID string)
}

// PolicyInput describes a new or updated compliance policy
type PolicyInput struct {
	OrgID    string
	Name     string
	IsActive bool
	Rules    []policy.Rule
}

// PolicyService is the administrator surface for compliance policies
type PolicyService interface {
	CreatePolicy(ctx context.Context, in PolicyInput) (*policy.Policy, error)
	UpdatePolicy(ctx context.Context, id uuid.UUID, in PolicyInput) (*policy.Policy, error)
	GetPolicy(ctx context.Context, id uuid.UUID) (*policy.Policy, error)
	ListPolicies(ctx context.Context, orgID string) ([]*policy.Policy, error)
	DeletePolicy(ctx context.Context, id uuid.UUID) error
}

type policyServiceImpl struct {
	policyRepo port.PolicyRepository
	cache      PolicyCacheInvalidator
	logger     Logger
}

// NewPolicyService creates a new PolicyService
func NewPolicyService(policyRepo port.PolicyRepository, cache PolicyCacheInvalidator, logger Logger) PolicyService {
	return &policyServiceImpl{
		policyRepo: policyRepo,
		cache:      cache,
		logger:     logger,
	}
}

// CreatePolicy persists a new policy with its rules
func (s *policyServiceImpl) CreatePolicy(ctx context.Context, in PolicyInput) (*policy.Policy, error) {
	if in.OrgID == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: org and name are required", ErrInvalidInput)
	}
	for i := range in.Rules {
		if in.Rules[i].ID == uuid.Nil {
			in.Rules[i].ID = uuid.New()
		}
	}

	p := &policy.Policy{
		ID:        uuid.New(),
		OrgID:     in.OrgID,
		Name:      in.Name,
		IsActive:  in.IsActive,
		Rules:     in.Rules,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.policyRepo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to create policy", "error", err, "org_id", in.OrgID)
		return nil, err
	}

	s.cache.InvalidatePolicies(in.OrgID)
	s.logger.Info("Policy created", "id", p.ID, "org_id", p.OrgID, "name", p.Name, "rules", len(p.Rules))
	return p, nil
}

// UpdatePolicy replaces a policy's rule set and metadata
func (s *policyServiceImpl) UpdatePolicy(ctx context.Context, id uuid.UUID, in PolicyInput) (*policy.Policy, error) {
	p, err := s.policyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPolicyNotFound
	}

	for i := range in.Rules {
		if in.Rules[i].ID == uuid.Nil {
			in.Rules[i].ID = uuid.New()
		}
	}

	p.Name = in.Name
	p.IsActive = in.IsActive
	p.Rules = in.Rules
	p.UpdatedAt = time.Now()

	if err := s.policyRepo.Update(ctx, p); err != nil {
		s.logger.Error("Failed to update policy", "error", err, "id", id)
		return nil, err
	}

	s.cache.InvalidatePolicies(p.OrgID)
	s.logger.Info("Policy updated", "id", id, "name", p.Name)
	return p, nil
}

// GetPolicy retrieves a policy
func (s *policyServiceImpl) GetPolicy(ctx context.Context, id uuid.UUID) (*policy.Policy, error) {
	p, err := s.policyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPolicyNotFound
	}
	return p, nil
}

// ListPolicies retrieves all of an organization's policies
func (s *policyServiceImpl) ListPolicies(ctx context.Context, orgID string) ([]*policy.Policy, error) {
	return s.policyRepo.ListByOrg(ctx, orgID)
}

// DeletePolicy removes a policy and its rules
func (s *policyServiceImpl) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	p, err := s.policyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrPolicyNotFound
	}

	if err := s.policyRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete policy", "error", err, "id", id)
		return err
	}

	s.cache.InvalidatePolicies(p.OrgID)
	s.logger.Info("Policy deleted", "id", id)
	return nil
}
