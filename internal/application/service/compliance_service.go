package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/policy"
)

// PolicySource supplies an organization's active policies; backed by the
// reference cache in production.
type PolicySource interface {
	ActivePoliciesByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error)
}

// ComplianceService runs the policy analyzer for a claim. Advisory only:
// it may be called at any lifecycle stage and never blocks submission or
// viewing.
type ComplianceService interface {
	Analyze(ctx context.Context, claimID uuid.UUID) ([]policy.RiskAlert, error)
}

type complianceServiceImpl struct {
	claimRepo port.ClaimRepository
	policies  PolicySource
	analyzer  *policy.Analyzer
	logger    Logger
}

// NewComplianceService creates a new ComplianceService
func NewComplianceService(
	claimRepo port.ClaimRepository,
	policies PolicySource,
	analyzer *policy.Analyzer,
	logger Logger,
) ComplianceService {
	return &complianceServiceImpl{
		claimRepo: claimRepo,
		policies:  policies,
		analyzer:  analyzer,
		logger:    logger,
	}
}

// Analyze evaluates the organization's active policies against the claim.
// Unavailable policy data degrades to an empty alert list rather than an
// error: compliance advisories are best-effort.
func (s *complianceServiceImpl) Analyze(ctx context.Context, claimID uuid.UUID) ([]policy.RiskAlert, error) {
	c, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClaimNotFound
	}

	policies, err := s.policies.ActivePoliciesByOrg(ctx, c.OrgID)
	if err != nil {
		s.logger.Warn("Policy data unavailable, skipping compliance analysis",
			"error", err, "claim_id", claimID, "org_id", c.OrgID)
		return []policy.RiskAlert{}, nil
	}

	return s.analyzer.Analyze(c, policies), nil
}
