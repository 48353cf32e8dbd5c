// Package cache provides a read-through, per-organization cache for the
// read-heavy, write-rare reference data: approval rules and spending
// policies. Administrator edits invalidate the owning organization's entry;
// readers may briefly see stale data mid-edit, which is accepted.
package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/application/port"
	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/policy"
)

// ReferenceCache caches rules and active policies per organization
type ReferenceCache struct {
	ruleRepo   port.RuleRepository
	policyRepo port.PolicyRepository
	logger     *zap.Logger

	mu       sync.RWMutex
	rules    map[string][]*approval.Rule
	policies map[string][]*policy.Policy
}

// NewReferenceCache creates a reference cache over the given repositories
func NewReferenceCache(ruleRepo port.RuleRepository, policyRepo port.PolicyRepository, logger *zap.Logger) *ReferenceCache {
	return &ReferenceCache{
		ruleRepo:   ruleRepo,
		policyRepo: policyRepo,
		logger:     logger,
		rules:      make(map[string][]*approval.Rule),
		policies:   make(map[string][]*policy.Policy),
	}
}

// RulesByOrg returns the organization's approval rules, loading them on a
// cache miss
func (c *ReferenceCache) RulesByOrg(ctx context.Context, orgID string) ([]*approval.Rule, error) {
	c.mu.RLock()
	rules, ok := c.rules[orgID]
	c.mu.RUnlock()
	if ok {
		return rules, nil
	}

	rules, err := c.ruleRepo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rules[orgID] = rules
	c.mu.Unlock()

	c.logger.Debug("Loaded rules into cache", zap.String("org_id", orgID), zap.Int("count", len(rules)))
	return rules, nil
}

// ActivePoliciesByOrg returns the organization's active policies, loading
// them on a cache miss
func (c *ReferenceCache) ActivePoliciesByOrg(ctx context.Context, orgID string) ([]*policy.Policy, error) {
	c.mu.RLock()
	policies, ok := c.policies[orgID]
	c.mu.RUnlock()
	if ok {
		return policies, nil
	}

	policies, err := c.policyRepo.ListActiveByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.policies[orgID] = policies
	c.mu.Unlock()

	c.logger.Debug("Loaded policies into cache", zap.String("org_id", orgID), zap.Int("count", len(policies)))
	return policies, nil
}

// InvalidateRules drops the organization's cached rules. Called after every
// administrator rule edit.
func (c *ReferenceCache) InvalidateRules(orgID string) {
	c.mu.Lock()
	delete(c.rules, orgID)
	c.mu.Unlock()
}

// InvalidatePolicies drops the organization's cached policies. Called after
// every administrator policy edit.
func (c *ReferenceCache) InvalidatePolicies(orgID string) {
	c.mu.Lock()
	delete(c.policies, orgID)
	c.mu.Unlock()
}
