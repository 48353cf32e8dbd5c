package approval

import (
	"github.com/google/uuid"

	"github.com/oakledger/claimflow/internal/domain/claim"
)

// BuildChain expands a rule's step templates into a concrete chain bound to
// the claim. Each template becomes a pending step with order index equal to
// its template position. The approver is recorded as an identity or role
// reference, not a resolved person list.
//
// A rule with zero templates produces an empty chain, which is complete from
// the start and equivalent to auto-approval. That is a deliberate
// configuration, so no error is raised here.
func BuildChain(rule *Rule, c *claim.Claim) *Chain {
	steps := make([]Step, 0, len(rule.Steps))
	for i, tmpl := range rule.Steps {
		approver := Approver{Kind: ApproverRole, Role: tmpl.Role}
		if tmpl.ApproverID != "" {
			approver = Approver{Kind: ApproverSpecific, UserID: tmpl.ApproverID}
		}
		steps = append(steps, Step{
			ID:       uuid.New(),
			ClaimID:  c.ID,
			Order:    i,
			Type:     tmpl.Type,
			Name:     tmpl.Name,
			Approver: approver,
			Status:   StepPending,
		})
	}
	return &Chain{ClaimID: c.ID, Steps: steps}
}
