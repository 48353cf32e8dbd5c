package approval

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Decision is an approver's verdict on a step
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Outcome summarizes the chain-level effect of a recorded decision so the
// caller can mirror it onto the claim status in the same transaction.
type Outcome struct {
	Step          *Step
	ChainComplete bool
	ChainRejected bool
	SkippedSteps  []uuid.UUID
}

// RecordDecision applies an approver's decision to the targeted step.
//
// The step must be the chain's current active step and the actor must match
// its assigned approver. A rejection requires a non-empty comment, is
// chain-terminal, and skips every remaining pending step. Recording a
// decision on an already-resolved step fails with ErrAlreadyResolved so that
// retried requests cannot double-process.
//
// The chain is mutated in memory only; persistence and the claim status
// mirror are the caller's transaction.
func RecordDecision(chain *Chain, stepID uuid.UUID, actor Actor, decision Decision, comment string) (*Outcome, error) {
	step := chain.StepByID(stepID)
	if step == nil {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	if step.Status.IsResolved() {
		return nil, fmt.Errorf("%w: step %d is %s", ErrAlreadyResolved, step.Order, step.Status)
	}

	active := chain.ActiveStep()
	if active == nil || active.ID != step.ID {
		return nil, fmt.Errorf("%w: step %d", ErrNotActionable, step.Order)
	}

	if !step.Approver.Matches(actor) {
		return nil, fmt.Errorf("%w: user %s on step %d", ErrUnauthorized, actor.UserID, step.Order)
	}

	now := time.Now()

	switch decision {
	case DecisionApprove:
		step.Status = StepApproved
		step.Comment = comment
		step.ResolvedAt = &now
		return &Outcome{Step: step, ChainComplete: chain.IsComplete()}, nil

	case DecisionReject:
		if strings.TrimSpace(comment) == "" {
			return nil, fmt.Errorf("%w: rejection requires a reason", ErrInvalidDecision)
		}
		step.Status = StepRejected
		step.Comment = comment
		step.ResolvedAt = &now

		outcome := &Outcome{Step: step, ChainRejected: true}
		for i := range chain.Steps {
			if chain.Steps[i].Status == StepPending {
				chain.Steps[i].Status = StepSkipped
				chain.Steps[i].ResolvedAt = &now
				outcome.SkippedSteps = append(outcome.SkippedSteps, chain.Steps[i].ID)
			}
		}
		return outcome, nil

	default:
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidDecision, decision)
	}
}

// SkipStep resolves a conditional step as skipped. Not part of the approver
// decision API: rule logic invokes it when a step's condition no longer
// applies. A skipped step counts as approved for chain completion.
func SkipStep(chain *Chain, stepID uuid.UUID) (*Outcome, error) {
	step := chain.StepByID(stepID)
	if step == nil {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}
	if step.Status.IsResolved() {
		return nil, fmt.Errorf("%w: step %d is %s", ErrAlreadyResolved, step.Order, step.Status)
	}
	if chain.IsRejected() {
		return nil, fmt.Errorf("%w: chain is rejected", ErrNotActionable)
	}

	now := time.Now()
	step.Status = StepSkipped
	step.ResolvedAt = &now
	return &Outcome{Step: step, ChainComplete: chain.IsComplete()}, nil
}
