package approval

import "errors"

var (
	// ErrNoApplicableRule is returned when neither a matching rule nor a
	// default rule exists for a claim. The claim cannot enter an approval
	// chain and needs administrator attention.
	ErrNoApplicableRule = errors.New("no applicable approval rule")

	// ErrNotActionable is returned when the targeted step is not the
	// chain's current active step
	ErrNotActionable = errors.New("step is not actionable")

	// ErrAlreadyResolved is returned when a decision targets a step that
	// has already been resolved
	ErrAlreadyResolved = errors.New("step already resolved")

	// ErrUnauthorized is returned when the actor does not match the active
	// step's assigned approver
	ErrUnauthorized = errors.New("actor is not the assigned approver")

	// ErrInvalidDecision is returned for malformed decisions, e.g. a
	// rejection without a reason
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrStepNotFound is returned when the targeted step does not belong
	// to the chain
	ErrStepNotFound = errors.New("step not found in chain")
)
