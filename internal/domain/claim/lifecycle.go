package claim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a lifecycle transition is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned when a status is not a known claim status
	ErrInvalidStatus = errors.New("invalid claim status")
)

type transitionKey struct {
	from    Status
	trigger Trigger
}

// The claim lifecycle graph. A claim may return from REJECTED to DRAFT via an
// explicit re-edit, which resets its approval chain; no other backward edge
// exists.
var transitions = map[transitionKey]Status{
	{StatusDraft, TriggerSubmit}:          StatusPending,
	{StatusDraft, TriggerCancel}:          StatusCancelled,
	{StatusPending, TriggerApprove}:       StatusApproved,
	{StatusPending, TriggerReject}:        StatusRejected,
	{StatusPending, TriggerCancel}:        StatusCancelled,
	{StatusRejected, TriggerReedit}:       StatusDraft,
	{StatusApproved, TriggerIssueVoucher}: StatusProcessing,
	{StatusProcessing, TriggerSettle}:     StatusPaid,
}

// Lifecycle tracks a single claim's status and validates transitions against
// the lifecycle graph.
type Lifecycle struct {
	current Status
}

// NewLifecycle creates a lifecycle positioned at the given status
func NewLifecycle(s Status) (*Lifecycle, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, s)
	}
	return &Lifecycle{current: s}, nil
}

// Status returns the current status
func (l *Lifecycle) Status() Status {
	return l.current
}

// CanFire returns true if the trigger is permitted from the current status
func (l *Lifecycle) CanFire(trigger Trigger) bool {
	_, ok := transitions[transitionKey{l.current, trigger}]
	return ok
}

// Fire executes the trigger, advancing to the new status if the transition
// is permitted.
func (l *Lifecycle) Fire(trigger Trigger) (Status, error) {
	next, ok := transitions[transitionKey{l.current, trigger}]
	if !ok {
		return l.current, fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, l.current)
	}
	l.current = next
	return next, nil
}

// PermittedTriggers returns all triggers that can fire from the given status
func PermittedTriggers(s Status) []Trigger {
	var out []Trigger
	for key := range transitions {
		if key.from == s {
			out = append(out, key.trigger)
		}
	}
	return out
}
