package approval

import (
	"time"

	"github.com/google/uuid"
)

// StepStatus is the lifecycle of a single approval step. Resolved statuses
// are terminal: a step never transitions again once approved, rejected or
// skipped.
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
	StepSkipped  StepStatus = "SKIPPED"
)

// IsResolved returns true once the step has reached a terminal status
func (s StepStatus) IsResolved() bool {
	return s == StepApproved || s == StepRejected || s == StepSkipped
}

// ApproverKind distinguishes a specific person from a role reference
type ApproverKind string

const (
	ApproverSpecific ApproverKind = "specific"
	ApproverRole     ApproverKind = "role"
)

// Approver is the step's assignee. Role assignments are resolved lazily at
// authorization time via the identity collaborator; the chain never stores a
// resolved person list, since role membership can change over its lifetime.
type Approver struct {
	Kind   ApproverKind `json:"kind"`
	UserID string       `json:"user_id,omitempty"`
	Role   string       `json:"role,omitempty"`
}

// Actor is the identity attempting a decision, with role memberships
// supplied by the identity collaborator.
type Actor struct {
	UserID string
	Roles  []string
}

// Matches returns true if the actor satisfies the approver assignment
func (a Approver) Matches(actor Actor) bool {
	switch a.Kind {
	case ApproverSpecific:
		return a.UserID == actor.UserID
	case ApproverRole:
		for _, role := range actor.Roles {
			if role == a.Role {
				return true
			}
		}
	}
	return false
}

// Step is one claim-bound approval checkpoint
type Step struct {
	ID         uuid.UUID
	ClaimID    uuid.UUID
	Order      int
	Type       StepType
	Name       string
	Approver   Approver
	Status     StepStatus
	Comment    string
	ResolvedAt *time.Time
}

// Chain is the ordered set of approval steps bound to one claim. Steps are
// addressed by order index; index ordering is the resolution order.
type Chain struct {
	ClaimID uuid.UUID
	Steps   []Step
}

// ActiveIndex returns the index of the current actionable step: the
// lowest-order pending step whose predecessors are all approved or skipped.
// Returns -1 when the chain is complete or terminally rejected.
func (c *Chain) ActiveIndex() int {
	for i := range c.Steps {
		switch c.Steps[i].Status {
		case StepApproved, StepSkipped:
			continue
		case StepPending:
			return i
		case StepRejected:
			return -1
		}
	}
	return -1
}

// ActiveStep returns the current actionable step, or nil if none
func (c *Chain) ActiveStep() *Step {
	idx := c.ActiveIndex()
	if idx < 0 {
		return nil
	}
	return &c.Steps[idx]
}

// IsComplete returns true when every step is approved or skipped. An empty
// chain is immediately complete, which is how zero-step rules express
// auto-approval.
func (c *Chain) IsComplete() bool {
	for i := range c.Steps {
		if c.Steps[i].Status != StepApproved && c.Steps[i].Status != StepSkipped {
			return false
		}
	}
	return true
}

// IsRejected returns true if any step has been rejected
func (c *Chain) IsRejected() bool {
	for i := range c.Steps {
		if c.Steps[i].Status == StepRejected {
			return true
		}
	}
	return false
}

// IsTerminal returns true once the chain can accept no further decisions
func (c *Chain) IsTerminal() bool {
	return c.IsRejected() || c.IsComplete()
}

// CanAct reports whether the actor may decide the current active step.
// Exposed to the presentation collaborator as "current turn".
func (c *Chain) CanAct(actor Actor) bool {
	if c.IsTerminal() {
		return false
	}
	step := c.ActiveStep()
	if step == nil {
		return false
	}
	return step.Approver.Matches(actor)
}

// StepByID locates a step within the chain
func (c *Chain) StepByID(stepID uuid.UUID) *Step {
	for i := range c.Steps {
		if c.Steps[i].ID == stepID {
			return &c.Steps[i]
		}
	}
	return nil
}
