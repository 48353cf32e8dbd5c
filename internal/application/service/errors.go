package service

import "errors"

var (
	// ErrClaimNotFound is returned when no claim exists for the given ID
	ErrClaimNotFound = errors.New("claim not found")

	// ErrChainNotFound is returned when a claim has no approval chain
	ErrChainNotFound = errors.New("approval chain not found")

	// ErrNotOwner is returned when a caller acts on a claim they did not submit
	ErrNotOwner = errors.New("caller is not the claim submitter")

	// ErrClaimNotEditable is returned when a mutation targets a claim
	// outside its draft state
	ErrClaimNotEditable = errors.New("claim is not editable")

	// ErrEmptyClaim is returned when a claim without line items is submitted
	ErrEmptyClaim = errors.New("claim has no line items")

	// ErrClaimNotDeletable is returned when deletion targets a claim that
	// is neither draft nor rejected
	ErrClaimNotDeletable = errors.New("claim cannot be deleted in its current state")

	// ErrClaimNotApproved is returned when a voucher is requested for a
	// claim that has not completed approval
	ErrClaimNotApproved = errors.New("claim is not approved")

	// ErrRuleNotFound is returned when no approval rule exists for the given ID
	ErrRuleNotFound = errors.New("approval rule not found")

	// ErrPolicyNotFound is returned when no policy exists for the given ID
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrInvalidInput is returned for malformed create/update requests
	ErrInvalidInput = errors.New("invalid input")
)
