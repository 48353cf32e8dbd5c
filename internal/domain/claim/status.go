package claim

// Status represents a claim's position in the approval lifecycle
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusCancelled  Status = "CANCELLED"
)

var validStatuses = map[Status]bool{
	StatusDraft:      true,
	StatusPending:    true,
	StatusApproved:   true,
	StatusRejected:   true,
	StatusProcessing: true,
	StatusPaid:       true,
	StatusCancelled:  true,
}

var terminalStatuses = map[Status]bool{
	StatusPaid:      true,
	StatusCancelled: true,
}

// IsTerminal returns true if the status permits no further transitions
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is a known claim status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Trigger represents an event that can advance the claim lifecycle
type Trigger string

const (
	TriggerSubmit       Trigger = "SUBMIT"
	TriggerApprove      Trigger = "APPROVE"
	TriggerReject       Trigger = "REJECT"
	TriggerReedit       Trigger = "REEDIT"
	TriggerIssueVoucher Trigger = "ISSUE_VOUCHER"
	TriggerSettle       Trigger = "SETTLE"
	TriggerCancel       Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
