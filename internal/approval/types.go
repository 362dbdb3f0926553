package approval

import "time"

// Status is the lifecycle state of an expense's workflow.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"

	// StatusPartiallyApproved exists in the schema for compatibility with
	// older data exports. No transition in this engine produces it.
	StatusPartiallyApproved Status = "partially_approved"
)

// StepStatus is the state of a single approval step.
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
	StepSkipped  StepStatus = "skipped"
)

// Action is a recorded approver decision.
type Action string

const (
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

// Role classifies a user within a company.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// UserRef identifies an approver or submitter without carrying the full
// user record.
type UserRef struct {
	ID                int64
	CompanyID         int64
	Email             string
	Name              string
	Role              Role
	ManagerID         *int64
	IsManagerApprover bool
}

// Step is one slot in the approval chain. The approver's role is stamped
// at build time so rule evaluation never needs a directory lookup.
type Step struct {
	ApproverID    int64
	ApproverEmail string
	ApproverRole  Role
	Order         int
	Status        StepStatus
	Comments      string
	ActedAt       *time.Time
}

// HistoryEntry is one append-only record of an approver action.
type HistoryEntry struct {
	ID            string
	ApproverID    int64
	ApproverEmail string
	Action        Action
	Comments      string
	CreatedAt     time.Time
}

// Workflow is the mutable approval state of a single expense aggregate.
// The state machine is the only writer.
type Workflow struct {
	Status            Status
	CurrentApproverID *int64
	Steps             []Step
	History           []HistoryEntry
}

// StepForApprover returns a pointer to the step bound to the given
// approver, or nil when the approver holds no slot in the chain.
func (w *Workflow) StepForApprover(approverID int64) *Step {
	for i := range w.Steps {
		if w.Steps[i].ApproverID == approverID {
			return &w.Steps[i]
		}
	}
	return nil
}

// NextPendingAfter returns the pending step with the smallest order
// strictly greater than the given order, or nil when the chain is
// exhausted past that point.
func (w *Workflow) NextPendingAfter(order int) *Step {
	var next *Step
	for i := range w.Steps {
		s := &w.Steps[i]
		if s.Status != StepPending || s.Order <= order {
			continue
		}
		if next == nil || s.Order < next.Order {
			next = s
		}
	}
	return next
}
