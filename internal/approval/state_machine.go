package approval

import (
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
	"github.com/google/uuid"
)

// StateMachine owns the per-expense state transitions. Pending is the
// only non-terminal state; Approved and Rejected are never left.
//
// The machine mutates only the Workflow handed to it and only after all
// preconditions have passed, so a failed call leaves the workflow
// untouched. Persistence and concurrency control belong to the caller.
type StateMachine struct {
	rules  *RuleEngine
	logger *slog.Logger
}

func NewStateMachine(rules *RuleEngine, logger *slog.Logger) *StateMachine {
	return &StateMachine{rules: rules, logger: logger}
}

// Approve records the acting user's approval on their pending step and
// decides the aggregate outcome: terminal approval when a completion rule
// is satisfied, advancement to the next pending step otherwise, and
// default approval when the chain is exhausted with no rule matched.
// Exhausting the chain without a rule match is itself a completion
// condition, a deliberate policy fallback.
func (m *StateMachine) Approve(wf *Workflow, actor UserRef, comments string, pol *policyDatamodel.CompanyPolicy) error {
	step, err := m.actionableStep(wf, actor)
	if err != nil {
		return err
	}

	now := time.Now()
	step.Status = StepApproved
	step.Comments = comments
	step.ActedAt = &now
	m.appendHistory(wf, actor, ActionApproved, comments, now)

	if m.rules.Evaluate(wf.Steps, pol) {
		m.terminate(wf, StatusApproved)
		m.logger.Info("expense approved by completion rule",
			"approver_id", actor.ID,
			"approval_percentage", Percentage(wf.Steps).String())
		return nil
	}

	if next := wf.NextPendingAfter(step.Order); next != nil {
		wf.CurrentApproverID = &next.ApproverID
		m.logger.Info("approval advanced to next step",
			"approver_id", actor.ID,
			"next_approver_id", next.ApproverID,
			"next_order", next.Order)
		return nil
	}

	// Chain exhausted: re-check the policy against the final step set
	// before falling back to default approval.
	if m.rules.Evaluate(wf.Steps, pol) {
		m.terminate(wf, StatusApproved)
		return nil
	}

	m.terminate(wf, StatusApproved)
	m.logger.Info("approval chain exhausted without rule match, approved by default",
		"approver_id", actor.ID)
	return nil
}

// Reject records the acting user's rejection. A single rejection vetoes
// the whole expense unconditionally, regardless of any configured rule.
// Comments are mandatory.
func (m *StateMachine) Reject(wf *Workflow, actor UserRef, comments string, pol *policyDatamodel.CompanyPolicy) error {
	if strings.TrimSpace(comments) == "" {
		return internal.ErrCommentsRequired
	}

	step, err := m.actionableStep(wf, actor)
	if err != nil {
		return err
	}

	now := time.Now()
	step.Status = StepRejected
	step.Comments = comments
	step.ActedAt = &now
	m.appendHistory(wf, actor, ActionRejected, comments, now)

	m.terminate(wf, StatusRejected)
	m.logger.Info("expense rejected, veto terminates workflow",
		"approver_id", actor.ID)
	return nil
}

// actionableStep validates every precondition for an approver action and
// returns the actor's pending step. Wrong actor yields an authorization
// error; a finalized expense or an already-actioned step yields a state
// error. Duplicate or late actions always leave state unchanged.
func (m *StateMachine) actionableStep(wf *Workflow, actor UserRef) (*Step, error) {
	if wf.Status != StatusPending {
		return nil, internal.ErrExpenseNotPending
	}

	step := wf.StepForApprover(actor.ID)
	if step == nil {
		return nil, internal.ErrNotCurrentApprover
	}
	if step.Status != StepPending {
		return nil, internal.ErrStepAlreadyActed
	}
	if wf.CurrentApproverID == nil || *wf.CurrentApproverID != actor.ID {
		return nil, internal.ErrNotCurrentApprover
	}
	return step, nil
}

func (m *StateMachine) appendHistory(wf *Workflow, actor UserRef, action Action, comments string, at time.Time) {
	wf.History = append(wf.History, HistoryEntry{
		ID:            uuid.New().String(),
		ApproverID:    actor.ID,
		ApproverEmail: actor.Email,
		Action:        action,
		Comments:      comments,
		CreatedAt:     at,
	})
}

func (m *StateMachine) terminate(wf *Workflow, status Status) {
	wf.Status = status
	wf.CurrentApproverID = nil
}
