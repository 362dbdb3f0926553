package approval_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
)

func pendingWorkflow(approverIDs ...int64) *approval.Workflow {
	wf := &approval.Workflow{Status: approval.StatusPending}
	for i, id := range approverIDs {
		wf.Steps = append(wf.Steps, approval.Step{
			ApproverID:   id,
			ApproverRole: approval.RoleManager,
			Order:        i + 1,
			Status:       approval.StepPending,
		})
	}
	first := approverIDs[0]
	wf.CurrentApproverID = &first
	return wf
}

func actor(id int64) approval.UserRef {
	return approval.UserRef{ID: id, Email: "approver@acme.test", Role: approval.RoleManager}
}

func copyWorkflow(wf *approval.Workflow) approval.Workflow {
	clone := *wf
	clone.Steps = append([]approval.Step(nil), wf.Steps...)
	clone.History = append([]approval.HistoryEntry(nil), wf.History...)
	return clone
}

var _ = Describe("StateMachine", func() {
	var (
		machine *approval.StateMachine
		pol     *policyDatamodel.CompanyPolicy
	)

	BeforeEach(func() {
		machine = approval.NewStateMachine(approval.NewRuleEngine(testLogger()), testLogger())
		pol = &policyDatamodel.CompanyPolicy{}
	})

	Describe("Approve", func() {
		Context("single-step chain with a 60 percent rule", func() {
			It("terminates approved because the sole approval reaches 100 percent", func() {
				pol.PercentageRuleEnabled = true
				pol.PercentageThreshold = decimal.NewFromInt(60)
				wf := pendingWorkflow(10)

				err := machine.Approve(wf, actor(10), "looks fine", pol)

				Expect(err).ToNot(HaveOccurred())
				Expect(wf.Status).To(Equal(approval.StatusApproved))
				Expect(wf.CurrentApproverID).To(BeNil())
				Expect(wf.Steps[0].Status).To(Equal(approval.StepApproved))
				Expect(wf.History).To(HaveLen(1))
				Expect(wf.History[0].Action).To(Equal(approval.ActionApproved))
			})
		})

		Context("two-step chain with no rule matching after the first step", func() {
			It("stays pending and advances to the second approver", func() {
				pol.PercentageRuleEnabled = true
				pol.PercentageThreshold = decimal.NewFromInt(100)
				wf := pendingWorkflow(10, 20)

				err := machine.Approve(wf, actor(10), "", pol)

				Expect(err).ToNot(HaveOccurred())
				Expect(wf.Status).To(Equal(approval.StatusPending))
				Expect(wf.CurrentApproverID).ToNot(BeNil())
				Expect(*wf.CurrentApproverID).To(Equal(int64(20)))
				Expect(wf.Steps[1].Status).To(Equal(approval.StepPending))
			})
		})

		Context("chain exhausted without any rule match", func() {
			It("approves by default", func() {
				pol.SpecificRuleEnabled = true
				pol.SpecificRole = string(approval.RoleAdmin) // never present in the chain
				wf := pendingWorkflow(10, 20)

				Expect(machine.Approve(wf, actor(10), "", pol)).To(Succeed())
				Expect(wf.Status).To(Equal(approval.StatusPending))

				Expect(machine.Approve(wf, actor(20), "", pol)).To(Succeed())
				Expect(wf.Status).To(Equal(approval.StatusApproved))
				Expect(wf.CurrentApproverID).To(BeNil())
			})

			It("approves by default with zero enabled rules", func() {
				wf := pendingWorkflow(10)

				Expect(machine.Approve(wf, actor(10), "", pol)).To(Succeed())
				Expect(wf.Status).To(Equal(approval.StatusApproved))
			})
		})

		Context("preconditions", func() {
			It("rejects an actor without a step in the chain", func() {
				wf := pendingWorkflow(10, 20)
				before := copyWorkflow(wf)

				err := machine.Approve(wf, actor(99), "", pol)

				Expect(err).To(MatchError(internal.ErrNotCurrentApprover))
				Expect(*wf).To(Equal(before))
			})

			It("rejects an actor whose turn has not come", func() {
				wf := pendingWorkflow(10, 20)

				err := machine.Approve(wf, actor(20), "", pol)

				Expect(err).To(MatchError(internal.ErrNotCurrentApprover))
				Expect(wf.Steps[1].Status).To(Equal(approval.StepPending))
			})

			It("fails with a state error when the same actor approves twice", func() {
				pol.PercentageRuleEnabled = true
				pol.PercentageThreshold = decimal.NewFromInt(100)
				wf := pendingWorkflow(10, 20)

				Expect(machine.Approve(wf, actor(10), "", pol)).To(Succeed())
				before := copyWorkflow(wf)

				err := machine.Approve(wf, actor(10), "", pol)

				Expect(err).To(MatchError(internal.ErrStepAlreadyActed))
				Expect(*wf).To(Equal(before))
			})

			It("fails with a state error once the expense is terminal", func() {
				wf := pendingWorkflow(10)
				Expect(machine.Approve(wf, actor(10), "", pol)).To(Succeed())

				err := machine.Approve(wf, actor(10), "", pol)

				Expect(err).To(MatchError(internal.ErrExpenseNotPending))
			})
		})
	})

	Describe("Reject", func() {
		It("requires non-empty comments", func() {
			wf := pendingWorkflow(10)
			before := copyWorkflow(wf)

			err := machine.Reject(wf, actor(10), "   ", pol)

			Expect(err).To(MatchError(internal.ErrCommentsRequired))
			Expect(*wf).To(Equal(before))
		})

		It("vetoes the expense regardless of configured rules", func() {
			pol.PercentageRuleEnabled = true
			pol.PercentageThreshold = decimal.NewFromInt(1)
			pol.SpecificRuleEnabled = true
			pol.SpecificRole = string(approval.RoleManager)
			pol.HybridRuleEnabled = true
			pol.HybridPercentage = decimal.NewFromInt(1)
			pol.HybridRole = string(approval.RoleManager)
			wf := pendingWorkflow(10, 20, 30)

			err := machine.Reject(wf, actor(10), "missing receipt", pol)

			Expect(err).ToNot(HaveOccurred())
			Expect(wf.Status).To(Equal(approval.StatusRejected))
			Expect(wf.CurrentApproverID).To(BeNil())
			Expect(wf.Steps[0].Status).To(Equal(approval.StepRejected))
			Expect(wf.History).To(HaveLen(1))
			Expect(wf.History[0].Action).To(Equal(approval.ActionRejected))
			Expect(wf.History[0].Comments).To(Equal("missing receipt"))
		})

		It("fails with a state error on an already rejected expense", func() {
			wf := pendingWorkflow(10, 20)
			Expect(machine.Reject(wf, actor(10), "duplicate claim", pol)).To(Succeed())

			err := machine.Reject(wf, actor(20), "late", pol)

			Expect(err).To(MatchError(internal.ErrExpenseNotPending))
			Expect(wf.Steps[1].Status).To(Equal(approval.StepPending))
		})
	})
})
