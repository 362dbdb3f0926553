package approval_test

import (
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-approval/internal/approval"
	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func steps(statuses ...approval.StepStatus) []approval.Step {
	result := make([]approval.Step, len(statuses))
	for i, st := range statuses {
		result[i] = approval.Step{
			ApproverID:   int64(i + 1),
			ApproverRole: approval.RoleManager,
			Order:        i + 1,
			Status:       st,
		}
	}
	return result
}

var _ = Describe("RuleEngine", func() {
	var engine *approval.RuleEngine

	BeforeEach(func() {
		engine = approval.NewRuleEngine(testLogger())
	})

	Describe("Percentage", func() {
		It("returns 0 for an empty chain", func() {
			Expect(approval.Percentage(nil).IsZero()).To(BeTrue())
		})

		It("returns the approved share of all steps", func() {
			pct := approval.Percentage(steps(approval.StepApproved, approval.StepPending))
			Expect(pct.Equal(decimal.NewFromInt(50))).To(BeTrue())
		})

		It("counts only approved steps, not rejected or skipped ones", func() {
			pct := approval.Percentage(steps(approval.StepApproved, approval.StepRejected, approval.StepSkipped, approval.StepPending))
			Expect(pct.Equal(decimal.NewFromInt(25))).To(BeTrue())
		})

		It("never decreases when one more step is approved", func() {
			base := steps(approval.StepApproved, approval.StepPending, approval.StepPending, approval.StepRejected)
			for i := range base {
				if base[i].Status != approval.StepPending {
					continue
				}
				more := make([]approval.Step, len(base))
				copy(more, base)
				more[i].Status = approval.StepApproved
				Expect(approval.Percentage(more).GreaterThanOrEqual(approval.Percentage(base))).To(BeTrue())
			}
		})
	})

	Describe("Evaluate", func() {
		Context("with no rules enabled", func() {
			It("returns false even when every step is approved", func() {
				pol := &policyDatamodel.CompanyPolicy{}
				Expect(engine.Evaluate(steps(approval.StepApproved, approval.StepApproved), pol)).To(BeFalse())
			})
		})

		Context("with the percentage rule", func() {
			It("is satisfied at or above the threshold", func() {
				pol := &policyDatamodel.CompanyPolicy{
					PercentageRuleEnabled: true,
					PercentageThreshold:   decimal.NewFromInt(50),
				}
				Expect(engine.Evaluate(steps(approval.StepApproved, approval.StepPending), pol)).To(BeTrue())
			})

			It("is not satisfied below the threshold", func() {
				pol := &policyDatamodel.CompanyPolicy{
					PercentageRuleEnabled: true,
					PercentageThreshold:   decimal.NewFromInt(60),
				}
				Expect(engine.Evaluate(steps(approval.StepApproved, approval.StepPending), pol)).To(BeFalse())
			})
		})

		Context("with the specific approver rule", func() {
			It("is satisfied when an approved step carries the configured role", func() {
				pol := &policyDatamodel.CompanyPolicy{
					SpecificRuleEnabled: true,
					SpecificRole:        string(approval.RoleAdmin),
				}
				chain := steps(approval.StepPending, approval.StepApproved)
				chain[1].ApproverRole = approval.RoleAdmin
				Expect(engine.Evaluate(chain, pol)).To(BeTrue())
			})

			It("ignores a pending step with the configured role", func() {
				pol := &policyDatamodel.CompanyPolicy{
					SpecificRuleEnabled: true,
					SpecificRole:        string(approval.RoleAdmin),
				}
				chain := steps(approval.StepPending)
				chain[0].ApproverRole = approval.RoleAdmin
				Expect(engine.Evaluate(chain, pol)).To(BeFalse())
			})
		})

		Context("with the hybrid rule", func() {
			It("is satisfied by percentage alone", func() {
				pol := &policyDatamodel.CompanyPolicy{
					HybridRuleEnabled: true,
					HybridPercentage:  decimal.NewFromInt(50),
					HybridRole:        string(approval.RoleAdmin),
				}
				Expect(engine.Evaluate(steps(approval.StepApproved, approval.StepPending), pol)).To(BeTrue())
			})

			It("is satisfied by role alone", func() {
				pol := &policyDatamodel.CompanyPolicy{
					HybridRuleEnabled: true,
					HybridPercentage:  decimal.NewFromInt(90),
					HybridRole:        string(approval.RoleManager),
				}
				Expect(engine.Evaluate(steps(approval.StepApproved, approval.StepPending, approval.StepPending), pol)).To(BeTrue())
			})
		})

		Context("with several rules enabled", func() {
			It("ORs them: one satisfied rule is enough", func() {
				pol := &policyDatamodel.CompanyPolicy{
					PercentageRuleEnabled: true,
					PercentageThreshold:   decimal.NewFromInt(100),
					SpecificRuleEnabled:   true,
					SpecificRole:          string(approval.RoleManager),
				}
				Expect(engine.Evaluate(steps(approval.StepApproved, approval.StepPending), pol)).To(BeTrue())
			})
		})
	})
})
