package approval

import (
	"log/slog"

	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percentage returns the share of chain steps currently approved, in
// [0,100]. An empty chain yields 0.
func Percentage(steps []Step) decimal.Decimal {
	if len(steps) == 0 {
		return decimal.Zero
	}
	approved := 0
	for _, s := range steps {
		if s.Status == StepApproved {
			approved++
		}
	}
	return decimal.NewFromInt(int64(approved)).
		Div(decimal.NewFromInt(int64(len(steps)))).
		Mul(hundred)
}

// CompletionRule is one company-configured predicate that can mark an
// expense approved early. Rules are OR-composed by the engine; a single
// satisfied rule completes the workflow.
type CompletionRule interface {
	Name() string
	Satisfied(steps []Step) bool
}

type percentageRule struct {
	threshold decimal.Decimal
}

func (r percentageRule) Name() string { return "percentage" }

func (r percentageRule) Satisfied(steps []Step) bool {
	return Percentage(steps).GreaterThanOrEqual(r.threshold)
}

type specificApproverRule struct {
	role Role
}

func (r specificApproverRule) Name() string { return "specific_approver" }

func (r specificApproverRule) Satisfied(steps []Step) bool {
	for _, s := range steps {
		if s.Status == StepApproved && s.ApproverRole == r.role {
			return true
		}
	}
	return false
}

type hybridRule struct {
	threshold decimal.Decimal
	role      Role
}

func (r hybridRule) Name() string { return "hybrid" }

func (r hybridRule) Satisfied(steps []Step) bool {
	if Percentage(steps).GreaterThanOrEqual(r.threshold) {
		return true
	}
	for _, s := range steps {
		if s.Status == StepApproved && s.ApproverRole == r.role {
			return true
		}
	}
	return false
}

// RuleEngine evaluates a company's completion policy against the current
// approval steps. It is pure: no storage, no clock.
type RuleEngine struct {
	logger *slog.Logger
}

func NewRuleEngine(logger *slog.Logger) *RuleEngine {
	return &RuleEngine{logger: logger}
}

// RulesFor assembles the enabled completion rules from a company policy.
// Disabled rules are not represented at all.
func (e *RuleEngine) RulesFor(pol *policyDatamodel.CompanyPolicy) []CompletionRule {
	var rules []CompletionRule
	if pol == nil {
		return rules
	}
	if pol.PercentageRuleEnabled {
		rules = append(rules, percentageRule{threshold: pol.PercentageThreshold})
	}
	if pol.SpecificRuleEnabled {
		rules = append(rules, specificApproverRule{role: Role(pol.SpecificRole)})
	}
	if pol.HybridRuleEnabled {
		rules = append(rules, hybridRule{threshold: pol.HybridPercentage, role: Role(pol.HybridRole)})
	}
	return rules
}

// Evaluate reports whether any enabled rule is satisfied by the steps.
// With no enabled rules it returns false; chain exhaustion handling is
// the state machine's concern.
func (e *RuleEngine) Evaluate(steps []Step, pol *policyDatamodel.CompanyPolicy) bool {
	for _, rule := range e.RulesFor(pol) {
		if rule.Satisfied(steps) {
			e.logger.Debug("completion rule satisfied",
				"rule", rule.Name(),
				"approval_percentage", Percentage(steps).String())
			return true
		}
	}
	return false
}
