package approval

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-approval/internal"
	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
	"github.com/shopspring/decimal"
)

// Directory resolves approver candidates from organizational data.
// Implementations must be deterministic: when several users qualify, the
// earliest provisioned one (created_at, then id) is returned.
type Directory interface {
	ResolveManager(ctx context.Context, employee UserRef) (*UserRef, error)
	ResolveFinanceApprover(ctx context.Context, companyID int64) (*UserRef, error)
	ResolveAdmin(ctx context.Context, companyID int64) (*UserRef, error)
}

// ChainBuilder constructs the ordered approval chain for a new expense
// from organizational data and the company's amount thresholds.
type ChainBuilder struct {
	directory Directory
	logger    *slog.Logger
}

func NewChainBuilder(directory Directory, logger *slog.Logger) *ChainBuilder {
	return &ChainBuilder{directory: directory, logger: logger}
}

// Build returns the ordered approval steps and the ID of the first
// approver. Construction order decides step order: manager first, then
// finance approver above the finance threshold, then a director above
// the director threshold, each appended only if that identity is not
// already in the chain. An empty chain falls back to the company admin;
// if no admin resolves either, the build fails and the expense must not
// be persisted.
func (b *ChainBuilder) Build(ctx context.Context, employee UserRef, convertedAmount decimal.Decimal, pol *policyDatamodel.CompanyPolicy) ([]Step, int64, error) {
	var steps []Step
	order := 1

	appendStep := func(u *UserRef) {
		for _, s := range steps {
			if s.ApproverID == u.ID {
				return
			}
		}
		steps = append(steps, Step{
			ApproverID:    u.ID,
			ApproverEmail: u.Email,
			ApproverRole:  u.Role,
			Order:         order,
			Status:        StepPending,
		})
		order++
	}

	if employee.ManagerID != nil && employee.IsManagerApprover {
		manager, err := b.directory.ResolveManager(ctx, employee)
		if err != nil {
			if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeNotFound {
				b.logger.Warn("manager set but not resolvable, skipping manager step",
					"employee_id", employee.ID, "manager_id", *employee.ManagerID)
			} else {
				return nil, 0, err
			}
		} else {
			appendStep(manager)
		}
	}

	if convertedAmount.GreaterThanOrEqual(pol.FinanceApproval) {
		finance, err := b.directory.ResolveFinanceApprover(ctx, employee.CompanyID)
		if err != nil {
			if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeNotFound {
				b.logger.Warn("no finance approver configured, skipping finance step",
					"company_id", employee.CompanyID)
			} else {
				return nil, 0, err
			}
		} else {
			appendStep(finance)
		}
	}

	if convertedAmount.GreaterThanOrEqual(pol.DirectorApproval) {
		director, err := b.directory.ResolveAdmin(ctx, employee.CompanyID)
		if err != nil {
			if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeNotFound {
				b.logger.Warn("no admin user configured, skipping director step",
					"company_id", employee.CompanyID)
			} else {
				return nil, 0, err
			}
		} else {
			appendStep(director)
		}
	}

	if len(steps) == 0 {
		admin, err := b.directory.ResolveAdmin(ctx, employee.CompanyID)
		if err != nil {
			if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeNotFound {
				return nil, 0, internal.ErrNoApproverResolved
			}
			return nil, 0, err
		}
		appendStep(admin)
	}

	b.logger.Info("approval chain built",
		"employee_id", employee.ID,
		"company_id", employee.CompanyID,
		"converted_amount", convertedAmount.String(),
		"steps", len(steps))

	return steps, steps[0].ApproverID, nil
}
