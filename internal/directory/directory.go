package directory

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
)

// Repository looks up users and approver candidates in organizational data.
// Candidate lookups must be deterministic: ties break on created_at, then id.
type Repository interface {
	GetUserByID(ctx context.Context, userID int64) (*approval.UserRef, error)
	FindFinanceApprover(ctx context.Context, companyID int64) (*approval.UserRef, error)
	FindAdmin(ctx context.Context, companyID int64) (*approval.UserRef, error)
}

// Service resolves the people an approval chain refers to. It satisfies
// the directory contract the expense service consumes.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*approval.UserRef, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// ResolveManager returns the employee's direct manager. The caller decides
// whether a manager step belongs in the chain; this only resolves identity.
func (s *Service) ResolveManager(ctx context.Context, employee approval.UserRef) (*approval.UserRef, error) {
	if employee.ManagerID == nil {
		return nil, internal.ErrUserNotFound
	}
	return s.repo.GetUserByID(ctx, *employee.ManagerID)
}

// ResolveFinanceApprover returns the company's designated finance approver:
// the earliest provisioned active manager flagged as a manager approver.
func (s *Service) ResolveFinanceApprover(ctx context.Context, companyID int64) (*approval.UserRef, error) {
	return s.repo.FindFinanceApprover(ctx, companyID)
}

// ResolveAdmin returns the company's earliest provisioned active admin.
func (s *Service) ResolveAdmin(ctx context.Context, companyID int64) (*approval.UserRef, error) {
	return s.repo.FindAdmin(ctx, companyID)
}
