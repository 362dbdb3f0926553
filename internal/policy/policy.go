package policy

import (
	"context"
	"log/slog"

	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
)

// Repository loads per-company approval configuration.
type Repository interface {
	GetByCompanyID(ctx context.Context, companyID int64) (*policyDatamodel.CompanyPolicy, error)
}

// Service fronts the policy store. Policies are read on every expense
// submission so a missing row is a configuration fault, not user error.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(ctx context.Context, companyID int64) (*policyDatamodel.CompanyPolicy, error) {
	pol, err := s.repo.GetByCompanyID(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to load company policy", "company_id", companyID, "error", err)
		return nil, err
	}
	return pol, nil
}
