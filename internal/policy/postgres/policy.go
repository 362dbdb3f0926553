package policy

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/expense-approval/internal"
	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
)

type PolicyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) GetByCompanyID(ctx context.Context, companyID int64) (*policyDatamodel.CompanyPolicy, error) {
	var pol policyDatamodel.CompanyPolicy
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&pol).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrPolicyNotFound
		}
		return nil, err
	}
	return &pol, nil
}
