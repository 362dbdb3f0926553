package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
)

type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetUserByID(ctx context.Context, userID int64) (*approval.UserRef, error) {
	var user userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", userID, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return toUserRef(&user), nil
}

func (r *DirectoryRepository) FindFinanceApprover(ctx context.Context, companyID int64) (*approval.UserRef, error) {
	return r.findCandidate(ctx, companyID, "role = ? AND is_manager_approver = ?", string(approval.RoleManager), true)
}

func (r *DirectoryRepository) FindAdmin(ctx context.Context, companyID int64) (*approval.UserRef, error) {
	return r.findCandidate(ctx, companyID, "role = ?", string(approval.RoleAdmin))
}

// findCandidate picks exactly one user per company for a role query.
// Ordering by created_at then id keeps chain construction deterministic
// when several users qualify.
func (r *DirectoryRepository) findCandidate(ctx context.Context, companyID int64, cond string, args ...interface{}) (*approval.UserRef, error) {
	var user userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Where(cond, args...).
		Order("created_at ASC, id ASC").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return toUserRef(&user), nil
}

func toUserRef(u *userDatamodel.User) *approval.UserRef {
	return &approval.UserRef{
		ID:                u.ID,
		CompanyID:         u.CompanyID,
		Email:             u.Email,
		Name:              u.Name,
		Role:              approval.Role(u.Role),
		ManagerID:         u.ManagerID,
		IsManagerApprover: u.IsManagerApprover,
	}
}
