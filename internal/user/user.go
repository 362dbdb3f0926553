package user

import (
	"context"
	"time"

	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
)

// User is the profile shape returned to clients. Password material never
// leaves the datamodel layer.
type User struct {
	ID                int64     `json:"id"`
	CompanyID         int64     `json:"company_id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	ManagerID         *int64    `json:"manager_id,omitempty"`
	IsManagerApprover bool      `json:"is_manager_approver"`
	CreatedAt         time.Time `json:"created_at"`
}

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*userDatamodel.User, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromDataModel(u), nil
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:                u.ID,
		CompanyID:         u.CompanyID,
		Email:             u.Email,
		Name:              u.Name,
		Role:              u.Role,
		ManagerID:         u.ManagerID,
		IsManagerApprover: u.IsManagerApprover,
		CreatedAt:         u.CreatedAt,
	}
}
