package approval_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
)

type mockDirectory struct {
	manager        *approval.UserRef
	finance        *approval.UserRef
	admin          *approval.UserRef
	managerError   error
	financeError   error
	adminError     error
	resolveManager int
	resolveFinance int
	resolveAdmin   int
}

func (m *mockDirectory) ResolveManager(_ context.Context, _ approval.UserRef) (*approval.UserRef, error) {
	m.resolveManager++
	if m.managerError != nil {
		return nil, m.managerError
	}
	if m.manager == nil {
		return nil, internal.ErrUserNotFound
	}
	return m.manager, nil
}

func (m *mockDirectory) ResolveFinanceApprover(_ context.Context, _ int64) (*approval.UserRef, error) {
	m.resolveFinance++
	if m.financeError != nil {
		return nil, m.financeError
	}
	if m.finance == nil {
		return nil, internal.ErrUserNotFound
	}
	return m.finance, nil
}

func (m *mockDirectory) ResolveAdmin(_ context.Context, _ int64) (*approval.UserRef, error) {
	m.resolveAdmin++
	if m.adminError != nil {
		return nil, m.adminError
	}
	if m.admin == nil {
		return nil, internal.ErrUserNotFound
	}
	return m.admin, nil
}

var _ = Describe("ChainBuilder", func() {
	var (
		dir      *mockDirectory
		builder  *approval.ChainBuilder
		employee approval.UserRef
		pol      *policyDatamodel.CompanyPolicy
	)

	managerID := int64(10)

	BeforeEach(func() {
		dir = &mockDirectory{
			manager: &approval.UserRef{ID: 10, Email: "manager@acme.test", Role: approval.RoleManager},
			finance: &approval.UserRef{ID: 20, Email: "finance@acme.test", Role: approval.RoleManager},
			admin:   &approval.UserRef{ID: 30, Email: "admin@acme.test", Role: approval.RoleAdmin},
		}
		builder = approval.NewChainBuilder(dir, testLogger())
		employee = approval.UserRef{
			ID:                1,
			CompanyID:         7,
			Role:              approval.RoleEmployee,
			ManagerID:         &managerID,
			IsManagerApprover: true,
		}
		pol = &policyDatamodel.CompanyPolicy{
			FinanceApproval:  decimal.NewFromInt(5000),
			DirectorApproval: decimal.NewFromInt(10000),
		}
	})

	Context("amount between finance and director thresholds", func() {
		It("builds manager then finance approver, manager acts first", func() {
			chain, current, err := builder.Build(context.Background(), employee, decimal.NewFromInt(6000), pol)

			Expect(err).ToNot(HaveOccurred())
			Expect(chain).To(HaveLen(2))
			Expect(chain[0].ApproverID).To(Equal(int64(10)))
			Expect(chain[0].Order).To(Equal(1))
			Expect(chain[1].ApproverID).To(Equal(int64(20)))
			Expect(chain[1].Order).To(Equal(2))
			Expect(current).To(Equal(int64(10)))
		})
	})

	Context("amount above the director threshold", func() {
		It("appends the admin as a third step", func() {
			chain, _, err := builder.Build(context.Background(), employee, decimal.NewFromInt(12000), pol)

			Expect(err).ToNot(HaveOccurred())
			Expect(chain).To(HaveLen(3))
			Expect(chain[2].ApproverID).To(Equal(int64(30)))
			Expect(chain[2].ApproverRole).To(Equal(approval.RoleAdmin))
			Expect(chain[2].Order).To(Equal(3))
		})
	})

	Context("when the finance approver is the employee's manager", func() {
		It("does not add the same identity twice", func() {
			dir.finance = dir.manager

			chain, _, err := builder.Build(context.Background(), employee, decimal.NewFromInt(6000), pol)

			Expect(err).ToNot(HaveOccurred())
			Expect(chain).To(HaveLen(1))
			Expect(chain[0].ApproverID).To(Equal(int64(10)))
		})
	})

	Context("when no threshold fires and no manager step applies", func() {
		It("falls back to a single admin step", func() {
			employee.IsManagerApprover = false

			chain, current, err := builder.Build(context.Background(), employee, decimal.NewFromInt(100), pol)

			Expect(err).ToNot(HaveOccurred())
			Expect(chain).To(HaveLen(1))
			Expect(chain[0].ApproverID).To(Equal(int64(30)))
			Expect(current).To(Equal(int64(30)))
		})

		It("fails with a configuration error when no admin resolves", func() {
			employee.IsManagerApprover = false
			dir.admin = nil

			chain, _, err := builder.Build(context.Background(), employee, decimal.NewFromInt(100), pol)

			Expect(chain).To(BeNil())
			Expect(err).To(MatchError(internal.ErrNoApproverResolved))
		})
	})

	Context("when a directory lookup fails hard", func() {
		It("propagates the error instead of skipping the step", func() {
			dir.financeError = errors.New("directory unavailable")

			_, _, err := builder.Build(context.Background(), employee, decimal.NewFromInt(6000), pol)

			Expect(err).To(MatchError(ContainSubstring("directory unavailable")))
		})
	})

	It("is deterministic for identical inputs", func() {
		first, firstCurrent, err := builder.Build(context.Background(), employee, decimal.NewFromInt(6000), pol)
		Expect(err).ToNot(HaveOccurred())

		second, secondCurrent, err := builder.Build(context.Background(), employee, decimal.NewFromInt(6000), pol)
		Expect(err).ToNot(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(secondCurrent).To(Equal(firstCurrent))
	})
})
