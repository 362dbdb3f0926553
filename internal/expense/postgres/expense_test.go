package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestExpenseRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ExpenseRepository Suite")
}

var _ = Describe("ExpenseRepository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo expense.Repository
	)

	approverID := int64(10)

	newExpense := func(userID int64) *expense.Expense {
		now := time.Now()
		return &expense.Expense{
			CompanyID:         1,
			UserID:            userID,
			Amount:            decimal.NewFromInt(120),
			OriginalCurrency:  "USD",
			ConvertedAmount:   decimal.NewFromInt(120),
			CompanyCurrency:   "USD",
			Category:          expense.CategoryMeals,
			Description:       "team lunch",
			Status:            approval.StatusPending,
			CurrentApproverID: &approverID,
			Version:           1,
			ExpenseDate:       now.AddDate(0, 0, -1),
			SubmittedAt:       now,
			CreatedAt:         now,
			UpdatedAt:         now,
			ApprovalFlow: []approval.Step{
				{ApproverID: approverID, ApproverEmail: "mark@mail.com", ApproverRole: approval.RoleManager, Order: 1, Status: approval.StepPending},
			},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&expenseDatamodel.Expense{},
			&expenseDatamodel.ApprovalStep{},
			&expenseDatamodel.ApprovalHistory{},
		)
		Expect(err).NotTo(HaveOccurred())

		repo = NewExpenseRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("Create", func() {
		It("persists the expense with its approval steps", func() {
			exp := newExpense(1)

			err := repo.Create(ctx, exp)
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.ID).To(BeNumerically(">", 0))

			found, err := repo.GetByID(ctx, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Amount.Equal(exp.Amount)).To(BeTrue())
			Expect(found.Status).To(Equal(approval.StatusPending))
			Expect(found.ApprovalFlow).To(HaveLen(1))
			Expect(found.ApprovalFlow[0].ApproverID).To(Equal(approverID))
			Expect(*found.CurrentApproverID).To(Equal(approverID))
		})
	})

	Describe("GetByID", func() {
		It("returns not found for an unknown id", func() {
			_, err := repo.GetByID(ctx, 9999)
			Expect(err).To(MatchError(internal.ErrExpenseNotFound))
		})
	})

	Describe("Update", func() {
		var exp *expense.Expense

		BeforeEach(func() {
			exp = newExpense(1)
			Expect(repo.Create(ctx, exp)).To(Succeed())
		})

		It("persists an approval action and bumps the version", func() {
			now := time.Now()
			exp.Status = approval.StatusApproved
			exp.CurrentApproverID = nil
			exp.ProcessedAt = &now
			exp.ApprovalFlow[0].Status = approval.StepApproved
			exp.ApprovalFlow[0].ActedAt = &now
			exp.ApprovalHistory = []approval.HistoryEntry{
				{ID: uuid.NewString(), ApproverID: approverID, ApproverEmail: "mark@mail.com", Action: approval.ActionApproved, CreatedAt: now},
			}

			err := repo.Update(ctx, exp)
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.Version).To(Equal(int64(2)))

			found, err := repo.GetByID(ctx, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Status).To(Equal(approval.StatusApproved))
			Expect(found.Version).To(Equal(int64(2)))
			Expect(found.CurrentApproverID).To(BeNil())
			Expect(found.ApprovalFlow[0].Status).To(Equal(approval.StepApproved))
			Expect(found.ApprovalHistory).To(HaveLen(1))
		})

		It("rejects a write under a stale version", func() {
			stale := *exp
			stale.ApprovalFlow = append([]approval.Step(nil), exp.ApprovalFlow...)

			exp.Description = "first writer wins"
			Expect(repo.Update(ctx, exp)).To(Succeed())

			stale.Description = "second writer loses"
			err := repo.Update(ctx, &stale)
			Expect(err).To(MatchError(internal.ErrVersionConflict))

			found, err := repo.GetByID(ctx, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Description).To(Equal("first writer wins"))
		})

		It("never rewrites existing history entries", func() {
			now := time.Now()
			entry := approval.HistoryEntry{
				ID: uuid.NewString(), ApproverID: approverID, Action: approval.ActionApproved, Comments: "ok", CreatedAt: now,
			}
			exp.ApprovalHistory = []approval.HistoryEntry{entry}
			Expect(repo.Update(ctx, exp)).To(Succeed())

			entry.Comments = "tampered"
			exp.ApprovalHistory = []approval.HistoryEntry{entry}
			Expect(repo.Update(ctx, exp)).To(Succeed())

			found, err := repo.GetByID(ctx, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ApprovalHistory).To(HaveLen(1))
			Expect(found.ApprovalHistory[0].Comments).To(Equal("ok"))
		})
	})

	Describe("Delete", func() {
		var exp *expense.Expense

		BeforeEach(func() {
			exp = newExpense(1)
			Expect(repo.Create(ctx, exp)).To(Succeed())
		})

		It("deletes the aggregate under the current version", func() {
			err := repo.Delete(ctx, exp.ID, exp.Version)
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.GetByID(ctx, exp.ID)
			Expect(err).To(MatchError(internal.ErrExpenseNotFound))

			var steps int64
			Expect(db.Model(&expenseDatamodel.ApprovalStep{}).Where("expense_id = ?", exp.ID).Count(&steps).Error).To(Succeed())
			Expect(steps).To(BeZero())
		})

		It("rejects deletion under a stale version", func() {
			err := repo.Delete(ctx, exp.ID, exp.Version+1)
			Expect(err).To(MatchError(internal.ErrVersionConflict))
		})

		It("returns not found for an unknown id", func() {
			err := repo.Delete(ctx, 9999, 1)
			Expect(err).To(MatchError(internal.ErrExpenseNotFound))
		})
	})

	Describe("ListByUser", func() {
		It("pages the caller's submissions, newest first", func() {
			for i := 0; i < 3; i++ {
				exp := newExpense(7)
				exp.SubmittedAt = time.Now().Add(time.Duration(i) * time.Minute)
				Expect(repo.Create(ctx, exp)).To(Succeed())
			}
			other := newExpense(8)
			Expect(repo.Create(ctx, other)).To(Succeed())

			page, err := repo.ListByUser(ctx, 7, 2, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(HaveLen(2))
			Expect(page[0].SubmittedAt.After(page[1].SubmittedAt)).To(BeTrue())

			rest, err := repo.ListByUser(ctx, 7, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(rest).To(HaveLen(1))
		})
	})

	Describe("ListPendingForApprover", func() {
		It("returns only pending expenses waiting on the approver, oldest first", func() {
			first := newExpense(1)
			first.SubmittedAt = time.Now().Add(-2 * time.Hour)
			Expect(repo.Create(ctx, first)).To(Succeed())

			second := newExpense(2)
			second.SubmittedAt = time.Now().Add(-1 * time.Hour)
			Expect(repo.Create(ctx, second)).To(Succeed())

			decided := newExpense(3)
			decided.Status = approval.StatusApproved
			decided.CurrentApproverID = nil
			Expect(repo.Create(ctx, decided)).To(Succeed())

			pending, err := repo.ListPendingForApprover(ctx, approverID)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(2))
			Expect(pending[0].ID).To(Equal(first.ID))
			Expect(pending[1].ID).To(Equal(second.ID))
		})
	})

	Describe("ListActionedByApprover", func() {
		It("returns expenses the approver has acted on, once each", func() {
			exp := newExpense(1)
			Expect(repo.Create(ctx, exp)).To(Succeed())

			exp.ApprovalHistory = []approval.HistoryEntry{
				{ID: uuid.NewString(), ApproverID: approverID, Action: approval.ActionApproved, CreatedAt: time.Now()},
				{ID: uuid.NewString(), ApproverID: approverID, Action: approval.ActionApproved, CreatedAt: time.Now().Add(time.Second)},
			}
			Expect(repo.Update(ctx, exp)).To(Succeed())

			untouched := newExpense(2)
			Expect(repo.Create(ctx, untouched)).To(Succeed())

			actioned, err := repo.ListActionedByApprover(ctx, approverID)
			Expect(err).NotTo(HaveOccurred())
			Expect(actioned).To(HaveLen(1))
			Expect(actioned[0].ID).To(Equal(exp.ID))
		})
	})
})
