package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExpenseRepository implements expense.Repository using GORM. All writes
// against one aggregate happen in a single transaction guarded by the
// version column, so a concurrent writer makes the slower one fail with
// a conflict instead of silently overwriting.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *expense.Expense) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := expense.ToDataModel(exp)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		exp.ID = row.ID

		steps := expense.StepsToDataModel(row.ID, exp.ApprovalFlow)
		if len(steps) > 0 {
			if err := tx.Create(steps).Error; err != nil {
				return err
			}
		}

		history := expense.HistoryToDataModel(row.ID, exp.ApprovalHistory)
		if len(history) > 0 {
			if err := tx.Create(history).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}

	var steps []*expenseDatamodel.ApprovalStep
	if err := r.db.WithContext(ctx).
		Where("expense_id = ?", id).
		Order("step_order ASC").
		Find(&steps).Error; err != nil {
		return nil, err
	}

	var history []*expenseDatamodel.ApprovalHistory
	if err := r.db.WithContext(ctx).
		Where("expense_id = ?", id).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		return nil, err
	}

	return expense.FromDataModel(&row, steps, history), nil
}

// Update persists the aggregate under its loaded version. The version
// the caller read must still be current; otherwise nothing is written
// and ErrVersionConflict surfaces.
func (r *ExpenseRepository) Update(ctx context.Context, exp *expense.Expense) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := expense.ToDataModel(exp)
		res := tx.Model(&expenseDatamodel.Expense{}).
			Where("id = ? AND version = ?", exp.ID, exp.Version).
			Updates(map[string]interface{}{
				"amount":              row.Amount,
				"original_currency":   row.OriginalCurrency,
				"converted_amount":    row.ConvertedAmount,
				"category":            row.Category,
				"description":         row.Description,
				"status":              row.Status,
				"current_approver_id": row.CurrentApproverID,
				"expense_date":        row.ExpenseDate,
				"processed_at":        row.ProcessedAt,
				"version":             exp.Version + 1,
				"updated_at":          time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrVersionConflict
		}

		for _, step := range expense.StepsToDataModel(exp.ID, exp.ApprovalFlow) {
			res := tx.Model(&expenseDatamodel.ApprovalStep{}).
				Where("expense_id = ? AND step_order = ?", exp.ID, step.StepOrder).
				Updates(map[string]interface{}{
					"status":     step.Status,
					"comments":   step.Comments,
					"acted_at":   step.ActedAt,
					"updated_at": time.Now(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				if err := tx.Create(step).Error; err != nil {
					return err
				}
			}
		}

		// History is append-only: existing rows are never touched.
		for _, entry := range expense.HistoryToDataModel(exp.ID, exp.ApprovalHistory) {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	exp.Version++
	return nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, id, version int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND version = ?", id, version).
			Delete(&expenseDatamodel.Expense{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&expenseDatamodel.Expense{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return internal.ErrExpenseNotFound
			}
			return internal.ErrVersionConflict
		}

		if err := tx.Where("expense_id = ?", id).Delete(&expenseDatamodel.ApprovalStep{}).Error; err != nil {
			return err
		}
		return tx.Where("expense_id = ?", id).Delete(&expenseDatamodel.ApprovalHistory{}).Error
	})
}

func (r *ExpenseRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*expense.Expense, error) {
	var rows []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

// ListPendingForApprover returns expenses waiting on the approver,
// oldest submission first so approvals are worked FIFO.
func (r *ExpenseRepository) ListPendingForApprover(ctx context.Context, approverID int64) ([]*expense.Expense, error) {
	var rows []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("status = ? AND current_approver_id = ?", "pending", approverID).
		Order("submitted_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *ExpenseRepository) ListActionedByApprover(ctx context.Context, approverID int64) ([]*expense.Expense, error) {
	var rows []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Distinct("expenses.*").
		Joins("JOIN approval_history ON approval_history.expense_id = expenses.id").
		Where("approval_history.approver_id = ?", approverID).
		Order("expenses.updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func fromRows(rows []*expenseDatamodel.Expense) []*expense.Expense {
	result := make([]*expense.Expense, len(rows))
	for i, row := range rows {
		result[i] = expense.FromDataModel(row, nil, nil)
	}
	return result
}
