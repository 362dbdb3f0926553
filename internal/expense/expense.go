package expense

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

// Expense is the aggregate root. It owns its approval flow and history
// exclusively; steps are never shared between expenses. Once the status
// leaves pending the aggregate is immutable.
type Expense struct {
	ID                int64                   `json:"id"`
	CompanyID         int64                   `json:"company_id"`
	UserID            int64                   `json:"user_id"`
	Amount            decimal.Decimal         `json:"amount"`
	OriginalCurrency  string                  `json:"original_currency"`
	ConvertedAmount   decimal.Decimal         `json:"converted_amount"`
	CompanyCurrency   string                  `json:"company_currency"`
	Category          string                  `json:"category"`
	Description       string                  `json:"description"`
	ReceiptRef        *string                 `json:"receipt_ref,omitempty"`
	Status            approval.Status         `json:"status"`
	CurrentApproverID *int64                  `json:"current_approver_id,omitempty"`
	Version           int64                   `json:"version"`
	ExpenseDate       time.Time               `json:"expense_date"`
	SubmittedAt       time.Time               `json:"submitted_at"`
	ProcessedAt       *time.Time              `json:"processed_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	ApprovalFlow      []approval.Step         `json:"approval_flow"`
	ApprovalHistory   []approval.HistoryEntry `json:"approval_history"`
}

// Categories form a fixed set; submissions outside it are rejected.
const (
	CategoryTravel         = "travel"
	CategoryMeals          = "meals"
	CategoryAccommodation  = "accommodation"
	CategoryOfficeSupplies = "office_supplies"
	CategorySoftware       = "software"
	CategoryTraining       = "training"
	CategoryOther          = "other"
)

var validCategories = map[string]struct{}{
	CategoryTravel:         {},
	CategoryMeals:          {},
	CategoryAccommodation:  {},
	CategoryOfficeSupplies: {},
	CategorySoftware:       {},
	CategoryTraining:       {},
	CategoryOther:          {},
}

func IsValidCategory(category string) bool {
	_, ok := validCategories[category]
	return ok
}

func Categories() []string {
	return []string{
		CategoryTravel,
		CategoryMeals,
		CategoryAccommodation,
		CategoryOfficeSupplies,
		CategorySoftware,
		CategoryTraining,
		CategoryOther,
	}
}

func (e *Expense) IsPending() bool {
	return e.Status == approval.StatusPending
}

func (e *Expense) CanBeModifiedBy(userID int64) bool {
	return e.UserID == userID && e.IsPending()
}

// Workflow snapshots the approval state for the state machine. The
// machine mutates the snapshot; ApplyWorkflow copies the outcome back.
func (e *Expense) Workflow() *approval.Workflow {
	wf := &approval.Workflow{
		Status:            e.Status,
		CurrentApproverID: e.CurrentApproverID,
		Steps:             append([]approval.Step(nil), e.ApprovalFlow...),
		History:           append([]approval.HistoryEntry(nil), e.ApprovalHistory...),
	}
	return wf
}

func (e *Expense) ApplyWorkflow(wf *approval.Workflow) {
	e.Status = wf.Status
	e.CurrentApproverID = wf.CurrentApproverID
	e.ApprovalFlow = wf.Steps
	e.ApprovalHistory = wf.History
	now := time.Now()
	e.UpdatedAt = now
	if e.Status != approval.StatusPending && e.ProcessedAt == nil {
		e.ProcessedAt = &now
	}
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:                e.ID,
		CompanyID:         e.CompanyID,
		UserID:            e.UserID,
		Amount:            e.Amount,
		OriginalCurrency:  e.OriginalCurrency,
		ConvertedAmount:   e.ConvertedAmount,
		CompanyCurrency:   e.CompanyCurrency,
		Category:          e.Category,
		Description:       e.Description,
		ReceiptRef:        e.ReceiptRef,
		Status:            string(e.Status),
		CurrentApproverID: e.CurrentApproverID,
		Version:           e.Version,
		ExpenseDate:       e.ExpenseDate,
		SubmittedAt:       e.SubmittedAt,
		ProcessedAt:       e.ProcessedAt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func FromDataModel(m *expenseDatamodel.Expense, steps []*expenseDatamodel.ApprovalStep, history []*expenseDatamodel.ApprovalHistory) *Expense {
	e := &Expense{
		ID:                m.ID,
		CompanyID:         m.CompanyID,
		UserID:            m.UserID,
		Amount:            m.Amount,
		OriginalCurrency:  m.OriginalCurrency,
		ConvertedAmount:   m.ConvertedAmount,
		CompanyCurrency:   m.CompanyCurrency,
		Category:          m.Category,
		Description:       m.Description,
		ReceiptRef:        m.ReceiptRef,
		Status:            approval.Status(m.Status),
		CurrentApproverID: m.CurrentApproverID,
		Version:           m.Version,
		ExpenseDate:       m.ExpenseDate,
		SubmittedAt:       m.SubmittedAt,
		ProcessedAt:       m.ProcessedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for _, s := range steps {
		e.ApprovalFlow = append(e.ApprovalFlow, approval.Step{
			ApproverID:    s.ApproverID,
			ApproverEmail: s.ApproverEmail,
			ApproverRole:  approval.Role(s.ApproverRole),
			Order:         s.StepOrder,
			Status:        approval.StepStatus(s.Status),
			Comments:      s.Comments,
			ActedAt:       s.ActedAt,
		})
	}
	for _, h := range history {
		e.ApprovalHistory = append(e.ApprovalHistory, approval.HistoryEntry{
			ID:            h.ID,
			ApproverID:    h.ApproverID,
			ApproverEmail: h.ApproverEmail,
			Action:        approval.Action(h.Action),
			Comments:      h.Comments,
			CreatedAt:     h.CreatedAt,
		})
	}
	return e
}

func StepsToDataModel(expenseID int64, steps []approval.Step) []*expenseDatamodel.ApprovalStep {
	result := make([]*expenseDatamodel.ApprovalStep, len(steps))
	for i, s := range steps {
		result[i] = &expenseDatamodel.ApprovalStep{
			ExpenseID:     expenseID,
			ApproverID:    s.ApproverID,
			ApproverEmail: s.ApproverEmail,
			ApproverRole:  string(s.ApproverRole),
			StepOrder:     s.Order,
			Status:        string(s.Status),
			Comments:      s.Comments,
			ActedAt:       s.ActedAt,
		}
	}
	return result
}

func HistoryToDataModel(expenseID int64, history []approval.HistoryEntry) []*expenseDatamodel.ApprovalHistory {
	result := make([]*expenseDatamodel.ApprovalHistory, len(history))
	for i, h := range history {
		result[i] = &expenseDatamodel.ApprovalHistory{
			ID:            h.ID,
			ExpenseID:     expenseID,
			ApproverID:    h.ApproverID,
			ApproverEmail: h.ApproverEmail,
			Action:        string(h.Action),
			Comments:      h.Comments,
			CreatedAt:     h.CreatedAt,
		}
	}
	return result
}
