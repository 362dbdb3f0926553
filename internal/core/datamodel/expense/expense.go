package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is the persisted aggregate root. Version backs the optimistic
// concurrency check: every mutating write asserts the version it read.
type Expense struct {
	ID                int64           `gorm:"primaryKey"`
	CompanyID         int64           `gorm:"column:company_id;not null;index"`
	UserID            int64           `gorm:"column:user_id;not null;index"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	OriginalCurrency  string          `gorm:"column:original_currency;type:varchar(3);not null"`
	ConvertedAmount   decimal.Decimal `gorm:"column:converted_amount;type:numeric(18,2);not null"`
	CompanyCurrency   string          `gorm:"column:company_currency;type:varchar(3);not null"`
	Category          string          `gorm:"column:category;not null"`
	Description       string          `gorm:"column:description"`
	ReceiptRef        *string         `gorm:"column:receipt_ref"`
	Status            string          `gorm:"column:status;default:pending;index"`
	CurrentApproverID *int64          `gorm:"column:current_approver_id;index"`
	Version           int64           `gorm:"column:version;not null;default:1"`
	ExpenseDate       time.Time       `gorm:"column:expense_date;type:date"`
	SubmittedAt       time.Time       `gorm:"column:submitted_at"`
	ProcessedAt       *time.Time      `gorm:"column:processed_at"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

// ApprovalStep is one slot in an expense's approval chain. StepOrder values
// are unique positive integers, strictly increasing in construction order.
type ApprovalStep struct {
	ID            int64      `gorm:"primaryKey"`
	ExpenseID     int64      `gorm:"column:expense_id;not null;index"`
	ApproverID    int64      `gorm:"column:approver_id;not null;index"`
	ApproverEmail string     `gorm:"column:approver_email"`
	ApproverRole  string     `gorm:"column:approver_role;not null"`
	StepOrder     int        `gorm:"column:step_order;not null"`
	Status        string     `gorm:"column:status;default:pending"`
	Comments      string     `gorm:"column:comments"`
	ActedAt       *time.Time `gorm:"column:acted_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (ApprovalStep) TableName() string {
	return "approval_steps"
}

// ApprovalHistory is the append-only action log. Rows are never updated or
// deleted once written.
type ApprovalHistory struct {
	ID            string    `gorm:"primaryKey;type:uuid"`
	ExpenseID     int64     `gorm:"column:expense_id;not null;index"`
	ApproverID    int64     `gorm:"column:approver_id;not null;index"`
	ApproverEmail string    `gorm:"column:approver_email"`
	Action        string    `gorm:"column:action;not null"`
	Comments      string    `gorm:"column:comments"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (ApprovalHistory) TableName() string {
	return "approval_history"
}
