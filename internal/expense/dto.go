package expense

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/shopspring/decimal"
)

// CreateExpenseDTO is the submission payload. Amount may be zero when a
// receipt reference is supplied; the OCR collaborator can then fill it.
type CreateExpenseDTO struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	ExpenseDate time.Time       `json:"expense_date"`
	ReceiptRef  *string         `json:"receipt_ref,omitempty"`
}

// Validate checks everything that must hold before OCR enrichment. The
// amount is allowed to stay unset only when a receipt is attached.
func (dto CreateExpenseDTO) Validate() error {
	if dto.Amount.IsNegative() {
		return internal.NewValidationFieldError("amount", "amount must not be negative", internal.ErrCodeInvalidAmount)
	}
	if dto.Amount.IsZero() && dto.ReceiptRef == nil {
		return internal.NewValidationFieldError("amount", "amount is required without a receipt", internal.ErrCodeInvalidAmount)
	}
	if len(dto.Currency) != 3 {
		return internal.NewValidationFieldError("currency", "currency must be a 3-letter code", internal.ErrCodeInvalidCurrency)
	}
	if !IsValidCategory(dto.Category) {
		return internal.NewValidationFieldError("category", "unknown expense category", internal.ErrCodeInvalidCategory)
	}
	if len(dto.Description) > 500 {
		return internal.NewValidationFieldError("description", "description must not exceed 500 characters", internal.ErrCodeValidationFailed)
	}
	if !dto.ExpenseDate.IsZero() && dto.ExpenseDate.After(time.Now()) {
		return internal.NewValidationFieldError("expense_date", "expense date cannot be in the future", internal.ErrCodeInvalidDate)
	}
	return nil
}

// UpdateExpenseDTO updates a still-pending expense. Nil fields are left
// unchanged.
type UpdateExpenseDTO struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Description *string          `json:"description,omitempty"`
	ExpenseDate *time.Time       `json:"expense_date,omitempty"`
}

func (dto UpdateExpenseDTO) Validate() error {
	if dto.Amount != nil && !dto.Amount.IsPositive() {
		return internal.NewValidationFieldError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)
	}
	if dto.Currency != nil && len(*dto.Currency) != 3 {
		return internal.NewValidationFieldError("currency", "currency must be a 3-letter code", internal.ErrCodeInvalidCurrency)
	}
	if dto.Category != nil && !IsValidCategory(*dto.Category) {
		return internal.NewValidationFieldError("category", "unknown expense category", internal.ErrCodeInvalidCategory)
	}
	if dto.Description != nil && len(*dto.Description) > 500 {
		return internal.NewValidationFieldError("description", "description must not exceed 500 characters", internal.ErrCodeValidationFailed)
	}
	if dto.ExpenseDate != nil && dto.ExpenseDate.After(time.Now()) {
		return internal.NewValidationFieldError("expense_date", "expense date cannot be in the future", internal.ErrCodeInvalidDate)
	}
	return nil
}

// ApproveExpenseDTO carries optional approver comments.
type ApproveExpenseDTO struct {
	Comments string `json:"comments,omitempty"`
}

// RejectExpenseDTO carries the mandatory rejection comments.
type RejectExpenseDTO struct {
	Comments string `json:"comments"`
}

func (dto RejectExpenseDTO) Validate() error {
	if dto.Comments == "" {
		return internal.ErrCommentsRequired
	}
	return nil
}

// ReceiptData is what the extraction collaborator returns; all fields
// are best effort.
type ReceiptData struct {
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Date       *time.Time       `json:"date,omitempty"`
	Merchant   *string          `json:"merchant,omitempty"`
	Confidence float64          `json:"confidence"`
}
