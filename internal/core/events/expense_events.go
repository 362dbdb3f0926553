package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseSubmitted = "expense.submitted"
	EventTypeExpenseApproved  = "expense.approved"
	EventTypeExpenseRejected  = "expense.rejected"
)

type ExpenseSubmittedEvent struct {
	BaseEvent
	ExpenseID       int64  `json:"expense_id"`
	UserID          int64  `json:"user_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	FirstApproverID int64  `json:"first_approver_id"`
}

func NewExpenseSubmittedEvent(expenseID, userID int64, amount, currency string, firstApproverID int64) *ExpenseSubmittedEvent {
	return &ExpenseSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseSubmitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":        expenseID,
				"user_id":           userID,
				"amount":            amount,
				"currency":          currency,
				"first_approver_id": firstApproverID,
			},
		},
		ExpenseID:       expenseID,
		UserID:          userID,
		Amount:          amount,
		Currency:        currency,
		FirstApproverID: firstApproverID,
	}
}

type ExpenseApprovedEvent struct {
	BaseEvent
	ExpenseID  int64  `json:"expense_id"`
	UserID     int64  `json:"user_id"`
	ApproverID int64  `json:"approver_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

func NewExpenseApprovedEvent(expenseID, userID, approverID int64, amount, currency string) *ExpenseApprovedEvent {
	return &ExpenseApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":  expenseID,
				"user_id":     userID,
				"approver_id": approverID,
				"amount":      amount,
				"currency":    currency,
			},
		},
		ExpenseID:  expenseID,
		UserID:     userID,
		ApproverID: approverID,
		Amount:     amount,
		Currency:   currency,
	}
}

type ExpenseRejectedEvent struct {
	BaseEvent
	ExpenseID  int64  `json:"expense_id"`
	UserID     int64  `json:"user_id"`
	ApproverID int64  `json:"approver_id"`
	Comments   string `json:"comments"`
}

func NewExpenseRejectedEvent(expenseID, userID, approverID int64, comments string) *ExpenseRejectedEvent {
	return &ExpenseRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":  expenseID,
				"user_id":     userID,
				"approver_id": approverID,
				"comments":    comments,
			},
		},
		ExpenseID:  expenseID,
		UserID:     userID,
		ApproverID: approverID,
		Comments:   comments,
	}
}
