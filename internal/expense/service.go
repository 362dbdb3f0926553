package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	policyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/policy"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/shopspring/decimal"
)

// CurrencyConverter converts a submitted amount into company currency.
// Rate unavailability is fatal to the operation; no guessed rate is ever
// substituted.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// ReceiptExtractor reads structured data out of an uploaded receipt.
// Best effort: failures must not abort expense creation.
type ReceiptExtractor interface {
	Extract(ctx context.Context, receiptRef string) (*ReceiptData, error)
}

// PolicyStore provides the per-company approval configuration.
type PolicyStore interface {
	Get(ctx context.Context, companyID int64) (*policyDatamodel.CompanyPolicy, error)
}

// Directory resolves users and approver candidates.
type Directory interface {
	approval.Directory
	GetUser(ctx context.Context, userID int64) (*approval.UserRef, error)
}

// EventPublisher decouples the service from the bus implementation.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Repository is the data access contract for the expense aggregate.
// Every write is all-or-nothing: the expense row, its steps and its
// history move in one transaction, guarded by the aggregate version.
type Repository interface {
	Create(ctx context.Context, exp *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	Update(ctx context.Context, exp *Expense) error
	Delete(ctx context.Context, id, version int64) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*Expense, error)
	ListPendingForApprover(ctx context.Context, approverID int64) ([]*Expense, error)
	ListActionedByApprover(ctx context.Context, approverID int64) ([]*Expense, error)
}

// Service orchestrates the expense lifecycle: creation with chain
// construction, approver actions through the state machine, and
// edit/delete eligibility. All external inputs are resolved before any
// state transition begins.
type Service struct {
	repo          Repository
	converter     CurrencyConverter
	extractor     ReceiptExtractor
	policies      PolicyStore
	directory     Directory
	chain         *approval.ChainBuilder
	machine       *approval.StateMachine
	bus           EventPublisher
	minConfidence float64
	logger        *slog.Logger
}

func NewService(repo Repository, converter CurrencyConverter, extractor ReceiptExtractor, policies PolicyStore, directory Directory, bus EventPublisher, minConfidence float64, logger *slog.Logger) *Service {
	engine := approval.NewRuleEngine(logger)
	return &Service{
		repo:          repo,
		converter:     converter,
		extractor:     extractor,
		policies:      policies,
		directory:     directory,
		chain:         approval.NewChainBuilder(directory, logger),
		machine:       approval.NewStateMachine(engine, logger),
		bus:           bus,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// CreateExpense validates the submission, enriches it with best-effort
// receipt data, converts the amount into company currency, builds the
// approval chain and persists the aggregate at status pending.
func (s *Service) CreateExpense(ctx context.Context, userID int64, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	submitter, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		s.logger.Error("submitter lookup failed", "error", err, "user_id", userID)
		return nil, err
	}

	pol, err := s.policies.Get(ctx, submitter.CompanyID)
	if err != nil {
		s.logger.Error("policy lookup failed", "error", err, "company_id", submitter.CompanyID)
		return nil, err
	}

	if dto.ReceiptRef != nil {
		dto = s.mergeReceiptData(ctx, dto)
	}
	if !dto.Amount.IsPositive() {
		return nil, internal.NewValidationFieldError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)
	}
	if dto.ExpenseDate.IsZero() {
		return nil, internal.NewValidationFieldError("expense_date", "expense date is required", internal.ErrCodeInvalidDate)
	}

	converted, err := s.converter.Convert(ctx, dto.Amount, dto.Currency, pol.CompanyCurrency)
	if err != nil {
		s.logger.Error("currency conversion failed", "error", err,
			"from", dto.Currency, "to", pol.CompanyCurrency)
		return nil, err
	}

	steps, firstApprover, err := s.chain.Build(ctx, *submitter, converted, pol)
	if err != nil {
		s.logger.Error("approval chain build failed", "error", err, "user_id", userID)
		return nil, err
	}

	now := time.Now()
	exp := &Expense{
		CompanyID:         submitter.CompanyID,
		UserID:            userID,
		Amount:            dto.Amount,
		OriginalCurrency:  dto.Currency,
		ConvertedAmount:   converted,
		CompanyCurrency:   pol.CompanyCurrency,
		Category:          dto.Category,
		Description:       dto.Description,
		ReceiptRef:        dto.ReceiptRef,
		Status:            approval.StatusPending,
		CurrentApproverID: &firstApprover,
		Version:           1,
		ExpenseDate:       dto.ExpenseDate,
		SubmittedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
		ApprovalFlow:      steps,
	}

	if err := s.repo.Create(ctx, exp); err != nil {
		s.logger.Error("failed to persist expense", "error", err, "user_id", userID)
		return nil, err
	}

	s.publish(ctx, events.NewExpenseSubmittedEvent(exp.ID, userID, exp.ConvertedAmount.String(), exp.CompanyCurrency, firstApprover))

	s.logger.Info("expense created",
		"expense_id", exp.ID,
		"user_id", userID,
		"converted_amount", converted.String(),
		"chain_length", len(steps),
		"current_approver_id", firstApprover)

	return exp, nil
}

// mergeReceiptData fills fields the submitter left unset from OCR
// output. Submitted values are never overwritten, and extraction
// failure or low confidence just leaves the DTO alone.
func (s *Service) mergeReceiptData(ctx context.Context, dto CreateExpenseDTO) CreateExpenseDTO {
	data, err := s.extractor.Extract(ctx, *dto.ReceiptRef)
	if err != nil {
		s.logger.Warn("receipt extraction failed, continuing without OCR data",
			"error", err, "receipt_ref", *dto.ReceiptRef)
		return dto
	}
	if data.Confidence < s.minConfidence {
		s.logger.Info("receipt extraction below confidence threshold, discarded",
			"confidence", data.Confidence, "min_confidence", s.minConfidence)
		return dto
	}

	if dto.Amount.IsZero() && data.Amount != nil {
		dto.Amount = *data.Amount
	}
	if dto.ExpenseDate.IsZero() && data.Date != nil {
		dto.ExpenseDate = *data.Date
	}
	if dto.Description == "" && data.Merchant != nil {
		dto.Description = *data.Merchant
	}
	return dto
}

// ApproveExpense runs one approval action through the state machine and
// persists the outcome under the aggregate's version. A concurrent
// write surfaces as a conflict error and is never retried here.
func (s *Service) ApproveExpense(ctx context.Context, expenseID, approverID int64, comments string) (*Expense, error) {
	return s.action(ctx, expenseID, approverID, comments, s.machine.Approve)
}

// RejectExpense runs one rejection through the state machine. A single
// rejection vetoes the whole expense regardless of configured rules.
func (s *Service) RejectExpense(ctx context.Context, expenseID, approverID int64, comments string) (*Expense, error) {
	return s.action(ctx, expenseID, approverID, comments, s.machine.Reject)
}

type transition func(wf *approval.Workflow, actor approval.UserRef, comments string, pol *policyDatamodel.CompanyPolicy) error

func (s *Service) action(ctx context.Context, expenseID, approverID int64, comments string, apply transition) (*Expense, error) {
	exp, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	actor, err := s.directory.GetUser(ctx, approverID)
	if err != nil {
		return nil, err
	}

	pol, err := s.policies.Get(ctx, exp.CompanyID)
	if err != nil {
		return nil, err
	}

	wf := exp.Workflow()
	if err := apply(wf, *actor, comments, pol); err != nil {
		s.logger.Warn("approval action refused",
			"error", err, "expense_id", expenseID, "approver_id", approverID)
		return nil, err
	}
	exp.ApplyWorkflow(wf)

	if err := s.repo.Update(ctx, exp); err != nil {
		s.logger.Error("failed to persist approval action",
			"error", err, "expense_id", expenseID, "approver_id", approverID)
		return nil, err
	}

	switch exp.Status {
	case approval.StatusApproved:
		s.publish(ctx, events.NewExpenseApprovedEvent(exp.ID, exp.UserID, approverID, exp.ConvertedAmount.String(), exp.CompanyCurrency))
	case approval.StatusRejected:
		s.publish(ctx, events.NewExpenseRejectedEvent(exp.ID, exp.UserID, approverID, comments))
	}

	s.logger.Info("approval action applied",
		"expense_id", expenseID,
		"approver_id", approverID,
		"status", exp.Status)

	return exp, nil
}

// UpdateExpense modifies a still-pending expense. Only the submitter may
// update; an amount or currency change re-invokes conversion. The
// approval chain is never rebuilt: one chain revision per expense.
func (s *Service) UpdateExpense(ctx context.Context, expenseID, userID int64, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp.UserID != userID {
		return nil, internal.ErrUnauthorizedAccess
	}
	if !exp.IsPending() {
		return nil, internal.ErrExpenseNotPending
	}

	if dto.Category != nil {
		exp.Category = *dto.Category
	}
	if dto.Description != nil {
		exp.Description = *dto.Description
	}
	if dto.ExpenseDate != nil {
		exp.ExpenseDate = *dto.ExpenseDate
	}

	amountChanged := dto.Amount != nil && !dto.Amount.Equal(exp.Amount)
	currencyChanged := dto.Currency != nil && *dto.Currency != exp.OriginalCurrency
	if dto.Amount != nil {
		exp.Amount = *dto.Amount
	}
	if dto.Currency != nil {
		exp.OriginalCurrency = *dto.Currency
	}
	if amountChanged || currencyChanged {
		converted, err := s.converter.Convert(ctx, exp.Amount, exp.OriginalCurrency, exp.CompanyCurrency)
		if err != nil {
			s.logger.Error("currency conversion failed on update", "error", err, "expense_id", expenseID)
			return nil, err
		}
		exp.ConvertedAmount = converted
	}

	exp.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, exp); err != nil {
		return nil, err
	}

	s.logger.Info("expense updated", "expense_id", expenseID, "user_id", userID)
	return exp, nil
}

// DeleteExpense removes a still-pending expense owned by the caller.
func (s *Service) DeleteExpense(ctx context.Context, expenseID, userID int64) error {
	exp, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		return err
	}
	if exp.UserID != userID {
		return internal.ErrUnauthorizedAccess
	}
	if !exp.IsPending() {
		return internal.ErrExpenseNotPending
	}

	if err := s.repo.Delete(ctx, expenseID, exp.Version); err != nil {
		return err
	}

	s.logger.Info("expense deleted", "expense_id", expenseID, "user_id", userID)
	return nil
}

// GetExpense returns one expense, visible to its submitter and to any
// manager or admin.
func (s *Service) GetExpense(ctx context.Context, expenseID, userID int64) (*Expense, error) {
	exp, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp.UserID == userID {
		return exp, nil
	}

	caller, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if caller.Role == approval.RoleEmployee {
		s.logger.Warn("unauthorized expense access", "expense_id", expenseID, "user_id", userID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return exp, nil
}

// ListUserExpenses returns the caller's own submissions.
func (s *Service) ListUserExpenses(ctx context.Context, userID int64, limit, offset int) ([]*Expense, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// ListPendingApprovals returns expenses currently waiting on the given
// approver, oldest submission first.
func (s *Service) ListPendingApprovals(ctx context.Context, approverID int64) ([]*Expense, error) {
	return s.repo.ListPendingForApprover(ctx, approverID)
}

// ListApprovalHistory returns expenses the given approver has acted on.
func (s *Service) ListApprovalHistory(ctx context.Context, approverID int64) ([]*Expense, error) {
	return s.repo.ListActionedByApprover(ctx, approverID)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Error("event publish failed", "error", err, "event_type", event.EventType())
	}
}
