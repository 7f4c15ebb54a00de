package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/store"
)

var (
	ErrNotFound    = errors.New("reminder not found")
	ErrAlreadyPaid = errors.New("reminder is already paid")
	// ErrConflict means the reminder changed between read and payment.
	ErrConflict = errors.New("reminder was modified concurrently")
)

const (
	MessagePaid         = "Bill marked as paid."
	MessagePaidAdvanced = "Bill marked as paid. Next due date set."

	paymentCategory = "Bills"
)

// Clock returns the current calendar date.
type Clock func() model.Date

// ClockIn returns a Clock reading the wall clock in loc.
func ClockIn(loc *time.Location) Clock {
	return func() model.Date { return model.Today(loc) }
}

// Store is the persistence the lifecycle engine needs.
type Store interface {
	GetByID(ctx context.Context, userID, id int64) (*model.BillReminder, error)
	ApplyPayment(ctx context.Context, prev, next model.BillReminder, expense model.Transaction) (*model.BillReminder, int64, error)
}

type Service struct {
	store  Store
	today  Clock
	logger *slog.Logger
}

func NewService(s Store, today Clock, logger *slog.Logger) *Service {
	return &Service{store: s, today: today, logger: logger}
}

// Today returns the service's current date.
func (s *Service) Today() model.Date {
	return s.today()
}

type Result struct {
	Reminder model.BillReminder
	Message  string
	Expense  model.Transaction
}

// MarkPaid records a payment of the owner's reminder: it writes one expense
// for the bill and either closes a one-off bill or advances a recurring one
// to its next occurrence.
func (s *Service) MarkPaid(ctx context.Context, userID, reminderID int64) (*Result, error) {
	bill, err := s.store.GetByID(ctx, userID, reminderID)
	if err != nil {
		return nil, fmt.Errorf("load reminder: %w", err)
	}
	if bill == nil {
		return nil, ErrNotFound
	}

	today := s.today()
	next, message, err := Pay(*bill, today)
	if err != nil {
		return nil, err
	}
	expense := PaymentExpense(*bill, today)

	updated, expenseID, err := s.store.ApplyPayment(ctx, *bill, next, expense)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("apply payment: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	expense.ID = expenseID

	s.logger.Info("bill marked paid",
		"user_id", userID,
		"reminder_id", reminderID,
		"recurring", bill.Recurs(),
		"next_due", updated.DueDate.String(),
	)
	return &Result{Reminder: *updated, Message: message, Expense: expense}, nil
}

// Pay computes the reminder state after a payment made on today.
func Pay(bill model.BillReminder, today model.Date) (model.BillReminder, string, error) {
	next := bill
	next.LastPaidDate = today

	if !bill.Recurs() {
		if bill.IsPaid {
			return bill, "", ErrAlreadyPaid
		}
		next.IsPaid = true
		return next, MessagePaid, nil
	}

	due, err := NextDueDate(bill.DueDate, bill.RecurringInterval)
	if err != nil {
		return bill, "", err
	}
	next.DueDate = due
	next.IsPaid = false
	return next, MessagePaidAdvanced, nil
}

// PaymentExpense builds the expense recorded when bill is paid on today.
func PaymentExpense(bill model.BillReminder, today model.Date) model.Transaction {
	category := bill.Category
	if category == "" {
		category = paymentCategory
	}
	return model.Transaction{
		UserID:      bill.UserID,
		Title:       bill.Title,
		Amount:      bill.Amount,
		Category:    category,
		Description: "Bill payment: " + bill.Title,
		Date:        today,
	}
}

// Normalize fills defaults and checks a reminder before it is stored.
// A non-recurring reminder never keeps an interval.
func Normalize(r *model.BillReminder) error {
	if r.Title == "" {
		return model.Invalid("title", "title is required")
	}
	if !r.Amount.IsPositive() {
		return model.Invalid("amount", "amount must be a positive number")
	}
	if err := model.CheckScale("amount", r.Amount); err != nil {
		return err
	}
	if r.DueDate.IsZero() {
		return model.Invalid("due_date", "due_date is required")
	}
	if r.Category == "" {
		r.Category = model.DefaultReminderCategory
	}
	if r.ReminderDays <= 0 {
		return model.Invalid("reminder_days", "reminder_days must be a positive integer")
	}
	if !r.IsRecurring {
		r.RecurringInterval = ""
		return nil
	}
	if r.RecurringInterval == "" {
		return model.Invalid("recurring_interval", "recurring_interval is required for recurring bills")
	}
	if !r.RecurringInterval.Valid() {
		return model.Invalid("recurring_interval", "recurring_interval must be weekly, monthly or yearly")
	}
	return nil
}
