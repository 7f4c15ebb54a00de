package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Interval string

const (
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// Valid reports whether i is one of the supported recurrence intervals.
func (i Interval) Valid() bool {
	switch i {
	case IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

const (
	DefaultReminderCategory = "Other"
	DefaultReminderDays     = 3
)

// BillReminder is a bill with a due date. For recurring bills DueDate is
// always the next unpaid occurrence.
type BillReminder struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	Title             string          `json:"title"`
	Amount            decimal.Decimal `json:"amount"`
	Category          string          `json:"category"`
	DueDate           Date            `json:"due_date"`
	IsRecurring       bool            `json:"is_recurring"`
	RecurringInterval Interval        `json:"recurring_interval"`
	ReminderDays      int             `json:"reminder_days"`
	IsPaid            bool            `json:"is_paid"`
	LastPaidDate      Date            `json:"last_paid_date"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Recurs reports whether paying the bill advances its due date.
func (b BillReminder) Recurs() bool {
	return b.IsRecurring && b.RecurringInterval != ""
}

// DueBill is an unpaid reminder joined with its owner's contact details.
type DueBill struct {
	Reminder BillReminder
	Owner    Recipient
}

// ReminderView is a reminder annotated with its derived status.
type ReminderView struct {
	BillReminder
	Status       string `json:"status"`
	DaysUntilDue int    `json:"days_until_due"`
}
