package reminder

import (
	"github.com/dukerupert/billfold/internal/model"
)

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusDueToday Status = "due_today"
	StatusOverdue  Status = "overdue"
	StatusPaid     Status = "paid"
)

// DaysUntilDue returns the whole calendar days from today to due. It is
// negative once the due date has passed.
func DaysUntilDue(due, today model.Date) int {
	return due.DaysSince(today)
}

// ComputeStatus derives a reminder's status. It depends only on the paid
// flag, the due date and today.
func ComputeStatus(bill model.BillReminder, today model.Date) (Status, int) {
	days := DaysUntilDue(bill.DueDate, today)
	switch {
	case bill.IsPaid:
		return StatusPaid, days
	case days < 0:
		return StatusOverdue, days
	case days == 0:
		return StatusDueToday, days
	default:
		return StatusUpcoming, days
	}
}

// Annotate attaches the derived status to each bill, keeping order.
func Annotate(bills []model.BillReminder, today model.Date) []model.ReminderView {
	views := make([]model.ReminderView, 0, len(bills))
	for _, b := range bills {
		views = append(views, View(b, today))
	}
	return views
}

func View(bill model.BillReminder, today model.Date) model.ReminderView {
	status, days := ComputeStatus(bill, today)
	return model.ReminderView{BillReminder: bill, Status: string(status), DaysUntilDue: days}
}

// InWarningWindow reports whether an unpaid bill is due between today and
// today plus its reminder_days, both ends included.
func InWarningWindow(bill model.BillReminder, today model.Date) bool {
	if bill.IsPaid {
		return false
	}
	days := DaysUntilDue(bill.DueDate, today)
	return days >= 0 && days <= bill.ReminderDays
}
