package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/model"
)

type ReminderStore struct {
	db       *database.DB
	expenses *TransactionStore
}

func NewReminderStore(db *database.DB) *ReminderStore {
	return &ReminderStore{db: db, expenses: NewExpenseStore(db)}
}

func scanReminder(s scanner) (*model.BillReminder, error) {
	var r model.BillReminder
	var interval string
	err := s.Scan(
		&r.ID, &r.UserID, &r.Title, &r.Amount, &r.Category, &r.DueDate,
		&r.IsRecurring, &interval, &r.ReminderDays, &r.IsPaid, &r.LastPaidDate,
		&r.Notes, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.RecurringInterval = model.Interval(interval)
	return &r, nil
}

const reminderCols = `id, user_id, title, amount, category, due_date, is_recurring, recurring_interval, reminder_days, is_paid, last_paid_date, notes, created_at`

func (s *ReminderStore) list(ctx context.Context, query string, args ...any) ([]model.BillReminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	reminders := []model.BillReminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

// List returns every reminder of the owner by due date.
func (s *ReminderStore) List(ctx context.Context, userID int64) ([]model.BillReminder, error) {
	return s.list(ctx,
		`SELECT `+reminderCols+` FROM bill_reminders WHERE user_id = ? ORDER BY due_date ASC, id ASC`,
		userID,
	)
}

// ListUnpaid returns at most limit unpaid reminders of the owner, soonest first.
func (s *ReminderStore) ListUnpaid(ctx context.Context, userID int64, limit int) ([]model.BillReminder, error) {
	return s.list(ctx,
		`SELECT `+reminderCols+` FROM bill_reminders WHERE user_id = ? AND is_paid = ?
		 ORDER BY due_date ASC, id ASC LIMIT ?`,
		userID, false, limit,
	)
}

func (s *ReminderStore) GetByID(ctx context.Context, userID, id int64) (*model.BillReminder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reminderCols+` FROM bill_reminders WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderStore) Create(ctx context.Context, r model.BillReminder) (*model.BillReminder, error) {
	id, err := insertReturningID(ctx, s.db,
		`INSERT INTO bill_reminders (user_id, title, amount, category, due_date, is_recurring, recurring_interval, reminder_days, is_paid, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Title, r.Amount.String(), r.Category, r.DueDate,
		r.IsRecurring, string(r.RecurringInterval), r.ReminderDays, r.IsPaid, r.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	return s.GetByID(ctx, r.UserID, id)
}

// Update writes every user-editable field of an owned reminder.
func (s *ReminderStore) Update(ctx context.Context, r model.BillReminder) (*model.BillReminder, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bill_reminders SET title = ?, amount = ?, category = ?, due_date = ?, is_recurring = ?,
		 recurring_interval = ?, reminder_days = ?, is_paid = ?, notes = ?
		 WHERE id = ? AND user_id = ?`,
		r.Title, r.Amount.String(), r.Category, r.DueDate, r.IsRecurring,
		string(r.RecurringInterval), r.ReminderDays, r.IsPaid, r.Notes, r.ID, r.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	if err := expectAffected(res, "update reminder"); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, r.UserID, r.ID)
}

func (s *ReminderStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bill_reminders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return expectAffected(res, "delete reminder")
}

// ApplyPayment records expense and moves the reminder from prev to next in
// one transaction, returning the updated reminder and the new expense id.
// The update only applies while the row still matches prev's due date and
// paid flag; otherwise ErrConflict is returned and nothing is written.
func (s *ReminderStore) ApplyPayment(ctx context.Context, prev, next model.BillReminder, expense model.Transaction) (*model.BillReminder, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	expenseID, err := s.expenses.insert(ctx, tx, expense)
	if err != nil {
		return nil, 0, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bill_reminders SET due_date = ?, is_paid = ?, last_paid_date = ?
		 WHERE id = ? AND user_id = ? AND due_date = ? AND is_paid = ?`,
		next.DueDate, next.IsPaid, next.LastPaidDate,
		prev.ID, prev.UserID, prev.DueDate, prev.IsPaid,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("update reminder payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("update reminder payment rows affected: %w", err)
	}
	if n == 0 {
		return nil, 0, ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit payment: %w", err)
	}
	updated, err := s.GetByID(ctx, prev.UserID, prev.ID)
	if err != nil {
		return nil, 0, err
	}
	return updated, expenseID, nil
}

// ListDueSoon returns the unpaid reminders inside their warning window on
// today (due between today and today + reminder_days, inclusive) across all
// owners, joined with the owner's contact details and ordered by owner then
// due date.
func (s *ReminderStore) ListDueSoon(ctx context.Context, today model.Date) ([]model.DueBill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT br.id, br.user_id, br.title, br.amount, br.category, br.due_date, br.is_recurring,
		        br.recurring_interval, br.reminder_days, br.is_paid, br.last_paid_date, br.notes, br.created_at,
		        u.name, u.email, u.telegram_chat_id
		 FROM bill_reminders br
		 JOIN users u ON u.id = br.user_id
		 WHERE br.is_paid = ? AND br.due_date >= ? AND br.due_date <= `+windowEnd(s.db.Driver())+`
		 ORDER BY br.user_id ASC, br.due_date ASC, br.id ASC`,
		false, today, today,
	)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()

	var due []model.DueBill
	for rows.Next() {
		var d model.DueBill
		var interval string
		var chatID sql.NullInt64
		r := &d.Reminder
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Title, &r.Amount, &r.Category, &r.DueDate,
			&r.IsRecurring, &interval, &r.ReminderDays, &r.IsPaid, &r.LastPaidDate,
			&r.Notes, &r.CreatedAt,
			&d.Owner.Name, &d.Owner.Email, &chatID,
		); err != nil {
			return nil, fmt.Errorf("scan due reminder: %w", err)
		}
		r.RecurringInterval = model.Interval(interval)
		d.Owner.UserID = r.UserID
		d.Owner.TelegramChatID = chatID.Int64
		due = append(due, d)
	}
	return due, rows.Err()
}

// windowEnd is the SQL for the last day of a reminder's warning window,
// taking today as its one placeholder.
func windowEnd(driver string) string {
	if driver == database.DriverPostgres {
		return `CAST(? AS DATE) + br.reminder_days`
	}
	return `date(?, '+' || br.reminder_days || ' days')`
}
