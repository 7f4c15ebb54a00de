package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/model"
)

// TransactionStore serves one of the two ledger tables, incomes or expenses.
type TransactionStore struct {
	db    *database.DB
	table string
}

func NewExpenseStore(db *database.DB) *TransactionStore {
	return &TransactionStore{db: db, table: "expenses"}
}

func NewIncomeStore(db *database.DB) *TransactionStore {
	return &TransactionStore{db: db, table: "incomes"}
}

func scanTransaction(s scanner) (*model.Transaction, error) {
	var t model.Transaction
	err := s.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount, &t.Category, &t.Description, &t.Date, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const transactionCols = `id, user_id, title, amount, category, description, date, created_at`

// List returns the owner's rows, newest date first.
func (s *TransactionStore) List(ctx context.Context, userID int64) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionCols+` FROM `+s.table+` WHERE user_id = ? ORDER BY date DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer rows.Close()

	txns := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func (s *TransactionStore) GetByID(ctx context.Context, userID, id int64) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionCols+` FROM `+s.table+` WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.table, err)
	}
	return t, nil
}

func (s *TransactionStore) Create(ctx context.Context, t model.Transaction) (*model.Transaction, error) {
	id, err := s.insert(ctx, s.db, t)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, t.UserID, id)
}

func (s *TransactionStore) insert(ctx context.Context, q querier, t model.Transaction) (int64, error) {
	id, err := insertReturningID(ctx, q,
		`INSERT INTO `+s.table+` (user_id, title, amount, category, description, date) VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Amount.String(), t.Category, t.Description, t.Date,
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", s.table, err)
	}
	return id, nil
}

// Update replaces the editable fields of an owned row.
func (s *TransactionStore) Update(ctx context.Context, t model.Transaction) (*model.Transaction, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.table+` SET title = ?, amount = ?, category = ?, description = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		t.Title, t.Amount.String(), t.Category, t.Description, t.Date, t.ID, t.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", s.table, err)
	}
	if err := expectAffected(res, "update "+s.table); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, t.UserID, t.ID)
}

func (s *TransactionStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.table, err)
	}
	return expectAffected(res, "delete "+s.table)
}

// SpendingByCategory sums amounts per category for rows dated in [from, to).
// Sums are taken in decimal so SQLite's text amounts stay exact.
func (s *TransactionStore) SpendingByCategory(ctx context.Context, userID int64, from, to model.Date) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, amount FROM `+s.table+` WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("sum %s by category: %w", s.table, err)
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category string
		var amount decimal.Decimal
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("scan %s amount: %w", s.table, err)
		}
		totals[category] = totals[category].Add(amount)
	}
	return totals, rows.Err()
}

// Summary totals every row of the owner, with per-day totals for rows
// dated on or after since and per-category totals sorted largest first.
func (s *TransactionStore) Summary(ctx context.Context, userID int64, since model.Date) (*model.LedgerSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, amount, date FROM `+s.table+` WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", s.table, err)
	}
	defer rows.Close()

	sum := &model.LedgerSummary{Daily: []model.DayTotal{}, ByCategory: []model.CategoryTotal{}}
	daily := make(map[model.Date]decimal.Decimal)
	byCategory := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category string
		var amount decimal.Decimal
		var date model.Date
		if err := rows.Scan(&category, &amount, &date); err != nil {
			return nil, fmt.Errorf("scan %s summary: %w", s.table, err)
		}
		sum.Total = sum.Total.Add(amount)
		byCategory[category] = byCategory[category].Add(amount)
		if !date.Before(since) {
			daily[date] = daily[date].Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for day, total := range daily {
		sum.Daily = append(sum.Daily, model.DayTotal{Day: day, Total: total})
	}
	sort.Slice(sum.Daily, func(i, j int) bool { return sum.Daily[i].Day.Before(sum.Daily[j].Day) })

	for category, total := range byCategory {
		sum.ByCategory = append(sum.ByCategory, model.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		if c := sum.ByCategory[i].Total.Cmp(sum.ByCategory[j].Total); c != 0 {
			return c > 0
		}
		return sum.ByCategory[i].Category < sum.ByCategory[j].Category
	})
	return sum, nil
}

// Recent returns the owner's latest rows by date, tagged with kind.
func (s *TransactionStore) Recent(ctx context.Context, userID int64, limit int) ([]model.RecentTransaction, error) {
	kind := model.KindExpense
	if s.table == "incomes" {
		kind = model.KindIncome
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, amount, category, date, created_at FROM `+s.table+`
		 WHERE user_id = ? ORDER BY date DESC, created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent %s: %w", s.table, err)
	}
	defer rows.Close()

	var recent []model.RecentTransaction
	for rows.Next() {
		r := model.RecentTransaction{Type: kind}
		if err := rows.Scan(&r.ID, &r.Title, &r.Amount, &r.Category, &r.Date, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent %s: %w", s.table, err)
		}
		recent = append(recent, r)
	}
	return recent, rows.Err()
}
