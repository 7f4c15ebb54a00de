package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/model"
)

type BudgetStore struct {
	db *database.DB
}

func NewBudgetStore(db *database.DB) *BudgetStore {
	return &BudgetStore{db: db}
}

func scanBudget(s scanner) (*model.BudgetGoal, error) {
	var b model.BudgetGoal
	err := s.Scan(&b.ID, &b.UserID, &b.Category, &b.Amount, &b.Month, &b.Year, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const budgetCols = `id, user_id, category, amount, month, year, created_at`

// ListByPeriod returns the owner's goals for one month, ordered by category.
func (s *BudgetStore) ListByPeriod(ctx context.Context, userID int64, month, year int) ([]model.BudgetGoal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+budgetCols+` FROM budget_goals WHERE user_id = ? AND month = ? AND year = ? ORDER BY category ASC`,
		userID, month, year,
	)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	goals := []model.BudgetGoal{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		goals = append(goals, *b)
	}
	return goals, rows.Err()
}

func (s *BudgetStore) GetByID(ctx context.Context, userID, id int64) (*model.BudgetGoal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+budgetCols+` FROM budget_goals WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// Create inserts a goal. A second goal for the same owner, category, month
// and year yields ErrDuplicate.
func (s *BudgetStore) Create(ctx context.Context, b model.BudgetGoal) (*model.BudgetGoal, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budget_goals WHERE user_id = ? AND category = ? AND month = ? AND year = ?`,
		b.UserID, b.Category, b.Month, b.Year,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check budget: %w", err)
	}
	if exists > 0 {
		return nil, ErrDuplicate
	}

	id, err := insertReturningID(ctx, s.db,
		`INSERT INTO budget_goals (user_id, category, amount, month, year) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.Category, b.Amount.String(), b.Month, b.Year,
	)
	// The pre-check can race with a concurrent insert; the constraint decides.
	if database.IsUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert budget: %w", err)
	}
	return s.GetByID(ctx, b.UserID, id)
}

// Update changes the category and amount of an owned goal. The period is fixed.
func (s *BudgetStore) Update(ctx context.Context, b model.BudgetGoal) (*model.BudgetGoal, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE budget_goals SET category = ?, amount = ? WHERE id = ? AND user_id = ?`,
		b.Category, b.Amount.String(), b.ID, b.UserID,
	)
	if database.IsUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	if err := expectAffected(res, "update budget"); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, b.UserID, b.ID)
}

func (s *BudgetStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budget_goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectAffected(res, "delete budget")
}
