package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/model"
)

type SavingsStore struct {
	db *database.DB
}

func NewSavingsStore(db *database.DB) *SavingsStore {
	return &SavingsStore{db: db}
}

func scanSavingsGoal(s scanner) (*model.SavingsGoal, error) {
	var g model.SavingsGoal
	err := s.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &g.Deadline, &g.Icon, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

const savingsCols = `id, user_id, title, target_amount, current_amount, deadline, icon, created_at`

// List returns the owner's goals, newest first.
func (s *SavingsStore) List(ctx context.Context, userID int64) ([]model.SavingsGoal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+savingsCols+` FROM savings_goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	goals := []model.SavingsGoal{}
	for rows.Next() {
		g, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func (s *SavingsStore) GetByID(ctx context.Context, userID, id int64) (*model.SavingsGoal, error) {
	return s.get(ctx, s.db, userID, id)
}

func (s *SavingsStore) get(ctx context.Context, q querier, userID, id int64) (*model.SavingsGoal, error) {
	row := q.QueryRowContext(ctx, `SELECT `+savingsCols+` FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanSavingsGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get savings goal: %w", err)
	}
	return g, nil
}

func (s *SavingsStore) Create(ctx context.Context, g model.SavingsGoal) (*model.SavingsGoal, error) {
	id, err := insertReturningID(ctx, s.db,
		`INSERT INTO savings_goals (user_id, title, target_amount, current_amount, deadline, icon) VALUES (?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Title, g.TargetAmount.String(), g.CurrentAmount.String(), g.Deadline, g.Icon,
	)
	if err != nil {
		return nil, fmt.Errorf("insert savings goal: %w", err)
	}
	return s.GetByID(ctx, g.UserID, id)
}

func (s *SavingsStore) Update(ctx context.Context, g model.SavingsGoal) (*model.SavingsGoal, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE savings_goals SET title = ?, target_amount = ?, current_amount = ?, deadline = ?, icon = ?
		 WHERE id = ? AND user_id = ?`,
		g.Title, g.TargetAmount.String(), g.CurrentAmount.String(), g.Deadline, g.Icon, g.ID, g.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update savings goal: %w", err)
	}
	if err := expectAffected(res, "update savings goal"); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, g.UserID, g.ID)
}

// Delete removes an owned goal; its contributions cascade.
func (s *SavingsStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	return expectAffected(res, "delete savings goal")
}

// Contribute records c against an owned goal and adds its amount to the
// goal's running total in one transaction.
func (s *SavingsStore) Contribute(ctx context.Context, userID int64, c model.SavingsContribution) (*model.SavingsContribution, *model.SavingsGoal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	goal, err := s.get(ctx, tx, userID, c.GoalID)
	if err != nil {
		return nil, nil, err
	}
	if goal == nil {
		return nil, nil, ErrNotFound
	}

	id, err := insertReturningID(ctx, tx,
		`INSERT INTO savings_contributions (goal_id, amount, note, date) VALUES (?, ?, ?, ?)`,
		c.GoalID, c.Amount.String(), c.Note, c.Date,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert contribution: %w", err)
	}

	goal.CurrentAmount = goal.CurrentAmount.Add(c.Amount)
	if _, err := tx.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount = ? WHERE id = ?`,
		goal.CurrentAmount.String(), goal.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("update current amount: %w", err)
	}

	var created model.SavingsContribution
	err = tx.QueryRowContext(ctx,
		`SELECT id, goal_id, amount, note, date, created_at FROM savings_contributions WHERE id = ?`, id,
	).Scan(&created.ID, &created.GoalID, &created.Amount, &created.Note, &created.Date, &created.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("get contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit contribution: %w", err)
	}
	return &created, goal, nil
}

// Contributions lists an owned goal's contributions, latest date first.
func (s *SavingsStore) Contributions(ctx context.Context, userID, goalID int64) ([]model.SavingsContribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.goal_id, c.amount, c.note, c.date, c.created_at
		 FROM savings_contributions c
		 JOIN savings_goals g ON g.id = c.goal_id
		 WHERE c.goal_id = ? AND g.user_id = ?
		 ORDER BY c.date DESC, c.id DESC`,
		goalID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	contributions := []model.SavingsContribution{}
	for rows.Next() {
		var c model.SavingsContribution
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Amount, &c.Note, &c.Date, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

// TotalSaved sums current_amount across the owner's goals.
func (s *SavingsStore) TotalSaved(ctx context.Context, userID int64) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT current_amount FROM savings_goals WHERE user_id = ?`, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total saved: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan saved amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}
