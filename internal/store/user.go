package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/model"
)

type UserStore struct {
	db *database.DB
}

func NewUserStore(db *database.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	var resetToken sql.NullString
	var resetExpiry sql.NullTime
	var chatID sql.NullInt64
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &resetToken, &resetExpiry, &chatID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.ResetToken = resetToken.String
	if resetExpiry.Valid {
		u.ResetExpiry = resetExpiry.Time
	}
	if chatID.Valid {
		u.TelegramChatID = &chatID.Int64
	}
	return &u, nil
}

const userCols = `id, name, email, password_hash, reset_token, reset_token_expiry, telegram_chat_id, created_at`

// Create inserts a user. A taken email yields ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	id, err := insertReturningID(ctx, s.db,
		`INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)`,
		name, email, passwordHash,
	)
	if database.IsUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByResetToken returns the user holding token, or nil when no user does.
// Expiry is left to the caller.
func (s *UserStore) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE reset_token = ?`, token)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id int64, name string, telegramChatID *int64) (*model.User, error) {
	var chatID sql.NullInt64
	if telegramChatID != nil {
		chatID = sql.NullInt64{Int64: *telegramChatID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, telegram_chat_id = ? WHERE id = ?`,
		name, chatID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := expectAffected(res, "update user"); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_token_expiry = ? WHERE id = ?`,
		token, expiry.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// ResetPassword stores the new hash and clears any pending reset token.
func (s *UserStore) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return expectAffected(res, "reset password")
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
