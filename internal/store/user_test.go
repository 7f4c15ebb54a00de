package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUserCreate(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	u, err := us.Create(ctx, "Alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.PasswordHash != "hash" {
		t.Errorf("password_hash = %q, want %q", u.PasswordHash, "hash")
	}
	if u.TelegramChatID != nil {
		t.Errorf("telegram_chat_id = %v, want nil", *u.TelegramChatID)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := us.Create(ctx, "Alice", "alice@example.com", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := us.Create(ctx, "Alice2", "alice@example.com", "hash")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestUserGetNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	u, err := us.GetByID(ctx, 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}

	u, err = us.GetByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserUpdateProfile(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ctx := context.Background()
	id := createTestUser(t, db, "bob@example.com")

	chatID := int64(424242)
	u, err := us.UpdateProfile(ctx, id, "Bob", &chatID)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if u.Name != "Bob" {
		t.Errorf("name = %q, want %q", u.Name, "Bob")
	}
	if u.TelegramChatID == nil || *u.TelegramChatID != chatID {
		t.Errorf("telegram_chat_id = %v, want %d", u.TelegramChatID, chatID)
	}

	if _, err := us.UpdateProfile(ctx, 999, "Ghost", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing user err = %v, want ErrNotFound", err)
	}
}

func TestUserResetTokenLifecycle(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ctx := context.Background()
	id := createTestUser(t, db, "carol@example.com")

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := us.SetResetToken(ctx, id, "tok123", expiry); err != nil {
		t.Fatalf("set reset token: %v", err)
	}

	u, err := us.GetByResetToken(ctx, "tok123")
	if err != nil {
		t.Fatalf("get by reset token: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("user = %+v, want id %d", u, id)
	}
	if !u.ResetExpiry.Equal(expiry) {
		t.Errorf("reset expiry = %v, want %v", u.ResetExpiry, expiry)
	}

	if err := us.ResetPassword(ctx, id, "newhash"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	u, _ = us.GetByResetToken(ctx, "tok123")
	if u != nil {
		t.Error("reset token should be cleared after reset")
	}
	u, _ = us.GetByID(ctx, id)
	if u.PasswordHash != "newhash" {
		t.Errorf("password_hash = %q, want %q", u.PasswordHash, "newhash")
	}
}
