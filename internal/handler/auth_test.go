package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/store"
)

type fakeResetMailer struct {
	to    string
	token string
	calls int
	err   error
}

func (m *fakeResetMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	m.calls++
	m.to = to
	m.token = token
	return m.err
}

func setupAuthHandler(t *testing.T) (*AuthHandler, *fakeResetMailer, *auth.Issuer) {
	t.Helper()
	db := setupTestDB(t)
	mailer := &fakeResetMailer{}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	return NewAuthHandler(store.NewUserStore(db), issuer, mailer, discardLogger()), mailer, issuer
}

func signup(t *testing.T, h *AuthHandler, body string) authResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Signup(rec, newRequest(http.MethodPost, "/api/auth/signup", body, 0))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	return resp
}

func TestSignup(t *testing.T) {
	h, _, issuer := setupAuthHandler(t)

	resp := signup(t, h, `{"name":"Ana","email":" Ana@Example.com ","password":"secret1"}`)
	if resp.Message != "User registered successfully" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.User == nil || resp.User.Email != "ana@example.com" {
		t.Fatalf("expected normalized email, got %+v", resp.User)
	}
	ac, err := issuer.Verify(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if ac.UserID != resp.User.ID {
		t.Errorf("token for user %d, expected %d", ac.UserID, resp.User.ID)
	}
}

func TestSignupRejects(t *testing.T) {
	h, _, _ := setupAuthHandler(t)
	signup(t, h, `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"missing name", `{"email":"b@example.com","password":"secret1"}`, http.StatusBadRequest, "Please provide all required fields"},
		{"short password", `{"name":"B","email":"b@example.com","password":"123"}`, http.StatusBadRequest, "Password must be at least 6 characters"},
		{"taken email", `{"name":"Ana","email":"ANA@example.com","password":"secret1"}`, http.StatusConflict, "User already exists with this email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Signup(rec, newRequest(http.MethodPost, "/api/auth/signup", tt.body, 0))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := decodeMessage(t, rec).Message; got != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, got)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	h, _, _ := setupAuthHandler(t)
	signup(t, h, `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)

	rec := httptest.NewRecorder()
	h.Login(rec, newRequest(http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"secret1"}`, 0))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" || resp.Message != "Login successful" {
		t.Errorf("unexpected login response %+v", resp)
	}

	for _, body := range []string{
		`{"email":"ana@example.com","password":"wrong-pass"}`,
		`{"email":"nobody@example.com","password":"secret1"}`,
	} {
		rec := httptest.NewRecorder()
		h.Login(rec, newRequest(http.MethodPost, "/api/auth/login", body, 0))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
			continue
		}
		if got := decodeMessage(t, rec).Message; got != "Invalid credentials" {
			t.Errorf("%s: unexpected message %q", body, got)
		}
	}
}

func TestMeAndUpdateMe(t *testing.T) {
	h, _, _ := setupAuthHandler(t)
	resp := signup(t, h, `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)
	userID := resp.User.ID

	rec := httptest.NewRecorder()
	h.UpdateMe(rec, newRequest(http.MethodPut, "/api/auth/me", `{"telegram_chat_id":4242}`, userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Me(rec, newRequest(http.MethodGet, "/api/auth/me", "", userID))
	var me struct {
		Name           string `json:"name"`
		TelegramChatID *int64 `json:"telegram_chat_id"`
		PasswordHash   string `json:"password_hash"`
	}
	decodeBody(t, rec, &me)
	if me.Name != "Ana" {
		t.Errorf("absent name should be kept, got %q", me.Name)
	}
	if me.TelegramChatID == nil || *me.TelegramChatID != 4242 {
		t.Errorf("expected chat id 4242, got %v", me.TelegramChatID)
	}
	if me.PasswordHash != "" {
		t.Error("password hash leaked")
	}

	rec = httptest.NewRecorder()
	h.UpdateMe(rec, newRequest(http.MethodPut, "/api/auth/me", `{"name":"  "}`, userID))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank name, got %d", rec.Code)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	h, mailer, _ := setupAuthHandler(t)

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(http.MethodPost, "/api/auth/forgot-password", `{"email":"nobody@example.com"}`, 0))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec).Message; got != msgResetSent {
		t.Errorf("unexpected message %q", got)
	}
	if mailer.calls != 0 {
		t.Errorf("expected no mail, got %d", mailer.calls)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	h, mailer, _ := setupAuthHandler(t)
	signup(t, h, `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(http.MethodPost, "/api/auth/forgot-password", `{"email":"ana@example.com"}`, 0))
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot: expected 200, got %d", rec.Code)
	}
	if mailer.calls != 1 || mailer.to != "ana@example.com" || len(mailer.token) != 64 {
		t.Fatalf("unexpected mail %+v", mailer)
	}

	verify := newRequest(http.MethodGet, "/api/auth/verify-reset-token/x", "", 0)
	verify.SetPathValue("token", mailer.token)
	rec = httptest.NewRecorder()
	h.VerifyResetToken(rec, verify)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d", rec.Code)
	}

	reset := newRequest(http.MethodPost, "/api/auth/reset-password/x", `{"password":"newsecret"}`, 0)
	reset.SetPathValue("token", mailer.token)
	rec = httptest.NewRecorder()
	h.ResetPassword(rec, reset)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Login(rec, newRequest(http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"newsecret"}`, 0))
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password: expected 200, got %d", rec.Code)
	}

	// The token is single use.
	reset = newRequest(http.MethodPost, "/api/auth/reset-password/x", `{"password":"another1"}`, 0)
	reset.SetPathValue("token", mailer.token)
	rec = httptest.NewRecorder()
	h.ResetPassword(rec, reset)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reused token: expected 400, got %d", rec.Code)
	}
}

func TestPasswordResetExpired(t *testing.T) {
	h, mailer, _ := setupAuthHandler(t)
	signup(t, h, `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(http.MethodPost, "/api/auth/forgot-password", `{"email":"ana@example.com"}`, 0))

	h.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	reset := newRequest(http.MethodPost, "/api/auth/reset-password/x", `{"password":"newsecret"}`, 0)
	reset.SetPathValue("token", mailer.token)
	rec = httptest.NewRecorder()
	h.ResetPassword(rec, reset)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec).Message; got != msgResetFailed {
		t.Errorf("unexpected message %q", got)
	}
}

func TestForgotPasswordMailFailure(t *testing.T) {
	h, mailer, _ := setupAuthHandler(t)
	signup(t, h, `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)
	mailer.err = errors.New("postmark down")

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(http.MethodPost, "/api/auth/forgot-password", `{"email":"ana@example.com"}`, 0))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
