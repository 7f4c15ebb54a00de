package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/store"
)

const (
	resetTokenTTL  = time.Hour
	msgResetSent   = "If an account exists with this email, a reset link has been sent."
	msgResetFailed = "Invalid or expired reset token"
)

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, toEmail, token string) error
}

type AuthHandler struct {
	users  *store.UserStore
	tokens *auth.Issuer
	mailer ResetMailer
	now    func() time.Time
	logger *slog.Logger
}

func NewAuthHandler(us *store.UserStore, tokens *auth.Issuer, mailer ResetMailer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, tokens: tokens, mailer: mailer, now: time.Now, logger: logger}
}

type authResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
	Token   string      `json:"token"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide all required fields")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "Password must be at least 6 characters", Field: "password"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	user, err := h.users.Create(r.Context(), name, email, hash)
	if errors.Is(err, store.ErrDuplicate) {
		writeMessage(w, http.StatusConflict, "User already exists with this email")
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Message: "User registered successfully", User: user, Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "Login successful", User: user, Token: token})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, "User not found")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe changes the caller's name and Telegram chat id. An absent name
// keeps the current one; telegram_chat_id is replaced as sent, so null
// unlinks Telegram.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err, "User not found")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}

	var req struct {
		Name           *string `json:"name"`
		TelegramChatID *int64  `json:"telegram_chat_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	name := user.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		writeError(w, r, h.logger, model.Invalid("name", "name is required"), "")
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), userID, name, req.TelegramChatID)
	if err != nil {
		writeError(w, r, h.logger, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide your email address")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	// Unknown addresses get the same answer so accounts cannot be probed.
	if user == nil {
		writeMessage(w, http.StatusOK, msgResetSent)
		return
	}

	token, err := auth.NewResetToken()
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	if err := h.users.SetResetToken(r.Context(), user.ID, token, h.now().Add(resetTokenTTL)); err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	if err := h.mailer.SendPasswordReset(r.Context(), user.Email, token); err != nil {
		h.logger.Error("send password reset", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to send reset email. Please try again.")
		return
	}

	h.logger.Info("password reset requested", "user_id", user.ID)
	writeMessage(w, http.StatusOK, msgResetSent)
}

// userForResetToken returns the holder of an unexpired reset token, or nil.
func (h *AuthHandler) userForResetToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}
	user, err := h.users.GetByResetToken(ctx, token)
	if err != nil || user == nil {
		return nil, err
	}
	if !h.now().Before(user.ResetExpiry) {
		return nil, nil
	}
	return user, nil
}

func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	user, err := h.userForResetToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "message": msgResetFailed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide a new password")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	user, err := h.userForResetToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusBadRequest, msgResetFailed)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	if err := h.users.ResetPassword(r.Context(), user.ID, hash); err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}

	h.logger.Info("password reset", "user_id", user.ID)
	writeMessage(w, http.StatusOK, "Password reset successful! You can now login with your new password.")
}
