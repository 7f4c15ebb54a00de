package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/reminder"
	"github.com/dukerupert/billfold/internal/store"
)

type SavingsHandler struct {
	savings *store.SavingsStore
	today   reminder.Clock
	hub     Publisher
	logger  *slog.Logger
}

func NewSavingsHandler(ss *store.SavingsStore, today reminder.Clock, hub Publisher, logger *slog.Logger) *SavingsHandler {
	return &SavingsHandler{savings: ss, today: today, hub: hub, logger: logger}
}

// savingsView is a goal with its progress toward the target.
type savingsView struct {
	model.SavingsGoal
	Percentage int             `json:"percentage"`
	Remaining  decimal.Decimal `json:"remaining"`
}

func viewGoal(g model.SavingsGoal) savingsView {
	pct, remaining := g.Progress()
	return savingsView{SavingsGoal: g, Percentage: pct, Remaining: remaining}
}

type savingsRequest struct {
	Title        *string          `json:"title"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	Deadline     *model.Date      `json:"deadline"`
	Icon         *string          `json:"icon"`
}

func (req savingsRequest) apply(g *model.SavingsGoal) {
	if req.Title != nil {
		g.Title = strings.TrimSpace(*req.Title)
	}
	if req.TargetAmount != nil {
		g.TargetAmount = *req.TargetAmount
	}
	if req.Deadline != nil {
		g.Deadline = *req.Deadline
	}
	if req.Icon != nil && *req.Icon != "" {
		g.Icon = *req.Icon
	}
}

func validateGoal(g model.SavingsGoal) error {
	if g.Title == "" {
		return model.Invalid("title", "title is required")
	}
	if !g.TargetAmount.IsPositive() {
		return model.Invalid("target_amount", "target_amount must be a positive number")
	}
	return model.CheckScale("target_amount", g.TargetAmount)
}

func (h *SavingsHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.savings.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}
	views := make([]savingsView, 0, len(goals))
	for _, g := range goals {
		views = append(views, viewGoal(g))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *SavingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req savingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	userID := auth.UserID(r.Context())
	goal := model.SavingsGoal{UserID: userID, Icon: model.DefaultSavingsIcon}
	req.apply(&goal)
	if err := validateGoal(goal); err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}

	created, err := h.savings.Create(r.Context(), goal)
	if err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}

	publish(h.hub, userID, "savings", "created", created.ID)
	writeJSON(w, http.StatusCreated, viewGoal(*created))
}

func (h *SavingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	existing, err := h.savings.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "Savings goal not found")
		return
	}

	var req savingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.apply(existing)
	if err := validateGoal(*existing); err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}

	updated, err := h.savings.Update(r.Context(), *existing)
	if err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}

	publish(h.hub, userID, "savings", "updated", updated.ID)
	writeJSON(w, http.StatusOK, viewGoal(*updated))
}

func (h *SavingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	if err := h.savings.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}

	publish(h.hub, userID, "savings", "deleted", id)
	writeMessage(w, http.StatusOK, "Savings goal deleted successfully")
}

type contributionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
	Date   model.Date      `json:"date"`
}

func (h *SavingsHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var req contributionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, r, h.logger, model.Invalid("amount", "Please provide a valid amount"), "")
		return
	}
	if err := model.CheckScale("amount", req.Amount); err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	if req.Date.IsZero() {
		req.Date = h.today()
	}

	userID := auth.UserID(r.Context())
	contribution, goal, err := h.savings.Contribute(r.Context(), userID, model.SavingsContribution{
		GoalID: id,
		Amount: req.Amount,
		Note:   req.Note,
		Date:   req.Date,
	})
	if err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}

	publish(h.hub, userID, "savings", "contributed", goal.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"contribution": contribution,
		"goal":         viewGoal(*goal),
	})
}

func (h *SavingsHandler) Contributions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	goal, err := h.savings.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}
	if goal == nil {
		writeMessage(w, http.StatusNotFound, "Savings goal not found")
		return
	}

	contributions, err := h.savings.Contributions(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err, "Savings goal not found")
		return
	}
	writeJSON(w, http.StatusOK, contributions)
}
