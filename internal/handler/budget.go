package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/budget"
	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/reminder"
	"github.com/dukerupert/billfold/internal/store"
)

const msgBudgetExists = "Budget already exists for this category and month"

type BudgetHandler struct {
	budgets    *store.BudgetStore
	aggregator *budget.Aggregator
	today      reminder.Clock
	hub        Publisher
	logger     *slog.Logger
}

func NewBudgetHandler(bs *store.BudgetStore, agg *budget.Aggregator, today reminder.Clock, hub Publisher, logger *slog.Logger) *BudgetHandler {
	return &BudgetHandler{budgets: bs, aggregator: agg, today: today, hub: hub, logger: logger}
}

type budgetRequest struct {
	Category *string          `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	Month    *int             `json:"month"`
	Year     *int             `json:"year"`
}

func validateBudget(b model.BudgetGoal) error {
	if b.Category == "" {
		return model.Invalid("category", "category is required")
	}
	if !b.Amount.IsPositive() {
		return model.Invalid("amount", "amount must be a positive number")
	}
	if err := model.CheckScale("amount", b.Amount); err != nil {
		return err
	}
	if b.Month < 1 || b.Month > 12 {
		return model.Invalid("month", "month must be between 1 and 12")
	}
	if b.Year < 1 || b.Year > 9999 {
		return model.Invalid("year", "year must be between 1 and 9999")
	}
	return nil
}

func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	month, year, err := parsePeriod(r, h.today())
	if err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}
	goals, err := h.budgets.ListByPeriod(r.Context(), auth.UserID(r.Context()), month, year)
	if err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *BudgetHandler) Status(w http.ResponseWriter, r *http.Request) {
	month, year, err := parsePeriod(r, h.today())
	if err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}
	statuses, err := h.aggregator.Status(r.Context(), auth.UserID(r.Context()), month, year)
	if err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	userID := auth.UserID(r.Context())
	today := h.today()
	goal := model.BudgetGoal{UserID: userID, Month: int(today.Month()), Year: today.Year()}
	if req.Category != nil {
		goal.Category = strings.TrimSpace(*req.Category)
	}
	if req.Amount != nil {
		goal.Amount = *req.Amount
	}
	if req.Month != nil {
		goal.Month = *req.Month
	}
	if req.Year != nil {
		goal.Year = *req.Year
	}
	if err := validateBudget(goal); err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}

	created, err := h.budgets.Create(r.Context(), goal)
	if errors.Is(err, store.ErrDuplicate) {
		writeMessage(w, http.StatusConflict, msgBudgetExists)
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}

	publish(h.hub, userID, "budget", "created", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// Update changes category and amount. The period of a goal never moves.
func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	existing, err := h.budgets.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "Budget not found")
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Category != nil {
		existing.Category = strings.TrimSpace(*req.Category)
	}
	if req.Amount != nil {
		existing.Amount = *req.Amount
	}
	if err := validateBudget(*existing); err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}

	updated, err := h.budgets.Update(r.Context(), *existing)
	if errors.Is(err, store.ErrDuplicate) {
		writeMessage(w, http.StatusConflict, msgBudgetExists)
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}

	publish(h.hub, userID, "budget", "updated", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	if err := h.budgets.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err, "Budget not found")
		return
	}

	publish(h.hub, userID, "budget", "deleted", id)
	writeMessage(w, http.StatusOK, "Budget deleted successfully")
}
