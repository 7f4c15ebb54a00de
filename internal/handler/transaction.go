package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/store"
)

const defaultTransactionCategory = "Other"

// TransactionHandler serves either the expense or the income ledger.
type TransactionHandler struct {
	ledger *store.TransactionStore
	entity string
	label  string
	hub    Publisher
	logger *slog.Logger
}

func NewExpenseHandler(ts *store.TransactionStore, hub Publisher, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{ledger: ts, entity: model.KindExpense, label: "Expense", hub: hub, logger: logger}
}

func NewIncomeHandler(ts *store.TransactionStore, hub Publisher, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{ledger: ts, entity: model.KindIncome, label: "Income", hub: hub, logger: logger}
}

type transactionRequest struct {
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        model.Date      `json:"date"`
}

func (req transactionRequest) transaction(userID int64) (model.Transaction, error) {
	t := model.Transaction{
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
		Date:        req.Date,
	}
	if t.Title == "" {
		return t, model.Invalid("title", "title is required")
	}
	if !t.Amount.IsPositive() {
		return t, model.Invalid("amount", "amount must be a positive number")
	}
	if err := model.CheckScale("amount", t.Amount); err != nil {
		return t, err
	}
	if t.Date.IsZero() {
		return t, model.Invalid("date", "date is required")
	}
	if t.Category == "" {
		t.Category = defaultTransactionCategory
	}
	return t, nil
}

func (h *TransactionHandler) notFound() string {
	return h.label + " not found"
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	txns, err := h.ledger.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, h.notFound())
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	userID := auth.UserID(r.Context())
	t, err := req.transaction(userID)
	if err != nil {
		writeError(w, r, h.logger, err, h.notFound())
		return
	}

	created, err := h.ledger.Create(r.Context(), t)
	if err != nil {
		writeError(w, r, h.logger, err, h.notFound())
		return
	}

	publish(h.hub, userID, h.entity, "created", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// Update replaces every editable field of an owned row.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	userID := auth.UserID(r.Context())
	t, err := req.transaction(userID)
	if err != nil {
		writeError(w, r, h.logger, err, h.notFound())
		return
	}
	t.ID = id

	updated, err := h.ledger.Update(r.Context(), t)
	if err != nil {
		writeError(w, r, h.logger, err, h.notFound())
		return
	}

	publish(h.hub, userID, h.entity, "updated", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	if err := h.ledger.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err, h.notFound())
		return
	}

	publish(h.hub, userID, h.entity, "deleted", id)
	writeMessage(w, http.StatusOK, h.label+" deleted successfully")
}
