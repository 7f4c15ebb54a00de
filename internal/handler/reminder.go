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

const upcomingLimit = 5

type ReminderHandler struct {
	reminders *store.ReminderStore
	service   *reminder.Service
	hub       Publisher
	logger    *slog.Logger
}

func NewReminderHandler(rs *store.ReminderStore, svc *reminder.Service, hub Publisher, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{reminders: rs, service: svc, hub: hub, logger: logger}
}

// reminderRequest carries a create or partial update. Nil fields are absent.
type reminderRequest struct {
	Title             *string          `json:"title"`
	Amount            *decimal.Decimal `json:"amount"`
	Category          *string          `json:"category"`
	DueDate           *model.Date      `json:"due_date"`
	IsRecurring       *bool            `json:"is_recurring"`
	RecurringInterval *model.Interval  `json:"recurring_interval"`
	ReminderDays      *int             `json:"reminder_days"`
	Notes             *string          `json:"notes"`
}

func (req reminderRequest) apply(b *model.BillReminder) {
	if req.Title != nil {
		b.Title = strings.TrimSpace(*req.Title)
	}
	if req.Amount != nil {
		b.Amount = *req.Amount
	}
	if req.Category != nil {
		b.Category = strings.TrimSpace(*req.Category)
	}
	if req.DueDate != nil {
		b.DueDate = *req.DueDate
	}
	if req.IsRecurring != nil {
		b.IsRecurring = *req.IsRecurring
	}
	if req.RecurringInterval != nil {
		b.RecurringInterval = *req.RecurringInterval
	}
	if req.ReminderDays != nil {
		b.ReminderDays = *req.ReminderDays
	}
	if req.Notes != nil {
		b.Notes = *req.Notes
	}
}

func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	bills, err := h.reminders.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}
	writeJSON(w, http.StatusOK, reminder.Annotate(bills, h.service.Today()))
}

func (h *ReminderHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	bills, err := h.reminders.ListUnpaid(r.Context(), auth.UserID(r.Context()), upcomingLimit)
	if err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}
	writeJSON(w, http.StatusOK, reminder.Annotate(bills, h.service.Today()))
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	userID := auth.UserID(r.Context())
	bill := model.BillReminder{
		UserID:       userID,
		Category:     model.DefaultReminderCategory,
		ReminderDays: model.DefaultReminderDays,
	}
	req.apply(&bill)
	if err := reminder.Normalize(&bill); err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}

	created, err := h.reminders.Create(r.Context(), bill)
	if err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}

	publish(h.hub, userID, "reminder", "created", created.ID)
	writeJSON(w, http.StatusCreated, reminder.View(*created, h.service.Today()))
}

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	existing, err := h.reminders.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "Reminder not found")
		return
	}

	var req reminderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.apply(existing)
	if err := reminder.Normalize(existing); err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}

	updated, err := h.reminders.Update(r.Context(), *existing)
	if err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}

	publish(h.hub, userID, "reminder", "updated", updated.ID)
	writeJSON(w, http.StatusOK, reminder.View(*updated, h.service.Today()))
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	if err := h.reminders.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}

	publish(h.hub, userID, "reminder", "deleted", id)
	writeMessage(w, http.StatusOK, "Reminder deleted successfully")
}

func (h *ReminderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	userID := auth.UserID(r.Context())

	res, err := h.service.MarkPaid(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err, "Reminder not found")
		return
	}

	publish(h.hub, userID, "reminder", "paid", id)
	publish(h.hub, userID, "expense", "created", res.Expense.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  res.Message,
		"reminder": reminder.View(res.Reminder, h.service.Today()),
	})
}
