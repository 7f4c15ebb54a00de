package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/middleware"
	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/reminder"
	"github.com/dukerupert/billfold/internal/store"
	"github.com/dukerupert/billfold/internal/websocket"
)

type messageBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageBody{Message: message})
}

// writeError translates err into a response. Validation failures, missing
// rows and conflicts keep their meaning; anything else is logged and hidden
// behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, messageBody{Message: verr.Message, Field: verr.Field})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, reminder.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFound)
	case errors.Is(err, reminder.ErrAlreadyPaid):
		writeMessage(w, http.StatusConflict, "Bill is already paid")
	case errors.Is(err, reminder.ErrConflict), errors.Is(err, store.ErrConflict):
		writeMessage(w, http.StatusConflict, "Record was modified, please retry")
	case errors.Is(err, store.ErrDuplicate):
		writeMessage(w, http.StatusConflict, "Record already exists")
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", auth.UserID(r.Context()),
			"request_id", middleware.RequestID(r.Context()),
			"error", err,
		)
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parsePeriod reads the month and year query parameters. A missing,
// non-numeric or zero value falls back to today's month or year; a number
// outside the calendar range is rejected.
func parsePeriod(r *http.Request, today model.Date) (int, int, error) {
	month, year := int(today.Month()), today.Year()
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m != 0 {
		if m < 1 || m > 12 {
			return 0, 0, model.Invalid("month", "month must be between 1 and 12")
		}
		month = m
	}
	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y != 0 {
		if y < 1 || y > 9999 {
			return 0, 0, model.Invalid("year", "year must be between 1 and 9999")
		}
		year = y
	}
	return month, year, nil
}

// Publisher fans a change notification out to the owner's live connections.
type Publisher interface {
	Publish(userID int64, msg websocket.Message)
}

func publish(hub Publisher, userID int64, entity, action string, id int64) {
	if hub != nil {
		hub.Publish(userID, websocket.NewMessage(entity, action, id))
	}
}
