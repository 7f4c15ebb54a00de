package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/reminder"
	"github.com/dukerupert/billfold/internal/store"
	"github.com/dukerupert/billfold/internal/websocket"
)

func setupReminderHandler(t *testing.T) (*ReminderHandler, *database.DB, int64) {
	t.Helper()
	db := setupTestDB(t)
	userID := createTestUser(t, db, "ana@example.com")
	rs := store.NewReminderStore(db)
	svc := reminder.NewService(rs, testClock(), discardLogger())
	return NewReminderHandler(rs, svc, nil, discardLogger()), db, userID
}

func createReminder(t *testing.T, h *ReminderHandler, userID int64, body string) model.ReminderView {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/reminders", body, userID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reminder: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var view model.ReminderView
	decodeBody(t, rec, &view)
	return view
}

func TestReminderCreateDefaults(t *testing.T) {
	h, _, userID := setupReminderHandler(t)

	view := createReminder(t, h, userID, `{"title":"Rent","amount":1200,"due_date":"2026-03-15"}`)

	if view.Category != model.DefaultReminderCategory {
		t.Errorf("expected category %q, got %q", model.DefaultReminderCategory, view.Category)
	}
	if view.ReminderDays != model.DefaultReminderDays {
		t.Errorf("expected reminder_days %d, got %d", model.DefaultReminderDays, view.ReminderDays)
	}
	if view.IsRecurring || view.RecurringInterval != "" {
		t.Errorf("expected one-off bill, got recurring=%v interval=%q", view.IsRecurring, view.RecurringInterval)
	}
	if view.Status != string(reminder.StatusUpcoming) || view.DaysUntilDue != 5 {
		t.Errorf("expected upcoming in 5 days, got %s in %d", view.Status, view.DaysUntilDue)
	}
	if view.UserID != userID {
		t.Errorf("expected owner %d, got %d", userID, view.UserID)
	}
}

func TestReminderCreateValidation(t *testing.T) {
	h, _, userID := setupReminderHandler(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing title", `{"amount":10,"due_date":"2026-03-15"}`, "title"},
		{"zero amount", `{"title":"Gym","amount":0,"due_date":"2026-03-15"}`, "amount"},
		{"missing due date", `{"title":"Gym","amount":10}`, "due_date"},
		{"recurring without interval", `{"title":"Gym","amount":10,"due_date":"2026-03-15","is_recurring":true}`, "recurring_interval"},
		{"unknown interval", `{"title":"Gym","amount":10,"due_date":"2026-03-15","is_recurring":true,"recurring_interval":"daily"}`, "recurring_interval"},
		{"negative reminder days", `{"title":"Gym","amount":10,"due_date":"2026-03-15","reminder_days":-1}`, "reminder_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, newRequest(http.MethodPost, "/api/reminders", tt.body, userID))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decodeMessage(t, rec).Field; got != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, got)
			}
		})
	}
}

func TestReminderCreateInvalidJSON(t *testing.T) {
	h, _, userID := setupReminderHandler(t)

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/reminders", `{"title":`, userID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReminderCreateClearsIntervalWhenNotRecurring(t *testing.T) {
	h, _, userID := setupReminderHandler(t)

	view := createReminder(t, h, userID,
		`{"title":"Gym","amount":10,"due_date":"2026-03-15","is_recurring":false,"recurring_interval":"monthly"}`)
	if view.RecurringInterval != "" {
		t.Errorf("expected interval cleared, got %q", view.RecurringInterval)
	}
}

func TestReminderListAnnotated(t *testing.T) {
	h, _, userID := setupReminderHandler(t)

	createReminder(t, h, userID, `{"title":"Later","amount":5,"due_date":"2026-03-20"}`)
	createReminder(t, h, userID, `{"title":"Late","amount":5,"due_date":"2026-03-01"}`)
	createReminder(t, h, userID, `{"title":"Today","amount":5,"due_date":"2026-03-10"}`)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/reminders", "", userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var views []model.ReminderView
	decodeBody(t, rec, &views)

	want := []struct {
		title  string
		status reminder.Status
		days   int
	}{
		{"Late", reminder.StatusOverdue, -9},
		{"Today", reminder.StatusDueToday, 0},
		{"Later", reminder.StatusUpcoming, 10},
	}
	if len(views) != len(want) {
		t.Fatalf("expected %d reminders, got %d", len(want), len(views))
	}
	for i, w := range want {
		if views[i].Title != w.title || views[i].Status != string(w.status) || views[i].DaysUntilDue != w.days {
			t.Errorf("reminder %d: got %s/%s/%d, want %s/%s/%d",
				i, views[i].Title, views[i].Status, views[i].DaysUntilDue, w.title, w.status, w.days)
		}
	}
}

func TestReminderListEmpty(t *testing.T) {
	h, _, userID := setupReminderHandler(t)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/reminders", "", userID))
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestReminderUpcomingSkipsPaidAndLimits(t *testing.T) {
	h, db, userID := setupReminderHandler(t)

	for i := 0; i < 6; i++ {
		createReminder(t, h, userID, `{"title":"Bill","amount":5,"due_date":"2026-03-20"}`)
	}
	paid := createReminder(t, h, userID, `{"title":"Paid","amount":5,"due_date":"2026-03-11"}`)
	paid.IsPaid = true
	if _, err := store.NewReminderStore(db).Update(context.Background(), paid.BillReminder); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Upcoming(rec, newRequest(http.MethodGet, "/api/reminders/upcoming", "", userID))
	var views []model.ReminderView
	decodeBody(t, rec, &views)

	if len(views) != upcomingLimit {
		t.Fatalf("expected %d upcoming, got %d", upcomingLimit, len(views))
	}
	for _, v := range views {
		if v.IsPaid {
			t.Errorf("upcoming included paid reminder %d", v.ID)
		}
	}
}

func TestReminderUpdatePartial(t *testing.T) {
	h, _, userID := setupReminderHandler(t)
	created := createReminder(t, h, userID, `{"title":"Phone","amount":45.5,"due_date":"2026-03-15","notes":"family plan"}`)

	rec := httptest.NewRecorder()
	r := withID(newRequest(http.MethodPut, "/api/reminders/x", `{"amount":50}`, userID), itoa(created.ID))
	h.Update(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view model.ReminderView
	decodeBody(t, rec, &view)

	if !view.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected amount 50, got %s", view.Amount)
	}
	if view.Title != "Phone" || view.Notes != "family plan" || !view.DueDate.Equal(created.DueDate) {
		t.Errorf("absent fields changed: %+v", view.BillReminder)
	}
}

func TestReminderUpdateOtherOwner(t *testing.T) {
	h, _, userID := setupReminderHandler(t)
	created := createReminder(t, h, userID, `{"title":"Phone","amount":45,"due_date":"2026-03-15"}`)

	rec := httptest.NewRecorder()
	r := withID(newRequest(http.MethodPut, "/api/reminders/x", `{"amount":1}`, userID+100), itoa(created.ID))
	h.Update(rec, r)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec).Message; got != "Reminder not found" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestReminderDelete(t *testing.T) {
	h, _, userID := setupReminderHandler(t)
	created := createReminder(t, h, userID, `{"title":"Phone","amount":45,"due_date":"2026-03-15"}`)

	rec := httptest.NewRecorder()
	h.Delete(rec, withID(newRequest(http.MethodDelete, "/api/reminders/x", "", userID), itoa(created.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec).Message; got != "Reminder deleted successfully" {
		t.Errorf("unexpected message %q", got)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, withID(newRequest(http.MethodDelete, "/api/reminders/x", "", userID), itoa(created.ID)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestReminderInvalidID(t *testing.T) {
	h, _, userID := setupReminderHandler(t)

	rec := httptest.NewRecorder()
	h.Delete(rec, withID(newRequest(http.MethodDelete, "/api/reminders/abc", "", userID), "abc"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

type markPaidResponse struct {
	Message  string             `json:"message"`
	Reminder model.ReminderView `json:"reminder"`
}

func TestReminderMarkPaidRecurring(t *testing.T) {
	h, db, userID := setupReminderHandler(t)
	created := createReminder(t, h, userID,
		`{"title":"Internet","amount":60,"category":"Utilities","due_date":"2026-03-15","is_recurring":true,"recurring_interval":"monthly"}`)

	rec := httptest.NewRecorder()
	h.MarkPaid(rec, withID(newRequest(http.MethodPost, "/api/reminders/x/mark-paid", "", userID), itoa(created.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp markPaidResponse
	decodeBody(t, rec, &resp)

	if resp.Message != reminder.MessagePaidAdvanced {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if got := resp.Reminder.DueDate.String(); got != "2026-04-15" {
		t.Errorf("expected next due 2026-04-15, got %s", got)
	}
	if resp.Reminder.IsPaid {
		t.Error("recurring reminder should stay unpaid")
	}
	if got := resp.Reminder.LastPaidDate.String(); got != "2026-03-10" {
		t.Errorf("expected last paid 2026-03-10, got %s", got)
	}

	expenses, err := store.NewExpenseStore(db).List(context.Background(), userID)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Title != "Internet" || expenses[0].Category != "Utilities" {
		t.Fatalf("expected one Internet expense, got %+v", expenses)
	}
}

type recordingPublisher struct {
	msgs []websocket.Message
}

func (p *recordingPublisher) Publish(userID int64, msg websocket.Message) {
	p.msgs = append(p.msgs, msg)
}

func TestReminderMarkPaidPublishesExpenseID(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "ana@example.com")
	rs := store.NewReminderStore(db)
	pub := &recordingPublisher{}
	h := NewReminderHandler(rs, reminder.NewService(rs, testClock(), discardLogger()), pub, discardLogger())
	created := createReminder(t, h, userID, `{"title":"Water","amount":35,"due_date":"2026-03-11"}`)

	rec := httptest.NewRecorder()
	h.MarkPaid(rec, withID(newRequest(http.MethodPost, "/api/reminders/x/mark-paid", "", userID), itoa(created.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	expenses, err := store.NewExpenseStore(db).List(context.Background(), userID)
	if err != nil || len(expenses) != 1 {
		t.Fatalf("expected one expense, got %d (%v)", len(expenses), err)
	}
	var expenseMsg *websocket.Message
	for i := range pub.msgs {
		if pub.msgs[i].Type == "expense_created" {
			expenseMsg = &pub.msgs[i]
		}
	}
	if expenseMsg == nil {
		t.Fatalf("no expense_created message in %+v", pub.msgs)
	}
	if expenseMsg.ID != expenses[0].ID {
		t.Errorf("expense_created id = %d, want %d", expenseMsg.ID, expenses[0].ID)
	}
}

func TestReminderMarkPaidOneOffTwice(t *testing.T) {
	h, _, userID := setupReminderHandler(t)
	created := createReminder(t, h, userID, `{"title":"Car tax","amount":180,"due_date":"2026-03-12"}`)

	rec := httptest.NewRecorder()
	h.MarkPaid(rec, withID(newRequest(http.MethodPost, "/api/reminders/x/mark-paid", "", userID), itoa(created.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp markPaidResponse
	decodeBody(t, rec, &resp)
	if resp.Message != reminder.MessagePaid || !resp.Reminder.IsPaid || resp.Reminder.Status != string(reminder.StatusPaid) {
		t.Errorf("unexpected first payment response %+v", resp)
	}

	rec = httptest.NewRecorder()
	h.MarkPaid(rec, withID(newRequest(http.MethodPost, "/api/reminders/x/mark-paid", "", userID), itoa(created.ID)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second payment, got %d", rec.Code)
	}
}

func TestReminderMarkPaidNotFound(t *testing.T) {
	h, _, userID := setupReminderHandler(t)

	rec := httptest.NewRecorder()
	h.MarkPaid(rec, withID(newRequest(http.MethodPost, "/api/reminders/999/mark-paid", "", userID), "999"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
