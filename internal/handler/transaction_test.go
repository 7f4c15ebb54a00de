package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/store"
)

func setupExpenseHandler(t *testing.T) (*TransactionHandler, int64) {
	t.Helper()
	db := setupTestDB(t)
	userID := createTestUser(t, db, "ana@example.com")
	return NewExpenseHandler(store.NewExpenseStore(db), nil, discardLogger()), userID
}

func createTransaction(t *testing.T, h *TransactionHandler, userID int64, body string) model.Transaction {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/expenses", body, userID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var txn model.Transaction
	decodeBody(t, rec, &txn)
	return txn
}

func TestExpenseCreate(t *testing.T) {
	h, userID := setupExpenseHandler(t)

	txn := createTransaction(t, h, userID, `{"title":" Coffee ","amount":"3.20","date":"2026-03-09"}`)
	if txn.Title != "Coffee" {
		t.Errorf("expected trimmed title, got %q", txn.Title)
	}
	if txn.Category != defaultTransactionCategory {
		t.Errorf("expected default category, got %q", txn.Category)
	}
	if !txn.Amount.Equal(decimal.RequireFromString("3.20")) {
		t.Errorf("expected 3.20, got %s", txn.Amount)
	}
	if txn.Date.String() != "2026-03-09" {
		t.Errorf("expected 2026-03-09, got %s", txn.Date)
	}
}

func TestExpenseCreateValidation(t *testing.T) {
	h, userID := setupExpenseHandler(t)

	tests := []struct {
		body      string
		wantField string
	}{
		{`{"amount":3,"date":"2026-03-09"}`, "title"},
		{`{"title":"Coffee","amount":-3,"date":"2026-03-09"}`, "amount"},
		{`{"title":"Coffee","amount":3.199,"date":"2026-03-09"}`, "amount"},
		{`{"title":"Coffee","amount":3}`, "date"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.Create(rec, newRequest(http.MethodPost, "/api/expenses", tt.body, userID))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tt.body, rec.Code)
			continue
		}
		if got := decodeMessage(t, rec).Field; got != tt.wantField {
			t.Errorf("%s: expected field %q, got %q", tt.body, tt.wantField, got)
		}
	}
}

func TestExpenseListNewestFirst(t *testing.T) {
	h, userID := setupExpenseHandler(t)
	createTransaction(t, h, userID, `{"title":"Old","amount":1,"date":"2026-03-01"}`)
	createTransaction(t, h, userID, `{"title":"New","amount":1,"date":"2026-03-08"}`)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/expenses", "", userID))
	var txns []model.Transaction
	decodeBody(t, rec, &txns)
	if len(txns) != 2 || txns[0].Title != "New" || txns[1].Title != "Old" {
		t.Fatalf("unexpected order %+v", txns)
	}
}

func TestExpenseUpdateReplaces(t *testing.T) {
	h, userID := setupExpenseHandler(t)
	txn := createTransaction(t, h, userID, `{"title":"Coffee","amount":3,"category":"Food","description":"latte","date":"2026-03-09"}`)

	rec := httptest.NewRecorder()
	body := `{"title":"Tea","amount":2.5,"date":"2026-03-10"}`
	h.Update(rec, withID(newRequest(http.MethodPut, "/api/expenses/x", body, userID), itoa(txn.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated model.Transaction
	decodeBody(t, rec, &updated)
	if updated.Title != "Tea" || updated.Description != "" || updated.Category != defaultTransactionCategory {
		t.Errorf("expected full replacement, got %+v", updated)
	}
}

func TestExpenseUpdateOtherOwner(t *testing.T) {
	h, userID := setupExpenseHandler(t)
	txn := createTransaction(t, h, userID, `{"title":"Coffee","amount":3,"date":"2026-03-09"}`)

	rec := httptest.NewRecorder()
	body := `{"title":"Tea","amount":2.5,"date":"2026-03-10"}`
	h.Update(rec, withID(newRequest(http.MethodPut, "/api/expenses/x", body, userID+1), itoa(txn.ID)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec).Message; got != "Expense not found" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestIncomeDelete(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "ana@example.com")
	h := NewIncomeHandler(store.NewIncomeStore(db), nil, discardLogger())

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/incomes", `{"title":"Salary","amount":3000,"date":"2026-03-01"}`, userID))
	var txn model.Transaction
	decodeBody(t, rec, &txn)

	rec = httptest.NewRecorder()
	h.Delete(rec, withID(newRequest(http.MethodDelete, "/api/incomes/x", "", userID), itoa(txn.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec).Message; got != "Income deleted successfully" {
		t.Errorf("unexpected message %q", got)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, withID(newRequest(http.MethodDelete, "/api/incomes/x", "", userID), itoa(txn.ID)))
	if got := decodeMessage(t, rec).Message; rec.Code != http.StatusNotFound || got != "Income not found" {
		t.Errorf("expected 404 Income not found, got %d %q", rec.Code, got)
	}
}
