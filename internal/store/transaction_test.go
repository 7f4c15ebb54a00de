package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/billfold/internal/model"
)

func TestTransactionCRUD(t *testing.T) {
	db := setupTestDB(t)
	es := NewExpenseStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db, "a@example.com")

	created, err := es.Create(ctx, model.Transaction{
		UserID: uid, Title: "Lunch", Amount: dec("12.40"), Category: "Food",
		Date: model.NewDate(2024, time.March, 3),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Title != "Lunch" || created.Date.String() != "2024-03-03" {
		t.Errorf("created = %+v", created)
	}

	created.Title = "Dinner"
	created.Amount = dec("30")
	updated, err := es.Update(ctx, *created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Dinner" || !updated.Amount.Equal(dec("30")) {
		t.Errorf("updated = %+v", updated)
	}

	if err := es.Delete(ctx, uid, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := es.Update(ctx, *created); !errors.Is(err, ErrNotFound) {
		t.Errorf("update deleted err = %v, want ErrNotFound", err)
	}
}

func TestIncomesAndExpensesAreSeparate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	uid := createTestUser(t, db, "a@example.com")

	if _, err := NewIncomeStore(db).Create(ctx, model.Transaction{
		UserID: uid, Title: "Salary", Amount: dec("2000"), Category: "Work", Date: model.NewDate(2024, time.March, 1),
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}
	expenses, err := NewExpenseStore(db).List(ctx, uid)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("expenses = %d, want 0", len(expenses))
	}
}

func TestSpendingByCategory(t *testing.T) {
	db := setupTestDB(t)
	es := NewExpenseStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db, "a@example.com")
	other := createTestUser(t, db, "b@example.com")

	add := func(owner int64, cat, amount string, d model.Date) {
		t.Helper()
		if _, err := es.Create(ctx, model.Transaction{UserID: owner, Title: "x", Amount: dec(amount), Category: cat, Date: d}); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}
	add(uid, "Food", "10.10", model.NewDate(2024, time.March, 1))
	add(uid, "Food", "0.20", model.NewDate(2024, time.March, 31))
	add(uid, "Rent", "900", model.NewDate(2024, time.March, 15))
	add(uid, "Food", "99", model.NewDate(2024, time.April, 1))
	add(uid, "Food", "99", model.NewDate(2024, time.February, 29))
	add(other, "Food", "500", model.NewDate(2024, time.March, 10))

	from, to := model.MonthRange(3, 2024)
	totals, err := es.SpendingByCategory(ctx, uid, from, to)
	if err != nil {
		t.Fatalf("spending by category: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("categories = %d, want 2", len(totals))
	}
	if !totals["Food"].Equal(dec("10.30")) {
		t.Errorf("Food = %s, want 10.30", totals["Food"])
	}
	if !totals["Rent"].Equal(dec("900")) {
		t.Errorf("Rent = %s, want 900", totals["Rent"])
	}
}

func TestSummaryAndRecent(t *testing.T) {
	db := setupTestDB(t)
	es := NewExpenseStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db, "a@example.com")

	since := model.NewDate(2024, time.March, 10)
	for i, row := range []struct {
		cat, amount string
		d           model.Date
	}{
		{"Food", "5", since.AddDays(-3)},
		{"Food", "7", since},
		{"Rent", "100", since.AddDays(2)},
		{"Food", "1", since.AddDays(2)},
	} {
		if _, err := es.Create(ctx, model.Transaction{UserID: uid, Title: "t", Amount: dec(row.amount), Category: row.cat, Date: row.d}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	sum, err := es.Summary(ctx, uid, since)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !sum.Total.Equal(dec("113")) {
		t.Errorf("total = %s, want 113", sum.Total)
	}
	if len(sum.Daily) != 2 {
		t.Fatalf("daily = %d, want 2", len(sum.Daily))
	}
	if !sum.Daily[1].Total.Equal(dec("101")) {
		t.Errorf("daily[1] = %s, want 101", sum.Daily[1].Total)
	}
	if sum.ByCategory[0].Category != "Rent" {
		t.Errorf("top category = %q, want Rent", sum.ByCategory[0].Category)
	}

	recent, err := es.Recent(ctx, uid, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d, want 2", len(recent))
	}
	if recent[0].Type != model.KindExpense {
		t.Errorf("type = %q, want %q", recent[0].Type, model.KindExpense)
	}
	if recent[0].Date.String() != "2024-03-12" {
		t.Errorf("recent[0].date = %q, want 2024-03-12", recent[0].Date)
	}
}
