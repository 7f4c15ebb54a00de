package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Transaction is a single income or expense row.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        Date            `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RecentTransaction is a dashboard row tagged with its kind.
type RecentTransaction struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Date      Date            `json:"date"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"-"`
}

type DayTotal struct {
	Day   Date            `json:"day"`
	Total decimal.Decimal `json:"total"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// LedgerSummary aggregates one owner's incomes or expenses.
type LedgerSummary struct {
	Total      decimal.Decimal `json:"total"`
	Daily      []DayTotal      `json:"daily"`
	ByCategory []CategoryTotal `json:"by_category"`
}
