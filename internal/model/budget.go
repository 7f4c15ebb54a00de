package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BudgetGoal struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Month     int             `json:"month"`
	Year      int             `json:"year"`
	CreatedAt time.Time       `json:"created_at"`
}

// BudgetStatus is a budget goal annotated with the month's actual spend.
type BudgetStatus struct {
	BudgetGoal
	Spent      decimal.Decimal `json:"spent"`
	Percentage int             `json:"percentage"`
}
