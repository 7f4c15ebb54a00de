package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultSavingsIcon = "💰"

type SavingsGoal struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Title         string          `json:"title"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      Date            `json:"deadline"`
	Icon          string          `json:"icon"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Progress returns the rounded percentage of the target reached and the
// amount still missing. A zero target reports 0%.
func (g SavingsGoal) Progress() (int, decimal.Decimal) {
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if g.TargetAmount.IsZero() {
		return 0, remaining
	}
	pct := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart()), remaining
}

type SavingsContribution struct {
	ID        int64           `json:"id"`
	GoalID    int64           `json:"goal_id"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
	Date      Date            `json:"date"`
	CreatedAt time.Time       `json:"created_at"`
}
