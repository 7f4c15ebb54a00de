package budget

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/model"
)

// ErrAggregation wraps any store failure met while computing a status.
var ErrAggregation = errors.New("aggregation failed")

var hundred = decimal.NewFromInt(100)

// GoalLister reads budget goals for one period.
type GoalLister interface {
	ListByPeriod(ctx context.Context, userID int64, month, year int) ([]model.BudgetGoal, error)
}

// SpendingReader sums expenses per category over a half-open date range.
type SpendingReader interface {
	SpendingByCategory(ctx context.Context, userID int64, from, to model.Date) (map[string]decimal.Decimal, error)
}

type Aggregator struct {
	goals    GoalLister
	spending SpendingReader
}

func NewAggregator(goals GoalLister, spending SpendingReader) *Aggregator {
	return &Aggregator{goals: goals, spending: spending}
}

// Status reports each of the owner's budget goals for month/year alongside
// what was actually spent in that category during the month.
func (a *Aggregator) Status(ctx context.Context, userID int64, month, year int) ([]model.BudgetStatus, error) {
	if month < 1 || month > 12 {
		return nil, model.Invalid("month", "month must be between 1 and 12")
	}

	goals, err := a.goals.ListByPeriod(ctx, userID, month, year)
	if err != nil {
		return nil, fmt.Errorf("%w: list goals: %w", ErrAggregation, err)
	}
	if len(goals) == 0 {
		return []model.BudgetStatus{}, nil
	}

	from, to := model.MonthRange(month, year)
	spending, err := a.spending.SpendingByCategory(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: sum spending: %w", ErrAggregation, err)
	}

	return Summarize(goals, spending), nil
}

// Summarize joins goals with per-category spending. Categories with no
// spending report zero. The result is ordered by category.
func Summarize(goals []model.BudgetGoal, spending map[string]decimal.Decimal) []model.BudgetStatus {
	out := make([]model.BudgetStatus, 0, len(goals))
	for _, g := range goals {
		spent := spending[g.Category]
		out = append(out, model.BudgetStatus{
			BudgetGoal: g,
			Spent:      spent,
			Percentage: Percentage(spent, g.Amount),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Percentage returns spent as a whole percentage of limit, rounded half
// away from zero and not capped at 100. It is 0 when nothing was spent or
// the limit is zero.
func Percentage(spent, limit decimal.Decimal) int {
	if spent.IsZero() || limit.IsZero() {
		return 0
	}
	return int(spent.Div(limit).Mul(hundred).Round(0).IntPart())
}
