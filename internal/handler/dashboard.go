package handler

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/model"
	"github.com/dukerupert/billfold/internal/reminder"
	"github.com/dukerupert/billfold/internal/store"
)

const (
	dashboardDays        = 7
	recentPerLedger      = 5
	recentTransactionMax = 10
)

type DashboardHandler struct {
	incomes  *store.TransactionStore
	expenses *store.TransactionStore
	savings  *store.SavingsStore
	today    reminder.Clock
	logger   *slog.Logger
}

func NewDashboardHandler(incomes, expenses *store.TransactionStore, savings *store.SavingsStore, today reminder.Clock, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{incomes: incomes, expenses: expenses, savings: savings, today: today, logger: logger}
}

type dashboardSummary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
	TotalSaved   decimal.Decimal `json:"total_saved"`
}

type dailyData struct {
	Income  []model.DayTotal `json:"income"`
	Expense []model.DayTotal `json:"expense"`
}

type categoryData struct {
	Income  []model.CategoryTotal `json:"income"`
	Expense []model.CategoryTotal `json:"expense"`
}

type dashboardResponse struct {
	Summary            dashboardSummary          `json:"summary"`
	DailyData          dailyData                 `json:"daily_data"`
	RecentTransactions []model.RecentTransaction `json:"recent_transactions"`
	CategoryData       categoryData              `json:"category_data"`
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	since := h.today().AddDays(-dashboardDays)

	income, err := h.incomes.Summary(ctx, userID, since)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	expense, err := h.expenses.Summary(ctx, userID, since)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	saved, err := h.savings.TotalSaved(ctx, userID)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}

	recentIncome, err := h.incomes.Recent(ctx, userID, recentPerLedger)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	recentExpense, err := h.expenses.Recent(ctx, userID, recentPerLedger)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Summary: dashboardSummary{
			TotalIncome:  income.Total,
			TotalExpense: expense.Total,
			Balance:      income.Total.Sub(expense.Total),
			TotalSaved:   saved,
		},
		DailyData:          dailyData{Income: income.Daily, Expense: expense.Daily},
		RecentTransactions: mergeRecent(recentIncome, recentExpense, recentTransactionMax),
		CategoryData:       categoryData{Income: income.ByCategory, Expense: expense.ByCategory},
	})
}

// mergeRecent interleaves two recent lists by date, newest first.
func mergeRecent(a, b []model.RecentTransaction, limit int) []model.RecentTransaction {
	merged := make([]model.RecentTransaction, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Date.Equal(merged[j].Date) {
			return merged[i].Date.After(merged[j].Date)
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
