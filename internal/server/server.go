package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/budget"
	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/handler"
	"github.com/dukerupert/billfold/internal/middleware"
	"github.com/dukerupert/billfold/internal/push"
	"github.com/dukerupert/billfold/internal/reminder"
	"github.com/dukerupert/billfold/internal/store"
	ws "github.com/dukerupert/billfold/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	DB             *database.DB
	Tokens         *auth.Issuer
	Mailer         handler.ResetMailer
	Push           *push.Service
	Today          reminder.Clock
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Server struct {
	db          *database.DB
	hub         *ws.Hub
	tokens      *auth.Issuer
	origins     []string
	authH       *handler.AuthHandler
	reminderH   *handler.ReminderHandler
	budgetH     *handler.BudgetHandler
	expenseH    *handler.TransactionHandler
	incomeH     *handler.TransactionHandler
	savingsH    *handler.SavingsHandler
	dashboardH  *handler.DashboardHandler
	categoryH   *handler.CategoryHandler
	pushH       *handler.PushHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(d Deps) *Server {
	logger := d.Logger
	db := d.DB
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	reminderStore := store.NewReminderStore(db)
	budgetStore := store.NewBudgetStore(db)
	expenseStore := store.NewExpenseStore(db)
	incomeStore := store.NewIncomeStore(db)
	savingsStore := store.NewSavingsStore(db)

	reminders := reminder.NewService(reminderStore, d.Today, logger.With("component", "reminder"))
	aggregator := budget.NewAggregator(budgetStore, expenseStore)

	var pushH *handler.PushHandler
	if d.Push != nil && d.Push.Configured() {
		pushH = handler.NewPushHandler(store.NewPushStore(db), d.Push, logger.With("component", "push_handler"))
	}

	return &Server{
		db:          db,
		hub:         hub,
		tokens:      d.Tokens,
		origins:     d.AllowedOrigins,
		authH:       handler.NewAuthHandler(userStore, d.Tokens, d.Mailer, logger.With("component", "auth")),
		reminderH:   handler.NewReminderHandler(reminderStore, reminders, hub, logger.With("component", "reminder_handler")),
		budgetH:     handler.NewBudgetHandler(budgetStore, aggregator, d.Today, hub, logger.With("component", "budget")),
		expenseH:    handler.NewExpenseHandler(expenseStore, hub, logger.With("component", "expense")),
		incomeH:     handler.NewIncomeHandler(incomeStore, hub, logger.With("component", "income")),
		savingsH:    handler.NewSavingsHandler(savingsStore, d.Today, hub, logger.With("component", "savings")),
		dashboardH:  handler.NewDashboardHandler(incomeStore, expenseStore, savingsStore, d.Today, logger.With("component", "dashboard")),
		categoryH:   handler.NewCategoryHandler(),
		pushH:       pushH,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Hub returns the websocket hub so it can be closed on shutdown.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /api/health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/signup", s.rateLimitedHandler(s.authH.Signup))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/forgot-password", s.rateLimitedHandler(s.authH.ForgotPassword))
	outerMux.HandleFunc("GET /api/auth/verify-reset-token/{token}", s.rateLimitedHandler(s.authH.VerifyResetToken))
	outerMux.HandleFunc("POST /api/auth/reset-password/{token}", s.rateLimitedHandler(s.authH.ResetPassword))

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	h := middleware.CORS(s.origins)(outerMux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	return middleware.RateLimit(s.rateLimiter, middleware.RouteIP, authRateLimit, authRateWindow)(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("PUT /api/auth/me", s.authH.UpdateMe)

	// Bill reminders
	mux.HandleFunc("GET /api/reminders", s.reminderH.List)
	mux.HandleFunc("GET /api/reminders/upcoming", s.reminderH.Upcoming)
	mux.HandleFunc("POST /api/reminders", s.reminderH.Create)
	mux.HandleFunc("PUT /api/reminders/{id}", s.reminderH.Update)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.reminderH.Delete)
	mux.HandleFunc("POST /api/reminders/{id}/mark-paid", s.reminderH.MarkPaid)

	// Budgets
	mux.HandleFunc("GET /api/budgets", s.budgetH.List)
	mux.HandleFunc("GET /api/budgets/status", s.budgetH.Status)
	mux.HandleFunc("POST /api/budgets", s.budgetH.Create)
	mux.HandleFunc("PUT /api/budgets/{id}", s.budgetH.Update)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.budgetH.Delete)

	// Ledgers
	mux.HandleFunc("GET /api/expenses", s.expenseH.List)
	mux.HandleFunc("POST /api/expenses", s.expenseH.Create)
	mux.HandleFunc("PUT /api/expenses/{id}", s.expenseH.Update)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.expenseH.Delete)
	mux.HandleFunc("GET /api/incomes", s.incomeH.List)
	mux.HandleFunc("POST /api/incomes", s.incomeH.Create)
	mux.HandleFunc("PUT /api/incomes/{id}", s.incomeH.Update)
	mux.HandleFunc("DELETE /api/incomes/{id}", s.incomeH.Delete)

	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Get)

	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.HandleFunc("GET /api/categories/suggest", s.categoryH.Suggest)

	// Savings goals
	mux.HandleFunc("GET /api/savings", s.savingsH.List)
	mux.HandleFunc("POST /api/savings", s.savingsH.Create)
	mux.HandleFunc("PUT /api/savings/{id}", s.savingsH.Update)
	mux.HandleFunc("DELETE /api/savings/{id}", s.savingsH.Delete)
	mux.HandleFunc("POST /api/savings/{id}/contribute", s.savingsH.Contribute)
	mux.HandleFunc("GET /api/savings/{id}/contributions", s.savingsH.Contributions)

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	mux.HandleFunc("GET /api/ws", ws.Handler(s.hub, s.origins, s.logger.With("component", "websocket")))
}
