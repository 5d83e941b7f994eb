package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles the use cases the API exposes.
type Services struct {
	Tenants      *service.TenantService
	Categories   *service.CategoryService
	Transactions *service.TransactionService
	MonthEnd     *service.MonthEndService
	Accounts     *service.AccountService
	Borrowings   *service.BorrowingService
	Reminders    *service.ReminderService
	Reports      *service.ReportService
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the router.
type Options struct {
	// JWTSecret enables tenant token checks when non-empty.
	JWTSecret []byte
	// Store is pinged by /healthz and /readyz. Nil means always healthy.
	Store Pinger
	// Backend names the store in health output.
	Backend string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts, logger))
	r.Get("/readyz", readyzHandler(opts.Store, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1/tenants", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireToken(opts.JWTSecret, logger))
			r.Post("/", createTenantHandler(svc.Tenants, logger))
			r.Get("/", listTenantsHandler(svc.Tenants, logger))
		})

		r.Route("/{tenantId}", func(r chi.Router) {
			r.Use(TenantAuthMiddleware(opts.JWTSecret, logger))
			r.Use(RequireTenant(svc.Tenants, logger))

			r.Get("/", getTenantHandler(svc.Tenants, logger))

			// Categories and budgets
			r.Get("/categories", listCategoriesHandler(svc.Categories, logger))
			r.Post("/categories", createCategoryHandler(svc.Categories, logger))
			r.Get("/categories/{categoryId}", getCategoryHandler(svc.Categories, logger))
			r.Put("/categories/{categoryId}", updateCategoryHandler(svc.Categories, logger))
			r.Delete("/categories/{categoryId}", deleteCategoryHandler(svc.Categories, logger))
			r.Put("/categories/{categoryId}/budgets/{month}", setBudgetHandler(svc.Categories, logger))
			r.Post("/budgets/{month}/carry-forward", carryForwardHandler(svc.Categories, logger))

			// Transactions
			r.Get("/transactions", listTransactionsHandler(svc.Transactions, logger))
			r.Post("/transactions", createTransactionHandler(svc.Transactions, logger))
			r.Post("/transactions/bulk", bulkCreateTransactionsHandler(svc.Transactions, logger))
			r.Post("/transactions/bulk-delete", bulkDeleteTransactionsHandler(svc.Transactions, logger))
			r.Get("/transactions/{transactionId}", getTransactionHandler(svc.Transactions, logger))
			r.Put("/transactions/{transactionId}", updateTransactionHandler(svc.Transactions, logger))
			r.Delete("/transactions/{transactionId}", deleteTransactionHandler(svc.Transactions, logger))

			// Month-end
			r.Get("/month-end/{year}/{month}/preview", previewMonthEndHandler(svc.MonthEnd, logger))
			r.Post("/month-end/{year}/{month}", processMonthEndHandler(svc.MonthEnd, logger))
			r.Get("/month-locks", listMonthLocksHandler(svc.MonthEnd, logger))

			// Virtual accounts
			r.Get("/virtual-accounts", listVirtualAccountsHandler(svc.Accounts, logger))
			r.Get("/virtual-accounts/{accountId}", getVirtualAccountHandler(svc.Accounts, logger))
			r.Get("/virtual-accounts/{accountId}/transactions", listAccountTransactionsHandler(svc.Accounts, logger))
			r.Post("/virtual-accounts/{accountId}/withdraw", withdrawHandler(svc.Accounts, logger))

			// Borrowings
			r.Get("/contacts", listContactsHandler(svc.Borrowings, logger))
			r.Post("/contacts", createContactHandler(svc.Borrowings, logger))
			r.Get("/contacts/{contactId}", getContactHandler(svc.Borrowings, logger))
			r.Put("/contacts/{contactId}", updateContactHandler(svc.Borrowings, logger))
			r.Delete("/contacts/{contactId}", deleteContactHandler(svc.Borrowings, logger))
			r.Get("/borrowings", listBorrowingsHandler(svc.Borrowings, logger))
			r.Post("/borrowings", createBorrowingHandler(svc.Borrowings, logger))
			r.Get("/borrowings/summary", borrowingSummaryHandler(svc.Borrowings, logger))
			r.Get("/borrowings/overdue", overdueBorrowingsHandler(svc.Borrowings, logger))
			r.Get("/borrowings/{borrowingId}", getBorrowingHandler(svc.Borrowings, logger))
			r.Post("/borrowings/{borrowingId}/close", closeBorrowingHandler(svc.Borrowings, logger))
			r.Post("/borrowings/{borrowingId}/repayments", recordRepaymentHandler(svc.Borrowings, logger))
			r.Get("/borrowings/{borrowingId}/repayments", listRepaymentsHandler(svc.Borrowings, logger))

			// Reminders
			r.Get("/reminders", listRemindersHandler(svc.Reminders, logger))
			r.Post("/reminders", createReminderHandler(svc.Reminders, logger))
			r.Get("/reminders/instances/{year}/{month}", monthInstancesHandler(svc.Reminders, logger))
			r.Get("/reminders/upcoming", upcomingInstancesHandler(svc.Reminders, logger))
			r.Get("/reminders/{reminderId}", getReminderHandler(svc.Reminders, logger))
			r.Put("/reminders/{reminderId}", updateReminderHandler(svc.Reminders, logger))
			r.Delete("/reminders/{reminderId}", deleteReminderHandler(svc.Reminders, logger))
			r.Post("/reminders/{reminderId}/instances/{dueDate}/complete", completeInstanceHandler(svc.Reminders, logger))
			r.Delete("/reminders/{reminderId}/instances/{dueDate}/complete", uncompleteInstanceHandler(svc.Reminders, logger))

			// Reports
			r.Get("/reports/monthly/{year}/{month}", monthlySummaryHandler(svc.Reports, logger))
			r.Get("/reports/yearly/{year}", yearlyTrendHandler(svc.Reports, logger))
			r.Get("/reports/orphans", orphanedTransactionsHandler(svc.Reports, logger))
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(opts Options, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "expenseflow-api", Status: "healthy", LastChecked: now},
		}

		if opts.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := opts.Store.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("health check: store ping failed", zap.Error(err))
			}
			name := opts.Backend
			if name == "" {
				name = "store"
			}
			services = append(services, domain.ServiceHealth{
				Name: name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				logger.Warn("readiness: store unavailable", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
