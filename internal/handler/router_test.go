package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/handler"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/cache"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/events"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/memory"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/observability"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

func newTestRouter(t *testing.T, opts handler.Options) http.Handler {
	t.Helper()
	store := memory.New()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	pub := events.NoopPublisher{Logger: logger}
	categoryCache := cache.New[[]domain.Category](time.Minute)
	t.Cleanup(categoryCache.Close)

	if opts.Store == nil {
		opts.Store = store
	}
	svc := handler.Services{
		Tenants:      service.NewTenantService(store, logger),
		Categories:   service.NewCategoryService(store, categoryCache, metrics, logger),
		Transactions: service.NewTransactionService(store, store, logger),
		MonthEnd:     service.NewMonthEndService(store, pub, metrics, logger),
		Accounts:     service.NewAccountService(store, metrics, logger),
		Borrowings:   service.NewBorrowingService(store, pub, metrics, logger),
		Reminders:    service.NewReminderService(store, store, logger),
		Reports:      service.NewReportService(store, logger),
	}
	return handler.NewRouter(svc, opts, metrics, logger)
}

func do(t *testing.T, router http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createTenant(t *testing.T, router http.Handler, headers ...string) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/v1/tenants", map[string]string{"name": "Home", "owner_name": "alice"}, headers...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tenant: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tenant domain.Tenant
	if err := json.NewDecoder(rec.Body).Decode(&tenant); err != nil {
		t.Fatalf("decode tenant: %v", err)
	}
	return tenant.ID
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, handler.Options{Backend: "memory"})

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "healthy" || len(status.Services) != 2 || status.Services[1].Name != "memory" {
		t.Errorf("unexpected health: %+v", status)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyz_StoreDown(t *testing.T) {
	router := newTestRouter(t, handler.Options{Store: failingPinger{}})

	if rec := do(t, router, http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	rec := do(t, router, http.MethodGet, "/healthz", nil)
	if !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Errorf("expected degraded health, got %s", rec.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t, handler.Options{})

	do(t, router, http.MethodGet, "/healthz", nil)
	rec := do(t, router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "expenseflow_") {
		t.Errorf("expected expenseflow metrics in output")
	}
}

func TestUnknownTenant(t *testing.T) {
	router := newTestRouter(t, handler.Options{})

	if rec := do(t, router, http.MethodGet, "/v1/tenants/nope/categories", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCategoryValidation(t *testing.T) {
	router := newTestRouter(t, handler.Options{})
	id := createTenant(t, router)

	rec := do(t, router, http.MethodPost, "/v1/tenants/"+id+"/categories", map[string]any{"name": " "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"name"`) {
		t.Errorf("expected field in error body, got %s", rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/tenants/"+id+"/categories", map[string]any{"name": "Food", "colour": "red"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestMonthEndFlow(t *testing.T) {
	router := newTestRouter(t, handler.Options{})
	id := createTenant(t, router)
	base := "/v1/tenants/" + id

	rec := do(t, router, http.MethodPost, base+"/categories", map[string]any{
		"name":    "Groceries",
		"budgets": map[string]float64{"2024-03": 5000},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, http.MethodPost, base+"/transactions", map[string]any{
		"date": "2024-03-10", "amount": 3200, "category": "Groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, base+"/month-end/2024/3/preview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, base+"/month-end/2024/3", nil, "X-Actor", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report domain.MonthEndReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalSurplus != 1800 || !report.Locked || report.ProcessedBy != "alice" {
		t.Errorf("unexpected report: %+v", report)
	}

	if rec := do(t, router, http.MethodPost, base+"/month-end/2024/3", nil); rec.Code != http.StatusConflict {
		t.Errorf("rerun: expected 409, got %d", rec.Code)
	}
	rec = do(t, router, http.MethodPost, base+"/transactions", map[string]any{
		"date": "2024-03-20", "amount": 10, "category": "Groceries",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("write into locked month: expected 409, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, base+"/virtual-accounts", nil)
	var accounts domain.ListResponse[domain.VirtualAccount]
	if err := json.NewDecoder(rec.Body).Decode(&accounts); err != nil {
		t.Fatalf("decode accounts: %v", err)
	}
	if accounts.Total != 1 || accounts.Data[0].Balance != 1800 {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}

	path := base + "/virtual-accounts/" + accounts.Data[0].ID + "/withdraw"
	rec = do(t, router, http.MethodPost, path, map[string]any{"amount": 2000, "year": 2024, "month": 4})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("overdraw: expected 422, got %d", rec.Code)
	}
}

func TestBadMonthParameter(t *testing.T) {
	router := newTestRouter(t, handler.Options{})
	id := createTenant(t, router)

	if rec := do(t, router, http.MethodGet, "/v1/tenants/"+id+"/reports/monthly/2024/13", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/tenants/"+id+"/reminders/upcoming?days=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func signToken(t *testing.T, tenantID string) string {
	t.Helper()
	claims := handler.TenantClaims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestTenantAuth(t *testing.T) {
	router := newTestRouter(t, handler.Options{JWTSecret: testSecret})
	id := createTenant(t, router, "Authorization", "Bearer "+signToken(t, "bootstrap"))
	path := "/v1/tenants/" + id + "/categories"

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, id) + "x", http.StatusUnauthorized},
		{"other tenant", "Bearer " + signToken(t, "someone-else"), http.StatusForbidden},
		{"valid", "Bearer " + signToken(t, id), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []string
			if tt.header != "" {
				headers = []string{"Authorization", tt.header}
			}
			if rec := do(t, router, http.MethodGet, path, nil, headers...); rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestTenantCollectionAuth(t *testing.T) {
	router := newTestRouter(t, handler.Options{JWTSecret: testSecret})

	if rec := do(t, router, http.MethodPost, "/v1/tenants", map[string]string{"name": "Home"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("create without token: expected 401, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/tenants", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("list without token: expected 401, got %d", rec.Code)
	}

	bootstrap := "Bearer " + signToken(t, "bootstrap")
	home := createTenant(t, router, "Authorization", bootstrap)
	createTenant(t, router, "Authorization", bootstrap)

	rec := do(t, router, http.MethodGet, "/v1/tenants", nil, "Authorization", "Bearer "+signToken(t, home))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list domain.ListResponse[domain.Tenant]
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 || list.Data[0].ID != home {
		t.Errorf("expected only tenant %s, got %+v", home, list)
	}
}

func TestWithdrawActorFromToken(t *testing.T) {
	router := newTestRouter(t, handler.Options{JWTSecret: testSecret})
	id := createTenant(t, router, "Authorization", "Bearer "+signToken(t, "bootstrap"))
	auth := "Bearer " + signToken(t, id)
	base := "/v1/tenants/" + id

	rec := do(t, router, http.MethodPost, base+"/categories", map[string]any{
		"name":    "Groceries",
		"budgets": map[string]float64{"2024-03": 5000},
	}, "Authorization", auth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, router, http.MethodPost, base+"/month-end/2024/3", nil, "Authorization", auth); rec.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, base+"/virtual-accounts", nil, "Authorization", auth)
	var accounts domain.ListResponse[domain.VirtualAccount]
	if err := json.NewDecoder(rec.Body).Decode(&accounts); err != nil || accounts.Total != 1 {
		t.Fatalf("unexpected accounts: %+v (%v)", accounts, err)
	}

	path := base + "/virtual-accounts/" + accounts.Data[0].ID + "/withdraw"
	rec = do(t, router, http.MethodPost, path, map[string]any{
		"amount": 100, "year": 2024, "month": 4, "actor": "mallory",
	}, "Authorization", auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res domain.WithdrawResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Transaction.CreatedBy != "alice" {
		t.Errorf("expected token subject alice, got %q", res.Transaction.CreatedBy)
	}
}

func TestUpdateReminderKeepsActive(t *testing.T) {
	router := newTestRouter(t, handler.Options{})
	id := createTenant(t, router)
	base := "/v1/tenants/" + id + "/reminders"
	rule := map[string]any{"frequency": "monthly", "day_of_month": 5}

	rec := do(t, router, http.MethodPost, base, map[string]any{"title": "Rent", "start_date": "2024-01-05", "rule": rule})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reminder: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var reminder domain.Reminder
	json.NewDecoder(rec.Body).Decode(&reminder)

	rec = do(t, router, http.MethodPut, base+"/"+reminder.ID, map[string]any{"title": "House rent", "start_date": "2024-01-05", "rule": rule})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	json.NewDecoder(rec.Body).Decode(&reminder)
	if reminder.Title != "House rent" || !reminder.Active {
		t.Errorf("expected renamed active reminder, got %+v", reminder)
	}

	rec = do(t, router, http.MethodPut, base+"/"+reminder.ID, map[string]any{"title": "House rent", "start_date": "2024-01-05", "rule": rule, "active": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	json.NewDecoder(rec.Body).Decode(&reminder)
	if reminder.Active {
		t.Error("expected explicit active=false to pause the reminder")
	}
}

func TestParseTenantToken(t *testing.T) {
	claims, err := handler.ParseTenantToken(signToken(t, "tenant-1"), testSecret)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if claims.TenantID != "tenant-1" || claims.Subject != "alice" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	var unauthorized *domain.ErrUnauthorized
	if _, err := handler.ParseTenantToken(signToken(t, "tenant-1"), []byte("other")); !errors.As(err, &unauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestBorrowingOverHTTP(t *testing.T) {
	router := newTestRouter(t, handler.Options{})
	id := createTenant(t, router)
	base := "/v1/tenants/" + id

	rec := do(t, router, http.MethodPost, base+"/contacts", map[string]any{"name": "Bob"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create contact: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var contact domain.BorrowingContact
	json.NewDecoder(rec.Body).Decode(&contact)

	rec = do(t, router, http.MethodPost, base+"/borrowings", map[string]any{
		"contact_id": contact.ID, "type": "lent", "amount": 100, "due_date": "2999-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create borrowing: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var view domain.BorrowingView
	json.NewDecoder(rec.Body).Decode(&view)

	rec = do(t, router, http.MethodPost, base+"/borrowings/"+view.ID+"/repayments", map[string]any{"amount": 100})
	if rec.Code != http.StatusCreated {
		t.Fatalf("repay: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var res domain.RepaymentResult
	json.NewDecoder(rec.Body).Decode(&res)
	if !res.Borrowing.IsClosed || res.Contact.CreditScore != domain.DefaultCreditScore+domain.ScoreDelta(domain.StatusActive) {
		t.Errorf("unexpected repayment result: %+v", res)
	}

	if rec := do(t, router, http.MethodPost, base+"/borrowings/"+view.ID+"/repayments", map[string]any{"amount": 1}); rec.Code != http.StatusConflict {
		t.Errorf("repay closed: expected 409, got %d", rec.Code)
	}
}
