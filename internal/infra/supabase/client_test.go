package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/resilience"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/supabase"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return supabase.NewClient(
		srv.Client(), srv.URL, "anon", "service",
		resilience.NewCircuitBreaker("supabase-test"),
		resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
		zap.NewNop(),
	)
}

func TestGetCategory_SendsTenantFilterAndHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/categories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("tenant_id"); got != "eq.t1" {
			t.Errorf("expected tenant filter, got %q", got)
		}
		if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer service" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		_ = json.NewEncoder(w).Encode([]domain.Category{{ID: "c1", TenantID: "t1", Name: "Food"}})
	})

	cat, err := c.GetCategory(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Name != "Food" {
		t.Errorf("expected Food, got %s", cat.Name)
	}
}

func TestGetCategory_EmptyResultIsNotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("[]"))
	})

	_, err := c.GetCategory(context.Background(), "t1", "missing")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("not found must not be retried, got %d calls", calls.Load())
	}
}

func TestCreateCategory_DuplicateIsConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505"}`))
	})

	err := c.CreateCategory(context.Background(), &domain.Category{ID: "c1", TenantID: "t1", Name: "Food"})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestListTenants_ServerErrorIsRetriedThenExternal(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.ListTenants(context.Background())
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestPostAccountTransaction_MapsFunctionStatus(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(t *testing.T, acct *domain.VirtualAccount, err error)
	}{
		{
			name:  "ok",
			reply: `{"status":"ok","account":{"id":"a1","balance":1800}}`,
			check: func(t *testing.T, acct *domain.VirtualAccount, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if acct.Balance != 1800 {
					t.Errorf("expected 1800, got %v", acct.Balance)
				}
			},
		},
		{
			name:  "conflict",
			reply: `{"status":"conflict"}`,
			check: func(t *testing.T, _ *domain.VirtualAccount, err error) {
				var conflict *domain.ErrConflict
				if !errors.As(err, &conflict) {
					t.Fatalf("expected ErrConflict, got %v", err)
				}
			},
		},
		{
			name:  "insufficient",
			reply: `{"status":"insufficient","available":1000}`,
			check: func(t *testing.T, _ *domain.VirtualAccount, err error) {
				var ib *domain.ErrInsufficientBalance
				if !errors.As(err, &ib) {
					t.Fatalf("expected ErrInsufficientBalance, got %v", err)
				}
				if ib.Available != 1000 || ib.Required != 1000.01 {
					t.Errorf("unexpected amounts: %+v", ib)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/rest/v1/rpc/post_account_transaction" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.reply))
			})
			acct, err := c.PostAccountTransaction(context.Background(), &domain.AccountTransaction{
				ID: "x1", TenantID: "t1", AccountID: "a1",
				Type: domain.OverspendWithdrawal, Amount: -1000.01, Year: 2024, Month: 3,
			})
			tt.check(t, acct, err)
		})
	}
}

func TestApplyRepayment_RetriesWhenStale(t *testing.T) {
	var rpcCalls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/borrowings"):
			_, _ = w.Write([]byte(`[{"id":"b1","tenant_id":"t1","contact_id":"k1","balance":500}]`))
		case strings.HasSuffix(r.URL.Path, "/borrowing_contacts"):
			_, _ = w.Write([]byte(`[{"id":"k1","tenant_id":"t1","credit_score":600}]`))
		case strings.HasSuffix(r.URL.Path, "/rpc/apply_repayment"):
			if rpcCalls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"status":"stale"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	var fnCalls int
	rep, err := c.ApplyRepayment(context.Background(), "t1", "b1",
		func(b *domain.Borrowing, k *domain.BorrowingContact) (*domain.Repayment, error) {
			fnCalls++
			b.Balance -= 100
			k.CreditScore += 5
			return &domain.Repayment{ID: "r1", BorrowingID: b.ID, Amount: 100}, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.ID != "r1" {
		t.Errorf("expected r1, got %s", rep.ID)
	}
	if fnCalls != 2 || rpcCalls.Load() != 2 {
		t.Errorf("expected one retry, fn=%d rpc=%d", fnCalls, rpcCalls.Load())
	}
}

func TestApplyRepayment_CallbackErrorAborts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/borrowings"):
			_, _ = w.Write([]byte(`[{"id":"b1","tenant_id":"t1","contact_id":"k1","balance":500}]`))
		case strings.HasSuffix(r.URL.Path, "/borrowing_contacts"):
			_, _ = w.Write([]byte(`[{"id":"k1","tenant_id":"t1","credit_score":600}]`))
		default:
			t.Errorf("no write expected, got %s %s", r.Method, r.URL.Path)
		}
	})

	_, err := c.ApplyRepayment(context.Background(), "t1", "b1",
		func(*domain.Borrowing, *domain.BorrowingContact) (*domain.Repayment, error) {
			return nil, &domain.ErrValidation{Field: "amount", Message: "exceeds balance"}
		})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
