// Package supabase implements port.Store over the Supabase PostgREST API.
// Nested documents live in jsonb columns; paired writes that must be atomic
// go through the SQL functions declared in schema.sql.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/infra/resilience"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

var _ port.Store = (*Client)(nil)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// Ping checks PostgREST is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "tenants?select=id&limit=1")
	return err
}

// Close is a no-op; the HTTP client is owned by the caller.
func (c *Client) Close() error { return nil }

// run executes fn behind the circuit breaker with retries. Domain errors pass
// through unchanged; anything else is reported as an external service error.
func (c *Client) run(ctx context.Context, op string, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			err := fn()
			if isDomainError(err) {
				return resilience.Permanent(err)
			}
			return err
		})
	})
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		var p *resilience.PermanentError
		if errors.As(err, &p) {
			return p.Err
		}
		return err
	}
	return &domain.ErrExternalService{Service: "supabase/" + op, Err: err}
}

func isDomainError(err error) bool {
	var (
		notFound     *domain.ErrNotFound
		conflict     *domain.ErrConflict
		validation   *domain.ErrValidation
		insufficient *domain.ErrInsufficientBalance
	)
	return errors.As(err, &notFound) || errors.As(err, &conflict) ||
		errors.As(err, &validation) || errors.As(err, &insufficient)
}

// eq renders a PostgREST equality filter value.
func eq(v string) string {
	return "eq." + url.QueryEscape(v)
}

// doRequest executes an authenticated request to Supabase PostgREST.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	c.setHeaders(req, "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil // no data
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

func (c *Client) setHeaders(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}
