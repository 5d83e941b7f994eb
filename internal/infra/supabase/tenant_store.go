package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

// ============================================================
// Shared CRUD helpers
// ============================================================

// fetchRows GETs path and decodes the result without retries.
func fetchRows[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](body, op)
}

// fetchOne is fetchRows for a single row; no match is ErrNotFound.
func fetchOne[T any](ctx context.Context, c *Client, op, path, resource, id string) (*T, error) {
	rows, err := fetchRows[T](ctx, c, op, path+"&limit=1")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return &rows[0], nil
}

func selectRows[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	var rows []T
	err := c.run(ctx, op, func() error {
		var err error
		rows, err = fetchRows[T](ctx, c, op, path)
		return err
	})
	return rows, err
}

func selectOne[T any](ctx context.Context, c *Client, op, path, resource, id string) (*T, error) {
	var row *T
	err := c.run(ctx, op, func() error {
		var err error
		row, err = fetchOne[T](ctx, c, op, path, resource, id)
		return err
	})
	return row, err
}

// insert POSTs data; a unique violation becomes conflict.
func (c *Client) insert(ctx context.Context, op, table string, data any, conflict string) error {
	return c.run(ctx, op, func() error {
		_, err := c.doPost(ctx, table, data)
		var dup *errDuplicate
		if errors.As(err, &dup) {
			return &domain.ErrConflict{Message: conflict}
		}
		return err
	})
}

// update PATCHes path and returns ErrNotFound when no row was touched.
func (c *Client) update(ctx context.Context, op, path string, data any, resource, id string) error {
	return c.run(ctx, op, func() error {
		body, err := c.doPatch(ctx, path, data)
		var dup *errDuplicate
		if errors.As(err, &dup) {
			return &domain.ErrConflict{Message: fmt.Sprintf("%s %s conflicts with an existing row", resource, id)}
		}
		if err != nil {
			return err
		}
		rows, err := decodeRows[map[string]any](body, op)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: resource, ID: id}
		}
		return nil
	})
}

// remove DELETEs path and returns how many rows went away.
func (c *Client) remove(ctx context.Context, op, path string) (int, error) {
	var n int
	err := c.run(ctx, op, func() error {
		body, err := c.doDelete(ctx, path)
		if err != nil {
			return err
		}
		rows, err := decodeRows[map[string]any](body, op)
		n = len(rows)
		return err
	})
	return n, err
}

// ============================================================
// Tenants
// ============================================================

func (c *Client) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTenant")
	defer span.End()

	return c.insert(ctx, "tenants", "tenants", t, "tenant already exists: "+t.ID)
}

func (c *Client) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTenant")
	defer span.End()

	return selectOne[domain.Tenant](ctx, c, "tenants", "tenants?id="+eq(tenantID), "tenant", tenantID)
}

func (c *Client) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTenants")
	defer span.End()

	return selectRows[domain.Tenant](ctx, c, "tenants", "tenants?order=created_at.asc")
}
