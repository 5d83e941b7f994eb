package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"
)

// errStaleBorrowing signals that the borrowing changed between the read and the
// apply_repayment call. It is retried like any transient failure.
var errStaleBorrowing = errors.New("borrowing changed concurrently")

// ============================================================
// Contacts
// ============================================================

func (c *Client) CreateContact(ctx context.Context, contact *domain.BorrowingContact) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateContact")
	defer span.End()

	return c.insert(ctx, "borrowing_contacts", "borrowing_contacts", contact, "contact already exists: "+contact.ID)
}

func (c *Client) GetContact(ctx context.Context, tenantID, contactID string) (*domain.BorrowingContact, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetContact")
	defer span.End()

	path := fmt.Sprintf("borrowing_contacts?tenant_id=%s&id=%s", eq(tenantID), eq(contactID))
	return selectOne[domain.BorrowingContact](ctx, c, "borrowing_contacts", path, "contact", contactID)
}

func (c *Client) ListContacts(ctx context.Context, tenantID string) ([]domain.BorrowingContact, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListContacts")
	defer span.End()

	return selectRows[domain.BorrowingContact](ctx, c, "borrowing_contacts", "borrowing_contacts?tenant_id="+eq(tenantID)+"&order=name.asc")
}

func (c *Client) UpdateContact(ctx context.Context, contact *domain.BorrowingContact) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateContact")
	defer span.End()

	path := fmt.Sprintf("borrowing_contacts?tenant_id=%s&id=%s", eq(contact.TenantID), eq(contact.ID))
	return c.update(ctx, "borrowing_contacts", path, map[string]any{
		"name":         contact.Name,
		"phone":        contact.Phone,
		"email":        contact.Email,
		"relationship": contact.Relationship,
		"credit_score": contact.CreditScore,
		"updated_at":   contact.UpdatedAt,
	}, "contact", contact.ID)
}

func (c *Client) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteContact")
	defer span.End()

	n, err := c.remove(ctx, "borrowing_contacts", fmt.Sprintf("borrowing_contacts?tenant_id=%s&id=%s", eq(tenantID), eq(contactID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	return nil
}

// ============================================================
// Borrowings
// ============================================================

func (c *Client) CreateBorrowing(ctx context.Context, b *domain.Borrowing) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateBorrowing")
	defer span.End()

	if _, err := c.GetContact(ctx, b.TenantID, b.ContactID); err != nil {
		return err
	}
	return c.insert(ctx, "borrowings", "borrowings", b, "borrowing already exists: "+b.ID)
}

func (c *Client) GetBorrowing(ctx context.Context, tenantID, borrowingID string) (*domain.Borrowing, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBorrowing")
	defer span.End()

	path := fmt.Sprintf("borrowings?tenant_id=%s&id=%s", eq(tenantID), eq(borrowingID))
	return selectOne[domain.Borrowing](ctx, c, "borrowings", path, "borrowing", borrowingID)
}

func (c *Client) ListBorrowings(ctx context.Context, tenantID string, filter domain.BorrowingFilter) ([]domain.Borrowing, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListBorrowings")
	defer span.End()

	path := "borrowings?tenant_id=" + eq(tenantID)
	if filter.ContactID != "" {
		path += "&contact_id=" + eq(filter.ContactID)
	}
	if filter.OpenOnly {
		path += "&is_closed=is.false"
	}
	path += "&order=due_date.asc,id.asc"
	return selectRows[domain.Borrowing](ctx, c, "borrowings", path)
}

func (c *Client) UpdateBorrowing(ctx context.Context, b *domain.Borrowing) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateBorrowing")
	defer span.End()

	path := fmt.Sprintf("borrowings?tenant_id=%s&id=%s", eq(b.TenantID), eq(b.ID))
	return c.update(ctx, "borrowings", path, map[string]any{
		"due_date":   b.DueDate,
		"notes":      b.Notes,
		"balance":    b.Balance,
		"is_closed":  b.IsClosed,
		"updated_at": b.UpdatedAt,
	}, "borrowing", b.ID)
}

// ApplyRepayment reads the borrowing and contact, lets fn mutate them, then
// hands all three rows to the apply_repayment SQL function. The function
// only writes when the stored balance still equals the one fn saw; otherwise
// the whole read-modify-write is retried.
func (c *Client) ApplyRepayment(ctx context.Context, tenantID, borrowingID string, fn port.RepaymentFunc) (*domain.Repayment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ApplyRepayment")
	defer span.End()

	var repayment *domain.Repayment
	err := c.run(ctx, "apply_repayment", func() error {
		b, err := fetchOne[domain.Borrowing](ctx, c, "borrowings",
			fmt.Sprintf("borrowings?tenant_id=%s&id=%s", eq(tenantID), eq(borrowingID)), "borrowing", borrowingID)
		if err != nil {
			return err
		}
		contact, err := fetchOne[domain.BorrowingContact](ctx, c, "borrowing_contacts",
			fmt.Sprintf("borrowing_contacts?tenant_id=%s&id=%s", eq(tenantID), eq(b.ContactID)), "contact", b.ContactID)
		if err != nil {
			return err
		}

		expected := b.Balance
		r, err := fn(b, contact)
		if err != nil {
			return err
		}

		body, err := c.doRPC(ctx, "apply_repayment", map[string]any{
			"p_expected_balance": expected,
			"p_borrowing":        b,
			"p_contact":          contact,
			"p_repayment":        r,
		})
		if err != nil {
			return err
		}
		var res struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(body, &res); err != nil {
			return fmt.Errorf("decode apply_repayment: %w", err)
		}
		switch res.Status {
		case "ok":
			repayment = r
			return nil
		case "stale":
			return errStaleBorrowing
		default:
			return fmt.Errorf("apply_repayment: unexpected status %q", res.Status)
		}
	})
	if err != nil {
		return nil, err
	}
	return repayment, nil
}

func (c *Client) ListRepayments(ctx context.Context, tenantID, borrowingID string) ([]domain.Repayment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRepayments")
	defer span.End()

	path := fmt.Sprintf("repayments?tenant_id=%s&borrowing_id=%s&order=date.asc,created_at.asc", eq(tenantID), eq(borrowingID))
	return selectRows[domain.Repayment](ctx, c, "repayments", path)
}
