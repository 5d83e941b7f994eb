package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/port"
)

// ============================================================
// Contacts
// ============================================================

const contactColumns = `id, tenant_id, name, phone, email, relationship, credit_score, created_at, updated_at`

func scanContact(sc interface{ Scan(...any) error }) (domain.BorrowingContact, error) {
	var c domain.BorrowingContact
	var created, updated string
	if err := sc.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.Email, &c.Relationship, &c.CreditScore, &created, &updated); err != nil {
		return c, err
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

func (s *Store) CreateContact(ctx context.Context, c *domain.BorrowingContact) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateContact")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `INSERT INTO borrowing_contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.Name, c.Phone, c.Email, c.Relationship, c.CreditScore, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (s *Store) getContact(ctx context.Context, q queryer, tenantID, contactID string) (*domain.BorrowingContact, error) {
	c, err := scanContact(q.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM borrowing_contacts WHERE tenant_id = ? AND id = ?`, tenantID, contactID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	if err != nil {
		return nil, fmt.Errorf("select contact: %w", err)
	}
	return &c, nil
}

func (s *Store) GetContact(ctx context.Context, tenantID, contactID string) (*domain.BorrowingContact, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetContact")
	defer span.End()

	return s.getContact(ctx, s.db, tenantID, contactID)
}

func (s *Store) ListContacts(ctx context.Context, tenantID string) ([]domain.BorrowingContact, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListContacts")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM borrowing_contacts WHERE tenant_id = ? ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.BorrowingContact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) updateContact(ctx context.Context, q queryer, c *domain.BorrowingContact) error {
	res, err := q.ExecContext(ctx,
		`UPDATE borrowing_contacts SET name = ?, phone = ?, email = ?, relationship = ?, credit_score = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ?`,
		c.Name, c.Phone, c.Email, c.Relationship, c.CreditScore, formatTime(c.UpdatedAt), c.TenantID, c.ID)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "contact", ID: c.ID}
	}
	return nil
}

func (s *Store) UpdateContact(ctx context.Context, c *domain.BorrowingContact) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateContact")
	defer span.End()

	return s.updateContact(ctx, s.db, c)
}

func (s *Store) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteContact")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM borrowing_contacts WHERE tenant_id = ? AND id = ?`, tenantID, contactID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	return nil
}

// ============================================================
// Borrowings
// ============================================================

const borrowingColumns = `id, tenant_id, contact_id, type, amount, balance, start_date, due_date, notes, is_closed, created_at, updated_at`

func scanBorrowing(sc interface{ Scan(...any) error }) (domain.Borrowing, error) {
	var b domain.Borrowing
	var typ, created, updated string
	var closed int
	if err := sc.Scan(&b.ID, &b.TenantID, &b.ContactID, &typ, &b.Amount, &b.Balance, &b.StartDate, &b.DueDate,
		&b.Notes, &closed, &created, &updated); err != nil {
		return b, err
	}
	b.Type = domain.BorrowingType(typ)
	b.IsClosed = closed != 0
	b.CreatedAt = parseTime(created)
	b.UpdatedAt = parseTime(updated)
	return b, nil
}

func (s *Store) CreateBorrowing(ctx context.Context, b *domain.Borrowing) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateBorrowing")
	defer span.End()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getContact(ctx, tx, b.TenantID, b.ContactID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO borrowings (`+borrowingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.TenantID, b.ContactID, string(b.Type), b.Amount, b.Balance, b.StartDate, b.DueDate, b.Notes,
			boolInt(b.IsClosed), formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert borrowing: %w", err)
		}
		return nil
	})
}

func (s *Store) getBorrowing(ctx context.Context, q queryer, tenantID, borrowingID string) (*domain.Borrowing, error) {
	b, err := scanBorrowing(q.QueryRowContext(ctx, `SELECT `+borrowingColumns+` FROM borrowings WHERE tenant_id = ? AND id = ?`, tenantID, borrowingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "borrowing", ID: borrowingID}
	}
	if err != nil {
		return nil, fmt.Errorf("select borrowing: %w", err)
	}
	return &b, nil
}

func (s *Store) GetBorrowing(ctx context.Context, tenantID, borrowingID string) (*domain.Borrowing, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetBorrowing")
	defer span.End()

	return s.getBorrowing(ctx, s.db, tenantID, borrowingID)
}

func (s *Store) ListBorrowings(ctx context.Context, tenantID string, filter domain.BorrowingFilter) ([]domain.Borrowing, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListBorrowings")
	defer span.End()

	query := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE tenant_id = ?`
	args := []any{tenantID}
	if filter.ContactID != "" {
		query += ` AND contact_id = ?`
		args = append(args, filter.ContactID)
	}
	if filter.OpenOnly {
		query += ` AND is_closed = 0`
	}
	query += ` ORDER BY due_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select borrowings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Borrowing, 0)
	for rows.Next() {
		b, err := scanBorrowing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan borrowing: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) updateBorrowing(ctx context.Context, q queryer, b *domain.Borrowing) error {
	res, err := q.ExecContext(ctx,
		`UPDATE borrowings SET balance = ?, due_date = ?, notes = ?, is_closed = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		b.Balance, b.DueDate, b.Notes, boolInt(b.IsClosed), formatTime(b.UpdatedAt), b.TenantID, b.ID)
	if err != nil {
		return fmt.Errorf("update borrowing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "borrowing", ID: b.ID}
	}
	return nil
}

func (s *Store) UpdateBorrowing(ctx context.Context, b *domain.Borrowing) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateBorrowing")
	defer span.End()

	return s.updateBorrowing(ctx, s.db, b)
}

func (s *Store) ApplyRepayment(ctx context.Context, tenantID, borrowingID string, fn port.RepaymentFunc) (*domain.Repayment, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ApplyRepayment")
	defer span.End()

	var rep *domain.Repayment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b, err := s.getBorrowing(ctx, tx, tenantID, borrowingID)
		if err != nil {
			return err
		}
		c, err := s.getContact(ctx, tx, tenantID, b.ContactID)
		if err != nil {
			return err
		}
		if rep, err = fn(b, c); err != nil {
			return err
		}
		if err := s.updateBorrowing(ctx, tx, b); err != nil {
			return err
		}
		if err := s.updateContact(ctx, tx, c); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO repayments (id, tenant_id, borrowing_id, amount, date, status_at_payment, score_delta, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.ID, rep.TenantID, rep.BorrowingID, rep.Amount, rep.Date, string(rep.StatusAtPayment), rep.ScoreDelta, formatTime(rep.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert repayment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *Store) ListRepayments(ctx context.Context, tenantID, borrowingID string) ([]domain.Repayment, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListRepayments")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, borrowing_id, amount, date, status_at_payment, score_delta, created_at
		 FROM repayments WHERE tenant_id = ? AND borrowing_id = ? ORDER BY created_at, id`, tenantID, borrowingID)
	if err != nil {
		return nil, fmt.Errorf("select repayments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Repayment, 0)
	for rows.Next() {
		var r domain.Repayment
		var status, created string
		if err := rows.Scan(&r.ID, &r.TenantID, &r.BorrowingID, &r.Amount, &r.Date, &status, &r.ScoreDelta, &created); err != nil {
			return nil, fmt.Errorf("scan repayment: %w", err)
		}
		r.StatusAtPayment = domain.BorrowingStatus(status)
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ============================================================
// Reminders
// ============================================================

const reminderColumns = `id, tenant_id, title, amount, category, rule, start_date, end_date, active, completed_instances, created_at, updated_at`

func scanReminder(sc interface{ Scan(...any) error }) (domain.Reminder, error) {
	var r domain.Reminder
	var rule, done, created, updated string
	var active int
	if err := sc.Scan(&r.ID, &r.TenantID, &r.Title, &r.Amount, &r.Category, &rule, &r.StartDate, &r.EndDate,
		&active, &done, &created, &updated); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(rule), &r.Rule); err != nil {
		return r, fmt.Errorf("decode rule: %w", err)
	}
	if err := json.Unmarshal([]byte(done), &r.CompletedInstances); err != nil {
		return r, fmt.Errorf("decode completed instances: %w", err)
	}
	if r.CompletedInstances == nil {
		r.CompletedInstances = map[string]string{}
	}
	r.Active = active != 0
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return r, nil
}

func encodeReminder(r *domain.Reminder) (rule, done string, err error) {
	rb, err := json.Marshal(r.Rule)
	if err != nil {
		return "", "", fmt.Errorf("encode rule: %w", err)
	}
	m := r.CompletedInstances
	if m == nil {
		m = map[string]string{}
	}
	db, err := json.Marshal(m)
	if err != nil {
		return "", "", fmt.Errorf("encode completed instances: %w", err)
	}
	return string(rb), string(db), nil
}

func (s *Store) CreateReminder(ctx context.Context, r *domain.Reminder) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateReminder")
	defer span.End()

	rule, done, err := encodeReminder(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO reminders (`+reminderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.Title, r.Amount, r.Category, rule, r.StartDate, r.EndDate, boolInt(r.Active), done,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (s *Store) GetReminder(ctx context.Context, tenantID, reminderID string) (*domain.Reminder, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetReminder")
	defer span.End()

	r, err := scanReminder(s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE tenant_id = ? AND id = ?`, tenantID, reminderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "reminder", ID: reminderID}
	}
	if err != nil {
		return nil, fmt.Errorf("select reminder: %w", err)
	}
	return &r, nil
}

func (s *Store) ListReminders(ctx context.Context, tenantID string) ([]domain.Reminder, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListReminders")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE tenant_id = ? ORDER BY title`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select reminders: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Reminder, 0)
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateReminder(ctx context.Context, r *domain.Reminder) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateReminder")
	defer span.End()

	rule, done, err := encodeReminder(r)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET title = ?, amount = ?, category = ?, rule = ?, start_date = ?, end_date = ?, active = ?,
		 completed_instances = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		r.Title, r.Amount, r.Category, rule, r.StartDate, r.EndDate, boolInt(r.Active), done, formatTime(r.UpdatedAt),
		r.TenantID, r.ID)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "reminder", ID: r.ID}
	}
	return nil
}

func (s *Store) DeleteReminder(ctx context.Context, tenantID, reminderID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteReminder")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE tenant_id = ? AND id = ?`, tenantID, reminderID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "reminder", ID: reminderID}
	}
	return nil
}
