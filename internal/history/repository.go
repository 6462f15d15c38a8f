// Package history reads historical AP invoices and supplier master data for
// the analysis engine. It never writes.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

// ErrVendorNotFound is returned when the supplier does not exist.
var ErrVendorNotFound = errors.New("history: vendor not found")

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository loads history from Postgres.
type Repository struct {
	db Querier
}

// NewRepository constructs a repo.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

const vendorHistorySQL = `SELECT i.id::text, i.number, i.supplier_id::text, s.name, COALESCE(i.po_number, ''),
       i.total::text, i.invoice_date, i.due_at, i.created_at
FROM ap_invoices i
JOIN suppliers s ON s.id = i.supplier_id
WHERE i.supplier_id::text = $1
ORDER BY i.created_at DESC
LIMIT $2`

// VendorHistory returns the vendor's most recent invoices, newest first.
func (r *Repository) VendorHistory(ctx context.Context, vendorID string, limit int) ([]invoice.Invoice, error) {
	rows, err := r.db.Query(ctx, vendorHistorySQL, vendorID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query invoices: %w", err)
	}
	defer rows.Close()
	out := []invoice.Invoice{}
	for rows.Next() {
		var (
			inv         invoice.Invoice
			total       *string
			invoiceDate *time.Time
			dueAt       *time.Time
			createdAt   *time.Time
		)
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.VendorID, &inv.VendorName, &inv.PONumber,
			&total, &invoiceDate, &dueAt, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan invoice: %w", err)
		}
		if total != nil {
			d, err := decimal.NewFromString(*total)
			if err != nil {
				return nil, fmt.Errorf("history: invoice %s total: %w", inv.ID, err)
			}
			inv.Total = decimal.NewNullDecimal(d)
		}
		inv.InvoiceDate = utc(invoiceDate)
		inv.DueDate = utc(dueAt)
		inv.SubmittedAt = utc(createdAt)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate invoices: %w", err)
	}
	return out, nil
}

// Vendor returns supplier master data.
func (r *Repository) Vendor(ctx context.Context, vendorID string) (*invoice.VendorProfile, error) {
	var (
		v         invoice.VendorProfile
		createdAt *time.Time
	)
	err := r.db.QueryRow(ctx, `SELECT id::text, name, created_at, COALESCE(bank_account, '')
FROM suppliers WHERE id::text = $1`, vendorID).Scan(&v.ID, &v.Name, &createdAt, &v.BankAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("history: query vendor: %w", err)
	}
	v.CreatedAt = utc(createdAt)
	return &v, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
