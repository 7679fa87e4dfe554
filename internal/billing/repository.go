package billing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godown-erp/godown/internal/platform/db"
	"github.com/godown-erp/godown/internal/product"
)

// TxRepository exposes the transactional operations the bill generator
// needs: the stock deduction and the invoice insert commit together or not
// at all.
type TxRepository interface {
	DeductStock(ctx context.Context, productID, qty int64) (product.Product, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListInvoices(ctx context.Context, limit int) ([]Invoice, error)
	UpdatePDFPath(ctx context.Context, id int64, path string) error
}

// Repository persists billing data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const invoiceColumns = "id, bill_number, product_id, product_name, unit_price_minor, quantity, subtotal_minor, tax_minor, total_minor, pdf_path, issued_at"

// ListInvoices returns the most recent invoices first.
func (r *Repository) ListInvoices(ctx context.Context, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		"SELECT "+invoiceColumns+" FROM invoices ORDER BY issued_at DESC, id DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.ProductID, &inv.ProductName, &inv.UnitPriceMinor,
			&inv.Quantity, &inv.SubtotalMinor, &inv.TaxMinor, &inv.TotalMinor, &inv.PDFPath, &inv.IssuedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// UpdatePDFPath records where the rendered PDF landed. Left empty when
// rendering failed after the bill committed.
func (r *Repository) UpdatePDFPath(ctx context.Context, id int64, path string) error {
	_, err := r.pool.Exec(ctx, "UPDATE invoices SET pdf_path = $2 WHERE id = $1", id, path)
	return err
}

func (r *txRepo) DeductStock(ctx context.Context, productID, qty int64) (product.Product, error) {
	return product.DeductStock(ctx, r.tx, productID, qty)
}

func (r *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO invoices (bill_number, product_id, product_name, unit_price_minor, quantity, subtotal_minor, tax_minor, total_minor, pdf_path, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		inv.Number, inv.ProductID, inv.ProductName, inv.UnitPriceMinor, inv.Quantity,
		inv.SubtotalMinor, inv.TaxMinor, inv.TotalMinor, inv.PDFPath, inv.IssuedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateBillNumber
		}
		return 0, err
	}
	return id, nil
}

var _ RepositoryPort = (*Repository)(nil)
