package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godown-erp/godown/internal/shared"
)

// Repository defines persistence operations for the product module.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListInStock(ctx context.Context) ([]Product, error)
	Insert(ctx context.Context, input AddInput) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const productColumns = "id, name, quantity, unit_price_minor, created_at"

// List returns every product in insertion order.
func (r *PGRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListInStock returns products with stock remaining, for the billing form.
func (r *PGRepository) ListInStock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+productColumns+" FROM products WHERE quantity > 0 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// Insert adds a new product row and returns it with the generated id.
func (r *PGRepository) Insert(ctx context.Context, input AddInput) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, quantity, unit_price_minor) VALUES ($1, $2, $3) RETURNING `+productColumns,
		input.Name, input.Quantity, input.PriceMinor,
	).Scan(&p.ID, &p.Name, &p.Quantity, &p.UnitPriceMinor, &p.CreatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// Delete removes a product row. Deleting an absent id is a no-op.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	return err
}

// DeductStock atomically decrements the quantity when enough stock remains
// and returns the updated row. The conditional WHERE clause closes the
// oversell race: two concurrent bills can never both drain the same units.
// Exposed for the billing repository, which runs it inside its transaction.
func DeductStock(ctx context.Context, q Querier, productID, qty int64) (Product, error) {
	var p Product
	err := q.QueryRow(ctx,
		`UPDATE products SET quantity = quantity - $2 WHERE id = $1 AND quantity >= $2 RETURNING `+productColumns,
		productID, qty,
	).Scan(&p.ID, &p.Name, &p.Quantity, &p.UnitPriceMinor, &p.CreatedAt)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Product{}, err
	}

	// Either the product is gone or the stock ran short; a follow-up read
	// tells the two apart and reports the available quantity.
	var available int64
	err = q.QueryRow(ctx, "SELECT quantity FROM products WHERE id = $1", productID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return Product{}, &InsufficientStockError{Available: available}
}

// Querier is the subset of pgx executors DeductStock needs, satisfied by
// both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.UnitPriceMinor, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
