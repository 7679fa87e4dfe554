package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godown-erp/godown/internal/product"
	"github.com/godown-erp/godown/internal/shared"
)

type memoryRepo struct {
	products    map[int64]product.Product
	invoices    []Invoice
	nextID      int64
	dupFailures int
	pdfPaths    map[int64]string
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(products ...product.Product) *memoryRepo {
	r := &memoryRepo{products: make(map[int64]product.Product), pdfPaths: make(map[int64]string)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	// Snapshot so a failed callback rolls product state back, mirroring
	// the real transaction.
	snapshot := make(map[int64]product.Product, len(r.products))
	for id, p := range r.products {
		snapshot[id] = p
	}
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products = snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) ListInvoices(ctx context.Context, limit int) ([]Invoice, error) {
	result := make([]Invoice, len(r.invoices))
	copy(result, r.invoices)
	return result, nil
}

func (r *memoryRepo) UpdatePDFPath(ctx context.Context, id int64, path string) error {
	r.pdfPaths[id] = path
	return nil
}

func (tx *memoryTx) DeductStock(ctx context.Context, productID, qty int64) (product.Product, error) {
	p, ok := tx.repo.products[productID]
	if !ok {
		return product.Product{}, shared.ErrNotFound
	}
	if qty > p.Quantity {
		return product.Product{}, &product.InsufficientStockError{Available: p.Quantity}
	}
	p.Quantity -= qty
	tx.repo.products[productID] = p
	return p, nil
}

func (tx *memoryTx) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	if tx.repo.dupFailures > 0 {
		tx.repo.dupFailures--
		return 0, ErrDuplicateBillNumber
	}
	tx.repo.nextID++
	inv.ID = tx.repo.nextID
	tx.repo.invoices = append(tx.repo.invoices, inv)
	return inv.ID, nil
}

type renderFunc func(inv Invoice) (string, error)

func (f renderFunc) Render(inv Invoice) (string, error) { return f(inv) }

type recordingEnqueuer struct {
	productIDs []int64
}

func (e *recordingEnqueuer) EnqueueLowStock(ctx context.Context, productID int64, name string) error {
	e.productIDs = append(e.productIDs, productID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopRenderer() PDFRenderer {
	return renderFunc(func(inv Invoice) (string, error) { return "", nil })
}

func TestGenerateBill(t *testing.T) {
	repo := newMemoryRepo(product.Product{ID: 1, Name: "Widget", Quantity: 10, UnitPriceMinor: 10000})
	dir := t.TempDir()
	svc := NewService(repo, NewFileRenderer(dir), nil, testLogger())
	ctx := context.Background()

	inv, err := svc.GenerateBill(ctx, 1, 3)
	require.NoError(t, err)

	require.Equal(t, "Widget", inv.ProductName)
	require.Equal(t, int64(3), inv.Quantity)
	require.Equal(t, int64(10000), inv.UnitPriceMinor)
	require.Equal(t, int64(30000), inv.SubtotalMinor)
	require.Equal(t, int64(5400), inv.TaxMinor)
	require.Equal(t, int64(35400), inv.TotalMinor)
	require.Regexp(t, `^BILL-\d{8}-\d{6}-[0-9A-F]{6}$`, inv.Number)

	require.Equal(t, int64(7), repo.products[1].Quantity)

	pdfPath := filepath.Join(dir, inv.Number+".pdf")
	require.Equal(t, pdfPath, inv.PDFPath)
	_, err = os.Stat(pdfPath)
	require.NoError(t, err)
	require.Equal(t, pdfPath, repo.pdfPaths[inv.ID])
}

func TestGenerateBillInsufficientStock(t *testing.T) {
	repo := newMemoryRepo(product.Product{ID: 1, Name: "Widget", Quantity: 5, UnitPriceMinor: 10000})
	rendered := 0
	svc := NewService(repo, renderFunc(func(inv Invoice) (string, error) {
		rendered++
		return "", nil
	}), nil, testLogger())

	_, err := svc.GenerateBill(context.Background(), 1, 20)
	var insufficient *product.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(5), insufficient.Available)

	require.Equal(t, int64(5), repo.products[1].Quantity)
	require.Empty(t, repo.invoices)
	require.Zero(t, rendered)
}

func TestGenerateBillUnknownProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopRenderer(), nil, testLogger())

	_, err := svc.GenerateBill(context.Background(), 42, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.invoices)
}

func TestGenerateBillInvalidQuantity(t *testing.T) {
	repo := newMemoryRepo(product.Product{ID: 1, Name: "Widget", Quantity: 5, UnitPriceMinor: 100})
	svc := NewService(repo, noopRenderer(), nil, testLogger())

	for _, qty := range []int64{0, -3} {
		_, err := svc.GenerateBill(context.Background(), 1, qty)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	}
	require.Equal(t, int64(5), repo.products[1].Quantity)
}

func TestGenerateBillRetriesOnDuplicateNumber(t *testing.T) {
	repo := newMemoryRepo(product.Product{ID: 1, Name: "Widget", Quantity: 10, UnitPriceMinor: 100})
	repo.dupFailures = 1
	svc := NewService(repo, noopRenderer(), nil, testLogger())

	inv, err := svc.GenerateBill(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, repo.invoices, 1)
	require.Equal(t, inv.Number, repo.invoices[0].Number)
	require.Equal(t, int64(8), repo.products[1].Quantity)
}

func TestGenerateBillGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newMemoryRepo(product.Product{ID: 1, Name: "Widget", Quantity: 10, UnitPriceMinor: 100})
	repo.dupFailures = maxNumberAttempts
	svc := NewService(repo, noopRenderer(), nil, testLogger())

	_, err := svc.GenerateBill(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrDuplicateBillNumber)
	require.Empty(t, repo.invoices)
	require.Equal(t, int64(10), repo.products[1].Quantity)
}

func TestGenerateBillPDFErrorKeepsBill(t *testing.T) {
	repo := newMemoryRepo(product.Product{ID: 1, Name: "Widget", Quantity: 10, UnitPriceMinor: 100})
	svc := NewService(repo, renderFunc(func(inv Invoice) (string, error) {
		return "", errors.New("disk full")
	}), nil, testLogger())

	inv, err := svc.GenerateBill(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Empty(t, inv.PDFPath)
	require.Len(t, repo.invoices, 1)
	require.Equal(t, int64(9), repo.products[1].Quantity)
}

func TestGenerateBillEnqueuesLowStockAlert(t *testing.T) {
	repo := newMemoryRepo(product.Product{ID: 7, Name: "Widget", Quantity: 2, UnitPriceMinor: 100})
	alerts := &recordingEnqueuer{}
	svc := NewService(repo, noopRenderer(), alerts, testLogger())

	_, err := svc.GenerateBill(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Empty(t, alerts.productIDs)

	_, err = svc.GenerateBill(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, alerts.productIDs)
}
