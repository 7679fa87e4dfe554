package app_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/godown-erp/godown/internal/app"
	"github.com/godown-erp/godown/internal/auth"
	"github.com/godown-erp/godown/internal/billing"
	"github.com/godown-erp/godown/internal/product"
	"github.com/godown-erp/godown/internal/shared"
	"github.com/godown-erp/godown/internal/view"
	_ "github.com/godown-erp/godown/testing"
)

type fakeProductRepo struct {
	products []product.Product
	nextID   int64
}

func (r *fakeProductRepo) List(ctx context.Context) ([]product.Product, error) {
	result := make([]product.Product, len(r.products))
	copy(result, r.products)
	return result, nil
}

func (r *fakeProductRepo) ListInStock(ctx context.Context) ([]product.Product, error) {
	var result []product.Product
	for _, p := range r.products {
		if p.Quantity > 0 {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeProductRepo) Insert(ctx context.Context, input product.AddInput) (product.Product, error) {
	r.nextID++
	p := product.Product{
		ID:             r.nextID,
		Name:           input.Name,
		Quantity:       input.Quantity,
		UnitPriceMinor: input.PriceMinor,
		CreatedAt:      time.Now(),
	}
	r.products = append(r.products, p)
	return p, nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id int64) error {
	for i, p := range r.products {
		if p.ID == id {
			r.products = append(r.products[:i], r.products[i+1:]...)
			break
		}
	}
	return nil
}

type fakeBillingRepo struct {
	store    *fakeProductRepo
	invoices []billing.Invoice
	nextID   int64
}

type fakeBillingTx struct {
	repo *fakeBillingRepo
}

func (r *fakeBillingRepo) WithTx(ctx context.Context, fn func(context.Context, billing.TxRepository) error) error {
	snapshot := make([]product.Product, len(r.store.products))
	copy(snapshot, r.store.products)
	if err := fn(ctx, &fakeBillingTx{repo: r}); err != nil {
		r.store.products = snapshot
		return err
	}
	return nil
}

func (r *fakeBillingRepo) ListInvoices(ctx context.Context, limit int) ([]billing.Invoice, error) {
	result := make([]billing.Invoice, len(r.invoices))
	copy(result, r.invoices)
	return result, nil
}

func (r *fakeBillingRepo) UpdatePDFPath(ctx context.Context, id int64, path string) error {
	for i := range r.invoices {
		if r.invoices[i].ID == id {
			r.invoices[i].PDFPath = path
		}
	}
	return nil
}

func (tx *fakeBillingTx) DeductStock(ctx context.Context, productID, qty int64) (product.Product, error) {
	for i, p := range tx.repo.store.products {
		if p.ID != productID {
			continue
		}
		if qty > p.Quantity {
			return product.Product{}, &product.InsufficientStockError{Available: p.Quantity}
		}
		tx.repo.store.products[i].Quantity -= qty
		return tx.repo.store.products[i], nil
	}
	return product.Product{}, shared.ErrNotFound
}

func (tx *fakeBillingTx) InsertInvoice(ctx context.Context, inv billing.Invoice) (int64, error) {
	tx.repo.nextID++
	inv.ID = tx.repo.nextID
	tx.repo.invoices = append(tx.repo.invoices, inv)
	return inv.ID, nil
}

type testServer struct {
	router     http.Handler
	products   *fakeProductRepo
	bills      *fakeBillingRepo
	invoiceDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &app.Config{
		AppEnv:            "test",
		AppRequestTimeout: 10 * time.Second,
		InvoiceDir:        t.TempDir(),
	}

	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)

	authService, err := auth.NewService("admin", "1234")
	require.NoError(t, err)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	productRepo := &fakeProductRepo{}
	productService := product.NewService(productRepo)
	productHandler := product.NewHandler(logger, productService, templates, csrfManager)

	billingRepo := &fakeBillingRepo{store: productRepo}
	billingService := billing.NewService(billingRepo, billing.NewFileRenderer(cfg.InvoiceDir), nil, logger)
	billingHandler := billing.NewHandler(logger, billingService, productService, templates, csrfManager, nil)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		ProductHandler: productHandler,
		BillingHandler: billingHandler,
	})

	return &testServer{
		router:     router,
		products:   productRepo,
		bills:      billingRepo,
		invoiceDir: cfg.InvoiceDir,
	}
}

var csrfInputRe = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// session bootstraps a browser-like session: GET /login to obtain the
// cookie and CSRF token.
func (s *testServer) session(t *testing.T) ([]*http.Cookie, string) {
	t.Helper()
	res := s.do(t, httptest.NewRequest(http.MethodGet, "/login", nil), nil)
	require.Equal(t, http.StatusOK, res.Code)
	match := csrfInputRe.FindStringSubmatch(res.Body.String())
	require.NotNil(t, match, "csrf token not rendered")
	return res.Result().Cookies(), match[1]
}

func (s *testServer) login(t *testing.T) ([]*http.Cookie, string) {
	t.Helper()
	cookies, token := s.session(t)
	form := url.Values{}
	form.Set("username", "admin")
	form.Set("password", "1234")
	form.Set("csrf_token", token)
	res := s.postForm(t, "/login", form, cookies)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/", res.Header().Get("Location"))
	return cookies, token
}

func (s *testServer) do(t *testing.T, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	s.router.ServeHTTP(res, req)
	return res
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req, cookies)
}

func TestProtectedRoutesRedirectWhenUnauthenticated(t *testing.T) {
	srv := newTestServer(t)
	cookies, token := srv.session(t)

	for _, path := range []string{"/", "/billing", "/bills"} {
		res := srv.do(t, httptest.NewRequest(http.MethodGet, path, nil), cookies)
		require.Equal(t, http.StatusSeeOther, res.Code, "GET %s", path)
		require.Equal(t, "/login", res.Header().Get("Location"), "GET %s", path)
	}

	form := url.Values{}
	form.Set("csrf_token", token)
	for _, path := range []string{"/add", "/delete/1", "/bill"} {
		res := srv.postForm(t, path, form, cookies)
		require.Equal(t, http.StatusSeeOther, res.Code, "POST %s", path)
		require.Equal(t, "/login", res.Header().Get("Location"), "POST %s", path)
	}
}

func TestInventoryFlow(t *testing.T) {
	srv := newTestServer(t)
	cookies, token := srv.login(t)

	res := srv.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookies)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Warehouse Inventory")

	form := url.Values{}
	form.Set("csrf_token", token)
	form.Set("name", "Widget")
	form.Set("qty", "10")
	form.Set("price", "100.00")
	res = srv.postForm(t, "/add", form, cookies)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, srv.products.products, 1)

	res = srv.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookies)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Widget")
	require.Contains(t, res.Body.String(), "100.00")
	require.Contains(t, res.Body.String(), "In Stock")

	del := url.Values{}
	del.Set("csrf_token", token)
	res = srv.postForm(t, "/delete/1", del, cookies)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Empty(t, srv.products.products)

	// Deleting again is a no-op.
	res = srv.postForm(t, "/delete/1", del, cookies)
	require.Equal(t, http.StatusSeeOther, res.Code)
}

func TestBillingFlow(t *testing.T) {
	srv := newTestServer(t)
	cookies, token := srv.login(t)

	add := url.Values{}
	add.Set("csrf_token", token)
	add.Set("name", "Widget")
	add.Set("qty", "10")
	add.Set("price", "100.00")
	res := srv.postForm(t, "/add", add, cookies)
	require.Equal(t, http.StatusSeeOther, res.Code)

	res = srv.do(t, httptest.NewRequest(http.MethodGet, "/billing", nil), cookies)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Widget (Stock: 10)")

	bill := url.Values{}
	bill.Set("csrf_token", token)
	bill.Set("product_id", "1")
	bill.Set("sell_qty", "3")
	res = srv.postForm(t, "/bill", bill, cookies)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	require.Contains(t, body, "GST BILL")
	require.Contains(t, body, "354.00")
	require.Contains(t, body, "54.00")
	require.Contains(t, body, "300.00")

	require.Equal(t, int64(7), srv.products.products[0].Quantity)
	require.Len(t, srv.bills.invoices, 1)

	number := srv.bills.invoices[0].Number
	_, err := os.Stat(filepath.Join(srv.invoiceDir, number+".pdf"))
	require.NoError(t, err)

	// The PDF download is served under /invoices.
	res = srv.do(t, httptest.NewRequest(http.MethodGet, "/invoices/"+number+".pdf", nil), cookies)
	require.Equal(t, http.StatusOK, res.Code)

	res = srv.do(t, httptest.NewRequest(http.MethodGet, "/bills", nil), cookies)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), number)
}

func TestBillingInsufficientStock(t *testing.T) {
	srv := newTestServer(t)
	cookies, token := srv.login(t)

	add := url.Values{}
	add.Set("csrf_token", token)
	add.Set("name", "Widget")
	add.Set("qty", "5")
	add.Set("price", "100.00")
	res := srv.postForm(t, "/add", add, cookies)
	require.Equal(t, http.StatusSeeOther, res.Code)

	bill := url.Values{}
	bill.Set("csrf_token", token)
	bill.Set("product_id", "1")
	bill.Set("sell_qty", "20")
	res = srv.postForm(t, "/bill", bill, cookies)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "Insufficient Stock (Available: 5)")

	require.Equal(t, int64(5), srv.products.products[0].Quantity)
	require.Empty(t, srv.bills.invoices)

	entries, err := os.ReadDir(srv.invoiceDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestBillingUnknownProduct(t *testing.T) {
	srv := newTestServer(t)
	cookies, token := srv.login(t)

	bill := url.Values{}
	bill.Set("csrf_token", token)
	bill.Set("product_id", "42")
	bill.Set("sell_qty", "1")
	res := srv.postForm(t, "/bill", bill, cookies)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "Product not found")
}

func TestPostWithoutCSRFTokenForbidden(t *testing.T) {
	srv := newTestServer(t)
	cookies, _ := srv.login(t)

	form := url.Values{}
	form.Set("name", "Widget")
	res := srv.postForm(t, "/add", form, cookies)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	res := srv.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `{"status":"ok"}`, res.Body.String())
}
