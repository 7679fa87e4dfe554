package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/godown-erp/godown/internal/observability"
	"github.com/godown-erp/godown/internal/product"
	"github.com/godown-erp/godown/internal/shared"
	"github.com/godown-erp/godown/internal/view"
)

// StockLister supplies the in-stock products for the billing dropdown.
type StockLister interface {
	ListInStock(ctx context.Context) ([]product.Product, error)
}

// Handler wires HTTP endpoints for billing flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	stock     StockLister
	templates *view.Engine
	csrf      *shared.CSRFManager
	metrics   *observability.Metrics
}

// NewHandler constructs the billing handler.
func NewHandler(logger *slog.Logger, service *Service, stock StockLister, templates *view.Engine, csrf *shared.CSRFManager, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		stock:     stock,
		templates: templates,
		csrf:      csrf,
		metrics:   metrics,
	}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/billing", h.showBilling)
	r.Post("/bill", h.handleBill)
	r.Get("/bills", h.showBills)
}

type billingPageData struct {
	Products []product.Product
	Errors   map[string]string
}

type billPageData struct {
	Bill    Invoice
	PDFLink string
}

type billsPageData struct {
	Bills []Invoice
}

func (h *Handler) showBilling(w http.ResponseWriter, r *http.Request) {
	h.renderBilling(w, r, map[string]string{}, http.StatusOK)
}

func (h *Handler) handleBill(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	errs := map[string]string{}
	productID, err := strconv.ParseInt(r.PostFormValue("product_id"), 10, 64)
	if err != nil {
		errs["general"] = "Select a product"
	}
	sellQty, err := strconv.ParseInt(r.PostFormValue("sell_qty"), 10, 64)
	if err != nil || sellQty < 1 {
		errs["SellQty"] = "Quantity must be a positive whole number"
	}
	if len(errs) > 0 {
		h.renderBilling(w, r, errs, http.StatusBadRequest)
		return
	}

	inv, err := h.service.GenerateBill(r.Context(), productID, sellQty)
	if err != nil {
		var insufficient *product.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			errs["general"] = fmt.Sprintf("Insufficient Stock (Available: %d)", insufficient.Available)
		case errors.Is(err, shared.ErrNotFound):
			errs["general"] = "Product not found"
		case errors.Is(err, ErrInvalidQuantity):
			errs["SellQty"] = "Quantity must be a positive whole number"
		default:
			h.logger.Error("generate bill", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
		h.renderBilling(w, r, errs, http.StatusBadRequest)
		return
	}

	if h.metrics != nil {
		h.metrics.BillGenerated()
	}

	data := billPageData{Bill: inv}
	if inv.PDFPath != "" {
		data.PDFLink = "/invoices/" + inv.Number + ".pdf"
	}
	h.render(w, r, "pages/bill.html", "Bill "+inv.Number, data, http.StatusOK)
}

func (h *Handler) showBills(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.ListInvoices(r.Context(), 100)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/bills.html", "Past Bills", billsPageData{Bills: invoices}, http.StatusOK)
}

func (h *Handler) renderBilling(w http.ResponseWriter, r *http.Request, errs map[string]string, status int) {
	products, err := h.stock.ListInStock(r.Context())
	if err != nil {
		h.logger.Error("list in-stock products", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
	}
	h.render(w, r, "pages/billing.html", "Billing", billingPageData{Products: products, Errors: errs}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	var flash *shared.FlashMessage
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render billing page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
