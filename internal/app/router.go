package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/godown-erp/godown/internal/auth"
	"github.com/godown-erp/godown/internal/billing"
	"github.com/godown-erp/godown/internal/observability"
	"github.com/godown-erp/godown/internal/platform/httpx"
	"github.com/godown-erp/godown/internal/product"
	"github.com/godown-erp/godown/internal/shared"
	"github.com/godown-erp/godown/internal/view"
	"github.com/godown-erp/godown/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	ProductHandler *product.Handler
	BillingHandler *billing.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Godown defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	params.AuthHandler.MountRoutes(r)

	// Everything below requires a logged-in operator session.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireOperator)

		params.ProductHandler.MountRoutes(r)
		params.BillingHandler.MountRoutes(r)

		// Generated invoice PDFs, served straight from the invoice
		// directory on disk.
		invoiceServer := http.StripPrefix("/invoices/", http.FileServer(http.Dir(params.Config.InvoiceDir)))
		r.Handle("/invoices/*", invoiceServer)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
