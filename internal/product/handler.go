package product

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/godown-erp/godown/internal/shared"
	"github.com/godown-erp/godown/internal/view"
)

// Handler wires HTTP endpoints for the inventory views.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs the product handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showInventory)
	r.Post("/add", h.handleAdd)
	r.Post("/delete/{id}", h.handleDelete)
}

type addForm struct {
	Name     string `validate:"required"`
	Quantity string `validate:"required"`
	Price    string `validate:"required"`
}

type inventoryPageData struct {
	Products []Product
	Form     addForm
	Errors   map[string]string
}

func (h *Handler) showInventory(w http.ResponseWriter, r *http.Request) {
	h.renderInventory(w, r, inventoryPageData{Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := addForm{
		Name:     r.PostFormValue("name"),
		Quantity: r.PostFormValue("qty"),
		Price:    r.PostFormValue("price"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = "This field is required"
		}
	}

	input := AddInput{Name: form.Name}
	if form.Quantity != "" {
		qty, err := strconv.ParseInt(form.Quantity, 10, 64)
		if err != nil || qty < 0 {
			errs["Quantity"] = "Quantity must be a non-negative whole number"
		} else {
			input.Quantity = qty
		}
	}
	if form.Price != "" {
		priceMinor, err := shared.ParseRupees(form.Price)
		if err != nil {
			errs["Price"] = "Price must be a non-negative amount"
		} else {
			input.PriceMinor = priceMinor
		}
	}

	if len(errs) == 0 {
		if _, err := h.service.Add(r.Context(), input); err != nil {
			if errors.Is(err, ErrInvalidInput) {
				errs["general"] = "Invalid product details"
			} else {
				h.logger.Error("add product", slog.Any("error", err))
				errs["general"] = shared.UserSafeMessage(err)
			}
		}
	}

	if len(errs) > 0 {
		h.renderInventory(w, r, inventoryPageData{Form: form, Errors: errs}, http.StatusBadRequest)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Product added"})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete product", slog.Int64("id", id), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderInventory(w http.ResponseWriter, r *http.Request, data inventoryPageData, status int) {
	products, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		if data.Errors == nil {
			data.Errors = map[string]string{}
		}
		data.Errors["general"] = shared.UserSafeMessage(err)
	}
	data.Products = products

	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	var flash *shared.FlashMessage
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Inventory",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/inventory.html", viewData); err != nil {
		h.logger.Error("render inventory", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
