package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veryfrut/storefront/internal/cart"
	"github.com/veryfrut/storefront/pkg/httputil"
	"github.com/veryfrut/storefront/pkg/middleware"
	"github.com/veryfrut/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *cart.Service
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *cart.Service, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// Get handles GET /api/v1/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartView(c))
}

// Grouped handles GET /api/v1/cart/grouped
func (h *CartHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, groupedCartView{
		Groups:     c.GroupedView(),
		TotalPrice: c.TotalPrice(),
		TotalItems: c.TotalItemCount(),
	})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in cart.AddItemInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	c, err := h.service.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartView(c))
}

// UpdateQuantity handles PUT /api/v1/cart/items/{productId}/{unitId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, unitID, ok := lineKey(w, r)
	if !ok {
		return
	}

	var in cart.UpdateQuantityInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	c, err := h.service.UpdateQuantity(r.Context(), middleware.UserIDFromContext(r.Context()),
		productID, unitID, in.Quantity, r.URL.Query().Get("line_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartView(c))
}

// RemoveLine handles DELETE /api/v1/cart/items/{productId}/{unitId}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	productID, unitID, ok := lineKey(w, r)
	if !ok {
		return
	}

	c, err := h.service.RemoveLine(r.Context(), middleware.UserIDFromContext(r.Context()),
		productID, unitID, r.URL.Query().Get("line_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartView(c))
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in cart.CheckoutInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.Checkout(r.Context(), middleware.UserIDFromContext(r.Context()), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Location", "/api/v1/orders?refresh=true")
	httputil.WriteData(w, http.StatusCreated, newOrderView(*order, false))
}

func lineKey(w http.ResponseWriter, r *http.Request) (productID, unitID int, ok bool) {
	if productID, ok = httputil.ParseID(w, "productId", chi.URLParam(r, "productId")); !ok {
		return 0, 0, false
	}
	if unitID, ok = httputil.ParseID(w, "unitId", chi.URLParam(r, "unitId")); !ok {
		return 0, 0, false
	}
	return productID, unitID, true
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
