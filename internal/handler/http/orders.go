package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veryfrut/storefront/internal/history"
	"github.com/veryfrut/storefront/pkg/httputil"
	"github.com/veryfrut/storefront/pkg/middleware"
	"github.com/veryfrut/storefront/pkg/pagination"
	"github.com/veryfrut/storefront/pkg/validator"
)

// OrderHandler serves order history and order changes.
type OrderHandler struct {
	service *history.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(svc *history.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// StatusInput is the body of PATCH /admin/orders/{id}/status.
type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// List handles GET /api/v1/orders[?refresh=true&page=&per_page=]
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context(), middleware.UserIDFromContext(r.Context()), queryBool(r, "refresh"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p := pagination.FromRequest(r)
	page := pagination.Window(orders, p)
	views := make([]orderView, len(page))
	for i, o := range page {
		views[i] = newOrderView(o, h.service.Editable(o))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(views, len(orders), p.Page, p.PerPage))
}

// Edit handles PATCH /api/v1/orders/{id}
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var in history.EditOrderInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.EditOrder(r.Context(), middleware.UserIDFromContext(r.Context()), id, in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newOrderView(*order, h.service.Editable(*order)))
}

// UpdateStatus handles PATCH /api/v1/admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var in StatusInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, in.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newOrderView(*order, h.service.Editable(*order)))
}
