package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/pkg/httputil"
	"github.com/veryfrut/storefront/pkg/pagination"
)

// CatalogSource reads the product catalog.
type CatalogSource interface {
	ListProducts(ctx context.Context, query url.Values) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int) (*domain.Product, error)
}

// catalogFilters are the query parameters forwarded to the backend.
var catalogFilters = []string{"categoryId", "search", "name"}

// CatalogHandler serves the public product catalog.
type CatalogHandler struct {
	catalog CatalogSource
	logger  *slog.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(catalog CatalogSource, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ListProducts handles GET /api/v1/catalog/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := url.Values{}
	for _, k := range catalogFilters {
		if v := q.Get(k); v != "" {
			filters.Set(k, v)
		}
	}

	products, err := h.catalog.ListProducts(r.Context(), filters)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p := pagination.FromRequest(r)
	httputil.WriteJSON(w, http.StatusOK,
		httputil.NewPaginatedResponse(pagination.Window(products, p), len(products), p.Page, p.PerPage))
}

// GetProduct handles GET /api/v1/catalog/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}
