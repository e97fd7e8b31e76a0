package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/foodboard/api/internal/database"
	"github.com/go-chi/chi/v5"
)

// ProductCatalog defines the catalog methods needed by product handlers.
// Satisfied by *catalog.Cache.
type ProductCatalog interface {
	ListActiveProducts(ctx context.Context) ([]database.Product, error)
	Invalidate(ctx context.Context) error
}

// ProductHandler serves the product selector and catalog cache control.
type ProductHandler struct {
	catalog ProductCatalog
	logger  *slog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog ProductCatalog, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the public product listing at /products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterAdminRoutes registers cache control at /catalog.
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Delete("/cache", h.InvalidateCache)
}

type productResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// List handles GET /products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListActiveProducts(r.Context())
	if err != nil {
		h.logger.Error("list products", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage unavailable, retry"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{ID: p.ID, Name: p.Name, Price: p.Price.StringFixed(2)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// InvalidateCache handles DELETE /catalog/cache.
func (h *ProductHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Invalidate(r.Context()); err != nil {
		h.logger.Error("invalidate catalog cache", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "cache unavailable, retry"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
