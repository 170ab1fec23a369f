package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velvra/api/internal/catalog"
	"github.com/velvra/api/internal/platform/auth"
	"github.com/velvra/api/internal/platform/httpx"
	"github.com/velvra/api/internal/services"
)

// CatalogHandlers exposes the public product listing and detail endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs handlers backed by the catalog service.
func NewCatalogHandlers(svc services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: svc}
}

// Routes wires the /products endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productId}", h.getProduct)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	spec := catalog.DecodeQuery(r.URL.Query())
	listing, err := h.catalog.ListProducts(ctx, spec)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	payload := productListingPayload{
		Products:       make([]productPayload, 0, len(listing.Products)),
		Total:          listing.Total,
		ActiveFilters:  listing.ActiveFilters,
		CanonicalQuery: listing.CanonicalQuery,
	}
	for _, product := range listing.Products {
		payload.Products = append(payload.Products, buildProductPayload(product))
	}

	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	cmd := services.GetProductCommand{
		ProductID:  productID,
		RecordView: true,
	}
	// Detail views are public; attribute the view when an identity is present.
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		cmd.UserID = identity.UID
	}

	product, err := h.catalog.GetProduct(ctx, cmd)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *CatalogHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to query catalog", http.StatusInternalServerError))
	}
}

type productListingPayload struct {
	Products       []productPayload `json:"products"`
	Total          int              `json:"total"`
	ActiveFilters  int              `json:"activeFilters"`
	CanonicalQuery string           `json:"canonicalQuery"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	Price       int64    `json:"price"`
	Color       string   `json:"color,omitempty"`
	Sizes       []string `json:"sizes"`
	Tags        []string `json:"tags,omitempty"`
	Images      []string `json:"images"`
	InStock     bool     `json:"inStock"`
	LowStock    bool     `json:"lowStock"`
	Featured    bool     `json:"featured"`
	Views       int64    `json:"views"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

func buildProductPayload(product services.Product) productPayload {
	sizes := product.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	images := product.Images
	if images == nil {
		images = []string{}
	}
	return productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Category:    product.Category,
		Subcategory: product.Subcategory,
		Price:       product.Price,
		Color:       product.Color,
		Sizes:       sizes,
		Tags:        product.Tags,
		Images:      images,
		InStock:     product.InStock,
		LowStock:    product.IsLowStock(),
		Featured:    product.Featured,
		Views:       product.Views,
		CreatedAt:   formatTime(product.CreatedAt),
		UpdatedAt:   formatTime(product.UpdatedAt),
	}
}
