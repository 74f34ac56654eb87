package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/cache"
	"github.com/HanzKay/KrasandApps-V1/internal/catalog"
	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	GetCategorySlug(ctx context.Context, id uuid.UUID) (string, error)
}

// ProductHandler handles product CRUD endpoints.
type ProductHandler struct {
	store ProductStore
	cache *cache.Cache
}

// NewProductHandler creates a new ProductHandler. A nil cache disables
// caching of the public menu.
func NewProductHandler(store ProductStore, c *cache.Cache) *ProductHandler {
	return &ProductHandler{store: store, cache: c}
}

// RegisterRoutes registers product endpoints on the given Chi router.
// Reads are public; writes need a catalog-managing role.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleStorage, enum.RoleCashier))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

type productRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Price       string               `json:"price"`
	ImageURL    string               `json:"image_url"`
	Available   *bool                `json:"available"`
	Featured    bool                 `json:"featured"`
	SortOrder   int32                `json:"sort_order"`
	Recipes     []catalog.RecipeLine `json:"recipes"`
}

type productResponse struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Category    string               `json:"category"`
	Price       string               `json:"price"`
	ImageURL    *string              `json:"image_url"`
	Available   bool                 `json:"available"`
	Featured    bool                 `json:"featured"`
	SortOrder   int32                `json:"sort_order"`
	Recipes     []catalog.RecipeLine `json:"recipes"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: textPtr(p.Description),
		Category:    p.Category,
		Price:       formatMoney(p.Price),
		ImageURL:    textPtr(p.ImageUrl),
		Available:   p.Available,
		Featured:    p.Featured,
		SortOrder:   p.SortOrder,
		Recipes:     []catalog.RecipeLine{},
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if lines, err := catalog.ParseRecipes(p.Recipes); err == nil && lines != nil {
		resp.Recipes = lines
	}
	return resp
}

// productParams is the validated, storage-ready form of a productRequest.
type productParams struct {
	category string
	price    pgtype.Numeric
	recipes  []byte
}

// validate checks the request and resolves its category reference. It writes
// the error response itself and returns false on failure.
func (h *ProductHandler) validate(w http.ResponseWriter, r *http.Request, req productRequest) (productParams, bool) {
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return productParams{}, false
	}
	if req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category is required"})
		return productParams{}, false
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return productParams{}, false
	}
	price, err := parseAmount(req.Price, 2)
	if err != nil {
		amountError(w, "price", err)
		return productParams{}, false
	}
	if err := catalog.ValidateRecipes(req.Recipes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return productParams{}, false
	}

	slug, err := catalog.CanonicalCategory(r.Context(), req.Category, h.categorySlug)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownCategory) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
			return productParams{}, false
		}
		writeInternalError(w, "resolve category", err)
		return productParams{}, false
	}

	recipes := req.Recipes
	if recipes == nil {
		recipes = []catalog.RecipeLine{}
	}
	raw, err := json.Marshal(recipes)
	if err != nil {
		writeInternalError(w, "encode recipes", err)
		return productParams{}, false
	}
	return productParams{category: slug, price: price, recipes: raw}, true
}

// categorySlug resolves a category ID, reporting a missing row as an unknown
// category.
func (h *ProductHandler) categorySlug(ctx context.Context, id uuid.UUID) (string, error) {
	slug, err := h.store.GetCategorySlug(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", catalog.ErrUnknownCategory
	}
	return slug, err
}

func (h *ProductHandler) invalidate(r *http.Request) {
	if err := h.cache.InvalidateCatalog(r.Context()); err != nil {
		zap.L().Warn("invalidate catalog cache", zap.Error(err))
	}
}

// --- Handlers ---

// List returns products, optionally filtered by category (slug or id) and
// featured flag. Unavailable products are only included for staff.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeUnavailable := q.Get("include_unavailable") == "true" && isStaffRequest(r)
	featuredOnly := q.Get("featured") == "true"

	category := ""
	if ref := q.Get("category"); ref != "" {
		slug, err := catalog.CanonicalCategory(r.Context(), ref, h.categorySlug)
		if err != nil {
			if errors.Is(err, catalog.ErrUnknownCategory) {
				writeJSON(w, http.StatusOK, []productResponse{})
				return
			}
			writeInternalError(w, "resolve category", err)
			return
		}
		category = slug
	}

	cacheable := !includeUnavailable
	key := cache.ProductsKey(category, featuredOnly)
	if cacheable {
		var cached []productResponse
		hit, err := h.cache.GetJSON(r.Context(), key, &cached)
		if err != nil {
			zap.L().Warn("read product cache", zap.Error(err))
		}
		if hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	products, err := h.store.ListProducts(r.Context(), database.ListProductsParams{
		Category:           optionalText(category),
		IncludeUnavailable: includeUnavailable,
		FeaturedOnly:       featuredOnly,
	})
	if err != nil {
		writeInternalError(w, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}

	if cacheable {
		if err := h.cache.SetJSON(r.Context(), key, resp); err != nil {
			zap.L().Warn("write product cache", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		writeInternalError(w, "get product", err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Create adds a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, ok := h.validate(w, r, req)
	if !ok {
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:        strings.TrimSpace(req.Name),
		Description: optionalText(req.Description),
		Category:    params.category,
		Price:       params.price,
		ImageUrl:    optionalText(req.ImageURL),
		Available:   available,
		Featured:    req.Featured,
		SortOrder:   req.SortOrder,
		Recipes:     params.recipes,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
			return
		}
		writeInternalError(w, "create product", err)
		return
	}

	h.invalidate(r)
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update replaces a product's fields.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, ok := h.validate(w, r, req)
	if !ok {
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: optionalText(req.Description),
		Category:    params.category,
		Price:       params.price,
		ImageUrl:    optionalText(req.ImageURL),
		Available:   available,
		Featured:    req.Featured,
		SortOrder:   req.SortOrder,
		Recipes:     params.recipes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
			return
		}
		writeInternalError(w, "update product", err)
		return
	}

	h.invalidate(r)
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete removes a product. Past orders keep their item snapshots.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		writeInternalError(w, "delete product", err)
		return
	}

	h.invalidate(r)
	w.WriteHeader(http.StatusNoContent)
}
