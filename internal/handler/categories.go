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
	"go.uber.org/zap"
)

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// CategoryHandler handles category CRUD endpoints.
type CategoryHandler struct {
	store CategoryStore
	cache *cache.Cache
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(store CategoryStore, c *cache.Cache) *CategoryHandler {
	return &CategoryHandler{store: store, cache: c}
}

// RegisterRoutes registers category endpoints on the given Chi router.
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleStorage, enum.RoleCashier))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

type categoryRequest struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	DiscountClass string `json:"discount_class"`
	SortOrder     int32  `json:"sort_order"`
	Active        *bool  `json:"active"`
}

type categoryResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   *string   `json:"description"`
	Icon          *string   `json:"icon"`
	DiscountClass string    `json:"discount_class"`
	SortOrder     int32     `json:"sort_order"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		Slug:          c.Slug,
		Description:   textPtr(c.Description),
		Icon:          textPtr(c.Icon),
		DiscountClass: c.DiscountClass,
		SortOrder:     c.SortOrder,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
	}
}

// normalize validates req and fills defaults. It returns an error message
// suitable for a 400 response, or "" when the request is valid.
func (req *categoryRequest) normalize() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Slug == "" {
		req.Slug = req.Name
	}
	req.Slug = catalog.Slugify(req.Slug)
	if req.Slug == "" {
		return "slug must contain letters or digits"
	}
	if req.DiscountClass == "" {
		req.DiscountClass = catalog.Bucket(req.Slug, "")
	}
	if !enum.IsDiscountClass(req.DiscountClass) {
		return "invalid discount_class"
	}
	return ""
}

func (h *CategoryHandler) invalidate(r *http.Request) {
	if err := h.cache.InvalidateCatalog(r.Context()); err != nil {
		zap.L().Warn("invalidate catalog cache", zap.Error(err))
	}
}

// --- Handlers ---

// List returns active categories. Staff may pass include_inactive=true.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true" && isStaffRequest(r)

	if !includeInactive {
		var cached []categoryResponse
		hit, err := h.cache.GetJSON(r.Context(), cache.CategoriesKey(), &cached)
		if err != nil {
			zap.L().Warn("read category cache", zap.Error(err))
		}
		if hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	categories, err := h.store.ListCategories(r.Context(), includeInactive)
	if err != nil {
		writeInternalError(w, "list categories", err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}

	if !includeInactive {
		if err := h.cache.SetJSON(r.Context(), cache.CategoriesKey(), resp); err != nil {
			zap.L().Warn("write category cache", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new category. The slug defaults to the slugified name.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := req.normalize(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		Name:          req.Name,
		Slug:          req.Slug,
		Description:   optionalText(req.Description),
		Icon:          optionalText(req.Icon),
		DiscountClass: req.DiscountClass,
		SortOrder:     req.SortOrder,
		Active:        active,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category slug already exists"})
			return
		}
		writeInternalError(w, "create category", err)
		return
	}

	h.invalidate(r)
	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Update replaces a category's fields. Renaming the slug cascades to products.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := req.normalize(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:            id,
		Name:          req.Name,
		Slug:          req.Slug,
		Description:   optionalText(req.Description),
		Icon:          optionalText(req.Icon),
		DiscountClass: req.DiscountClass,
		SortOrder:     req.SortOrder,
		Active:        active,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category slug already exists"})
			return
		}
		writeInternalError(w, "update category", err)
		return
	}

	h.invalidate(r)
	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete removes a category that no product references.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	if _, err := h.store.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category has products"})
			return
		}
		writeInternalError(w, "delete category", err)
		return
	}

	h.invalidate(r)
	w.WriteHeader(http.StatusNoContent)
}
