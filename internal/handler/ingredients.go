package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// IngredientStore defines the database methods needed by ingredient handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type IngredientStore interface {
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	UpdateIngredient(ctx context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error)
	DeleteIngredient(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// IngredientHandler handles inventory endpoints.
type IngredientHandler struct {
	store IngredientStore
}

func NewIngredientHandler(store IngredientStore) *IngredientHandler {
	return &IngredientHandler{store: store}
}

// RegisterRoutes registers ingredient endpoints. The kitchen can read stock
// levels; only admin and storage can change them.
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.RoleAdmin, enum.RoleStorage, enum.RoleKitchen)).Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleStorage))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type ingredientRequest struct {
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentStock string `json:"current_stock"`
	MinStock     string `json:"min_stock"`
	CostPerUnit  string `json:"cost_per_unit"`
}

type ingredientResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	CurrentStock string    `json:"current_stock"`
	MinStock     string    `json:"min_stock"`
	CostPerUnit  string    `json:"cost_per_unit"`
	LowStock     bool      `json:"low_stock"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toIngredientResponse(i database.Ingredient) ingredientResponse {
	return ingredientResponse{
		ID:           i.ID,
		Name:         i.Name,
		Unit:         i.Unit,
		CurrentStock: formatQuantity(i.CurrentStock),
		MinStock:     formatQuantity(i.MinStock),
		CostPerUnit:  formatMoney(i.CostPerUnit),
		LowStock:     numericToDecimal(i.CurrentStock).LessThanOrEqual(numericToDecimal(i.MinStock)),
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

type ingredientParams struct {
	current, min, cost pgtype.Numeric
}

// parse validates req, defaulting absent amounts to zero. It writes the 400
// itself and returns false on failure.
func (req *ingredientRequest) parse(w http.ResponseWriter) (ingredientParams, bool) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return ingredientParams{}, false
	}
	if req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return ingredientParams{}, false
	}

	var p ingredientParams
	fields := []struct {
		name  string
		value string
		dst   *pgtype.Numeric
		scale int32
	}{
		{"current_stock", req.CurrentStock, &p.current, 3},
		{"min_stock", req.MinStock, &p.min, 3},
		{"cost_per_unit", req.CostPerUnit, &p.cost, 2},
	}
	for _, f := range fields {
		v := f.value
		if v == "" {
			v = "0"
		}
		n, err := parseAmount(v, f.scale)
		if err != nil {
			amountError(w, f.name, err)
			return ingredientParams{}, false
		}
		*f.dst = n
	}
	return p, true
}

// List returns all ingredients with a derived low_stock flag.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.store.ListIngredients(r.Context())
	if err != nil {
		writeInternalError(w, "list ingredients", err)
		return
	}

	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = toIngredientResponse(ing)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	p, ok := req.parse(w)
	if !ok {
		return
	}

	ing, err := h.store.CreateIngredient(r.Context(), database.CreateIngredientParams{
		Name:         req.Name,
		Unit:         req.Unit,
		CurrentStock: p.current,
		MinStock:     p.min,
		CostPerUnit:  p.cost,
	})
	if err != nil {
		writeInternalError(w, "create ingredient", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIngredientResponse(ing))
}

func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	p, ok := req.parse(w)
	if !ok {
		return
	}

	ing, err := h.store.UpdateIngredient(r.Context(), database.UpdateIngredientParams{
		ID:           id,
		Name:         req.Name,
		Unit:         req.Unit,
		CurrentStock: p.current,
		MinStock:     p.min,
		CostPerUnit:  p.cost,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		writeInternalError(w, "update ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponse(ing))
}

func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	if _, err := h.store.DeleteIngredient(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		writeInternalError(w, "delete ingredient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
