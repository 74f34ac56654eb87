package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CogsStore defines the database methods needed by COGS handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CogsStore interface {
	ListCogs(ctx context.Context) ([]database.Cog, error)
	CreateCog(ctx context.Context, arg database.CreateCogParams) (database.Cog, error)
	UpdateCog(ctx context.Context, arg database.UpdateCogParams) (database.Cog, error)
	DeleteCog(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// CogsHandler handles cost-of-goods entries.
type CogsHandler struct {
	store CogsStore
}

func NewCogsHandler(store CogsStore) *CogsHandler {
	return &CogsHandler{store: store}
}

// RegisterRoutes registers COGS endpoints. Role checks are applied by the
// router for the whole subtree.
func (h *CogsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type cogRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
	Category    string `json:"category"`
}

type cogResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Cost        string    `json:"cost"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCogResponse(c database.Cog) cogResponse {
	return cogResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: textPtr(c.Description),
		Cost:        formatMoney(c.Cost),
		Category:    c.Category,
		CreatedAt:   c.CreatedAt,
	}
}

func decodeCogRequest(w http.ResponseWriter, r *http.Request) (cogRequest, bool) {
	var req cogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	switch {
	case req.Name == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return req, false
	case req.Category == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category is required"})
		return req, false
	case req.Cost == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cost is required"})
		return req, false
	}
	return req, true
}

func (h *CogsHandler) List(w http.ResponseWriter, r *http.Request) {
	cogs, err := h.store.ListCogs(r.Context())
	if err != nil {
		writeInternalError(w, "list cogs", err)
		return
	}
	resp := make([]cogResponse, len(cogs))
	for i, c := range cogs {
		resp[i] = toCogResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CogsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCogRequest(w, r)
	if !ok {
		return
	}
	cost, err := parseAmount(req.Cost, 2)
	if err != nil {
		amountError(w, "cost", err)
		return
	}

	cog, err := h.store.CreateCog(r.Context(), database.CreateCogParams{
		Name:        req.Name,
		Description: optionalText(req.Description),
		Cost:        cost,
		Category:    req.Category,
	})
	if err != nil {
		writeInternalError(w, "create cog", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCogResponse(cog))
}

func (h *CogsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cogs ID"})
		return
	}
	req, ok := decodeCogRequest(w, r)
	if !ok {
		return
	}
	cost, err := parseAmount(req.Cost, 2)
	if err != nil {
		amountError(w, "cost", err)
		return
	}

	cog, err := h.store.UpdateCog(r.Context(), database.UpdateCogParams{
		ID:          id,
		Name:        req.Name,
		Description: optionalText(req.Description),
		Cost:        cost,
		Category:    req.Category,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cogs entry not found"})
			return
		}
		writeInternalError(w, "update cog", err)
		return
	}
	writeJSON(w, http.StatusOK, toCogResponse(cog))
}

func (h *CogsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cogs ID"})
		return
	}
	if _, err := h.store.DeleteCog(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cogs entry not found"})
			return
		}
		writeInternalError(w, "delete cog", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
