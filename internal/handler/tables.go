package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/events"
	"github.com/HanzKay/KrasandApps-V1/internal/lifecycle"
	"github.com/HanzKay/KrasandApps-V1/internal/middleware"
	"github.com/HanzKay/KrasandApps-V1/internal/qr"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context) ([]database.DiningTable, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	GetTableByQRCode(ctx context.Context, qrCode string) (database.DiningTable, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error)
	UpdateTableCapacity(ctx context.Context, arg database.UpdateTableCapacityParams) (database.DiningTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error)
	DeleteTable(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// TableHandler handles dining table endpoints and QR verification.
type TableHandler struct {
	store     TableStore
	qr        qr.Generator
	publisher events.Publisher
}

// NewTableHandler creates a new TableHandler. A nil publisher disables events.
func NewTableHandler(store TableStore, gen qr.Generator, publisher events.Publisher) *TableHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TableHandler{store: store, qr: gen, publisher: publisher}
}

// RegisterRoutes registers table endpoints. QR verification is public so a
// customer can resolve a scanned code before logging in.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/verify/{qr_code}", h.Verify)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.StaffRoles...))
		r.Get("/", h.List)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleStorage, enum.RoleCashier, enum.RoleWaiter))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
	})
	r.With(middleware.RequireRole(enum.RoleAdmin, enum.RoleWaiter, enum.RoleCashier)).Put("/{id}/status", h.UpdateStatus)
	r.With(middleware.RequireRole(enum.RoleAdmin)).Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createTableRequest struct {
	TableNumber int32 `json:"table_number"`
	Capacity    int32 `json:"capacity"`
}

type updateTableRequest struct {
	TableNumber *int32 `json:"table_number"`
	Capacity    int32  `json:"capacity"`
}

type tableStatusRequest struct {
	Status string `json:"status"`
}

type tableResponse struct {
	ID          uuid.UUID `json:"id"`
	TableNumber int32     `json:"table_number"`
	Capacity    int32     `json:"capacity"`
	Status      string    `json:"status"`
	QRCode      string    `json:"qr_code"`
	QRImage     string    `json:"qr_image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTableResponse(t database.DiningTable) tableResponse {
	return tableResponse{
		ID:          t.ID,
		TableNumber: t.TableNumber,
		Capacity:    t.Capacity,
		Status:      t.Status,
		QRCode:      t.QrCode,
		QRImage:     t.QrImage,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// --- Handlers ---

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		writeInternalError(w, "list tables", err)
		return
	}
	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Verify resolves a scanned QR token to its table.
func (h *TableHandler) Verify(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "qr_code")
	table, err := h.store.GetTableByQRCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invalid QR code"})
			return
		}
		writeInternalError(w, "verify table", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Create adds a table with a freshly issued QR token and image.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TableNumber < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number must be >= 1"})
		return
	}
	if req.Capacity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capacity must be >= 1"})
		return
	}

	token := qr.Token(int(req.TableNumber))
	image, err := h.qr.DataURL(token)
	if err != nil {
		writeInternalError(w, "generate qr", err)
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		TableNumber: req.TableNumber,
		Capacity:    req.Capacity,
		QrCode:      token,
		QrImage:     image,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table number already exists"})
			return
		}
		writeInternalError(w, "create table", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// Update changes a table's capacity. The table number is fixed because it is
// baked into the printed QR code.
func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req updateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Capacity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capacity must be >= 1"})
		return
	}

	current, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		writeInternalError(w, "get table", err)
		return
	}
	if req.TableNumber != nil && *req.TableNumber != current.TableNumber {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "table_number cannot be changed"})
		return
	}

	table, err := h.store.UpdateTableCapacity(r.Context(), database.UpdateTableCapacityParams{
		ID:       id,
		Capacity: req.Capacity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		writeInternalError(w, "update table", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// UpdateStatus moves a table along its occupancy cycle. The write is a
// compare-and-set on the status read, so concurrent changes yield 409.
func (h *TableHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req tableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.IsTableStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	current, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		writeInternalError(w, "get table", err)
		return
	}
	if err := lifecycle.ValidateTableTransition(current.Status, req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	table, err := h.store.UpdateTableStatus(r.Context(), database.UpdateTableStatusParams{
		ID:       id,
		Status:   req.Status,
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table status changed, please retry"})
			return
		}
		writeInternalError(w, "update table status", err)
		return
	}

	err = h.publisher.TableStatusChanged(r.Context(), events.TableStatusChanged{
		TableID:     table.ID,
		TableNumber: table.TableNumber,
		From:        current.Status,
		To:          table.Status,
	})
	if err != nil {
		zap.L().Warn("publish table status", zap.Error(err), zap.String("table_id", id.String()))
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}
	if _, err := h.store.DeleteTable(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		writeInternalError(w, "delete table", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
