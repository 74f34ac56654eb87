package handler

import (
	"context"
	"net/http"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/go-chi/chi/v5"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetAdminStats(ctx context.Context) (database.GetAdminStatsRow, error)
}

// ReportsHandler serves the admin dashboard counters.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted inside the admin-only subrouter: /admin
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.Stats)
}

type statsResponse struct {
	UsersCount          int64  `json:"users_count"`
	OrdersCount         int64  `json:"orders_count"`
	ProductsCount       int64  `json:"products_count"`
	TablesCount         int64  `json:"tables_count"`
	PendingOrders       int64  `json:"pending_orders"`
	CompletedOrders     int64  `json:"completed_orders"`
	TotalRevenue        string `json:"total_revenue"`
	ActiveMemberships   int64  `json:"active_memberships"`
	ProgramsCount       int64  `json:"programs_count"`
	LowStockIngredients int64  `json:"low_stock_ingredients"`
	OccupiedTables      int64  `json:"occupied_tables"`
}

// Stats returns store-wide counters. Revenue only counts paid orders.
func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.GetAdminStats(r.Context())
	if err != nil {
		writeInternalError(w, "get admin stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		UsersCount:          s.UsersCount,
		OrdersCount:         s.OrdersCount,
		ProductsCount:       s.ProductsCount,
		TablesCount:         s.TablesCount,
		PendingOrders:       s.PendingOrders,
		CompletedOrders:     s.CompletedOrders,
		TotalRevenue:        formatMoney(s.TotalRevenue),
		ActiveMemberships:   s.ActiveMemberships,
		ProgramsCount:       s.ProgramsCount,
		LowStockIngredients: s.LowStockIngredients,
		OccupiedTables:      s.OccupiedTables,
	})
}
