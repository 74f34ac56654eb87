package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type payRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type transactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	Amount        string          `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	ProcessedBy   *uuid.UUID      `json:"processed_by"`
	ReceiptData   json.RawMessage `json:"receipt_data"`
	CreatedAt     time.Time       `json:"created_at"`
}

type paymentResponse struct {
	Order       orderResponse       `json:"order"`
	Transaction transactionResponse `json:"transaction"`
}

func toTransactionResponse(t database.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		OrderID:       t.OrderID,
		Amount:        formatMoney(t.Amount),
		PaymentMethod: t.PaymentMethod,
		ProcessedBy:   uuidPtr(t.ProcessedBy),
		ReceiptData:   rawJSON(t.ReceiptData),
		CreatedAt:     t.CreatedAt,
	}
}

// Pay settles an order at the till and returns it with its transaction.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.IsPaymentMethod(req.PaymentMethod) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_method"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	result, err := h.svc.Pay(r.Context(), id, req.PaymentMethod, claims.UserID)
	if err != nil {
		writeOrderError(w, "pay order", err)
		return
	}

	items, err := h.store.ListOrderItemsByOrders(r.Context(), []uuid.UUID{id})
	if err != nil {
		writeInternalError(w, "list order items", err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{
		Order:       toOrderResponse(result.Order, items),
		Transaction: toTransactionResponse(result.Transaction),
	})
}

// TransactionStore defines the database methods needed by the transaction
// ledger. Satisfied by *database.Queries; narrow interface for testability.
type TransactionStore interface {
	ListTransactions(ctx context.Context, arg database.ListTransactionsParams) ([]database.Transaction, error)
}

// TransactionHandler serves the payment ledger.
type TransactionHandler struct {
	store TransactionStore
}

func NewTransactionHandler(store TransactionStore) *TransactionHandler {
	return &TransactionHandler{store: store}
}

func (h *TransactionHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.RoleAdmin, enum.RoleCashier, enum.RoleStorage)).Get("/", h.List)
}

// List returns transactions newest first.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(r, 100, 500)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit or offset"})
		return
	}

	txns, err := h.store.ListTransactions(r.Context(), database.ListTransactionsParams{Limit: limit, Offset: offset})
	if err != nil {
		writeInternalError(w, "list transactions", err)
		return
	}
	resp := make([]transactionResponse, len(txns))
	for i, t := range txns {
		resp[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}
