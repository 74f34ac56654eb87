package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/auth"
	"github.com/HanzKay/KrasandApps-V1/internal/cache"
	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/discount"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/lifecycle"
	"github.com/HanzKay/KrasandApps-V1/internal/middleware"
	"github.com/HanzKay/KrasandApps-V1/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Preview(ctx context.Context, req service.PreviewRequest) (discount.Breakdown, error)
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next, role string) (database.Order, error)
	Pay(ctx context.Context, id uuid.UUID, method string, cashierID uuid.UUID) (*service.PaymentResult, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, loc service.Location) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	cache *cache.Cache
}

// NewOrderHandler creates a new OrderHandler. A nil cache disables
// Idempotency-Key handling.
func NewOrderHandler(svc OrderServicer, store OrderStore, c *cache.Cache) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, cache: c}
}

// RegisterRoutes registers order endpoints. Checkout, preview, lookup and
// location updates work for guests; the router is expected to run
// OptionalAuthenticate in front so staff and customers are recognised.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Post("/preview-discount", h.PreviewDiscount)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/location", h.UpdateLocation)

	r.With(middleware.RequireRole(allRoles()...)).Get("/", h.List)
	r.With(middleware.RequireRole(enum.StaffRoles...)).Put("/{id}/status", h.UpdateStatus)
	r.With(middleware.RequireRole(enum.RoleCashier, enum.RoleAdmin)).Put("/{id}/payment", h.Pay)
}

func allRoles() []string {
	roles := make([]string, 0, len(enum.StaffRoles)+1)
	roles = append(roles, enum.StaffRoles...)
	return append(roles, enum.RoleCustomer)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerID    string                   `json:"customer_id"`
	CustomerName  string                   `json:"customer_name"`
	CustomerEmail string                   `json:"customer_email"`
	OrderType     string                   `json:"order_type"`
	TableID       string                   `json:"table_id"`
	QRCode        string                   `json:"qr_code"`
	Notes         string                   `json:"notes"`
	Location      *service.Location        `json:"location"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	Price       string `json:"price"`
}

type previewRequest struct {
	CustomerID string               `json:"customer_id"`
	Items      []previewItemRequest `json:"items"`
}

type previewItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Price     string `json:"price"`
	Category  string `json:"category"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	CustomerID       *uuid.UUID          `json:"customer_id"`
	CustomerName     *string             `json:"customer_name"`
	CustomerEmail    *string             `json:"customer_email"`
	OrderType        string              `json:"order_type"`
	TableID          *uuid.UUID          `json:"table_id"`
	TableNumber      *int32              `json:"table_number"`
	Subtotal         string              `json:"subtotal"`
	DiscountAmount   string              `json:"discount_amount"`
	TotalAmount      string              `json:"total_amount"`
	DiscountInfo     json.RawMessage     `json:"discount_info"`
	Notes            *string             `json:"notes"`
	CustomerLocation json.RawMessage     `json:"customer_location"`
	Status           string              `json:"status"`
	PaymentStatus    string              `json:"payment_status"`
	PaymentMethod    *string             `json:"payment_method"`
	CreatedBy        *uuid.UUID          `json:"created_by"`
	Items            []orderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`
	Quantity    int32     `json:"quantity"`
	Price       string    `json:"price"`
}

type discountPreviewResponse struct {
	Subtotal                string         `json:"subtotal"`
	FoodTotal               string         `json:"food_total"`
	BeverageTotal           string         `json:"beverage_total"`
	FoodDiscountPercent     string         `json:"food_discount_percent"`
	FoodDiscountAmount      string         `json:"food_discount_amount"`
	BeverageDiscountPercent string         `json:"beverage_discount_percent"`
	BeverageDiscountAmount  string         `json:"beverage_discount_amount"`
	TotalDiscount           string         `json:"total_discount"`
	FinalAmount             string         `json:"final_amount"`
	HasMembership           bool           `json:"has_membership"`
	DiscountInfo            *discount.Info `json:"discount_info"`
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		CustomerID:       uuidPtr(o.CustomerID),
		CustomerName:     textPtr(o.CustomerName),
		CustomerEmail:    textPtr(o.CustomerEmail),
		OrderType:        o.OrderType,
		TableID:          uuidPtr(o.TableID),
		Subtotal:         formatMoney(o.Subtotal),
		DiscountAmount:   formatMoney(o.DiscountAmount),
		TotalAmount:      formatMoney(o.TotalAmount),
		DiscountInfo:     rawJSON(o.DiscountInfo),
		Notes:            textPtr(o.Notes),
		CustomerLocation: rawJSON(o.CustomerLocation),
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		PaymentMethod:    textPtr(o.PaymentMethod),
		CreatedBy:        uuidPtr(o.CreatedBy),
		Items:            make([]orderItemResponse, len(items)),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.TableNumber.Valid {
		n := o.TableNumber.Int32
		resp.TableNumber = &n
	}
	for i, it := range items {
		resp.Items[i] = orderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Category:    it.Category,
			Quantity:    it.Quantity,
			Price:       formatMoney(it.Price),
		}
	}
	return resp
}

func toDiscountPreviewResponse(b discount.Breakdown) discountPreviewResponse {
	return discountPreviewResponse{
		Subtotal:                b.Subtotal.StringFixed(2),
		FoodTotal:               b.FoodTotal.StringFixed(2),
		BeverageTotal:           b.BeverageTotal.StringFixed(2),
		FoodDiscountPercent:     b.FoodDiscountPercent.String(),
		FoodDiscountAmount:      b.FoodDiscountAmount.StringFixed(2),
		BeverageDiscountPercent: b.BeverageDiscountPercent.String(),
		BeverageDiscountAmount:  b.BeverageDiscountAmount.StringFixed(2),
		TotalDiscount:           b.TotalDiscount.StringFixed(2),
		FinalAmount:             b.FinalAmount.StringFixed(2),
		HasMembership:           b.HasMembership,
		DiscountInfo:            b.Info,
	}
}

// orderErrorStatus maps service and lifecycle errors to an HTTP status.
// Zero means the error is unexpected.
func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidProductID),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrTableRequired),
		errors.Is(err, service.ErrInvalidTableID),
		errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrQRCodeRequired),
		errors.Is(err, service.ErrTableMismatch),
		errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, lifecycle.ErrInvalidPaymentMethod):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrRoleNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrPriceChanged),
		errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrStatusConflict),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrPaymentRequired),
		errors.Is(err, lifecycle.ErrPaidOrderCancel),
		errors.Is(err, lifecycle.ErrAlreadyPaid),
		errors.Is(err, lifecycle.ErrCancelledOrderPay):
		return http.StatusConflict
	}
	return 0
}

func writeOrderError(w http.ResponseWriter, op string, err error) {
	if status := orderErrorStatus(err); status != 0 {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeInternalError(w, op, err)
}

// customerFor decides whose order or preview this is. Customers act for
// themselves, staff may name a customer, and anonymous callers are guests.
func customerFor(claims *auth.Claims, requested string) (uuid.UUID, bool) {
	switch {
	case claims == nil:
		return uuid.Nil, true
	case claims.Role == enum.RoleCustomer:
		return claims.UserID, true
	case requested == "":
		return uuid.Nil, true
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// --- Handlers ---

// Create places an order. Repeated requests carrying the same Idempotency-Key
// replay the first response instead of creating a second order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	customerID, ok := customerFor(claims, req.CustomerID)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
		return
	}
	createdBy, callerRole := uuid.Nil, ""
	if claims != nil {
		createdBy, callerRole = claims.UserID, claims.Role
	}

	key := idempotencyKey(r, createdBy)
	if key != "" {
		body, found, err := h.cache.LookupIdempotentResult(r.Context(), key)
		switch {
		case errors.Is(err, cache.ErrIdempotencyInFlight):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		case err != nil:
			zap.L().Warn("idempotency lookup", zap.Error(err))
			key = ""
		case found:
			writeRaw(w, http.StatusCreated, body)
			return
		}
	}
	if key != "" {
		claimed, err := h.cache.ClaimIdempotencyKey(r.Context(), key)
		if err != nil {
			zap.L().Warn("idempotency claim", zap.Error(err))
			key = ""
		} else if !claimed {
			writeJSON(w, http.StatusConflict, map[string]string{"error": cache.ErrIdempotencyInFlight.Error()})
			return
		}
	}

	svcReq := service.CreateOrderRequest{
		CustomerID:    customerID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CreatedBy:     createdBy,
		CallerRole:    callerRole,
		OrderType:     req.OrderType,
		TableID:       req.TableID,
		QRCode:        req.QRCode,
		Notes:         req.Notes,
		Location:      req.Location,
		Items:         make([]service.CreateOrderItemRequest, len(req.Items)),
	}
	for i, it := range req.Items {
		svcReq.Items[i] = service.CreateOrderItemRequest{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), svcReq)
	// The key must be settled even when the client has already gone away.
	settleCtx := context.WithoutCancel(r.Context())
	if err != nil {
		if key != "" {
			if rerr := h.cache.ReleaseIdempotencyKey(settleCtx, key); rerr != nil {
				zap.L().Warn("idempotency release", zap.Error(rerr))
			}
		}
		writeOrderError(w, "create order", err)
		return
	}

	body, err := json.Marshal(toOrderResponse(result.Order, result.Items))
	if err != nil {
		writeInternalError(w, "encode order", err)
		return
	}
	if key != "" {
		if err := h.cache.StoreIdempotentResult(settleCtx, key, body); err != nil {
			zap.L().Warn("idempotency store", zap.Error(err))
		}
	}
	writeRaw(w, http.StatusCreated, body)
}

// idempotencyKey scopes the client's key to the caller so two users cannot
// collide on the same value.
func idempotencyKey(r *http.Request, caller uuid.UUID) string {
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		return ""
	}
	return caller.String() + ":" + key
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

// PreviewDiscount returns the membership discount a cart would receive.
func (h *OrderHandler) PreviewDiscount(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	customerID, ok := customerFor(middleware.ClaimsFromContext(r.Context()), req.CustomerID)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
		return
	}

	svcReq := service.PreviewRequest{
		CustomerID: customerID,
		Items:      make([]service.PreviewItem, len(req.Items)),
	}
	for i, it := range req.Items {
		svcReq.Items[i] = service.PreviewItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Category:  it.Category,
		}
	}

	b, err := h.svc.Preview(r.Context(), svcReq)
	if err != nil {
		writeOrderError(w, "preview discount", err)
		return
	}
	writeJSON(w, http.StatusOK, toDiscountPreviewResponse(b))
}

// List returns orders newest first. Customers only see their own.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	q := r.URL.Query()

	params := database.ListOrdersParams{}
	if status := q.Get("status"); status != "" {
		if !enum.IsOrderStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: status, Valid: true}
	}
	if orderType := q.Get("order_type"); orderType != "" {
		if !enum.IsOrderType(orderType) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_type"})
			return
		}
		params.OrderType = pgtype.Text{String: orderType, Valid: true}
	}
	limit, offset, ok := pagination(r, 100, 500)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit or offset"})
		return
	}
	params.Limit, params.Offset = limit, offset
	if claims.Role == enum.RoleCustomer {
		params.CustomerID = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternalError(w, "list orders", err)
		return
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	byOrder := map[uuid.UUID][]database.OrderItem{}
	if len(ids) > 0 {
		items, err := h.store.ListOrderItemsByOrders(r.Context(), ids)
		if err != nil {
			writeInternalError(w, "list order items", err)
			return
		}
		for _, it := range items {
			byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
		}
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, byOrder[o.ID])
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order with its items. A customer asking for someone
// else's order gets a 404.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		writeInternalError(w, "get order", err)
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims != nil && claims.Role == enum.RoleCustomer {
		if !order.CustomerID.Valid || uuid.UUID(order.CustomerID.Bytes) != claims.UserID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
	}

	items, err := h.store.ListOrderItemsByOrders(r.Context(), []uuid.UUID{id})
	if err != nil {
		writeInternalError(w, "list order items", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// UpdateStatus advances an order. Which transitions a role may drive is
// decided by the lifecycle rules.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.IsOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	order, err := h.svc.UpdateStatus(r.Context(), id, req.Status, claims.Role)
	if err != nil {
		writeOrderError(w, "update order status", err)
		return
	}
	h.writeOrder(w, r, http.StatusOK, order)
}

// UpdateLocation records the customer's position on an open order.
func (h *OrderHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}

	order, err := h.svc.UpdateLocation(r.Context(), id, service.Location{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		writeOrderError(w, "update order location", err)
		return
	}
	h.writeOrder(w, r, http.StatusOK, order)
}

// writeOrder loads the order's items and writes the full order.
func (h *OrderHandler) writeOrder(w http.ResponseWriter, r *http.Request, status int, order database.Order) {
	items, err := h.store.ListOrderItemsByOrders(r.Context(), []uuid.UUID{order.ID})
	if err != nil {
		writeInternalError(w, "list order items", err)
		return
	}
	writeJSON(w, status, toOrderResponse(order, items))
}
