package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/catalog"
	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/discount"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/events"
	"github.com/HanzKay/KrasandApps-V1/internal/lifecycle"
	"github.com/HanzKay/KrasandApps-V1/internal/metrics"
	"github.com/HanzKay/KrasandApps-V1/internal/tracing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidOrderType   = errors.New("invalid order_type")
	ErrInvalidQuantity    = errors.New("quantity must be >= 1")
	ErrInvalidProductID   = errors.New("invalid product_id")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrPriceChanged       = errors.New("product price has changed, please refresh your cart")
	ErrTableRequired      = errors.New("dine-in orders require a table")
	ErrInvalidTableID     = errors.New("invalid table_id")
	ErrTableNotFound      = errors.New("table not found")
	ErrQRCodeRequired     = errors.New("dine-in orders require the table's qr_code")
	ErrTableMismatch      = errors.New("table_id does not match qr_code")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrInvalidLocation    = errors.New("lat must be within [-90, 90] and lng within [-180, 180]")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderClosed        = errors.New("order is already closed")
	ErrStatusConflict     = errors.New("order status changed, please retry")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is a connection pool that can also start transactions.
// Satisfied by *pgxpool.Pool.
type DB interface {
	database.DBTX
	TxBeginner
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	ListProductsForOrder(ctx context.Context, ids []uuid.UUID) ([]database.ListProductsForOrderRow, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	GetTableByQRCode(ctx context.Context, qrCode string) (database.DiningTable, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	ListActiveMembershipsByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.Membership, error)
	ExpireMembershipsByIDs(ctx context.Context, ids []uuid.UUID) error
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	DecrementIngredientStock(ctx context.Context, arg database.DecrementIngredientStockParams) error
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
	UpdateOrderLocation(ctx context.Context, arg database.UpdateOrderLocationParams) (database.Order, error)
	CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// Location is a customer's position for delivery hand-off.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return ErrInvalidLocation
	}
	return nil
}

// PreviewItem is one cart line submitted for a discount preview.
type PreviewItem struct {
	ProductID string
	Quantity  int32
	Price     string
	Category  string
}

// PreviewRequest asks for the discount a customer would receive on a cart.
// A zero CustomerID is a guest.
type PreviewRequest struct {
	CustomerID uuid.UUID
	Items      []PreviewItem
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerID    uuid.UUID // uuid.Nil for guests
	CustomerName  string
	CustomerEmail string
	CreatedBy     uuid.UUID // uuid.Nil for anonymous checkouts
	CallerRole    string    // empty for anonymous checkouts
	OrderType     string
	TableID       string
	QRCode        string
	Notes         string
	Location      *Location
	Items         []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single cart line. Price, when set, is the price
// the customer saw and must still match the catalog.
type CreateOrderItemRequest struct {
	ProductID   string
	ProductName string
	Quantity    int32
	Price       string
}

// CreateOrderResult is the created order with its items and the discount
// computed at commit.
type CreateOrderResult struct {
	Order    database.Order
	Items    []database.OrderItem
	Discount discount.Breakdown
}

// PaymentResult is the settled order and its transaction record.
type PaymentResult struct {
	Order       database.Order
	Transaction database.Transaction
}

// OrderService handles order business logic.
type OrderService struct {
	pool      DB
	newStore  NewOrderStore
	publisher events.Publisher
	now       func() time.Time
}

// NewOrderService creates a new OrderService. A nil publisher disables events.
func NewOrderService(pool DB, newStore NewOrderStore, publisher events.Publisher) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{pool: pool, newStore: newStore, publisher: publisher, now: time.Now}
}

// Preview computes the discount breakdown for a cart without persisting
// anything except lazily expired memberships.
func (s *OrderService) Preview(ctx context.Context, req PreviewRequest) (discount.Breakdown, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.Preview")
	defer span.End()

	if len(req.Items) == 0 {
		return discount.Breakdown{}, ErrEmptyItems
	}

	store := s.newStore(s.pool)
	ids := make([]uuid.UUID, 0, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity < 1 {
			return discount.Breakdown{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if id, err := uuid.Parse(it.ProductID); err == nil {
			ids = append(ids, id)
		}
	}

	products, err := productMap(ctx, store, ids)
	if err != nil {
		return discount.Breakdown{}, err
	}

	items := make([]discount.Item, 0, len(req.Items))
	for i, it := range req.Items {
		id, _ := uuid.Parse(it.ProductID)
		if p, ok := products[id]; ok {
			items = append(items, discount.Item{
				Price:    numericToDecimal(p.Price),
				Quantity: int(it.Quantity),
				Bucket:   catalog.Bucket(p.Category, p.DiscountClass.String),
			})
			continue
		}
		price, err := decimal.NewFromString(it.Price)
		if err != nil || price.IsNegative() {
			return discount.Breakdown{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
		}
		items = append(items, discount.Item{
			Price:    price,
			Quantity: int(it.Quantity),
			Bucket:   catalog.Bucket(catalog.Slugify(it.Category), ""),
		})
	}

	var memberships []discount.Membership
	if req.CustomerID != uuid.Nil {
		memberships, err = s.activeMemberships(ctx, store, req.CustomerID)
		if err != nil {
			return discount.Breakdown{}, err
		}
	}

	b := discount.Preview(items, memberships, s.now())
	metrics.DiscountPreviewsTotal.WithLabelValues(fmt.Sprint(b.HasMembership)).Inc()
	return b, nil
}

// CreateOrder validates the cart, recomputes the discount, and creates the
// order atomically together with its items and stock movements.
// Retries up to maxOrderNumberRetries times on order_number collisions.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if !enum.IsOrderType(req.OrderType) {
		return nil, ErrInvalidOrderType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, it := range req.Items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	if req.OrderType == enum.OrderTypeDineIn && req.TableID == "" && req.QRCode == "" {
		return nil, ErrTableRequired
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			s.afterCreate(ctx, result)
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	now := s.now()

	// --- Resolve table ---
	tableID := pgtype.UUID{}
	tableNumber := pgtype.Int4{}
	if req.OrderType == enum.OrderTypeDineIn {
		table, err := resolveTable(ctx, store, req.TableID, req.QRCode, enum.IsStaff(req.CallerRole))
		if err != nil {
			return nil, err
		}
		tableID = pgtype.UUID{Bytes: table.ID, Valid: true}
		tableNumber = pgtype.Int4{Int32: table.TableNumber, Valid: true}
	}

	// --- Resolve products ---
	ids := make([]uuid.UUID, len(req.Items))
	for i, it := range req.Items {
		id, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		ids[i] = id
	}
	products, err := productMap(ctx, store, ids)
	if err != nil {
		return nil, err
	}

	items := make([]discount.Item, len(req.Items))
	params := make([]database.CreateOrderItemParams, len(req.Items))
	stock := map[uuid.UUID]decimal.Decimal{}
	for i, it := range req.Items {
		p, ok := products[ids[i]]
		if !ok {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
		}
		if !p.Available {
			return nil, fmt.Errorf("item[%d]: %s: %w", i, p.Name, ErrProductUnavailable)
		}
		price := numericToDecimal(p.Price)
		if it.Price != "" {
			submitted, err := decimal.NewFromString(it.Price)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
			}
			if !submitted.Equal(price) {
				return nil, fmt.Errorf("item[%d]: %s: %w", i, p.Name, ErrPriceChanged)
			}
		}
		name := it.ProductName
		if name == "" {
			name = p.Name
		}

		items[i] = discount.Item{
			Price:    price,
			Quantity: int(it.Quantity),
			Bucket:   catalog.Bucket(p.Category, p.DiscountClass.String),
		}
		params[i] = database.CreateOrderItemParams{
			Position:    int32(i),
			ProductID:   p.ID,
			ProductName: name,
			Category:    p.Category,
			Quantity:    it.Quantity,
			Price:       decimalToNumeric(price),
		}

		recipe, err := catalog.ParseRecipes(p.Recipes)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %s: %w", i, p.Name, err)
		}
		qty := decimal.NewFromInt32(it.Quantity)
		for _, line := range recipe {
			stock[line.IngredientID] = stock[line.IngredientID].Add(line.Quantity.Mul(qty))
		}
	}

	// --- Customer identity and memberships ---
	customerID := pgtype.UUID{}
	customerName := req.CustomerName
	customerEmail := req.CustomerEmail
	var memberships []discount.Membership
	if req.CustomerID != uuid.Nil {
		user, err := store.GetUser(ctx, req.CustomerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrCustomerNotFound
			}
			return nil, fmt.Errorf("get customer: %w", err)
		}
		customerID = pgtype.UUID{Bytes: user.ID, Valid: true}
		if customerName == "" {
			customerName = user.Name
		}
		if customerEmail == "" {
			customerEmail = user.Email
		}
		memberships, err = s.activeMemberships(ctx, store, user.ID)
		if err != nil {
			return nil, err
		}
	}

	breakdown := discount.Preview(items, memberships, now)

	var discountInfo []byte
	if breakdown.Info != nil {
		if discountInfo, err = json.Marshal(breakdown.Info); err != nil {
			return nil, fmt.Errorf("encode discount info: %w", err)
		}
	}
	var location []byte
	if req.Location != nil {
		if location, err = json.Marshal(req.Location); err != nil {
			return nil, fmt.Errorf("encode location: %w", err)
		}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:      newOrderNumber(now),
		CustomerID:       customerID,
		CustomerName:     optionalText(customerName),
		CustomerEmail:    optionalText(customerEmail),
		OrderType:        req.OrderType,
		TableID:          tableID,
		TableNumber:      tableNumber,
		Subtotal:         decimalToNumeric(breakdown.Subtotal),
		DiscountAmount:   decimalToNumeric(breakdown.TotalDiscount),
		TotalAmount:      decimalToNumeric(breakdown.FinalAmount),
		DiscountInfo:     discountInfo,
		Notes:            optionalText(req.Notes),
		CustomerLocation: location,
		CreatedBy:        optionalUUID(req.CreatedBy),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	created := make([]database.OrderItem, 0, len(params))
	for _, p := range params {
		p.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	// --- Consume stock, in a stable order to avoid lock cycles ---
	ingredientIDs := make([]uuid.UUID, 0, len(stock))
	for id := range stock {
		ingredientIDs = append(ingredientIDs, id)
	}
	sort.Slice(ingredientIDs, func(i, j int) bool {
		return ingredientIDs[i].String() < ingredientIDs[j].String()
	})
	for _, id := range ingredientIDs {
		if err := store.DecrementIngredientStock(ctx, database.DecrementIngredientStockParams{
			ID:       id,
			Quantity: decimalToNumeric3(stock[id]),
		}); err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: created, Discount: breakdown}, nil
}

func (s *OrderService) afterCreate(ctx context.Context, result *CreateOrderResult) {
	metrics.OrdersCreatedTotal.WithLabelValues(result.Order.OrderType).Inc()

	items := make([]events.OrderItem, len(result.Items))
	for i, it := range result.Items {
		items[i] = events.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	err := s.publisher.OrderCreated(ctx, events.OrderCreated{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		OrderType:   result.Order.OrderType,
		TotalAmount: numericToString(result.Order.TotalAmount),
		Items:       items,
	})
	if err != nil {
		zap.L().Warn("publish order created", zap.Error(err), zap.String("order_id", result.Order.ID.String()))
	}
}

// UpdateStatus moves an order to next on behalf of role. The update is a
// compare-and-set against the status read, so a concurrent change yields
// ErrStatusConflict instead of overwriting it.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, next, role string) (database.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	store := s.newStore(s.pool)
	current, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := lifecycle.CheckOrderTransition(current.Status, next, current.PaymentStatus, role); err != nil {
		return database.Order{}, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:            id,
		Status:        next,
		Status_2:      current.Status,
		PaymentStatus: current.PaymentStatus,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(current.Status, next).Inc()
	s.publishStatus(ctx, id, current.Status, next, role)
	return updated, nil
}

func (s *OrderService) publishStatus(ctx context.Context, id uuid.UUID, from, to, role string) {
	err := s.publisher.OrderStatusChanged(ctx, events.OrderStatusChanged{
		OrderID: id,
		From:    from,
		To:      to,
		Role:    role,
	})
	if err != nil {
		zap.L().Warn("publish order status", zap.Error(err), zap.String("order_id", id.String()))
	}
}

type receipt struct {
	OrderNumber   string        `json:"order_number"`
	Items         []receiptItem `json:"items"`
	Subtotal      string        `json:"subtotal"`
	Discount      string        `json:"discount"`
	Total         string        `json:"total"`
	PaymentMethod string        `json:"payment_method"`
	Timestamp     time.Time     `json:"timestamp"`
}

type receiptItem struct {
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	Price       string `json:"price"`
}

// Pay settles an unpaid order and records a transaction with a receipt
// snapshot. Settling a ready order also completes it.
func (s *OrderService) Pay(ctx context.Context, id uuid.UUID, method string, cashierID uuid.UUID) (*PaymentResult, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.Pay")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	current, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := lifecycle.ValidatePayment(current.Status, current.PaymentStatus, method); err != nil {
		return nil, err
	}

	paid, err := store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
		ID:            id,
		PaymentMethod: method,
		Status:        lifecycle.StatusAfterPayment(current.Status),
		Status_2:      current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	items, err := store.ListOrderItemsByOrders(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	rc := receipt{
		OrderNumber:   paid.OrderNumber,
		Items:         make([]receiptItem, len(items)),
		Subtotal:      numericToString(paid.Subtotal),
		Discount:      numericToString(paid.DiscountAmount),
		Total:         numericToString(paid.TotalAmount),
		PaymentMethod: method,
		Timestamp:     s.now().UTC(),
	}
	for i, it := range items {
		rc.Items[i] = receiptItem{ProductName: it.ProductName, Quantity: it.Quantity, Price: numericToString(it.Price)}
	}
	receiptData, err := json.Marshal(rc)
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}

	txn, err := store.CreateTransaction(ctx, database.CreateTransactionParams{
		OrderID:       id,
		Amount:        paid.TotalAmount,
		PaymentMethod: method,
		ProcessedBy:   optionalUUID(cashierID),
		ReceiptData:   receiptData,
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.PaymentsTotal.WithLabelValues(method).Inc()
	if err := s.publisher.OrderPaid(ctx, events.OrderPaid{
		OrderID:       id,
		PaymentMethod: method,
		Amount:        numericToString(paid.TotalAmount),
	}); err != nil {
		zap.L().Warn("publish order paid", zap.Error(err), zap.String("order_id", id.String()))
	}
	if paid.Status != current.Status {
		metrics.OrderTransitionsTotal.WithLabelValues(current.Status, paid.Status).Inc()
		s.publishStatus(ctx, id, current.Status, paid.Status, enum.RoleCashier)
	}

	return &PaymentResult{Order: paid, Transaction: txn}, nil
}

// UpdateLocation records the customer's position on an open order.
func (s *OrderService) UpdateLocation(ctx context.Context, id uuid.UUID, loc Location) (database.Order, error) {
	if err := loc.Validate(); err != nil {
		return database.Order{}, err
	}

	store := s.newStore(s.pool)
	current, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if lifecycle.IsTerminal(current.Status) {
		return database.Order{}, ErrOrderClosed
	}

	raw, err := json.Marshal(loc)
	if err != nil {
		return database.Order{}, fmt.Errorf("encode location: %w", err)
	}
	updated, err := store.UpdateOrderLocation(ctx, database.UpdateOrderLocationParams{
		ID:               id,
		CustomerLocation: raw,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderClosed
		}
		return database.Order{}, fmt.Errorf("update order location: %w", err)
	}
	return updated, nil
}

// activeMemberships loads the customer's memberships that count for
// discounts, marking any that have lapsed as expired on the way.
func (s *OrderService) activeMemberships(ctx context.Context, store OrderStore, customerID uuid.UUID) ([]discount.Membership, error) {
	rows, err := store.ListActiveMembershipsByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	live, lapsed, err := splitMemberships(rows, s.now())
	if err != nil {
		return nil, err
	}
	if len(lapsed) > 0 {
		if err := store.ExpireMembershipsByIDs(ctx, lapsed); err != nil {
			return nil, fmt.Errorf("expire memberships: %w", err)
		}
		metrics.MembershipsExpiredTotal.Add(float64(len(lapsed)))
	}
	return live, nil
}

// resolveTable binds a dine-in order to a table through its QR token. Only
// staff may name a table by id alone; when both are given they must agree.
func resolveTable(ctx context.Context, store OrderStore, tableID, qrCode string, staff bool) (database.DiningTable, error) {
	var (
		table database.DiningTable
		err   error
	)
	switch {
	case qrCode != "":
		table, err = store.GetTableByQRCode(ctx, qrCode)
	case tableID == "":
		return table, ErrTableRequired
	case !staff:
		return table, ErrQRCodeRequired
	default:
		id, perr := uuid.Parse(tableID)
		if perr != nil {
			return table, ErrInvalidTableID
		}
		table, err = store.GetTable(ctx, id)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return table, ErrTableNotFound
		}
		return table, fmt.Errorf("get table: %w", err)
	}

	if qrCode != "" && tableID != "" {
		id, perr := uuid.Parse(tableID)
		if perr != nil {
			return table, ErrInvalidTableID
		}
		if id != table.ID {
			return table, ErrTableMismatch
		}
	}
	return table, nil
}

func productMap(ctx context.Context, store OrderStore, ids []uuid.UUID) (map[uuid.UUID]database.ListProductsForOrderRow, error) {
	out := map[uuid.UUID]database.ListProductsForOrderRow{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := store.ListProductsForOrder(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// newOrderNumber formats ORD-YYYYMMDD-XXXXXXXX.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
