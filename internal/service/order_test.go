package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/events"
	"github.com/HanzKay/KrasandApps-V1/internal/lifecycle"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockPool implements DB. Queries go through the mock store, never the pool.
type mockPool struct {
	tx  pgx.Tx
	err error
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) { return m.tx, m.err }
func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic("not implemented")
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	products    map[uuid.UUID]database.ListProductsForOrderRow
	tables      map[uuid.UUID]database.DiningTable
	users       map[uuid.UUID]database.User
	memberships []database.Membership
	orders      map[uuid.UUID]database.Order
	items       []database.OrderItem

	expired     []uuid.UUID
	decrements  []database.DecrementIngredientStockParams
	createdArgs []database.CreateOrderParams
	statusArgs  []database.UpdateOrderStatusParams
	paidArgs    []database.MarkOrderPaidParams
	txnArgs     []database.CreateTransactionParams

	createOrderFn       func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	updateOrderStatusFn func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	markOrderPaidFn     func(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		products: map[uuid.UUID]database.ListProductsForOrderRow{},
		tables:   map[uuid.UUID]database.DiningTable{},
		users:    map[uuid.UUID]database.User{},
		orders:   map[uuid.UUID]database.Order{},
	}
}

func (m *mockOrderStore) ListProductsForOrder(ctx context.Context, ids []uuid.UUID) ([]database.ListProductsForOrderRow, error) {
	var out []database.ListProductsForOrderRow
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockOrderStore) GetTable(ctx context.Context, id uuid.UUID) (database.DiningTable, error) {
	t, ok := m.tables[id]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *mockOrderStore) GetTableByQRCode(ctx context.Context, qrCode string) (database.DiningTable, error) {
	for _, t := range m.tables {
		if t.QrCode == qrCode {
			return t, nil
		}
	}
	return database.DiningTable{}, pgx.ErrNoRows
}

func (m *mockOrderStore) GetUser(ctx context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockOrderStore) ListActiveMembershipsByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.Membership, error) {
	var out []database.Membership
	for _, ms := range m.memberships {
		if ms.CustomerID == customerID && ms.Status == "active" {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *mockOrderStore) ExpireMembershipsByIDs(ctx context.Context, ids []uuid.UUID) error {
	m.expired = append(m.expired, ids...)
	return nil
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.createdArgs = append(m.createdArgs, arg)
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, arg)
	}
	return database.Order{
		ID:               uuid.New(),
		OrderNumber:      arg.OrderNumber,
		CustomerID:       arg.CustomerID,
		CustomerName:     arg.CustomerName,
		CustomerEmail:    arg.CustomerEmail,
		OrderType:        arg.OrderType,
		TableID:          arg.TableID,
		TableNumber:      arg.TableNumber,
		Subtotal:         arg.Subtotal,
		DiscountAmount:   arg.DiscountAmount,
		TotalAmount:      arg.TotalAmount,
		DiscountInfo:     arg.DiscountInfo,
		Notes:            arg.Notes,
		CustomerLocation: arg.CustomerLocation,
		Status:           "pending",
		PaymentStatus:    "unpaid",
		CreatedBy:        arg.CreatedBy,
	}, nil
}

func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	item := database.OrderItem{
		ID:          uuid.New(),
		OrderID:     arg.OrderID,
		Position:    arg.Position,
		ProductID:   arg.ProductID,
		ProductName: arg.ProductName,
		Category:    arg.Category,
		Quantity:    arg.Quantity,
		Price:       arg.Price,
	}
	m.items = append(m.items, item)
	return item, nil
}

func (m *mockOrderStore) DecrementIngredientStock(ctx context.Context, arg database.DecrementIngredientStockParams) error {
	m.decrements = append(m.decrements, arg)
	return nil
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error) {
	var out []database.OrderItem
	for _, it := range m.items {
		for _, id := range orderIds {
			if it.OrderID == id {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.statusArgs = append(m.statusArgs, arg)
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, arg)
	}
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != arg.Status_2 || o.PaymentStatus != arg.PaymentStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	m.orders[arg.ID] = o
	return o, nil
}

func (m *mockOrderStore) MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error) {
	m.paidArgs = append(m.paidArgs, arg)
	if m.markOrderPaidFn != nil {
		return m.markOrderPaidFn(ctx, arg)
	}
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != arg.Status_2 || o.PaymentStatus != "unpaid" {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	o.PaymentStatus = "paid"
	o.PaymentMethod = pgtype.Text{String: arg.PaymentMethod, Valid: true}
	m.orders[arg.ID] = o
	return o, nil
}

func (m *mockOrderStore) UpdateOrderLocation(ctx context.Context, arg database.UpdateOrderLocationParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.CustomerLocation = arg.CustomerLocation
	m.orders[arg.ID] = o
	return o, nil
}

func (m *mockOrderStore) CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error) {
	m.txnArgs = append(m.txnArgs, arg)
	return database.Transaction{
		ID:            uuid.New(),
		OrderID:       arg.OrderID,
		Amount:        arg.Amount,
		PaymentMethod: arg.PaymentMethod,
		ProcessedBy:   arg.ProcessedBy,
		ReceiptData:   arg.ReceiptData,
	}, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu      sync.Mutex
	created []events.OrderCreated
	status  []events.OrderStatusChanged
	paid    []events.OrderPaid
	err     error
}

func (p *recordingPublisher) OrderCreated(ctx context.Context, e events.OrderCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.err
}

func (p *recordingPublisher) OrderStatusChanged(ctx context.Context, e events.OrderStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = append(p.status, e)
	return p.err
}

func (p *recordingPublisher) OrderPaid(ctx context.Context, e events.OrderPaid) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, e)
	return p.err
}

func (p *recordingPublisher) TableStatusChanged(ctx context.Context, e events.TableStatusChanged) error {
	return p.err
}

// --- Test helpers ---

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies.
func newTestService(store *mockOrderStore) (*OrderService, *mockTx, *recordingPublisher) {
	tx := &mockTx{}
	pool := &mockPool{tx: tx}
	pub := &recordingPublisher{}
	newStore := func(db database.DBTX) OrderStore { return store }
	svc := NewOrderService(pool, newStore, pub)
	svc.now = func() time.Time { return fixedNow }
	return svc, tx, pub
}

type fixture struct {
	store    *mockOrderStore
	coffee   uuid.UUID // beverage, 4.00
	toast    uuid.UUID // food, 10.00
	beans    uuid.UUID // ingredient used by coffee
	table    database.DiningTable
	customer database.User
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMockOrderStore(),
		coffee: uuid.New(),
		toast:  uuid.New(),
		beans:  uuid.New(),
	}
	f.store.products[f.coffee] = database.ListProductsForOrderRow{
		ID:            f.coffee,
		Name:          "Latte",
		Price:         makeNumeric("4.00"),
		Available:     true,
		Category:      "coffee",
		Recipes:       []byte(`[{"ingredient_id":"` + f.beans.String() + `","quantity":"0.018"}]`),
		DiscountClass: pgtype.Text{String: "beverage", Valid: true},
	}
	f.store.products[f.toast] = database.ListProductsForOrderRow{
		ID:            f.toast,
		Name:          "Kaya Toast",
		Price:         makeNumeric("10.00"),
		Available:     true,
		Category:      "bakery",
		Recipes:       []byte(`[]`),
		DiscountClass: pgtype.Text{String: "food", Valid: true},
	}
	f.table = database.DiningTable{ID: uuid.New(), TableNumber: 7, Capacity: 4, Status: "occupied", QrCode: "table-7-abcd1234"}
	f.store.tables[f.table.ID] = f.table
	f.customer = database.User{ID: uuid.New(), Name: "Sari", Email: "sari@example.com", Role: "customer"}
	f.store.users[f.customer.ID] = f.customer
	return f
}

func (f *fixture) addMembership(food, beverage string, end *time.Time) database.Membership {
	benefits := `[{"benefit_type":"food_discount","value":"` + food + `"},{"benefit_type":"beverage_discount","value":"` + beverage + `"}]`
	m := database.Membership{
		ID:          uuid.New(),
		CustomerID:  f.customer.ID,
		ProgramName: "Gold",
		Benefits:    []byte(benefits),
		StartDate:   fixedNow.AddDate(0, -1, 0),
		Status:      "active",
	}
	if end != nil {
		m.EndDate = pgtype.Timestamptz{Time: *end, Valid: true}
	}
	f.store.memberships = append(f.store.memberships, m)
	return m
}

func (f *fixture) cartReq() CreateOrderRequest {
	return CreateOrderRequest{
		OrderType: "to-go",
		Items: []CreateOrderItemRequest{
			{ProductID: f.coffee.String(), ProductName: "Latte", Quantity: 2, Price: "4.00"},
			{ProductID: f.toast.String(), ProductName: "Kaya Toast", Quantity: 1, Price: "10.00"},
		},
	}
}

func pgUniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f.store)

	tests := []struct {
		name string
		mod  func(r *CreateOrderRequest)
		want error
	}{
		{"invalid order type", func(r *CreateOrderRequest) { r.OrderType = "drive-thru" }, ErrInvalidOrderType},
		{"empty items", func(r *CreateOrderRequest) { r.Items = nil }, ErrEmptyItems},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"dine-in without table", func(r *CreateOrderRequest) { r.OrderType = "dine-in" }, ErrTableRequired},
		{"bad table id", func(r *CreateOrderRequest) { r.OrderType = "dine-in"; r.TableID = "nope"; r.CallerRole = "waiter" }, ErrInvalidTableID},
		{"guest table id without qr", func(r *CreateOrderRequest) { r.OrderType = "dine-in"; r.TableID = f.table.ID.String() }, ErrQRCodeRequired},
		{"customer table id without qr", func(r *CreateOrderRequest) {
			r.OrderType = "dine-in"
			r.TableID = f.table.ID.String()
			r.CallerRole = "customer"
		}, ErrQRCodeRequired},
		{"table id with foreign qr", func(r *CreateOrderRequest) {
			r.OrderType = "dine-in"
			r.TableID = f.table.ID.String()
			r.QRCode = "table-99-bogus000"
		}, ErrTableNotFound},
		{"qr of another table", func(r *CreateOrderRequest) {
			r.OrderType = "dine-in"
			r.TableID = uuid.NewString()
			r.QRCode = f.table.QrCode
		}, ErrTableMismatch},
		{"unknown qr", func(r *CreateOrderRequest) { r.OrderType = "dine-in"; r.QRCode = "table-9-ffffffff" }, ErrTableNotFound},
		{"bad product id", func(r *CreateOrderRequest) { r.Items[0].ProductID = "x" }, ErrInvalidProductID},
		{"unknown product", func(r *CreateOrderRequest) { r.Items[0].ProductID = uuid.NewString() }, ErrProductNotFound},
		{"price changed", func(r *CreateOrderRequest) { r.Items[0].Price = "3.50" }, ErrPriceChanged},
		{"bad price", func(r *CreateOrderRequest) { r.Items[0].Price = "abc" }, ErrInvalidPrice},
		{"bad location", func(r *CreateOrderRequest) { r.Location = &Location{Lat: 91} }, ErrInvalidLocation},
		{"unknown customer", func(r *CreateOrderRequest) { r.CustomerID = uuid.New() }, ErrCustomerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.cartReq()
			tt.mod(&req)
			_, err := svc.CreateOrder(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err: got %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.store.createdArgs) != 0 {
		t.Fatalf("no order should be inserted, got %d", len(f.store.createdArgs))
	}
}

func TestCreateOrder_UnavailableProduct(t *testing.T) {
	f := newFixture()
	p := f.store.products[f.toast]
	p.Available = false
	f.store.products[f.toast] = p
	svc, _, _ := newTestService(f.store)

	_, err := svc.CreateOrder(context.Background(), f.cartReq())
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("err: got %v, want ErrProductUnavailable", err)
	}
}

// =====================
// Success paths
// =====================

func TestCreateOrder_MemberDiscountScenario(t *testing.T) {
	f := newFixture()
	m := f.addMembership("10", "5", nil)
	svc, tx, pub := newTestService(f.store)

	req := f.cartReq()
	req.CustomerID = f.customer.ID
	res, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}

	arg := f.store.createdArgs[0]
	if !numericEquals(arg.Subtotal, "18.00") {
		t.Errorf("subtotal: got %s, want 18.00", numericToString(arg.Subtotal))
	}
	if !numericEquals(arg.DiscountAmount, "1.40") {
		t.Errorf("discount: got %s, want 1.40", numericToString(arg.DiscountAmount))
	}
	if !numericEquals(arg.TotalAmount, "16.60") {
		t.Errorf("total: got %s, want 16.60", numericToString(arg.TotalAmount))
	}
	if arg.CustomerName.String != "Sari" || arg.CustomerEmail.String != "sari@example.com" {
		t.Errorf("customer snapshot: got %q %q", arg.CustomerName.String, arg.CustomerEmail.String)
	}

	var info map[string]interface{}
	if err := json.Unmarshal(arg.DiscountInfo, &info); err != nil {
		t.Fatalf("discount_info: %v", err)
	}
	if info["membership_id"] != m.ID.String() {
		t.Errorf("membership_id: got %v, want %s", info["membership_id"], m.ID)
	}
	if info["food_discount_amount"] != "1.00" || info["beverage_discount_amount"] != "0.40" {
		t.Errorf("amounts: got food=%v beverage=%v", info["food_discount_amount"], info["beverage_discount_amount"])
	}

	if !res.Discount.TotalDiscount.Equal(decimal.RequireFromString("1.40")) {
		t.Errorf("breakdown total discount: got %s", res.Discount.TotalDiscount)
	}
	if len(pub.created) != 1 || pub.created[0].TotalAmount != "16.60" {
		t.Errorf("order.created event: got %+v", pub.created)
	}
}

func TestCreateOrder_GuestNoDiscount(t *testing.T) {
	f := newFixture()
	f.addMembership("10", "5", nil)
	svc, _, _ := newTestService(f.store)

	req := f.cartReq()
	res, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arg := f.store.createdArgs[0]
	if arg.CustomerID.Valid {
		t.Error("guest order must not carry a customer_id")
	}
	if arg.DiscountInfo != nil {
		t.Errorf("discount_info: got %s, want nil", arg.DiscountInfo)
	}
	if !numericEquals(arg.TotalAmount, "18.00") {
		t.Errorf("total: got %s, want 18.00", numericToString(arg.TotalAmount))
	}
	if res.Discount.HasMembership {
		t.Error("guest must not have membership")
	}
}

func TestCreateOrder_ItemsSnapshotAndStock(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f.store)

	req := f.cartReq()
	req.Items = append(req.Items, CreateOrderItemRequest{ProductID: f.coffee.String(), Quantity: 1})
	res, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Items) != 3 {
		t.Fatalf("items: got %d, want 3", len(res.Items))
	}
	for i, it := range res.Items {
		if it.Position != int32(i) {
			t.Errorf("item %d position: got %d", i, it.Position)
		}
		if it.OrderID != res.Order.ID {
			t.Errorf("item %d not linked to order", i)
		}
	}
	if res.Items[0].ProductName != "Latte" || res.Items[0].Quantity != 2 || !numericEquals(res.Items[0].Price, "4.00") {
		t.Errorf("first item snapshot: %+v", res.Items[0])
	}
	if res.Items[2].ProductName != "Latte" {
		t.Errorf("missing name falls back to catalog name, got %q", res.Items[2].ProductName)
	}

	// 3 lattes in total, 0.018 each.
	if len(f.store.decrements) != 1 {
		t.Fatalf("decrements: got %d, want 1", len(f.store.decrements))
	}
	d := f.store.decrements[0]
	if d.ID != f.beans || !numericEquals(d.Quantity, "0.054") {
		t.Errorf("decrement: got %s x %s", d.ID, numericToDecimal(d.Quantity))
	}
}

func TestCreateOrder_DineInResolvesTable(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f.store)

	req := f.cartReq()
	req.OrderType = "dine-in"
	req.QRCode = f.table.QrCode
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arg := f.store.createdArgs[0]
	if arg.TableID.Bytes != f.table.ID || arg.TableNumber.Int32 != 7 {
		t.Errorf("table: got %v #%d", arg.TableID, arg.TableNumber.Int32)
	}
}

func TestCreateOrder_DineInTableIDAndMatchingQR(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f.store)

	req := f.cartReq()
	req.OrderType = "dine-in"
	req.TableID = f.table.ID.String()
	req.QRCode = f.table.QrCode
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.store.createdArgs[0].TableID.Bytes != f.table.ID {
		t.Errorf("table: got %v", f.store.createdArgs[0].TableID)
	}
}

func TestCreateOrder_StaffMayBindByTableID(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f.store)

	req := f.cartReq()
	req.OrderType = "dine-in"
	req.TableID = f.table.ID.String()
	req.CallerRole = "waiter"
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.store.createdArgs[0].TableNumber.Int32 != 7 {
		t.Errorf("table number: got %d", f.store.createdArgs[0].TableNumber.Int32)
	}
}

func TestCreateOrder_ToGoIgnoresTable(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f.store)

	req := f.cartReq()
	req.TableID = f.table.ID.String()
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.store.createdArgs[0].TableID.Valid {
		t.Error("to-go order must not be bound to a table")
	}
}

func TestCreateOrder_OrderNumberFormat(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f.store)

	res, err := svc.CreateOrder(context.Background(), f.cartReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	re := regexp.MustCompile(`^ORD-20250314-[0-9A-F]{8}$`)
	if !re.MatchString(res.Order.OrderNumber) {
		t.Errorf("order number: got %q", res.Order.OrderNumber)
	}
}

func TestCreateOrder_LapsedMembershipExpired(t *testing.T) {
	f := newFixture()
	past := fixedNow.Add(-time.Hour)
	m := f.addMembership("50", "50", &past)
	svc, _, _ := newTestService(f.store)

	req := f.cartReq()
	req.CustomerID = f.customer.ID
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.store.expired) != 1 || f.store.expired[0] != m.ID {
		t.Errorf("expired: got %v, want [%s]", f.store.expired, m.ID)
	}
	if !numericEquals(f.store.createdArgs[0].TotalAmount, "18.00") {
		t.Errorf("lapsed membership must not discount, total %s", numericToString(f.store.createdArgs[0].TotalAmount))
	}
}

// =====================
// Retry and failures
// =====================

func TestCreateOrder_RetriesOrderNumberConflict(t *testing.T) {
	f := newFixture()
	calls := 0
	f.store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls++
		if calls == 1 {
			return database.Order{}, pgUniqueViolation("orders_order_number_key")
		}
		return database.Order{ID: uuid.New(), OrderNumber: arg.OrderNumber, OrderType: arg.OrderType, TotalAmount: arg.TotalAmount}, nil
	}
	svc, _, _ := newTestService(f.store)

	if _, err := svc.CreateOrder(context.Background(), f.cartReq()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("create calls: got %d, want 2", calls)
	}
}

func TestCreateOrder_GivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture()
	f.store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, pgUniqueViolation("orders_order_number_key")
	}
	svc, _, _ := newTestService(f.store)

	_, err := svc.CreateOrder(context.Background(), f.cartReq())
	if !isOrderNumberConflict(err) {
		t.Fatalf("err: got %v, want order number conflict", err)
	}
	if len(f.store.createdArgs) != maxOrderNumberRetries {
		t.Errorf("attempts: got %d, want %d", len(f.store.createdArgs), maxOrderNumberRetries)
	}
}

func TestCreateOrder_OtherUniqueViolationNotRetried(t *testing.T) {
	f := newFixture()
	f.store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, pgUniqueViolation("something_else")
	}
	svc, _, _ := newTestService(f.store)

	if _, err := svc.CreateOrder(context.Background(), f.cartReq()); err == nil {
		t.Fatal("expected error")
	}
	if len(f.store.createdArgs) != 1 {
		t.Errorf("attempts: got %d, want 1", len(f.store.createdArgs))
	}
}

func TestCreateOrder_CommitError(t *testing.T) {
	f := newFixture()
	svc, tx, pub := newTestService(f.store)
	tx.commitErr = errors.New("connection reset")

	if _, err := svc.CreateOrder(context.Background(), f.cartReq()); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.created) != 0 {
		t.Error("no event may be published for an uncommitted order")
	}
}

func TestCreateOrder_PublishFailureIgnored(t *testing.T) {
	f := newFixture()
	svc, _, pub := newTestService(f.store)
	pub.err = errors.New("broker down")

	if _, err := svc.CreateOrder(context.Background(), f.cartReq()); err != nil {
		t.Fatalf("publish failure must not fail the order: %v", err)
	}
}

// =====================
// Preview
// =====================

func TestPreview_Scenario(t *testing.T) {
	f := newFixture()
	f.addMembership("10", "5", nil)
	svc, _, _ := newTestService(f.store)

	req := PreviewRequest{
		CustomerID: f.customer.ID,
		Items: []PreviewItem{
			{ProductID: f.coffee.String(), Quantity: 2, Price: "4.00"},
			{ProductID: f.toast.String(), Quantity: 1, Price: "10.00"},
		},
	}
	first, err := svc.Preview(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := svc.Preview(context.Background(), req)

	if !first.FinalAmount.Equal(decimal.RequireFromString("16.60")) {
		t.Errorf("final: got %s, want 16.60", first.FinalAmount)
	}
	if !first.FinalAmount.Equal(second.FinalAmount) || !first.TotalDiscount.Equal(second.TotalDiscount) {
		t.Error("preview must be deterministic")
	}
}

func TestPreview_UnknownProductUsesRequestCategory(t *testing.T) {
	f := newFixture()
	f.addMembership("0", "50", nil)
	svc, _, _ := newTestService(f.store)

	b, err := svc.Preview(context.Background(), PreviewRequest{
		CustomerID: f.customer.ID,
		Items:      []PreviewItem{{ProductID: "legacy-1", Quantity: 1, Price: "6.00", Category: "Drinks"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.BeverageDiscountAmount.Equal(decimal.RequireFromString("3")) {
		t.Errorf("beverage discount: got %s, want 3.00", b.BeverageDiscountAmount)
	}
}

func TestPreview_Validation(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f.store)

	if _, err := svc.Preview(context.Background(), PreviewRequest{}); !errors.Is(err, ErrEmptyItems) {
		t.Errorf("empty: got %v", err)
	}
	_, err := svc.Preview(context.Background(), PreviewRequest{Items: []PreviewItem{{ProductID: "x", Quantity: 1, Price: "-1"}}})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("negative price: got %v", err)
	}
}

// =====================
// Status transitions
// =====================

func seedOrder(store *mockOrderStore, status, payment string) database.Order {
	o := database.Order{
		ID:             uuid.New(),
		OrderNumber:    "ORD-20250314-AAAAAAAA",
		OrderType:      "to-go",
		Subtotal:       makeNumeric("18.00"),
		DiscountAmount: makeNumeric("1.40"),
		TotalAmount:    makeNumeric("16.60"),
		Status:         status,
		PaymentStatus:  payment,
	}
	store.orders[o.ID] = o
	return o
}

func TestUpdateStatus_KitchenAdvances(t *testing.T) {
	store := newMockOrderStore()
	o := seedOrder(store, "pending", "unpaid")
	svc, _, pub := newTestService(store)

	updated, err := svc.UpdateStatus(context.Background(), o.ID, "preparing", "kitchen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != "preparing" {
		t.Errorf("status: got %s", updated.Status)
	}
	arg := store.statusArgs[0]
	if arg.Status_2 != "pending" || arg.PaymentStatus != "unpaid" {
		t.Errorf("CAS guard: got %+v", arg)
	}
	if len(pub.status) != 1 || pub.status[0].From != "pending" || pub.status[0].To != "preparing" {
		t.Errorf("status event: got %+v", pub.status)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		payment string
		next    string
		role    string
		want    error
	}{
		{"skip ahead", "pending", "unpaid", "ready", "kitchen", lifecycle.ErrInvalidTransition},
		{"backwards", "ready", "unpaid", "preparing", "admin", lifecycle.ErrInvalidTransition},
		{"waiter cannot cook", "pending", "unpaid", "preparing", "waiter", lifecycle.ErrRoleNotAllowed},
		{"complete unpaid", "ready", "unpaid", "completed", "cashier", lifecycle.ErrPaymentRequired},
		{"cancel paid", "preparing", "paid", "cancelled", "cashier", lifecycle.ErrPaidOrderCancel},
		{"terminal", "completed", "paid", "cancelled", "admin", lifecycle.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockOrderStore()
			o := seedOrder(store, tt.status, tt.payment)
			svc, _, _ := newTestService(store)

			_, err := svc.UpdateStatus(context.Background(), o.ID, tt.next, tt.role)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err: got %v, want %v", err, tt.want)
			}
			if len(store.statusArgs) != 0 {
				t.Error("rejected transition must not write")
			}
		})
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, _, _ := newTestService(newMockOrderStore())
	_, err := svc.UpdateStatus(context.Background(), uuid.New(), "preparing", "kitchen")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err: got %v, want ErrOrderNotFound", err)
	}
}

func TestUpdateStatus_LostRace(t *testing.T) {
	store := newMockOrderStore()
	o := seedOrder(store, "pending", "unpaid")
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _, _ := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), o.ID, "cancelled", "cashier")
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("err: got %v, want ErrStatusConflict", err)
	}
}

// =====================
// Payment
// =====================

func TestPay_ReadyOrderCompletes(t *testing.T) {
	store := newMockOrderStore()
	o := seedOrder(store, "ready", "unpaid")
	store.items = []database.OrderItem{{OrderID: o.ID, ProductName: "Latte", Quantity: 2, Price: makeNumeric("4.00")}}
	svc, tx, pub := newTestService(store)
	cashier := uuid.New()

	res, err := svc.Pay(context.Background(), o.ID, "card", cashier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
	if res.Order.Status != "completed" || res.Order.PaymentStatus != "paid" {
		t.Errorf("order: got %s/%s", res.Order.Status, res.Order.PaymentStatus)
	}

	txn := store.txnArgs[0]
	if txn.ProcessedBy.Bytes != cashier || txn.PaymentMethod != "card" || !numericEquals(txn.Amount, "16.60") {
		t.Errorf("transaction: %+v", txn)
	}
	var rc map[string]interface{}
	if err := json.Unmarshal(txn.ReceiptData, &rc); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if rc["order_number"] != o.OrderNumber || rc["total"] != "16.60" || rc["discount"] != "1.40" {
		t.Errorf("receipt: %v", rc)
	}
	if items, _ := rc["items"].([]interface{}); len(items) != 1 {
		t.Errorf("receipt items: %v", rc["items"])
	}
	if len(pub.paid) != 1 || len(pub.status) != 1 {
		t.Errorf("events: paid=%d status=%d", len(pub.paid), len(pub.status))
	}
}

func TestPay_PendingOrderKeepsStatus(t *testing.T) {
	store := newMockOrderStore()
	o := seedOrder(store, "pending", "unpaid")
	svc, _, pub := newTestService(store)

	res, err := svc.Pay(context.Background(), o.ID, "cash", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Order.Status != "pending" {
		t.Errorf("status: got %s, want pending", res.Order.Status)
	}
	if len(pub.status) != 0 {
		t.Error("no status event expected")
	}
}

func TestPay_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		payment string
		method  string
		want    error
	}{
		{"already paid", "preparing", "paid", "cash", lifecycle.ErrAlreadyPaid},
		{"cancelled", "cancelled", "unpaid", "cash", lifecycle.ErrCancelledOrderPay},
		{"bad method", "ready", "unpaid", "bitcoin", lifecycle.ErrInvalidPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockOrderStore()
			o := seedOrder(store, tt.status, tt.payment)
			svc, _, _ := newTestService(store)

			_, err := svc.Pay(context.Background(), o.ID, tt.method, uuid.New())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err: got %v, want %v", err, tt.want)
			}
			if len(store.txnArgs) != 0 {
				t.Error("no transaction may be recorded")
			}
		})
	}
}

func TestPay_LostRace(t *testing.T) {
	store := newMockOrderStore()
	o := seedOrder(store, "ready", "unpaid")
	store.markOrderPaidFn = func(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _, _ := newTestService(store)

	if _, err := svc.Pay(context.Background(), o.ID, "qr", uuid.New()); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("err: got %v, want ErrStatusConflict", err)
	}
}

// =====================
// Location
// =====================

func TestUpdateLocation(t *testing.T) {
	store := newMockOrderStore()
	open := seedOrder(store, "preparing", "unpaid")
	closed := seedOrder(store, "completed", "paid")
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	if _, err := svc.UpdateLocation(ctx, open.ID, Location{Lat: -6.2, Lng: 200}); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("invalid lng: got %v", err)
	}
	if _, err := svc.UpdateLocation(ctx, closed.ID, Location{Lat: -6.2, Lng: 106.8}); !errors.Is(err, ErrOrderClosed) {
		t.Errorf("closed order: got %v", err)
	}
	if _, err := svc.UpdateLocation(ctx, uuid.New(), Location{}); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing order: got %v", err)
	}

	updated, err := svc.UpdateLocation(ctx, open.ID, Location{Lat: -6.2, Lng: 106.8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var loc Location
	if err := json.Unmarshal(updated.CustomerLocation, &loc); err != nil || loc.Lat != -6.2 || loc.Lng != 106.8 {
		t.Errorf("location: got %s (%v)", updated.CustomerLocation, err)
	}
}
