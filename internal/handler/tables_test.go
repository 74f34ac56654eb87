package handler_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/events"
	"github.com/HanzKay/KrasandApps-V1/internal/handler"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Mocks ---

type mockTableStore struct {
	tables map[uuid.UUID]database.DiningTable
	// beforeStatusWrite runs between the handler's read and its CAS write.
	beforeStatusWrite func()
}

func newMockTableStore() *mockTableStore {
	return &mockTableStore{tables: make(map[uuid.UUID]database.DiningTable)}
}

func (m *mockTableStore) add(number int32, status string) database.DiningTable {
	t := database.DiningTable{
		ID:          uuid.New(),
		TableNumber: number,
		Capacity:    4,
		Status:      status,
		QrCode:      "table-" + uuid.NewString()[:8],
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.tables[t.ID] = t
	return t
}

func (m *mockTableStore) ListTables(_ context.Context) ([]database.DiningTable, error) {
	result := []database.DiningTable{}
	for _, t := range m.tables {
		result = append(result, t)
	}
	return result, nil
}

func (m *mockTableStore) GetTable(_ context.Context, id uuid.UUID) (database.DiningTable, error) {
	t, ok := m.tables[id]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *mockTableStore) GetTableByQRCode(_ context.Context, code string) (database.DiningTable, error) {
	for _, t := range m.tables {
		if t.QrCode == code {
			return t, nil
		}
	}
	return database.DiningTable{}, pgx.ErrNoRows
}

func (m *mockTableStore) CreateTable(_ context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
	for _, t := range m.tables {
		if t.TableNumber == arg.TableNumber {
			return database.DiningTable{}, &pgconn.PgError{Code: "23505"}
		}
	}
	t := database.DiningTable{
		ID:          uuid.New(),
		TableNumber: arg.TableNumber,
		Capacity:    arg.Capacity,
		Status:      enum.TableStatusAvailable,
		QrCode:      arg.QrCode,
		QrImage:     arg.QrImage,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.tables[t.ID] = t
	return t, nil
}

func (m *mockTableStore) UpdateTableCapacity(_ context.Context, arg database.UpdateTableCapacityParams) (database.DiningTable, error) {
	t, ok := m.tables[arg.ID]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.Capacity = arg.Capacity
	m.tables[t.ID] = t
	return t, nil
}

func (m *mockTableStore) UpdateTableStatus(_ context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error) {
	if m.beforeStatusWrite != nil {
		m.beforeStatusWrite()
	}
	t, ok := m.tables[arg.ID]
	if !ok || t.Status != arg.Status_2 {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	m.tables[t.ID] = t
	return t, nil
}

func (m *mockTableStore) DeleteTable(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.tables[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.tables, id)
	return id, nil
}

type fakeQR struct{ err error }

func (f fakeQR) DataURL(token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "data:image/png;base64," + token, nil
}

// recordingPublisher captures events for assertions.
type recordingPublisher struct {
	mu            sync.Mutex
	created       []events.OrderCreated
	statusChanged []events.OrderStatusChanged
	paid          []events.OrderPaid
	tables        []events.TableStatusChanged
	err           error
}

func (p *recordingPublisher) OrderCreated(_ context.Context, e events.OrderCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.err
}

func (p *recordingPublisher) OrderStatusChanged(_ context.Context, e events.OrderStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanged = append(p.statusChanged, e)
	return p.err
}

func (p *recordingPublisher) OrderPaid(_ context.Context, e events.OrderPaid) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, e)
	return p.err
}

func (p *recordingPublisher) TableStatusChanged(_ context.Context, e events.TableStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables = append(p.tables, e)
	return p.err
}

func setupTableRouter(store *mockTableStore, pub events.Publisher) http.Handler {
	h := handler.NewTableHandler(store, fakeQR{}, pub)
	return newRouter("/tables", h.RegisterRoutes)
}

// --- Tests ---

func TestTableVerify(t *testing.T) {
	store := newMockTableStore()
	table := store.add(3, enum.TableStatusAvailable)
	router := setupTableRouter(store, nil)

	rr := doRequest(t, router, "GET", "/tables/verify/"+table.QrCode, nil)
	assertStatus(t, rr, http.StatusOK)
	if resp := decodeResponse(t, rr); resp["table_number"] != float64(3) {
		t.Errorf("table_number: got %v, want 3", resp["table_number"])
	}

	rr = doRequest(t, router, "GET", "/tables/verify/bogus", nil)
	assertStatus(t, rr, http.StatusNotFound)
	if resp := decodeResponse(t, rr); resp["error"] != "invalid QR code" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestTableList_StaffOnly(t *testing.T) {
	store := newMockTableStore()
	store.add(1, enum.TableStatusAvailable)
	router := setupTableRouter(store, nil)

	assertStatus(t, doRequest(t, router, "GET", "/tables", nil), http.StatusUnauthorized)
	assertStatus(t, doAuthRequest(t, router, "GET", "/tables", nil, uuid.New(), enum.RoleCustomer), http.StatusForbidden)

	rr := doAuthRequest(t, router, "GET", "/tables", nil, uuid.New(), enum.RoleKitchen)
	assertStatus(t, rr, http.StatusOK)
	if resp := decodeListResponse(t, rr); len(resp) != 1 {
		t.Errorf("got %d tables, want 1", len(resp))
	}
}

func TestTableCreate(t *testing.T) {
	store := newMockTableStore()
	router := setupTableRouter(store, nil)

	rr := doAuthRequest(t, router, "POST", "/tables", map[string]interface{}{
		"table_number": 7, "capacity": 2,
	}, uuid.New(), enum.RoleWaiter)
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	code, _ := resp["qr_code"].(string)
	if !strings.HasPrefix(code, "table-7-") {
		t.Errorf("qr_code: got %q", code)
	}
	if resp["qr_image"] != "data:image/png;base64,"+code {
		t.Errorf("qr_image: got %v", resp["qr_image"])
	}
	if resp["status"] != enum.TableStatusAvailable {
		t.Errorf("status: got %v", resp["status"])
	}

	rr = doAuthRequest(t, router, "POST", "/tables", map[string]interface{}{
		"table_number": 7, "capacity": 4,
	}, uuid.New(), enum.RoleAdmin)
	assertStatus(t, rr, http.StatusConflict)
}

func TestTableCreate_Validation(t *testing.T) {
	router := setupTableRouter(newMockTableStore(), nil)

	rr := doAuthRequest(t, router, "POST", "/tables", map[string]interface{}{"table_number": 0, "capacity": 2}, uuid.New(), enum.RoleAdmin)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = doAuthRequest(t, router, "POST", "/tables", map[string]interface{}{"table_number": 1, "capacity": 0}, uuid.New(), enum.RoleAdmin)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = doAuthRequest(t, router, "POST", "/tables", map[string]interface{}{"table_number": 1, "capacity": 2}, uuid.New(), enum.RoleKitchen)
	assertStatus(t, rr, http.StatusForbidden)
}

func TestTableCreate_QRFailure(t *testing.T) {
	h := handler.NewTableHandler(newMockTableStore(), fakeQR{err: errors.New("boom")}, nil)
	router := newRouter("/tables", h.RegisterRoutes)

	rr := doAuthRequest(t, router, "POST", "/tables", map[string]interface{}{"table_number": 1, "capacity": 2}, uuid.New(), enum.RoleAdmin)
	assertStatus(t, rr, http.StatusInternalServerError)
}

func TestTableUpdate_CapacityOnly(t *testing.T) {
	store := newMockTableStore()
	table := store.add(5, enum.TableStatusAvailable)
	router := setupTableRouter(store, nil)
	path := "/tables/" + table.ID.String()

	rr := doAuthRequest(t, router, "PUT", path, map[string]interface{}{"table_number": 5, "capacity": 8}, uuid.New(), enum.RoleCashier)
	assertStatus(t, rr, http.StatusOK)
	if resp := decodeResponse(t, rr); resp["capacity"] != float64(8) {
		t.Errorf("capacity: got %v, want 8", resp["capacity"])
	}

	rr = doAuthRequest(t, router, "PUT", path, map[string]interface{}{"table_number": 6, "capacity": 8}, uuid.New(), enum.RoleCashier)
	assertStatus(t, rr, http.StatusConflict)

	rr = doAuthRequest(t, router, "PUT", "/tables/"+uuid.New().String(), map[string]interface{}{"capacity": 2}, uuid.New(), enum.RoleAdmin)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestTableUpdateStatus_ValidTransitionPublishes(t *testing.T) {
	store := newMockTableStore()
	table := store.add(2, enum.TableStatusAvailable)
	pub := &recordingPublisher{}
	router := setupTableRouter(store, pub)

	rr := doAuthRequest(t, router, "PUT", "/tables/"+table.ID.String()+"/status",
		map[string]interface{}{"status": enum.TableStatusOccupied}, uuid.New(), enum.RoleWaiter)
	assertStatus(t, rr, http.StatusOK)

	if store.tables[table.ID].Status != enum.TableStatusOccupied {
		t.Errorf("status not persisted")
	}
	if len(pub.tables) != 1 {
		t.Fatalf("expected 1 table event, got %d", len(pub.tables))
	}
	e := pub.tables[0]
	if e.From != enum.TableStatusAvailable || e.To != enum.TableStatusOccupied || e.TableNumber != 2 {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestTableUpdateStatus_PublishFailureIgnored(t *testing.T) {
	store := newMockTableStore()
	table := store.add(2, enum.TableStatusOccupied)
	router := setupTableRouter(store, &recordingPublisher{err: errors.New("broker down")})

	rr := doAuthRequest(t, router, "PUT", "/tables/"+table.ID.String()+"/status",
		map[string]interface{}{"status": enum.TableStatusAvailable}, uuid.New(), enum.RoleCashier)
	assertStatus(t, rr, http.StatusOK)
}

func TestTableUpdateStatus_InvalidTransition(t *testing.T) {
	store := newMockTableStore()
	table := store.add(2, enum.TableStatusReserved)
	router := setupTableRouter(store, nil)

	rr := doAuthRequest(t, router, "PUT", "/tables/"+table.ID.String()+"/status",
		map[string]interface{}{"status": enum.TableStatusReserved}, uuid.New(), enum.RoleAdmin)
	assertStatus(t, rr, http.StatusConflict)

	rr = doAuthRequest(t, router, "PUT", "/tables/"+table.ID.String()+"/status",
		map[string]interface{}{"status": "broken"}, uuid.New(), enum.RoleAdmin)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestTableUpdateStatus_ConcurrentChange(t *testing.T) {
	store := newMockTableStore()
	table := store.add(2, enum.TableStatusAvailable)
	store.beforeStatusWrite = func() {
		tb := store.tables[table.ID]
		tb.Status = enum.TableStatusReserved
		store.tables[table.ID] = tb
	}
	pub := &recordingPublisher{}
	router := setupTableRouter(store, pub)

	rr := doAuthRequest(t, router, "PUT", "/tables/"+table.ID.String()+"/status",
		map[string]interface{}{"status": enum.TableStatusOccupied}, uuid.New(), enum.RoleWaiter)
	assertStatus(t, rr, http.StatusConflict)
	if resp := decodeResponse(t, rr); resp["error"] != "table status changed, please retry" {
		t.Errorf("error: got %v", resp["error"])
	}
	if len(pub.tables) != 0 {
		t.Error("no event should be published on a lost race")
	}
}

func TestTableUpdateStatus_Forbidden(t *testing.T) {
	store := newMockTableStore()
	table := store.add(2, enum.TableStatusAvailable)
	router := setupTableRouter(store, nil)

	rr := doAuthRequest(t, router, "PUT", "/tables/"+table.ID.String()+"/status",
		map[string]interface{}{"status": enum.TableStatusOccupied}, uuid.New(), enum.RoleStorage)
	assertStatus(t, rr, http.StatusForbidden)
}

func TestTableDelete_AdminOnly(t *testing.T) {
	store := newMockTableStore()
	table := store.add(2, enum.TableStatusAvailable)
	router := setupTableRouter(store, nil)
	path := "/tables/" + table.ID.String()

	assertStatus(t, doAuthRequest(t, router, "DELETE", path, nil, uuid.New(), enum.RoleWaiter), http.StatusForbidden)
	assertStatus(t, doAuthRequest(t, router, "DELETE", path, nil, uuid.New(), enum.RoleAdmin), http.StatusNoContent)
	assertStatus(t, doAuthRequest(t, router, "DELETE", path, nil, uuid.New(), enum.RoleAdmin), http.StatusNotFound)
}
