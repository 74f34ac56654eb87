package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/handler"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock stores ---

type mockIngredientStore struct {
	ingredients map[uuid.UUID]database.Ingredient
	order       []uuid.UUID
}

func newMockIngredientStore() *mockIngredientStore {
	return &mockIngredientStore{ingredients: make(map[uuid.UUID]database.Ingredient)}
}

func (m *mockIngredientStore) add(name, current, min string) database.Ingredient {
	ing := database.Ingredient{
		ID:           uuid.New(),
		Name:         name,
		Unit:         "kg",
		CurrentStock: testNumeric(current),
		MinStock:     testNumeric(min),
		CostPerUnit:  testNumeric("1"),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.ingredients[ing.ID] = ing
	m.order = append(m.order, ing.ID)
	return ing
}

func (m *mockIngredientStore) ListIngredients(_ context.Context) ([]database.Ingredient, error) {
	result := []database.Ingredient{}
	for _, id := range m.order {
		if ing, ok := m.ingredients[id]; ok {
			result = append(result, ing)
		}
	}
	return result, nil
}

func (m *mockIngredientStore) CreateIngredient(_ context.Context, arg database.CreateIngredientParams) (database.Ingredient, error) {
	ing := database.Ingredient{
		ID:           uuid.New(),
		Name:         arg.Name,
		Unit:         arg.Unit,
		CurrentStock: arg.CurrentStock,
		MinStock:     arg.MinStock,
		CostPerUnit:  arg.CostPerUnit,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.ingredients[ing.ID] = ing
	m.order = append(m.order, ing.ID)
	return ing, nil
}

func (m *mockIngredientStore) UpdateIngredient(_ context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error) {
	ing, ok := m.ingredients[arg.ID]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	ing.Name = arg.Name
	ing.Unit = arg.Unit
	ing.CurrentStock = arg.CurrentStock
	ing.MinStock = arg.MinStock
	ing.CostPerUnit = arg.CostPerUnit
	m.ingredients[ing.ID] = ing
	return ing, nil
}

func (m *mockIngredientStore) DeleteIngredient(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.ingredients[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.ingredients, id)
	return id, nil
}

type mockCogsStore struct {
	cogs map[uuid.UUID]database.Cog
}

func (m *mockCogsStore) ListCogs(_ context.Context) ([]database.Cog, error) {
	result := []database.Cog{}
	for _, c := range m.cogs {
		result = append(result, c)
	}
	return result, nil
}

func (m *mockCogsStore) CreateCog(_ context.Context, arg database.CreateCogParams) (database.Cog, error) {
	c := database.Cog{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		Cost:        arg.Cost,
		Category:    arg.Category,
		CreatedAt:   time.Now(),
	}
	m.cogs[c.ID] = c
	return c, nil
}

func (m *mockCogsStore) UpdateCog(_ context.Context, arg database.UpdateCogParams) (database.Cog, error) {
	c, ok := m.cogs[arg.ID]
	if !ok {
		return database.Cog{}, pgx.ErrNoRows
	}
	c.Name = arg.Name
	c.Description = arg.Description
	c.Cost = arg.Cost
	c.Category = arg.Category
	m.cogs[c.ID] = c
	return c, nil
}

func (m *mockCogsStore) DeleteCog(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.cogs[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.cogs, id)
	return id, nil
}

// --- Ingredient tests ---

func TestIngredientList_LowStockFlag(t *testing.T) {
	store := newMockIngredientStore()
	store.add("Flour", "10", "2")
	store.add("Milk", "2", "2")
	store.add("Sugar", "0.5", "1")
	router := newRouter("/ingredients", handler.NewIngredientHandler(store).RegisterRoutes)

	rr := doAuthRequest(t, router, "GET", "/ingredients", nil, uuid.New(), enum.RoleKitchen)
	assertStatus(t, rr, http.StatusOK)

	resp := decodeListResponse(t, rr)
	require.Len(t, resp, 3)
	assert.Equal(t, false, resp[0]["low_stock"])
	assert.Equal(t, true, resp[1]["low_stock"], "stock equal to minimum is low")
	assert.Equal(t, true, resp[2]["low_stock"])
	assert.Equal(t, "0.500", resp[2]["current_stock"])
}

func TestIngredientList_Forbidden(t *testing.T) {
	router := newRouter("/ingredients", handler.NewIngredientHandler(newMockIngredientStore()).RegisterRoutes)

	assertStatus(t, doAuthRequest(t, router, "GET", "/ingredients", nil, uuid.New(), enum.RoleCashier), http.StatusForbidden)
	assertStatus(t, doRequest(t, router, "GET", "/ingredients", nil), http.StatusUnauthorized)
}

func TestIngredientCreate_DefaultsAmounts(t *testing.T) {
	router := newRouter("/ingredients", handler.NewIngredientHandler(newMockIngredientStore()).RegisterRoutes)

	rr := doAuthRequest(t, router, "POST", "/ingredients", map[string]interface{}{
		"name": "Coffee Beans", "unit": "kg", "current_stock": "4.25",
	}, uuid.New(), enum.RoleStorage)
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	assert.Equal(t, "4.250", resp["current_stock"])
	assert.Equal(t, "0.000", resp["min_stock"])
	assert.Equal(t, "0.00", resp["cost_per_unit"])
	assert.Equal(t, false, resp["low_stock"])
}

func TestIngredientCreate_Validation(t *testing.T) {
	cases := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"missing name", map[string]interface{}{"unit": "kg"}, "name is required"},
		{"missing unit", map[string]interface{}{"name": "Salt"}, "unit is required"},
		{"negative stock", map[string]interface{}{"name": "Salt", "unit": "kg", "current_stock": "-1"}, "current_stock must be >= 0"},
		{"negative min", map[string]interface{}{"name": "Salt", "unit": "kg", "min_stock": "-0.5"}, "min_stock must be >= 0"},
		{"bad cost", map[string]interface{}{"name": "Salt", "unit": "kg", "cost_per_unit": "cheap"}, "invalid cost_per_unit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter("/ingredients", handler.NewIngredientHandler(newMockIngredientStore()).RegisterRoutes)
			rr := doAuthRequest(t, router, "POST", "/ingredients", tc.body, uuid.New(), enum.RoleAdmin)
			assertStatus(t, rr, http.StatusBadRequest)
			assert.Equal(t, tc.want, decodeResponse(t, rr)["error"])
		})
	}
}

func TestIngredientWrite_KitchenForbidden(t *testing.T) {
	router := newRouter("/ingredients", handler.NewIngredientHandler(newMockIngredientStore()).RegisterRoutes)
	rr := doAuthRequest(t, router, "POST", "/ingredients", map[string]interface{}{"name": "Salt", "unit": "kg"}, uuid.New(), enum.RoleKitchen)
	assertStatus(t, rr, http.StatusForbidden)
}

func TestIngredientUpdateAndDelete(t *testing.T) {
	store := newMockIngredientStore()
	ing := store.add("Milk", "5", "1")
	router := newRouter("/ingredients", handler.NewIngredientHandler(store).RegisterRoutes)

	rr := doAuthRequest(t, router, "PUT", "/ingredients/"+ing.ID.String(), map[string]interface{}{
		"name": "Milk", "unit": "l", "current_stock": "0.5", "min_stock": "1",
	}, uuid.New(), enum.RoleStorage)
	assertStatus(t, rr, http.StatusOK)
	resp := decodeResponse(t, rr)
	assert.Equal(t, "l", resp["unit"])
	assert.Equal(t, true, resp["low_stock"])

	rr = doAuthRequest(t, router, "DELETE", "/ingredients/"+ing.ID.String(), nil, uuid.New(), enum.RoleAdmin)
	assertStatus(t, rr, http.StatusNoContent)

	rr = doAuthRequest(t, router, "PUT", "/ingredients/"+ing.ID.String(), map[string]interface{}{
		"name": "Milk", "unit": "l",
	}, uuid.New(), enum.RoleStorage)
	assertStatus(t, rr, http.StatusNotFound)
}

// --- COGS tests ---

func TestCogsCRUD(t *testing.T) {
	store := &mockCogsStore{cogs: make(map[uuid.UUID]database.Cog)}
	router := newRouter("/cogs", handler.NewCogsHandler(store).RegisterRoutes)
	admin := uuid.New()

	rr := doAuthRequest(t, router, "POST", "/cogs", map[string]interface{}{
		"name": "Packaging", "category": "supplies", "cost": "1.5",
	}, admin, enum.RoleAdmin)
	assertStatus(t, rr, http.StatusCreated)
	created := decodeResponse(t, rr)
	assert.Equal(t, "1.50", created["cost"])
	assert.Nil(t, created["description"])

	id := created["id"].(string)
	rr = doAuthRequest(t, router, "PUT", "/cogs/"+id, map[string]interface{}{
		"name": "Packaging", "category": "supplies", "cost": "2", "description": "cups and lids",
	}, admin, enum.RoleAdmin)
	assertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "cups and lids", decodeResponse(t, rr)["description"])

	rr = doAuthRequest(t, router, "GET", "/cogs", nil, admin, enum.RoleAdmin)
	assertStatus(t, rr, http.StatusOK)
	assert.Len(t, decodeListResponse(t, rr), 1)

	rr = doAuthRequest(t, router, "DELETE", "/cogs/"+id, nil, admin, enum.RoleAdmin)
	assertStatus(t, rr, http.StatusNoContent)

	rr = doAuthRequest(t, router, "DELETE", "/cogs/"+id, nil, admin, enum.RoleAdmin)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestCogsCreate_Validation(t *testing.T) {
	store := &mockCogsStore{cogs: make(map[uuid.UUID]database.Cog)}
	router := newRouter("/cogs", handler.NewCogsHandler(store).RegisterRoutes)

	cases := []struct {
		body map[string]interface{}
		want string
	}{
		{map[string]interface{}{"category": "x", "cost": "1"}, "name is required"},
		{map[string]interface{}{"name": "x", "cost": "1"}, "category is required"},
		{map[string]interface{}{"name": "x", "category": "x"}, "cost is required"},
		{map[string]interface{}{"name": "x", "category": "x", "cost": "-3"}, "cost must be >= 0"},
	}
	for _, tc := range cases {
		rr := doAuthRequest(t, router, "POST", "/cogs", tc.body, uuid.New(), enum.RoleStorage)
		assertStatus(t, rr, http.StatusBadRequest)
		assert.Equal(t, tc.want, decodeResponse(t, rr)["error"])
	}
}
