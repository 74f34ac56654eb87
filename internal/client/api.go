package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// --- Session ---

// Me fetches the signed-in user and caches it on the session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	c.session.SetUser(&u)
	return &u, nil
}

func (c *Client) MyMemberships(ctx context.Context) ([]Membership, error) {
	var out []Membership
	if err := c.get(ctx, "/my/membership", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Catalog ---

func (c *Client) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Featured {
		q.Set("featured", "true")
	}
	if f.IncludeUnavailable {
		q.Set("include_unavailable", "true")
	}
	var out []Product
	if err := c.get(ctx, "/products", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	if err := c.get(ctx, "/products/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var p Product
	if err := c.post(ctx, "/products", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*Product, error) {
	var p Product
	if err := c.put(ctx, "/products/"+id.String(), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/products/"+id.String())
}

func (c *Client) ListCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	q := url.Values{}
	if includeInactive {
		q.Set("include_inactive", "true")
	}
	var out []Category
	if err := c.get(ctx, "/categories", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	var cat Category
	if err := c.post(ctx, "/categories", in, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*Category, error) {
	var cat Category
	if err := c.put(ctx, "/categories/"+id.String(), in, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/categories/"+id.String())
}

// --- Inventory ---

func (c *Client) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	var out []Ingredient
	if err := c.get(ctx, "/ingredients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateIngredient(ctx context.Context, in IngredientInput) (*Ingredient, error) {
	var ing Ingredient
	if err := c.post(ctx, "/ingredients", in, &ing); err != nil {
		return nil, err
	}
	return &ing, nil
}

func (c *Client) UpdateIngredient(ctx context.Context, id uuid.UUID, in IngredientInput) (*Ingredient, error) {
	var ing Ingredient
	if err := c.put(ctx, "/ingredients/"+id.String(), in, &ing); err != nil {
		return nil, err
	}
	return &ing, nil
}

func (c *Client) DeleteIngredient(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/ingredients/"+id.String())
}

func (c *Client) ListCogs(ctx context.Context) ([]Cog, error) {
	var out []Cog
	if err := c.get(ctx, "/cogs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCog(ctx context.Context, in CogInput) (*Cog, error) {
	var cog Cog
	if err := c.post(ctx, "/cogs", in, &cog); err != nil {
		return nil, err
	}
	return &cog, nil
}

func (c *Client) UpdateCog(ctx context.Context, id uuid.UUID, in CogInput) (*Cog, error) {
	var cog Cog
	if err := c.put(ctx, "/cogs/"+id.String(), in, &cog); err != nil {
		return nil, err
	}
	return &cog, nil
}

func (c *Client) DeleteCog(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/cogs/"+id.String())
}

// --- Tables ---

func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	var out []Table
	if err := c.get(ctx, "/tables", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyTable resolves a scanned QR token to its table. An unknown token is
// a ValidationError with status 404.
func (c *Client) VerifyTable(ctx context.Context, qrCode string) (*Table, error) {
	var t Table
	if err := c.get(ctx, "/tables/verify/"+url.PathEscape(qrCode), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CreateTable(ctx context.Context, number, capacity int32) (*Table, error) {
	var t Table
	body := map[string]int32{"table_number": number, "capacity": capacity}
	if err := c.post(ctx, "/tables", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTableCapacity(ctx context.Context, id uuid.UUID, capacity int32) (*Table, error) {
	var t Table
	if err := c.put(ctx, "/tables/"+id.String(), map[string]int32{"capacity": capacity}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTableStatus(ctx context.Context, id uuid.UUID, status string) (*Table, error) {
	var t Table
	if err := c.put(ctx, "/tables/"+id.String()+"/status", map[string]string{"status": status}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTable(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/tables/"+id.String())
}

// --- Orders ---

// CreateOrder places an order. A non-empty idempotencyKey makes retries of
// the same checkout return the original order instead of a duplicate.
func (c *Client) CreateOrder(ctx context.Context, in OrderInput, idempotencyKey string) (*Order, error) {
	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{"Idempotency-Key": []string{idempotencyKey}}
	}
	var o Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, in, &o, header); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.OrderType != "" {
		q.Set("order_type", f.OrderType)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	var out []Order
	if err := c.get(ctx, "/orders", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	if err := c.get(ctx, "/orders/"+id.String(), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderStatus moves an order along its lifecycle. IsConflict(err)
// means the move is not allowed from the order's current status, usually
// because another terminal got there first; refetch and redraw.
func (c *Client) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	var o Order
	if err := c.put(ctx, "/orders/"+id.String()+"/status", map[string]string{"status": status}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) PayOrder(ctx context.Context, id uuid.UUID, method string) (*Payment, error) {
	var p Payment
	if err := c.put(ctx, "/orders/"+id.String()+"/payment", map[string]string{"payment_method": method}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateOrderLocation(ctx context.Context, id uuid.UUID, loc Location) (*Order, error) {
	var o Order
	if err := c.put(ctx, "/orders/"+id.String()+"/location", loc, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) ListTransactions(ctx context.Context, limit, offset int) ([]Transaction, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var out []Transaction
	if err := c.get(ctx, "/transactions", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Admin ---

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.get(ctx, "/admin/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListUsers(ctx context.Context, role string) ([]User, error) {
	q := url.Values{}
	if role != "" {
		q.Set("role", role)
	}
	var out []User
	if err := c.get(ctx, "/admin/users", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	var u User
	if err := c.post(ctx, "/admin/users", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUserRole(ctx context.Context, id uuid.UUID, role string) (*User, error) {
	var u User
	if err := c.put(ctx, "/admin/users/"+id.String()+"/role", map[string]string{"role": role}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/admin/users/"+id.String())
}

func (c *Client) ListPrograms(ctx context.Context) ([]Program, error) {
	var out []Program
	if err := c.get(ctx, "/admin/programs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProgram(ctx context.Context, id uuid.UUID) (*Program, error) {
	var p Program
	if err := c.get(ctx, "/admin/programs/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProgram(ctx context.Context, in ProgramInput) (*Program, error) {
	var p Program
	if err := c.post(ctx, "/admin/programs", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProgram(ctx context.Context, id uuid.UUID, in ProgramInput) (*Program, error) {
	var p Program
	if err := c.put(ctx, "/admin/programs/"+id.String(), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProgram removes a program and returns how many active memberships
// were cancelled with it.
func (c *Client) DeleteProgram(ctx context.Context, id uuid.UUID) (int, error) {
	var out struct {
		CancelledMemberships int `json:"cancelled_memberships"`
	}
	if err := c.do(ctx, http.MethodDelete, "/admin/programs/"+id.String(), nil, nil, &out, nil); err != nil {
		return 0, err
	}
	return out.CancelledMemberships, nil
}

func (c *Client) ListMemberships(ctx context.Context, status string) ([]Membership, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	var out []Membership
	if err := c.get(ctx, "/admin/memberships", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignMembership enrolls customers in a program. Customers who already
// hold an active membership of it come back in Skipped.
func (c *Client) AssignMembership(ctx context.Context, programID uuid.UUID, customerIDs []uuid.UUID) (*Assignment, error) {
	ids := make([]string, len(customerIDs))
	for i, id := range customerIDs {
		ids[i] = id.String()
	}
	body := map[string]interface{}{"program_id": programID.String(), "customer_ids": ids}
	var a Assignment
	if err := c.post(ctx, "/admin/memberships", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) CancelMembership(ctx context.Context, id uuid.UUID) (*Membership, error) {
	var m Membership
	if err := c.do(ctx, http.MethodDelete, "/admin/memberships/"+id.String(), nil, nil, &m, nil); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) CustomerMemberships(ctx context.Context, customerID uuid.UUID) ([]Membership, error) {
	var out []Membership
	if err := c.get(ctx, "/admin/customers/"+customerID.String()+"/membership", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
