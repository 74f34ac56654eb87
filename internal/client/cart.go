package client

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrNotInCart          = errors.New("product is not in the cart")
)

type CartItem struct {
	ProductID uuid.UUID
	Name      string
	Category  string
	Price     decimal.Decimal
	Quantity  int32
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt32(i.Quantity))
}

// Cart is the in-memory basket of a single session. It is not safe for
// concurrent use. Lines keep insertion order and there is at most one line
// per product.
type Cart struct {
	items []CartItem
}

func NewCart() *Cart {
	return &Cart{}
}

// Add puts qty of p in the cart, merging into an existing line for the same
// product. Unavailable products are refused.
func (c *Cart) Add(p Product, qty int32) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if !p.Available {
		return ErrProductUnavailable
	}
	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity += qty
		return nil
	}
	c.items = append(c.items, CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		Quantity:  qty,
	})
	return nil
}

func (c *Cart) Increment(productID uuid.UUID) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	c.items[i].Quantity++
	return nil
}

// Decrement lowers a line by one. A line reaching zero is removed.
func (c *Cart) Decrement(productID uuid.UUID) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	if c.items[i].Quantity <= 1 {
		c.removeAt(i)
		return nil
	}
	c.items[i].Quantity--
	return nil
}

func (c *Cart) Remove(productID uuid.UUID) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	c.removeAt(i)
	return nil
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

// Quantity returns the units of productID in the cart.
func (c *Cart) Quantity(productID uuid.UUID) int32 {
	if i := c.index(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Subtotal is the sum of every line total.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func (c *Cart) orderItems() []OrderItemInput {
	out := make([]OrderItemInput, len(c.items))
	for i, it := range c.items {
		out[i] = OrderItemInput{
			ProductID:   it.ProductID.String(),
			ProductName: it.Name,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
		}
	}
	return out
}

type previewItem struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Price     string `json:"price"`
	Category  string `json:"category"`
}

func (c *Cart) previewItems() []previewItem {
	out := make([]previewItem, len(c.items))
	for i, it := range c.items {
		out[i] = previewItem{
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
			Category:  it.Category,
		}
	}
	return out
}

func (c *Cart) index(productID uuid.UUID) int {
	for i, it := range c.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i:i], c.items[i+1:]...)
}
