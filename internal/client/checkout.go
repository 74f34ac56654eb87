package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTableRequired is returned before any request when a dine-in order
	// has no table resolved from a QR scan.
	ErrTableRequired = errors.New("dine-in orders need a table: scan the table QR code")
	ErrEmptyCart     = errors.New("cart is empty")
)

type CheckoutRequest struct {
	OrderType string
	// Table is the result of VerifyTable. Required for dine-in.
	Table *Table
	// CustomerID lets staff place an order on a customer's behalf. Ignored
	// by the server for customers and guests.
	CustomerID    *uuid.UUID
	CustomerName  string
	CustomerEmail string
	Notes         string
	// Location is sent after the order exists, as a separate request.
	Location *Location
	// IdempotencyKey defaults to a fresh UUID. Reuse it when retrying the
	// same checkout.
	IdempotencyKey string
}

type CheckoutResult struct {
	Order *Order
	// LocationErr is set when the order was placed but recording the
	// location failed. The order stands either way.
	LocationErr error
}

// Checkout places the cart as an order. The cart is left untouched; callers
// clear it once they have shown the confirmation.
func (c *Client) Checkout(ctx context.Context, cart *Cart, req CheckoutRequest) (*CheckoutResult, error) {
	if cart == nil || cart.Empty() {
		return nil, ErrEmptyCart
	}
	if req.OrderType == enum.OrderTypeDineIn && req.Table == nil {
		return nil, ErrTableRequired
	}

	in := OrderInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		OrderType:     req.OrderType,
		Notes:         req.Notes,
		Items:         cart.orderItems(),
	}
	if req.Table != nil {
		in.TableID = req.Table.ID.String()
		in.QRCode = req.Table.QRCode
	}
	if req.CustomerID != nil {
		in.CustomerID = req.CustomerID.String()
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	order, err := c.CreateOrder(ctx, in, key)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{Order: order}
	if req.Location != nil {
		updated, err := c.UpdateOrderLocation(ctx, order.ID, *req.Location)
		if err != nil {
			result.LocationErr = fmt.Errorf("order %s placed, location not saved: %w", order.OrderNumber, err)
			zap.L().Warn("update order location", zap.String("order_id", order.ID.String()), zap.Error(err))
		} else {
			result.Order = updated
		}
	}
	return result, nil
}

// PreviewDiscount asks the server for the discount the cart would get.
// Errors are returned as is; see DiscountFor for the lenient variant.
func (c *Client) PreviewDiscount(ctx context.Context, cart *Cart, customerID *uuid.UUID) (*DiscountPreview, error) {
	body := struct {
		CustomerID string        `json:"customer_id,omitempty"`
		Items      []previewItem `json:"items"`
	}{Items: cart.previewItems()}
	if customerID != nil {
		body.CustomerID = customerID.String()
	}
	var p DiscountPreview
	if err := c.post(ctx, "/orders/preview-discount", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DiscountFor returns the cart's discount breakdown, or nil when there is no
// one to discount for or the preview could not be fetched. Guests get nil
// without a request. Failures are logged and never block checkout.
func (c *Client) DiscountFor(ctx context.Context, cart *Cart, customerID *uuid.UUID) *DiscountPreview {
	if cart == nil || cart.Empty() {
		return nil
	}
	if customerID == nil && !c.session.Authenticated() {
		return nil
	}
	p, err := c.PreviewDiscount(ctx, cart, customerID)
	if err != nil {
		zap.L().Debug("discount preview unavailable", zap.Error(err))
		return nil
	}
	if !p.HasMembership {
		return nil
	}
	return p
}
