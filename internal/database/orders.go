package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_id, customer_name, customer_email, order_type, table_id, table_number,
    subtotal, discount_amount, total_amount, discount_info, notes, customer_location, status, payment_status,
    payment_method, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.CustomerID,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.OrderType,
		&i.TableID,
		&i.TableNumber,
		&i.Subtotal,
		&i.DiscountAmount,
		&i.TotalAmount,
		&i.DiscountInfo,
		&i.Notes,
		&i.CustomerLocation,
		&i.Status,
		&i.PaymentStatus,
		&i.PaymentMethod,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    order_number, customer_id, customer_name, customer_email, order_type, table_id, table_number,
    subtotal, discount_amount, total_amount, discount_info, notes, customer_location, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber      string         `json:"order_number"`
	CustomerID       pgtype.UUID    `json:"customer_id"`
	CustomerName     pgtype.Text    `json:"customer_name"`
	CustomerEmail    pgtype.Text    `json:"customer_email"`
	OrderType        string         `json:"order_type"`
	TableID          pgtype.UUID    `json:"table_id"`
	TableNumber      pgtype.Int4    `json:"table_number"`
	Subtotal         pgtype.Numeric `json:"subtotal"`
	DiscountAmount   pgtype.Numeric `json:"discount_amount"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
	DiscountInfo     []byte         `json:"discount_info"`
	Notes            pgtype.Text    `json:"notes"`
	CustomerLocation []byte         `json:"customer_location"`
	CreatedBy        pgtype.UUID    `json:"created_by"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.CustomerID,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.OrderType,
		arg.TableID,
		arg.TableNumber,
		arg.Subtotal,
		arg.DiscountAmount,
		arg.TotalAmount,
		arg.DiscountInfo,
		arg.Notes,
		arg.CustomerLocation,
		arg.CreatedBy,
	))
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, position, product_id, product_name, category, quantity, price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, position, product_id, product_name, category, quantity, price
`

type CreateOrderItemParams struct {
	OrderID     uuid.UUID      `json:"order_id"`
	Position    int32          `json:"position"`
	ProductID   uuid.UUID      `json:"product_id"`
	ProductName string         `json:"product_name"`
	Category    string         `json:"category"`
	Quantity    int32          `json:"quantity"`
	Price       pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.Position,
		arg.ProductID,
		arg.ProductName,
		arg.Category,
		arg.Quantity,
		arg.Price,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Position,
		&i.ProductID,
		&i.ProductName,
		&i.Category,
		&i.Quantity,
		&i.Price,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::uuid IS NULL OR customer_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR order_type = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	CustomerID pgtype.UUID `json:"customer_id"`
	Status     pgtype.Text `json:"status"`
	OrderType  pgtype.Text `json:"order_type"`
	Limit      int32       `json:"limit"`
	Offset     int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.CustomerID,
		arg.Status,
		arg.OrderType,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItemsByOrders = `-- name: ListOrderItemsByOrders :many
SELECT id, order_id, position, product_id, product_name, category, quantity, price FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrders, orderIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.Position,
			&i.ProductID,
			&i.ProductName,
			&i.Category,
			&i.Quantity,
			&i.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3 AND payment_status = $4
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID            uuid.UUID `json:"id"`
	Status        string    `json:"status"`
	Status_2      string    `json:"status_2"`
	PaymentStatus string    `json:"payment_status"`
}

// UpdateOrderStatus only applies when the order is still in Status_2 with
// the given payment status.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Status_2, arg.PaymentStatus))
}

const markOrderPaid = `-- name: MarkOrderPaid :one
UPDATE orders
SET payment_status = 'paid', payment_method = $2, status = $3, updated_at = now()
WHERE id = $1 AND status = $4 AND payment_status = 'unpaid'
RETURNING ` + orderColumns

type MarkOrderPaidParams struct {
	ID            uuid.UUID `json:"id"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	Status_2      string    `json:"status_2"`
}

func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPaid, arg.ID, arg.PaymentMethod, arg.Status, arg.Status_2))
}

const updateOrderLocation = `-- name: UpdateOrderLocation :one
UPDATE orders
SET customer_location = $2, updated_at = now()
WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
RETURNING ` + orderColumns

type UpdateOrderLocationParams struct {
	ID               uuid.UUID `json:"id"`
	CustomerLocation []byte    `json:"customer_location"`
}

func (q *Queries) UpdateOrderLocation(ctx context.Context, arg UpdateOrderLocationParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderLocation, arg.ID, arg.CustomerLocation))
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (order_id, amount, payment_method, processed_by, receipt_data)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, amount, payment_method, processed_by, receipt_data, created_at
`

type CreateTransactionParams struct {
	OrderID       uuid.UUID      `json:"order_id"`
	Amount        pgtype.Numeric `json:"amount"`
	PaymentMethod string         `json:"payment_method"`
	ProcessedBy   pgtype.UUID    `json:"processed_by"`
	ReceiptData   []byte         `json:"receipt_data"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, createTransaction,
		arg.OrderID,
		arg.Amount,
		arg.PaymentMethod,
		arg.ProcessedBy,
		arg.ReceiptData,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Amount,
		&i.PaymentMethod,
		&i.ProcessedBy,
		&i.ReceiptData,
		&i.CreatedAt,
	)
	return i, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, order_id, amount, payment_method, processed_by, receipt_data, created_at FROM transactions
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListTransactionsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.Amount,
			&i.PaymentMethod,
			&i.ProcessedBy,
			&i.ReceiptData,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
