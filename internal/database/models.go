package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	Description   pgtype.Text `json:"description"`
	Icon          pgtype.Text `json:"icon"`
	DiscountClass string      `json:"discount_class"`
	SortOrder     int32       `json:"sort_order"`
	Active        bool        `json:"active"`
	CreatedAt     time.Time   `json:"created_at"`
}

type Cog struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Cost        pgtype.Numeric `json:"cost"`
	Category    string         `json:"category"`
	CreatedAt   time.Time      `json:"created_at"`
}

type DiningTable struct {
	ID          uuid.UUID `json:"id"`
	TableNumber int32     `json:"table_number"`
	Capacity    int32     `json:"capacity"`
	Status      string    `json:"status"`
	QrCode      string    `json:"qr_code"`
	QrImage     string    `json:"qr_image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Ingredient struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Unit         string         `json:"unit"`
	CurrentStock pgtype.Numeric `json:"current_stock"`
	MinStock     pgtype.Numeric `json:"min_stock"`
	CostPerUnit  pgtype.Numeric `json:"cost_per_unit"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type LoyaltyProgram struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Description   pgtype.Text `json:"description"`
	DurationType  string      `json:"duration_type"`
	DurationValue int32       `json:"duration_value"`
	IsGroup       bool        `json:"is_group"`
	Color         pgtype.Text `json:"color"`
	Benefits      []byte      `json:"benefits"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type Membership struct {
	ID          uuid.UUID          `json:"id"`
	ProgramID   pgtype.UUID        `json:"program_id"`
	CustomerID  uuid.UUID          `json:"customer_id"`
	ProgramName string             `json:"program_name"`
	Benefits    []byte             `json:"benefits"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     pgtype.Timestamptz `json:"end_date"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type Order struct {
	ID               uuid.UUID      `json:"id"`
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
	Status           string         `json:"status"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentMethod    pgtype.Text    `json:"payment_method"`
	CreatedBy        pgtype.UUID    `json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID          uuid.UUID      `json:"id"`
	OrderID     uuid.UUID      `json:"order_id"`
	Position    int32          `json:"position"`
	ProductID   uuid.UUID      `json:"product_id"`
	ProductName string         `json:"product_name"`
	Category    string         `json:"category"`
	Quantity    int32          `json:"quantity"`
	Price       pgtype.Numeric `json:"price"`
}

type Product struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Category    string         `json:"category"`
	Price       pgtype.Numeric `json:"price"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	Available   bool           `json:"available"`
	Featured    bool           `json:"featured"`
	SortOrder   int32          `json:"sort_order"`
	Recipes     []byte         `json:"recipes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Transaction struct {
	ID            uuid.UUID      `json:"id"`
	OrderID       uuid.UUID      `json:"order_id"`
	Amount        pgtype.Numeric `json:"amount"`
	PaymentMethod string         `json:"payment_method"`
	ProcessedBy   pgtype.UUID    `json:"processed_by"`
	ReceiptData   []byte         `json:"receipt_data"`
	CreatedAt     time.Time      `json:"created_at"`
}

type User struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Phone     pgtype.Text `json:"phone"`
	Role      string      `json:"role"`
	IsMember  bool        `json:"is_member"`
	CreatedAt time.Time   `json:"created_at"`
}
