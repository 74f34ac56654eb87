package client

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Role      string    `json:"role"`
	IsMember  bool      `json:"is_member"`
	CreatedAt time.Time `json:"created_at"`
}

type RecipeLine struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url"`
	Available   bool            `json:"available"`
	Featured    bool            `json:"featured"`
	SortOrder   int32           `json:"sort_order"`
	Recipes     []RecipeLine    `json:"recipes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductInput is the body of product create and update. Category may be a
// slug or a category id.
type ProductInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	Price       string       `json:"price"`
	ImageURL    string       `json:"image_url,omitempty"`
	Available   *bool        `json:"available,omitempty"`
	Featured    bool         `json:"featured"`
	SortOrder   int32        `json:"sort_order"`
	Recipes     []RecipeLine `json:"recipes,omitempty"`
}

type ProductFilter struct {
	Category           string
	Featured           bool
	IncludeUnavailable bool
}

type Category struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   *string   `json:"description"`
	Icon          *string   `json:"icon"`
	DiscountClass string    `json:"discount_class"`
	SortOrder     int32     `json:"sort_order"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

type CategoryInput struct {
	Name          string `json:"name"`
	Slug          string `json:"slug,omitempty"`
	Description   string `json:"description,omitempty"`
	Icon          string `json:"icon,omitempty"`
	DiscountClass string `json:"discount_class,omitempty"`
	SortOrder     int32  `json:"sort_order"`
	Active        *bool  `json:"active,omitempty"`
}

type Ingredient struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	LowStock     bool            `json:"low_stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type IngredientInput struct {
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentStock string `json:"current_stock,omitempty"`
	MinStock     string `json:"min_stock,omitempty"`
	CostPerUnit  string `json:"cost_per_unit,omitempty"`
}

type Cog struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CogInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Cost        string `json:"cost"`
	Category    string `json:"category"`
}

type Table struct {
	ID          uuid.UUID `json:"id"`
	TableNumber int32     `json:"table_number"`
	Capacity    int32     `json:"capacity"`
	Status      string    `json:"status"`
	QRCode      string    `json:"qr_code"`
	QRImage     string    `json:"qr_image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Quantity    int32           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"order_number"`
	CustomerID       *uuid.UUID      `json:"customer_id"`
	CustomerName     *string         `json:"customer_name"`
	CustomerEmail    *string         `json:"customer_email"`
	OrderType        string          `json:"order_type"`
	TableID          *uuid.UUID      `json:"table_id"`
	TableNumber      *int32          `json:"table_number"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DiscountInfo     *DiscountInfo   `json:"discount_info"`
	Notes            *string         `json:"notes"`
	CustomerLocation *Location       `json:"customer_location"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentMethod    *string         `json:"payment_method"`
	CreatedBy        *uuid.UUID      `json:"created_by"`
	Items            []OrderItem     `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type OrderItemInput struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int32  `json:"quantity"`
	Price       string `json:"price"`
}

type OrderInput struct {
	CustomerID    string           `json:"customer_id,omitempty"`
	CustomerName  string           `json:"customer_name,omitempty"`
	CustomerEmail string           `json:"customer_email,omitempty"`
	OrderType     string           `json:"order_type"`
	TableID       string           `json:"table_id,omitempty"`
	QRCode        string           `json:"qr_code,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Location      *Location        `json:"location,omitempty"`
	Items         []OrderItemInput `json:"items"`
}

type OrderFilter struct {
	Status    string
	OrderType string
	Limit     int
	Offset    int
}

type DiscountInfo struct {
	MembershipID            uuid.UUID       `json:"membership_id"`
	ProgramName             string          `json:"program_name"`
	FoodDiscountPercent     decimal.Decimal `json:"food_discount_percent"`
	FoodDiscountAmount      decimal.Decimal `json:"food_discount_amount"`
	BeverageDiscountPercent decimal.Decimal `json:"beverage_discount_percent"`
	BeverageDiscountAmount  decimal.Decimal `json:"beverage_discount_amount"`
	TotalDiscount           decimal.Decimal `json:"total_discount"`
}

type DiscountPreview struct {
	Subtotal                decimal.Decimal `json:"subtotal"`
	FoodTotal               decimal.Decimal `json:"food_total"`
	BeverageTotal           decimal.Decimal `json:"beverage_total"`
	FoodDiscountPercent     decimal.Decimal `json:"food_discount_percent"`
	FoodDiscountAmount      decimal.Decimal `json:"food_discount_amount"`
	BeverageDiscountPercent decimal.Decimal `json:"beverage_discount_percent"`
	BeverageDiscountAmount  decimal.Decimal `json:"beverage_discount_amount"`
	TotalDiscount           decimal.Decimal `json:"total_discount"`
	FinalAmount             decimal.Decimal `json:"final_amount"`
	HasMembership           bool            `json:"has_membership"`
	DiscountInfo            *DiscountInfo   `json:"discount_info"`
}

type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	ProcessedBy   *uuid.UUID      `json:"processed_by"`
	ReceiptData   json.RawMessage `json:"receipt_data"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Payment struct {
	Order       Order       `json:"order"`
	Transaction Transaction `json:"transaction"`
}

type Benefit struct {
	BenefitType string          `json:"benefit_type"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}

type Membership struct {
	ID            uuid.UUID  `json:"id"`
	ProgramID     *uuid.UUID `json:"program_id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	ProgramName   string     `json:"program_name"`
	Benefits      []Benefit  `json:"benefits"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Program struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Description   *string      `json:"description"`
	DurationType  string       `json:"duration_type"`
	DurationValue int32        `json:"duration_value"`
	IsGroup       bool         `json:"is_group"`
	Color         *string      `json:"color"`
	Benefits      []Benefit    `json:"benefits"`
	ActiveMembers *int64       `json:"active_members,omitempty"`
	Members       []Membership `json:"members,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type ProgramInput struct {
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	DurationType  string    `json:"duration_type"`
	DurationValue int       `json:"duration_value"`
	IsGroup       bool      `json:"is_group"`
	Color         string    `json:"color,omitempty"`
	Benefits      []Benefit `json:"benefits"`
}

type SkippedCustomer struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
}

type Assignment struct {
	Message     string            `json:"message"`
	Memberships []Membership      `json:"memberships"`
	Skipped     []SkippedCustomer `json:"skipped"`
}

type UserInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

type Stats struct {
	UsersCount          int64           `json:"users_count"`
	OrdersCount         int64           `json:"orders_count"`
	ProductsCount       int64           `json:"products_count"`
	TablesCount         int64           `json:"tables_count"`
	PendingOrders       int64           `json:"pending_orders"`
	CompletedOrders     int64           `json:"completed_orders"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	ActiveMemberships   int64           `json:"active_memberships"`
	ProgramsCount       int64           `json:"programs_count"`
	LowStockIngredients int64           `json:"low_stock_ingredients"`
	OccupiedTables      int64           `json:"occupied_tables"`
}
