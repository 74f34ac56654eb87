package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, description, category, price, image_url, available, featured, sort_order, recipes, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Category,
		&i.Price,
		&i.ImageUrl,
		&i.Available,
		&i.Featured,
		&i.SortOrder,
		&i.Recipes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listProducts = `-- name: ListProducts :many
SELECT ` + productColumns + ` FROM products
WHERE ($1::text IS NULL OR category = $1)
  AND (available OR $2::bool)
  AND (featured OR NOT $3::bool)
ORDER BY sort_order, name
`

type ListProductsParams struct {
	Category           pgtype.Text `json:"category"`
	IncludeUnavailable bool        `json:"include_unavailable"`
	FeaturedOnly       bool        `json:"featured_only"`
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Category, arg.IncludeUnavailable, arg.FeaturedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
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

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (name, description, category, price, image_url, available, featured, sort_order, recipes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + productColumns

type CreateProductParams struct {
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Category    string         `json:"category"`
	Price       pgtype.Numeric `json:"price"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	Available   bool           `json:"available"`
	Featured    bool           `json:"featured"`
	SortOrder   int32          `json:"sort_order"`
	Recipes     []byte         `json:"recipes"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Price,
		arg.ImageUrl,
		arg.Available,
		arg.Featured,
		arg.SortOrder,
		arg.Recipes,
	))
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET name = $2, description = $3, category = $4, price = $5, image_url = $6,
    available = $7, featured = $8, sort_order = $9, recipes = $10, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
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
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Price,
		arg.ImageUrl,
		arg.Available,
		arg.Featured,
		arg.SortOrder,
		arg.Recipes,
	))
}

const deleteProduct = `-- name: DeleteProduct :one
DELETE FROM products
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	err := q.db.QueryRow(ctx, deleteProduct, id).Scan(&id)
	return id, err
}

const listProductsForOrder = `-- name: ListProductsForOrder :many
SELECT p.id, p.name, p.price, p.available, p.category, p.recipes, c.discount_class
FROM products p
LEFT JOIN categories c ON c.slug = p.category
WHERE p.id = ANY($1::uuid[])
`

type ListProductsForOrderRow struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Price         pgtype.Numeric `json:"price"`
	Available     bool           `json:"available"`
	Category      string         `json:"category"`
	Recipes       []byte         `json:"recipes"`
	DiscountClass pgtype.Text    `json:"discount_class"`
}

func (q *Queries) ListProductsForOrder(ctx context.Context, ids []uuid.UUID) ([]ListProductsForOrderRow, error) {
	rows, err := q.db.Query(ctx, listProductsForOrder, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListProductsForOrderRow{}
	for rows.Next() {
		var i ListProductsForOrderRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Price,
			&i.Available,
			&i.Category,
			&i.Recipes,
			&i.DiscountClass,
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
