package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `id, name, slug, description, icon, discount_class, sort_order, active, created_at`

func scanCategory(row interface{ Scan(...interface{}) error }) (Category, error) {
	var i Category
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.Icon,
		&i.DiscountClass,
		&i.SortOrder,
		&i.Active,
		&i.CreatedAt,
	)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT ` + categoryColumns + ` FROM categories
WHERE active OR $1::bool
ORDER BY sort_order, name
`

func (q *Queries) ListCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		i, err := scanCategory(rows)
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

const getCategory = `-- name: GetCategory :one
SELECT ` + categoryColumns + ` FROM categories
WHERE id = $1
`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategory, id))
}

const getCategorySlug = `-- name: GetCategorySlug :one
SELECT slug FROM categories
WHERE id = $1
`

func (q *Queries) GetCategorySlug(ctx context.Context, id uuid.UUID) (string, error) {
	var slug string
	err := q.db.QueryRow(ctx, getCategorySlug, id).Scan(&slug)
	return slug, err
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name, slug, description, icon, discount_class, sort_order, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	Description   pgtype.Text `json:"description"`
	Icon          pgtype.Text `json:"icon"`
	DiscountClass string      `json:"discount_class"`
	SortOrder     int32       `json:"sort_order"`
	Active        bool        `json:"active"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, createCategory,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Icon,
		arg.DiscountClass,
		arg.SortOrder,
		arg.Active,
	))
}

const updateCategory = `-- name: UpdateCategory :one
UPDATE categories
SET name = $2, slug = $3, description = $4, icon = $5, discount_class = $6, sort_order = $7, active = $8
WHERE id = $1
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	Description   pgtype.Text `json:"description"`
	Icon          pgtype.Text `json:"icon"`
	DiscountClass string      `json:"discount_class"`
	SortOrder     int32       `json:"sort_order"`
	Active        bool        `json:"active"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, updateCategory,
		arg.ID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Icon,
		arg.DiscountClass,
		arg.SortOrder,
		arg.Active,
	))
}

const deleteCategory = `-- name: DeleteCategory :one
DELETE FROM categories
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	err := q.db.QueryRow(ctx, deleteCategory, id).Scan(&id)
	return id, err
}
