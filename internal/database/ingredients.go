package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `id, name, unit, current_stock, min_stock, cost_per_unit, created_at, updated_at`

func scanIngredient(row interface{ Scan(...interface{}) error }) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Unit,
		&i.CurrentStock,
		&i.MinStock,
		&i.CostPerUnit,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectIngredients(ctx context.Context, db DBTX, query string, args ...interface{}) ([]Ingredient, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Ingredient{}
	for rows.Next() {
		i, err := scanIngredient(rows)
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

const listIngredients = `-- name: ListIngredients :many
SELECT ` + ingredientColumns + ` FROM ingredients
ORDER BY name
`

func (q *Queries) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	return collectIngredients(ctx, q.db, listIngredients)
}

const listLowStockIngredients = `-- name: ListLowStockIngredients :many
SELECT ` + ingredientColumns + ` FROM ingredients
WHERE current_stock <= min_stock
ORDER BY name
`

func (q *Queries) ListLowStockIngredients(ctx context.Context) ([]Ingredient, error) {
	return collectIngredients(ctx, q.db, listLowStockIngredients)
}

const getIngredient = `-- name: GetIngredient :one
SELECT ` + ingredientColumns + ` FROM ingredients
WHERE id = $1
`

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredient, id))
}

const createIngredient = `-- name: CreateIngredient :one
INSERT INTO ingredients (name, unit, current_stock, min_stock, cost_per_unit)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + ingredientColumns

type CreateIngredientParams struct {
	Name         string         `json:"name"`
	Unit         string         `json:"unit"`
	CurrentStock pgtype.Numeric `json:"current_stock"`
	MinStock     pgtype.Numeric `json:"min_stock"`
	CostPerUnit  pgtype.Numeric `json:"cost_per_unit"`
}

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, createIngredient,
		arg.Name,
		arg.Unit,
		arg.CurrentStock,
		arg.MinStock,
		arg.CostPerUnit,
	))
}

const updateIngredient = `-- name: UpdateIngredient :one
UPDATE ingredients
SET name = $2, unit = $3, current_stock = $4, min_stock = $5, cost_per_unit = $6, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

type UpdateIngredientParams struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Unit         string         `json:"unit"`
	CurrentStock pgtype.Numeric `json:"current_stock"`
	MinStock     pgtype.Numeric `json:"min_stock"`
	CostPerUnit  pgtype.Numeric `json:"cost_per_unit"`
}

func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, updateIngredient,
		arg.ID,
		arg.Name,
		arg.Unit,
		arg.CurrentStock,
		arg.MinStock,
		arg.CostPerUnit,
	))
}

const deleteIngredient = `-- name: DeleteIngredient :one
DELETE FROM ingredients
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteIngredient(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	err := q.db.QueryRow(ctx, deleteIngredient, id).Scan(&id)
	return id, err
}

const decrementIngredientStock = `-- name: DecrementIngredientStock :exec
UPDATE ingredients
SET current_stock = GREATEST(current_stock - $2, 0), updated_at = now()
WHERE id = $1
`

type DecrementIngredientStockParams struct {
	ID       uuid.UUID      `json:"id"`
	Quantity pgtype.Numeric `json:"quantity"`
}

// DecrementIngredientStock floors stock at zero; an unknown id is a no-op.
func (q *Queries) DecrementIngredientStock(ctx context.Context, arg DecrementIngredientStockParams) error {
	_, err := q.db.Exec(ctx, decrementIngredientStock, arg.ID, arg.Quantity)
	return err
}
