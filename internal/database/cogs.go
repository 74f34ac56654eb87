package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const cogColumns = `id, name, description, cost, category, created_at`

func scanCog(row interface{ Scan(...interface{}) error }) (Cog, error) {
	var i Cog
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Cost,
		&i.Category,
		&i.CreatedAt,
	)
	return i, err
}

const listCogs = `-- name: ListCogs :many
SELECT ` + cogColumns + ` FROM cogs
ORDER BY created_at DESC
`

func (q *Queries) ListCogs(ctx context.Context) ([]Cog, error) {
	rows, err := q.db.Query(ctx, listCogs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Cog{}
	for rows.Next() {
		i, err := scanCog(rows)
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

const createCog = `-- name: CreateCog :one
INSERT INTO cogs (name, description, cost, category)
VALUES ($1, $2, $3, $4)
RETURNING ` + cogColumns

type CreateCogParams struct {
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Cost        pgtype.Numeric `json:"cost"`
	Category    string         `json:"category"`
}

func (q *Queries) CreateCog(ctx context.Context, arg CreateCogParams) (Cog, error) {
	return scanCog(q.db.QueryRow(ctx, createCog, arg.Name, arg.Description, arg.Cost, arg.Category))
}

const updateCog = `-- name: UpdateCog :one
UPDATE cogs
SET name = $2, description = $3, cost = $4, category = $5
WHERE id = $1
RETURNING ` + cogColumns

type UpdateCogParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Cost        pgtype.Numeric `json:"cost"`
	Category    string         `json:"category"`
}

func (q *Queries) UpdateCog(ctx context.Context, arg UpdateCogParams) (Cog, error) {
	return scanCog(q.db.QueryRow(ctx, updateCog, arg.ID, arg.Name, arg.Description, arg.Cost, arg.Category))
}

const deleteCog = `-- name: DeleteCog :one
DELETE FROM cogs
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteCog(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	err := q.db.QueryRow(ctx, deleteCog, id).Scan(&id)
	return id, err
}
