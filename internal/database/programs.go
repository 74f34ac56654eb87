package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const programColumns = `id, name, description, duration_type, duration_value, is_group, color, benefits, created_at, updated_at`

func scanProgram(row interface{ Scan(...interface{}) error }) (LoyaltyProgram, error) {
	var i LoyaltyProgram
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.DurationType,
		&i.DurationValue,
		&i.IsGroup,
		&i.Color,
		&i.Benefits,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listPrograms = `-- name: ListPrograms :many
SELECT p.id, p.name, p.description, p.duration_type, p.duration_value, p.is_group, p.color, p.benefits,
       p.created_at, p.updated_at,
       (SELECT count(*) FROM memberships m WHERE m.program_id = p.id AND m.status = 'active') AS active_members
FROM loyalty_programs p
ORDER BY p.created_at DESC
`

type ListProgramsRow struct {
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
	ActiveMembers int64       `json:"active_members"`
}

func (q *Queries) ListPrograms(ctx context.Context) ([]ListProgramsRow, error) {
	rows, err := q.db.Query(ctx, listPrograms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListProgramsRow{}
	for rows.Next() {
		var i ListProgramsRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.DurationType,
			&i.DurationValue,
			&i.IsGroup,
			&i.Color,
			&i.Benefits,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.ActiveMembers,
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

const getProgram = `-- name: GetProgram :one
SELECT ` + programColumns + ` FROM loyalty_programs
WHERE id = $1
`

func (q *Queries) GetProgram(ctx context.Context, id uuid.UUID) (LoyaltyProgram, error) {
	return scanProgram(q.db.QueryRow(ctx, getProgram, id))
}

const createProgram = `-- name: CreateProgram :one
INSERT INTO loyalty_programs (name, description, duration_type, duration_value, is_group, color, benefits)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + programColumns

type CreateProgramParams struct {
	Name          string      `json:"name"`
	Description   pgtype.Text `json:"description"`
	DurationType  string      `json:"duration_type"`
	DurationValue int32       `json:"duration_value"`
	IsGroup       bool        `json:"is_group"`
	Color         pgtype.Text `json:"color"`
	Benefits      []byte      `json:"benefits"`
}

func (q *Queries) CreateProgram(ctx context.Context, arg CreateProgramParams) (LoyaltyProgram, error) {
	return scanProgram(q.db.QueryRow(ctx, createProgram,
		arg.Name,
		arg.Description,
		arg.DurationType,
		arg.DurationValue,
		arg.IsGroup,
		arg.Color,
		arg.Benefits,
	))
}

const updateProgram = `-- name: UpdateProgram :one
UPDATE loyalty_programs
SET name = $2, description = $3, duration_type = $4, duration_value = $5, is_group = $6, color = $7,
    benefits = $8, updated_at = now()
WHERE id = $1
RETURNING ` + programColumns

type UpdateProgramParams struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Description   pgtype.Text `json:"description"`
	DurationType  string      `json:"duration_type"`
	DurationValue int32       `json:"duration_value"`
	IsGroup       bool        `json:"is_group"`
	Color         pgtype.Text `json:"color"`
	Benefits      []byte      `json:"benefits"`
}

func (q *Queries) UpdateProgram(ctx context.Context, arg UpdateProgramParams) (LoyaltyProgram, error) {
	return scanProgram(q.db.QueryRow(ctx, updateProgram,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.DurationType,
		arg.DurationValue,
		arg.IsGroup,
		arg.Color,
		arg.Benefits,
	))
}

const deleteProgram = `-- name: DeleteProgram :one
DELETE FROM loyalty_programs
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteProgram(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteProgram, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}
