package database

import (
	"context"

	"github.com/google/uuid"
)

const tableColumns = `id, table_number, capacity, status, qr_code, qr_image, created_at, updated_at`

func scanTable(row interface{ Scan(...interface{}) error }) (DiningTable, error) {
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.TableNumber,
		&i.Capacity,
		&i.Status,
		&i.QrCode,
		&i.QrImage,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listTables = `-- name: ListTables :many
SELECT ` + tableColumns + ` FROM dining_tables
ORDER BY table_number
`

func (q *Queries) ListTables(ctx context.Context) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DiningTable{}
	for rows.Next() {
		i, err := scanTable(rows)
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

const getTable = `-- name: GetTable :one
SELECT ` + tableColumns + ` FROM dining_tables
WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, id))
}

const getTableByQRCode = `-- name: GetTableByQRCode :one
SELECT ` + tableColumns + ` FROM dining_tables
WHERE qr_code = $1
`

func (q *Queries) GetTableByQRCode(ctx context.Context, qrCode string) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, getTableByQRCode, qrCode))
}

const createTable = `-- name: CreateTable :one
INSERT INTO dining_tables (table_number, capacity, qr_code, qr_image)
VALUES ($1, $2, $3, $4)
RETURNING ` + tableColumns

type CreateTableParams struct {
	TableNumber int32  `json:"table_number"`
	Capacity    int32  `json:"capacity"`
	QrCode      string `json:"qr_code"`
	QrImage     string `json:"qr_image"`
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, createTable, arg.TableNumber, arg.Capacity, arg.QrCode, arg.QrImage))
}

const updateTableCapacity = `-- name: UpdateTableCapacity :one
UPDATE dining_tables
SET capacity = $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns

type UpdateTableCapacityParams struct {
	ID       uuid.UUID `json:"id"`
	Capacity int32     `json:"capacity"`
}

func (q *Queries) UpdateTableCapacity(ctx context.Context, arg UpdateTableCapacityParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, updateTableCapacity, arg.ID, arg.Capacity))
}

const updateTableStatus = `-- name: UpdateTableStatus :one
UPDATE dining_tables
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + tableColumns

type UpdateTableStatusParams struct {
	ID       uuid.UUID `json:"id"`
	Status   string    `json:"status"`
	Status_2 string    `json:"status_2"`
}

// UpdateTableStatus only applies when the table is still in Status_2.
func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, updateTableStatus, arg.ID, arg.Status, arg.Status_2))
}

const deleteTable = `-- name: DeleteTable :one
DELETE FROM dining_tables
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	err := q.db.QueryRow(ctx, deleteTable, id).Scan(&id)
	return id, err
}
