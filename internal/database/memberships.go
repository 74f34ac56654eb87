package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const membershipColumns = `id, program_id, customer_id, program_name, benefits, start_date, end_date, status, created_at, updated_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (Membership, error) {
	var i Membership
	err := row.Scan(
		&i.ID,
		&i.ProgramID,
		&i.CustomerID,
		&i.ProgramName,
		&i.Benefits,
		&i.StartDate,
		&i.EndDate,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectMemberships(rows pgx.Rows) ([]Membership, error) {
	defer rows.Close()
	items := []Membership{}
	for rows.Next() {
		i, err := scanMembership(rows)
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

const createMembership = `-- name: CreateMembership :one
INSERT INTO memberships (program_id, customer_id, program_name, benefits, start_date, end_date)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (customer_id, program_id) WHERE status = 'active' DO NOTHING
RETURNING ` + membershipColumns

type CreateMembershipParams struct {
	ProgramID   pgtype.UUID        `json:"program_id"`
	CustomerID  uuid.UUID          `json:"customer_id"`
	ProgramName string             `json:"program_name"`
	Benefits    []byte             `json:"benefits"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     pgtype.Timestamptz `json:"end_date"`
}

// CreateMembership returns pgx.ErrNoRows when the customer already holds an
// active membership in the program.
func (q *Queries) CreateMembership(ctx context.Context, arg CreateMembershipParams) (Membership, error) {
	return scanMembership(q.db.QueryRow(ctx, createMembership,
		arg.ProgramID,
		arg.CustomerID,
		arg.ProgramName,
		arg.Benefits,
		arg.StartDate,
		arg.EndDate,
	))
}

const getMembership = `-- name: GetMembership :one
SELECT ` + membershipColumns + ` FROM memberships
WHERE id = $1
`

func (q *Queries) GetMembership(ctx context.Context, id uuid.UUID) (Membership, error) {
	return scanMembership(q.db.QueryRow(ctx, getMembership, id))
}

const listMemberships = `-- name: ListMemberships :many
SELECT m.id, m.program_id, m.customer_id, m.program_name, m.benefits, m.start_date, m.end_date, m.status,
       m.created_at, m.updated_at, u.name AS customer_name, u.email AS customer_email
FROM memberships m
JOIN users u ON u.id = m.customer_id
WHERE ($1::text IS NULL OR m.status = $1)
ORDER BY m.created_at DESC
`

type ListMembershipsRow struct {
	ID            uuid.UUID          `json:"id"`
	ProgramID     pgtype.UUID        `json:"program_id"`
	CustomerID    uuid.UUID          `json:"customer_id"`
	ProgramName   string             `json:"program_name"`
	Benefits      []byte             `json:"benefits"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       pgtype.Timestamptz `json:"end_date"`
	Status        string             `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
}

func (q *Queries) ListMemberships(ctx context.Context, status pgtype.Text) ([]ListMembershipsRow, error) {
	rows, err := q.db.Query(ctx, listMemberships, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListMembershipsRow{}
	for rows.Next() {
		var i ListMembershipsRow
		if err := rows.Scan(
			&i.ID,
			&i.ProgramID,
			&i.CustomerID,
			&i.ProgramName,
			&i.Benefits,
			&i.StartDate,
			&i.EndDate,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.CustomerName,
			&i.CustomerEmail,
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

const listMembershipsByProgram = `-- name: ListMembershipsByProgram :many
SELECT ` + membershipColumns + ` FROM memberships
WHERE program_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListMembershipsByProgram(ctx context.Context, programID uuid.UUID) ([]Membership, error) {
	rows, err := q.db.Query(ctx, listMembershipsByProgram, programID)
	if err != nil {
		return nil, err
	}
	return collectMemberships(rows)
}

const listMembershipsByCustomer = `-- name: ListMembershipsByCustomer :many
SELECT ` + membershipColumns + ` FROM memberships
WHERE customer_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListMembershipsByCustomer(ctx context.Context, customerID uuid.UUID) ([]Membership, error) {
	rows, err := q.db.Query(ctx, listMembershipsByCustomer, customerID)
	if err != nil {
		return nil, err
	}
	return collectMemberships(rows)
}

const listActiveMembershipsByCustomer = `-- name: ListActiveMembershipsByCustomer :many
SELECT ` + membershipColumns + ` FROM memberships
WHERE customer_id = $1 AND status = 'active'
ORDER BY created_at
`

func (q *Queries) ListActiveMembershipsByCustomer(ctx context.Context, customerID uuid.UUID) ([]Membership, error) {
	rows, err := q.db.Query(ctx, listActiveMembershipsByCustomer, customerID)
	if err != nil {
		return nil, err
	}
	return collectMemberships(rows)
}

const cancelMembership = `-- name: CancelMembership :one
UPDATE memberships
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND status = 'active'
RETURNING ` + membershipColumns

func (q *Queries) CancelMembership(ctx context.Context, id uuid.UUID) (Membership, error) {
	return scanMembership(q.db.QueryRow(ctx, cancelMembership, id))
}

const cancelMembershipsByProgram = `-- name: CancelMembershipsByProgram :many
UPDATE memberships
SET status = 'cancelled', updated_at = now()
WHERE program_id = $1 AND status = 'active'
RETURNING ` + membershipColumns

func (q *Queries) CancelMembershipsByProgram(ctx context.Context, programID uuid.UUID) ([]Membership, error) {
	rows, err := q.db.Query(ctx, cancelMembershipsByProgram, programID)
	if err != nil {
		return nil, err
	}
	return collectMemberships(rows)
}

const expireMemberships = `-- name: ExpireMemberships :many
UPDATE memberships
SET status = 'expired', updated_at = now()
WHERE status = 'active' AND end_date IS NOT NULL AND end_date < $1
RETURNING ` + membershipColumns

func (q *Queries) ExpireMemberships(ctx context.Context, now time.Time) ([]Membership, error) {
	rows, err := q.db.Query(ctx, expireMemberships, now)
	if err != nil {
		return nil, err
	}
	return collectMemberships(rows)
}

const expireMembershipsByIDs = `-- name: ExpireMembershipsByIDs :exec
UPDATE memberships
SET status = 'expired', updated_at = now()
WHERE id = ANY($1::uuid[]) AND status = 'active'
`

func (q *Queries) ExpireMembershipsByIDs(ctx context.Context, ids []uuid.UUID) error {
	_, err := q.db.Exec(ctx, expireMembershipsByIDs, ids)
	return err
}

const syncProgramToMemberships = `-- name: SyncProgramToMemberships :exec
UPDATE memberships
SET program_name = $2, benefits = $3, updated_at = now()
WHERE program_id = $1 AND status = 'active'
`

type SyncProgramToMembershipsParams struct {
	ProgramID   pgtype.UUID `json:"program_id"`
	ProgramName string      `json:"program_name"`
	Benefits    []byte      `json:"benefits"`
}

// SyncProgramToMemberships refreshes the snapshot carried by active memberships.
func (q *Queries) SyncProgramToMemberships(ctx context.Context, arg SyncProgramToMembershipsParams) error {
	_, err := q.db.Exec(ctx, syncProgramToMemberships, arg.ProgramID, arg.ProgramName, arg.Benefits)
	return err
}

const countActiveMembershipsByCustomer = `-- name: CountActiveMembershipsByCustomer :one
SELECT count(*) FROM memberships
WHERE customer_id = $1 AND status = 'active'
`

func (q *Queries) CountActiveMembershipsByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countActiveMembershipsByCustomer, customerID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
