package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/membership"
	"github.com/HanzKay/KrasandApps-V1/internal/metrics"
	"github.com/HanzKay/KrasandApps-V1/internal/tracing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// Errors returned by the membership service.
var (
	ErrProgramNameRequired = errors.New("name is required")
	ErrProgramNotFound     = errors.New("program not found")
	ErrNoCustomers         = errors.New("customer_ids are required")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrMembershipNotActive = errors.New("membership is not active")
)

// Reasons a customer is skipped during batch assignment.
const (
	SkipNotFound        = "user not found"
	SkipNotCustomer     = "user is not a customer"
	SkipAlreadyAssigned = "already has an active membership in this program"
)

// MembershipStore defines the DB methods needed by the membership service.
// Satisfied by *database.Queries (and its WithTx variant).
type MembershipStore interface {
	GetProgram(ctx context.Context, id uuid.UUID) (database.LoyaltyProgram, error)
	CreateProgram(ctx context.Context, arg database.CreateProgramParams) (database.LoyaltyProgram, error)
	UpdateProgram(ctx context.Context, arg database.UpdateProgramParams) (database.LoyaltyProgram, error)
	DeleteProgram(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	SyncProgramToMemberships(ctx context.Context, arg database.SyncProgramToMembershipsParams) error
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]database.User, error)
	SetUserMember(ctx context.Context, arg database.SetUserMemberParams) error
	CreateMembership(ctx context.Context, arg database.CreateMembershipParams) (database.Membership, error)
	GetMembership(ctx context.Context, id uuid.UUID) (database.Membership, error)
	CancelMembership(ctx context.Context, id uuid.UUID) (database.Membership, error)
	CancelMembershipsByProgram(ctx context.Context, programID uuid.UUID) ([]database.Membership, error)
	ExpireMemberships(ctx context.Context, now time.Time) ([]database.Membership, error)
	CountActiveMembershipsByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
}

// NewMembershipStore creates a MembershipStore from a DBTX (pool or tx).
type NewMembershipStore func(db database.DBTX) MembershipStore

// ProgramInput is the validated body of a program create or update.
type ProgramInput struct {
	Name          string
	Description   string
	DurationType  string
	DurationValue int
	IsGroup       bool
	Color         string
	Benefits      []membership.Benefit
}

func (in ProgramInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrProgramNameRequired
	}
	if err := membership.ValidateDuration(in.DurationType, in.DurationValue); err != nil {
		return err
	}
	return membership.ValidateBenefits(in.Benefits)
}

func (in ProgramInput) benefitsJSON() ([]byte, error) {
	benefits := in.Benefits
	if benefits == nil {
		benefits = []membership.Benefit{}
	}
	return json.Marshal(benefits)
}

// SkippedCustomer is a customer left out of a batch assignment.
type SkippedCustomer struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
}

// AssignResult reports the outcome of a batch assignment.
type AssignResult struct {
	Assigned []database.Membership
	Skipped  []SkippedCustomer
}

// MembershipService handles loyalty program and membership business logic.
type MembershipService struct {
	pool     DB
	newStore NewMembershipStore
	now      func() time.Time
}

func NewMembershipService(pool DB, newStore NewMembershipStore) *MembershipService {
	return &MembershipService{pool: pool, newStore: newStore, now: time.Now}
}

func (s *MembershipService) CreateProgram(ctx context.Context, in ProgramInput) (database.LoyaltyProgram, error) {
	if err := in.validate(); err != nil {
		return database.LoyaltyProgram{}, err
	}
	benefits, err := in.benefitsJSON()
	if err != nil {
		return database.LoyaltyProgram{}, fmt.Errorf("encode benefits: %w", err)
	}
	return s.newStore(s.pool).CreateProgram(ctx, database.CreateProgramParams{
		Name:          strings.TrimSpace(in.Name),
		Description:   optionalText(in.Description),
		DurationType:  in.DurationType,
		DurationValue: int32(in.DurationValue),
		IsGroup:       in.IsGroup,
		Color:         optionalText(in.Color),
		Benefits:      benefits,
	})
}

// UpdateProgram saves the program and refreshes the name and benefit snapshot
// held by its active memberships.
func (s *MembershipService) UpdateProgram(ctx context.Context, id uuid.UUID, in ProgramInput) (database.LoyaltyProgram, error) {
	if err := in.validate(); err != nil {
		return database.LoyaltyProgram{}, err
	}
	benefits, err := in.benefitsJSON()
	if err != nil {
		return database.LoyaltyProgram{}, fmt.Errorf("encode benefits: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.LoyaltyProgram{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	program, err := store.UpdateProgram(ctx, database.UpdateProgramParams{
		ID:            id,
		Name:          strings.TrimSpace(in.Name),
		Description:   optionalText(in.Description),
		DurationType:  in.DurationType,
		DurationValue: int32(in.DurationValue),
		IsGroup:       in.IsGroup,
		Color:         optionalText(in.Color),
		Benefits:      benefits,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.LoyaltyProgram{}, ErrProgramNotFound
		}
		return database.LoyaltyProgram{}, fmt.Errorf("update program: %w", err)
	}

	if err := store.SyncProgramToMemberships(ctx, database.SyncProgramToMembershipsParams{
		ProgramID:   pgtype.UUID{Bytes: id, Valid: true},
		ProgramName: program.Name,
		Benefits:    program.Benefits,
	}); err != nil {
		return database.LoyaltyProgram{}, fmt.Errorf("sync memberships: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.LoyaltyProgram{}, fmt.Errorf("commit tx: %w", err)
	}
	return program, nil
}

// DeleteProgram cancels the program's active memberships and then removes
// it. It returns how many memberships were cancelled.
func (s *MembershipService) DeleteProgram(ctx context.Context, id uuid.UUID) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	cancelled, err := store.CancelMembershipsByProgram(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("cancel memberships: %w", err)
	}
	if _, err := store.DeleteProgram(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProgramNotFound
		}
		return 0, fmt.Errorf("delete program: %w", err)
	}
	if err := refreshMemberFlags(ctx, store, customersOf(cancelled)); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(cancelled), nil
}

// Assign gives the program to each listed customer in one transaction.
// Unknown users, non-customers and customers already holding an active
// membership in the program are skipped, not failed.
func (s *MembershipService) Assign(ctx context.Context, programID uuid.UUID, customerIDs []uuid.UUID) (*AssignResult, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipService.Assign")
	defer span.End()

	ids := dedupe(customerIDs)
	if len(ids) == 0 {
		return nil, ErrNoCustomers
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	program, err := store.GetProgram(ctx, programID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, fmt.Errorf("get program: %w", err)
	}

	start := s.now()
	end, err := membership.EndDate(start, program.DurationType, int(program.DurationValue))
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", program.ID, err)
	}

	// A lapsed membership still marked active would block the insert below.
	expired, err := store.ExpireMemberships(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("expire memberships: %w", err)
	}
	if err := refreshMemberFlags(ctx, store, customersOf(expired)); err != nil {
		return nil, err
	}

	users, err := store.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	byID := make(map[uuid.UUID]database.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	result := &AssignResult{Assigned: []database.Membership{}, Skipped: []SkippedCustomer{}}
	for _, id := range ids {
		u, ok := byID[id]
		switch {
		case !ok:
			result.Skipped = append(result.Skipped, SkippedCustomer{CustomerID: id, Reason: SkipNotFound})
			continue
		case u.Role != enum.RoleCustomer:
			result.Skipped = append(result.Skipped, SkippedCustomer{CustomerID: id, Reason: SkipNotCustomer})
			continue
		}

		m, err := store.CreateMembership(ctx, database.CreateMembershipParams{
			ProgramID:   pgtype.UUID{Bytes: program.ID, Valid: true},
			CustomerID:  id,
			ProgramName: program.Name,
			Benefits:    program.Benefits,
			StartDate:   start,
			EndDate:     timestamptz(end),
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				result.Skipped = append(result.Skipped, SkippedCustomer{CustomerID: id, Reason: SkipAlreadyAssigned})
				continue
			}
			return nil, fmt.Errorf("create membership: %w", err)
		}
		if err := store.SetUserMember(ctx, database.SetUserMemberParams{ID: id, IsMember: true}); err != nil {
			return nil, fmt.Errorf("flag member: %w", err)
		}
		result.Assigned = append(result.Assigned, m)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.MembershipsAssignedTotal.Add(float64(len(result.Assigned)))
	if len(expired) > 0 {
		metrics.MembershipsExpiredTotal.Add(float64(len(expired)))
	}
	return result, nil
}

// Cancel ends an active membership. Cancellation is terminal.
func (s *MembershipService) Cancel(ctx context.Context, id uuid.UUID) (database.Membership, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Membership{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	m, err := store.CancelMembership(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Membership{}, fmt.Errorf("cancel membership: %w", err)
		}
		if _, err := store.GetMembership(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Membership{}, ErrMembershipNotFound
			}
			return database.Membership{}, fmt.Errorf("get membership: %w", err)
		}
		return database.Membership{}, ErrMembershipNotActive
	}
	if err := refreshMemberFlags(ctx, store, []uuid.UUID{m.CustomerID}); err != nil {
		return database.Membership{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Membership{}, fmt.Errorf("commit tx: %w", err)
	}
	return m, nil
}

// ExpireDue moves every active membership whose end date is before now to
// expired and returns how many changed.
func (s *MembershipService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	expired, err := store.ExpireMemberships(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire memberships: %w", err)
	}
	if err := refreshMemberFlags(ctx, store, customersOf(expired)); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	if len(expired) > 0 {
		metrics.MembershipsExpiredTotal.Add(float64(len(expired)))
		zap.L().Info("memberships expired", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

// refreshMemberFlags recomputes users.is_member for the given customers.
func refreshMemberFlags(ctx context.Context, store MembershipStore, customerIDs []uuid.UUID) error {
	for _, id := range customerIDs {
		n, err := store.CountActiveMembershipsByCustomer(ctx, id)
		if err != nil {
			return fmt.Errorf("count memberships: %w", err)
		}
		if err := store.SetUserMember(ctx, database.SetUserMemberParams{ID: id, IsMember: n > 0}); err != nil {
			return fmt.Errorf("flag member: %w", err)
		}
	}
	return nil
}

func customersOf(ms []database.Membership) []uuid.UUID {
	ids := make([]uuid.UUID, len(ms))
	for i, m := range ms {
		ids[i] = m.CustomerID
	}
	return dedupe(ids)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
