package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/membership"
	"github.com/HanzKay/KrasandApps-V1/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// MeStore defines the database methods needed by the self-service endpoints.
// Satisfied by *database.Queries; narrow interface for testability.
type MeStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	ListActiveMembershipsByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.Membership, error)
}

// MeHandler serves the caller's own profile and memberships. Every route
// needs an authenticated caller of any role.
type MeHandler struct {
	store MeStore
	now   func() time.Time
}

func NewMeHandler(store MeStore) *MeHandler {
	return &MeHandler{store: store, now: time.Now}
}

// RegisterRoutes mounts /auth/me and /my/membership on r.
func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(allRoles()...))
		r.Get("/auth/me", h.Me)
		r.Get("/my/membership", h.MyMemberships)
	})
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Role      string    `json:"role"`
	IsMember  bool      `json:"is_member"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     textPtr(u.Phone),
		Role:      u.Role,
		IsMember:  u.IsMember,
		CreatedAt: u.CreatedAt,
	}
}

type membershipResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProgramID     *uuid.UUID      `json:"program_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	ProgramName   string          `json:"program_name"`
	Benefits      json.RawMessage `json:"benefits"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toMembershipResponse(m database.Membership) membershipResponse {
	benefits := json.RawMessage(m.Benefits)
	if len(benefits) == 0 {
		benefits = json.RawMessage("[]")
	}
	return membershipResponse{
		ID:          m.ID,
		ProgramID:   uuidPtr(m.ProgramID),
		CustomerID:  m.CustomerID,
		ProgramName: m.ProgramName,
		Benefits:    benefits,
		StartDate:   m.StartDate,
		EndDate:     timePtr(m.EndDate),
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// Me returns the caller's user record.
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	user, err := h.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeInternalError(w, "get current user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// MyMemberships returns the caller's active memberships, leaving out any
// whose end date has already passed.
func (h *MeHandler) MyMemberships(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	rows, err := h.store.ListActiveMembershipsByCustomer(r.Context(), claims.UserID)
	if err != nil {
		writeInternalError(w, "list my memberships", err)
		return
	}
	writeJSON(w, http.StatusOK, liveMemberships(rows, h.now()))
}

func liveMemberships(rows []database.Membership, now time.Time) []membershipResponse {
	resp := []membershipResponse{}
	for _, m := range rows {
		if membership.IsExpired(timePtr(m.EndDate), now) {
			continue
		}
		resp = append(resp, toMembershipResponse(m))
	}
	return resp
}
