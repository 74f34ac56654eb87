package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/membership"
	"github.com/HanzKay/KrasandApps-V1/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// MembershipServicer defines the service methods needed by loyalty handlers.
// Satisfied by *service.MembershipService; narrow interface for testability.
type MembershipServicer interface {
	CreateProgram(ctx context.Context, in service.ProgramInput) (database.LoyaltyProgram, error)
	UpdateProgram(ctx context.Context, id uuid.UUID, in service.ProgramInput) (database.LoyaltyProgram, error)
	DeleteProgram(ctx context.Context, id uuid.UUID) (int, error)
	Assign(ctx context.Context, programID uuid.UUID, customerIDs []uuid.UUID) (*service.AssignResult, error)
	Cancel(ctx context.Context, id uuid.UUID) (database.Membership, error)
}

// MembershipStore defines the database reads needed by loyalty handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MembershipStore interface {
	ListPrograms(ctx context.Context) ([]database.ListProgramsRow, error)
	GetProgram(ctx context.Context, id uuid.UUID) (database.LoyaltyProgram, error)
	ListMemberships(ctx context.Context, status pgtype.Text) ([]database.ListMembershipsRow, error)
	ListMembershipsByProgram(ctx context.Context, programID uuid.UUID) ([]database.Membership, error)
	ListActiveMembershipsByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.Membership, error)
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]database.User, error)
}

// MembershipHandler handles loyalty programs and customer memberships.
type MembershipHandler struct {
	svc   MembershipServicer
	store MembershipStore
}

func NewMembershipHandler(svc MembershipServicer, store MembershipStore) *MembershipHandler {
	return &MembershipHandler{svc: svc, store: store}
}

// RegisterRoutes registers loyalty endpoints.
// Expected to be mounted inside the admin-only subrouter: /admin
func (h *MembershipHandler) RegisterRoutes(r chi.Router) {
	r.Route("/programs", func(r chi.Router) {
		r.Get("/", h.ListPrograms)
		r.Post("/", h.CreateProgram)
		r.Get("/{id}", h.GetProgram)
		r.Put("/{id}", h.UpdateProgram)
		r.Delete("/{id}", h.DeleteProgram)
	})
	r.Route("/memberships", func(r chi.Router) {
		r.Get("/", h.ListMemberships)
		r.Post("/", h.Assign)
		r.Delete("/{id}", h.Cancel)
	})
	r.Get("/customers/{id}/membership", h.CustomerMemberships)
}

// --- Request / Response types ---

type programRequest struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	DurationType  string               `json:"duration_type"`
	DurationValue int                  `json:"duration_value"`
	IsGroup       bool                 `json:"is_group"`
	Color         string               `json:"color"`
	Benefits      []membership.Benefit `json:"benefits"`
}

func (req programRequest) input() service.ProgramInput {
	return service.ProgramInput{
		Name:          req.Name,
		Description:   req.Description,
		DurationType:  req.DurationType,
		DurationValue: req.DurationValue,
		IsGroup:       req.IsGroup,
		Color:         req.Color,
		Benefits:      req.Benefits,
	}
}

type assignRequest struct {
	ProgramID   string   `json:"program_id"`
	CustomerIDs []string `json:"customer_ids"`
}

type programResponse struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	Description   *string              `json:"description"`
	DurationType  string               `json:"duration_type"`
	DurationValue int32                `json:"duration_value"`
	IsGroup       bool                 `json:"is_group"`
	Color         *string              `json:"color"`
	Benefits      json.RawMessage      `json:"benefits"`
	ActiveMembers *int64               `json:"active_members,omitempty"`
	Members       []membershipResponse `json:"members,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type assignResponse struct {
	Message     string                    `json:"message"`
	Memberships []membershipResponse      `json:"memberships"`
	Skipped     []service.SkippedCustomer `json:"skipped"`
}

func toProgramResponse(p database.LoyaltyProgram) programResponse {
	return programResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   textPtr(p.Description),
		DurationType:  p.DurationType,
		DurationValue: p.DurationValue,
		IsGroup:       p.IsGroup,
		Color:         textPtr(p.Color),
		Benefits:      benefitsJSON(p.Benefits),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func benefitsJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("[]")
	}
	return json.RawMessage(b)
}

func membershipErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrProgramNameRequired),
		errors.Is(err, service.ErrNoCustomers),
		errors.Is(err, membership.ErrInvalidDuration),
		errors.Is(err, membership.ErrInvalidBenefit):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProgramNotFound),
		errors.Is(err, service.ErrMembershipNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMembershipNotActive):
		return http.StatusConflict
	}
	return 0
}

func writeMembershipError(w http.ResponseWriter, op string, err error) {
	if status := membershipErrorStatus(err); status != 0 {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeInternalError(w, op, err)
}

// enrich attaches customer names and emails to memberships.
func (h *MembershipHandler) enrich(ctx context.Context, ms []database.Membership) ([]membershipResponse, error) {
	ids := make([]uuid.UUID, len(ms))
	for i, m := range ms {
		ids[i] = m.CustomerID
	}
	byID := map[uuid.UUID]database.User{}
	if len(ids) > 0 {
		users, err := h.store.ListUsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			byID[u.ID] = u
		}
	}
	resp := make([]membershipResponse, len(ms))
	for i, m := range ms {
		resp[i] = toMembershipResponse(m)
		if u, ok := byID[m.CustomerID]; ok {
			resp[i].CustomerName = u.Name
			resp[i].CustomerEmail = u.Email
		}
	}
	return resp, nil
}

// --- Program handlers ---

// ListPrograms returns every program with its active member count.
func (h *MembershipHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListPrograms(r.Context())
	if err != nil {
		writeInternalError(w, "list programs", err)
		return
	}
	resp := make([]programResponse, len(rows))
	for i, p := range rows {
		resp[i] = toProgramResponse(database.LoyaltyProgram{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			DurationType:  p.DurationType,
			DurationValue: p.DurationValue,
			IsGroup:       p.IsGroup,
			Color:         p.Color,
			Benefits:      p.Benefits,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
		count := p.ActiveMembers
		resp[i].ActiveMembers = &count
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProgram returns a program with its active members.
func (h *MembershipHandler) GetProgram(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid program ID"})
		return
	}

	program, err := h.store.GetProgram(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "program not found"})
			return
		}
		writeInternalError(w, "get program", err)
		return
	}

	all, err := h.store.ListMembershipsByProgram(r.Context(), id)
	if err != nil {
		writeInternalError(w, "list program members", err)
		return
	}
	active := make([]database.Membership, 0, len(all))
	for _, m := range all {
		if m.Status == enum.MembershipStatusActive {
			active = append(active, m)
		}
	}
	members, err := h.enrich(r.Context(), active)
	if err != nil {
		writeInternalError(w, "enrich program members", err)
		return
	}

	resp := toProgramResponse(program)
	resp.Members = members
	count := int64(len(members))
	resp.ActiveMembers = &count
	writeJSON(w, http.StatusOK, resp)
}

func (h *MembershipHandler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	program, err := h.svc.CreateProgram(r.Context(), req.input())
	if err != nil {
		writeMembershipError(w, "create program", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProgramResponse(program))
}

// UpdateProgram replaces a program; active memberships pick up the new name
// and benefits.
func (h *MembershipHandler) UpdateProgram(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid program ID"})
		return
	}

	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	program, err := h.svc.UpdateProgram(r.Context(), id, req.input())
	if err != nil {
		writeMembershipError(w, "update program", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgramResponse(program))
}

// DeleteProgram removes a program after cancelling its memberships.
func (h *MembershipHandler) DeleteProgram(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid program ID"})
		return
	}

	cancelled, err := h.svc.DeleteProgram(r.Context(), id)
	if err != nil {
		writeMembershipError(w, "delete program", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":               "program deleted",
		"cancelled_memberships": cancelled,
	})
}

// --- Membership handlers ---

// ListMemberships returns memberships with customer details, optionally
// filtered by ?status=.
func (h *MembershipHandler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !enum.IsMembershipStatus(status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	rows, err := h.store.ListMemberships(r.Context(), optionalText(status))
	if err != nil {
		writeInternalError(w, "list memberships", err)
		return
	}
	resp := make([]membershipResponse, len(rows))
	for i, m := range rows {
		resp[i] = toMembershipResponse(database.Membership{
			ID:          m.ID,
			ProgramID:   m.ProgramID,
			CustomerID:  m.CustomerID,
			ProgramName: m.ProgramName,
			Benefits:    m.Benefits,
			StartDate:   m.StartDate,
			EndDate:     m.EndDate,
			Status:      m.Status,
			CreatedAt:   m.CreatedAt,
			UpdatedAt:   m.UpdatedAt,
		})
		resp[i].CustomerName = m.CustomerName
		resp[i].CustomerEmail = m.CustomerEmail
	}
	writeJSON(w, http.StatusOK, resp)
}

// Assign gives a program to one or more customers. Customers that cannot
// receive it are reported under skipped.
func (h *MembershipHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	programID, err := uuid.Parse(req.ProgramID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid program_id"})
		return
	}
	customerIDs := make([]uuid.UUID, len(req.CustomerIDs))
	for i, s := range req.CustomerIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid customer_ids[%d]", i)})
			return
		}
		customerIDs[i] = id
	}

	result, err := h.svc.Assign(r.Context(), programID, customerIDs)
	if err != nil {
		writeMembershipError(w, "assign membership", err)
		return
	}

	memberships, err := h.enrich(r.Context(), result.Assigned)
	if err != nil {
		writeInternalError(w, "enrich memberships", err)
		return
	}
	writeJSON(w, http.StatusCreated, assignResponse{
		Message:     fmt.Sprintf("Membership assigned to %d customer(s)", len(result.Assigned)),
		Memberships: memberships,
		Skipped:     result.Skipped,
	})
}

// Cancel ends an active membership.
func (h *MembershipHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid membership ID"})
		return
	}

	m, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		writeMembershipError(w, "cancel membership", err)
		return
	}
	writeJSON(w, http.StatusOK, toMembershipResponse(m))
}

// CustomerMemberships returns a customer's active memberships.
func (h *MembershipHandler) CustomerMemberships(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	rows, err := h.store.ListActiveMembershipsByCustomer(r.Context(), id)
	if err != nil {
		writeInternalError(w, "list customer memberships", err)
		return
	}
	resp := make([]membershipResponse, len(rows))
	for i, m := range rows {
		resp[i] = toMembershipResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}
