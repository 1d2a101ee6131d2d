package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmeza44/team-vault-sub000/internal/api/middleware"
	"github.com/jmeza44/team-vault-sub000/internal/api/response"
	"github.com/jmeza44/team-vault-sub000/internal/api/validation"
	"github.com/jmeza44/team-vault-sub000/internal/team"
)

type createTeamRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type teamResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedByID string `json:"createdById"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type membershipResponse struct {
	ID        string `json:"id"`
	TeamID    string `json:"teamId"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func toTeamResponse(t *team.Team) teamResponse {
	return teamResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		CreatedByID: t.CreatedByID.String(),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toMembershipResponse(m *team.Membership) membershipResponse {
	return membershipResponse{
		ID:        m.ID.String(),
		TeamID:    m.TeamID.String(),
		UserID:    m.UserID.String(),
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// TeamHandler handles team and membership endpoints.
type TeamHandler struct {
	repo team.Repository
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(repo team.Repository) *TeamHandler {
	return &TeamHandler{repo: repo}
}

// Create handles POST /teams. The caller becomes the founding ADMIN.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateTeamRequest(validation.CreateTeamRequest{Name: req.Name})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	t := &team.Team{
		Name:        req.Name,
		CreatedByID: principal.ID,
	}

	if err := h.repo.Create(r.Context(), t); err != nil {
		if errors.Is(err, team.ErrDuplicateTeamName) {
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("A team named %q already exists", req.Name), requestID)
			return
		}
		slog.Error("failed to create team", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create team", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toTeamResponse(t), requestID)
}

// Get handles GET /teams/{id}.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	t, err := h.repo.GetByID(r.Context(), teamID)
	if err != nil {
		if errors.Is(err, team.ErrTeamNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
			return
		}
		slog.Error("failed to get team", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get team", requestID)
		return
	}

	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// Delete handles DELETE /teams/{id}. Memberships go with the team; shares
// granted to the team stop resolving once the membership rows are gone.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), teamID); err != nil {
		if errors.Is(err, team.ErrTeamNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
			return
		}
		slog.Error("failed to delete team", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete team", requestID)
		return
	}

	response.NoContent(w)
}

// ListMembers handles GET /teams/{id}/members.
func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	members, err := h.repo.ListMembers(r.Context(), teamID)
	if err != nil {
		slog.Error("failed to list members", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list members", requestID)
		return
	}

	items := make([]membershipResponse, 0, len(members))
	for i := range members {
		items = append(items, toMembershipResponse(&members[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// AddMember handles POST /teams/{id}/members.
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	req, userID, ok := h.decodeMember(w, r, requestID)
	if !ok {
		return
	}

	m := &team.Membership{
		TeamID: teamID,
		UserID: userID,
		Role:   team.MembershipRole(req.Role),
	}

	if err := h.repo.AddMember(r.Context(), m); err != nil {
		switch {
		case errors.Is(err, team.ErrTeamNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
		case errors.Is(err, team.ErrDuplicateMembership):
			response.Err(w, http.StatusConflict, "DUPLICATE_MEMBER", "User is already a member of the team", requestID)
		default:
			slog.Error("failed to add member", "error", err, "requestId", requestID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add member", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toMembershipResponse(m), requestID)
}

// ChangeMemberRole handles PATCH /teams/{id}/members/{userId}. Demoting the
// last remaining admin is refused.
func (h *TeamHandler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "userId must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if fieldErrors := validation.ValidateMembershipRole(req.Role); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	if err := h.repo.ChangeMemberRole(r.Context(), teamID, userID, team.MembershipRole(req.Role)); err != nil {
		h.writeMemberError(w, err, "Failed to change member role", requestID)
		return
	}

	response.NoContent(w)
}

// RemoveMember handles DELETE /teams/{id}/members/{userId}. Removing the
// last remaining admin is refused.
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "userId must be a valid UUID", requestID)
		return
	}

	if err := h.repo.RemoveMember(r.Context(), teamID, userID); err != nil {
		h.writeMemberError(w, err, "Failed to remove member", requestID)
		return
	}

	response.NoContent(w)
}

func (h *TeamHandler) decodeMember(w http.ResponseWriter, r *http.Request, requestID string) (memberRequest, uuid.UUID, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return req, uuid.Nil, false
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "userId must be a valid UUID", requestID)
		return req, uuid.Nil, false
	}

	if req.Role != "" {
		if fieldErrors := validation.ValidateMembershipRole(req.Role); len(fieldErrors) > 0 {
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
			return req, uuid.Nil, false
		}
	}

	return req, userID, true
}

func (h *TeamHandler) writeMemberError(w http.ResponseWriter, err error, fallback, requestID string) {
	switch {
	case errors.Is(err, team.ErrTeamNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
	case errors.Is(err, team.ErrMembershipNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Membership not found", requestID)
	case errors.Is(err, team.ErrLastAdmin):
		response.Err(w, http.StatusConflict, "LAST_ADMIN", "Team must retain at least one admin", requestID)
	default:
		slog.Error("membership operation failed", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, requestID)
	}
}
