package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmeza44/team-vault-sub000/internal/api/middleware"
	"github.com/jmeza44/team-vault-sub000/internal/api/response"
	"github.com/jmeza44/team-vault-sub000/internal/api/validation"
	"github.com/jmeza44/team-vault-sub000/internal/user"
)

type createUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// UserHandler handles user administration endpoints. Every route requires the
// GLOBAL_ADMIN role; ordinary users never manage accounts.
type UserHandler struct {
	repo user.Repository
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(repo user.Repository) *UserHandler {
	return &UserHandler{repo: repo}
}

// Create handles POST /users. Role defaults to USER; new accounts start active.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if !h.requireGlobalAdmin(w, r, requestID) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateUserRequest(validation.CreateUserRequest{
		Email: req.Email,
		Role:  req.Role,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	u := &user.User{
		Email: req.Email,
		Role:  user.Role(req.Role),
	}

	if err := h.repo.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			response.Err(w, http.StatusConflict, "DUPLICATE_EMAIL", "Email is already registered", requestID)
			return
		}
		slog.Error("failed to create user", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toUserResponse(u), requestID)
}

// GetByEmail handles GET /users?email=.
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if !h.requireGlobalAdmin(w, r, requestID) {
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "email query parameter is required", requestID)
		return
	}

	u, err := h.repo.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
			return
		}
		slog.Error("failed to look up user", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to look up user", requestID)
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// SetRole handles PATCH /users/{id}/role.
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if !h.requireGlobalAdmin(w, r, requestID) {
		return
	}

	id, ok := h.parseUserID(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if fieldErrors := validation.ValidateUserRole(req.Role); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	if err := h.repo.SetRole(r.Context(), id, user.Role(req.Role)); err != nil {
		h.writeUserError(w, err, "Failed to change user role", requestID)
		return
	}

	response.NoContent(w)
}

// SetActive handles PATCH /users/{id}/active. Accounts are soft-disabled,
// never deleted.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if !h.requireGlobalAdmin(w, r, requestID) {
		return
	}

	id, ok := h.parseUserID(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if err := h.repo.SetActive(r.Context(), id, req.Active); err != nil {
		h.writeUserError(w, err, "Failed to change user status", requestID)
		return
	}

	response.NoContent(w)
}

func (h *UserHandler) requireGlobalAdmin(w http.ResponseWriter, r *http.Request, requestID string) bool {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil || !principal.IsGlobalAdmin() {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Global admin role required", requestID)
		return false
	}
	return true
}

func (h *UserHandler) parseUserID(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) writeUserError(w http.ResponseWriter, err error, fallback, requestID string) {
	if errors.Is(err, user.ErrUserNotFound) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
		return
	}
	slog.Error("user operation failed", "error", err, "requestId", requestID)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, requestID)
}
