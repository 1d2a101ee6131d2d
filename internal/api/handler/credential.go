package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmeza44/team-vault-sub000/internal/api/middleware"
	"github.com/jmeza44/team-vault-sub000/internal/api/response"
	"github.com/jmeza44/team-vault-sub000/internal/api/validation"
	"github.com/jmeza44/team-vault-sub000/internal/vault"
)

const maxBodyBytes = 1 << 20

type createCredentialRequest struct {
	Name           string     `json:"name"`
	Secret         string     `json:"secret"`
	Username       *string    `json:"username"`
	Description    *string    `json:"description"`
	Category       *string    `json:"category"`
	URL            *string    `json:"url"`
	Tags           []string   `json:"tags"`
	RiskLevel      string     `json:"riskLevel"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

type updateCredentialRequest struct {
	Name           *string    `json:"name"`
	Secret         *string    `json:"secret"`
	Username       *string    `json:"username"`
	Description    *string    `json:"description"`
	Category       *string    `json:"category"`
	URL            *string    `json:"url"`
	Tags           []string   `json:"tags"`
	RiskLevel      *string    `json:"riskLevel"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

type shareTargetRequest struct {
	UserID      string     `json:"userId"`
	TeamID      string     `json:"teamId"`
	AccessLevel string     `json:"accessLevel"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type shareCredentialRequest struct {
	Targets []shareTargetRequest `json:"targets"`
}

type credentialResponse struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"ownerId"`
	Name           string     `json:"name"`
	Username       *string    `json:"username,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Category       *string    `json:"category,omitempty"`
	URL            *string    `json:"url,omitempty"`
	Tags           []string   `json:"tags"`
	RiskLevel      string     `json:"riskLevel"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	LastRotated    *time.Time `json:"lastRotated,omitempty"`
	CreatedAt      string     `json:"createdAt"`
	UpdatedAt      string     `json:"updatedAt"`
}

type credentialViewResponse struct {
	credentialResponse
	Secret      string              `json:"secret"`
	Permissions permissionsResponse `json:"permissions"`
}

type permissionsResponse struct {
	CanView   bool `json:"canView"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
	CanShare  bool `json:"canShare"`
}

type shareResponse struct {
	ID           string     `json:"id"`
	CredentialID string     `json:"credentialId"`
	UserID       *string    `json:"userId,omitempty"`
	TeamID       *string    `json:"teamId,omitempty"`
	AccessLevel  string     `json:"accessLevel"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

type auditEntryResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

type oneTimeLinkResponse struct {
	ID           string `json:"id"`
	CredentialID string `json:"credentialId"`
	Token        string `json:"token"`
	AccessLevel  string `json:"accessLevel"`
	ExpiresAt    string `json:"expiresAt"`
}

func toCredentialResponse(c *vault.Credential) credentialResponse {
	return credentialResponse{
		ID:             c.ID.String(),
		OwnerID:        c.OwnerID.String(),
		Name:           c.Name,
		Username:       c.Username,
		Description:    c.Description,
		Category:       c.Category,
		URL:            c.URL,
		Tags:           c.Tags,
		RiskLevel:      string(c.RiskLevel),
		ExpirationDate: c.ExpirationDate,
		LastRotated:    c.LastRotated,
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toShareResponse(s *vault.SharedCredential) shareResponse {
	resp := shareResponse{
		ID:           s.ID.String(),
		CredentialID: s.CredentialID.String(),
		AccessLevel:  string(s.AccessLevel),
		ExpiresAt:    s.ExpiresAt,
	}
	if s.SharedWithUserID != nil {
		id := s.SharedWithUserID.String()
		resp.UserID = &id
	}
	if s.SharedWithTeamID != nil {
		id := s.SharedWithTeamID.String()
		resp.TeamID = &id
	}
	return resp
}

// CredentialHandler handles credential endpoints.
type CredentialHandler struct {
	svc *vault.Service
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(svc *vault.Service) *CredentialHandler {
	return &CredentialHandler{svc: svc}
}

// Create handles POST /credentials.
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateCredentialRequest(validation.CreateCredentialRequest{
		Name:      req.Name,
		Secret:    req.Secret,
		RiskLevel: req.RiskLevel,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	c, err := h.svc.Create(r.Context(), principal, vault.CreateFields{
		Name:           req.Name,
		Secret:         req.Secret,
		Username:       req.Username,
		Description:    req.Description,
		Category:       req.Category,
		URL:            req.URL,
		Tags:           req.Tags,
		RiskLevel:      vault.RiskLevel(req.RiskLevel),
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		slog.Error("failed to create credential", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create credential", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toCredentialResponse(c), requestID)
}

// List handles GET /credentials.
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	credentials, err := h.svc.List(r.Context(), principal)
	if err != nil {
		slog.Error("failed to list credentials", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list credentials", requestID)
		return
	}

	items := make([]credentialResponse, 0, len(credentials))
	for i := range credentials {
		items = append(items, toCredentialResponse(&credentials[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Get handles GET /credentials/{id}. The decrypted secret is included.
func (h *CredentialHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	view, err := h.svc.Get(r.Context(), principal, id)
	if err != nil {
		h.writeError(w, err, "Failed to read credential", requestID)
		return
	}

	response.Success(w, http.StatusOK, credentialViewResponse{
		credentialResponse: toCredentialResponse(view.Credential),
		Secret:             view.Secret,
		Permissions: permissionsResponse{
			CanView:   view.Permissions.CanView,
			CanEdit:   view.Permissions.CanEdit,
			CanDelete: view.Permissions.CanDelete,
			CanShare:  view.Permissions.CanShare,
		},
	}, requestID)
}

// Update handles PATCH /credentials/{id}.
func (h *CredentialHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req updateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if req.RiskLevel != nil {
		if errs := validation.ValidateCreateCredentialRequest(validation.CreateCredentialRequest{
			Name: "-", Secret: "-", RiskLevel: *req.RiskLevel,
		}); len(errs) > 0 {
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", errs, requestID)
			return
		}
	}

	var riskLevel *vault.RiskLevel
	if req.RiskLevel != nil {
		rl := vault.RiskLevel(*req.RiskLevel)
		riskLevel = &rl
	}

	c, err := h.svc.Update(r.Context(), principal, id, vault.UpdateFields{
		Name:           req.Name,
		Secret:         req.Secret,
		Username:       req.Username,
		Description:    req.Description,
		Category:       req.Category,
		URL:            req.URL,
		Tags:           req.Tags,
		RiskLevel:      riskLevel,
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		h.writeError(w, err, "Failed to update credential", requestID)
		return
	}

	response.Success(w, http.StatusOK, toCredentialResponse(c), requestID)
}

// Delete handles DELETE /credentials/{id}.
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), principal, id); err != nil {
		h.writeError(w, err, "Failed to delete credential", requestID)
		return
	}

	response.NoContent(w)
}

// Share handles PUT /credentials/{id}/shares. The supplied target list
// replaces the current share set.
func (h *CredentialHandler) Share(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req shareCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	targetReqs := make([]validation.ShareTargetRequest, 0, len(req.Targets))
	for _, t := range req.Targets {
		targetReqs = append(targetReqs, validation.ShareTargetRequest{
			UserID:      t.UserID,
			TeamID:      t.TeamID,
			AccessLevel: t.AccessLevel,
		})
	}
	if fieldErrors := validation.ValidateShareRequest(targetReqs); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	targets := make([]vault.ShareTarget, 0, len(req.Targets))
	for _, t := range req.Targets {
		target := vault.ShareTarget{
			AccessLevel: vault.AccessLevel(t.AccessLevel),
			ExpiresAt:   t.ExpiresAt,
		}
		if t.UserID != "" {
			uid, err := uuid.Parse(t.UserID)
			if err != nil {
				response.Err(w, http.StatusBadRequest, "INVALID_ID", "userId must be a valid UUID", requestID)
				return
			}
			target.UserID = &uid
		}
		if t.TeamID != "" {
			tid, err := uuid.Parse(t.TeamID)
			if err != nil {
				response.Err(w, http.StatusBadRequest, "INVALID_ID", "teamId must be a valid UUID", requestID)
				return
			}
			target.TeamID = &tid
		}
		targets = append(targets, target)
	}

	shares, err := h.svc.Share(r.Context(), principal, id, targets)
	if err != nil {
		h.writeError(w, err, "Failed to share credential", requestID)
		return
	}

	items := make([]shareResponse, 0, len(shares))
	for i := range shares {
		items = append(items, toShareResponse(&shares[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Unshare handles DELETE /credentials/{id}/shares/{shareId}.
func (h *CredentialHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	shareID, err := uuid.Parse(chi.URLParam(r, "shareId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "shareId must be a valid UUID", requestID)
		return
	}

	if err := h.svc.Unshare(r.Context(), principal, id, shareID); err != nil {
		h.writeError(w, err, "Failed to unshare credential", requestID)
		return
	}

	response.NoContent(w)
}

// CreateLink handles POST /credentials/{id}/links.
func (h *CredentialHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	link, err := h.svc.CreateOneTimeLink(r.Context(), principal, id)
	if err != nil {
		h.writeError(w, err, "Failed to create one-time link", requestID)
		return
	}

	response.Success(w, http.StatusCreated, oneTimeLinkResponse{
		ID:           link.ID.String(),
		CredentialID: link.CredentialID.String(),
		Token:        link.Token,
		AccessLevel:  string(link.AccessLevel),
		ExpiresAt:    link.ExpiresAt.UTC().Format(time.RFC3339),
	}, requestID)
}

// AuditTrail handles GET /credentials/{id}/audit. Entries come back newest
// first; an optional limit query parameter caps the page size.
func (h *CredentialHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.svc.AuditTrail(r.Context(), principal, id, limit)
	if err != nil {
		h.writeError(w, err, "Failed to read audit trail", requestID)
		return
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, auditEntryResponse{
			ID:        e.ID.String(),
			UserID:    e.UserID.String(),
			Action:    string(e.Action),
			Details:   e.Details,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// writeError maps vault sentinel errors to API responses.
func (h *CredentialHandler) writeError(w http.ResponseWriter, err error, fallback, requestID string) {
	switch {
	case errors.Is(err, vault.ErrCredentialNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Credential not found", requestID)
	case errors.Is(err, vault.ErrShareNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Share not found", requestID)
	case errors.Is(err, vault.ErrAccessDenied):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
	case errors.Is(err, vault.ErrInvalidShareTarget):
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "Share target must name exactly one of userId and teamId", requestID)
	case errors.Is(err, vault.ErrDuplicateShare):
		response.Err(w, http.StatusConflict, "DUPLICATE_SHARE", "Duplicate share target", requestID)
	default:
		slog.Error("credential operation failed", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, requestID)
	}
}

func parseID(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return uuid.Nil, false
	}
	return id, true
}
