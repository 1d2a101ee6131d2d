package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmeza44/team-vault-sub000/internal/api/middleware"
	"github.com/jmeza44/team-vault-sub000/internal/api/response"
	"github.com/jmeza44/team-vault-sub000/internal/vault"
)

// LinkHandler handles one-time link redemption. The route is public: the
// token itself is the bearer credential.
type LinkHandler struct {
	svc *vault.Service
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(svc *vault.Service) *LinkHandler {
	return &LinkHandler{svc: svc}
}

// Redeem handles POST /links/{token}/redeem. A token can be redeemed once;
// expired, used, and unknown tokens are indistinguishable to the caller.
func (h *LinkHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	token := chi.URLParam(r, "token")

	view, err := h.svc.RedeemOneTimeLink(r.Context(), token)
	if err != nil {
		if errors.Is(err, vault.ErrLinkNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Link not found", requestID)
			return
		}
		slog.Error("failed to redeem one-time link", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to redeem link", requestID)
		return
	}

	response.Success(w, http.StatusOK, credentialViewResponse{
		credentialResponse: toCredentialResponse(view.Credential),
		Secret:             view.Secret,
		Permissions: permissionsResponse{
			CanView: view.Permissions.CanView,
		},
	}, requestID)
}
