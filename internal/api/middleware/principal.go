package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmeza44/team-vault-sub000/internal/api/response"
	"github.com/jmeza44/team-vault-sub000/internal/user"
)

const principalKey contextKey = "principal"

// Principal is middleware that resolves the authenticated user. Session and
// token verification happen upstream at the auth proxy, which forwards the
// verified user id in X-User-ID; this middleware loads the user row and
// rejects unknown or deactivated users.
func Principal(users user.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			raw := r.Header.Get("X-User-ID")
			if raw == "" {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required", requestID)
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required", requestID)
				return
			}

			u, err := users.GetByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required", requestID)
					return
				}
				slog.Error("failed to load principal", "error", err, "requestId", requestID)
				response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", requestID)
				return
			}

			if !u.IsActive {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Account is disabled", requestID)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), u)))
		})
	}
}

// WithPrincipal returns a context carrying the authenticated user.
func WithPrincipal(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, principalKey, u)
}

// GetPrincipal retrieves the authenticated user from the context, or nil.
func GetPrincipal(ctx context.Context) *user.User {
	if u, ok := ctx.Value(principalKey).(*user.User); ok {
		return u
	}
	return nil
}
