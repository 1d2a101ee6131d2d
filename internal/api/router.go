package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jmeza44/team-vault-sub000/internal/api/handler"
	"github.com/jmeza44/team-vault-sub000/internal/api/middleware"
	"github.com/jmeza44/team-vault-sub000/internal/team"
	"github.com/jmeza44/team-vault-sub000/internal/user"
	"github.com/jmeza44/team-vault-sub000/internal/vault"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger handler.DBPinger
	Users    user.Repository
	Teams    team.Repository
	Vault    *vault.Service
	Version  string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	// Link redemption is public: the token is the credential.
	linkHandler := handler.NewLinkHandler(deps.Vault)
	r.Post("/links/{token}/redeem", linkHandler.Redeem)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Principal(deps.Users))

		credentialHandler := handler.NewCredentialHandler(deps.Vault)
		r.Route("/credentials", func(r chi.Router) {
			r.Post("/", credentialHandler.Create)
			r.Get("/", credentialHandler.List)
			r.Get("/{id}", credentialHandler.Get)
			r.Patch("/{id}", credentialHandler.Update)
			r.Delete("/{id}", credentialHandler.Delete)
			r.Put("/{id}/shares", credentialHandler.Share)
			r.Delete("/{id}/shares/{shareId}", credentialHandler.Unshare)
			r.Post("/{id}/links", credentialHandler.CreateLink)
			r.Get("/{id}/audit", credentialHandler.AuditTrail)
		})

		teamHandler := handler.NewTeamHandler(deps.Teams)
		r.Route("/teams", func(r chi.Router) {
			r.Post("/", teamHandler.Create)
			r.Get("/{id}", teamHandler.Get)
			r.Delete("/{id}", teamHandler.Delete)
			r.Get("/{id}/members", teamHandler.ListMembers)
			r.Post("/{id}/members", teamHandler.AddMember)
			r.Patch("/{id}/members/{userId}", teamHandler.ChangeMemberRole)
			r.Delete("/{id}/members/{userId}", teamHandler.RemoveMember)
		})

		userHandler := handler.NewUserHandler(deps.Users)
		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Create)
			r.Get("/", userHandler.GetByEmail)
			r.Patch("/{id}/role", userHandler.SetRole)
			r.Patch("/{id}/active", userHandler.SetActive)
		})
	})

	return r
}
