package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmeza44/team-vault-sub000/internal/api/handler"
	"github.com/jmeza44/team-vault-sub000/internal/api/middleware"
	"github.com/jmeza44/team-vault-sub000/internal/user"
)

// userRepoMock implements user.Repository with function fields.
type userRepoMock struct {
	create     func(ctx context.Context, u *user.User) error
	getByEmail func(ctx context.Context, email string) (*user.User, error)
	setActive  func(ctx context.Context, id uuid.UUID, active bool) error
	setRole    func(ctx context.Context, id uuid.UUID, role user.Role) error
}

func (m *userRepoMock) Create(ctx context.Context, u *user.User) error { return m.create(ctx, u) }
func (m *userRepoMock) GetByID(context.Context, uuid.UUID) (*user.User, error) {
	return nil, user.ErrUserNotFound
}
func (m *userRepoMock) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.getByEmail(ctx, email)
}
func (m *userRepoMock) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return m.setActive(ctx, id, active)
}
func (m *userRepoMock) SetRole(ctx context.Context, id uuid.UUID, role user.Role) error {
	return m.setRole(ctx, id, role)
}

func newUserRouter(repo user.Repository, principal *user.User) http.Handler {
	h := handler.NewUserHandler(repo)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithPrincipal(req.Context(), principal)))
		})
	})
	r.Post("/users", h.Create)
	r.Get("/users", h.GetByEmail)
	r.Patch("/users/{id}/role", h.SetRole)
	r.Patch("/users/{id}/active", h.SetActive)
	return r
}

func globalAdmin() *user.User {
	return &user.User{ID: uuid.New(), Email: "admin@example.com", Role: user.RoleGlobalAdmin, IsActive: true}
}

func TestUserCreate(t *testing.T) {
	repo := &userRepoMock{
		create: func(_ context.Context, u *user.User) error {
			require.Equal(t, "new@example.com", u.Email)
			require.Equal(t, user.RoleUser, u.Role)
			u.ID = uuid.New()
			u.IsActive = true
			return nil
		},
	}
	router := newUserRouter(repo, globalAdmin())

	body := `{"email":"new@example.com","role":"USER"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUserCreate_NonAdminForbidden(t *testing.T) {
	router := newUserRouter(&userRepoMock{}, activeUser())

	body := `{"email":"new@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	repo := &userRepoMock{
		create: func(context.Context, *user.User) error { return user.ErrDuplicateEmail },
	}
	router := newUserRouter(repo, globalAdmin())

	body := `{"email":"taken@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_EMAIL", env.Error.Code)
}

func TestUserCreate_InvalidEmail(t *testing.T) {
	router := newUserRouter(&userRepoMock{}, globalAdmin())

	body := `{"email":"not-an-address"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserGetByEmail(t *testing.T) {
	found := &user.User{ID: uuid.New(), Email: "u@example.com", Role: user.RoleUser, IsActive: true}
	repo := &userRepoMock{
		getByEmail: func(_ context.Context, email string) (*user.User, error) {
			require.Equal(t, "u@example.com", email)
			return found, nil
		},
	}
	router := newUserRouter(repo, globalAdmin())

	req := httptest.NewRequest(http.MethodGet, "/users?email=u@example.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u@example.com", data["email"])
}

func TestUserGetByEmail_MissingParam(t *testing.T) {
	router := newUserRouter(&userRepoMock{}, globalAdmin())

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserGetByEmail_Unknown(t *testing.T) {
	repo := &userRepoMock{
		getByEmail: func(context.Context, string) (*user.User, error) {
			return nil, user.ErrUserNotFound
		},
	}
	router := newUserRouter(repo, globalAdmin())

	req := httptest.NewRequest(http.MethodGet, "/users?email=ghost@example.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserSetRole(t *testing.T) {
	target := uuid.New()
	repo := &userRepoMock{
		setRole: func(_ context.Context, id uuid.UUID, role user.Role) error {
			require.Equal(t, target, id)
			require.Equal(t, user.RoleTeamAdmin, role)
			return nil
		},
	}
	router := newUserRouter(repo, globalAdmin())

	req := httptest.NewRequest(http.MethodPatch, "/users/"+target.String()+"/role", strings.NewReader(`{"role":"TEAM_ADMIN"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUserSetRole_BadRole(t *testing.T) {
	router := newUserRouter(&userRepoMock{}, globalAdmin())

	req := httptest.NewRequest(http.MethodPatch, "/users/"+uuid.NewString()+"/role", strings.NewReader(`{"role":"SUPERUSER"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserSetActive_Deactivate(t *testing.T) {
	target := uuid.New()
	repo := &userRepoMock{
		setActive: func(_ context.Context, id uuid.UUID, active bool) error {
			require.Equal(t, target, id)
			require.False(t, active)
			return nil
		},
	}
	router := newUserRouter(repo, globalAdmin())

	req := httptest.NewRequest(http.MethodPatch, "/users/"+target.String()+"/active", strings.NewReader(`{"active":false}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUserSetActive_UnknownUser(t *testing.T) {
	repo := &userRepoMock{
		setActive: func(context.Context, uuid.UUID, bool) error { return user.ErrUserNotFound },
	}
	router := newUserRouter(repo, globalAdmin())

	req := httptest.NewRequest(http.MethodPatch, "/users/"+uuid.NewString()+"/active", strings.NewReader(`{"active":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
