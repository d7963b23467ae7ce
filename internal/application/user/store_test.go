package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard-client/internal/domain"
	"github.com/taskboard-client/internal/infrastructure/rest"
)

func newTestStore(t *testing.T, register func(api chi.Router)) *Store {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) { register(api) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return NewStore(rest.NewClient(rest.ClientDeps{
		BaseURL:        srv.URL,
		Timeout:        5 * time.Second,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}))
}

func TestFetchEditRemove(t *testing.T) {
	s := newTestStore(t, func(api chi.Router) {
		api.Get("/users", func(w http.ResponseWriter, req *http.Request) {
			json.NewEncoder(w).Encode([]domain.User{
				{UserID: 1, Name: "Ada", Email: "ada@example.com", Role: &domain.Role{RoleID: 1, Name: "admin"}},
				{UserID: 2, Name: "Grace", Email: "grace@example.com"},
			})
		})
		api.Put("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
			json.NewEncoder(w).Encode(domain.User{
				UserID: 2, Name: "Grace", Email: "grace@example.com",
				Role: &domain.Role{RoleID: 2, Name: "manager"},
			})
		})
		api.Delete("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	ctx := context.Background()

	require.NoError(t, s.FetchAll(ctx))
	require.Len(t, s.Users(), 2)

	roleID := int64(2)
	updated, err := s.Edit(ctx, 2, domain.UpdateUserRequest{RoleID: &roleID})
	require.NoError(t, err)
	require.NotNil(t, updated.Role)
	assert.Equal(t, "manager", updated.Role.Name)
	assert.Equal(t, "manager", s.Users()[1].Role.Name)

	require.NoError(t, s.Remove(ctx, 1))
	users := s.Users()
	require.Len(t, users, 1)
	assert.Equal(t, int64(2), users[0].UserID)
}

func TestEdit_RejectsBadEmailLocally(t *testing.T) {
	hits := 0
	s := newTestStore(t, func(api chi.Router) {
		api.Put("/users/{id}", func(w http.ResponseWriter, req *http.Request) { hits++ })
	})
	bad := "not-an-email"
	_, err := s.Edit(context.Background(), 1, domain.UpdateUserRequest{Email: &bad})
	require.Error(t, err)
	assert.Zero(t, hits)
	assert.NotEmpty(t, s.Err())
}
