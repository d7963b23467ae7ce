package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard-client/internal/domain"
	"github.com/taskboard-client/internal/infrastructure/rest"
	"github.com/taskboard-client/internal/infrastructure/state"
)

func testToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

// testEnv wires a manager against a fake API and a temp state store, the
// same way the composition root does.
type testEnv struct {
	manager *Manager
	client  *rest.Client
	store   *state.Store
	authHdr *string // last Authorization header seen by the fake API
}

func newTestEnv(t *testing.T, register func(r chi.Router, env *testEnv)) *testEnv {
	t.Helper()
	env := &testEnv{authHdr: new(string)}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			*env.authHdr = req.Header.Get("Authorization")
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api", func(api chi.Router) {
		register(api, env)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	env.store = store

	env.client = rest.NewClient(rest.ClientDeps{
		BaseURL: srv.URL,
		Token: func() string {
			if env.manager == nil {
				return ""
			}
			return env.manager.Token()
		},
		Timeout:        5 * time.Second,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
	env.manager = NewManager(ManagerDeps{API: env.client, State: store})
	return env
}

func loginRoute(t *testing.T, token string) func(chi.Router, *testEnv) {
	return func(api chi.Router, env *testEnv) {
		api.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			var in domain.LoginRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
			if in.Password != "hunter22" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message":"invalid credentials"}`))
				return
			}
			json.NewEncoder(w).Encode(domain.AuthResponse{
				ID:    7,
				Name:  "Ada",
				Email: in.Email,
				Role:  &domain.Role{RoleID: 2, Name: "manager"},
				Token: token,
			})
		})
		api.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`{}`))
		})
	}
}

func TestLogin_Success(t *testing.T) {
	token := testToken(t)
	env := newTestEnv(t, loginRoute(t, token))
	m := env.manager

	require.NoError(t, m.Login(context.Background(), domain.LoginRequest{
		Email: "ada@example.com", Password: "hunter22",
	}))

	require.True(t, m.Authenticated())
	assert.Empty(t, m.Err())
	assert.False(t, m.Loading())

	sess := m.Current()
	require.NotNil(t, sess)
	assert.Equal(t, int64(7), sess.UserID)
	assert.Equal(t, "Ada", sess.Name)
	assert.Equal(t, "manager", sess.RoleName)
	require.NotNil(t, sess.RoleID)
	assert.Equal(t, int64(2), *sess.RoleID)
	assert.Equal(t, token, sess.Token)

	// All three keys persisted.
	for _, key := range state.SessionKeys {
		_, ok, err := env.store.Get(key)
		require.NoError(t, err)
		assert.True(t, ok, "key %q should be persisted", key)
	}

	// Every subsequent request carries the bearer token.
	require.NoError(t, env.client.Get(context.Background(), "/ping", nil))
	assert.Equal(t, "Bearer "+token, *env.authHdr)
}

func TestLogin_FailureKeepsPriorSessionAndRecordsMessage(t *testing.T) {
	env := newTestEnv(t, loginRoute(t, testToken(t)))
	m := env.manager

	err := m.Login(context.Background(), domain.LoginRequest{
		Email: "ada@example.com", Password: "wrong-password",
	})
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", m.Err())
	assert.False(t, m.Authenticated())
	assert.Nil(t, m.Current())
}

func TestLogin_ValidationFailureNeverHitsTheWire(t *testing.T) {
	hits := 0
	env := newTestEnv(t, func(api chi.Router, _ *testEnv) {
		api.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			hits++
		})
	})
	err := env.manager.Login(context.Background(), domain.LoginRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.NotEmpty(t, env.manager.Err())
	assert.Zero(t, hits, "invalid payloads must not reach the API")
}

func TestLogout_ClearsMemoryAndAllPersistedKeys(t *testing.T) {
	env := newTestEnv(t, loginRoute(t, testToken(t)))
	m := env.manager

	require.NoError(t, m.Login(context.Background(), domain.LoginRequest{
		Email: "ada@example.com", Password: "hunter22",
	}))
	require.True(t, m.Authenticated())

	m.Logout()

	assert.False(t, m.Authenticated())
	assert.Nil(t, m.Current())
	for _, key := range state.SessionKeys {
		_, ok, err := env.store.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, "key %q should be removed on logout", key)
	}

	// No Authorization header after logout.
	require.NoError(t, env.client.Get(context.Background(), "/ping", nil))
	assert.Empty(t, *env.authHdr)
}

func TestRestore_RoundTrip(t *testing.T) {
	token := testToken(t)
	env := newTestEnv(t, loginRoute(t, token))

	require.NoError(t, env.manager.Login(context.Background(), domain.LoginRequest{
		Email: "ada@example.com", Password: "hunter22",
	}))
	before := env.manager.Current()

	// Simulate a process restart: a fresh manager over the same storage.
	restarted := NewManager(ManagerDeps{API: env.client, State: env.store})
	restarted.Restore()

	after := restarted.Current()
	require.NotNil(t, after)
	assert.Equal(t, before.UserID, after.UserID)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.Email, after.Email)
	assert.Equal(t, before.RoleName, after.RoleName)
	require.NotNil(t, after.RoleID)
	assert.Equal(t, *before.RoleID, *after.RoleID)
	assert.Equal(t, token, after.Token)
}

func TestRestore_TamperedStorageLeavesAnonymous(t *testing.T) {
	token := testToken(t)

	tests := []struct {
		name  string
		setup func(s *state.Store)
	}{
		{"no token", func(s *state.Store) {
			s.Set(state.KeyUser, `{"id":7,"email":"a@b.c"}`)
		}},
		{"token not a jwt", func(s *state.Store) {
			s.Set(state.KeyToken, "garbage")
			s.Set(state.KeyUser, `{"id":7,"email":"a@b.c"}`)
		}},
		{"user blob not json", func(s *state.Store) {
			s.Set(state.KeyToken, token)
			s.Set(state.KeyUser, "{{nope")
		}},
		{"user blob wrong shape", func(s *state.Store) {
			s.Set(state.KeyToken, token)
			s.Set(state.KeyUser, `{"id":0,"email":"not-an-email"}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := state.NewStore(t.TempDir())
			require.NoError(t, err)
			tt.setup(store)

			m := NewManager(ManagerDeps{API: nil, State: store})
			m.Restore()
			assert.False(t, m.Authenticated())
			assert.Nil(t, m.Current())
		})
	}
}

func TestRestore_EmptyRoleIsNoRole(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	token := testToken(t)
	require.NoError(t, store.Set(state.KeyToken, token))
	require.NoError(t, store.Set(state.KeyUser, `{"id":7,"email":"ada@example.com"}`))
	require.NoError(t, store.Set(state.KeyRole, ""))

	m := NewManager(ManagerDeps{API: nil, State: store})
	m.Restore()
	require.True(t, m.Authenticated())
	assert.Empty(t, m.Current().RoleName)
}

func TestUpdateProfile_KeepsTokenReplacesIdentity(t *testing.T) {
	token := testToken(t)
	env := newTestEnv(t, func(api chi.Router, _ *testEnv) {
		loginRoute(t, token)(api, nil)
		api.Put("/users/me", func(w http.ResponseWriter, req *http.Request) {
			json.NewEncoder(w).Encode(domain.ProfileEnvelope{User: domain.User{
				UserID: 7,
				Name:   "Ada Lovelace",
				Email:  "ada@newmail.com",
				Role:   &domain.Role{RoleID: 1, Name: "admin"},
			}})
		})
	})
	m := env.manager

	require.NoError(t, m.Login(context.Background(), domain.LoginRequest{
		Email: "ada@example.com", Password: "hunter22",
	}))

	newName := "Ada Lovelace"
	require.NoError(t, m.UpdateProfile(context.Background(), domain.UpdateProfileRequest{Name: &newName}))

	sess := m.Current()
	assert.Equal(t, "Ada Lovelace", sess.Name)
	assert.Equal(t, "ada@newmail.com", sess.Email)
	assert.Equal(t, "admin", sess.RoleName)
	require.NotNil(t, sess.RoleID)
	assert.Equal(t, int64(1), *sess.RoleID)
	assert.Equal(t, token, sess.Token, "token must survive a profile update")

	// Role id and name were re-persisted together.
	roleRaw, ok, err := env.store.Get(state.KeyRole)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin", roleRaw)
}

func TestUpdatePassword_DoesNotMutateSession(t *testing.T) {
	token := testToken(t)
	calls := 0
	env := newTestEnv(t, func(api chi.Router, _ *testEnv) {
		loginRoute(t, token)(api, nil)
		api.Put("/users/password", func(w http.ResponseWriter, req *http.Request) {
			calls++
			if calls == 1 {
				w.Write([]byte(`{"message":"ok"}`))
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"current password incorrect"}`))
		})
	})
	m := env.manager

	require.NoError(t, m.Login(context.Background(), domain.LoginRequest{
		Email: "ada@example.com", Password: "hunter22",
	}))
	before := m.Current()

	req := domain.UpdatePasswordRequest{CurrentPassword: "hunter22", NewPassword: "longer-password"}
	require.NoError(t, m.UpdatePassword(context.Background(), req))
	assert.Equal(t, before, m.Current())

	err := m.UpdatePassword(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "current password incorrect", m.Err())
	assert.Equal(t, before, m.Current(), "failed password change leaves the session alone")
}

func TestRegister_Success(t *testing.T) {
	token := testToken(t)
	env := newTestEnv(t, func(api chi.Router, _ *testEnv) {
		api.Post("/auth/register", func(w http.ResponseWriter, req *http.Request) {
			var in domain.RegisterRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
			json.NewEncoder(w).Encode(domain.AuthResponse{
				ID: 11, Name: in.Name, Email: in.Email, Token: token,
			})
		})
	})
	m := env.manager

	require.NoError(t, m.Register(context.Background(), domain.RegisterRequest{
		Name: "Grace", Email: "grace@example.com", Password: "longer-password",
	}))
	require.True(t, m.Authenticated())
	sess := m.Current()
	assert.Equal(t, int64(11), sess.UserID)
	assert.Nil(t, sess.RoleID, "registration without a role leaves both role fields empty")
	assert.Empty(t, sess.RoleName)
}

func TestTokenExpiresAt(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set(state.KeyToken, testToken(t)))
	require.NoError(t, store.Set(state.KeyUser, `{"id":7,"email":"ada@example.com"}`))

	m := NewManager(ManagerDeps{API: nil, State: store})
	m.Restore()
	exp := m.TokenExpiresAt()
	require.NotNil(t, exp)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *exp, time.Minute)
}
