// Package session owns the authenticated session: login and registration
// flows, profile and password updates, logout, and restoring a persisted
// session at startup.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskboard-client/internal/domain"
	"github.com/taskboard-client/internal/infrastructure/rest"
	"github.com/taskboard-client/internal/infrastructure/state"
	"github.com/taskboard-client/internal/pkg/validate"
)

type api interface {
	Post(ctx context.Context, path string, body, out interface{}) error
	Put(ctx context.Context, path string, body, out interface{}) error
}

type stateStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	DeleteAll(keys ...string) error
}

// Manager holds the session value and its loading/error flags. Mutating
// operations never let a remote fault escape unreduced: failures land on the
// error field (and the returned error) and the prior session is kept.
type Manager struct {
	api   api
	state stateStore

	mu      sync.Mutex
	current *domain.Session
	loading bool
	lastErr string
}

type ManagerDeps struct {
	API   api
	State stateStore
}

func NewManager(deps ManagerDeps) *Manager {
	return &Manager{api: deps.API, state: deps.State}
}

// Current returns a copy of the session, or nil when anonymous.
func (m *Manager) Current() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	cp := *m.current
	return &cp
}

// Token returns the current bearer token, or "" when anonymous. Suitable as
// a rest.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err returns the human-readable message of the last failed operation, or
// "" after a success.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Login exchanges credentials for a session. On success the session is
// replaced atomically and persisted; on failure the prior session is left
// untouched.
func (m *Manager) Login(ctx context.Context, req domain.LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		m.setErr(err.Error())
		return err
	}
	m.setLoading(true)
	defer m.setLoading(false)

	var res domain.AuthResponse
	if err := m.api.Post(ctx, "/auth/login", req, &res); err != nil {
		m.setErr(rest.Message(err, "Login failed"))
		return err
	}
	m.adopt(sessionFromAuth(res))
	return nil
}

// Register creates an account and adopts the returned session, with the
// same contract as Login.
func (m *Manager) Register(ctx context.Context, req domain.RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		m.setErr(err.Error())
		return err
	}
	m.setLoading(true)
	defer m.setLoading(false)

	var res domain.AuthResponse
	if err := m.api.Post(ctx, "/auth/register", req, &res); err != nil {
		m.setErr(rest.Message(err, "Registration failed"))
		return err
	}
	m.adopt(sessionFromAuth(res))
	return nil
}

// UpdateProfile replaces the identity and role portion of the session; the
// token is kept as-is.
func (m *Manager) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) error {
	if err := validate.Struct(req); err != nil {
		m.setErr(err.Error())
		return err
	}
	m.setLoading(true)
	defer m.setLoading(false)

	var res domain.ProfileEnvelope
	if err := m.api.Put(ctx, "/users/me", req, &res); err != nil {
		m.setErr(rest.Message(err, "Profile change failed"))
		return err
	}

	m.mu.Lock()
	token := ""
	if m.current != nil {
		token = m.current.Token
	}
	sess := sessionFromUser(res.User, token)
	m.current = &sess
	m.lastErr = ""
	m.mu.Unlock()

	m.persistIdentity(sess)
	return nil
}

// UpdatePassword changes the account password. The session is not mutated
// on success.
func (m *Manager) UpdatePassword(ctx context.Context, req domain.UpdatePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		m.setErr(err.Error())
		return err
	}
	m.setLoading(true)
	defer m.setLoading(false)

	if err := m.api.Put(ctx, "/users/password", req, nil); err != nil {
		m.setErr(rest.Message(err, "Password change failed"))
		return err
	}
	m.setErr("")
	return nil
}

// Logout clears the in-memory session and removes all three persisted keys.
// The upstream client left the user and role blobs behind; clearing them
// together closes that consistency gap.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.current = nil
	m.lastErr = ""
	m.mu.Unlock()

	if err := m.state.DeleteAll(state.SessionKeys...); err != nil {
		slog.Warn("failed to clear persisted session", "err", err)
	}
}

// Restore rebuilds the session from persisted storage at startup. Storage is
// untrusted input: a missing or malformed token, or a user blob that fails
// shape validation, leaves the client anonymous.
func (m *Manager) Restore() {
	token, ok, err := m.state.Get(state.KeyToken)
	if err != nil || !ok || token == "" {
		return
	}
	if !wellFormedToken(token) {
		slog.Warn("persisted token is not a well-formed JWT; ignoring stored session")
		return
	}

	raw, ok, err := m.state.Get(state.KeyUser)
	if err != nil || !ok {
		return
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		slog.Warn("persisted user blob is not valid JSON; ignoring stored session", "err", err)
		return
	}
	if err := validate.Struct(sess); err != nil {
		slog.Warn("persisted user blob failed shape validation; ignoring stored session", "err", err)
		return
	}

	// Empty string is a permitted "no role" value.
	role, _, err := m.state.Get(state.KeyRole)
	if err != nil {
		return
	}

	sess.RoleName = role
	sess.Token = token

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()
}

// TokenExpiresAt reports the exp claim of the current token, when present.
// The token is not verified client-side; the server holds the key.
func (m *Manager) TokenExpiresAt() *time.Time {
	tok := m.Token()
	if tok == "" {
		return nil
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	t := claims.ExpiresAt.Time
	return &t
}

func (m *Manager) adopt(sess domain.Session) {
	m.mu.Lock()
	m.current = &sess
	m.lastErr = ""
	m.mu.Unlock()
	m.persistAll(sess)
}

func (m *Manager) persistAll(sess domain.Session) {
	if err := m.state.Set(state.KeyToken, sess.Token); err != nil {
		slog.Warn("failed to persist token", "err", err)
	}
	m.persistIdentity(sess)
}

func (m *Manager) persistIdentity(sess domain.Session) {
	blob, err := json.Marshal(sess)
	if err != nil {
		slog.Warn("failed to marshal session identity", "err", err)
		return
	}
	if err := m.state.Set(state.KeyUser, string(blob)); err != nil {
		slog.Warn("failed to persist user blob", "err", err)
	}
	if err := m.state.Set(state.KeyRole, sess.RoleName); err != nil {
		slog.Warn("failed to persist role", "err", err)
	}
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	if v {
		m.lastErr = ""
	}
	m.mu.Unlock()
}

func (m *Manager) setErr(msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
}

func sessionFromAuth(res domain.AuthResponse) domain.Session {
	sess := domain.Session{
		UserID: res.ID,
		Name:   res.Name,
		Email:  res.Email,
		Token:  res.Token,
	}
	if res.Role != nil {
		roleID := res.Role.RoleID
		sess.RoleID = &roleID
		sess.RoleName = res.Role.Name
	}
	return sess
}

func sessionFromUser(u domain.User, token string) domain.Session {
	sess := domain.Session{
		UserID: u.UserID,
		Name:   u.Name,
		Email:  u.Email,
		Token:  token,
	}
	if u.Role != nil {
		roleID := u.Role.RoleID
		sess.RoleID = &roleID
		sess.RoleName = u.Role.Name
	}
	return sess
}

// wellFormedToken checks JWT structure without verifying the signature.
func wellFormedToken(token string) bool {
	_, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	return err == nil
}
