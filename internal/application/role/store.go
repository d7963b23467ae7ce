// Package role is the client-side cache of the server's role collection.
package role

import (
	"context"
	"fmt"
	"sync"

	"github.com/taskboard-client/internal/domain"
	"github.com/taskboard-client/internal/infrastructure/rest"
	"github.com/taskboard-client/internal/pkg/validate"
)

type api interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Put(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string) error
}

type Store struct {
	api api

	mu      sync.Mutex
	roles   []domain.Role
	loading bool
	lastErr string
}

func NewStore(a api) *Store {
	return &Store{api: a}
}

func (s *Store) Roles() []domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Role, len(s.roles))
	copy(out, s.roles)
	return out
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) FetchAll(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var roles []domain.Role
	if err := s.api.Get(ctx, "/roles", &roles); err != nil {
		s.setErr(rest.Message(err, "Failed to fetch roles"))
		return err
	}
	s.mu.Lock()
	s.roles = roles
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.Role, error) {
	var r domain.Role
	if err := s.api.Get(ctx, fmt.Sprintf("/roles/%d", id), &r); err != nil {
		s.setErr(rest.Message(err, "Failed to fetch role"))
		return nil, err
	}
	return &r, nil
}

func (s *Store) Add(ctx context.Context, input domain.RoleInput) (*domain.Role, error) {
	if err := validate.Struct(input); err != nil {
		s.setErr(err.Error())
		return nil, err
	}
	var created domain.Role
	if err := s.api.Post(ctx, "/roles", input, &created); err != nil {
		s.setErr(rest.Message(err, "Failed to create role"))
		return nil, err
	}
	s.mu.Lock()
	s.roles = append(s.roles, created)
	s.lastErr = ""
	s.mu.Unlock()
	return &created, nil
}

func (s *Store) Edit(ctx context.Context, id int64, input domain.RoleInput) (*domain.Role, error) {
	if err := validate.Struct(input); err != nil {
		s.setErr(err.Error())
		return nil, err
	}
	var updated domain.Role
	if err := s.api.Put(ctx, fmt.Sprintf("/roles/%d", id), input, &updated); err != nil {
		s.setErr(rest.Message(err, "Failed to update role"))
		return nil, err
	}
	s.mu.Lock()
	for i := range s.roles {
		if s.roles[i].RoleID == id {
			s.roles[i] = updated
			break
		}
	}
	s.lastErr = ""
	s.mu.Unlock()
	return &updated, nil
}

func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, fmt.Sprintf("/roles/%d", id)); err != nil {
		s.setErr(rest.Message(err, "Failed to delete role"))
		return err
	}
	s.mu.Lock()
	kept := s.roles[:0]
	for _, r := range s.roles {
		if r.RoleID != id {
			kept = append(kept, r)
		}
	}
	s.roles = kept
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	if v {
		s.lastErr = ""
	}
	s.mu.Unlock()
}

func (s *Store) setErr(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}
