// Package user is the client-side cache of the user directory, used by the
// admin and manager views.
package user

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
	Put(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string) error
}

type Store struct {
	api api

	mu      sync.Mutex
	users   []domain.User
	loading bool
	lastErr string
}

func NewStore(a api) *Store {
	return &Store{api: a}
}

func (s *Store) Users() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, len(s.users))
	copy(out, s.users)
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

	var users []domain.User
	if err := s.api.Get(ctx, "/users", &users); err != nil {
		s.setErr(rest.Message(err, "Failed to fetch users"))
		return err
	}
	s.mu.Lock()
	s.users = users
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := s.api.Get(ctx, fmt.Sprintf("/users/%d", id), &u); err != nil {
		s.setErr(rest.Message(err, "Failed to fetch user"))
		return nil, err
	}
	return &u, nil
}

func (s *Store) Edit(ctx context.Context, id int64, updates domain.UpdateUserRequest) (*domain.User, error) {
	if err := validate.Struct(updates); err != nil {
		s.setErr(err.Error())
		return nil, err
	}
	var updated domain.User
	if err := s.api.Put(ctx, fmt.Sprintf("/users/%d", id), updates, &updated); err != nil {
		s.setErr(rest.Message(err, "Failed to update user"))
		return nil, err
	}
	s.mu.Lock()
	for i := range s.users {
		if s.users[i].UserID == id {
			s.users[i] = updated
			break
		}
	}
	s.lastErr = ""
	s.mu.Unlock()
	return &updated, nil
}

func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, fmt.Sprintf("/users/%d", id)); err != nil {
		s.setErr(rest.Message(err, "Failed to delete user"))
		return err
	}
	s.mu.Lock()
	kept := s.users[:0]
	for _, u := range s.users {
		if u.UserID != id {
			kept = append(kept, u)
		}
	}
	s.users = kept
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
