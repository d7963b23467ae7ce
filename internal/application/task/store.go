// Package task mirrors the server's task collection client-side: a cached
// slice plus the CRUD operations that keep it aligned with the API.
package task

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
	tasks   []domain.Task
	loading bool
	lastErr string
}

func NewStore(a api) *Store {
	return &Store{api: a}
}

func (s *Store) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
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

// FetchAll replaces the cached slice with every task visible to the caller.
func (s *Store) FetchAll(ctx context.Context) error {
	return s.fetch(ctx, "/tasks")
}

// FetchMine replaces the cached slice with the tasks assigned to the
// current user.
func (s *Store) FetchMine(ctx context.Context) error {
	return s.fetch(ctx, "/users/tasks/my")
}

func (s *Store) fetch(ctx context.Context, path string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var tasks []domain.Task
	if err := s.api.Get(ctx, path, &tasks); err != nil {
		s.setErr(rest.Message(err, "Failed to fetch tasks"))
		return err
	}
	s.mu.Lock()
	s.tasks = tasks
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// Get fetches one task by id, bypassing the cache.
func (s *Store) Get(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	if err := s.api.Get(ctx, fmt.Sprintf("/tasks/%d", id), &t); err != nil {
		s.setErr(rest.Message(err, "Failed to fetch task"))
		return nil, err
	}
	return &t, nil
}

// Add creates the task and appends the server's echo to the cache.
func (s *Store) Add(ctx context.Context, input domain.TaskInput) (*domain.Task, error) {
	if err := validate.Struct(input); err != nil {
		s.setErr(err.Error())
		return nil, err
	}
	var created domain.Task
	if err := s.api.Post(ctx, "/tasks", input, &created); err != nil {
		s.setErr(rest.Message(err, "Failed to create task"))
		return nil, err
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, created)
	s.lastErr = ""
	s.mu.Unlock()
	return &created, nil
}

// Edit updates the task and swaps the server's echo into the cache in
// place.
func (s *Store) Edit(ctx context.Context, id int64, updates domain.TaskUpdate) (*domain.Task, error) {
	var updated domain.Task
	if err := s.api.Put(ctx, fmt.Sprintf("/tasks/%d", id), updates, &updated); err != nil {
		s.setErr(rest.Message(err, "Failed to update task"))
		return nil, err
	}
	s.mu.Lock()
	for i := range s.tasks {
		if s.tasks[i].TaskID == id {
			s.tasks[i] = updated
			break
		}
	}
	s.lastErr = ""
	s.mu.Unlock()
	return &updated, nil
}

// Remove deletes the task server-side and drops it from the cache.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, fmt.Sprintf("/tasks/%d", id)); err != nil {
		s.setErr(rest.Message(err, "Failed to delete task"))
		return err
	}
	s.mu.Lock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.TaskID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
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
