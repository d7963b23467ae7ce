// Package state persists the client session across process restarts as
// three independent keys in a per-user directory, mirroring the original
// key/value storage layout.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Storage keys for the persisted session.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyRole  = "role"
)

// SessionKeys lists every key the session occupies, for atomic clears.
var SessionKeys = []string{KeyToken, KeyUser, KeyRole}

// Store is a file-per-key store rooted at a single directory.
type Store struct {
	dir string
}

// NewStore creates the store directory if needed. An empty dir selects
// ~/.taskboard.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user home directory: %w", err)
		}
		dir = filepath.Join(home, ".taskboard")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read state key %q: %w", key, err)
	}
	return string(raw), true, nil
}

func (s *Store) Set(key, value string) error {
	if err := os.WriteFile(s.path(key), []byte(value), 0o600); err != nil {
		return fmt.Errorf("write state key %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. A missing key is not an error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete state key %q: %w", key, err)
	}
	return nil
}

// DeleteAll removes every named key, continuing past individual failures.
func (s *Store) DeleteAll(keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := s.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}
