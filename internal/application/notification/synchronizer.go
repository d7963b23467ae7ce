// Package notification owns the in-memory feed and reconciles two delivery
// channels: pull snapshots over REST and incremental pushes over the live
// socket. The feed is newest first, item ids are unique, and nothing is ever
// deleted client-side.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taskboard-client/internal/domain"
	"github.com/taskboard-client/internal/infrastructure/push"
	"github.com/taskboard-client/internal/infrastructure/rest"
)

type api interface {
	Get(ctx context.Context, path string, out interface{}) error
	Put(ctx context.Context, path string, body, out interface{}) error
}

// Synchronizer is the single owner of the feed and the push connection
// handle. No other component writes to either.
type Synchronizer struct {
	api       api
	token     rest.TokenSource
	wsBaseURL string

	onPush func(domain.Notification)

	mu        sync.Mutex
	items     []domain.Notification
	sock      *push.Client
	connected bool
	lastErr   string
}

type SynchronizerDeps struct {
	API       api
	Token     rest.TokenSource
	WSBaseURL string

	// OnPush, when set, observes each pushed item after it lands in the
	// feed. It runs on the push client's read goroutine.
	OnPush func(domain.Notification)
}

func NewSynchronizer(deps SynchronizerDeps) *Synchronizer {
	return &Synchronizer{api: deps.API, token: deps.Token, wsBaseURL: deps.WSBaseURL, onPush: deps.OnPush}
}

// Items returns a copy of the feed, newest first.
func (s *Synchronizer) Items() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount recomputes the number of unseen items from the feed on every
// call; there is no separately maintained counter to drift.
func (s *Synchronizer) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.items {
		if s.items[i].Unread() {
			count++
		}
	}
	return count
}

// Connected reports whether the push channel currently has a live
// connection.
func (s *Synchronizer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Err returns the message of the last failed operation, or "".
func (s *Synchronizer) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// FetchAll replaces the feed wholesale with the server's snapshot. Items
// pushed since the previous fetch are not merged; the snapshot wins.
func (s *Synchronizer) FetchAll(ctx context.Context) error {
	var items []domain.Notification
	if err := s.api.Get(ctx, "/notifications", &items); err != nil {
		s.setErr(rest.Message(err, "Failed to fetch notifications"))
		return err
	}
	s.mu.Lock()
	s.items = items
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// MarkSeen stamps the item optimistically, then confirms with the server.
// On remote failure the stamp is rolled back and the error returned.
func (s *Synchronizer) MarkSeen(ctx context.Context, id int64) error {
	now := time.Now().UTC()

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("notification %d not in feed: %w", id, domain.ErrNotFound)
	}
	prev := s.items[idx].SeenAt
	s.items[idx].SeenAt = &now
	s.mu.Unlock()

	if err := s.api.Put(ctx, fmt.Sprintf("/notifications/%d/seen", id), nil, nil); err != nil {
		s.mu.Lock()
		if idx = s.indexOf(id); idx >= 0 {
			s.items[idx].SeenAt = prev
		}
		s.lastErr = rest.Message(err, "Failed to mark notification seen")
		s.mu.Unlock()
		return err
	}
	s.setErr("")
	return nil
}

// MarkAllSeen stamps every unread item with one shared timestamp, then
// confirms with the server. On remote failure exactly the items stamped
// here are rolled back.
func (s *Synchronizer) MarkAllSeen(ctx context.Context) error {
	now := time.Now().UTC()

	s.mu.Lock()
	var stamped []int64
	for i := range s.items {
		if s.items[i].Unread() {
			s.items[i].SeenAt = &now
			stamped = append(stamped, s.items[i].NotificationID)
		}
	}
	s.mu.Unlock()

	if err := s.api.Put(ctx, "/notifications/seen/all", nil, nil); err != nil {
		s.mu.Lock()
		for _, id := range stamped {
			if idx := s.indexOf(id); idx >= 0 {
				s.items[idx].SeenAt = nil
			}
		}
		s.lastErr = rest.Message(err, "Failed to mark notifications seen")
		s.mu.Unlock()
		return err
	}
	s.setErr("")
	return nil
}

// Connect opens the push channel, authenticating the handshake with the
// session token as it is right now; a token refresh after this point does
// not re-authenticate the open channel. A second call while the channel
// exists is a no-op.
func (s *Synchronizer) Connect(ctx context.Context) {
	s.mu.Lock()
	if s.sock != nil {
		s.mu.Unlock()
		return
	}
	sock := push.NewClient(s.wsBaseURL, push.Handlers{
		OnConnect:      func() { s.setConnected(true) },
		OnDisconnect:   func() { s.setConnected(false) },
		OnNotification: s.prepend,
	})
	s.sock = sock
	s.mu.Unlock()

	sock.Connect(ctx, s.token())
}

// Disconnect closes the push channel and clears the handle. Safe to call
// when not connected.
func (s *Synchronizer) Disconnect() {
	s.mu.Lock()
	sock := s.sock
	s.sock = nil
	s.connected = false
	s.mu.Unlock()

	if sock != nil {
		sock.Disconnect()
	}
}

// prepend puts a pushed item at the front of the feed; pushes are applied
// in arrival order.
func (s *Synchronizer) prepend(n domain.Notification) {
	s.mu.Lock()
	s.items = append([]domain.Notification{n}, s.items...)
	s.mu.Unlock()
	if s.onPush != nil {
		s.onPush(n)
	}
}

// indexOf must be called with s.mu held.
func (s *Synchronizer) indexOf(id int64) int {
	for i := range s.items {
		if s.items[i].NotificationID == id {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *Synchronizer) setErr(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}
