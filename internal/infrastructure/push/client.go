// Package push maintains the persistent duplex connection the server uses
// to deliver notification events. Authentication happens once per
// connection: the bearer token rides in the first frame of the handshake,
// never per message.
package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/taskboard-client/internal/domain"
)

// Path is the fixed channel path segment on the push base URL.
const Path = "/socket.io"

const reconnectDelay = 2 * time.Second

// EventNotificationNew carries a full notification record.
const EventNotificationNew = "notification:new"

type authPayload struct {
	Token string `json:"token"`
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handlers are the connection lifecycle and event callbacks. They run on the
// client's read goroutine; keep them short.
type Handlers struct {
	OnConnect      func()
	OnDisconnect   func()
	OnNotification func(domain.Notification)
}

// Client dials the push channel and keeps it alive, redialing with a fixed
// delay after transport-level disconnects until Disconnect is called.
type Client struct {
	url      string
	handlers Handlers

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewClient builds a push client for the given base URL (scheme + host; the
// channel path is appended here).
func NewClient(baseURL string, handlers Handlers) *Client {
	return &Client{
		url:      strings.TrimRight(baseURL, "/") + Path,
		handlers: handlers,
	}
}

// Connect starts the connection loop with the given token. It is a no-op if
// the loop is already running. The token is captured now and reused for
// every redial; a later token refresh does not re-authenticate the channel.
func (c *Client) Connect(ctx context.Context, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	go c.run(runCtx, token)
}

// Disconnect stops the connection loop and closes any open connection.
// Safe to call when not connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.cancel()
	c.cancel = nil
	c.running = false
}

func (c *Client) run(ctx context.Context, token string) {
	for {
		if err := c.session(ctx, token); err != nil && ctx.Err() == nil {
			slog.Warn("push channel disconnected", "url", c.url, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// session runs one dial-handshake-read cycle and returns when the
// connection drops.
func (c *Client) session(ctx context.Context, token string) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "closed")

	if err := wsjson.Write(ctx, conn, authPayload{Token: token}); err != nil {
		return err
	}

	if c.handlers.OnConnect != nil {
		c.handlers.OnConnect()
	}
	defer func() {
		if c.handlers.OnDisconnect != nil {
			c.handlers.OnDisconnect()
		}
	}()

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return err
		}
		switch f.Event {
		case EventNotificationNew:
			var n domain.Notification
			if err := json.Unmarshal(f.Data, &n); err != nil {
				slog.Warn("malformed notification event", "err", err)
				continue
			}
			if c.handlers.OnNotification != nil {
				c.handlers.OnNotification(n)
			}
		default:
			// Unknown events are ignored so the server can add event
			// types without breaking older clients.
		}
	}
}
