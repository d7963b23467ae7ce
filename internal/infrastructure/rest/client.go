// Package rest is the single HTTP transport shared by every client store.
// It owns base-URL normalization, bearer-token attachment, request
// correlation ids, a courtesy rate limit, and the misrouted-response guard.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskboard-client/internal/domain"
	"github.com/taskboard-client/internal/pkg/id"
	"golang.org/x/time/rate"
)

// TokenSource yields the current bearer token, or "" when anonymous.
// It is consulted on every outgoing request.
type TokenSource func() string

// Client is the shared transport adapter. Callers pass JSON-marshalable
// bodies and pointers to decode into.
type Client struct {
	base    string
	http    *http.Client
	token   TokenSource
	limiter *rate.Limiter
}

// ClientDeps holds the transport configuration.
type ClientDeps struct {
	BaseURL        string
	Token          TokenSource
	Timeout        time.Duration
	RateLimitRPS   int
	RateLimitBurst int
}

func NewClient(deps ClientDeps) *Client {
	rps := deps.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := deps.RateLimitBurst
	if burst <= 0 {
		burst = 2 * rps
	}
	token := deps.Token
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		base:    NormalizeBaseURL(deps.BaseURL),
		http:    &http.Client{Timeout: deps.Timeout},
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// NormalizeBaseURL strips trailing slashes and appends the /api segment if
// it is not already present.
func NormalizeBaseURL(raw string) string {
	b := strings.TrimRight(raw, "/")
	if strings.HasSuffix(b, "/api") {
		return b
	}
	return b + "/api"
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", id.New())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	// A document instead of JSON means the request reached a static file
	// server rather than the API.
	if isHTMLDocument(raw) {
		return fmt.Errorf("%s %s: %w", method, path, ErrMisroutedResponse)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return remoteError(res.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

func isHTMLDocument(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) < len("<!doctype html") {
		return false
	}
	return strings.HasPrefix(strings.ToLower(trimmed), "<!doctype html")
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	}
	if status < http.StatusInternalServerError {
		return domain.ErrBadRequest
	}
	return nil
}
