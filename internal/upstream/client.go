package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"hostel-portal/internal/event"
	"hostel-portal/internal/model"
	"hostel-portal/internal/session"
	"hostel-portal/pkg/apierror"
)

// Client is the one shared pipeline for every call to the remote hostel
// API. It attaches the current session's credential, applies a per-call
// deadline, and reacts to an upstream 401 globally: the session is cleared
// and a session.expired event is published before the failure is propagated
// to the caller. No retries, no caching.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions *session.Store
	bus      event.Bus
	timeout  time.Duration
}

func NewClient(baseURL string, timeout time.Duration, sessions *session.Store, bus event.Bus) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{},
		sessions: sessions,
		bus:      bus,
		timeout:  timeout,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// upstreamError is the error body shape the remote API reports.
type upstreamError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) putJSON(ctx context.Context, path string, in any, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) sendJSON(ctx context.Context, method string, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	return c.do(ctx, method, path, body, "application/json", out)
}

func (c *Client) postForm(ctx context.Context, path string, form *Form, out any) error {
	body, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("encode multipart form: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, body, contentType, out)
}

func (c *Client) putForm(ctx context.Context, path string, form *Form, out any) error {
	body, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("encode multipart form: %w", err)
	}

	return c.do(ctx, http.MethodPut, path, body, contentType, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

func (c *Client) do(ctx context.Context, method string, path string, body io.Reader, contentType string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build upstream request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	sessionID, hasSession := session.IDFromContext(ctx)
	if hasSession {
		credential, ok := c.sessions.Credential(ctx, sessionID)
		if !ok {
			// The credential was purged between the guard check and this
			// call. Fail here instead of sending an unauthenticated
			// request upstream.
			return model.ErrSessionNotFound
		}
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession(sessionID, hasSession)
		return apierror.Upstream(resp.StatusCode, readErrorMessage(resp.Body))
	}

	if resp.StatusCode >= 400 {
		return apierror.Upstream(resp.StatusCode, readErrorMessage(resp.Body))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}

	return nil
}

// expireSession clears the stored credential and raises the typed signal
// the navigation layer listens for. The purge uses a fresh context so it
// still runs when the triggering request's deadline has already passed.
func (c *Client) expireSession(sessionID string, hasSession bool) {
	if !hasSession {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.sessions.Clear(ctx, sessionID); err != nil {
		slog.Warn("failed to clear session after upstream 401", "session_id", sessionID, "error", err)
	}

	c.bus.Publish(event.Event{
		Type:      event.TypeSessionExpired,
		SessionID: sessionID,
	})
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}

	var parsed upstreamError
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	return ""
}
