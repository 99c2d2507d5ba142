package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"hostel-portal/internal/model"
	"hostel-portal/internal/session"
)

// NotificationRequest is the best-effort dispatch issued after a student
// record save. Failures never affect the save's success.
type NotificationRequest struct {
	Email string         `json:"email"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Meta  map[string]any `json:"meta,omitempty"`
}

func (c *Client) Inbox(ctx context.Context) ([]model.Notification, error) {
	var notifications []model.Notification
	if err := c.get(ctx, "/api/notifications", &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (c *Client) SendNotification(ctx context.Context, req NotificationRequest) error {
	return c.postJSON(ctx, "/api/notifications", req, nil)
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/notifications/"+id+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.postJSON(ctx, "/api/notifications/mark-all-read", nil, nil)
}

// PushConn is one open push channel to the upstream notification stream.
type PushConn struct {
	conn *websocket.Conn
}

// pushFrame is the named-event envelope the push channel emits.
type pushFrame struct {
	Event string             `json:"event"`
	Data  model.Notification `json:"data"`
}

// DialPush opens the persistent push channel, authenticating with the
// current session's credential at connect time.
func (c *Client) DialPush(ctx context.Context) (*PushConn, error) {
	sessionID, ok := session.IDFromContext(ctx)
	if !ok {
		return nil, model.ErrUnauthorized
	}

	credential, ok := c.sessions.Credential(ctx, sessionID)
	if !ok {
		return nil, model.ErrUnauthorized
	}

	endpoint, err := url.Parse(c.baseURL + "/ws/notifications")
	if err != nil {
		return nil, fmt.Errorf("parse push endpoint: %w", err)
	}

	switch endpoint.Scheme {
	case "http":
		endpoint.Scheme = "ws"
	case "https":
		endpoint.Scheme = "wss"
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnreachable, err)
	}

	return &PushConn{conn: conn}, nil
}

// ReadNotification blocks until the next notification event arrives.
// Frames with other event names are skipped.
func (p *PushConn) ReadNotification() (model.Notification, error) {
	for {
		var frame pushFrame
		if err := p.conn.ReadJSON(&frame); err != nil {
			return model.Notification{}, err
		}

		if !strings.EqualFold(frame.Event, "notification") {
			continue
		}

		return frame.Data, nil
	}
}

func (p *PushConn) Close() error {
	return p.conn.Close()
}
