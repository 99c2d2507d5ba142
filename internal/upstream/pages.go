package upstream

import (
	"context"
	"encoding/json"
)

// The informational pages (meals, notices, fees, dashboard) only render
// directly-fetched data, so their payloads pass through untyped.

func (c *Client) Meals(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.get(ctx, "/api/meals", &raw)
	return raw, err
}

func (c *Client) Notices(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.get(ctx, "/api/notices", &raw)
	return raw, err
}

func (c *Client) Fees(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.get(ctx, "/api/fees", &raw)
	return raw, err
}

func (c *Client) Dashboard(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.get(ctx, "/api/dashboard", &raw)
	return raw, err
}
