package upstream

import (
	"context"
	"encoding/json"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginResult carries the bearer credential plus whatever user object the
// API chose to return alongside it.
type LoginResult struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user,omitempty"`
}

func (c *Client) Login(ctx context.Context, email string, password string) (LoginResult, error) {
	var result LoginResult
	err := c.postJSON(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password}, &result)
	return result, err
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (LoginResult, error) {
	var result LoginResult
	err := c.postJSON(ctx, "/api/auth/register", req, &result)
	return result, err
}

// Logout tells the upstream to revoke the credential. The local session is
// cleared by the caller regardless of the outcome here.
func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, "/api/auth/logout", nil, nil)
}
