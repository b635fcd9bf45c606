package gateway

import (
	"context"
	"net/http"
	"strings"

	"calendar-planner/internal/wire"
)

// Login exchanges credentials for an access token. Persisting the token is the
// caller's job (see service.AuthService).
func (c *Client) Login(ctx context.Context, email, password string) (wire.AuthResponse, error) {
	const op = "login"
	if strings.TrimSpace(email) == "" || password == "" {
		return wire.AuthResponse{}, validationError(op, "email and password are required", nil)
	}
	body, err := c.do(ctx, op, http.MethodPost, "auth/login", nil, wire.LoginRequest{Email: email, Password: password})
	if err != nil {
		return wire.AuthResponse{}, err
	}
	return decodeObject[wire.AuthResponse](op, body)
}

func (c *Client) Register(ctx context.Context, req wire.RegisterRequest) (wire.AuthResponse, error) {
	const op = "register"
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return wire.AuthResponse{}, validationError(op, "username, email and password are required", nil)
	}
	body, err := c.do(ctx, op, http.MethodPost, "auth/register", nil, req)
	if err != nil {
		return wire.AuthResponse{}, err
	}
	return decodeObject[wire.AuthResponse](op, body)
}
