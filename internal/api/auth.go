package api

import (
	"context"
	"net/http"

	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/model"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response.
// Success is false when the server rejects the credentials with a 2xx body.
type LoginResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token,omitempty"`
	User    *model.User `json:"user,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Login exchanges credentials for a bearer token.
// A {"success": false} body is reported as an API-APP error carrying the
// server message, so callers only ever see a token on success.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   LoginRequest{Email: email, Password: password},
	}, "", &resp)
	if err != nil {
		return nil, err
	}

	if !resp.Success || resp.Token == "" {
		body := &ErrorBody{Status: http.StatusOK, Err: resp.Error, Message: resp.Message}
		msg := body.Text()
		if msg == "" {
			msg = "login rejected"
		}
		appErr := errors.New(errors.ErrCodeAppFailure, msg)
		appErr.Cause = body
		return nil, appErr
	}

	return &resp, nil
}

// WhoAmI returns the identity behind credential
func (c *Client) WhoAmI(ctx context.Context, credential string) (*model.User, error) {
	var user model.User
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/me"}, credential, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout tells the server to forget credential. The response body is ignored.
func (c *Client) Logout(ctx context.Context, credential string) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/logout"}, credential, nil)
}
