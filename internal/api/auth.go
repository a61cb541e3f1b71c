// internal/api/auth.go
package api

import (
	"context"
	"net/http"

	"github.com/jason-s-yu/galactic-uno/internal/models"
)

// LoginResponse carries the access token and the identity the server confirmed
// for it. The identity is taken from here, never decoded out of the token.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	User        models.Identity `json:"user"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, username, email, password string) Result[models.Identity] {
	body := registerRequest{Username: username, Email: email, Password: password}
	return call[models.Identity](ctx, c, "register", http.MethodPost, "/auth/register", body)
}

// Login exchanges credentials for a token and a confirmed identity.
func (c *Client) Login(ctx context.Context, username, password string) Result[LoginResponse] {
	body := loginRequest{Username: username, Password: password}
	return call[LoginResponse](ctx, c, "login", http.MethodPost, "/auth/login", body)
}

// Logout invalidates the current token server-side.
func (c *Client) Logout(ctx context.Context) Result[Empty] {
	if c.tokens == nil || c.tokens.Token() == "" {
		return Failure[Empty](ErrNotAuthenticated)
	}
	return call[Empty](ctx, c, "logout", http.MethodPost, "/auth/logout", struct{}{})
}
