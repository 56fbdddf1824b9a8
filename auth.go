package ajarin

import (
	"context"
	"net/http"
)

// Login authenticates against the backend and stores both tokens in the
// credential store. It is one of the three credential write paths (the
// others being refresh completion and Clear).
func (c *Client) Login(ctx context.Context, email, password string) error {
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.PostJSON(ctx, "/auth/login", body, &tokens); err != nil {
		return err
	}
	if tokens.AccessToken == "" {
		return &APIError{
			Class:    ErrorClassServer,
			Message:  "login response carried no access token",
			Method:   http.MethodPost,
			Endpoint: "/auth/login",
		}
	}
	return c.creds.SetTokens(tokens.AccessToken, tokens.RefreshToken)
}

// Logout tells the backend to revoke the session and clears stored
// credentials. The local clear happens even when the server call fails:
// logging out must always work.
func (c *Client) Logout(ctx context.Context) error {
	_, serverErr := c.Post(ctx, "/auth/logout", nil)
	if err := c.creds.Clear(); err != nil {
		return err
	}
	if serverErr != nil && !IsAbort(serverErr) {
		return serverErr
	}
	return nil
}
