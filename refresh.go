package ajarin

import (
	"context"
	"encoding/json"
	"time"
)

// refreshEndpoint is the backend's token refresh route; it authenticates
// with the refresh token and returns a fresh access token.
const refreshEndpoint = "/auth/refresh"

// refreshSlotKey identifies the single process-wide refresh slot.
const refreshSlotKey = "token-refresh"

// refreshAccessToken runs the single-flight token refresh. Every 401-failed
// request that calls in while a refresh is outstanding awaits the same
// network call and observes its one outcome, so a burst of expired requests
// never causes a refresh storm.
//
// Outcomes:
//   - success: the store holds a new access token, nil is returned;
//   - terminal (refresh itself rejected with 401/403, or no refresh token):
//     credentials are cleared and the error wraps ErrSessionExpired;
//   - transient (network-class failure while refreshing): the error is
//     surfaced without clearing credentials so the caller may retry later.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	_, err := c.refreshGroup.Do(ctx, refreshSlotKey, func() (interface{}, error) {
		// The refresh outlives the triggering caller: waiters piggybacking on
		// this slot must not lose the outcome because the first caller went
		// away.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
		defer cancel()
		return nil, c.doRefresh(refreshCtx)
	})
	return err
}

func (c *Client) doRefresh(ctx context.Context) error {
	refreshToken := c.creds.RefreshToken()
	if refreshToken == "" {
		c.recordRefresh("terminal")
		return c.expireSession(nil)
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRefresh && c.logger != nil {
		c.logger.Debug("Refreshing access token", "endpoint", refreshEndpoint)
	}

	desc := &requestDescriptor{
		method: "POST",
		path:   refreshEndpoint,
		bearer: refreshToken,
	}
	res, err := c.dispatch(ctx, desc, "")
	if err != nil {
		// Not a definitive auth rejection: keep credentials so the caller
		// can retry later without being forced through a full logout.
		c.recordRefresh("error")
		return toNetworkError(err, desc)
	}

	switch {
	case res.statusCode == 401 || res.statusCode == 403:
		c.recordRefresh("terminal")
		return c.expireSession(ClassifyError(res.statusCode, res.body, desc.method, desc.path))
	case res.statusCode >= 400:
		c.recordRefresh("error")
		return ClassifyError(res.statusCode, res.body, desc.method, desc.path)
	}

	payload, _ := UnwrapEnvelope(res.body, "")
	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil || parsed.AccessToken == "" {
		c.recordRefresh("error")
		return &APIError{
			Class:     ErrorClassServer,
			Message:   "refresh response carried no access token",
			Endpoint:  refreshEndpoint,
			Method:    "POST",
			Timestamp: time.Now(),
			Cause:     err,
		}
	}

	if err := c.creds.SetAccessToken(parsed.AccessToken); err != nil {
		c.recordRefresh("error")
		return err
	}

	c.recordRefresh("success")
	if c.debug != nil && c.debug.Enabled && c.debug.LogRefresh && c.logger != nil {
		c.logger.Debug("Access token refreshed")
	}
	return nil
}

// expireSession clears stored credentials and returns the session-expired
// error; the caller must re-authenticate.
func (c *Client) expireSession(cause error) error {
	if err := c.creds.Clear(); err != nil && c.logger != nil {
		c.logger.Error("Failed to clear credentials", "error", err.Error())
	}
	return &APIError{
		Class:     ErrorClassAuth,
		Message:   "session expired, please log in again",
		Code:      "SESSION_EXPIRED",
		Endpoint:  refreshEndpoint,
		Timestamp: time.Now(),
		Cause:     wrapSessionExpired(cause),
	}
}

func wrapSessionExpired(cause error) error {
	if cause == nil {
		return ErrSessionExpired
	}
	return &sessionExpiredError{cause: cause}
}

// sessionExpiredError ties a concrete refresh rejection to the
// ErrSessionExpired sentinel.
type sessionExpiredError struct {
	cause error
}

func (e *sessionExpiredError) Error() string {
	return ErrSessionExpired.Error() + ": " + e.cause.Error()
}

func (e *sessionExpiredError) Unwrap() error { return e.cause }

func (e *sessionExpiredError) Is(target error) bool { return target == ErrSessionExpired }

func (c *Client) recordRefresh(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordTokenRefresh(outcome)
	}
}
