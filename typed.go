package ajarin

import (
	"context"
	"encoding/json"
	"net/http"
)

// GetJSON performs a GET and decodes the unwrapped payload into out.
// out may be nil to discard the payload.
func (c *Client) GetJSON(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out, opts...)
}

// PostJSON performs a POST with a JSON body and decodes the unwrapped
// payload into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out, opts...)
}

// PutJSON performs a PUT with a JSON body and decodes the unwrapped payload
// into out.
func (c *Client) PutJSON(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out, opts...)
}

// DeleteJSON performs a DELETE and decodes the unwrapped payload into out.
func (c *Client) DeleteJSON(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out, opts...)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	result, err := c.Request(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	if out == nil || len(result.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Payload, out); err != nil {
		return &APIError{
			Class:      ErrorClassServer,
			Message:    "response payload does not match expected shape",
			StatusCode: result.StatusCode,
			Method:     method,
			Endpoint:   result.Endpoint,
			Cause:      err,
		}
	}
	return nil
}
