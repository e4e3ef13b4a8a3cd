package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNotReady is returned by GetReadiness when /readyz answers 503. The
// HealthResponse is still returned so callers can see which check failed.
var ErrNotReady = errors.New("authsdk: service not ready")

// GetLiveness calls /livez.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	health, status, err := c.getHealth(ctx, "/livez")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("livez: unexpected status %d", status)
	}
	return health, nil
}

// GetReadiness calls /readyz. A degraded service yields both the report and
// ErrNotReady.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	health, status, err := c.getHealth(ctx, "/readyz")
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return health, nil
	case http.StatusServiceUnavailable:
		return health, ErrNotReady
	default:
		return nil, fmt.Errorf("readyz: unexpected status %d", status)
	}
}

func (c *SDKClient) getHealth(ctx context.Context, path string) (*HealthResponse, int, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resp.StatusCode, parseErrorResponse(resp, body)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return &health, resp.StatusCode, nil
}
