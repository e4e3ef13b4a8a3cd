package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the collab API. It covers the unauthenticated
// endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new API client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a password account. It doesn't log in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	resp, err := c.postJSON(ctx, "/register", req)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges a username and password for a token pair.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/login", LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and wraps the tokens in a Session. The
// server must deliver tokens in the response body for this to work.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, username, password string) (*Session, error) {
	tok, err := c.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if tok.Access == "" || tok.Refresh == "" {
		return nil, fmt.Errorf("server did not return tokens in the response body")
	}
	return c.NewSessionFromTokens(tok.Access, tok.Refresh), nil
}

// Refresh rotates a refresh token into a new pair. The old refresh token
// stops working.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	resp, err := c.postJSON(ctx, "/refresh", RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes a refresh token. Unknown tokens are not an error.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.postJSON(ctx, "/logout", RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ExternalSignInURL is where a browser should be sent to start external
// sign-in.
func (c *SDKClient) ExternalSignInURL() string {
	return c.url("/auth/external/redirect")
}

func (c *SDKClient) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(b), map[string]string{
		"Content-Type": "application/json",
	})
}
