// Package provider talks to the external OpenID Connect identity provider
// (Google by default) for the authorization-code sign-in flow.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/aussiebroadwan/collab/internal/api/domain"
)

// Google's public endpoints. Every one of them can be overridden, which is
// how tests point the flow at a local fake.
const (
	GoogleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL = "https://oauth2.googleapis.com/token"
	GoogleJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"
	GoogleIssuer   = "https://accounts.google.com"
)

var ErrNoIDToken = errors.New("provider: token response has no id_token")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL  string
	TokenURL string
	JWKSURL  string
	Issuer   string

	// HTTPClient is used for the token exchange and JWKS fetches. Defaults
	// to http.DefaultClient.
	HTTPClient *http.Client
}

func (c *Config) setDefaults() {
	if c.AuthURL == "" {
		c.AuthURL = GoogleAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = GoogleTokenURL
	}
	if c.JWKSURL == "" {
		c.JWKSURL = GoogleJWKSURL
	}
	if c.Issuer == "" {
		c.Issuer = GoogleIssuer
	}
}

// Google is an OIDC identity provider configured from static endpoints. We
// don't use discovery so startup never depends on the provider being up.
type Google struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

// New builds the provider. ctx scopes background JWKS refreshes and should
// live as long as the process.
func New(ctx context.Context, cfg Config) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("provider: client id, client secret and redirect url are required")
	}
	cfg.setDefaults()

	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}
	keys := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)

	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: oidc.NewVerifier(cfg.Issuer, keys, &oidc.Config{ClientID: cfg.ClientID}),
		client:   cfg.HTTPClient,
	}, nil
}

// AuthCodeURL asks for offline access and forces the consent screen.
func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange redeems code at the token endpoint and returns the raw id_token.
// Errors carry the provider's response body through Details, with any
// tokens in it masked.
func (g *Google) Exchange(ctx context.Context, code string) (string, error) {
	client := &http.Client{}
	if g.client != nil {
		*client = *g.client
	}
	capture := &captureTransport{base: client.Transport}
	client.Transport = capture
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return "", &ExchangeError{Err: err, Body: redactTokens(rerr.Body)}
		}
		return "", &ExchangeError{Err: err}
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", &ExchangeError{Err: ErrNoIDToken, Body: redactTokens(capture.body)}
	}
	return raw, nil
}

// VerifyIDToken checks the signature against the provider's keys as well
// as issuer, audience and expiry.
func (g *Google) VerifyIDToken(ctx context.Context, raw string) (domain.ExternalIdentity, error) {
	tok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := tok.Claims(&claims); err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("decode id_token claims: %w", err)
	}

	return domain.ExternalIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// ExchangeError is a failed code exchange.
type ExchangeError struct {
	Err  error
	Body string
}

func (e *ExchangeError) Error() string { return "provider: code exchange: " + e.Err.Error() }
func (e *ExchangeError) Unwrap() error { return e.Err }

// Details is whatever the provider sent back, for debugging.
func (e *ExchangeError) Details() string { return e.Body }
