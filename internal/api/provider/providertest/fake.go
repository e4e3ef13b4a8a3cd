// Package providertest runs a fake OpenID Connect provider on httptest so
// the sign-in flow can be exercised without a network.
package providertest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/collab/internal/api/provider"
	"github.com/aussiebroadwan/collab/pkg/jwtx"
)

const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
	RedirectURL  = "http://localhost/auth/external/callback"
	keyID        = "test-key"
)

// Identity is what the next successful exchange will assert.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Server is a fake provider with /auth, /token and /jwks endpoints.
type Server struct {
	*httptest.Server

	key *rsa.PrivateKey

	mu       sync.Mutex
	identity Identity
	codes    map[string]bool // codes the fake will accept
	tokenErr string          // non-empty: /token answers 400 with this error
	noIDTok  bool
	delay    time.Duration
	issuer   string
	audience string
	requests []map[string]string
}

func NewServer(t *testing.T) *Server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	s := &Server{key: key, codes: map[string]bool{}, audience: ClientID}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Query().Get("redirect_uri")+"?code=fake-code&state="+r.URL.Query().Get("state"), http.StatusFound)
	})
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("GET /jwks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewRSAJWK(keyID, "sig", "RS256", &s.key.PublicKey)}})
	})

	s.Server = httptest.NewServer(mux)
	s.issuer = s.URL
	t.Cleanup(s.Close)
	return s
}

// Config returns a provider config pointing at this server.
func (s *Server) Config() provider.Config {
	return provider.Config{
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		RedirectURL:  RedirectURL,
		AuthURL:      s.URL + "/auth",
		TokenURL:     s.URL + "/token",
		JWKSURL:      s.URL + "/jwks",
		Issuer:       s.URL,
		HTTPClient:   s.Client(),
	}
}

// Accept makes code redeemable for id.
func (s *Server) Accept(code string, id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = true
	s.identity = id
}

// FailToken makes /token answer with an OAuth2 error.
func (s *Server) FailToken(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenErr = code
}

// OmitIDToken makes /token answer without an id_token.
func (s *Server) OmitIDToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noIDTok = true
}

// Delay stalls /token.
func (s *Server) Delay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SignWith changes the issuer and audience written into id_tokens.
func (s *Server) SignWith(issuer, audience string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuer = issuer
	s.audience = audience
}

// TokenRequests returns the form bodies /token has received.
func (s *Server) TokenRequests() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.requests...)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	s.requests = append(s.requests, form)
	delay, tokenErr, noIDTok := s.delay, s.tokenErr, s.noIDTok
	ok := s.codes[form["code"]]
	id, issuer, audience := s.identity, s.issuer, s.audience
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if tokenErr == "" && !ok {
		tokenErr = "invalid_grant"
	}
	if tokenErr != "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": tokenErr, "error_description": "Bad Request"})
		return
	}

	resp := map[string]any{
		"access_token": "provider-access-token",
		"token_type":   "Bearer",
		"expires_in":   3599,
	}
	if !noIDTok {
		raw, err := s.IDToken(issuer, audience, id, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp["id_token"] = raw
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// IDToken signs an RS256 id_token the way the provider would.
func (s *Server) IDToken(issuer, audience string, id Identity, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss": issuer,
		"aud": audience,
		"sub": id.Subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if id.Email != "" {
		claims["email"] = id.Email
		claims["email_verified"] = true
	}
	if id.Name != "" {
		claims["name"] = id.Name
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = keyID
	return t.SignedString(s.key)
}
