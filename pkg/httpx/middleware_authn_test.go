package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/collab/pkg/httpx"
	"github.com/aussiebroadwan/collab/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func signed(t *testing.T, typ jwtx.TokenType, sub string, ttl time.Duration) string {
	t.Helper()
	s, err := jwtx.NewSignerHS256("", secret)
	require.NoError(t, err)
	tok, err := s.Sign(jwtx.NewClaims(typ, sub, "alice", "alice@example.com", "member", ttl, "collab", time.Now()))
	require.NoError(t, err)
	return tok
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		raw, src := httpx.TokenFromRequest(req, httpx.AccessTokenCookie)
		require.Equal(t, "abc", raw)
		require.Equal(t, httpx.SourceHeader, src)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: "xyz"})
		raw, src := httpx.TokenFromRequest(req, httpx.AccessTokenCookie)
		require.Equal(t, "xyz", raw)
		require.Equal(t, httpx.SourceCookie, src)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer from-header")
		req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: "from-cookie"})
		raw, _ := httpx.TokenFromRequest(req, httpx.AccessTokenCookie)
		require.Equal(t, "from-header", raw)
	})

	t.Run("non bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		raw, _ := httpx.TokenFromRequest(req, httpx.AccessTokenCookie)
		require.Empty(t, raw)
	})
}

func TestAuthnMiddleware(t *testing.T) {
	v := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{Issuer: "collab"})

	var gotUser string
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = httpx.UserIDFromContext(r.Context())
		claims, ok := httpx.ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "member", claims.Role)
		w.WriteHeader(http.StatusNoContent)
	}), httpx.AuthnMiddleware(v, httpx.AccessTokenCookie))

	access := signed(t, jwtx.TokenTypeAccess, "user-1", time.Minute)

	t.Run("header and cookie authenticate the same way", func(t *testing.T) {
		viaHeader := httptest.NewRequest(http.MethodGet, "/me", nil)
		viaHeader.Header.Set("Authorization", "Bearer "+access)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, viaHeader)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "user-1", gotUser)

		gotUser = ""
		viaCookie := httptest.NewRequest(http.MethodGet, "/me", nil)
		viaCookie.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: access})
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, viaCookie)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "user-1", gotUser)
	})

	t.Run("missing credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, jwtx.TokenTypeRefresh, "user-1", time.Hour))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: signed(t, jwtx.TokenTypeAccess, "user-1", -time.Minute)})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad header does not fall back to cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: access})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Username string `json:"username"`
	}

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", stringsReader(`{"username":"alice"}`))
		require.NoError(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &v))
		require.Equal(t, "alice", v.Username)
	})

	t.Run("unknown fields ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", stringsReader(`{"username":"bob","first_name":"Bob"}`))
		require.NoError(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &v))
		require.Equal(t, "bob", v.Username)
	})

	t.Run("trailing data", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", stringsReader(`{"username":"a"}{}`))
		require.Error(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &v))
	})
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
