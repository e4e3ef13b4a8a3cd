package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/collab/pkg/authsdk"
	"github.com/aussiebroadwan/collab/pkg/httpx"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/register", authsdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: testPassword,
		Role:     "creator",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "User created successfully.", decode[authsdk.MessageResponse](t, rec).Message)
	require.Empty(t, rec.Result().Cookies(), "register must not log in")

	t.Run("validation errors carry fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/register", authsdk.RegisterRequest{
			Username: "",
			Email:    "nope",
			Password: testPassword,
			Role:     "admin",
		})
		apiErr := requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeValidation)
		require.Contains(t, apiErr.Fields, "username")
		require.Contains(t, apiErr.Fields, "email")
		require.Contains(t, apiErr.Fields, "role")
	})

	t.Run("duplicate username", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/register", authsdk.RegisterRequest{
			Username: "alice",
			Email:    "other@example.com",
			Password: testPassword,
		})
		apiErr := requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeValidation)
		require.Contains(t, apiErr.Fields, "username")
	})

	t.Run("extra fields ignored", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/register", map[string]string{
			"username":   "carol",
			"email":      "carol@example.com",
			"password":   testPassword,
			"first_name": "Carol",
			"password2":  testPassword,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = env.do(t, http.MethodPost, "/login", map[string]string{
			"username": "carol",
			"password": testPassword,
			"remember": "yes",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/register", "not an object")
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice")

	for _, path := range []string{"/login", "/token"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, path, authsdk.LoginRequest{Username: "alice", Password: testPassword})
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

			tok := decode[authsdk.TokenResponse](t, rec)
			require.NotEmpty(t, tok.Access)
			require.NotEmpty(t, tok.Refresh)
			require.Equal(t, "alice", tok.Username)
			require.Equal(t, "alice@example.com", tok.Email)
			require.Equal(t, "member", tok.Role)

			access := cookie(rec, httpx.AccessTokenCookie)
			require.NotNil(t, access)
			require.Equal(t, tok.Access, access.Value)
			require.True(t, access.HttpOnly)
			require.Equal(t, http.SameSiteLaxMode, access.SameSite)
			require.Equal(t, tok.Refresh, cookie(rec, RefreshTokenCookie).Value)
		})
	}

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		wrong := env.do(t, http.MethodPost, "/login", authsdk.LoginRequest{Username: "alice", Password: "nope"})
		unknown := env.do(t, http.MethodPost, "/login", authsdk.LoginRequest{Username: "bob", Password: "nope"})

		requireError(t, wrong, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
		requireError(t, unknown, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
		require.Equal(t, wrong.Body.String(), unknown.Body.String())
	})
}

func TestDeliveryPolicy(t *testing.T) {
	t.Run("body", func(t *testing.T) {
		env := newTestEnv(t, withDelivery(DeliveryBody))
		tok := env.signup(t, "alice")
		require.NotEmpty(t, tok.Access)

		rec := env.do(t, http.MethodPost, "/login", authsdk.LoginRequest{Username: "alice", Password: testPassword})
		require.Empty(t, rec.Result().Cookies())
	})

	t.Run("cookie", func(t *testing.T) {
		env := newTestEnv(t, withDelivery(DeliveryCookie))
		tok := env.signup(t, "alice")
		require.Empty(t, tok.Access)
		require.Empty(t, tok.Refresh)
		require.Equal(t, "alice", tok.Username)

		rec := env.do(t, http.MethodPost, "/login", authsdk.LoginRequest{Username: "alice", Password: testPassword})
		require.NotNil(t, cookie(rec, httpx.AccessTokenCookie))
		require.NotNil(t, cookie(rec, RefreshTokenCookie))
		require.NotContains(t, rec.Body.String(), `"access"`)
	})
}

func TestMe_HeaderAndCookieAreEquivalent(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "alice")

	viaHeader := env.do(t, http.MethodGet, "/me", nil, bearer(tok.Access))
	viaCookie := env.do(t, http.MethodGet, "/me", nil, withCookies(&http.Cookie{Name: httpx.AccessTokenCookie, Value: tok.Access}))

	require.Equal(t, http.StatusOK, viaHeader.Code)
	require.Equal(t, http.StatusOK, viaCookie.Code)
	require.JSONEq(t, viaHeader.Body.String(), viaCookie.Body.String())

	me := decode[authsdk.UserResponse](t, viaHeader)
	require.Equal(t, "alice", me.Username)
	require.Equal(t, "member", me.Role)

	t.Run("header wins over cookie", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/me", nil,
			bearer(tok.Access),
			withCookies(&http.Cookie{Name: httpx.AccessTokenCookie, Value: "garbage"}),
		)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no credentials", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/me", nil)
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/me", nil, bearer(tok.Refresh))
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "alice")

	rec := env.do(t, http.MethodPost, "/refresh", authsdk.RefreshRequest{Refresh: tok.Refresh})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	rotated := decode[authsdk.RefreshResponse](t, rec)
	require.NotEqual(t, tok.Refresh, rotated.Refresh)
	require.Equal(t, rotated.Refresh, cookie(rec, RefreshTokenCookie).Value)

	t.Run("from cookie", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/refresh", nil,
			withCookies(&http.Cookie{Name: RefreshTokenCookie, Value: rotated.Refresh}))
		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
		rotated = decode[authsdk.RefreshResponse](t, rec)
	})

	t.Run("replay revokes the family", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/refresh", authsdk.RefreshRequest{Refresh: tok.Refresh})
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

		rec = env.do(t, http.MethodPost, "/refresh", authsdk.RefreshRequest{Refresh: rotated.Refresh})
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})

	t.Run("access token is rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/refresh", authsdk.RefreshRequest{Refresh: tok.Access})
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})

	t.Run("missing", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/refresh", nil)
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "alice")

	rec := env.do(t, http.MethodPost, "/logout", nil,
		withCookies(&http.Cookie{Name: RefreshTokenCookie, Value: tok.Refresh}))
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, name := range []string{httpx.AccessTokenCookie, RefreshTokenCookie} {
		c := cookie(rec, name)
		require.NotNil(t, c, name)
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
	}

	rec = env.do(t, http.MethodPost, "/refresh", authsdk.RefreshRequest{Refresh: tok.Refresh})
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

	// Logging out twice, or with nothing, still succeeds.
	rec = env.do(t, http.MethodPost, "/logout", authsdk.RefreshRequest{Refresh: tok.Refresh})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
