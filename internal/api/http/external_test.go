package http

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/collab/internal/api/provider/providertest"
	"github.com/aussiebroadwan/collab/pkg/authsdk"
	"github.com/aussiebroadwan/collab/pkg/httpx"
)

// beginExternal hits the redirect endpoint and returns the state and the
// state cookie the browser would carry to the callback.
func (e *testEnv) beginExternal(t *testing.T) (string, *http.Cookie) {
	t.Helper()

	rec := e.do(t, http.MethodGet, "/auth/external/redirect", nil)
	require.Equal(t, http.StatusFound, rec.Code, "body: %s", rec.Body.String())

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	c := cookie(rec, StateCookie)
	require.NotNil(t, c)
	require.Equal(t, state, c.Value)
	return state, c
}

func TestExternalRedirect(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/auth/external/redirect", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, env.idp.URL+"/auth", loc.Scheme+"://"+loc.Host+loc.Path)

	q := loc.Query()
	require.Equal(t, providertest.ClientID, q.Get("client_id"))
	require.Equal(t, providertest.RedirectURL, q.Get("redirect_uri"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "offline", q.Get("access_type"))
	require.Equal(t, "consent", q.Get("prompt"))

	c := cookie(rec, StateCookie)
	require.NotNil(t, c)
	require.True(t, c.HttpOnly)
	require.Equal(t, "/auth/external", c.Path)
	require.Equal(t, q.Get("state"), c.Value)
}

func TestExternalCallback(t *testing.T) {
	env := newTestEnv(t)
	env.idp.Accept("good-code", providertest.Identity{Subject: "g-1", Email: "Bob@Example.com", Name: "Bob"})

	state, stateCookie := env.beginExternal(t)

	rec := env.do(t, http.MethodGet, "/auth/external/callback?code=good-code&state="+url.QueryEscape(state), nil,
		withCookies(stateCookie))
	require.Equal(t, http.StatusFound, rec.Code, "body: %s", rec.Body.String())
	require.Equal(t, "/app", rec.Header().Get("Location"))

	access := cookie(rec, httpx.AccessTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, cookie(rec, RefreshTokenCookie))

	cleared := cookie(rec, StateCookie)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)

	me := env.do(t, http.MethodGet, "/me", nil, withCookies(access))
	require.Equal(t, http.StatusOK, me.Code)
	user := decode[authsdk.UserResponse](t, me)
	require.Equal(t, "bob@example.com", user.Email)
	require.Equal(t, "member", user.Role)

	t.Run("auto-created user can't log in with a password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/login", authsdk.LoginRequest{Username: user.Username, Password: "anything at all"})
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	})

	t.Run("cookie delivery policy doesn't matter", func(t *testing.T) {
		env := newTestEnv(t, withDelivery(DeliveryBody))
		env.idp.Accept("good-code", providertest.Identity{Subject: "g-2", Email: "carol@example.com"})
		state, stateCookie := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?code=good-code&state="+url.QueryEscape(state), nil,
			withCookies(stateCookie))
		require.Equal(t, http.StatusFound, rec.Code)
		require.NotNil(t, cookie(rec, httpx.AccessTokenCookie))
	})
}

func TestExternalCallback_Failures(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		env := newTestEnv(t)
		state, c := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?state="+url.QueryEscape(state), nil, withCookies(c))
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeMissingAuthorizationCode)
	})

	t.Run("state mismatch", func(t *testing.T) {
		env := newTestEnv(t)
		env.idp.Accept("good-code", providertest.Identity{Subject: "g-1", Email: "bob@example.com"})
		_, c := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?code=good-code&state=forged", nil, withCookies(c))
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidState)
		require.Empty(t, env.idp.TokenRequests(), "code must not be redeemed")
	})

	t.Run("no state cookie", func(t *testing.T) {
		env := newTestEnv(t)
		state, _ := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?code=good-code&state="+url.QueryEscape(state), nil)
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidState)
	})

	t.Run("exchange failed hides details outside dev", func(t *testing.T) {
		env := newTestEnv(t)
		state, c := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?code=unknown&state="+url.QueryEscape(state), nil, withCookies(c))
		apiErr := requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeProviderExchangeFailed)
		require.Empty(t, apiErr.Details)
	})

	t.Run("exchange failed shows details in dev", func(t *testing.T) {
		env := newTestEnv(t, withDev())
		state, c := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?code=unknown&state="+url.QueryEscape(state), nil, withCookies(c))
		apiErr := requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeProviderExchangeFailed)
		require.Contains(t, apiErr.Details, "invalid_grant")
	})

	t.Run("wrong audience", func(t *testing.T) {
		env := newTestEnv(t)
		env.idp.Accept("good-code", providertest.Identity{Subject: "g-1", Email: "bob@example.com"})
		env.idp.SignWith(env.idp.URL, "someone-else")
		state, c := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?code=good-code&state="+url.QueryEscape(state), nil, withCookies(c))
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidProviderAssertion)
	})

	t.Run("no email", func(t *testing.T) {
		env := newTestEnv(t)
		env.idp.Accept("good-code", providertest.Identity{Subject: "g-1"})
		state, c := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?code=good-code&state="+url.QueryEscape(state), nil, withCookies(c))
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeMissingEmailClaim)
	})

	t.Run("provider timeout", func(t *testing.T) {
		env := newTestEnv(t)
		env.router.ExternalService.Timeout = 100 * time.Millisecond
		env.idp.Accept("good-code", providertest.Identity{Subject: "g-1", Email: "bob@example.com"})
		env.idp.Delay(2 * time.Second)
		state, c := env.beginExternal(t)

		rec := env.do(t, http.MethodGet, "/auth/external/callback?code=good-code&state="+url.QueryEscape(state), nil, withCookies(c))
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeProviderExchangeFailed)
	})
}

func TestExternal_NotConfigured(t *testing.T) {
	env := newTestEnv(t, withoutProvider())

	rec := env.do(t, http.MethodGet, "/auth/external/redirect", nil)
	requireError(t, rec, http.StatusServiceUnavailable, authsdk.ErrorCodeProviderNotConfigured)

	rec = env.do(t, http.MethodGet, "/auth/external/callback?code=x&state=y", nil)
	requireError(t, rec, http.StatusServiceUnavailable, authsdk.ErrorCodeProviderNotConfigured)

	rec = env.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "disabled", decode[authsdk.HealthResponse](t, rec).Checks.Provider)
}
