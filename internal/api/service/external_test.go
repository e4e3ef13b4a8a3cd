package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/collab/internal/api/domain"
	"github.com/aussiebroadwan/collab/pkg/cryptox"
	"github.com/aussiebroadwan/collab/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// stubProvider returns a canned identity for any code.
type stubProvider struct {
	identity    domain.ExternalIdentity
	exchangeErr error
	verifyErr   error
	delay       time.Duration

	exchanges atomic.Int32
}

type detailedErr struct{ details string }

func (e detailedErr) Error() string   { return "provider said no" }
func (e detailedErr) Details() string { return e.details }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *stubProvider) Exchange(ctx context.Context, code string) (string, error) {
	p.exchanges.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.exchangeErr != nil {
		return "", p.exchangeErr
	}
	return "id-token-for-" + code, nil
}

func (p *stubProvider) VerifyIDToken(ctx context.Context, raw string) (domain.ExternalIdentity, error) {
	if p.verifyErr != nil {
		return domain.ExternalIdentity{}, p.verifyErr
	}
	return p.identity, nil
}

func newExternal(f *fixture, p IdentityProvider) *ExternalAuthService {
	return &ExternalAuthService{Provider: p, Store: f.store, Tokens: f.tokens, Timeout: time.Second, Now: f.clock.Now}
}

var gina = domain.ExternalIdentity{Subject: "1122", Email: "Gina@Example.com", EmailVerified: true, Name: "Gina G"}

func TestExternalAuth_Begin(t *testing.T) {
	f := newFixture(t)

	_, _, err := newExternal(f, nil).Begin()
	require.ErrorIs(t, err, ErrProviderNotConfigured)

	u, state, err := newExternal(f, &stubProvider{}).Begin()
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.Contains(t, u, url.QueryEscape(state))

	_, again, err := newExternal(f, &stubProvider{}).Begin()
	require.NoError(t, err)
	require.NotEqual(t, state, again)
}

func TestExternalAuth_CreatesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, u, err := newExternal(f, &stubProvider{identity: gina}).Complete(ctx, "code-1", "s", "s")
	require.NoError(t, err)
	require.Equal(t, "gina@example.com", u.Email)
	require.Equal(t, "gina@example.com", u.Username)
	require.Equal(t, "Gina G", u.DisplayName)
	require.Equal(t, domain.RoleMember, u.Role)
	require.False(t, cryptox.IsUsablePassword(u.PasswordHash))

	claims, err := f.tokens.Validate(pair.AccessToken, jwtx.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.Subject)

	// The provisioned account cannot log in with a password.
	_, _, err = f.credentials.Login(ctx, u.Username, "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExternalAuth_ReusesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newExternal(f, &stubProvider{identity: gina})

	_, first, err := svc.Complete(ctx, "code-1", "s", "s")
	require.NoError(t, err)
	_, second, err := svc.Complete(ctx, "code-2", "s", "s")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, f.userCount(t))
}

func TestExternalAuth_LinksExistingPasswordAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	local := f.register(t, "gina", "correct-horse")

	_, u, err := newExternal(f, &stubProvider{identity: domain.ExternalIdentity{Email: "gina@example.com"}}).Complete(ctx, "c", "s", "s")
	require.NoError(t, err)
	require.Equal(t, local.ID, u.ID)

	// Password login still works.
	_, _, err = f.credentials.Login(ctx, "gina", "correct-horse")
	require.NoError(t, err)
}

func TestExternalAuth_UsernameCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Someone registered the email address as their username.
	_, err := f.credentials.Register(ctx, RegisterInput{
		Username: "gina@example.com", Email: "other@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	_, u, err := newExternal(f, &stubProvider{identity: gina}).Complete(ctx, "c", "s", "s")
	require.NoError(t, err)
	require.Equal(t, "gina@example.com", u.Email)
	require.NotEqual(t, "gina@example.com", u.Username)
	require.Equal(t, 2, f.userCount(t))
}

func TestExternalAuth_ConcurrentFirstLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newExternal(f, &stubProvider{identity: gina})

	var wg sync.WaitGroup
	ids := make([]string, 4)
	errs := make([]error, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, u, err := svc.Complete(ctx, "code", "s", "s")
			ids[i], errs[i] = u.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	require.Equal(t, 1, f.userCount(t))
}

func TestExternalAuth_FailureOrder(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		nilProv  bool
		code     string
		state    string
		expected string
		want     error
		exchange bool
	}{
		{name: "not configured", nilProv: true, code: "c", state: "s", expected: "s", want: ErrProviderNotConfigured},
		{name: "missing code", provider: &stubProvider{identity: gina}, code: "", state: "s", expected: "s", want: ErrMissingAuthorizationCode},
		{name: "missing code wins over bad state", provider: &stubProvider{identity: gina}, code: "  ", state: "x", expected: "s", want: ErrMissingAuthorizationCode},
		{name: "state mismatch", provider: &stubProvider{identity: gina}, code: "c", state: "x", expected: "s", want: ErrInvalidState},
		{name: "no state cookie", provider: &stubProvider{identity: gina}, code: "c", state: "s", expected: "", want: ErrInvalidState},
		{name: "exchange failed", provider: &stubProvider{exchangeErr: detailedErr{details: `{"error":"invalid_grant"}`}}, code: "c", state: "s", expected: "s", want: ErrProviderExchangeFailed, exchange: true},
		{name: "bad assertion", provider: &stubProvider{verifyErr: errors.New("bad signature")}, code: "c", state: "s", expected: "s", want: ErrInvalidProviderAssertion, exchange: true},
		{name: "no email", provider: &stubProvider{identity: domain.ExternalIdentity{Subject: "1", Name: "No Mail"}}, code: "c", state: "s", expected: "s", want: ErrMissingEmailClaim, exchange: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			var p IdentityProvider
			if !tt.nilProv {
				p = tt.provider
			}

			pair, _, err := newExternal(f, p).Complete(context.Background(), tt.code, tt.state, tt.expected)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, pair)
			require.Equal(t, 0, f.userCount(t))

			if tt.provider != nil {
				require.Equal(t, tt.exchange, tt.provider.exchanges.Load() > 0)
			}
		})
	}
}

func TestExternalAuth_ExchangeDetails(t *testing.T) {
	f := newFixture(t)
	p := &stubProvider{exchangeErr: detailedErr{details: `{"error":"invalid_grant"}`}}

	_, _, err := newExternal(f, p).Complete(context.Background(), "c", "s", "s")

	var xerr *ExchangeError
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, "provider_exchange_failed", xerr.Code())
	require.Equal(t, `{"error":"invalid_grant"}`, xerr.Details)
}

func TestExternalAuth_ProviderTimeout(t *testing.T) {
	f := newFixture(t)
	p := &stubProvider{identity: gina, delay: time.Second}

	svc := newExternal(f, p)
	svc.Timeout = 20 * time.Millisecond

	_, _, err := svc.Complete(context.Background(), "c", "s", "s")
	require.ErrorIs(t, err, ErrProviderExchangeFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, int32(1), p.exchanges.Load(), "no retries")
	require.Equal(t, 0, f.userCount(t))
}
