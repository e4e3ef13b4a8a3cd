package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/collab/internal/api/domain"
	"github.com/aussiebroadwan/collab/internal/api/store"
	"github.com/aussiebroadwan/collab/pkg/cryptox"
	"github.com/aussiebroadwan/collab/pkg/idx"
	"github.com/aussiebroadwan/collab/pkg/slogx"
)

// DefaultProviderTimeout bounds the code exchange plus id_token
// verification when ExternalAuthService.Timeout is unset.
const DefaultProviderTimeout = 10 * time.Second

// IdentityProvider is a single external OAuth2/OIDC identity provider.
type IdentityProvider interface {
	// AuthCodeURL builds the provider authorization URL for state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for the provider's raw
	// id_token. A response without an id_token is an error.
	Exchange(ctx context.Context, code string) (string, error)

	// VerifyIDToken checks signature, issuer, audience and expiry.
	VerifyIDToken(ctx context.Context, rawIDToken string) (domain.ExternalIdentity, error)
}

// ExternalAuthService runs the authorization-code flow against one
// identity provider and turns a verified assertion into a local session.
type ExternalAuthService struct {
	Provider IdentityProvider // nil when not configured
	Store    store.Store
	Tokens   *TokenService
	Timeout  time.Duration
	Now      func() time.Time
}

// Begin returns the provider URL to redirect to and the state value the
// caller must remember (we keep it in a short-lived cookie).
func (s *ExternalAuthService) Begin() (redirectURL, state string, err error) {
	if s.Provider == nil {
		return "", "", ErrProviderNotConfigured
	}

	state, err = cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", err
	}
	return s.Provider.AuthCodeURL(state), state, nil
}

// Complete runs the callback steps in order and stops at the first failure:
//
//  1. code present
//  2. state matches what Begin handed out
//  3. code exchanged for an id_token (single attempt, bounded by Timeout)
//  4. id_token verified
//  5. email claim present
//  6. user found or created by email
//  7. token pair issued
//
// Nothing touches the store before step 6.
func (s *ExternalAuthService) Complete(ctx context.Context, code, state, expectedState string) (*domain.TokenPair, domain.User, error) {
	l := slogx.FromContext(ctx)

	if s.Provider == nil {
		return nil, domain.User{}, ErrProviderNotConfigured
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.User{}, exchangeErr(ErrMissingAuthorizationCode, nil, "")
	}

	if state == "" || expectedState == "" ||
		subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return nil, domain.User{}, exchangeErr(ErrInvalidState, nil, "")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rawIDToken, err := s.Provider.Exchange(pctx, code)
	if err != nil {
		details := providerDetails(err)
		l.Warn("provider code exchange failed", slog.Any("err", err), slog.String("details", details))
		return nil, domain.User{}, exchangeErr(ErrProviderExchangeFailed, err, details)
	}

	ident, err := s.Provider.VerifyIDToken(pctx, rawIDToken)
	if err != nil {
		l.Warn("provider id_token rejected", slog.Any("err", err))
		return nil, domain.User{}, exchangeErr(ErrInvalidProviderAssertion, err, "")
	}

	email := strings.ToLower(strings.TrimSpace(ident.Email))
	if email == "" {
		l.Warn("provider id_token has no email", slog.String("subject", ident.Subject))
		return nil, domain.User{}, exchangeErr(ErrMissingEmailClaim, nil, "")
	}
	if !ident.EmailVerified {
		l.Info("provider email not marked verified", slog.String("subject", ident.Subject))
	}

	u, created, err := s.findOrCreate(ctx, email, ident.Name)
	if err != nil {
		return nil, domain.User{}, err
	}

	pair, err := s.Tokens.Issue(ctx, u)
	if err != nil {
		return nil, domain.User{}, err
	}

	l.Info("external login succeeded", slog.String("user_id", u.ID), slog.Bool("created", created))
	return pair, u, nil
}

// findOrCreate resolves the user for email. New users get username=email,
// the default role and an unusable password. If a concurrent callback for
// the same email wins the insert we read its row back instead.
func (s *ExternalAuthService) findOrCreate(ctx context.Context, email, name string) (domain.User, bool, error) {
	users := s.Store.Users()

	u, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, false, err
	}

	now := s.now()
	u = domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     email,
		Email:        email,
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: cryptox.UnusablePassword(),
		Role:         domain.DefaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = users.CreateUser(ctx, u)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, false, err
	}

	// Either the email row now exists, or someone registered a username
	// equal to this email address.
	if existing, err := users.GetUserByEmail(ctx, email); err == nil {
		return existing, false, nil
	}

	suffix, err := cryptox.GenerateToken(4)
	if err != nil {
		return domain.User{}, false, err
	}
	u.Username = fmt.Sprintf("%s-%s", email, strings.ToLower(suffix))
	if err := users.CreateUser(ctx, u); err != nil {
		return domain.User{}, false, fmt.Errorf("provision external user: %w", err)
	}
	return u, true, nil
}

func (s *ExternalAuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// providerDetails pulls the provider's error body out of err if it has one.
func providerDetails(err error) string {
	var d interface{ Details() string }
	if errors.As(err, &d) {
		return d.Details()
	}
	return ""
}
