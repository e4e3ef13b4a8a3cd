package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/collab/internal/api/domain"
	"github.com/aussiebroadwan/collab/internal/api/store"
	"github.com/aussiebroadwan/collab/pkg/cryptox"
	"github.com/aussiebroadwan/collab/pkg/idx"
	"github.com/aussiebroadwan/collab/pkg/jwtx"
	"github.com/aussiebroadwan/collab/pkg/slogx"
)

// TokenService mints and validates the signed access/refresh pair. Refresh
// tokens are JWTs too, but each one also has a store record keyed by the
// fingerprint of its jti so it can be revoked and rotated.
type TokenService struct {
	Signer     jwtx.Signer
	Verifier   jwtx.Verifier
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// NewTokenService wires an HS256 signer and verifier sharing one secret and
// one clock.
func NewTokenService(
	st store.Store,
	secret []byte,
	issuer string,
	accessTTL, refreshTTL time.Duration,
	now func() time.Time,
) (*TokenService, error) {
	if now == nil {
		now = time.Now
	}
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	signer, err := jwtx.NewSignerHS256("", secret)
	if err != nil {
		return nil, err
	}

	return &TokenService{
		Signer:     signer,
		Verifier:   jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{Issuer: issuer, Now: now}),
		Store:      st,
		Issuer:     issuer,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        now,
	}, nil
}

func (s *TokenService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Issue mints a fresh pair for u and records the refresh token.
func (s *TokenService) Issue(ctx context.Context, u domain.User) (*domain.TokenPair, error) {
	return s.issue(ctx, s.Store.RefreshTokens(), u)
}

// Validate checks signature, expiry and token type. Any failure is reported
// as ErrInvalidToken, wrapped around the underlying reason.
func (s *TokenService) Validate(raw string, expected jwtx.TokenType) (jwtx.Claims, error) {
	if raw == "" {
		return jwtx.Claims{}, ErrInvalidToken
	}

	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := claims.ValidateType(expected); err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, jwtx.ErrInvalidClaim)
	}

	return claims, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token is
// revoked in the same transaction the new one is recorded in, and the
// identity claims are re-read from the user record.
//
// Presenting a refresh token that was already rotated away revokes every
// refresh token the user holds.
func (s *TokenService) Refresh(ctx context.Context, raw string) (*domain.TokenPair, domain.User, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Validate(raw, jwtx.TokenTypeRefresh)
	if err != nil {
		return nil, domain.User{}, err
	}

	fp := cryptox.FingerprintToken(claims.ID)

	// 1. Replay check outside the rotation tx so the bulk revoke commits.
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.User{}, ErrInvalidToken
		}
		return nil, domain.User{}, err
	}
	if rt.UserID != claims.Subject {
		return nil, domain.User{}, ErrInvalidToken
	}
	if rt.Revoked {
		l.Warn("revoked refresh token presented, revoking all user sessions", slog.String("user_id", rt.UserID))
		if err := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, rt.UserID); err != nil {
			l.Error("failed to revoke user refresh tokens", slog.Any("err", err))
		}
		return nil, domain.User{}, ErrInvalidToken
	}
	if s.now().After(rt.ExpiresAt) {
		return nil, domain.User{}, ErrInvalidToken
	}

	// 2. Rotate.
	var (
		pair *domain.TokenPair
		user domain.User
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidToken // lost a race with a concurrent refresh
			}
			return err
		}

		u, err := tx.Users().GetUserByID(ctx, rt.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		p, err := s.issue(ctx, tx.RefreshTokens(), u)
		if err != nil {
			return err
		}

		pair, user = p, u
		return nil
	})
	if err != nil {
		return nil, domain.User{}, err
	}

	return pair, user, nil
}

// Revoke is logout. Tokens that don't verify or are already revoked are
// ignored; there's nothing to undo.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	claims, err := s.Validate(raw, jwtx.TokenTypeRefresh)
	if err != nil {
		return nil
	}

	err = s.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(claims.ID))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (s *TokenService) issue(ctx context.Context, refreshTokens store.RefreshTokens, u domain.User) (*domain.TokenPair, error) {
	now := s.now()

	access := jwtx.NewClaims(jwtx.TokenTypeAccess, u.ID, u.Username, u.Email, u.Role.String(), s.AccessTTL, s.Issuer, now)
	refresh := jwtx.NewClaims(jwtx.TokenTypeRefresh, u.ID, u.Username, u.Email, u.Role.String(), s.RefreshTTL, s.Issuer, now)

	accessRaw, err := s.Signer.Sign(access)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshRaw, err := s.Signer.Sign(refresh)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	err = refreshTokens.CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(refresh.ID),
		ExpiresAt: refresh.ExpiresAt.Time,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("record refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:      accessRaw,
		RefreshToken:     refreshRaw,
		AccessExpiresAt:  access.ExpiresAt.Time,
		RefreshExpiresAt: refresh.ExpiresAt.Time,
	}, nil
}
