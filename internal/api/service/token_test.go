package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/collab/pkg/cryptox"
	"github.com/aussiebroadwan/collab/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice", "correct-horse")

	pair, err := f.tokens.Issue(ctx, u)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.WithinDuration(t, f.clock.Now().Add(15*time.Minute), pair.AccessExpiresAt, 0)
	require.WithinDuration(t, f.clock.Now().Add(24*time.Hour), pair.RefreshExpiresAt, 0)

	claims, err := f.tokens.Validate(pair.AccessToken, jwtx.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.Subject)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "member", claims.Role)
	require.Equal(t, "collab-test", claims.Issuer)

	rt, err := f.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(mustClaims(t, f, pair.RefreshToken).ID))
	require.NoError(t, err)
	require.Equal(t, u.ID, rt.UserID)
	require.False(t, rt.Revoked)
}

func mustClaims(t *testing.T, f *fixture, raw string) jwtx.Claims {
	t.Helper()
	c, err := f.tokens.Validate(raw, jwtx.TokenTypeRefresh)
	require.NoError(t, err)
	return c
}

func TestTokenService_Expiry(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice", "correct-horse")

	pair, err := f.tokens.Issue(context.Background(), u)
	require.NoError(t, err)

	_, err = f.tokens.Validate(pair.AccessToken, jwtx.TokenTypeAccess)
	require.NoError(t, err)

	f.clock.Advance(15*time.Minute + time.Second)

	_, err = f.tokens.Validate(pair.AccessToken, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrExpired)

	// Refresh outlives access.
	_, err = f.tokens.Validate(pair.RefreshToken, jwtx.TokenTypeRefresh)
	require.NoError(t, err)
}

func TestTokenService_TypeConfusion(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice", "correct-horse")

	pair, err := f.tokens.Issue(context.Background(), u)
	require.NoError(t, err)

	_, err = f.tokens.Validate(pair.RefreshToken, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.tokens.Validate(pair.AccessToken, jwtx.TokenTypeRefresh)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = f.tokens.Refresh(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ValidateRejectsGarbage(t *testing.T) {
	f := newFixture(t)

	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := f.tokens.Validate(raw, jwtx.TokenTypeAccess)
		require.ErrorIs(t, err, ErrInvalidToken, raw)
	}

	// Same claims, different key.
	other, err := jwtx.NewSignerHS256("", []byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)
	forged, err := other.Sign(jwtx.NewClaims(jwtx.TokenTypeAccess, "u1", "mallory", "", "admin", time.Hour, "collab-test", f.clock.Now()))
	require.NoError(t, err)

	_, err = f.tokens.Validate(forged, jwtx.TokenTypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestTokenService_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice", "correct-horse")

	first, err := f.tokens.Issue(ctx, u)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)

	t.Run("rotates and revokes the old record", func(t *testing.T) {
		second, user, err := f.tokens.Refresh(ctx, first.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, user.ID)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)

		old, err := f.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(mustClaims(t, f, first.RefreshToken).ID))
		require.NoError(t, err)
		require.True(t, old.Revoked)

		claims, err := f.tokens.Validate(second.AccessToken, jwtx.TokenTypeAccess)
		require.NoError(t, err)
		require.Equal(t, u.ID, claims.Subject)

		t.Run("replay revokes every session", func(t *testing.T) {
			_, _, err := f.tokens.Refresh(ctx, first.RefreshToken)
			require.ErrorIs(t, err, ErrInvalidToken)

			_, _, err = f.tokens.Refresh(ctx, second.RefreshToken)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	})

	t.Run("unknown record", func(t *testing.T) {
		stray, err := f.tokens.Signer.Sign(jwtx.NewClaims(jwtx.TokenTypeRefresh, u.ID, u.Username, u.Email, "member", time.Hour, "collab-test", f.clock.Now()))
		require.NoError(t, err)

		_, _, err = f.tokens.Refresh(ctx, stray)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_RefreshRereadsClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.credentials.Register(ctx, RegisterInput{
		Username: "carol", Email: "carol@example.com", Password: "correct-horse", Role: "creator",
	})
	require.NoError(t, err)

	pair, err := f.tokens.Issue(ctx, u)
	require.NoError(t, err)

	_, err = f.store.DB().ExecContext(ctx, `UPDATE users SET role = 'admin' WHERE id = ?`, u.ID)
	require.NoError(t, err)

	next, _, err := f.tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := f.tokens.Validate(next.AccessToken, jwtx.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)
}

func TestTokenService_Revoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice", "correct-horse")

	pair, err := f.tokens.Issue(ctx, u)
	require.NoError(t, err)

	require.NoError(t, f.tokens.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, f.tokens.Revoke(ctx, pair.RefreshToken), "idempotent")
	require.NoError(t, f.tokens.Revoke(ctx, "not-a-token"))

	_, _, err = f.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenService_WeakSecret(t *testing.T) {
	_, err := NewTokenService(nil, []byte("short"), "x", 0, 0, nil)
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
