package domain

import "time"

// TokenPair is what login, refresh and the external callback hand out.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RefreshToken models the stored refresh token record in the DB. The token
// itself is a signed JWT; TokenHash is the fingerprint of its jti.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
