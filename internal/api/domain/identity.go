package domain

// ExternalIdentity is what a verified provider id_token tells us about the
// person signing in. It's used once to resolve a local user then dropped.
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
