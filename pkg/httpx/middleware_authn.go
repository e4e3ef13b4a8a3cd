package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/collab/pkg/jwtx"
	"github.com/aussiebroadwan/collab/pkg/slogx"
)

// AccessTokenCookie is the cookie the access token is delivered in.
const AccessTokenCookie = "access_token"

// Credential sources, used for logging only.
const (
	SourceHeader = "header"
	SourceCookie = "cookie"
)

// TokenFromRequest recovers the access token for a request. The
// Authorization header wins; the cookie is only consulted when no header
// is present at all.
func TokenFromRequest(r *http.Request, cookieName string) (raw, source string) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, tok, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", SourceHeader
		}
		return strings.TrimSpace(tok), SourceHeader
	}

	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, SourceCookie
	}

	return "", ""
}

// AuthnMiddleware authenticates every request it wraps with an access token
// taken from the Authorization header or the access token cookie. Refresh
// tokens are rejected even though they carry a valid signature.
func AuthnMiddleware(v jwtx.Verifier, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, source := TokenFromRequest(r, cookieName)
			if raw == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err, "source", source)
				return
			}

			if err := claims.ValidateType(jwtx.TokenTypeAccess); err != nil {
				writeBearerError(w, "not an access token")
				log.Warn("jwt wrong token type", "token_type", claims.TokenType, "source", source)
				return
			}

			// Inject into context for downstream handlers.
			ctx = ContextWithClaims(ctx, claims)
			ctx = slogx.With(ctx, "user_id", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
