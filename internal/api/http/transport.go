package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/collab/internal/api/domain"
	"github.com/aussiebroadwan/collab/pkg/httpx"
)

// Delivery decides where issued tokens go: the JSON body, cookies, or both.
type Delivery string

const (
	DeliveryBody   Delivery = "body"
	DeliveryCookie Delivery = "cookie"
	DeliveryBoth   Delivery = "both"
)

func ParseDelivery(s string) (Delivery, error) {
	switch d := Delivery(strings.ToLower(strings.TrimSpace(s))); d {
	case DeliveryBody, DeliveryCookie, DeliveryBoth:
		return d, nil
	case "":
		return DeliveryBoth, nil
	default:
		return "", fmt.Errorf("unknown token delivery %q (want body, cookie or both)", s)
	}
}

func (d Delivery) Body() bool    { return d == DeliveryBody || d == DeliveryBoth }
func (d Delivery) Cookies() bool { return d == DeliveryCookie || d == DeliveryBoth }

const (
	RefreshTokenCookie = "refresh_token"
	StateCookie        = "oauth_state"

	stateCookieTTL = 10 * time.Minute
)

// Transport writes tokens to responses and reads them back from requests.
// Every cookie it sets is HttpOnly and SameSite=Lax.
type Transport struct {
	Delivery Delivery
	Secure   bool
	Domain   string
	Now      func() time.Time
}

func (t *Transport) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

// SetTokenCookies sets the access and refresh cookies, each living as long
// as its token.
func (t *Transport) SetTokenCookies(w http.ResponseWriter, pair *domain.TokenPair) {
	now := t.now()
	http.SetCookie(w, t.cookie(httpx.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt.Sub(now)))
	http.SetCookie(w, t.cookie(RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt.Sub(now)))
}

// ClearTokenCookies expires both token cookies.
func (t *Transport) ClearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, t.expired(httpx.AccessTokenCookie))
	http.SetCookie(w, t.expired(RefreshTokenCookie))
}

// Deliver applies the delivery policy. It reports whether the tokens
// belong in the response body.
func (t *Transport) Deliver(w http.ResponseWriter, pair *domain.TokenPair) bool {
	if t.Delivery.Cookies() {
		t.SetTokenCookies(w, pair)
	}
	return t.Delivery.Body()
}

// SetState remembers the external sign-in state until the callback.
func (t *Transport) SetState(w http.ResponseWriter, state string) {
	c := t.cookie(StateCookie, state, stateCookieTTL)
	c.Path = "/auth/external"
	http.SetCookie(w, c)
}

// TakeState returns the remembered state and clears it; a state is good
// for one callback.
func (t *Transport) TakeState(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return ""
	}
	expired := t.expired(StateCookie)
	expired.Path = "/auth/external"
	http.SetCookie(w, expired)
	return c.Value
}

// RefreshFromRequest returns the refresh token from the body value if set,
// else from the refresh cookie.
func RefreshFromRequest(r *http.Request, fromBody string) string {
	if fromBody = strings.TrimSpace(fromBody); fromBody != "" {
		return fromBody
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func (t *Transport) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   t.Domain,
		MaxAge:   max(int(ttl.Seconds()), 1),
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (t *Transport) expired(name string) *http.Cookie {
	c := t.cookie(name, "", 0)
	c.MaxAge = -1
	return c
}
