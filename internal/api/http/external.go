package http

import (
	"net/http"

	"github.com/aussiebroadwan/collab/internal/api/obs"
	"github.com/aussiebroadwan/collab/internal/api/service"
)

// ExternalHandler serves the external identity provider sign-in.
type ExternalHandler struct {
	External   *service.ExternalAuthService
	Transport  *Transport
	Metrics    *obs.Metrics
	LandingURL string
	Dev        bool // include provider details in error bodies
}

// HandleRedirect godoc
//
//	@Summary		Start external sign-in
//	@Description	Redirects the browser to the identity provider's consent screen. A short-lived state cookie ties the callback to this request.
//	@Tags			External Auth
//	@Success		302
//	@Failure		503	{object}	authsdk.APIError	"provider_not_configured"
//	@Router			/auth/external/redirect [get].
func (h *ExternalHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	target, state, err := h.External.Begin()
	if err != nil {
		writeServiceError(w, r, err, h.Dev)
		return
	}

	h.Transport.SetState(w, state)
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleCallback godoc
//
//	@Summary		External sign-in callback
//	@Description	Exchanges the authorization code with the identity provider, verifies the id_token, finds or creates the user by email and sets the token cookies.
//	@Description	Redirects to the landing page on success. Tokens are never put in the URL.
//	@Tags			External Auth
//	@Produce		json
//	@Param			code	query	string	false	"Authorization code"
//	@Param			state	query	string	false	"State from the redirect"
//	@Success		302
//	@Failure		400	{object}	authsdk.APIError	"missing_authorization_code, invalid_state, provider_exchange_failed, invalid_provider_assertion or missing_email_claim"
//	@Failure		503	{object}	authsdk.APIError	"provider_not_configured"
//	@Router			/auth/external/callback [get].
func (h *ExternalHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expected := h.Transport.TakeState(w, r)

	pair, _, err := h.External.Complete(r.Context(), q.Get("code"), q.Get("state"), expected)
	h.Metrics.AuthEvent(obs.FlowExternal, outcome(err))
	if err != nil {
		writeServiceError(w, r, err, h.Dev)
		return
	}

	// A redirect has no body to put tokens in.
	h.Transport.SetTokenCookies(w, pair)
	http.Redirect(w, r, h.LandingURL, http.StatusFound)
}
