package http

import (
	"net/http"

	"github.com/aussiebroadwan/collab/internal/api/obs"
	"github.com/aussiebroadwan/collab/internal/api/service"
	"github.com/aussiebroadwan/collab/pkg/authsdk"
	"github.com/aussiebroadwan/collab/pkg/httpx"
)

// AuthHandler serves the password and token endpoints.
type AuthHandler struct {
	Credentials *service.CredentialService
	Tokens      *service.TokenService
	Transport   *Transport
	Metrics     *obs.Metrics
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a password account. Role is optional; only "creator" and "member" may be chosen. Does not log in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest		true	"New account"
//	@Success		201		{object}	authsdk.MessageResponse		"message"
//	@Failure		400		{object}	authsdk.APIError			"validation_error with fields"
//	@Failure		429		{object}	authsdk.APIError			"rate_limit_exceeded"
//	@Router			/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	_, err := h.Credentials.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	h.Metrics.AuthEvent(obs.FlowRegister, outcome(err))
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.MessageResponse{Message: "User created successfully."})
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Exchanges a username and password for an access/refresh token pair.
//	@Description	Tokens are returned in the body, as HttpOnly cookies, or both, depending on the server's delivery policy.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse	"access, refresh, username, email, role"
//	@Failure		400		{object}	authsdk.APIError		"invalid_request"
//	@Failure		401		{object}	authsdk.APIError		"invalid_credentials"
//	@Failure		429		{object}	authsdk.APIError		"rate_limit_exceeded"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/login [post]
//	@Router			/token [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, u, err := h.Credentials.Login(r.Context(), req.Username, req.Password)
	h.Metrics.AuthEvent(obs.FlowLogin, outcome(err))
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	resp := authsdk.TokenResponse{
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role.String(),
	}
	if h.Transport.Deliver(w, pair) {
		resp.Access = pair.AccessToken
		resp.Refresh = pair.RefreshToken
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRefresh godoc
//
//	@Summary		Refresh
//	@Description	Rotates a refresh token into a new pair. The refresh token is read from the body, or from the refresh_token cookie when the body has none.
//	@Description	Presenting a refresh token that was already rotated revokes every session the user holds.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	false	"Refresh token"
//	@Success		200		{object}	authsdk.RefreshResponse	"access, refresh"
//	@Failure		401		{object}	authsdk.APIError		"invalid_token"
//	@Failure		429		{object}	authsdk.APIError		"rate_limit_exceeded"
//	@Router			/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
	}

	raw := RefreshFromRequest(r, req.Refresh)
	pair, _, err := h.Tokens.Refresh(r.Context(), raw)
	h.Metrics.AuthEvent(obs.FlowRefresh, outcome(err))
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	var resp authsdk.RefreshResponse
	if h.Transport.Deliver(w, pair) {
		resp.Access = pair.AccessToken
		resp.Refresh = pair.RefreshToken
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the refresh token (body or cookie) and clears the token cookies. Always succeeds.
//	@Tags			Auth
//	@Accept			json
//	@Param			body	body	authsdk.RefreshRequest	false	"Refresh token"
//	@Success		204
//	@Router			/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
	}

	if err := h.Tokens.Revoke(r.Context(), RefreshFromRequest(r, req.Refresh)); err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	h.Transport.ClearTokenCookies(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Returns the profile of the user the access token (header or cookie) belongs to.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.APIError	"invalid_token"
//	@Router			/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	u, err := h.Credentials.User(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse(u))
}
