package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/collab/internal/api/service"
	"github.com/aussiebroadwan/collab/pkg/authsdk"
	"github.com/aussiebroadwan/collab/pkg/slogx"
)

// writeServiceError maps a service error onto its API error. Anything not
// recognised is logged and reported as a 500. Provider details are only
// included when showDetails is set (development).
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, showDetails bool) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		authsdk.NewValidationError(verr.Fields).WriteError(w)
		return
	}

	var xerr *service.ExchangeError
	if errors.As(err, &xerr) {
		apiErr := exchangeAPIError(xerr.Kind)
		if showDetails && xerr.Details != "" {
			apiErr = apiErr.WithDetails(xerr.Details)
		}
		apiErr.WriteError(w)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		authsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		authsdk.ErrForbidden.WriteError(w)
	case errors.Is(err, service.ErrProviderNotConfigured):
		authsdk.ErrProviderNotConfigured.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

func exchangeAPIError(kind error) *authsdk.APIError {
	switch kind {
	case service.ErrMissingAuthorizationCode:
		return authsdk.ErrMissingAuthorizationCode
	case service.ErrInvalidState:
		return authsdk.ErrInvalidState
	case service.ErrProviderExchangeFailed:
		return authsdk.ErrProviderExchangeFailed
	case service.ErrInvalidProviderAssertion:
		return authsdk.ErrInvalidProviderAssertion
	case service.ErrMissingEmailClaim:
		return authsdk.ErrMissingEmailClaim
	default:
		return authsdk.ErrServerError
	}
}

// outcome is the metrics label for err.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return authsdk.ErrorCodeValidation
	}
	var xerr *service.ExchangeError
	if errors.As(err, &xerr) {
		return xerr.Code()
	}

	for _, known := range []error{service.ErrInvalidCredentials, service.ErrInvalidToken, service.ErrProviderNotConfigured} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return authsdk.ErrorCodeServerError
}
