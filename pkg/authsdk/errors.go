package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/collab/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeValidation         = "validation_error"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeRateLimited        = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
	ErrorCodeUnavailable        = "service_unavailable"

	// External sign-in failures, in the order the callback checks them.
	ErrorCodeProviderNotConfigured    = "provider_not_configured"
	ErrorCodeMissingAuthorizationCode = "missing_authorization_code"
	ErrorCodeInvalidState             = "invalid_state"
	ErrorCodeProviderExchangeFailed   = "provider_exchange_failed"
	ErrorCodeInvalidProviderAssertion = "invalid_provider_assertion"
	ErrorCodeMissingEmailClaim        = "missing_email_claim"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the error body every endpoint returns. The server writes it
// with WriteError and the SDK client parses failed responses back into it.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the stable machine readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description,omitempty"`

	// Fields holds per-field problems for validation errors
	Fields map[string]string `json:"fields,omitempty"`

	// Details is extra debugging information, only sent in development
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// WithDetails returns a copy of e carrying details.
func (e *APIError) WithDetails(details string) *APIError {
	c := *e
	c.Details = details
	return &c
}

// Is lets errors.Is match on status and code so callers can compare
// against the predefined values below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// NewAPIError creates a new APIError with the given status code, error code, and description.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// NewValidationError builds the 400 returned for invalid input.
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeValidation,
		Description: "one or more fields are invalid",
		Fields:      fields,
	}
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	// ErrInvalidRequest is returned when the body can't be decoded.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials is returned for any failed password login. It
	// doesn't say which part was wrong.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "no active account found with the given credentials",
	}

	// ErrInvalidToken is returned when a token is missing, invalid, expired or revoked.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is missing, invalid, expired or revoked",
	}

	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "you do not have permission to perform this action",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}

	// ErrServerError is returned when the server hit something unexpected.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrProviderNotConfigured = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeProviderNotConfigured,
		Description: "external sign-in is not configured",
	}

	ErrMissingAuthorizationCode = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeMissingAuthorizationCode,
		Description: "missing authorization code",
	}

	ErrInvalidState = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidState,
		Description: "state does not match the sign-in request",
	}

	ErrProviderExchangeFailed = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeProviderExchangeFailed,
		Description: "identity provider token exchange failed",
	}

	ErrInvalidProviderAssertion = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidProviderAssertion,
		Description: "invalid identity provider id_token",
	}

	ErrMissingEmailClaim = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeMissingEmailClaim,
		Description: "email is required from the identity provider account",
	}
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a failed HTTP response into an *APIError.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
