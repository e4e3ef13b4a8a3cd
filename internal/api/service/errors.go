package service

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")

	// External identity exchange, in the order the steps run.
	ErrProviderNotConfigured    = errors.New("provider_not_configured")
	ErrMissingAuthorizationCode = errors.New("missing_authorization_code")
	ErrInvalidState             = errors.New("invalid_state")
	ErrProviderExchangeFailed   = errors.New("provider_exchange_failed")
	ErrInvalidProviderAssertion = errors.New("invalid_provider_assertion")
	ErrMissingEmailClaim        = errors.New("missing_email_claim")

	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries per-field problems back to the caller. Field
// names match the JSON request fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a problem with field. The first problem per field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e if any field was recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ExchangeError is a failed external identity exchange. Kind is one of the
// exchange sentinels above; Details holds whatever the provider said and is
// only shown to callers in dev.
type ExchangeError struct {
	Kind    error
	Details string
	Err     error
}

func (e *ExchangeError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExchangeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code is the stable error code reported to clients.
func (e *ExchangeError) Code() string { return e.Kind.Error() }

func exchangeErr(kind error, err error, details string) *ExchangeError {
	return &ExchangeError{Kind: kind, Err: err, Details: details}
}
