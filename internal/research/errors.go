// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a request-fatal error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConfiguration
	KindRateLimit
	KindServiceUnavailable
	KindUpstream
	KindEmptyResponse
)

var kindNames = map[Kind]string{
	KindValidation:         "ValidationError",
	KindConfiguration:      "ConfigurationError",
	KindRateLimit:          "RateLimitError",
	KindServiceUnavailable: "ServiceUnavailableError",
	KindUpstream:           "UpstreamError",
	KindEmptyResponse:      "EmptyResponseError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// HTTPStatus maps the kind to the status returned to callers.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Public messages per kind. Validation errors carry their own message.
const (
	msgConfiguration      = "Service configuration error"
	msgRateLimit          = "Rate limit exceeded. Please try again later."
	msgServiceUnavailable = "Service temporarily unavailable."
	msgUpstream           = "Service error. Please try again."
	msgEmptyResponse      = "No research data received"

	// MsgInternal is shown for failures outside the taxonomy.
	MsgInternal = "An error occurred. Please try again."
)

// Error is a request-fatal failure. Message is safe to return to callers;
// Err holds the internal cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status is a shorthand for e.Kind.HTTPStatus().
func (e *Error) Status() int { return e.Kind.HTTPStatus() }

// ValidationError wraps a query validation failure.
func ValidationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

func configurationError() *Error {
	return &Error{Kind: KindConfiguration, Message: msgConfiguration}
}

// AsError reports whether err is (or wraps) an *Error and returns it.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
