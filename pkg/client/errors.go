package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Sternrassler/github-api-client/pkg/ratelimit"
)

// Common errors returned by the client.
var (
	// ErrInvalidConfig is returned by New for unusable configurations.
	ErrInvalidConfig = errors.New("invalid client config")

	// ErrRateLimitBlocked is the cause of errors for requests refused
	// locally because the rate limit budget is exhausted.
	ErrRateLimitBlocked = errors.New("request blocked: rate limit exhausted")

	// ErrSchedulerContract is returned by Populate if a batch does not
	// yield exactly one result per request.
	ErrSchedulerContract = errors.New("scheduler returned a result set of the wrong size")
)

// ErrorKind classifies a ClientError.
type ErrorKind string

const (
	// KindTransport represents requests that produced no response.
	KindTransport ErrorKind = "transport"

	// KindMalformedBody represents 200 responses whose body is not JSON.
	KindMalformedBody ErrorKind = "malformed_body"

	// KindBadCredentials represents 401 responses.
	KindBadCredentials ErrorKind = "bad_credentials"

	// KindRateLimited represents 403 responses with an exhausted budget.
	KindRateLimited ErrorKind = "rate_limited"

	// KindForbidden represents any other 403 response.
	KindForbidden ErrorKind = "forbidden"

	// KindNotFound represents 404 responses.
	KindNotFound ErrorKind = "not_found"

	// KindUnexpectedStatus represents every other status code.
	KindUnexpectedStatus ErrorKind = "unexpected_status"
)

// ClientError is the error type of every failed GitHub request.
//
// Exposable errors carry a message and description that may be shown to an
// API consumer verbatim; see Expose.
type ClientError struct {
	Status      int
	Kind        ErrorKind
	Message     string
	Description string
	Err         error
	Exposable   bool
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	msg := fmt.Sprintf("github %s error (status %d): %s", e.Kind, e.Status, e.Message)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewTransportError classifies a request that produced no response.
func NewTransportError(cause error) *ClientError {
	return &ClientError{
		Status:    http.StatusInternalServerError,
		Kind:      KindTransport,
		Message:   "Request failed",
		Err:       cause,
		Exposable: true,
	}
}

// NewMalformedBodyError classifies a 200 response whose body cannot be decoded.
func NewMalformedBodyError(cause error) *ClientError {
	return &ClientError{
		Status:    http.StatusInternalServerError,
		Kind:      KindMalformedBody,
		Message:   "Cannot parse JSON body",
		Err:       cause,
		Exposable: true,
	}
}

// NewRateLimitBlockedError is returned for requests refused before dispatch
// because the recorded budget is exhausted.
func NewRateLimitBlockedError(state *ratelimit.RateLimitState) *ClientError {
	return &ClientError{
		Status:      http.StatusForbidden,
		Kind:        KindRateLimited,
		Message:     "Forbidden",
		Description: fmt.Sprintf("API rate limit exceeded. Rate limits will be reset at: %d", state.ResetAt.Unix()),
		Err:         ErrRateLimitBlocked,
		Exposable:   true,
	}
}

// Classify maps a non-success response to a ClientError. requestURL must
// not contain credentials: it ends up in exposable descriptions.
func Classify(status int, header http.Header, body []byte, requestURL string) *ClientError {
	switch status {
	case http.StatusUnauthorized:
		return &ClientError{
			Status:      http.StatusUnauthorized,
			Kind:        KindBadCredentials,
			Message:     "Bad credentials",
			Description: fmt.Sprintf("GitHub rejected the configured credentials: %s", strings.TrimSpace(string(body))),
			Exposable:   true,
		}

	case http.StatusForbidden:
		e := &ClientError{
			Status:    http.StatusForbidden,
			Kind:      KindForbidden,
			Message:   "Forbidden",
			Exposable: true,
		}
		if header.Get(ratelimit.HeaderRemaining) == "0" {
			e.Kind = KindRateLimited
			e.Description = rateLimitDescription(header)
		}
		return e

	case http.StatusNotFound:
		return &ClientError{
			Status:      http.StatusNotFound,
			Kind:        KindNotFound,
			Message:     "Resource not found",
			Description: fmt.Sprintf("Requested URL: %s", requestURL),
			Exposable:   true,
		}

	default:
		return &ClientError{
			Status:      http.StatusInternalServerError,
			Kind:        KindUnexpectedStatus,
			Message:     "Unexpected response",
			Description: fmt.Sprintf("Status: %d, body: %s", status, strings.TrimSpace(string(body))),
			Exposable:   true,
		}
	}
}

func rateLimitDescription(header http.Header) string {
	const prefix = "API rate limit exceeded."
	if reset := header.Get(ratelimit.HeaderReset); reset != "" {
		return prefix + " Rate limits will be reset at: " + reset
	}
	if retryAfter := header.Get(ratelimit.HeaderRetryAfter); retryAfter != "" {
		return prefix + " Retry after " + retryAfter + " seconds"
	}
	return prefix
}

// Expose returns what may be shown to an API consumer for err. Exposable
// ClientErrors keep their status, message and description; anything else
// becomes a generic internal server error.
func Expose(err error) (status int, message, description string) {
	var ce *ClientError
	if errors.As(err, &ce) && ce.Exposable {
		return ce.Status, ce.Message, ce.Description
	}
	return http.StatusInternalServerError, "internal server error", ""
}
