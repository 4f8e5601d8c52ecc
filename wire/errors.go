package wire

import (
	"errors"
	"fmt"
)

// EncodeErrorKind discriminates caller-side argument failures.
type EncodeErrorKind int

const (
	MissingRequired EncodeErrorKind = iota
	TypeMismatch
	UnknownParam
)

// EncodeError is a local validation failure raised before any transport
// activity. It is never retried and never coerced away.
type EncodeError struct {
	Kind     EncodeErrorKind
	Method   string
	Param    string
	Expected string
	Got      string
}

func (e *EncodeError) Error() string {
	switch e.Kind {
	case MissingRequired:
		return fmt.Sprintf("encode %s: missing required parameter %q", e.Method, e.Param)
	case UnknownParam:
		return fmt.Sprintf("encode %s: unknown parameter %q", e.Method, e.Param)
	default:
		return fmt.Sprintf("encode %s: parameter %q: expected %s, got %s", e.Method, e.Param, e.Expected, e.Got)
	}
}

// IsMissingRequired reports whether err is an EncodeError for an omitted
// required parameter.
func IsMissingRequired(err error) bool {
	var ee *EncodeError
	return errors.As(err, &ee) && ee.Kind == MissingRequired
}

// IsTypeMismatch reports whether err is an EncodeError for a structurally
// invalid argument.
func IsTypeMismatch(err error) bool {
	var ee *EncodeError
	return errors.As(err, &ee) && ee.Kind == TypeMismatch
}

// DecodeError reports a response payload that did not match any declared
// shape: schema/documentation drift, not a business error. Repeating the
// call will not change the shape, so it is never retryable.
type DecodeError struct {
	Path     string // JSON path of the failing element, e.g. "result.chat.id"
	Expected string
	Got      string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: shape mismatch at %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

// ErrorKind classifies call-time failures into the closed taxonomy exposed
// to callers.
type ErrorKind string

const (
	// APIRejected: the remote reported a business-logic rejection; code and
	// description are carried verbatim.
	APIRejected ErrorKind = "api_rejected"
	// RateLimited: a rejection carrying a retry delay. Callers use
	// RetryAfter to back off before retrying the same call.
	RateLimited ErrorKind = "rate_limited"
	// TransportFailure: the call never reached or never returned from the
	// remote endpoint. No state is known to have changed, so a retry is
	// always safe.
	TransportFailure ErrorKind = "transport_failure"
	// ShapeMismatch: the response did not match any declared candidate.
	ShapeMismatch ErrorKind = "shape_mismatch"
)

// APIError is the normalized call-time error value.
type APIError struct {
	Kind        ErrorKind
	Code        int    // APIRejected / RateLimited: remote error_code
	Description string // APIRejected / RateLimited: remote description
	RetryAfter  int    // RateLimited: seconds to wait before retrying
	cause       error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case APIRejected:
		return fmt.Sprintf("api error %d: %s", e.Code, e.Description)
	case RateLimited:
		return fmt.Sprintf("api error %d: %s (retry after %ds)", e.Code, e.Description, e.RetryAfter)
	case TransportFailure:
		return fmt.Sprintf("transport failure: %v", e.cause)
	case ShapeMismatch:
		return fmt.Sprintf("shape mismatch: %v", e.cause)
	}
	return string(e.Kind)
}

func (e *APIError) Unwrap() error { return e.cause }

// Retryable reports whether simply repeating the call can succeed:
// transport failures immediately, rate limits after the advertised delay.
// Rejections and shape mismatches will not change on retry.
func (e *APIError) Retryable() bool {
	return e.Kind == TransportFailure || e.Kind == RateLimited
}

func classify(kind ErrorKind) func(error) bool {
	return func(err error) bool {
		var ae *APIError
		return errors.As(err, &ae) && ae.Kind == kind
	}
}

// Predicates for common caller-side handling patterns.
var (
	IsAPIRejected      = classify(APIRejected)
	IsRateLimited      = classify(RateLimited)
	IsTransportFailure = classify(TransportFailure)
	IsShapeMismatch    = classify(ShapeMismatch)
)

// RetryAfter extracts the rate-limit delay in seconds, or 0.
func RetryAfter(err error) int {
	var ae *APIError
	if errors.As(err, &ae) && ae.Kind == RateLimited {
		return ae.RetryAfter
	}
	return 0
}

// NormalizeRejection maps an error envelope into the taxonomy: a rejection
// carrying retry_after becomes RateLimited, anything else APIRejected.
// Code and description are taken verbatim.
func NormalizeRejection(code int, description string, retryAfter *int) *APIError {
	if retryAfter != nil {
		return &APIError{
			Kind:        RateLimited,
			Code:        code,
			Description: description,
			RetryAfter:  *retryAfter,
		}
	}
	return &APIError{Kind: APIRejected, Code: code, Description: description}
}

// NormalizeTransport wraps a transport-level failure (connection error,
// timeout, cancellation). The call never completed, so it is safely
// retryable by the caller.
func NormalizeTransport(err error) *APIError {
	return &APIError{Kind: TransportFailure, cause: err}
}

func shapeMismatch(de *DecodeError) *APIError {
	return &APIError{Kind: ShapeMismatch, cause: de}
}
