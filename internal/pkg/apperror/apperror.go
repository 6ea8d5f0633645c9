package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers that need to decide whether to retry,
// pick another resource or give up.
type Kind string

const (
	KindForbidden      Kind = "forbidden"
	KindConflict       Kind = "conflict"
	KindInvalidRequest Kind = "invalid_request"
	KindNotFound       Kind = "not_found"
	KindGatewayFailure Kind = "gateway_failure"
	KindInternal       Kind = "internal"
)

// Status returns the HTTP status code used when the kind reaches the API surface.
func (k Kind) Status() int {
	switch k {
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindGatewayFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is a custom error type that includes an HTTP status code, a kind and a machine-readable reason.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Kind    Kind   // Taxonomy bucket
	Reason  string // Stable machine-readable reason (e.g. "resource_unavailable")
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by kind and reason so that wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason && e.Reason != ""
}

// New creates a new AppError of the given kind.
func New(kind Kind, reason, message string) *AppError {
	return &AppError{
		Code:    kind.Status(),
		Kind:    kind,
		Reason:  reason,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, kind Kind, reason, message string) *AppError {
	return &AppError{
		Code:    kind.Status(),
		Kind:    kind,
		Reason:  reason,
		Message: message,
		Err:     err,
	}
}

// WithCause returns a copy of a sentinel carrying the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// KindOf reports the kind of err, or KindInternal when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
