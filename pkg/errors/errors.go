// Package errors defines the storefront's tagged error type. Every failure
// that crosses a package boundary carries a Kind, which decides the HTTP
// status and lets callers branch without matching messages.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindConflict
	// KindUnavailable means the backend could not be reached: network
	// failure, timeout or an open circuit breaker.
	KindUnavailable
	// KindUpstream means the backend answered, but with a 5xx or a body
	// that could not be decoded.
	KindUpstream
)

var kindNames = [...]string{
	KindInternal:     "internal",
	KindNotFound:     "not_found",
	KindInvalidInput: "invalid_input",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindConflict:     "conflict",
	KindUnavailable:  "unavailable",
	KindUpstream:     "upstream",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Status is the HTTP status a bare error of kind k is reported with.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Sentinel errors matched with errors.Is across package boundaries. Each
// AppError wraps the sentinel of its kind unless it carries its own cause.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrUpstream       = errors.New("upstream error")
)

var sentinels = map[Kind]error{
	KindNotFound:     ErrNotFound,
	KindInvalidInput: ErrInvalidInput,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindInternal:     ErrInternal,
	KindConflict:     ErrConflict,
	KindUnavailable:  ErrServiceUnavail,
	KindUpstream:     ErrUpstream,
}

// AppError is an error with a kind, a client-facing code and message, and
// the HTTP status it is written with.
type AppError struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// New builds an AppError of kind with the kind's default status.
func New(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Status: kind.Status(), Err: sentinels[kind]}
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err != sentinels[e.Kind] {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's kind even when Err holds another cause.
func (e *AppError) Is(target error) bool {
	return target == sentinels[e.Kind]
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return New(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return New(KindInvalidInput, "INVALID_INPUT", message)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return New(KindUnauthorized, "UNAUTHORIZED", message)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return New(KindForbidden, "FORBIDDEN", message)
}

// Conflict creates a 409 error with the generic CONFLICT code.
func Conflict(message string) *AppError {
	return ConflictCode("CONFLICT", message)
}

// ConflictCode creates a 409 error carrying a domain-specific code, e.g.
// ORDER_NOT_EDITABLE, so clients can branch without parsing the message.
func ConflictCode(code, message string) *AppError {
	return New(KindConflict, code, message)
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return New(KindUnavailable, "SERVICE_UNAVAILABLE", message)
}

// Upstream reports a backend that answered unusably. cause may be nil.
func Upstream(message string, cause error) *AppError {
	e := New(KindUpstream, "UPSTREAM_ERROR", message)
	if cause != nil {
		e.Err = cause
	}
	return e
}

// Internal hides cause behind a generic message.
func Internal(err error) *AppError {
	e := New(KindInternal, "INTERNAL_ERROR", "an internal error occurred")
	if err != nil {
		e.Err = err
	}
	return e
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// KindOf returns the kind of the first AppError in err's chain, falling back
// to sentinel matching. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	for _, k := range []Kind{KindNotFound, KindInvalidInput, KindUnauthorized, KindForbidden, KindConflict, KindUnavailable, KindUpstream} {
		if errors.Is(err, sentinels[k]) {
			return k
		}
	}
	return KindInternal
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return KindOf(err).Status()
}
