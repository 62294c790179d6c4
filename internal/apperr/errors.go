// Package apperr defines the typed errors returned by the authorization
// gate, the rating aggregator and the services.  Each error carries the
// HTTP status and business code the boundary renders, so handlers never
// guess a status from an error string.
package apperr

import (
	"errors"
	"net/http"
)

// Kind groups errors into the three families of the taxonomy.
type Kind string

const (
	KindAuth   Kind = "auth"   // the caller could not be authenticated (401)
	KindAccess Kind = "access" // the caller is authenticated but not allowed (403)
	KindDomain Kind = "domain" // business rule or lookup failure
)

// Error is an application error with a stable code.
type Error struct {
	kind    Kind
	status  int
	code    string
	message string
	details []string
	cause   error
}

// New creates a new application error.
func New(kind Kind, status int, code, message string) *Error {
	return &Error{kind: kind, status: status, code: code, message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Kind returns the error family.
func (e *Error) Kind() Kind { return e.kind }

// HTTPCode returns the HTTP status code.
func (e *Error) HTTPCode() int { return e.status }

// Code returns the business error code, e.g. STORE_NOT_FOUND.
func (e *Error) Code() string { return e.code }

// Message returns the user facing message.
func (e *Error) Message() string { return e.message }

// Details returns additional messages, e.g. per-field validation errors.
func (e *Error) Details() []string { return e.details }

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches on the code so that copies created by WithDetails or
// WithCause still compare equal to the predefined value.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// WithDetails returns a copy carrying the given detail messages.
func (e *Error) WithDetails(details ...string) *Error {
	cp := *e
	cp.details = append([]string(nil), details...)
	return &cp
}

// WithMessage returns a copy with a different user facing message.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.message = message
	return &cp
}

// WithCause returns a copy wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Authentication errors.
var (
	ErrMissingToken    = New(KindAuth, http.StatusUnauthorized, "MISSING_TOKEN", "Access denied. No token provided")
	ErrInvalidToken    = New(KindAuth, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	ErrUnknownIdentity = New(KindAuth, http.StatusUnauthorized, "UNKNOWN_IDENTITY", "User no longer exists")
)

// Access errors.
var (
	ErrForbidden       = New(KindAccess, http.StatusForbidden, "FORBIDDEN", "Access denied")
	ErrMalformedTarget = New(KindAccess, http.StatusForbidden, "MALFORMED_TARGET", "Access denied. Malformed resource id")
)

// Domain errors.
var (
	ErrStoreNotFound          = New(KindDomain, http.StatusNotFound, "STORE_NOT_FOUND", "Store not found")
	ErrInvalidScore           = New(KindDomain, http.StatusBadRequest, "INVALID_SCORE", "Rating must be between 1 and 5")
	ErrConcurrentModification = New(KindDomain, http.StatusConflict, "CONCURRENT_MODIFICATION", "Rating was modified concurrently, please retry")

	ErrUserNotFound       = New(KindDomain, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	ErrNoOwnedStore       = New(KindDomain, http.StatusNotFound, "NO_STORE", "No store found for this user")
	ErrEmailExists        = New(KindDomain, http.StatusBadRequest, "EMAIL_EXISTS", "User with this email already exists")
	ErrStoreEmailExists   = New(KindDomain, http.StatusBadRequest, "STORE_EMAIL_EXISTS", "Store with this email already exists")
	ErrOwnerHasStore      = New(KindDomain, http.StatusBadRequest, "OWNER_HAS_STORE", "User already has a store")
	ErrInvalidCredentials = New(KindDomain, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrWrongPassword      = New(KindDomain, http.StatusBadRequest, "WRONG_PASSWORD", "Current password is incorrect")
	ErrConflict           = New(KindDomain, http.StatusConflict, "CONFLICT", "Operation conflicts with current state")
	ErrValidation         = New(KindDomain, http.StatusBadRequest, "VALIDATION_ERROR", "Validation error")
)
