// Package apierrors defines the error kinds surfaced by the gateway and the
// HTTP status each kind maps to.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway error.
type Kind int

const (
	KindInternal Kind = iota
	KindTenantNotFound
	KindEntryNotFound
	KindDuplicateEntry
	KindValidation
	KindMissingPathParameter
	KindTransportFailure
)

var kindNames = map[Kind]string{
	KindInternal:             "INTERNAL",
	KindTenantNotFound:       "TENANT_NOT_FOUND",
	KindEntryNotFound:        "ENTRY_NOT_FOUND",
	KindDuplicateEntry:       "DUPLICATE_ENTRY",
	KindValidation:           "VALIDATION_ERROR",
	KindMissingPathParameter: "MISSING_PATH_PARAMETER",
	KindTransportFailure:     "TRANSPORT_FAILURE",
}

// String returns the wire code of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindInternal]
}

// HTTPStatus maps the kind to a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindTenantNotFound, KindEntryNotFound:
		return http.StatusNotFound
	case KindDuplicateEntry:
		return http.StatusConflict
	case KindValidation, KindMissingPathParameter:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a structured gateway error.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	// Status overrides the kind's status; set for transport failures that
	// happened after the upstream already answered with a status line.
	Status int
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status to respond with.
func (e *Error) HTTPStatus() int {
	if e.Status > 0 {
		return e.Status
	}
	return e.Kind.HTTPStatus()
}

// WithDetail attaches a detail field and returns e.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func TenantNotFound(tenantID string) *Error {
	return New(KindTenantNotFound, "tenant %q not found", tenantID).
		WithDetail("tenantId", tenantID)
}

func EntryNotFound(tenantID, section, apiName string) *Error {
	return New(KindEntryNotFound, "api %q not found in section %q for tenant %q", apiName, section, tenantID).
		WithDetail("section", section).
		WithDetail("apiName", apiName)
}

func DuplicateEntry(section, apiName string) *Error {
	return New(KindDuplicateEntry, "api %q already exists in section %q", apiName, section).
		WithDetail("section", section).
		WithDetail("apiName", apiName)
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// MissingPathParameter reports a placeholder with no supplied segment.
func MissingPathParameter(name string, expected, got int) *Error {
	return New(KindMissingPathParameter,
		"missing value for path parameter %q: expected %d segment(s), got %d", name, expected, got).
		WithDetail("parameter", name).
		WithDetail("expected", expected).
		WithDetail("got", got)
}

// TransportFailure reports that the upstream could not be reached or read.
func TransportFailure(cause error, format string, args ...interface{}) *Error {
	return Wrap(KindTransportFailure, cause, format, args...)
}

func Internal(cause error, format string, args ...interface{}) *Error {
	return Wrap(KindInternal, cause, format, args...)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
