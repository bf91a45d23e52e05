// Package apperr defines the request-level error taxonomy and its HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping and logging.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindRateLimited  Kind = "rate_limited"
	KindUpstream     Kind = "upstream"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error carries everything needed to render an error response.
type Error struct {
	Kind       Kind
	Status     int
	Code       string
	Message    string
	Details    map[string]interface{}
	UpgradeURL string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of e with the given detail set.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Code: "unauthorized", Message: message}
}

// Forbidden is returned for entitlement denials; upgradeURL may be empty for
// admin-only routes.
func Forbidden(message, upgradeURL string) *Error {
	return &Error{Kind: KindForbidden, Status: http.StatusForbidden, Code: "forbidden", Message: message, UpgradeURL: upgradeURL}
}

// NotFound is used both for missing resources and for resources owned by
// someone else.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Code: "not_found", Message: resource + " not found"}
}

// Validation reports malformed input; field names the offending request
// field and lands in details.field.
func Validation(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Code:    "validation_error",
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Kind:    KindRateLimited,
		Status:  http.StatusTooManyRequests,
		Code:    "rate_limited",
		Message: "rate limit exceeded",
		Details: map[string]interface{}{"retryAfter": retryAfterSeconds},
	}
}

func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Status: http.StatusInternalServerError, Code: "upstream_error", Message: message, Cause: cause}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Code: "conflict", Message: message}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Code: "internal_error", Message: message, Cause: cause}
}

// From unwraps err into an *Error, or wraps unknown errors as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
