// Package domainerrors carries the error taxonomy shared by services, stores
// and transports. Callers branch on the Code (and optionally the Reason), never
// on message text, so the taxonomy must survive every layer unchanged.
package domainerrors

import (
	"errors"
	"fmt"
	"maps"
)

// Code classifies a domain error. Transports map codes to status codes.
type Code string

const (
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeUnavailable        Code = "unavailable"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is the concrete domain error.
//
// Reason is a stable, machine-readable sub-kind (e.g. "already_submitted")
// and Details carries routing hints such as the profile status behind an
// authorization failure.
type Error struct {
	Code    Code
	Message string
	Reason  string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithReason returns a copy of e tagged with reason.
func (e *Error) WithReason(reason string) *Error {
	cp := *e
	cp.Reason = reason
	cp.Details = maps.Clone(e.Details)
	return &cp
}

// WithDetail returns a copy of e with key=value added to Details.
func (e *Error) WithDetail(key, value string) *Error {
	cp := *e
	cp.Details = maps.Clone(e.Details)
	if cp.Details == nil {
		cp.Details = make(map[string]string, 1)
	}
	cp.Details[key] = value
	return &cp
}

// New creates a domain error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap annotates err with a domain code.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost domain error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in err's chain carries code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is kept for handlers that read better with it; same as HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// HasReason reports whether err is a domain error tagged with reason.
func HasReason(err error, reason string) bool {
	de, ok := As(err)
	return ok && de.Reason == reason
}

// Detail returns a detail value from the outermost domain error, if any.
func Detail(err error, key string) string {
	de, ok := As(err)
	if !ok {
		return ""
	}
	return de.Details[key]
}
