package peripheral

import (
	"errors"
	"fmt"
)

// Error codes for peripheral operations.
const (
	ErrCodeOpenFailed       = "OPEN_FAILED"
	ErrCodeConfigureFailed  = "CONFIGURE_FAILED"
	ErrCodeReadFailed       = "READ_FAILED"
	ErrCodeWriteFailed      = "WRITE_FAILED"
	ErrCodeCloseFailed      = "CLOSE_FAILED"
	ErrCodeNotOpen          = "NOT_OPEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeDanglingResource = "DANGLING_RESOURCE"
)

// Sentinels for errors.Is. Only the code is compared.
var (
	ErrNotOpen          = &Error{Code: ErrCodeNotOpen}
	ErrNotFound         = &Error{Code: ErrCodeNotFound}
	ErrDanglingResource = &Error{Code: ErrCodeDanglingResource}
)

// Error is a failure on a specific named hardware line.
type Error struct {
	Code  string
	Op    string
	Name  string
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Kind != "" {
		msg += " " + string(e.Kind)
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so callers can test against the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new peripheral error.
func NewError(code, op, name string, kind Kind, cause error) *Error {
	return &Error{
		Code:  code,
		Op:    op,
		Name:  name,
		Kind:  kind,
		Cause: cause,
	}
}

// CodeOf returns the peripheral error code carried by err, or "" if none.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
