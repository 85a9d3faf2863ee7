// Package apperr defines the error taxonomy shared by every PumpBot operation
// and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the API boundary.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindExecution  Kind = "execution"
	KindTooLarge   Kind = "too_large"
	KindInternal   Kind = "internal"
)

// Error is a classified, user presentable failure.
type Error struct {
	Kind    Kind
	Label   string
	Reasons []string
	Hint    string
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Label, e.Cause)
	}
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("%s: %v", e.Label, e.Reasons)
	}
	return e.Label
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindExecution:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// WithHint sets the retry or usage hint.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithDetail attaches a structured detail.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func Validation(label string, reasons ...string) *Error {
	return &Error{Kind: KindValidation, Label: label, Reasons: reasons}
}

func NotFound(label string, reasons ...string) *Error {
	return &Error{Kind: KindNotFound, Label: label, Reasons: reasons}
}

func Conflict(label string, reasons ...string) *Error {
	return &Error{Kind: KindConflict, Label: label, Reasons: reasons}
}

func Execution(label string, reasons ...string) *Error {
	return &Error{Kind: KindExecution, Label: label, Reasons: reasons}
}

func TooLarge(label string, reasons ...string) *Error {
	return &Error{Kind: KindTooLarge, Label: label, Reasons: reasons}
}

// Internal wraps an unexpected failure. The cause is only disclosed in debug mode.
func Internal(label string, cause error) *Error {
	return &Error{Kind: KindInternal, Label: label, Cause: cause}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
