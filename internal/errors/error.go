package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryNavigation Category = "navigation"
	CategoryRouteTable Category = "route-table"
	CategoryLoader     Category = "loader"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// Error is a structured error with a registered code, a category and an
// optional hint for the operator.
type Error struct {
	// Code is a unique error identifier (e.g., "N001").
	Code string

	// Category is the error type (navigation, config, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, usually naming the offending path or record.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same code.
// Uncoded errors only match themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code == "" || t.Code == "" {
		return e == t
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error with a detailed explanation.
// Copying keeps package-level sentinels immutable.
func (e *Error) WithDetail(d string) *Error {
	c := *e
	c.Detail = d
	return &c
}

// WithDetailf is WithDetail with formatting.
func (e *Error) WithDetailf(format string, args ...any) *Error {
	return e.WithDetail(fmt.Sprintf(format, args...))
}

// WithSuggestion returns a copy of the error with a fix suggestion.
func (e *Error) WithSuggestion(s string) *Error {
	c := *e
	c.Suggestion = s
	return &c
}

// Wrap returns a copy of the error wrapping err.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Wrapped = err
	return &c
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first coded Error in err's chain, or "".
func CodeOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code != "" {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
