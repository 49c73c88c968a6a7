// Package apperror provides coded errors shared by every layer of the pricer.
package apperror

import (
	"errors"
	"strings"
)

// AppError is an error tagged with a Code. Two AppErrors match under
// errors.Is when their codes are equal.
type AppError struct {
	Code    Code
	Message string
	Context string
	cause   error
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error { return e.cause }

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// Kind is shorthand for e.Code.Kind().
func (e *AppError) Kind() Kind { return e.Code.Kind() }

// LogFields flattens the error for the structured logger.
func (e *AppError) LogFields() []any {
	return []any{"error_code", string(e.Code), "error_kind", e.Kind().String(), "error", e.Error()}
}

// Option customizes an AppError.
type Option func(*AppError)

// WithContext records what was being done, e.g. the failing key or URL.
func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

// WithCause sets the wrapped error.
func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// New builds an AppError with the catalog message for code.
func New(code Code, opts ...Option) *AppError {
	e := &AppError{Code: code, Message: catalog[code].message}
	for _, opt := range opts {
		opt(e)
	}
	if e.Message == "" {
		e.Message = strings.ToLower(strings.ReplaceAll(string(code), "_", " "))
	}
	return e
}

// NotFound and Validation are shorthands for New with only a context.
func NotFound(code Code, context string) *AppError {
	return New(code, WithContext(context))
}

func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context))
}

// Required panics with CodeRequiredField when v is nil. Constructors use it
// to reject missing collaborators.
func Required[T any](v *T, field string) {
	if v == nil {
		panic(Validation(CodeRequiredField, field))
	}
}

// GetCode returns the code of the first AppError in err's chain, or
// CodeUnknownError.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// HasCode reports whether err carries any of codes.
func HasCode(err error, codes ...Code) bool {
	if err == nil {
		return false
	}
	got := GetCode(err)
	for _, c := range codes {
		if got == c {
			return true
		}
	}
	return false
}

// KindOf classifies err. Errors that are not AppErrors are internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}
	return KindInternal
}
