// Package apperr defines the error kinds shared by every layer.
//
// Callers classify failures with errors.Is against the sentinel kinds; the
// concrete *Error carries a human-readable message and the underlying cause.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrValidation      = errors.New("validation failed")
	ErrConfiguration   = errors.New("completion capability not configured")
	ErrExtractionParse = errors.New("extraction response not parseable")
	ErrMutationParse   = errors.New("mutation response not parseable")
	ErrAdapter         = errors.New("completion adapter failure")
)

// Error is a classified failure.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a message prefix.
func Wrap(kind error, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// NotFound reports a missing recipe, version, session or cache entry.
func NotFound(format string, args ...any) *Error {
	return New(ErrNotFound, format, args...)
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) *Error {
	return New(ErrValidation, format, args...)
}

// Configuration reports that no completion capability is available.
func Configuration(feature string) *Error {
	return New(ErrConfiguration, "%s unavailable: no language model configured", feature)
}

// Adapter wraps a transport or capability failure.
func Adapter(err error) *Error {
	return &Error{Kind: ErrAdapter, Err: err}
}

// KindOf returns the sentinel kind of err, or nil when err is unclassified.
func KindOf(err error) error {
	for _, k := range []error{
		ErrNotFound, ErrConflict, ErrAlreadyExists, ErrValidation,
		ErrConfiguration, ErrExtractionParse, ErrMutationParse, ErrAdapter,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
