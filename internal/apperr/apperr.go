// Package apperr defines the error kinds shared by the storefront services.
//
// Domain packages declare their own sentinel errors with New, binding each one
// to a kind. Callers match either the exact sentinel (errors.Is(err,
// cart.ErrCartNotFound)) or the kind (errors.Is(err, apperr.ErrNotFound)).
// Store and driver failures never carry a kind, so they can be told apart from
// validation failures.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
)

// Error is a client-facing failure of a known kind.
type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Kind reports the kind of err, or nil for errors that carry none.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrInvalidArgument, ErrInvalidState, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Message returns the message of the outermost *Error in err's chain.
func Message(err error) (string, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.msg, true
	}
	return "", false
}
