// Package apperr holds the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindUnauthorized
	KindValidation
	KindOTP
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindOTP:
		return "otp"
	case KindDelivery:
		return "delivery"
	default:
		return "internal"
	}
}

// Error is a classified failure. Msg is safe to show to API clients.
type Error struct {
	Kind        Kind
	Msg         string
	RedirectURL string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// WithRedirect returns a copy of e carrying a client routing hint.
func (e *Error) WithRedirect(url string) *Error {
	cp := *e
	cp.RedirectURL = url
	return &cp
}

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Msg: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Msg: msg} }
func OTP(msg string) *Error          { return &Error{Kind: KindOTP, Msg: msg} }

// Delivery wraps a failed call to an outbound collaborator such as the mail transport.
func Delivery(msg string, err error) *Error {
	return &Error{Kind: KindDelivery, Msg: msg, Err: err}
}

// Internal wraps an unexpected store or collaborator failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
