// Package apperr defines the error kinds raised by the core services.
//
// Core code only branches on Kind. Mapping a kind or reason to a transport
// status, numeric code or message happens in pkg/response.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of the transport.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindValidation
	KindAuthInvalid
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation_failed"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindDelivery:
		return "delivery_error"
	default:
		return "internal"
	}
}

// Error is a kinded failure. Reason is a stable machine key such as
// "board_not_found"; Err optionally carries the underlying cause.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and reason, so a wrapped
// sentinel still satisfies errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// New returns a kinded error with the given reason.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap attaches a cause to a sentinel, keeping its kind and reason.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Reason: sentinel.Reason, Err: cause}
}

// KindOf reports the kind of err, KindInternal for unkinded errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf reports the reason key of err, "" for unkinded errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Identity
var (
	ErrUserNotFound        = New(KindNotFound, "user_not_found")
	ErrUserExists          = New(KindConflict, "user_already_exists")
	ErrInactiveUser        = New(KindForbidden, "inactive_user")
	ErrInvalidCredentials  = New(KindAuthInvalid, "invalid_credentials")
	ErrInvalidToken        = New(KindAuthInvalid, "invalid_access_token")
	ErrVerificationExpired = New(KindValidation, "invalid_email_verification_exp_date")
	ErrVerificationCode    = New(KindValidation, "invalid_email_verification_code")
)

// Boards, memberships and cards
var (
	ErrBoardNotFound       = New(KindNotFound, "board_not_found")
	ErrCardNotFound        = New(KindNotFound, "card_not_found")
	ErrNotMember           = New(KindForbidden, "user_not_member_the_board")
	ErrNotOwner            = New(KindForbidden, "user_not_owner_the_board")
	ErrAlreadyMember       = New(KindConflict, "user_already_exists_in_board")
	ErrBoardAlreadyDeleted = New(KindConflict, "board_already_deleted")
	ErrLastOwner           = New(KindConflict, "board_last_owner")
)

// Delivery
var ErrDelivery = New(KindDelivery, "notification_delivery_failed")

// Validation returns a validation failure with a free-form reason.
func Validation(reason string) *Error {
	return New(KindValidation, reason)
}
