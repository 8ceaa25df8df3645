// Package apperror defines the error kinds that services return and
// handlers translate into HTTP responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindPaymentFailed
	KindConflict
	KindInvalid
	KindInvalidPassword
	KindInvalidCurrent
	KindPolicyViolation
)

var kindNames = map[Kind]string{
	KindInternal:        "internal",
	KindValidation:      "validation",
	KindNotFound:        "not_found",
	KindUnauthorized:    "unauthorized",
	KindPaymentFailed:   "payment_failed",
	KindConflict:        "conflict",
	KindInvalid:         "invalid",
	KindInvalidPassword: "invalid_password",
	KindInvalidCurrent:  "invalid_current",
	KindPolicyViolation: "policy_violation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Status is the HTTP status code a Kind is reported with.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindPaymentFailed, KindInvalid,
		KindInvalidPassword, KindInvalidCurrent, KindPolicyViolation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Field   string
	Message string
	Reasons []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func PaymentFailed(reason string, err error) *Error {
	return &Error{Kind: KindPaymentFailed, Message: reason, Err: err}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func InvalidPassword() *Error {
	return &Error{Kind: KindInvalidPassword, Field: "password", Message: "invalid password"}
}

func InvalidCurrent() *Error {
	return &Error{Kind: KindInvalidCurrent, Field: "current_password", Message: "current password is incorrect"}
}

func PolicyViolation(reasons []string) *Error {
	return &Error{Kind: KindPolicyViolation, Field: "new_password", Message: "password does not satisfy the policy", Reasons: reasons}
}

// KindOf reports the Kind carried by err, or KindInternal when err is not
// an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
