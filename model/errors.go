package model

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindAlreadyInitialized   Kind = "AlreadyInitialized"
	KindNotFound             Kind = "NotFound"
	KindAuthenticationFailed Kind = "AuthenticationFailed"
	KindNotOwner             Kind = "NotOwner"
	KindInvalid              Kind = "Invalid"
	KindInternal             Kind = "Internal"
)

// Error is the registry's structured error type.
//
// RuleID is a stable identifier (e.g., IDREG-AUTH-101) naming the check that
// rejected the call. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error without a cause.
func NewError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// WrapError returns a structured error wrapping cause. A nil cause yields NewError.
func WrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
