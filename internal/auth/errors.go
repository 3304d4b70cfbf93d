package auth

import (
	"errors"
	"fmt"
)

// Code is the closed set of sign-in failures surfaced to users.
type Code int

const (
	CodeUnknown Code = iota
	CodeInvalidEmail
	CodeUserNotFound
	CodeWrongPassword
	CodeUserDisabled
)

func (c Code) String() string {
	switch c {
	case CodeInvalidEmail:
		return "invalid_email"
	case CodeUserNotFound:
		return "user_not_found"
	case CodeWrongPassword:
		return "wrong_password"
	case CodeUserDisabled:
		return "user_disabled"
	default:
		return "unknown"
	}
}

// Message is the user-facing text for c.
func (c Code) Message() string {
	switch c {
	case CodeInvalidEmail:
		return "That email address is invalid."
	case CodeUserNotFound:
		return "No account exists for that email address."
	case CodeWrongPassword:
		return "The password is incorrect."
	case CodeUserDisabled:
		return "This account has been disabled."
	default:
		return "Sign in failed. Please try again."
	}
}

var backendCodes = map[string]Code{
	"auth/invalid-email":  CodeInvalidEmail,
	"auth/user-not-found": CodeUserNotFound,
	"auth/wrong-password": CodeWrongPassword,
	"auth/user-disabled":  CodeUserDisabled,
}

// MapCode translates a backend error code; unrecognised codes map to CodeUnknown.
func MapCode(backendCode string) Code {
	return backendCodes[backendCode]
}

// Error is a classified authentication failure.
type Error struct {
	Code        Code
	BackendCode string
	Err         error
}

// MapError wraps err (which may be nil) with the Code for backendCode.
func MapError(backendCode string, err error) *Error {
	return &Error{Code: MapCode(backendCode), BackendCode: backendCode, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Code, e.Err)
	}
	return "auth " + e.Code.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidEmail  = &Error{Code: CodeInvalidEmail}
	ErrUserNotFound  = &Error{Code: CodeUserNotFound}
	ErrWrongPassword = &Error{Code: CodeWrongPassword}
	ErrUserDisabled  = &Error{Code: CodeUserDisabled}
	ErrUnknown       = &Error{Code: CodeUnknown}
)

// CodeOf extracts the Code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
