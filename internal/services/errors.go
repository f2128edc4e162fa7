package services

import (
	"errors"
	"strings"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidEmail       = errors.New("email is not valid")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")

	// ErrInvalidOTP covers wrong code, unknown email and expired code alike;
	// callers must not be able to tell these apart.
	ErrInvalidOTP = errors.New("invalid or expired verification code")

	ErrAlreadyVerified = errors.New("email is already verified")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailDispatch   = errors.New("failed to send verification email")
)

// MissingFieldsError reports which required fields were absent from a
// request, in the order the operation defines them.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}
