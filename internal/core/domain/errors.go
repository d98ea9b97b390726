package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so transport
// layers can map a whole class of failures with a single errors.Is check.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrForbidden      = errors.New("access forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrDependency     = errors.New("dependency failure")
)

// Error is a user-facing failure tagged with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// NewValidationError builds a validation failure carrying msg verbatim.
func NewValidationError(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

// DependencyFailure marks err as a failed call to a store or other backing
// service. The result matches both ErrDependency and err.
func DependencyFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependency, err)
}

// Credential lifecycle.
var (
	ErrDuplicateEmail        = &Error{Kind: ErrConflict, Msg: "a user with this email already exists"}
	ErrUsernameTaken         = &Error{Kind: ErrConflict, Msg: "username is already taken"}
	ErrWeakPassword          = &Error{Kind: ErrValidation, Msg: "password must contain min. 8 characters, 1 uppercase, 1 lowercase, 1 number and 1 special character (#?!@$%^&*+=)"}
	ErrPasswordTooLong       = &Error{Kind: ErrValidation, Msg: "password must not exceed 72 bytes"}
	ErrPasswordMismatch      = &Error{Kind: ErrValidation, Msg: "passwords do not match"}
	ErrOldPasswordRequired   = &Error{Kind: ErrValidation, Msg: "old password is required to set a new password"}
	ErrNewPasswordRequired   = &Error{Kind: ErrValidation, Msg: "provide new password"}
	ErrInvalidOrExpiredOTP   = &Error{Kind: ErrAuthentication, Msg: "OTP is invalid or expired"}
	ErrInvalidCredentials    = &Error{Kind: ErrAuthentication, Msg: "invalid credentials"}
	ErrEmailNotVerified      = &Error{Kind: ErrAuthentication, Msg: "email is not verified"}
	ErrInvalidOrExpiredToken = &Error{Kind: ErrAuthentication, Msg: "token is invalid or expired"}
	ErrIncorrectPassword     = &Error{Kind: ErrAuthentication, Msg: "incorrect password"}
	ErrUserNotFound          = &Error{Kind: ErrNotFound, Msg: "user not found"}
	ErrAdminRequired         = &Error{Kind: ErrForbidden, Msg: "admin privileges required"}
)

// Content.
var (
	ErrContentNotFound    = &Error{Kind: ErrNotFound, Msg: "content not found"}
	ErrTaskInactive       = &Error{Kind: ErrConflict, Msg: "task is no longer active"}
	ErrTaskDeadlinePassed = &Error{Kind: ErrConflict, Msg: "task deadline has passed"}
	ErrAlreadySubmitted   = &Error{Kind: ErrConflict, Msg: "task has already been submitted"}
)
