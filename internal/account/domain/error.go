package domain

import "errors"

var (
	ErrUserNotFound = errors.New("user_not_found")
	ErrUserExists   = errors.New("user_exists")

	// ErrInvalidCredentials covers every credential failure. Callers never
	// learn whether the account exists or which check failed.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrPasswordTooWeak wraps the validator's reasons; those are safe to
	// surface.
	ErrPasswordTooWeak = errors.New("password_too_weak")
)
