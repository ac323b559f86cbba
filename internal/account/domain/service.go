package domain

import (
	"context"

	"github.com/feltflyt/feltflyt/internal/passwordcheck"
	"github.com/feltflyt/feltflyt/internal/token"
)

// CreateUserRequest carries signup input. Password policy is enforced
// before hashing.
type CreateUserRequest struct {
	Email    string
	Name     string
	Password string
	Kind     token.SubjectKind

	// klient accounts only.
	OrgID              string
	OrgSlug            string
	SubscriptionTier   string
	SubscriptionActive bool
}

// WeakPasswordError carries the validator's result across the service
// boundary; errors.Is(err, ErrPasswordTooWeak) matches it.
type WeakPasswordError struct {
	Result passwordcheck.Result
}

func (e *WeakPasswordError) Error() string { return ErrPasswordTooWeak.Error() }

func (e *WeakPasswordError) Unwrap() error { return ErrPasswordTooWeak }

// Service defines account management behavior.
type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)

	// Login verifies credentials and returns the account. Password-only:
	// the second factor, when enabled, is checked by the twofactor service.
	Login(ctx context.Context, email, password string) (*User, error)

	FindByID(ctx context.Context, userID string) (*User, error)

	// ChangePassword requires the current password and enforces the
	// password policy on the replacement.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error

	// VerifyPassword re-proves identity for sensitive operations.
	VerifyPassword(ctx context.Context, userID, password string) error
}
