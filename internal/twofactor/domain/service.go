// Package domain contains core types for two-factor authentication.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCodeInvalid covers every failed code verification. Callers never
	// learn whether the code was wrong, stale or for the wrong account.
	ErrCodeInvalid = errors.New("totp_code_invalid")

	// ErrCodeReplayed marks a correct code that was already accepted for an
	// earlier request. Surfaced to clients as a plain invalid code.
	ErrCodeReplayed = errors.New("totp_code_replayed")

	ErrAlreadyEnabled      = errors.New("totp_already_enabled")
	ErrNotConfigured       = errors.New("totp_not_configured")
	ErrBackupCodeExhausted = errors.New("backup_code_exhausted")
)

// SetupResult is returned once per setup; the secret and URI are never
// retrievable again.
type SetupResult struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// Status reports the account's two-factor state without exposing secret
// material.
type Status struct {
	Enabled         bool       `json:"enabled"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	BackupRemaining int        `json:"backup_codes_remaining"`
	BackupCodesUsed int        `json:"backup_codes_used"`
	PendingSetup    bool       `json:"pending_setup"`
}

// Service drives the setup state machine
// disabled -> secret_generated -> enabled and verifies codes at login.
type Service interface {
	// Setup generates and stores a fresh encrypted secret with enabled
	// still false. Fails with ErrAlreadyEnabled once the account is
	// enabled; re-running before enablement replaces the pending secret.
	Setup(ctx context.Context, userID string) (*SetupResult, error)

	// VerifyAndEnable completes setup with one correct code against the
	// pending secret and returns the single batch of raw backup codes.
	VerifyAndEnable(ctx context.Context, userID, code string) ([]string, error)

	// Disable requires re-proof via the account password or a valid
	// TOTP/backup code, then wipes all two-factor state atomically.
	Disable(ctx context.Context, userID, password, code string) error

	Status(ctx context.Context, userID string) (*Status, error)

	// VerifyLogin checks the second factor for an enabled account. Accepts
	// a TOTP code within the drift window (each step at most once) or an
	// unconsumed backup code (consumed on use).
	VerifyLogin(ctx context.Context, userID, code string) error
}
