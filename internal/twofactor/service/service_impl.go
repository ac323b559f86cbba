// Package service implements two-factor authentication on top of the
// account store.
package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/feltflyt/feltflyt/internal/account/domain"
	auditdomain "github.com/feltflyt/feltflyt/internal/audit/domain"
	"github.com/feltflyt/feltflyt/internal/config"
	"github.com/feltflyt/feltflyt/internal/totp"
	"github.com/feltflyt/feltflyt/internal/twofactor/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// driftWindow accepts codes from the adjacent time steps so slightly
// skewed device clocks still work.
const driftWindow = 1

type Service struct {
	log      *zap.Logger
	repo     accountdomain.Repository
	accounts accountdomain.Service
	cipher   *totp.Cipher
	audit    auditdomain.Service

	issuer         string
	backupCodeSalt string
	now            func() time.Time
}

// New creates the two-factor service.
func New(log *zap.Logger, cfg config.Config, repo accountdomain.Repository, accounts accountdomain.Service, cipher *totp.Cipher, audit auditdomain.Service) domain.Service {
	return &Service{
		log:            log.Named("twofactor.service"),
		repo:           repo,
		accounts:       accounts,
		cipher:         cipher,
		audit:          audit,
		issuer:         cfg.TOTPIssuer,
		backupCodeSalt: cfg.BackupCodeSalt,
		now:            time.Now,
	}
}

// configured rejects two-factor operations when the secret key material
// is absent. Missing secrets fail closed instead of falling back to a
// default key.
func (s *Service) configured() error {
	if s.cipher == nil || s.backupCodeSalt == "" {
		return config.ErrServiceMisconfigured
	}
	return nil
}

func (s *Service) Setup(ctx context.Context, userID string) (*domain.SetupResult, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		// Never overwrite an enabled account's secret.
		return nil, domain.ErrAlreadyEnabled
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	encrypted, err := s.cipher.EncryptSecret(secret)
	if err != nil {
		return nil, err
	}

	if err := s.update(ctx, user, map[string]any{
		"totp_secret_encrypted": encrypted,
		"totp_verified_at":      nil,
	}); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		SubjectID:   userID,
		SubjectKind: user.Kind,
		Action:      "2fa.setup",
	})

	return &domain.SetupResult{
		Secret:          secret,
		ProvisioningURI: totp.ProvisioningURI(secret, user.Email, s.issuer),
	}, nil
}

func (s *Service) VerifyAndEnable(ctx context.Context, userID, code string) ([]string, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, domain.ErrAlreadyEnabled
	}
	secret, err := s.storedSecret(user)
	if err != nil {
		return nil, err
	}

	ok, step := totp.VerifyCode(secret, code, s.now(), driftWindow)
	if !ok {
		s.recordFailure(ctx, user, "enable")
		return nil, domain.ErrCodeInvalid
	}

	codes, err := totp.GenerateBackupCodes()
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = totp.HashBackupCode(c, s.backupCodeSalt)
	}

	now := s.now().UTC()
	if err := s.update(ctx, user, map[string]any{
		"totp_enabled":        true,
		"totp_verified_at":    &now,
		"totp_last_used_step": step,
		"backup_code_hashes":  datatypes.NewJSONSlice(hashes),
		"backup_codes_used":   0,
	}); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		SubjectID:   userID,
		SubjectKind: user.Kind,
		Action:      "2fa.enabled",
		Metadata:    map[string]any{"backup_codes_issued": len(codes)},
	})
	return codes, nil
}

func (s *Service) Disable(ctx context.Context, userID, password, code string) error {
	if err := s.configured(); err != nil {
		return err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return domain.ErrNotConfigured
	}

	var proof string
	switch {
	case password != "":
		if err := s.accounts.VerifyPassword(ctx, userID, password); err != nil {
			s.recordFailure(ctx, user, "disable")
			return err
		}
		proof = "password"
	case code != "":
		if _, err := s.checkCode(ctx, user, code); err != nil {
			s.recordFailure(ctx, user, "disable")
			return err
		}
		proof = "code"
	default:
		return accountdomain.ErrInvalidCredentials
	}

	// One UPDATE wipes every piece of two-factor state; there is no
	// intermediate half-disabled row.
	if err := s.update(ctx, user, map[string]any{
		"totp_enabled":          false,
		"totp_secret_encrypted": nil,
		"totp_verified_at":      nil,
		"totp_last_used_step":   0,
		"backup_code_hashes":    datatypes.NewJSONSlice([]string{}),
		"backup_codes_used":     0,
	}); err != nil {
		return err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		SubjectID:   userID,
		SubjectKind: user.Kind,
		Action:      "2fa.disabled",
		Metadata:    map[string]any{"proof": proof},
	})
	return nil
}

func (s *Service) Status(ctx context.Context, userID string) (*domain.Status, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.Status{
		Enabled:         user.TOTPEnabled,
		VerifiedAt:      user.TOTPVerifiedAt,
		BackupRemaining: len(user.BackupCodeHashes),
		BackupCodesUsed: user.BackupCodesUsed,
		PendingSetup:    !user.TOTPEnabled && user.TOTPSecretEncrypted != nil,
	}, nil
}

func (s *Service) VerifyLogin(ctx context.Context, userID, code string) error {
	if err := s.configured(); err != nil {
		return err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return domain.ErrNotConfigured
	}

	usedBackup, err := s.checkCode(ctx, user, code)
	if err != nil {
		s.recordFailure(ctx, user, "login")
		return err
	}
	if usedBackup {
		s.audit.Record(ctx, auditdomain.Entry{
			SubjectID:   userID,
			SubjectKind: user.Kind,
			Action:      "2fa.backup_code_used",
			Metadata:    map[string]any{"remaining": len(user.BackupCodeHashes) - 1},
		})
	}
	return nil
}

// checkCode accepts either a TOTP code (recording the consumed step) or a
// backup code (removing its hash). It reports whether a backup code was
// consumed.
func (s *Service) checkCode(ctx context.Context, user *accountdomain.User, code string) (bool, error) {
	secret, err := s.storedSecret(user)
	if err != nil {
		return false, err
	}

	if ok, step := totp.VerifyCode(secret, code, s.now(), driftWindow); ok {
		if step <= user.TOTPLastUsedStep {
			return false, domain.ErrCodeReplayed
		}
		return false, s.update(ctx, user, map[string]any{
			"totp_last_used_step": step,
		})
	}

	if idx := totp.VerifyBackupCode(code, user.BackupCodeHashes, s.backupCodeSalt); idx >= 0 {
		remaining := make([]string, 0, len(user.BackupCodeHashes)-1)
		remaining = append(remaining, user.BackupCodeHashes[:idx]...)
		remaining = append(remaining, user.BackupCodeHashes[idx+1:]...)
		return true, s.update(ctx, user, map[string]any{
			"backup_code_hashes": datatypes.NewJSONSlice(remaining),
			"backup_codes_used":  user.BackupCodesUsed + 1,
		})
	}

	if len(user.BackupCodeHashes) == 0 && looksLikeBackupCode(code) {
		return false, domain.ErrBackupCodeExhausted
	}
	return false, domain.ErrCodeInvalid
}

func (s *Service) storedSecret(user *accountdomain.User) (string, error) {
	if user.TOTPSecretEncrypted == nil || *user.TOTPSecretEncrypted == "" {
		return "", domain.ErrNotConfigured
	}
	secret, err := s.cipher.DecryptSecret(*user.TOTPSecretEncrypted)
	if err != nil {
		// Stored payload no longer decrypts; treat as unconfigured rather
		// than leaking cipher internals to the caller.
		s.log.Error("stored totp secret failed to decrypt",
			zap.String("subject_id", user.ID.String()), zap.Error(err))
		return "", domain.ErrNotConfigured
	}
	return secret, nil
}

func (s *Service) findUser(ctx context.Context, userID string) (*accountdomain.User, error) {
	id, err := snowflake.ParseString(userID)
	if err != nil {
		return nil, accountdomain.ErrUserNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) update(ctx context.Context, user *accountdomain.User, fields map[string]any) error {
	fields["updated_at"] = s.now().UTC()
	return s.repo.UpdateFields(ctx, user.ID, fields)
}

func (s *Service) recordFailure(ctx context.Context, user *accountdomain.User, phase string) {
	s.audit.Record(ctx, auditdomain.Entry{
		SubjectID:   user.ID.String(),
		SubjectKind: user.Kind,
		Action:      "2fa.verify_failed",
		Metadata:    map[string]any{"phase": phase},
	})
}

func looksLikeBackupCode(code string) bool {
	return len(totp.NormalizeBackupCode(code)) == 8
}
