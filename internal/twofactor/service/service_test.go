package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/feltflyt/feltflyt/internal/account/domain"
	accountrepo "github.com/feltflyt/feltflyt/internal/account/repository"
	accountservice "github.com/feltflyt/feltflyt/internal/account/service"
	auditdomain "github.com/feltflyt/feltflyt/internal/audit/domain"
	auditrepo "github.com/feltflyt/feltflyt/internal/audit/repository"
	auditservice "github.com/feltflyt/feltflyt/internal/audit/service"
	"github.com/feltflyt/feltflyt/internal/config"
	"github.com/feltflyt/feltflyt/internal/token"
	"github.com/feltflyt/feltflyt/internal/totp"
	"github.com/feltflyt/feltflyt/internal/twofactor/domain"
	"github.com/feltflyt/feltflyt/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc    *Service
	conn   *gorm.DB
	userID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&accountdomain.User{}, &auditdomain.AuditLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	cfg := config.Config{
		TOTPMasterKey:  "test-master-key",
		TOTPKDFSalt:    "test-kdf-salt",
		TOTPIssuer:     "Feltflyt",
		BackupCodeSalt: "test-backup-salt",
	}
	cipher, err := totp.NewCipher(cfg.TOTPMasterKey, cfg.TOTPKDFSalt)
	if err != nil {
		t.Fatalf("failed to build cipher: %v", err)
	}

	log := zap.NewNop()
	repo := accountrepo.New(conn)
	accounts := accountservice.New(log, repo, node)
	audit := auditservice.New(log, auditrepo.New(conn), node)

	user, err := accounts.CreateUser(context.Background(), accountdomain.CreateUserRequest{
		Email:    "kari@nordvik-vvs.no",
		Name:     "Kari Hansen",
		Password: "Tr0ubadour&Strings",
		Kind:     token.SubjectKlient,
		OrgID:    "42",
		OrgSlug:  "nordvik-vvs",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return &fixture{
		svc:    New(log, cfg, repo, accounts, cipher, audit).(*Service),
		conn:   conn,
		userID: user.ID.String(),
	}
}

// enable walks the full setup state machine and returns the secret plus
// the backup code batch.
func (f *fixture) enable(t *testing.T) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := f.svc.Setup(ctx, f.userID)
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}

	code, err := totp.GenerateCode(setup.Secret, f.svc.now())
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	codes, err := f.svc.VerifyAndEnable(ctx, f.userID, code)
	if err != nil {
		t.Fatalf("VerifyAndEnable error: %v", err)
	}
	return setup.Secret, codes
}

// advance moves the service clock forward so fresh codes land on unused
// time steps.
func (f *fixture) advance(d time.Duration) {
	base := f.svc.now()
	f.svc.now = func() time.Time { return base.Add(d) }
}

func TestSetupStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.Status(ctx, f.userID)
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if status.Enabled || status.PendingSetup {
		t.Fatalf("fresh account should be fully disabled: %+v", status)
	}

	setup, err := f.svc.Setup(ctx, f.userID)
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if setup.Secret == "" || setup.ProvisioningURI == "" {
		t.Fatalf("incomplete setup result: %+v", setup)
	}

	status, err = f.svc.Status(ctx, f.userID)
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if status.Enabled || !status.PendingSetup {
		t.Fatalf("expected pending setup: %+v", status)
	}

	// Re-running setup before enablement replaces the pending secret.
	second, err := f.svc.Setup(ctx, f.userID)
	if err != nil {
		t.Fatalf("second Setup error: %v", err)
	}
	if second.Secret == setup.Secret {
		t.Fatal("re-setup should generate a fresh secret")
	}

	code, err := totp.GenerateCode(second.Secret, f.svc.now())
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	codes, err := f.svc.VerifyAndEnable(ctx, f.userID, code)
	if err != nil {
		t.Fatalf("VerifyAndEnable error: %v", err)
	}
	if len(codes) != totp.BackupCodeCount {
		t.Fatalf("got %d backup codes, want %d", len(codes), totp.BackupCodeCount)
	}

	status, err = f.svc.Status(ctx, f.userID)
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if !status.Enabled || status.VerifiedAt == nil || status.BackupRemaining != totp.BackupCodeCount {
		t.Fatalf("unexpected status after enable: %+v", status)
	}
}

func TestSetupWhileEnabledRejected(t *testing.T) {
	f := newFixture(t)
	secret, _ := f.enable(t)

	if _, err := f.svc.Setup(context.Background(), f.userID); !errors.Is(err, domain.ErrAlreadyEnabled) {
		t.Fatalf("expected ErrAlreadyEnabled, got %v", err)
	}

	// The original secret must survive the rejected attempt.
	f.advance(totp.Period)
	code, err := totp.GenerateCode(secret, f.svc.now())
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	if err := f.svc.VerifyLogin(context.Background(), f.userID, code); err != nil {
		t.Fatalf("VerifyLogin with original secret failed: %v", err)
	}
}

func TestVerifyAndEnableWrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Setup(ctx, f.userID); err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if _, err := f.svc.VerifyAndEnable(ctx, f.userID, "000000"); !errors.Is(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
	if _, err := f.svc.VerifyAndEnable(ctx, "999999999", "000000"); !errors.Is(err, accountdomain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestVerifyAndEnableWithoutSetup(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.VerifyAndEnable(context.Background(), f.userID, "123456"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestVerifyLoginReplayRejected(t *testing.T) {
	f := newFixture(t)
	secret, _ := f.enable(t)
	ctx := context.Background()

	f.advance(totp.Period)
	code, err := totp.GenerateCode(secret, f.svc.now())
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}

	if err := f.svc.VerifyLogin(ctx, f.userID, code); err != nil {
		t.Fatalf("first VerifyLogin error: %v", err)
	}
	if err := f.svc.VerifyLogin(ctx, f.userID, code); !errors.Is(err, domain.ErrCodeReplayed) {
		t.Fatalf("expected ErrCodeReplayed, got %v", err)
	}

	// The next step produces a fresh, acceptable code.
	f.advance(totp.Period)
	next, err := totp.GenerateCode(secret, f.svc.now())
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	if err := f.svc.VerifyLogin(ctx, f.userID, next); err != nil {
		t.Fatalf("VerifyLogin with next step error: %v", err)
	}
}

func TestVerifyLoginEnableCodeCannotBeReused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	setup, err := f.svc.Setup(ctx, f.userID)
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	code, err := totp.GenerateCode(setup.Secret, f.svc.now())
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	if _, err := f.svc.VerifyAndEnable(ctx, f.userID, code); err != nil {
		t.Fatalf("VerifyAndEnable error: %v", err)
	}

	if err := f.svc.VerifyLogin(ctx, f.userID, code); !errors.Is(err, domain.ErrCodeReplayed) {
		t.Fatalf("expected ErrCodeReplayed for the enablement code, got %v", err)
	}
}

func TestVerifyLoginBackupCodes(t *testing.T) {
	f := newFixture(t)
	_, codes := f.enable(t)
	ctx := context.Background()

	if err := f.svc.VerifyLogin(ctx, f.userID, codes[0]); err != nil {
		t.Fatalf("backup code login error: %v", err)
	}
	// Consumed codes verify as a stable miss.
	if err := f.svc.VerifyLogin(ctx, f.userID, codes[0]); !errors.Is(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid for consumed code, got %v", err)
	}

	status, err := f.svc.Status(ctx, f.userID)
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if status.BackupRemaining != totp.BackupCodeCount-1 || status.BackupCodesUsed != 1 {
		t.Fatalf("unexpected backup accounting: %+v", status)
	}
}

func TestVerifyLoginBackupCodeExhaustion(t *testing.T) {
	f := newFixture(t)
	_, codes := f.enable(t)
	ctx := context.Background()

	for _, code := range codes {
		if err := f.svc.VerifyLogin(ctx, f.userID, code); err != nil {
			t.Fatalf("backup code login error: %v", err)
		}
	}

	if err := f.svc.VerifyLogin(ctx, f.userID, "AAAA-2222"); !errors.Is(err, domain.ErrBackupCodeExhausted) {
		t.Fatalf("expected ErrBackupCodeExhausted, got %v", err)
	}
	// A plain wrong TOTP code is still just invalid.
	if err := f.svc.VerifyLogin(ctx, f.userID, "000000"); !errors.Is(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
}

func TestVerifyLoginNotConfigured(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.VerifyLogin(context.Background(), f.userID, "123456"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDisableWithPassword(t *testing.T) {
	f := newFixture(t)
	f.enable(t)
	ctx := context.Background()

	if err := f.svc.Disable(ctx, f.userID, "WrongGuess9!xyz", ""); !errors.Is(err, accountdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.svc.Disable(ctx, f.userID, "Tr0ubadour&Strings", ""); err != nil {
		t.Fatalf("Disable error: %v", err)
	}

	status, err := f.svc.Status(ctx, f.userID)
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if status.Enabled || status.PendingSetup || status.BackupRemaining != 0 || status.VerifiedAt != nil {
		t.Fatalf("state not wiped: %+v", status)
	}

	var user accountdomain.User
	if err := f.conn.First(&user, "id = ?", f.userID).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if user.TOTPSecretEncrypted != nil || user.TOTPLastUsedStep != 0 {
		t.Fatalf("secret material not wiped: %+v", user)
	}
}

func TestDisableWithCode(t *testing.T) {
	f := newFixture(t)
	secret, _ := f.enable(t)
	ctx := context.Background()

	f.advance(totp.Period)
	code, err := totp.GenerateCode(secret, f.svc.now())
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	if err := f.svc.Disable(ctx, f.userID, "", code); err != nil {
		t.Fatalf("Disable error: %v", err)
	}

	if err := f.svc.Disable(ctx, f.userID, "", code); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured after disable, got %v", err)
	}
}

func TestDisableRequiresProof(t *testing.T) {
	f := newFixture(t)
	f.enable(t)

	if err := f.svc.Disable(context.Background(), f.userID, "", ""); !errors.Is(err, accountdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuditTrailWritten(t *testing.T) {
	f := newFixture(t)
	f.enable(t)

	if err := f.svc.VerifyLogin(context.Background(), f.userID, "000000"); !errors.Is(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}

	var actions []string
	if err := f.conn.Model(&auditdomain.AuditLog{}).Order("id").Pluck("action", &actions).Error; err != nil {
		t.Fatalf("failed to read audit trail: %v", err)
	}
	want := []string{"2fa.setup", "2fa.enabled", "2fa.verify_failed"}
	if len(actions) != len(want) {
		t.Fatalf("audit actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("audit actions = %v, want %v", actions, want)
		}
	}
}
