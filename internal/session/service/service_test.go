package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/config"
	"github.com/feltflyt/feltflyt/internal/session/domain"
	"github.com/feltflyt/feltflyt/internal/session/repository"
	"github.com/feltflyt/feltflyt/internal/token"
	"github.com/feltflyt/feltflyt/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, migrate bool) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if migrate {
		if err := conn.AutoMigrate(&domain.RevocationEntry{}, &domain.ActiveSession{}); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}
	} else {
		// Only the sessions table; the revocations table is deliberately
		// absent to exercise the migration-window fail-open path.
		if err := conn.AutoMigrate(&domain.ActiveSession{}); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	cfg := config.Config{RefreshTTL: 90 * 24 * time.Hour}
	return New(zap.NewNop(), repository.New(conn), node, cfg), conn
}

func TestBlacklistIsVisibleImmediately(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	revoked, err := svc.IsBlacklisted(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsBlacklisted error: %v", err)
	}
	if revoked {
		t.Fatal("unknown jti reported blacklisted")
	}

	err = svc.Blacklist(ctx, domain.BlacklistRequest{
		JTI:         "jti-1",
		SubjectID:   "user-1",
		SubjectKind: token.SubjectKlient,
		Reason:      "logout",
		TTL:         time.Hour,
	})
	if err != nil {
		t.Fatalf("Blacklist error: %v", err)
	}

	for i := 0; i < 3; i++ {
		revoked, err = svc.IsBlacklisted(ctx, "jti-1")
		if err != nil {
			t.Fatalf("IsBlacklisted error: %v", err)
		}
		if !revoked {
			t.Fatal("expected jti to be blacklisted")
		}
	}
}

func TestBlacklistIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	req := domain.BlacklistRequest{
		JTI:         "jti-dup",
		SubjectID:   "user-1",
		SubjectKind: token.SubjectKlient,
		Reason:      "logout",
	}
	if err := svc.Blacklist(ctx, req); err != nil {
		t.Fatalf("first Blacklist error: %v", err)
	}
	if err := svc.Blacklist(ctx, req); err != nil {
		t.Fatalf("second Blacklist must be a no-op, got %v", err)
	}
}

func TestBlacklistTTLFloor(t *testing.T) {
	svc, conn := newTestService(t, true)
	ctx := context.Background()

	// A one-minute TTL must be raised to the refresh lifetime.
	err := svc.Blacklist(ctx, domain.BlacklistRequest{
		JTI:         "jti-short",
		SubjectID:   "user-1",
		SubjectKind: token.SubjectKlient,
		TTL:         time.Minute,
	})
	if err != nil {
		t.Fatalf("Blacklist error: %v", err)
	}

	var entry domain.RevocationEntry
	if err := conn.Where("jti = ?", "jti-short").First(&entry).Error; err != nil {
		t.Fatalf("failed to load entry: %v", err)
	}
	if time.Until(entry.ExpiresAt) < 89*24*time.Hour {
		t.Fatalf("expected refresh-lifetime floor, got expiry %v", entry.ExpiresAt)
	}
}

func TestIsBlacklistedFailsOpenOnlyWhenTableAbsent(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()

	revoked, err := svc.IsBlacklisted(ctx, "jti-any")
	if err != nil {
		t.Fatalf("expected fail-open on absent table, got %v", err)
	}
	if revoked {
		t.Fatal("fail-open path must report not blacklisted")
	}
}

func TestTerminateOtherSession(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	target, err := svc.Track(ctx, domain.TrackRequest{
		JTI:         "jti-other",
		SubjectID:   "user-1",
		SubjectKind: token.SubjectKlient,
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Track error: %v", err)
	}

	err = svc.Terminate(ctx, domain.TerminateRequest{
		SessionID:   target.ID,
		SubjectID:   "user-1",
		SubjectKind: token.SubjectKlient,
		CallerJTI:   "jti-current",
	})
	if err != nil {
		t.Fatalf("Terminate error: %v", err)
	}

	revoked, err := svc.IsBlacklisted(ctx, "jti-other")
	if err != nil {
		t.Fatalf("IsBlacklisted error: %v", err)
	}
	if !revoked {
		t.Fatal("terminated session jti must be blacklisted")
	}

	sessions, err := svc.ListActiveSessions(ctx, "user-1", token.SubjectKlient)
	if err != nil {
		t.Fatalf("ListActiveSessions error: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no remaining sessions, got %d", len(sessions))
	}
}

func TestTerminateCurrentSessionRejected(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	current, err := svc.Track(ctx, domain.TrackRequest{
		JTI:         "jti-current",
		SubjectID:   "user-1",
		SubjectKind: token.SubjectKlient,
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Track error: %v", err)
	}

	err = svc.Terminate(ctx, domain.TerminateRequest{
		SessionID:   current.ID,
		SubjectID:   "user-1",
		SubjectKind: token.SubjectKlient,
		CallerJTI:   "jti-current",
	})
	if !errors.Is(err, domain.ErrCannotTerminateCurrent) {
		t.Fatalf("expected ErrCannotTerminateCurrent, got %v", err)
	}
}

func TestTerminateForeignSessionNotFound(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	other, err := svc.Track(ctx, domain.TrackRequest{
		JTI:         "jti-bob",
		SubjectID:   "bob",
		SubjectKind: token.SubjectKlient,
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Track error: %v", err)
	}

	err = svc.Terminate(ctx, domain.TerminateRequest{
		SessionID:   other.ID,
		SubjectID:   "alice",
		SubjectKind: token.SubjectKlient,
		CallerJTI:   "jti-alice",
	})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestListActiveSessionsOrderAndExpiry(t *testing.T) {
	svc, conn := newTestService(t, true)
	ctx := context.Background()

	older, err := svc.Track(ctx, domain.TrackRequest{
		JTI: "jti-a", SubjectID: "user-1", SubjectKind: token.SubjectKlient,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Track error: %v", err)
	}
	if err := conn.Model(older).Update("last_seen_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("failed to backdate: %v", err)
	}

	if _, err := svc.Track(ctx, domain.TrackRequest{
		JTI: "jti-b", SubjectID: "user-1", SubjectKind: token.SubjectKlient,
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("Track error: %v", err)
	}

	// Expired row must be excluded.
	if _, err := svc.Track(ctx, domain.TrackRequest{
		JTI: "jti-c", SubjectID: "user-1", SubjectKind: token.SubjectKlient,
		ExpiresAt: time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Track error: %v", err)
	}

	sessions, err := svc.ListActiveSessions(ctx, "user-1", token.SubjectKlient)
	if err != nil {
		t.Fatalf("ListActiveSessions error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].JTI != "jti-b" || sessions[1].JTI != "jti-a" {
		t.Fatalf("expected last-activity descending, got %s, %s", sessions[0].JTI, sessions[1].JTI)
	}
}

func TestPurgeExpired(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	if _, err := svc.Track(ctx, domain.TrackRequest{
		JTI: "jti-old", SubjectID: "user-1", SubjectKind: token.SubjectKlient,
		ExpiresAt: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("Track error: %v", err)
	}

	purged, err := svc.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired error: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged row, got %d", purged)
	}
}
