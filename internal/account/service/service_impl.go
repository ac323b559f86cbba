// Package service implements account management.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/account/domain"
	"github.com/feltflyt/feltflyt/internal/account/password"
	"github.com/feltflyt/feltflyt/internal/passwordcheck"
	"github.com/feltflyt/feltflyt/internal/token"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	now   func() time.Time
}

// New creates the account service.
func New(log *zap.Logger, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &Service{
		log:   log.Named("account.service"),
		repo:  repo,
		genID: genID,
		now:   time.Now,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if req.Kind != token.SubjectKlient && req.Kind != token.SubjectBruker {
		return nil, domain.ErrInvalidCredentials
	}

	if res := checkPolicy(req.Password, email, req.Name); !res.Valid {
		return nil, &domain.WeakPasswordError{Result: res}
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:                  s.genID.Generate(),
		Email:               email,
		Name:                strings.TrimSpace(req.Name),
		Kind:                req.Kind,
		PasswordHash:        &hashed,
		LastPasswordChanged: &now,
	}
	if req.Kind == token.SubjectKlient {
		user.OrgID = req.OrgID
		user.OrgSlug = req.OrgSlug
		user.SubscriptionTier = req.SubscriptionTier
		user.SubscriptionActive = req.SubscriptionActive
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, rawPassword string) (*domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil || strings.TrimSpace(rawPassword) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindOne(ctx, domain.User{Email: normalized})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(rawPassword, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	id, err := snowflake.ParseString(userID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash == nil || !password.Verify(currentPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	if res := checkPolicy(newPassword, user.Email, user.Name); !res.Valid {
		return &domain.WeakPasswordError{Result: res}
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	return s.repo.UpdateFields(ctx, user.ID, map[string]any{
		"password_hash":         hashed,
		"last_password_changed": &now,
		"updated_at":            now,
	})
}

func (s *Service) VerifyPassword(ctx context.Context, userID, rawPassword string) error {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}
	if user.PasswordHash == nil || !password.Verify(rawPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func checkPolicy(candidate, email, name string) passwordcheck.Result {
	opts := passwordcheck.DefaultOptions()
	opts.Email = email
	opts.Name = name
	return passwordcheck.Validate(candidate, opts)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
