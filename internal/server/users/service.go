// Package users implements the authentication workflow: registration with
// email verification, credential login, token refresh, and bulk revocation.
// It owns no cryptographic logic itself, only sequencing and error
// translation; hashing and token work live in internal/server/auth.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/avdeev/authgate/internal/common"
	"github.com/avdeev/authgate/internal/dbx"
	"github.com/avdeev/authgate/internal/logging"
	"github.com/avdeev/authgate/internal/server/auth"
	"github.com/avdeev/authgate/internal/server/config"
	"github.com/avdeev/authgate/internal/server/email"
	"github.com/avdeev/authgate/internal/server/models"
	"github.com/avdeev/authgate/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service provides authentication-related operations:
//   - Register: create users and send the verification email
//   - VerifyEmail: consume the emailed capability token
//   - Login: verify credentials and mint a token pair
//   - Refresh: rotate a token pair from a valid refresh token
//   - RevokeAll: invalidate every outstanding token for a user
type Service struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	tokens *auth.TokenService
	sender email.Sender
	logger logging.Logger

	appBaseURL                   string
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	emailTokenValidityDuration   time.Duration
}

// NewService constructs a Service using repositories and server config.
func NewService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, sender email.Sender, logger logging.Logger, cfg *config.Config) *Service {
	return &Service{
		db:                           db,
		repos:                        m,
		tokens:                       tokens,
		sender:                       sender,
		logger:                       logger,
		appBaseURL:                   strings.TrimRight(cfg.AppBaseURL, "/"),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		emailTokenValidityDuration:   cfg.EmailTokenValidityDuration,
	}
}

// NormalizeEmail lowercases and trims an email so case/whitespace variants
// map to the same identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new unverified user and sends the verification email.
// The record persists regardless of delivery outcome; a failed send is
// logged and never fails registration.
func (s *Service) Register(ctx context.Context, name, emailAddr, password string) (*models.User, error) {
	normalized := NormalizeEmail(emailAddr)
	repo := s.repos.Users(s.db)

	_, err := repo.GetByEmail(ctx, normalized)
	if err == nil {
		return nil, common.ErrorConflict
	}
	if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "error searching user by email", "error", err)
		return nil, common.ErrorInternal
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error(ctx, "error hashing password", "error", err)
		return nil, common.ErrorInternal
	}

	user, err := repo.Create(ctx, &models.User{
		Name:         name,
		Email:        normalized,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		// The pre-check above leaves a window for two concurrent
		// registrations; the store's unique index settles the race.
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		s.logger.Error(ctx, "error creating user", "error", err)
		return nil, common.ErrorInternal
	}

	s.sendVerificationEmail(ctx, user)

	return user, nil
}

// sendVerificationEmail issues an email-verify capability token, builds the
// verification link from the configured app origin, and delivers it
// best-effort.
func (s *Service) sendVerificationEmail(ctx context.Context, user *models.User) {
	token, err := s.tokens.Issue(auth.PurposeEmailVerify, user.ID, "", user.TokenVersion, s.emailTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "error issuing verification token", "user_id", user.ID, "error", err)
		return
	}

	verifyURL := fmt.Sprintf("%s/auth/verify-email?token=%s", s.appBaseURL, url.QueryEscape(token))

	subject, body, err := email.VerificationEmail(email.VerificationParams{
		VerifyURL: verifyURL,
		ValidFor:  s.emailTokenValidityDuration.String(),
	})
	if err != nil {
		s.logger.Error(ctx, "error rendering verification email", "user_id", user.ID, "error", err)
		return
	}

	if err := s.sender.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Warn(ctx, "verification email delivery failed", "user_id", user.ID, "error", err)
	}
}

// VerifyEmail consumes an email-verify token and performs the one-time
// PENDING_VERIFICATION -> VERIFIED transition. Verifying twice is a
// conflict, not a silent success.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}

	claims, err := s.tokens.Verify(token, auth.PurposeEmailVerify)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		user, err = repo.GetByID(ctx, claims.Subject)
		if err != nil {
			return err
		}
		if user.IsEmailVerified {
			return common.ErrEmailAlreadyVerified
		}
		if err := repo.MarkEmailVerified(ctx, user.ID); err != nil {
			// Conflict here means a concurrent request won the transition.
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrEmailAlreadyVerified
			}
			return err
		}
		user.IsEmailVerified = true
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrEmailAlreadyVerified):
			return nil, err
		default:
			s.logger.Error(ctx, "error verifying email", "error", err)
			return nil, common.ErrorInternal
		}
	}

	return user, nil
}

// Login verifies credentials and mints a token pair. Unknown email and
// wrong password both yield ErrInvalidCredentials so responses cannot be
// used to probe which emails are registered; an unknown email still burns a
// bcrypt compare against a dummy hash to keep the paths comparable in cost.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*models.User, *TokenPair, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByEmail(ctx, NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.CheckPassword(password, auth.DummyPasswordHash)
			return nil, nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "error searching user by email", "error", err)
		return nil, nil, common.ErrorInternal
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, nil, common.ErrInvalidCredentials
	}

	if !user.IsEmailVerified {
		return nil, nil, common.ErrEmailNotVerified
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error(ctx, "error issuing token pair", "user_id", user.ID, "error", err)
		return nil, nil, common.ErrorInternal
	}

	return user, pair, nil
}

// Refresh validates a refresh token and rotates the pair. A token whose
// embedded version no longer matches the record is treated as invalid: that
// is the entire revocation mechanism, there is no token blacklist.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.PurposeRefresh)
	if err != nil {
		return nil, nil, err
	}

	repo := s.repos.Users(s.db)
	user, err := repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrInvalidToken
		}
		s.logger.Error(ctx, "error searching user by id", "error", err)
		return nil, nil, common.ErrorInternal
	}

	if !s.isCurrent(claims, user) {
		return nil, nil, common.ErrInvalidToken
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error(ctx, "error issuing token pair", "user_id", user.ID, "error", err)
		return nil, nil, common.ErrorInternal
	}

	return user, pair, nil
}

// Authenticate resolves an access token to its user, enforcing the
// token-version check. Used by the HTTP middleware.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.Verify(accessToken, auth.PurposeAccess)
	if err != nil {
		return nil, err
	}

	repo := s.repos.Users(s.db)
	user, err := repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		s.logger.Error(ctx, "error searching user by id", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.isCurrent(claims, user) {
		return nil, common.ErrInvalidToken
	}

	return user, nil
}

// RevokeAll bumps the user's token version, invalidating every outstanding
// access and refresh token at once. Reserved for password-reset and
// compromise-recovery flows; no HTTP endpoint calls it yet.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	repo := s.repos.Users(s.db)

	if _, err := repo.IncrementTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "error incrementing token version", "user_id", userID, "error", err)
		return common.ErrorInternal
	}
	return nil
}

// isCurrent is the revocation policy: a token is honored only while the
// version stamped into it equals the record's current counter.
func (s *Service) isCurrent(claims *auth.Claims, user *models.User) bool {
	return claims.TokenVersion == user.TokenVersion
}

func (s *Service) issueTokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.tokens.Issue(auth.PurposeAccess, user.ID, user.Role, user.TokenVersion, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(auth.PurposeRefresh, user.ID, "", user.TokenVersion, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
