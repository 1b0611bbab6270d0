// Package auth implements password login, JWT issuance and Redis-backed
// sessions for creator accounts.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionManager is the session surface the service needs; implemented by
// the Redis-backed SessionStore.
type SessionManager interface {
	Create(ctx context.Context, creatorID uuid.UUID, userAgent string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Revoke(ctx context.Context, id string) error
}

// Service ties the account store, token manager and session store together.
type Service struct {
	store    AccountStore
	tokens   *TokenManager
	sessions SessionManager
	logger   *zap.Logger
}

func NewService(store AccountStore, tokens *TokenManager, sessions SessionManager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, tokens: tokens, sessions: sessions, logger: logger}
}

// Register creates a new creator account. The plaintext password never leaves
// this function.
func (s *Service) Register(ctx context.Context, email, name, password string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	account, err := s.store.Create(ctx, email, name, hash)
	if err != nil {
		return nil, err
	}

	s.logger.Info("creator registered",
		zap.String("creator_id", account.ID.String()),
		zap.String("email", account.Email))
	return account, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password, userAgent string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.store.ByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(account.PasswordHash, password) {
		s.logger.Warn("failed login attempt", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	session, err := s.sessions.Create(ctx, account.ID, userAgent)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	return s.tokens.IssuePair(account.ID, account.Email, session.ID)
}

// Refresh exchanges a valid refresh token for a new pair. The session must
// still be alive; a revoked session invalidates all refresh tokens minted
// against it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.CreatorID != claims.CreatorID {
		return nil, ErrInvalidToken
	}

	return s.tokens.IssuePair(claims.CreatorID, claims.Email, session.ID)
}

// Logout revokes the session named by a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, claims.SessionID)
}

// Account loads the account behind verified claims, for GET /auth/me.
func (s *Service) Account(ctx context.Context, claims *Claims) (*Account, error) {
	return s.store.ByID(ctx, claims.CreatorID)
}

// AccountByID loads an account by creator ID. Used for SSO logins, where the
// tenant comes from an OIDC introspection claim rather than first-party
// token claims.
func (s *Service) AccountByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.store.ByID(ctx, id)
}

// VerifyAccess satisfies the middleware TokenVerifier interface.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	return s.tokens.VerifyAccess(token)
}
