package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/token"
)

// CredentialStore exposes user credential lookup operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id int64) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// TokenIssuer signs and verifies bearer tokens bound to a session id.
type TokenIssuer interface {
	Issue(sessionID string, userID int64, role string, expiresAt time.Time) (string, error)
	Parse(token string) (sessionID string, userID int64, err error)
}

// AuthService coordinates login, logout and session validation.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	tokens         TokenIssuer
	verifyPassword PasswordVerifier
	sessionID      func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, tokens TokenIssuer, verify PasswordVerifier, sessionID func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, tokens, verify, sessionID, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, tokens TokenIssuer, verify PasswordVerifier, sessionID func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if sessionID == nil {
		sessionID = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		tokens:         tokens,
		verifyPassword: verify,
		sessionID:      sessionID,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials, stores a session and signs a token for it.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate",
		"email", email,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			err = ErrInvalidCredentials
			return
		}
		err = storageError("get credentials", err)
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	if !creds.User.IsActive {
		err = ErrAccountDisabled
		return
	}

	now := s.now().UTC()
	session := Session{
		ID:        s.sessionID(),
		UserID:    creds.User.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if session.ID == "" {
		err = fmt.Errorf("session id generator returned an empty id")
		return
	}

	if pruneErr := s.sessions.DeleteExpiredSessions(ctx, now); pruneErr != nil {
		logger.WarnContext(ctx, "failed to prune expired sessions", "error", pruneErr)
	}

	session, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		err = storageError("create session", err)
		return
	}

	var signed string
	signed, err = s.tokens.Issue(session.ID, creds.User.ID, creds.User.Role.String(), session.ExpiresAt)
	if err != nil {
		return
	}

	result = AuthenticateResult{User: creds.User, Session: session, Token: signed, ExpiresAt: session.ExpiresAt}
	return
}

// RevokeSession invalidates the session behind a token.
func (s *AuthService) RevokeSession(ctx context.Context, tokenString string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil || s.tokens == nil {
		return fmt.Errorf("auth service not configured")
	}

	trimmed := strings.TrimSpace(tokenString)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession")

	sessionID, _, err := s.tokens.Parse(trimmed)
	if err != nil && !errors.Is(err, token.ErrExpired) {
		logger.WarnContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(ErrInvalidCredentials))
		return ErrInvalidCredentials
	}
	if errors.Is(err, token.ErrExpired) {
		// Nothing left to revoke.
		return nil
	}

	if _, err := s.sessions.RevokeSession(ctx, sessionID, s.now().UTC()); err != nil {
		if isNotFound(err) {
			logger.WarnContext(ctx, "failed to revoke session", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
			return ErrInvalidCredentials
		}
		err = storageError("revoke session", err)
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "session revoked", "session_id", sessionID)
	return nil
}

// ValidateSession verifies a token against its session row and returns the
// principal of an active user.
func (s *AuthService) ValidateSession(ctx context.Context, tokenString string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil || s.tokens == nil || s.credentials == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	trimmed := strings.TrimSpace(tokenString)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	sessionID, userID, parseErr := s.tokens.Parse(trimmed)
	if parseErr != nil {
		if errors.Is(parseErr, token.ErrExpired) {
			err = ErrSessionExpired
			return
		}
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			err = ErrInvalidCredentials
			return
		}
		err = storageError("get session", err)
		return
	}
	if session.UserID != userID {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if isNotFound(err) {
			err = ErrInvalidCredentials
			return
		}
		err = storageError("get user", err)
		return
	}
	if !user.IsActive {
		err = ErrAccountDisabled
		return
	}

	principal = Principal{UserID: user.ID, Role: user.Role}
	return
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
