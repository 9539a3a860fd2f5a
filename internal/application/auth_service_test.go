package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/token"
)

// credentialStoreStub implements CredentialStore for tests.
type credentialStoreStub struct {
	credentials UserCredentials
	err         error
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if c.err != nil {
		return UserCredentials{}, c.err
	}
	if c.credentials.User.ID == 0 || c.credentials.User.Email != email {
		return UserCredentials{}, persistence.ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id int64) (User, error) {
	if c.err != nil {
		return User{}, c.err
	}
	if c.credentials.User.ID == id {
		return c.credentials.User, nil
	}
	return User{}, persistence.ErrNotFound
}

// sessionRepositoryStub provides an in-memory implementation of SessionRepository for tests.
type sessionRepositoryStub struct {
	sessions map[string]Session

	createErr error
	getErr    error
	revokeErr error
	deleteErr error

	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessions: make(map[string]Session)}
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, id string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		session.RevokedAt = &revokedAt
	}
	s.sessions[id] = session
	return session, nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.deleteCalls = append(s.deleteCalls, reference)
	return s.deleteErr
}

type authFixture struct {
	svc      *AuthService
	creds    *credentialStoreStub
	sessions *sessionRepositoryStub
	now      *time.Time
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &now
	tokens, err := token.NewManager("auth-service-test-secret", "courts", func() time.Time { return *clock })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	creds := &credentialStoreStub{credentials: UserCredentials{
		User:         User{ID: 7, Email: "user@example.com", Role: RoleEmployee, IsActive: true},
		PasswordHash: "hashed:secret-password",
	}}
	verify := func(hash, password string) error {
		if hash != "hashed:"+password {
			return ErrInvalidCredentials
		}
		return nil
	}

	sessions := newSessionRepositoryStub()
	ids := 0
	svc := NewAuthService(creds, sessions, tokens, verify, func() string {
		ids++
		return "session-" + string(rune('0'+ids))
	}, func() time.Time { return *clock }, time.Hour)

	return authFixture{svc: svc, creds: creds, sessions: sessions, now: clock}
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		result, err := f.svc.Authenticate(context.Background(), AuthenticateParams{Email: " User@Example.com ", Password: "secret-password"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if result.Session.ID != "session-1" || result.Token == "" {
			t.Fatalf("expected session and token, got %+v", result)
		}
		if !result.ExpiresAt.Equal(f.now.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour out, got %v", result.ExpiresAt)
		}
		if len(f.sessions.deleteCalls) != 1 {
			t.Fatalf("expected expired sessions to be pruned once, got %d", len(f.sessions.deleteCalls))
		}
	})

	t.Run("rejects wrong password and unknown email", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		if _, err := f.svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "nope"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if _, err := f.svc.Authenticate(context.Background(), AuthenticateParams{Email: "ghost@example.com", Password: "secret-password"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if len(f.sessions.sessions) != 0 {
			t.Fatalf("expected no session to be created")
		}
	})

	t.Run("rejects deactivated accounts", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		f.creds.credentials.User.IsActive = false
		if _, err := f.svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret-password"}); !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("wraps session storage failures", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		f.sessions.createErr = errors.New("disk full")
		_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret-password"})
		var sErr *StorageError
		if !errors.As(err, &sErr) {
			t.Fatalf("expected StorageError, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	login := func(t *testing.T, f authFixture) string {
		t.Helper()
		result, err := f.svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret-password"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		return result.Token
	}

	t.Run("returns principal for active session", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		principal, err := f.svc.ValidateSession(context.Background(), login(t, f))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if principal.UserID != 7 || principal.Role != RoleEmployee {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		signed := login(t, f)
		if err := f.svc.RevokeSession(context.Background(), signed); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.svc.ValidateSession(context.Background(), signed); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		signed := login(t, f)
		*f.now = f.now.Add(2 * time.Hour)
		if _, err := f.svc.ValidateSession(context.Background(), signed); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects users deactivated after login", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		signed := login(t, f)
		f.creds.credentials.User.IsActive = false
		if _, err := f.svc.ValidateSession(context.Background(), signed); !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("rejects garbage and empty tokens", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		for _, value := range []string{"", "   ", "abc.def.ghi"} {
			if _, err := f.svc.ValidateSession(context.Background(), value); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for %q, got %v", value, err)
			}
		}
	})

	t.Run("rejects tokens whose session row is gone", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		signed := login(t, f)
		delete(f.sessions.sessions, "session-1")
		if _, err := f.svc.ValidateSession(context.Background(), signed); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	if err := f.svc.RevokeSession(context.Background(), ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.svc.RevokeSession(context.Background(), "garbage"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	result, err := f.svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret-password"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if err := f.svc.RevokeSession(context.Background(), result.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sessions.sessions["session-1"].RevokedAt == nil {
		t.Fatalf("expected session to be marked revoked")
	}
}
