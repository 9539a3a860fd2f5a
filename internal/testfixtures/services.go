package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/court-reservations/internal/application"
	"github.com/example/court-reservations/internal/persistence/bridge"
	"github.com/example/court-reservations/internal/token"
)

const (
	tokenSecret = "testfixtures-signing-secret"
	tokenIssuer = "court-reservations-test"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock      *Clock
	SessionIDs *SessionIDs
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:      NewClock(time.Time{}),
		SessionIDs: NewSessionIDs(""),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.SessionIDs == nil {
		factory.SessionIDs = NewSessionIDs("")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithSessionIDs overrides the session identifier source used by the factory.
func WithSessionIDs(generator *SessionIDs) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.SessionIDs = generator
	}
}

// BookingAuthorityDeps captures dependencies for constructing a booking authority.
type BookingAuthorityDeps struct {
	Courts       application.CourtLookup
	Reservations application.ReservationRepository
	Publisher    application.Publisher
	Policy       *application.BookingPolicy
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewBookingAuthority builds a booking authority. The default policy is used
// when deps.Policy is nil.
func (f *ServiceFactory) NewBookingAuthority(deps BookingAuthorityDeps) *application.BookingAuthority {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	policy := application.DefaultBookingPolicy()
	if deps.Policy != nil {
		policy = *deps.Policy
	}
	return application.NewBookingAuthorityWithLogger(
		deps.Courts,
		deps.Reservations,
		deps.Publisher,
		policy,
		now,
		deps.Logger,
	)
}

// CourtServiceDeps captures dependencies for constructing a court service.
type CourtServiceDeps struct {
	Courts application.CourtRepository
	Now    func() time.Time
	Logger *slog.Logger
}

// NewCourtService builds a court service using the supplied dependencies.
func (f *ServiceFactory) NewCourtService(deps CourtServiceDeps) *application.CourtService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewCourtServiceWithLogger(deps.Courts, now, deps.Logger)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users  application.UserRepository
	Hash   application.PasswordHasher
	Now    func() time.Time
	Logger *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	hash := deps.Hash
	if hash == nil {
		hash = application.HashPassword
	}
	return application.NewUserServiceWithLogger(deps.Users, hash, now, deps.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	Tokens         application.TokenIssuer
	PasswordVerify application.PasswordVerifier
	SessionID      func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies. A
// token manager driven by the factory clock is used when deps.Tokens is nil.
func (f *ServiceFactory) NewAuthService(tb testing.TB, deps AuthServiceDeps) *application.AuthService {
	tb.Helper()

	sessionID := deps.SessionID
	if sessionID == nil {
		sessionID = f.SessionIDs.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = f.NewTokenManager(tb)
	}
	verify := deps.PasswordVerify
	if verify == nil {
		verify = application.VerifyPassword
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		tokens,
		verify,
		sessionID,
		now,
		ttl,
		deps.Logger,
	)
}

// NewTokenManager returns a token manager whose clock follows the factory clock.
func (f *ServiceFactory) NewTokenManager(tb testing.TB) *token.Manager {
	tb.Helper()

	manager, err := token.NewManager(tokenSecret, tokenIssuer, f.Clock.NowFunc())
	if err != nil {
		tb.Fatalf("failed to create token manager: %v", err)
	}
	return manager
}

// Services bundles every application service wired to one SQLite database.
type Services struct {
	Harness      *SQLiteHarness
	Store        *bridge.Store
	Authority    *application.BookingAuthority
	Reservations *application.ReservationService
	Courts       *application.CourtService
	Users        *application.UserService
	Auth         *application.AuthService
	Tasks        *application.TaskService
	Events       *application.EventService
	Dashboard    *application.DashboardService
}

// NewSQLiteServices wires the full service graph over a fresh SQLite harness.
// publisher may be nil.
func (f *ServiceFactory) NewSQLiteServices(tb testing.TB, publisher application.Publisher) *Services {
	tb.Helper()

	harness := NewSQLiteHarness(tb)
	store := bridge.New(harness.Storage)
	now := f.Clock.NowFunc()

	authority := f.NewBookingAuthority(BookingAuthorityDeps{Courts: store, Reservations: store, Publisher: publisher})
	return &Services{
		Harness:      harness,
		Store:        store,
		Authority:    authority,
		Reservations: application.NewReservationService(authority, store),
		Courts:       f.NewCourtService(CourtServiceDeps{Courts: store}),
		Users:        f.NewUserService(UserServiceDeps{Users: store}),
		Auth:         f.NewAuthService(tb, AuthServiceDeps{Credentials: store, Sessions: store}),
		Tasks:        application.NewTaskService(store, store, publisher, now),
		Events:       application.NewEventService(store, store, now),
		Dashboard:    application.NewDashboardService(store, 0, now),
	}
}
