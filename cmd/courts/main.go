package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/court-reservations/internal/application"
	"github.com/example/court-reservations/internal/config"
	httptransport "github.com/example/court-reservations/internal/http"
	"github.com/example/court-reservations/internal/logging"
	"github.com/example/court-reservations/internal/notify"
	"github.com/example/court-reservations/internal/persistence/bridge"
	"github.com/example/court-reservations/internal/persistence/sqlstore"
	"github.com/example/court-reservations/internal/token"
)

const tokenIssuer = "court-reservations"

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		bootLogger.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		bootLogger.Error("failed to configure logger", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// app owns every long lived dependency of the API process.
type app struct {
	handler  http.Handler
	storage  *sqlstore.Storage
	services services
	closers  []io.Closer
	logger   *slog.Logger
}

type services struct {
	users        *application.UserService
	auth         *application.AuthService
	courts       *application.CourtService
	reservations *application.ReservationService
	tasks        *application.TaskService
	events       *application.EventService
	dashboard    *application.DashboardService
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	storage, err := sqlstore.Open(ctx, sqlstore.Options{
		Dialect:      dialect,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &app{storage: storage, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err = storage.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	var publisher application.Publisher
	if cfg.AMQPURL != "" {
		amqpPublisher, perr := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if perr != nil {
			err = fmt.Errorf("connect message broker: %w", perr)
			return nil, err
		}
		a.closers = append(a.closers, amqpPublisher)
		publisher = amqpPublisher
	} else {
		logger.Info("no message broker configured, notifications are logged only")
		publisher = notify.NewLogPublisher(logger)
	}

	tokens, err := token.NewManager(cfg.SessionSecret, tokenIssuer, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure tokens: %w", err)
	}

	store := bridge.New(storage)
	now := time.Now

	dashboard := application.NewDashboardServiceWithLogger(store, cfg.DashboardCacheTTL, now, logger)
	publisher = notify.WithHook(publisher, func(_ context.Context, topic string) {
		if strings.HasPrefix(topic, "reservation.") {
			dashboard.Invalidate()
		}
	})

	policy := application.BookingPolicy{
		RequireCourtAvailable: cfg.RequireCourtAvailable,
		RejectPastBookings:    cfg.RejectPastBookings,
		PastGrace:             cfg.PastGrace,
	}
	authority := application.NewBookingAuthorityWithLogger(store, store, publisher, policy, now, logger)

	a.services = services{
		users:        application.NewUserServiceWithLogger(store, application.HashPassword, now, logger),
		auth:         application.NewAuthServiceWithLogger(store, store, tokens, application.VerifyPassword, uuid.NewString, now, cfg.SessionTTL, logger),
		courts:       application.NewCourtServiceWithLogger(store, now, logger),
		reservations: application.NewReservationServiceWithLogger(authority, store, logger),
		tasks:        application.NewTaskServiceWithLogger(store, store, publisher, now, logger),
		events:       application.NewEventServiceWithLogger(store, store, now, logger),
		dashboard:    dashboard,
	}

	if cfg.BootstrapManagerEmail != "" {
		if err = a.bootstrapManager(ctx, cfg.BootstrapManagerEmail, cfg.BootstrapManagerPassword); err != nil {
			return nil, err
		}
	}

	a.handler = a.routes()
	return a, nil
}

func (a *app) bootstrapManager(ctx context.Context, email, password string) error {
	user, err := a.services.users.BootstrapManager(ctx, application.SignUpInput{
		Email:    email,
		Password: password,
		FullName: "Manager",
	})
	switch {
	case errors.Is(err, application.ErrAlreadyExists):
		a.logger.Info("bootstrap manager already present", "email", email)
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap manager: %w", err)
	}
	a.logger.Info("bootstrap manager created", "user_id", user.ID)
	return nil
}

func (a *app) routes() http.Handler {
	logger := a.logger
	svc := a.services

	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(svc.auth, svc.users, logger),
		Users:        httptransport.NewUserHandler(svc.users, logger),
		Courts:       httptransport.NewCourtHandler(svc.courts, svc.reservations, logger),
		Reservations: httptransport.NewReservationHandler(svc.reservations, logger),
		Tasks:        httptransport.NewTaskHandler(svc.tasks, logger),
		Events:       httptransport.NewEventHandler(svc.events, logger),
		Dashboard:    httptransport.NewDashboardHandler(svc.dashboard, logger),
		Sessions:     svc.auth,
		Logger:       logger,
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}

// Close releases the broker connection and the database handle.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close dependency", "error", err)
		}
	}
	a.closers = nil
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("failed to close storage", "error", err)
		}
		a.storage = nil
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("court reservation API listening", "addr", server.Addr, "db_driver", cfg.DBDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
