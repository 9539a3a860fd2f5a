package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/persistence/migration"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// Dialect names the SQL backend a Storage talks to.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect validates a configured driver name.
func ParseDialect(value string) (Dialect, error) {
	switch Dialect(value) {
	case DialectSQLite, DialectPostgres:
		return Dialect(value), nil
	case "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", value)
	}
}

// Options configures Open.
type Options struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          *slog.Logger
}

// Storage implements every persistence repository on top of a single sqlx handle.
type Storage struct {
	db      *sqlx.DB
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// Open connects to the configured backend. Migrations are applied separately via Migrate.
func Open(ctx context.Context, opts Options) (*Storage, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch opts.Dialect {
	case DialectSQLite, "":
		opts.Dialect = DialectSQLite
		db, err = openSQLite(ctx, SQLiteConfigFromDSN(opts.DSN))
	case DialectPostgres:
		db, err = openPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", opts.Dialect)
	}
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return &Storage{
		db:      db,
		dialect: opts.Dialect,
		logger:  logger.With("component", "sqlstore", "dialect", string(opts.Dialect)),
		now:     time.Now,
	}, nil
}

// DB exposes the underlying handle.
func (s *Storage) DB() *sqlx.DB {
	return s.db
}

// Dialect reports the backend in use.
func (s *Storage) Dialect() Dialect {
	return s.dialect
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema migrations for the active dialect.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(),
		migration.NewSQLExecutor(s.db),
		migrationFiles,
		"migrations/"+string(s.dialect),
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrate %s schema: %w", s.dialect, err)
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", s.mapError(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", s.mapError(err))
	}
	return nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// timestamp returns the bind value used for t by the active dialect.
func (s *Storage) timestamp(t time.Time) any {
	t = t.UTC().Truncate(time.Microsecond)
	if s.dialect == DialectPostgres {
		return t
	}
	return t.Format(timestampLayout)
}

func (s *Storage) nullableTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.timestamp(*t)
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func insertReturningID(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowxContext(ctx, q.Rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Storage) nowUTC() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

var (
	_ persistence.UserRepository        = (*Storage)(nil)
	_ persistence.CourtRepository       = (*Storage)(nil)
	_ persistence.ReservationRepository = (*Storage)(nil)
	_ persistence.SessionRepository     = (*Storage)(nil)
	_ persistence.TaskRepository        = (*Storage)(nil)
	_ persistence.EventRepository       = (*Storage)(nil)
	_ persistence.DashboardRepository   = (*Storage)(nil)
)
