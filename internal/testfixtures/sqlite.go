package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/persistence/sqlstore"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// storage instance for integration-style tests.
type SQLiteHarness struct {
	Storage *sqlstore.Storage

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a migrated database in a temporary directory. The
// storage is closed automatically when the test ends.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "courts.db")
	ctx := context.Background()

	storage, err := sqlstore.Open(ctx, sqlstore.Options{Dialect: sqlstore.DialectSQLite, DSN: path})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUser stores fixture and returns it with its assigned ID.
func (h *SQLiteHarness) SeedUser(tb testing.TB, fixture UserFixture) UserFixture {
	tb.Helper()

	created, err := h.Storage.CreateUser(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("failed to seed user %s: %v", fixture.Email, err)
	}
	fixture.ID = created.ID
	return fixture
}

// SeedCourt stores fixture and returns it with its assigned ID.
func (h *SQLiteHarness) SeedCourt(tb testing.TB, fixture CourtFixture) CourtFixture {
	tb.Helper()

	created, err := h.Storage.CreateCourt(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("failed to seed court %s: %v", fixture.Name, err)
	}
	fixture.ID = created.ID
	return fixture
}

// SeedReservation stores fixture directly, bypassing booking rules other than
// the ones enforced by the schema.
func (h *SQLiteHarness) SeedReservation(tb testing.TB, fixture ReservationFixture) persistence.Reservation {
	tb.Helper()

	created, err := h.Storage.InsertReservation(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("failed to seed reservation: %v", err)
	}
	return created
}
