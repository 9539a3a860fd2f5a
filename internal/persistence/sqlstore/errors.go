package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/court-reservations/internal/persistence"
)

const (
	overlapMarker    = "reservation_overlap"
	transitionMarker = "reservation_transition"
	capacityMarker   = "events_within_capacity"
)

// PostgreSQL SQLSTATE codes mapped to persistence errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgExclusionViolation  = "23P01"
	pgRaiseException      = "P0001"
)

// mapError translates driver errors into persistence sentinels. The driver
// error stays in the chain for logging.
func (s *Storage) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPostgresError(pgErr, err)
	}
	return mapSQLiteError(err)
}

func mapPostgresError(pgErr *pgconn.PgError, err error) error {
	switch pgErr.Code {
	case pgExclusionViolation:
		return wrap(persistence.ErrOverlap, err)
	case pgUniqueViolation:
		return wrap(persistence.ErrDuplicate, err)
	case pgForeignKeyViolation:
		return wrap(persistence.ErrForeignKeyViolation, err)
	case pgCheckViolation:
		if pgErr.ConstraintName == capacityMarker {
			return wrap(persistence.ErrCapacityExceeded, err)
		}
		return wrap(persistence.ErrConstraintViolation, err)
	case pgRaiseException:
		if strings.Contains(pgErr.Message, transitionMarker) {
			return wrap(persistence.ErrInvalidTransition, err)
		}
	}
	return err
}

func mapSQLiteError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, overlapMarker):
		return wrap(persistence.ErrOverlap, err)
	case strings.Contains(msg, transitionMarker):
		return wrap(persistence.ErrInvalidTransition, err)
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return wrap(persistence.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return wrap(persistence.ErrForeignKeyViolation, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		if strings.Contains(msg, capacityMarker) {
			return wrap(persistence.ErrCapacityExceeded, err)
		}
		return wrap(persistence.ErrConstraintViolation, err)
	}
	return err
}

func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %v", sentinel, err)
}
