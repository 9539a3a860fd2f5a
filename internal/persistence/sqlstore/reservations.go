package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/scheduler"
)

const reservationColumns = `id, court_id, reservor_id, start_date_time, end_date_time, rate, status, created_at, updated_at`

type reservationRow struct {
	ID         int64         `db:"id"`
	CourtID    sql.NullInt64 `db:"court_id"`
	ReservorID int64         `db:"reservor_id"`
	Start      dbTime        `db:"start_date_time"`
	End        dbTime        `db:"end_date_time"`
	Rate       float64       `db:"rate"`
	Status     string        `db:"status"`
	CreatedAt  dbTime        `db:"created_at"`
	UpdatedAt  dbTime        `db:"updated_at"`
}

func (r reservationRow) model() persistence.Reservation {
	reservation := persistence.Reservation{
		ID:         r.ID,
		ReservorID: r.ReservorID,
		Start:      r.Start.Time(),
		End:        r.End.Time(),
		Rate:       r.Rate,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt.Time(),
		UpdatedAt:  r.UpdatedAt.Time(),
	}
	if r.CourtID.Valid {
		courtID := r.CourtID.Int64
		reservation.CourtID = &courtID
	}
	return reservation
}

// InsertReservation stores a reservation. An active reservation overlapping
// another active one on the same court is refused by the schema with
// persistence.ErrOverlap.
func (s *Storage) InsertReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	if reservation.CourtID == nil || reservation.ReservorID == 0 || !reservation.End.After(reservation.Start) {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}

	now := s.nowUTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = reservation.CreatedAt

	var created persistence.Reservation
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		id, err := insertReturningID(ctx, tx, `
			INSERT INTO reservations (court_id, reservor_id, start_date_time, end_date_time, rate, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`,
			*reservation.CourtID,
			reservation.ReservorID,
			s.timestamp(reservation.Start),
			s.timestamp(reservation.End),
			reservation.Rate,
			reservation.Status,
			s.timestamp(reservation.CreatedAt),
			s.timestamp(reservation.UpdatedAt),
		)
		if err != nil {
			return s.mapError(err)
		}

		created, err = s.getReservation(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.Reservation{}, err
	}

	return created, nil
}

// GetReservation retrieves a reservation by id.
func (s *Storage) GetReservation(ctx context.Context, id int64) (persistence.Reservation, error) {
	return s.getReservation(ctx, s.db, id)
}

// UpdateReservationStatus changes the status of a reservation. Leaving
// Cancelled is refused by the schema with persistence.ErrInvalidTransition.
func (s *Storage) UpdateReservationStatus(ctx context.Context, id int64, status string, updatedAt time.Time) (persistence.Reservation, error) {
	var updated persistence.Reservation
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?
		`), status, s.timestamp(updatedAt), id)
		if err != nil {
			return s.mapError(err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return persistence.ErrNotFound
		}

		updated, err = s.getReservation(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.Reservation{}, err
	}
	return updated, nil
}

// ListReservations returns reservations matching filter ordered by start then id.
// From/To select reservations whose interval intersects [From, To).
func (s *Storage) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.CourtID != nil {
		clauses = append(clauses, "court_id = ?")
		args = append(args, *filter.CourtID)
	}
	if filter.ReservorID != nil {
		clauses = append(clauses, "reservor_id = ?")
		args = append(args, *filter.ReservorID)
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN (?)")
		args = append(args, filter.Statuses)
	}
	if filter.To != nil {
		clauses = append(clauses, "start_date_time < ?")
		args = append(args, s.timestamp(*filter.To))
	}
	if filter.From != nil {
		clauses = append(clauses, "end_date_time > ?")
		args = append(args, s.timestamp(*filter.From))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_date_time ASC, id ASC"

	return s.selectReservations(ctx, query, args...)
}

// ListCourtOverlaps returns the active reservations on courtID intersecting
// [start, end), served by the (court_id, start_date_time) index.
func (s *Storage) ListCourtOverlaps(ctx context.Context, courtID int64, start, end time.Time) ([]persistence.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE court_id = ?
		  AND start_date_time < ?
		  AND end_date_time > ?
		  AND status IN (?)
		ORDER BY start_date_time ASC, id ASC
	`
	return s.selectReservations(ctx, query, courtID, s.timestamp(end), s.timestamp(start), scheduler.ActiveStatusValues())
}

func (s *Storage) selectReservations(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("expand reservation query: %w", err)
	}

	var rows []reservationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(expanded), expandedArgs...); err != nil {
		return nil, s.mapError(err)
	}

	reservations := make([]persistence.Reservation, 0, len(rows))
	for _, row := range rows {
		reservations = append(reservations, row.model())
	}
	return reservations, nil
}

func (s *Storage) getReservation(ctx context.Context, q queryer, id int64) (persistence.Reservation, error) {
	var row reservationRow
	if err := q.GetContext(ctx, &row, q.Rebind(`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`), id); err != nil {
		return persistence.Reservation{}, s.mapError(err)
	}
	return row.model(), nil
}
