package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/court-reservations/internal/persistence"
)

const eventColumns = `id, court_id, title, description, start_date_time, end_date_time, max_participants, current_participants, created_by, created_at, updated_at`

type eventRow struct {
	ID                  int64         `db:"id"`
	CourtID             sql.NullInt64 `db:"court_id"`
	Title               string        `db:"title"`
	Description         string        `db:"description"`
	Start               dbTime        `db:"start_date_time"`
	End                 dbTime        `db:"end_date_time"`
	MaxParticipants     int           `db:"max_participants"`
	CurrentParticipants int           `db:"current_participants"`
	CreatedBy           int64         `db:"created_by"`
	CreatedAt           dbTime        `db:"created_at"`
	UpdatedAt           dbTime        `db:"updated_at"`
}

func (r eventRow) model() persistence.Event {
	event := persistence.Event{
		ID:                  r.ID,
		Title:               r.Title,
		Description:         r.Description,
		Start:               r.Start.Time(),
		End:                 r.End.Time(),
		MaxParticipants:     r.MaxParticipants,
		CurrentParticipants: r.CurrentParticipants,
		CreatedBy:           r.CreatedBy,
		CreatedAt:           r.CreatedAt.Time(),
		UpdatedAt:           r.UpdatedAt.Time(),
	}
	if r.CourtID.Valid {
		courtID := r.CourtID.Int64
		event.CourtID = &courtID
	}
	return event
}

type participantRow struct {
	EventID  int64  `db:"event_id"`
	UserID   int64  `db:"user_id"`
	JoinedAt dbTime `db:"joined_at"`
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// CreateEvent inserts a new event with no participants.
func (s *Storage) CreateEvent(ctx context.Context, event persistence.Event) (persistence.Event, error) {
	if strings.TrimSpace(event.Title) == "" || event.MaxParticipants <= 0 || !event.End.After(event.Start) {
		return persistence.Event{}, persistence.ErrConstraintViolation
	}

	now := s.nowUTC()
	id, err := insertReturningID(ctx, s.db, `
		INSERT INTO events (court_id, title, description, start_date_time, end_date_time, max_participants, current_participants, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		RETURNING id
	`,
		nullableID(event.CourtID),
		event.Title,
		event.Description,
		s.timestamp(event.Start),
		s.timestamp(event.End),
		event.MaxParticipants,
		event.CreatedBy,
		s.timestamp(now),
		s.timestamp(now),
	)
	if err != nil {
		return persistence.Event{}, s.mapError(err)
	}

	return s.getEvent(ctx, s.db, id)
}

// UpdateEvent overwrites the descriptive fields of an event. Lowering
// max_participants below the current count is refused with ErrCapacityExceeded.
func (s *Storage) UpdateEvent(ctx context.Context, event persistence.Event) (persistence.Event, error) {
	if event.ID == 0 || strings.TrimSpace(event.Title) == "" || event.MaxParticipants <= 0 || !event.End.After(event.Start) {
		return persistence.Event{}, persistence.ErrConstraintViolation
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE events
		SET court_id = ?, title = ?, description = ?, start_date_time = ?, end_date_time = ?, max_participants = ?, updated_at = ?
		WHERE id = ?
	`),
		nullableID(event.CourtID),
		event.Title,
		event.Description,
		s.timestamp(event.Start),
		s.timestamp(event.End),
		event.MaxParticipants,
		s.timestamp(s.nowUTC()),
		event.ID,
	)
	if err != nil {
		return persistence.Event{}, s.mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.Event{}, persistence.ErrNotFound
	}

	return s.getEvent(ctx, s.db, event.ID)
}

// GetEvent retrieves an event by id.
func (s *Storage) GetEvent(ctx context.Context, id int64) (persistence.Event, error) {
	return s.getEvent(ctx, s.db, id)
}

// ListEvents returns events intersecting [from, to) ordered by start. Nil bounds are open.
func (s *Storage) ListEvents(ctx context.Context, from, to *time.Time) ([]persistence.Event, error) {
	var (
		clauses []string
		args    []any
	)
	if to != nil {
		clauses = append(clauses, "start_date_time < ?")
		args = append(args, s.timestamp(*to))
	}
	if from != nil {
		clauses = append(clauses, "end_date_time > ?")
		args = append(args, s.timestamp(*from))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_date_time ASC, id ASC"

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, s.mapError(err)
	}

	events := make([]persistence.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.model())
	}
	return events, nil
}

// DeleteEvent removes an event and its participants.
func (s *Storage) DeleteEvent(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return s.mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// JoinEvent registers userID for eventID. The participant row and the
// counter increment commit together; a full event yields ErrCapacityExceeded
// and a repeated join yields ErrDuplicate.
func (s *Storage) JoinEvent(ctx context.Context, eventID, userID int64, joinedAt time.Time) (persistence.Event, error) {
	var joined persistence.Event
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.getEvent(ctx, tx, eventID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO event_participants (event_id, user_id, joined_at) VALUES (?, ?, ?)
		`), eventID, userID, s.timestamp(joinedAt)); err != nil {
			return s.mapError(err)
		}

		result, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE events
			SET current_participants = current_participants + 1, updated_at = ?
			WHERE id = ? AND current_participants < max_participants
		`), s.timestamp(joinedAt), eventID)
		if err != nil {
			return s.mapError(err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return persistence.ErrCapacityExceeded
		}

		joined, err = s.getEvent(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return persistence.Event{}, err
	}
	return joined, nil
}

// LeaveEvent removes userID from eventID and releases the place.
func (s *Storage) LeaveEvent(ctx context.Context, eventID, userID int64) (persistence.Event, error) {
	var left persistence.Event
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM event_participants WHERE event_id = ? AND user_id = ?
		`), eventID, userID)
		if err != nil {
			return s.mapError(err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE events
			SET current_participants = current_participants - 1, updated_at = ?
			WHERE id = ? AND current_participants > 0
		`), s.timestamp(s.nowUTC()), eventID); err != nil {
			return s.mapError(err)
		}

		left, err = s.getEvent(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return persistence.Event{}, err
	}
	return left, nil
}

// ListParticipants returns the participants of eventID in join order.
func (s *Storage) ListParticipants(ctx context.Context, eventID int64) ([]persistence.EventParticipant, error) {
	if _, err := s.getEvent(ctx, s.db, eventID); err != nil {
		return nil, err
	}

	var rows []participantRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT event_id, user_id, joined_at FROM event_participants
		WHERE event_id = ?
		ORDER BY joined_at ASC, user_id ASC
	`), eventID); err != nil {
		return nil, s.mapError(err)
	}

	participants := make([]persistence.EventParticipant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, persistence.EventParticipant{
			EventID:  row.EventID,
			UserID:   row.UserID,
			JoinedAt: row.JoinedAt.Time(),
		})
	}
	return participants, nil
}

func (s *Storage) getEvent(ctx context.Context, q queryer, id int64) (persistence.Event, error) {
	var row eventRow
	if err := q.GetContext(ctx, &row, q.Rebind(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id); err != nil {
		return persistence.Event{}, s.mapError(err)
	}
	return row.model(), nil
}
