package sqlstore

import (
	"context"
	"strings"

	"github.com/example/court-reservations/internal/persistence"
)

const courtColumns = `id, name, court_type, capacity, description, hourly_rate, images, is_available, created_at, updated_at`

type courtRow struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	CourtType   string  `db:"court_type"`
	Capacity    int     `db:"capacity"`
	Description string  `db:"description"`
	HourlyRate  float64 `db:"hourly_rate"`
	Images      string  `db:"images"`
	IsAvailable bool    `db:"is_available"`
	CreatedAt   dbTime  `db:"created_at"`
	UpdatedAt   dbTime  `db:"updated_at"`
}

func (r courtRow) model() (persistence.Court, error) {
	images, err := decodeImages(r.Images)
	if err != nil {
		return persistence.Court{}, err
	}
	return persistence.Court{
		ID:          r.ID,
		Name:        r.Name,
		CourtType:   r.CourtType,
		Capacity:    r.Capacity,
		Description: r.Description,
		HourlyRate:  r.HourlyRate,
		Images:      images,
		IsAvailable: r.IsAvailable,
		CreatedAt:   r.CreatedAt.Time(),
		UpdatedAt:   r.UpdatedAt.Time(),
	}, nil
}

// CreateCourt inserts a new court.
func (s *Storage) CreateCourt(ctx context.Context, court persistence.Court) (persistence.Court, error) {
	if strings.TrimSpace(court.Name) == "" || court.Capacity <= 0 || court.HourlyRate < 0 {
		return persistence.Court{}, persistence.ErrConstraintViolation
	}

	images, err := encodeImages(court.Images)
	if err != nil {
		return persistence.Court{}, err
	}

	now := s.nowUTC()
	id, err := insertReturningID(ctx, s.db, `
		INSERT INTO courts (name, court_type, capacity, description, hourly_rate, images, is_available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		court.Name,
		court.CourtType,
		court.Capacity,
		court.Description,
		court.HourlyRate,
		images,
		court.IsAvailable,
		s.timestamp(now),
		s.timestamp(now),
	)
	if err != nil {
		return persistence.Court{}, s.mapError(err)
	}

	return s.getCourt(ctx, s.db, id)
}

// UpdateCourt overwrites an existing court.
func (s *Storage) UpdateCourt(ctx context.Context, court persistence.Court) (persistence.Court, error) {
	if court.ID == 0 || strings.TrimSpace(court.Name) == "" || court.Capacity <= 0 || court.HourlyRate < 0 {
		return persistence.Court{}, persistence.ErrConstraintViolation
	}

	images, err := encodeImages(court.Images)
	if err != nil {
		return persistence.Court{}, err
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE courts
		SET name = ?, court_type = ?, capacity = ?, description = ?, hourly_rate = ?, images = ?, is_available = ?, updated_at = ?
		WHERE id = ?
	`),
		court.Name,
		court.CourtType,
		court.Capacity,
		court.Description,
		court.HourlyRate,
		images,
		court.IsAvailable,
		s.timestamp(s.nowUTC()),
		court.ID,
	)
	if err != nil {
		return persistence.Court{}, s.mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.Court{}, persistence.ErrNotFound
	}

	return s.getCourt(ctx, s.db, court.ID)
}

// GetCourt retrieves a court by id.
func (s *Storage) GetCourt(ctx context.Context, id int64) (persistence.Court, error) {
	return s.getCourt(ctx, s.db, id)
}

// ListCourts returns all courts ordered by name then id.
func (s *Storage) ListCourts(ctx context.Context) ([]persistence.Court, error) {
	var rows []courtRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+courtColumns+` FROM courts ORDER BY name ASC, id ASC`); err != nil {
		return nil, s.mapError(err)
	}

	courts := make([]persistence.Court, 0, len(rows))
	for _, row := range rows {
		court, err := row.model()
		if err != nil {
			return nil, err
		}
		courts = append(courts, court)
	}
	return courts, nil
}

// DeleteCourt removes a court. Reservations and events keep their history
// with a NULL court reference.
func (s *Storage) DeleteCourt(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM courts WHERE id = ?`), id)
	if err != nil {
		return s.mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (s *Storage) getCourt(ctx context.Context, q queryer, id int64) (persistence.Court, error) {
	var row courtRow
	if err := q.GetContext(ctx, &row, q.Rebind(`SELECT `+courtColumns+` FROM courts WHERE id = ?`), id); err != nil {
		return persistence.Court{}, s.mapError(err)
	}
	return row.model()
}
