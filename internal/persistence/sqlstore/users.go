package sqlstore

import (
	"context"
	"strings"

	"github.com/example/court-reservations/internal/persistence"
)

const userColumns = `id, email, full_name, phone, password_hash, role, is_active, created_at, updated_at`

type userRow struct {
	ID           int64  `db:"id"`
	Email        string `db:"email"`
	FullName     string `db:"full_name"`
	Phone        string `db:"phone"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	IsActive     bool   `db:"is_active"`
	CreatedAt    dbTime `db:"created_at"`
	UpdatedAt    dbTime `db:"updated_at"`
}

func (r userRow) model() persistence.User {
	return persistence.User{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		Phone:        r.Phone,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.Time(),
		UpdatedAt:    r.UpdatedAt.Time(),
	}
}

// CreateUser inserts a new user and returns it with its assigned id.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || user.PasswordHash == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}

	now := s.nowUTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	id, err := insertReturningID(ctx, s.db, `
		INSERT INTO users (email, full_name, phone, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		user.Email,
		user.FullName,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		s.timestamp(user.CreatedAt),
		s.timestamp(user.UpdatedAt),
	)
	if err != nil {
		return persistence.User{}, s.mapError(err)
	}

	return s.getUser(ctx, s.db, id)
}

// UpdateUser overwrites the mutable fields of an existing user.
func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == 0 || user.Email == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE users
		SET email = ?, full_name = ?, phone = ?, password_hash = ?, role = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`),
		user.Email,
		user.FullName,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		s.timestamp(s.nowUTC()),
		user.ID,
	)
	if err != nil {
		return persistence.User{}, s.mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.User{}, persistence.ErrNotFound
	}

	return s.getUser(ctx, s.db, user.ID)
}

// GetUser retrieves a user by id.
func (s *Storage) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	return s.getUser(ctx, s.db, id)
}

// GetUserByEmail retrieves a user by normalised email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return persistence.User{}, s.mapError(err)
	}
	return row.model(), nil
}

// ListUsers returns all users ordered by id.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY id ASC`); err != nil {
		return nil, s.mapError(err)
	}

	users := make([]persistence.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.model())
	}
	return users, nil
}

func (s *Storage) getUser(ctx context.Context, q queryer, id int64) (persistence.User, error) {
	var row userRow
	if err := q.GetContext(ctx, &row, q.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id); err != nil {
		return persistence.User{}, s.mapError(err)
	}
	return row.model(), nil
}
