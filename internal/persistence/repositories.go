package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// CourtRepository exposes CRUD operations for courts.
type CourtRepository interface {
	CreateCourt(ctx context.Context, court Court) (Court, error)
	UpdateCourt(ctx context.Context, court Court) (Court, error)
	GetCourt(ctx context.Context, id int64) (Court, error)
	ListCourts(ctx context.Context) ([]Court, error)
	DeleteCourt(ctx context.Context, id int64) error
}

// ReservationFilter narrows reservation listings. Zero values are ignored.
type ReservationFilter struct {
	CourtID    *int64
	ReservorID *int64
	Statuses   []string
	From       *time.Time
	To         *time.Time
}

// ReservationRepository stores reservations. InsertReservation must reject an
// active reservation that overlaps another active reservation on the same
// court with ErrOverlap, atomically with the write.
type ReservationRepository interface {
	InsertReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	UpdateReservationStatus(ctx context.Context, id int64, status string, updatedAt time.Time) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// ListCourtOverlaps returns active reservations on courtID intersecting [start, end).
	ListCourtOverlaps(ctx context.Context, courtID int64, start, end time.Time) ([]Reservation, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	AssigneeID *int64
	Status     string
}

// TaskRepository stores tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	UpdateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// EventRepository stores events and their participants. JoinEvent must check
// capacity and insert the participant atomically.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	ListEvents(ctx context.Context, from, to *time.Time) ([]Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	JoinEvent(ctx context.Context, eventID, userID int64, joinedAt time.Time) (Event, error)
	LeaveEvent(ctx context.Context, eventID, userID int64) (Event, error)
	ListParticipants(ctx context.Context, eventID int64) ([]EventParticipant, error)
}

// DashboardRepository exposes aggregate queries.
type DashboardRepository interface {
	DashboardTotals(ctx context.Context) (DashboardTotals, error)
	ReservationSlices(ctx context.Context, from, to time.Time) ([]ReservationSlice, error)
}
