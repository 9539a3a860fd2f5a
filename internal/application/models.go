package application

import (
	"time"

	"github.com/example/court-reservations/internal/scheduler"
)

// User represents an account exposed by the application services.
type User struct {
	ID        int64
	Email     string
	FullName  string
	Phone     string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// SignUpInput captures the public self registration fields.
type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// CreateUserParams wraps the data required for a manager to create an account.
type CreateUserParams struct {
	Principal Principal
	Input     SignUpInput
	Role      Role
}

// UpdateUserInput carries optional profile changes. Nil fields are left untouched.
type UpdateUserInput struct {
	FullName *string
	Phone    *string
	Password *string
	Role     *Role
	IsActive *bool
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    int64
	Input     UpdateUserInput
}

// CourtInput captures caller provided court fields.
type CourtInput struct {
	Name        string
	CourtType   string
	Capacity    int
	Description string
	HourlyRate  float64
	Images      []string
	IsAvailable bool
}

// Court represents a bookable facility unit.
type Court struct {
	ID          int64
	Name        string
	CourtType   string
	Capacity    int
	Description string
	HourlyRate  float64
	Images      []string
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateCourtParams wraps the data required to create a court.
type CreateCourtParams struct {
	Principal Principal
	Input     CourtInput
}

// UpdateCourtParams wraps the data required to update a court.
type UpdateCourtParams struct {
	Principal Principal
	CourtID   int64
	Input     CourtInput
}

// Reservation is a court booking. CourtID is nil when the court was removed.
type Reservation struct {
	ID         int64
	CourtID    *int64
	ReservorID int64
	Start      time.Time
	End        time.Time
	Rate       float64
	Status     scheduler.Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Interval returns the booked [Start, End) range.
func (r Reservation) Interval() scheduler.Interval {
	return scheduler.Interval{Start: r.Start, End: r.End}
}

// Booking projects the reservation for conflict detection.
func (r Reservation) Booking() scheduler.Booking {
	var courtID int64
	if r.CourtID != nil {
		courtID = *r.CourtID
	}
	return scheduler.Booking{ID: r.ID, CourtID: courtID, Status: r.Status, Interval: r.Interval()}
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	CourtID    *int64
	ReservorID *int64
	Statuses   []scheduler.Status
	From       *time.Time
	To         *time.Time
}

// ReservationInput captures a booking request as received from a caller.
type ReservationInput struct {
	CourtID    int64
	Start      time.Time
	End        time.Time
	ReservorID *int64
	Rate       *float64
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// UpdateReservationStatusParams wraps a status transition request.
type UpdateReservationStatusParams struct {
	Principal     Principal
	ReservationID int64
	Status        string
}

// ListReservationsParams wraps the data required to list reservations.
type ListReservationsParams struct {
	Principal  Principal
	CourtID    *int64
	ReservorID *int64
	Status     string
	From       *time.Time
	To         *time.Time
}

// CourtAvailability lists the reservations of a court on one UTC day.
type CourtAvailability struct {
	CourtID      int64
	Day          time.Time
	Reservations []Reservation
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User      User
	Session   Session
	Token     string
	ExpiresAt time.Time
}

// TaskStatus is the progress of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Task is work assigned by a manager to an employee.
type Task struct {
	ID          int64
	Title       string
	Description string
	AssigneeID  int64
	AssignerID  int64
	DueDate     *time.Time
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskInput captures caller provided task fields.
type TaskInput struct {
	Title       string
	Description string
	AssigneeID  int64
	DueDate     *time.Time
	Status      TaskStatus
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	AssigneeID *int64
	Status     TaskStatus
}

// Event is a scheduled activity on a court with a participant cap.
type Event struct {
	ID                  int64
	CourtID             *int64
	Title               string
	Description         string
	Start               time.Time
	End                 time.Time
	MaxParticipants     int
	CurrentParticipants int
	CreatedBy           int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	CourtID         *int64
	Title           string
	Description     string
	Start           time.Time
	End             time.Time
	MaxParticipants int
}

// EventParticipant pairs a user with an event they joined.
type EventParticipant struct {
	EventID  int64
	UserID   int64
	JoinedAt time.Time
}

// DashboardTotals holds the all-time counters read from storage.
type DashboardTotals struct {
	TotalUsers        int
	ActiveUsers       int
	TotalReservations int
	TotalRevenue      float64
	ByStatus          map[string]int
}

// ReservationSlice is the minimal reservation projection used for trends.
type ReservationSlice struct {
	Start  time.Time
	Rate   float64
	Status scheduler.Status
}

// MonthlyTrend summarises one calendar month.
type MonthlyTrend struct {
	Month        string
	Reservations int
	Revenue      float64
}

// DashboardSummary is the staff dashboard payload.
type DashboardSummary struct {
	TotalUsers        int
	ActiveUsers       int
	TotalReservations int
	MonthReservations int
	TotalRevenue      float64
	MonthRevenue      float64
	ByStatus          map[string]int
	Trends            []MonthlyTrend
	GeneratedAt       time.Time
}
