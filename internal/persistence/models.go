package persistence

import "time"

// User represents an account row.
type User struct {
	ID           int64
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Court represents a bookable facility.
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

// Reservation is a court booking. CourtID is nil once the court was removed.
type Reservation struct {
	ID         int64
	CourtID    *int64
	ReservorID int64
	Start      time.Time
	End        time.Time
	Rate       float64
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Task is a work item assigned by a manager to an employee.
type Task struct {
	ID          int64
	Title       string
	Description string
	AssigneeID  int64
	AssignerID  int64
	DueDate     *time.Time
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
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

// EventParticipant pairs a user with an event they joined.
type EventParticipant struct {
	EventID  int64
	UserID   int64
	JoinedAt time.Time
}

// DashboardTotals aggregates counters used by the staff dashboard.
type DashboardTotals struct {
	TotalUsers        int
	ActiveUsers       int
	TotalReservations int
	TotalRevenue      float64
	ByStatus          map[string]int
}

// ReservationSlice is a lightweight reservation projection used for trends.
type ReservationSlice struct {
	Start  time.Time
	Rate   float64
	Status string
}
