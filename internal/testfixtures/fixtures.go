package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/court-reservations/internal/application"
	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/scheduler"
)

var (
	userCounter    uint64
	courtCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account. ID stays zero until the
// fixture is stored.
type UserFixture struct {
	ID           int64
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Role         application.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns an active customer fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		Email:        fmt.Sprintf("user-%03d@example.com", idx),
		FullName:     fmt.Sprintf("User %03d", idx),
		Phone:        fmt.Sprintf("+1555%07d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleCustomer,
		IsActive:     true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserRole sets the account role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserInactive marks the account as deactivated.
func WithUserInactive() UserOption {
	return func(f *UserFixture) {
		f.IsActive = false
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Email:     f.Email,
		FullName:  f.FullName,
		Phone:     f.Phone,
		Role:      f.Role,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		FullName:     f.FullName,
		Phone:        f.Phone,
		PasswordHash: f.PasswordHash,
		Role:         f.Role.String(),
		IsActive:     f.IsActive,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Court fixtures -----------------------------

// CourtFixture represents a deterministic bookable court.
type CourtFixture struct {
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

// CourtOption configures the generated court fixture.
type CourtOption func(*CourtFixture)

// NewCourtFixture returns an available tennis court fixture.
func NewCourtFixture(opts ...CourtOption) CourtFixture {
	idx := atomic.AddUint64(&courtCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := CourtFixture{
		Name:        fmt.Sprintf("Court %03d", idx),
		CourtType:   "tennis",
		Capacity:    4,
		Description: "Outdoor hard court",
		HourlyRate:  1000,
		IsAvailable: true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCourtName overrides the generated name.
func WithCourtName(name string) CourtOption {
	return func(f *CourtFixture) {
		f.Name = name
	}
}

// WithCourtType overrides the court type.
func WithCourtType(courtType string) CourtOption {
	return func(f *CourtFixture) {
		f.CourtType = courtType
	}
}

// WithCourtHourlyRate overrides the hourly rate.
func WithCourtHourlyRate(rate float64) CourtOption {
	return func(f *CourtFixture) {
		f.HourlyRate = rate
	}
}

// WithCourtImages sets the image references.
func WithCourtImages(images ...string) CourtOption {
	return func(f *CourtFixture) {
		f.Images = append([]string(nil), images...)
	}
}

// WithCourtUnavailable flags the court as closed for booking.
func WithCourtUnavailable() CourtOption {
	return func(f *CourtFixture) {
		f.IsAvailable = false
	}
}

// Application returns the fixture as an application.Court value.
func (f CourtFixture) Application() application.Court {
	return application.Court{
		ID:          f.ID,
		Name:        f.Name,
		CourtType:   f.CourtType,
		Capacity:    f.Capacity,
		Description: f.Description,
		HourlyRate:  f.HourlyRate,
		Images:      append([]string(nil), f.Images...),
		IsAvailable: f.IsAvailable,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input returns the fixture as an application.CourtInput.
func (f CourtFixture) Input() application.CourtInput {
	return application.CourtInput{
		Name:        f.Name,
		CourtType:   f.CourtType,
		Capacity:    f.Capacity,
		Description: f.Description,
		HourlyRate:  f.HourlyRate,
		Images:      append([]string(nil), f.Images...),
		IsAvailable: f.IsAvailable,
	}
}

// Persistence returns the fixture as a persistence.Court value.
func (f CourtFixture) Persistence() persistence.Court {
	return persistence.Court{
		ID:          f.ID,
		Name:        f.Name,
		CourtType:   f.CourtType,
		Capacity:    f.Capacity,
		Description: f.Description,
		HourlyRate:  f.HourlyRate,
		Images:      append([]string(nil), f.Images...),
		IsAvailable: f.IsAvailable,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ----------------------------- Reservation fixtures -----------------------------

// ReservationFixture represents a deterministic court booking.
type ReservationFixture struct {
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

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a pending one hour booking of courtID by
// reservorID starting a day after ReferenceTime.
func NewReservationFixture(courtID, reservorID int64, opts ...ReservationOption) ReservationFixture {
	start := referenceTime.Truncate(time.Hour).Add(24 * time.Hour)
	fixture := ReservationFixture{
		CourtID:    &courtID,
		ReservorID: reservorID,
		Start:      start,
		End:        start.Add(time.Hour),
		Rate:       1000,
		Status:     scheduler.StatusPending,
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationWindow overrides the booked interval.
func WithReservationWindow(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithReservationStatus overrides the status.
func WithReservationStatus(status scheduler.Status) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// WithReservationRate overrides the charged rate.
func WithReservationRate(rate float64) ReservationOption {
	return func(f *ReservationFixture) {
		f.Rate = rate
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:         f.ID,
		CourtID:    copyInt64Ptr(f.CourtID),
		ReservorID: f.ReservorID,
		Start:      f.Start,
		End:        f.End,
		Rate:       f.Rate,
		Status:     f.Status,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:         f.ID,
		CourtID:    copyInt64Ptr(f.CourtID),
		ReservorID: f.ReservorID,
		Start:      f.Start,
		End:        f.End,
		Rate:       f.Rate,
		Status:     string(f.Status),
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// ----------------------------- Session fixtures -----------------------------

// SessionFixture represents a deterministic authentication session.
type SessionFixture struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session for userID valid for a day.
func NewSessionFixture(userID int64, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    userID,
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionExpiresAt overrides the expiry.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt marks the session as revoked at t.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.RevokedAt = &t
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		v := *f.RevokedAt
		revoked = &v
	}
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: revoked,
	}
}

func copyInt64Ptr(src *int64) *int64 {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
