package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/court-reservations/internal/scheduler"
)

// ReservationRepository captures the reservation storage used by booking.
// InsertReservation must refuse an active overlap on the same court with
// persistence.ErrOverlap atomically with the write.
type ReservationRepository interface {
	InsertReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	UpdateReservationStatus(ctx context.Context, id int64, status scheduler.Status, updatedAt time.Time) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	ListCourtOverlaps(ctx context.Context, courtID int64, interval scheduler.Interval) ([]Reservation, error)
}

// AvailabilityIndex answers court scoped overlap questions. It never writes.
type AvailabilityIndex struct {
	reservations ReservationRepository
}

// NewAvailabilityIndex constructs an index over the reservation store.
func NewAvailabilityIndex(reservations ReservationRepository) *AvailabilityIndex {
	return &AvailabilityIndex{reservations: reservations}
}

// Conflicts returns the ids of active reservations on courtID overlapping
// interval, ordered by start then id. The storage range query narrows the
// candidates and DetectConflicts applies the exact half-open rule.
func (a *AvailabilityIndex) Conflicts(ctx context.Context, courtID int64, interval scheduler.Interval) ([]int64, error) {
	if a == nil || a.reservations == nil {
		return nil, fmt.Errorf("availability index not configured")
	}

	candidates, err := a.reservations.ListCourtOverlaps(ctx, courtID, interval)
	if err != nil {
		return nil, storageError("list court overlaps", err)
	}

	existing := make([]scheduler.Booking, 0, len(candidates))
	for _, r := range candidates {
		existing = append(existing, r.Booking())
	}

	conflicts := scheduler.DetectConflicts(existing, scheduler.Booking{CourtID: courtID, Interval: interval})
	return scheduler.ConflictIDs(conflicts), nil
}

// DayBookings returns every reservation on courtID intersecting the UTC day
// containing day, whatever its status, ordered by start.
func (a *AvailabilityIndex) DayBookings(ctx context.Context, courtID int64, day time.Time) ([]Reservation, error) {
	if a == nil || a.reservations == nil {
		return nil, fmt.Errorf("availability index not configured")
	}

	window := scheduler.DayWindow(day)
	reservations, err := a.reservations.ListReservations(ctx, ReservationFilter{
		CourtID: &courtID,
		From:    &window.Start,
		To:      &window.End,
	})
	if err != nil {
		return nil, storageError("list day bookings", err)
	}

	out := make([]Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.CourtID != nil && *r.CourtID == courtID && r.Interval().Overlaps(window) {
			out = append(out, r)
		}
	}
	return out, nil
}
