package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/scheduler"
)

// CourtLookup resolves courts referenced by bookings.
type CourtLookup interface {
	GetCourt(ctx context.Context, id int64) (Court, error)
}

// BookingPolicy tunes the checks Book applies before touching storage.
type BookingPolicy struct {
	// RequireCourtAvailable rejects bookings on courts flagged unavailable.
	RequireCourtAvailable bool
	// RejectPastBookings rejects intervals starting before now minus PastGrace.
	RejectPastBookings bool
	PastGrace          time.Duration
}

// DefaultBookingPolicy mirrors the configuration defaults.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{RequireCourtAvailable: true, RejectPastBookings: true, PastGrace: 5 * time.Minute}
}

// BookRequest is a validated-by-Book booking request. Role checks happen
// before a request reaches the authority.
type BookRequest struct {
	CourtID      int64
	Start        time.Time
	End          time.Time
	RequesterID  int64
	RateOverride *float64
}

// BookingAuthority is the only component that creates reservations or
// changes their status. Two active reservations on the same court never
// overlap once Book returns.
type BookingAuthority struct {
	courts       CourtLookup
	reservations ReservationRepository
	index        *AvailabilityIndex
	publisher    Publisher
	policy       BookingPolicy
	locks        *courtLocks
	now          func() time.Time
	logger       *slog.Logger
}

// NewBookingAuthority constructs a booking authority with the default logger.
func NewBookingAuthority(courts CourtLookup, reservations ReservationRepository, publisher Publisher, policy BookingPolicy, now func() time.Time) *BookingAuthority {
	return NewBookingAuthorityWithLogger(courts, reservations, publisher, policy, now, nil)
}

// NewBookingAuthorityWithLogger constructs a booking authority with a specified logger.
func NewBookingAuthorityWithLogger(courts CourtLookup, reservations ReservationRepository, publisher Publisher, policy BookingPolicy, now func() time.Time, logger *slog.Logger) *BookingAuthority {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &BookingAuthority{
		courts:       courts,
		reservations: reservations,
		index:        NewAvailabilityIndex(reservations),
		publisher:    publisher,
		policy:       policy,
		locks:        newCourtLocks(),
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (a *BookingAuthority) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, a.logger, "BookingAuthority", operation, attrs...)
}

// Index exposes the read side used for availability queries.
func (a *BookingAuthority) Index() *AvailabilityIndex {
	if a == nil {
		return nil
	}
	return a.index
}

// Book validates the request, checks the court for active overlaps and
// persists a Pending reservation. Concurrent calls for the same court are
// serialised in process and the store rejects overlaps that slip past.
func (a *BookingAuthority) Book(ctx context.Context, req BookRequest) (reservation Reservation, err error) {
	if a == nil {
		err = fmt.Errorf("BookingAuthority is nil")
		return
	}
	if a.courts == nil || a.reservations == nil {
		err = fmt.Errorf("booking authority not configured")
		return
	}

	logger := a.loggerWith(ctx, "Book",
		"court_id", req.CourtID,
		"requester_id", req.RequesterID,
	)
	defer func() {
		if err != nil {
			var cErr *ConflictError
			if errors.As(err, &cErr) {
				logger.WarnContext(ctx, "booking rejected", "conflicting_ids", cErr.ConflictingIDs, "error_kind", ErrorKind(err))
				return
			}
			logger.ErrorContext(ctx, "failed to book court", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "court booked")
	}()

	interval, vErr := a.validateRequest(req)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var court Court
	court, err = a.courts.GetCourt(ctx, req.CourtID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = fieldError("court_id", "court does not exist")
			return
		}
		err = storageError("get court", err)
		return
	}
	if a.policy.RequireCourtAvailable && !court.IsAvailable {
		err = fieldError("court_id", "court is not available for booking")
		return
	}

	var release func()
	release, err = a.locks.acquire(ctx, req.CourtID)
	if err != nil {
		return
	}
	defer release()

	var conflicting []int64
	conflicting, err = a.index.Conflicts(ctx, req.CourtID, interval)
	if err != nil {
		return
	}
	if len(conflicting) > 0 {
		err = &ConflictError{CourtID: req.CourtID, ConflictingIDs: conflicting}
		return
	}

	rate := roundRate(court.HourlyRate * interval.Hours())
	if req.RateOverride != nil {
		rate = roundRate(*req.RateOverride)
	}

	courtID := req.CourtID
	now := a.now().UTC()
	candidate := Reservation{
		CourtID:    &courtID,
		ReservorID: req.RequesterID,
		Start:      interval.Start,
		End:        interval.End,
		Rate:       rate,
		Status:     scheduler.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	reservation, err = a.reservations.InsertReservation(ctx, candidate)
	if err != nil {
		err = a.mapInsertError(ctx, req.CourtID, interval, err)
		return
	}

	a.publish(ctx, logger, TopicReservationCreated, reservationNotification(reservation, "", now))
	return
}

// UpdateStatus moves a reservation along Pending -> Confirmed -> Cancelled.
// Status changes never re-check conflicts.
func (a *BookingAuthority) UpdateStatus(ctx context.Context, reservationID int64, status string) (reservation Reservation, err error) {
	if a == nil {
		err = fmt.Errorf("BookingAuthority is nil")
		return
	}
	if a.reservations == nil {
		err = fmt.Errorf("booking authority not configured")
		return
	}

	logger := a.loggerWith(ctx, "UpdateStatus",
		"reservation_id", reservationID,
		"status", status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation status updated")
	}()

	next, ok := scheduler.ParseStatus(status)
	if !ok {
		err = fieldError("status", "status must be one of Pending, Confirmed, Cancelled")
		return
	}

	var existing Reservation
	existing, err = a.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapReservationRepoError("get reservation", err)
		return
	}

	if !scheduler.CanTransition(existing.Status, next) {
		err = fieldError("status", fmt.Sprintf("cannot change status from %s to %s", existing.Status, next))
		return
	}

	now := a.now().UTC()
	reservation, err = a.reservations.UpdateReservationStatus(ctx, reservationID, next, now)
	if err != nil {
		err = mapReservationRepoError("update reservation status", err)
		return
	}

	a.publish(ctx, logger, TopicReservationStatusChanged, reservationNotification(reservation, string(existing.Status), now))
	return
}

func (a *BookingAuthority) validateRequest(req BookRequest) (scheduler.Interval, *ValidationError) {
	vErr := &ValidationError{}

	if req.CourtID <= 0 {
		vErr.add("court_id", "court_id is required")
	}
	if req.RequesterID <= 0 {
		vErr.add("reservor_id", "reservor_id is required")
	}
	if req.RateOverride != nil && (*req.RateOverride < 0 || math.IsNaN(*req.RateOverride) || math.IsInf(*req.RateOverride, 0)) {
		vErr.add("rate", "rate must be a non-negative number")
	}

	interval, err := scheduler.NewInterval(req.Start, req.End)
	switch {
	case errors.Is(err, scheduler.ErrMissingBound):
		if req.Start.IsZero() {
			vErr.add("start_date_time", "start_date_time is required")
		}
		if req.End.IsZero() {
			vErr.add("end_date_time", "end_date_time is required")
		}
	case errors.Is(err, scheduler.ErrEmptyInterval):
		vErr.add("end_date_time", "end_date_time must be after start_date_time")
	case err == nil && a.policy.RejectPastBookings:
		cutoff := a.now().UTC().Add(-a.policy.PastGrace)
		if interval.Start.Before(cutoff) {
			vErr.add("start_date_time", "start_date_time must not be in the past")
		}
	}

	return interval, vErr
}

// mapInsertError translates store failures. An overlap reported by storage
// means another process won the race, so the blocking ids are re-read for
// the caller.
func (a *BookingAuthority) mapInsertError(ctx context.Context, courtID int64, interval scheduler.Interval, err error) error {
	switch {
	case errors.Is(err, persistence.ErrOverlap):
		ids, lookupErr := a.index.Conflicts(ctx, courtID, interval)
		if lookupErr != nil {
			ids = nil
		}
		return &ConflictError{CourtID: courtID, ConflictingIDs: ids}
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("reservor_id", "reservor does not exist")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("end_date_time", "end_date_time must be after start_date_time")
	}
	return storageError("insert reservation", err)
}

func (a *BookingAuthority) publish(ctx context.Context, logger *slog.Logger, topic string, payload any) {
	if err := a.publisher.Publish(ctx, topic, payload); err != nil {
		logger.WarnContext(ctx, "failed to publish notification", "topic", topic, "error", err)
	}
}

func mapReservationRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrInvalidTransition):
		return fieldError("status", "status transition is not allowed")
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	return storageError(op, err)
}

// roundRate rounds to cents.
func roundRate(v float64) float64 {
	return math.Round(v*100) / 100
}
