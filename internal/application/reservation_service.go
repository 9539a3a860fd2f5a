package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/scheduler"
)

// ReservationService applies the role policy to reservation requests and
// delegates the booking rules to the BookingAuthority.
type ReservationService struct {
	authority    *BookingAuthority
	reservations ReservationRepository
	logger       *slog.Logger
}

// NewReservationService constructs a reservation service.
func NewReservationService(authority *BookingAuthority, reservations ReservationRepository) *ReservationService {
	return NewReservationServiceWithLogger(authority, reservations, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(authority *BookingAuthority, reservations ReservationRepository, logger *slog.Logger) *ReservationService {
	return &ReservationService{authority: authority, reservations: reservations, logger: defaultLogger(logger)}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation books a court. Customers book for themselves at the
// court rate; staff may book for others; only managers may set the rate.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.authority == nil {
		err = fmt.Errorf("booking authority not configured")
		return
	}

	if err = Authorize(params.Principal, ActionBookForSelf); err != nil {
		return
	}

	reservorID := params.Principal.UserID
	if params.Input.ReservorID != nil && *params.Input.ReservorID != params.Principal.UserID {
		if err = Authorize(params.Principal, ActionBookForOthers); err != nil {
			return
		}
		reservorID = *params.Input.ReservorID
	}
	if params.Input.Rate != nil {
		if err = Authorize(params.Principal, ActionOverrideRate); err != nil {
			return
		}
	}

	return s.authority.Book(ctx, BookRequest{
		CourtID:      params.Input.CourtID,
		Start:        params.Input.Start,
		End:          params.Input.End,
		RequesterID:  reservorID,
		RateOverride: params.Input.Rate,
	})
}

// UpdateReservationStatus lets staff confirm or cancel any reservation and
// customers cancel their own.
func (s *ReservationService) UpdateReservationStatus(ctx context.Context, params UpdateReservationStatusParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.authority == nil || s.reservations == nil {
		err = fmt.Errorf("reservation service not configured")
		return
	}

	if Authorize(params.Principal, ActionCancelAnyReservation) != nil {
		if err = Authorize(params.Principal, ActionBookForSelf); err != nil {
			return
		}
		next, ok := scheduler.ParseStatus(params.Status)
		if !ok {
			err = fieldError("status", "status must be one of Pending, Confirmed, Cancelled")
			return
		}
		if next != scheduler.StatusCancelled {
			err = ErrUnauthorized
			return
		}

		var existing Reservation
		existing, err = s.reservations.GetReservation(ctx, params.ReservationID)
		if err != nil {
			err = mapReservationRepoError("get reservation", err)
			return
		}
		if existing.ReservorID != params.Principal.UserID {
			err = ErrUnauthorized
			return
		}
	} else if next, ok := scheduler.ParseStatus(params.Status); ok && next == scheduler.StatusConfirmed {
		if err = Authorize(params.Principal, ActionConfirmReservation); err != nil {
			return
		}
	}

	return s.authority.UpdateStatus(ctx, params.ReservationID, params.Status)
}

// GetReservation returns a reservation visible to principal.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, id int64) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}
	if err = Authorize(principal, ActionBookForSelf); err != nil {
		return
	}

	reservation, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapReservationRepoError("get reservation", err)
		return
	}

	if reservation.ReservorID != principal.UserID && Authorize(principal, ActionViewAllReservations) != nil {
		// Hide the existence of other customers' bookings.
		reservation = Reservation{}
		err = ErrNotFound
	}
	return
}

// ListReservations returns reservations matching params. Customers only see
// their own bookings whatever filter they pass.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListReservations",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).InfoContext(ctx, "reservations listed")
	}()

	if err = Authorize(params.Principal, ActionBookForSelf); err != nil {
		return
	}

	filter := ReservationFilter{CourtID: params.CourtID, ReservorID: params.ReservorID, From: params.From, To: params.To}
	if Authorize(params.Principal, ActionViewAllReservations) != nil {
		self := params.Principal.UserID
		filter.ReservorID = &self
	}

	vErr := &ValidationError{}
	if params.Status != "" {
		status, ok := scheduler.ParseStatus(params.Status)
		if !ok {
			vErr.add("status", "status must be one of Pending, Confirmed, Cancelled")
		} else {
			filter.Statuses = []scheduler.Status{status}
		}
	}
	if params.From != nil && params.To != nil && !params.To.After(*params.From) {
		vErr.add("to", "to must be after from")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	reservations, err = s.reservations.ListReservations(ctx, filter)
	if err != nil {
		err = storageError("list reservations", err)
		return
	}
	return
}

// Availability lists every reservation on a court for the UTC day of day.
func (s *ReservationService) Availability(ctx context.Context, courtID int64, day time.Time) (availability CourtAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.authority == nil {
		err = fmt.Errorf("booking authority not configured")
		return
	}

	if _, err = s.authority.courts.GetCourt(ctx, courtID); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
			return
		}
		err = storageError("get court", err)
		return
	}

	window := scheduler.DayWindow(day)
	var reservations []Reservation
	reservations, err = s.authority.Index().DayBookings(ctx, courtID, window.Start)
	if err != nil {
		return
	}

	availability = CourtAvailability{CourtID: courtID, Day: window.Start, Reservations: reservations}
	return
}
