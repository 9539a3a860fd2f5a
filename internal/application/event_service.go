package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/scheduler"
)

// EventRepository captures the persistence operations needed by the event
// service. JoinEvent must check capacity and record the participant in one
// transaction.
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

// EventService manages court events and their participants.
type EventService struct {
	events EventRepository
	courts CourtLookup
	now    func() time.Time
	logger *slog.Logger
}

// NewEventService constructs an event service.
func NewEventService(events EventRepository, courts CourtLookup, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, courts, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(events EventRepository, courts CourtLookup, now func() time.Time, logger *slog.Logger) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{events: events, courts: courts, now: now, logger: defaultLogger(logger)}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent schedules a new event. Managers only.
func (s *EventService) CreateEvent(ctx context.Context, principal Principal, input EventInput) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if err = Authorize(principal, ActionManageEvents); err != nil {
		return
	}

	var interval scheduler.Interval
	interval, err = s.validateEventInput(ctx, input)
	if err != nil {
		return
	}

	now := s.now().UTC()
	event, err = s.events.CreateEvent(ctx, Event{
		CourtID:         input.CourtID,
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		Start:           interval.Start,
		End:             interval.End,
		MaxParticipants: input.MaxParticipants,
		CreatedBy:       principal.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	return
}

// UpdateEvent replaces the editable fields of an event. Managers only.
func (s *EventService) UpdateEvent(ctx context.Context, principal Principal, eventID int64, input EventInput) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent", "principal_id", principal.UserID, "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	if err = Authorize(principal, ActionManageEvents); err != nil {
		return
	}

	var existing Event
	existing, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	var interval scheduler.Interval
	interval, err = s.validateEventInput(ctx, input)
	if err != nil {
		return
	}
	if input.MaxParticipants < existing.CurrentParticipants {
		err = fieldError("max_participants", "max_participants cannot drop below the current participant count")
		return
	}

	updated := existing
	updated.CourtID = input.CourtID
	updated.Title = strings.TrimSpace(input.Title)
	updated.Description = strings.TrimSpace(input.Description)
	updated.Start = interval.Start
	updated.End = interval.End
	updated.MaxParticipants = input.MaxParticipants
	updated.UpdatedAt = s.now().UTC()

	event, err = s.events.UpdateEvent(ctx, updated)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	return
}

// DeleteEvent removes an event and its participant list. Managers only.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID int64) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if err := Authorize(principal, ActionManageEvents); err != nil {
		return err
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent", "principal_id", principal.UserID, "event_id", eventID)
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		err = mapEventRepoError(err)
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "event deleted")
	return nil
}

// GetEvent returns one event. Events are public.
func (s *EventService) GetEvent(ctx context.Context, eventID int64) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// ListEvents returns events intersecting [from, to); nil bounds are open.
func (s *EventService) ListEvents(ctx context.Context, from, to *time.Time) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, nil
	}
	if from != nil && to != nil && !to.After(*from) {
		return nil, fieldError("to", "to must be after from")
	}
	events, err := s.events.ListEvents(ctx, from, to)
	if err != nil {
		return nil, storageError("list events", err)
	}
	return events, nil
}

// JoinEvent takes a place in an event for principal.
func (s *EventService) JoinEvent(ctx context.Context, principal Principal, eventID int64) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "JoinEvent", "principal_id", principal.UserID, "event_id", eventID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to join event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("current_participants", event.CurrentParticipants).InfoContext(ctx, "event joined")
	}()

	if err = Authorize(principal, ActionJoinEvents); err != nil {
		return
	}

	event, err = s.events.JoinEvent(ctx, eventID, principal.UserID, s.now().UTC())
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	return
}

// LeaveEvent gives up principal's place in an event.
func (s *EventService) LeaveEvent(ctx context.Context, principal Principal, eventID int64) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}
	if err = Authorize(principal, ActionJoinEvents); err != nil {
		return
	}

	event, err = s.events.LeaveEvent(ctx, eventID, principal.UserID)
	if err != nil {
		err = mapEventRepoError(err)
		s.loggerWith(ctx, "LeaveEvent", "principal_id", principal.UserID, "event_id", eventID).
			WarnContext(ctx, "failed to leave event", "error", err, "error_kind", ErrorKind(err))
		return
	}
	return
}

// ListParticipants returns an event's participants for staff.
func (s *EventService) ListParticipants(ctx context.Context, principal Principal, eventID int64) ([]EventParticipant, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if !principal.Role.IsStaff() {
		return nil, ErrUnauthorized
	}
	if s.events == nil {
		return nil, nil
	}
	participants, err := s.events.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	return participants, nil
}

func (s *EventService) validateEventInput(ctx context.Context, input EventInput) (scheduler.Interval, error) {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.MaxParticipants <= 0 {
		vErr.add("max_participants", "max_participants must be positive")
	}

	interval, err := scheduler.NewInterval(input.Start, input.End)
	if err != nil {
		if errors.Is(err, scheduler.ErrMissingBound) {
			vErr.add("start_date_time", "start and end are required")
		} else {
			vErr.add("end_date_time", "end_date_time must be after start_date_time")
		}
	}

	if input.CourtID != nil && s.courts != nil {
		if _, err := s.courts.GetCourt(ctx, *input.CourtID); err != nil {
			if !isNotFound(err) {
				return scheduler.Interval{}, storageError("get court", err)
			}
			vErr.add("court_id", "court does not exist")
		}
	}

	if vErr.HasErrors() {
		return scheduler.Interval{}, vErr
	}
	return interval, nil
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrCapacityExceeded):
		return ErrEventFull
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("court_id", "court does not exist")
	}
	return storageError("event repository", err)
}
