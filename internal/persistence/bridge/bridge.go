// Package bridge adapts the persistence repositories to the ports declared by
// the application services.
package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/example/court-reservations/internal/application"
	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/scheduler"
)

// Backend is the full persistence surface the bridge needs.
type Backend interface {
	persistence.UserRepository
	persistence.CourtRepository
	persistence.ReservationRepository
	persistence.SessionRepository
	persistence.TaskRepository
	persistence.EventRepository
	persistence.DashboardRepository
}

// Store exposes a Backend through the application repository interfaces.
type Store struct {
	backend Backend
}

// New wraps backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

var (
	_ application.UserRepository        = (*Store)(nil)
	_ application.CredentialStore       = (*Store)(nil)
	_ application.SessionRepository     = (*Store)(nil)
	_ application.CourtRepository       = (*Store)(nil)
	_ application.CourtLookup           = (*Store)(nil)
	_ application.ReservationRepository = (*Store)(nil)
	_ application.TaskRepository        = (*Store)(nil)
	_ application.UserLookup            = (*Store)(nil)
	_ application.EventRepository       = (*Store)(nil)
	_ application.DashboardRepository   = (*Store)(nil)
)

// ----------------------------- users -----------------------------

func (s *Store) CreateUser(ctx context.Context, user application.UserCredentials) (application.User, error) {
	created, err := s.backend.CreateUser(ctx, toPersistenceUser(user))
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(created)
}

func (s *Store) GetUser(ctx context.Context, id int64) (application.User, error) {
	model, err := s.backend.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(model)
}

func (s *Store) GetUserCredentials(ctx context.Context, id int64) (application.UserCredentials, error) {
	model, err := s.backend.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toCredentials(model)
}

func (s *Store) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	model, err := s.backend.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toCredentials(model)
}

func (s *Store) UpdateUser(ctx context.Context, user application.UserCredentials) (application.User, error) {
	updated, err := s.backend.UpdateUser(ctx, toPersistenceUser(user))
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(updated)
}

func (s *Store) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := s.backend.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		user, err := toApplicationUser(model)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// ----------------------------- sessions -----------------------------

func (s *Store) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	created, err := s.backend.CreateSession(ctx, persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	})
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(created), nil
}

func (s *Store) GetSession(ctx context.Context, id string) (application.Session, error) {
	model, err := s.backend.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(model), nil
}

func (s *Store) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (application.Session, error) {
	model, err := s.backend.RevokeSession(ctx, id, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(model), nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return s.backend.DeleteExpiredSessions(ctx, reference)
}

// ----------------------------- courts -----------------------------

func (s *Store) CreateCourt(ctx context.Context, court application.Court) (application.Court, error) {
	created, err := s.backend.CreateCourt(ctx, toPersistenceCourt(court))
	if err != nil {
		return application.Court{}, err
	}
	return toApplicationCourt(created), nil
}

func (s *Store) GetCourt(ctx context.Context, id int64) (application.Court, error) {
	model, err := s.backend.GetCourt(ctx, id)
	if err != nil {
		return application.Court{}, err
	}
	return toApplicationCourt(model), nil
}

func (s *Store) UpdateCourt(ctx context.Context, court application.Court) (application.Court, error) {
	updated, err := s.backend.UpdateCourt(ctx, toPersistenceCourt(court))
	if err != nil {
		return application.Court{}, err
	}
	return toApplicationCourt(updated), nil
}

func (s *Store) DeleteCourt(ctx context.Context, id int64) error {
	return s.backend.DeleteCourt(ctx, id)
}

func (s *Store) ListCourts(ctx context.Context) ([]application.Court, error) {
	models, err := s.backend.ListCourts(ctx)
	if err != nil {
		return nil, err
	}
	courts := make([]application.Court, 0, len(models))
	for _, model := range models {
		courts = append(courts, toApplicationCourt(model))
	}
	return courts, nil
}

// ----------------------------- reservations -----------------------------

func (s *Store) InsertReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	created, err := s.backend.InsertReservation(ctx, persistence.Reservation{
		CourtID:    cloneInt64(reservation.CourtID),
		ReservorID: reservation.ReservorID,
		Start:      reservation.Start,
		End:        reservation.End,
		Rate:       reservation.Rate,
		Status:     string(reservation.Status),
		CreatedAt:  reservation.CreatedAt,
		UpdatedAt:  reservation.UpdatedAt,
	})
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(created)
}

func (s *Store) GetReservation(ctx context.Context, id int64) (application.Reservation, error) {
	model, err := s.backend.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(model)
}

func (s *Store) UpdateReservationStatus(ctx context.Context, id int64, status scheduler.Status, updatedAt time.Time) (application.Reservation, error) {
	model, err := s.backend.UpdateReservationStatus(ctx, id, string(status), updatedAt)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(model)
}

func (s *Store) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.Reservation, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	models, err := s.backend.ListReservations(ctx, persistence.ReservationFilter{
		CourtID:    filter.CourtID,
		ReservorID: filter.ReservorID,
		Statuses:   statuses,
		From:       filter.From,
		To:         filter.To,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models)
}

func (s *Store) ListCourtOverlaps(ctx context.Context, courtID int64, interval scheduler.Interval) ([]application.Reservation, error) {
	models, err := s.backend.ListCourtOverlaps(ctx, courtID, interval.Start, interval.End)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models)
}

// ----------------------------- tasks -----------------------------

func (s *Store) CreateTask(ctx context.Context, task application.Task) (application.Task, error) {
	created, err := s.backend.CreateTask(ctx, toPersistenceTask(task))
	if err != nil {
		return application.Task{}, err
	}
	return toApplicationTask(created), nil
}

func (s *Store) UpdateTask(ctx context.Context, task application.Task) (application.Task, error) {
	updated, err := s.backend.UpdateTask(ctx, toPersistenceTask(task))
	if err != nil {
		return application.Task{}, err
	}
	return toApplicationTask(updated), nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (application.Task, error) {
	model, err := s.backend.GetTask(ctx, id)
	if err != nil {
		return application.Task{}, err
	}
	return toApplicationTask(model), nil
}

func (s *Store) ListTasks(ctx context.Context, filter application.TaskFilter) ([]application.Task, error) {
	models, err := s.backend.ListTasks(ctx, persistence.TaskFilter{AssigneeID: filter.AssigneeID, Status: string(filter.Status)})
	if err != nil {
		return nil, err
	}
	tasks := make([]application.Task, 0, len(models))
	for _, model := range models {
		tasks = append(tasks, toApplicationTask(model))
	}
	return tasks, nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.backend.DeleteTask(ctx, id)
}

// ----------------------------- events -----------------------------

func (s *Store) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	created, err := s.backend.CreateEvent(ctx, toPersistenceEvent(event))
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(created), nil
}

func (s *Store) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	updated, err := s.backend.UpdateEvent(ctx, toPersistenceEvent(event))
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(updated), nil
}

func (s *Store) GetEvent(ctx context.Context, id int64) (application.Event, error) {
	model, err := s.backend.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(model), nil
}

func (s *Store) ListEvents(ctx context.Context, from, to *time.Time) ([]application.Event, error) {
	models, err := s.backend.ListEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	return s.backend.DeleteEvent(ctx, id)
}

func (s *Store) JoinEvent(ctx context.Context, eventID, userID int64, joinedAt time.Time) (application.Event, error) {
	model, err := s.backend.JoinEvent(ctx, eventID, userID, joinedAt)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(model), nil
}

func (s *Store) LeaveEvent(ctx context.Context, eventID, userID int64) (application.Event, error) {
	model, err := s.backend.LeaveEvent(ctx, eventID, userID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(model), nil
}

func (s *Store) ListParticipants(ctx context.Context, eventID int64) ([]application.EventParticipant, error) {
	models, err := s.backend.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	participants := make([]application.EventParticipant, 0, len(models))
	for _, model := range models {
		participants = append(participants, application.EventParticipant(model))
	}
	return participants, nil
}

// ----------------------------- dashboard -----------------------------

func (s *Store) DashboardTotals(ctx context.Context) (application.DashboardTotals, error) {
	totals, err := s.backend.DashboardTotals(ctx)
	if err != nil {
		return application.DashboardTotals{}, err
	}
	return application.DashboardTotals(totals), nil
}

func (s *Store) ReservationSlices(ctx context.Context, from, to time.Time) ([]application.ReservationSlice, error) {
	models, err := s.backend.ReservationSlices(ctx, from, to)
	if err != nil {
		return nil, err
	}
	slices := make([]application.ReservationSlice, 0, len(models))
	for _, model := range models {
		status, ok := scheduler.ParseStatus(model.Status)
		if !ok {
			return nil, fmt.Errorf("unknown reservation status %q", model.Status)
		}
		slices = append(slices, application.ReservationSlice{Start: model.Start, Rate: model.Rate, Status: status})
	}
	return slices, nil
}

// ----------------------------- mapping -----------------------------

func toApplicationUser(model persistence.User) (application.User, error) {
	role, err := application.ParseRole(model.Role)
	if err != nil {
		return application.User{}, fmt.Errorf("user %d: %w", model.ID, err)
	}
	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		FullName:  model.FullName,
		Phone:     model.Phone,
		Role:      role,
		IsActive:  model.IsActive,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func toCredentials(model persistence.User) (application.UserCredentials, error) {
	user, err := toApplicationUser(model)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: user, PasswordHash: model.PasswordHash}, nil
}

func toPersistenceUser(creds application.UserCredentials) persistence.User {
	return persistence.User{
		ID:           creds.User.ID,
		Email:        creds.User.Email,
		FullName:     creds.User.FullName,
		Phone:        creds.User.Phone,
		PasswordHash: creds.PasswordHash,
		Role:         creds.User.Role.String(),
		IsActive:     creds.User.IsActive,
		CreatedAt:    creds.User.CreatedAt,
		UpdatedAt:    creds.User.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toApplicationCourt(model persistence.Court) application.Court {
	return application.Court{
		ID:          model.ID,
		Name:        model.Name,
		CourtType:   model.CourtType,
		Capacity:    model.Capacity,
		Description: model.Description,
		HourlyRate:  model.HourlyRate,
		Images:      append([]string(nil), model.Images...),
		IsAvailable: model.IsAvailable,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceCourt(court application.Court) persistence.Court {
	return persistence.Court{
		ID:          court.ID,
		Name:        court.Name,
		CourtType:   court.CourtType,
		Capacity:    court.Capacity,
		Description: court.Description,
		HourlyRate:  court.HourlyRate,
		Images:      append([]string(nil), court.Images...),
		IsAvailable: court.IsAvailable,
		CreatedAt:   court.CreatedAt,
		UpdatedAt:   court.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) (application.Reservation, error) {
	status, ok := scheduler.ParseStatus(model.Status)
	if !ok {
		return application.Reservation{}, fmt.Errorf("reservation %d: unknown status %q", model.ID, model.Status)
	}
	return application.Reservation{
		ID:         model.ID,
		CourtID:    cloneInt64(model.CourtID),
		ReservorID: model.ReservorID,
		Start:      model.Start,
		End:        model.End,
		Rate:       model.Rate,
		Status:     status,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}, nil
}

func toApplicationReservations(models []persistence.Reservation) ([]application.Reservation, error) {
	out := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		r, err := toApplicationReservation(model)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func toApplicationTask(model persistence.Task) application.Task {
	return application.Task{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		AssigneeID:  model.AssigneeID,
		AssignerID:  model.AssignerID,
		DueDate:     cloneTime(model.DueDate),
		Status:      application.TaskStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceTask(task application.Task) persistence.Task {
	return persistence.Task{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		AssigneeID:  task.AssigneeID,
		AssignerID:  task.AssignerID,
		DueDate:     cloneTime(task.DueDate),
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:                  model.ID,
		CourtID:             cloneInt64(model.CourtID),
		Title:               model.Title,
		Description:         model.Description,
		Start:               model.Start,
		End:                 model.End,
		MaxParticipants:     model.MaxParticipants,
		CurrentParticipants: model.CurrentParticipants,
		CreatedBy:           model.CreatedBy,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:                  event.ID,
		CourtID:             cloneInt64(event.CourtID),
		Title:               event.Title,
		Description:         event.Description,
		Start:               event.Start,
		End:                 event.End,
		MaxParticipants:     event.MaxParticipants,
		CurrentParticipants: event.CurrentParticipants,
		CreatedBy:           event.CreatedBy,
		CreatedAt:           event.CreatedAt,
		UpdatedAt:           event.UpdatedAt,
	}
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
