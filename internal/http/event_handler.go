package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/court-reservations/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, principal application.Principal, input application.EventInput) (application.Event, error)
	UpdateEvent(ctx context.Context, principal application.Principal, eventID int64, input application.EventInput) (application.Event, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID int64) error
	GetEvent(ctx context.Context, eventID int64) (application.Event, error)
	ListEvents(ctx context.Context, from, to *time.Time) ([]application.Event, error)
	JoinEvent(ctx context.Context, principal application.Principal, eventID int64) (application.Event, error)
	LeaveEvent(ctx context.Context, principal application.Principal, eventID int64) (application.Event, error)
	ListParticipants(ctx context.Context, principal application.Principal, eventID int64) ([]application.EventParticipant, error)
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	event, err := h.service.CreateEvent(r.Context(), principal, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "event creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "event_id", eventID)
	event, err := h.service.UpdateEvent(r.Context(), principal, eventID, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "event update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "event_id", eventID)
	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		logger.ErrorContext(r.Context(), "event delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "Get", "event_id", eventID).ErrorContext(r.Context(), "event lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

// List supports optional from and to query bounds.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	problems := map[string]string{}
	from := queryTime(r, "from", problems)
	to := queryTime(r, "to", problems)
	if err := fieldValidationError(problems); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	events, err := h.service.ListEvents(r.Context(), from, to)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: out})
}

func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.membership(w, r, "Join", h.service.JoinEvent)
}

func (h *EventHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.membership(w, r, "Leave", h.service.LeaveEvent)
}

func (h *EventHandler) membership(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, application.Principal, int64) (application.Event, error)) {
	eventID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "event_id", eventID)

	event, err := apply(r.Context(), principal, eventID)
	if err != nil {
		logger.WarnContext(r.Context(), "event membership change rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("current_participants", event.CurrentParticipants).InfoContext(r.Context(), "event membership changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Participants(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	participants, err := h.service.ListParticipants(r.Context(), principal, eventID)
	if err != nil {
		h.log(r.Context(), "Participants", "principal_id", principal.UserID, "event_id", eventID).
			ErrorContext(r.Context(), "participant list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]participantDTO, 0, len(participants))
	for _, p := range participants {
		out = append(out, participantDTO{EventID: p.EventID, UserID: p.UserID, JoinedAt: formatTime(p.JoinedAt)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listParticipantsResponse{Participants: out})
}

type eventRequest struct {
	CourtID         *int64 `json:"court_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Start           string `json:"start_date_time"`
	End             string `json:"end_date_time"`
	MaxParticipants int    `json:"max_participants"`
}

func (r eventRequest) toInput() (application.EventInput, error) {
	problems := map[string]string{}
	input := application.EventInput{
		CourtID:         r.CourtID,
		Title:           r.Title,
		Description:     r.Description,
		Start:           bodyTime(r.Start, "start_date_time", problems),
		End:             bodyTime(r.End, "end_date_time", problems),
		MaxParticipants: r.MaxParticipants,
	}
	return input, fieldValidationError(problems)
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type listParticipantsResponse struct {
	Participants []participantDTO `json:"participants"`
}

type eventDTO struct {
	ID                  int64  `json:"id"`
	CourtID             *int64 `json:"court_id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	Start               string `json:"start_date_time"`
	End                 string `json:"end_date_time"`
	MaxParticipants     int    `json:"max_participants"`
	CurrentParticipants int    `json:"current_participants"`
	CreatedBy           int64  `json:"created_by"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

type participantDTO struct {
	EventID  int64  `json:"event_id"`
	UserID   int64  `json:"user_id"`
	JoinedAt string `json:"joined_at"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:                  event.ID,
		CourtID:             event.CourtID,
		Title:               event.Title,
		Description:         event.Description,
		Start:               formatTime(event.Start),
		End:                 formatTime(event.End),
		MaxParticipants:     event.MaxParticipants,
		CurrentParticipants: event.CurrentParticipants,
		CreatedBy:           event.CreatedBy,
		CreatedAt:           formatTime(event.CreatedAt),
		UpdatedAt:           formatTime(event.UpdatedAt),
	}
}
