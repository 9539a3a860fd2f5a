package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/court-reservations/internal/application"
	"github.com/example/court-reservations/internal/scheduler"
)

type courtService interface {
	CreateCourt(ctx context.Context, params application.CreateCourtParams) (application.Court, error)
	UpdateCourt(ctx context.Context, params application.UpdateCourtParams) (application.Court, error)
	DeleteCourt(ctx context.Context, principal application.Principal, courtID int64) error
	GetCourt(ctx context.Context, courtID int64) (application.Court, error)
	ListCourts(ctx context.Context) ([]application.Court, error)
}

type availabilityService interface {
	Availability(ctx context.Context, courtID int64, day time.Time) (application.CourtAvailability, error)
}

type CourtHandler struct {
	service      courtService
	availability availabilityService
	responder    responder
	logger       *slog.Logger
}

func NewCourtHandler(service courtService, availability availabilityService, logger *slog.Logger) *CourtHandler {
	base := defaultLogger(logger)
	return &CourtHandler{service: service, availability: availability, responder: newResponder(base), logger: base}
}

func (h *CourtHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CourtHandler", operation, attrs...)
}

func (h *CourtHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req courtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode court request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	court, err := h.service.CreateCourt(r.Context(), application.CreateCourtParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "court creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("court_id", court.ID).InfoContext(r.Context(), "court created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, courtResponse{Court: toCourtDTO(court)})
}

func (h *CourtHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courtID, ok := pathID(r, "id")
	if !ok {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing court id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req courtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "court_id", courtID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode court update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "court_id", courtID)

	court, err := h.service.UpdateCourt(r.Context(), application.UpdateCourtParams{
		Principal: principal,
		CourtID:   courtID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "court update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "court updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, courtResponse{Court: toCourtDTO(court)})
}

func (h *CourtHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courtID, ok := pathID(r, "id")
	if !ok {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing court id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "court_id", courtID)
	if err := h.service.DeleteCourt(r.Context(), principal, courtID); err != nil {
		logger.ErrorContext(r.Context(), "court delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "court deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CourtHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courtID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	court, err := h.service.GetCourt(r.Context(), courtID)
	if err != nil {
		h.log(r.Context(), "Get", "court_id", courtID).ErrorContext(r.Context(), "court lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, courtResponse{Court: toCourtDTO(court)})
}

func (h *CourtHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	courts, err := h.service.ListCourts(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "court list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]courtDTO, 0, len(courts))
	for _, court := range courts {
		out = append(out, toCourtDTO(court))
	}

	logger.With("result_count", len(out)).DebugContext(r.Context(), "courts listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCourtsResponse{Courts: out})
}

// Availability lists the reservations of a court for ?day=YYYY-MM-DD (UTC).
func (h *CourtHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courtID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	rawDay := strings.TrimSpace(r.URL.Query().Get("day"))
	day, err := scheduler.ParseDay(rawDay)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, fieldValidationError(map[string]string{"day": msgInvalidDay}))
		return
	}

	logger := h.log(r.Context(), "Availability", "court_id", courtID, "day", rawDay)
	availability, err := h.availability.Availability(r.Context(), courtID, day)
	if err != nil {
		logger.ErrorContext(r.Context(), "availability lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		CourtID:      availability.CourtID,
		Day:          availability.Day.UTC().Format(time.DateOnly),
		Reservations: toReservationDTOs(availability.Reservations),
	})
}

type courtRequest struct {
	Name        string   `json:"court_name"`
	CourtType   string   `json:"court_type"`
	Capacity    int      `json:"capacity"`
	Description string   `json:"description"`
	HourlyRate  float64  `json:"hourly_rate"`
	Images      []string `json:"images"`
	IsAvailable *bool    `json:"is_available"`
}

func (r courtRequest) toInput() application.CourtInput {
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}
	return application.CourtInput{
		Name:        r.Name,
		CourtType:   r.CourtType,
		Capacity:    r.Capacity,
		Description: r.Description,
		HourlyRate:  r.HourlyRate,
		Images:      r.Images,
		IsAvailable: available,
	}
}

type courtResponse struct {
	Court courtDTO `json:"court"`
}

type listCourtsResponse struct {
	Courts []courtDTO `json:"courts"`
}

type availabilityResponse struct {
	CourtID      int64            `json:"court_id"`
	Day          string           `json:"day"`
	Reservations []reservationDTO `json:"reservations"`
}

type courtDTO struct {
	ID          int64    `json:"id"`
	Name        string   `json:"court_name"`
	CourtType   string   `json:"court_type"`
	Capacity    int      `json:"capacity"`
	Description string   `json:"description"`
	HourlyRate  float64  `json:"hourly_rate"`
	Images      []string `json:"images"`
	IsAvailable bool     `json:"is_available"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toCourtDTO(court application.Court) courtDTO {
	images := court.Images
	if images == nil {
		images = []string{}
	}
	return courtDTO{
		ID:          court.ID,
		Name:        court.Name,
		CourtType:   court.CourtType,
		Capacity:    court.Capacity,
		Description: court.Description,
		HourlyRate:  court.HourlyRate,
		Images:      images,
		IsAvailable: court.IsAvailable,
		CreatedAt:   formatTime(court.CreatedAt),
		UpdatedAt:   formatTime(court.UpdatedAt),
	}
}
