package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/example/court-reservations/internal/persistence"
)

// CourtRepository captures the persistence operations needed by the service.
type CourtRepository interface {
	CreateCourt(ctx context.Context, court Court) (Court, error)
	GetCourt(ctx context.Context, id int64) (Court, error)
	UpdateCourt(ctx context.Context, court Court) (Court, error)
	DeleteCourt(ctx context.Context, id int64) error
	ListCourts(ctx context.Context) ([]Court, error)
}

// CourtService orchestrates validation, authorization, and persistence for courts.
type CourtService struct {
	courts CourtRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewCourtService constructs a court service with the provided dependencies.
func NewCourtService(courts CourtRepository, now func() time.Time) *CourtService {
	return NewCourtServiceWithLogger(courts, now, nil)
}

// NewCourtServiceWithLogger constructs a court service with a specified logger.
func NewCourtServiceWithLogger(courts CourtRepository, now func() time.Time, logger *slog.Logger) *CourtService {
	if now == nil {
		now = time.Now
	}
	return &CourtService{courts: courts, now: now, logger: defaultLogger(logger)}
}

func (s *CourtService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CourtService", operation, attrs...)
}

// CreateCourt validates input and persists a new court for managers.
func (s *CourtService) CreateCourt(ctx context.Context, params CreateCourtParams) (court Court, err error) {
	if s == nil {
		err = fmt.Errorf("CourtService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateCourt",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create court", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("court_id", court.ID).InfoContext(ctx, "court created")
	}()

	if err = Authorize(params.Principal, ActionManageCourts); err != nil {
		return
	}

	vErr := validateCourtInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.courts == nil {
		err = fmt.Errorf("court repository not configured")
		return
	}

	now := s.now().UTC()
	court = applyCourtInput(Court{CreatedAt: now}, params.Input)
	court.UpdatedAt = now

	court, err = s.courts.CreateCourt(ctx, court)
	if err != nil {
		err = mapCourtRepoError(err)
		return
	}
	return
}

// UpdateCourt validates input and replaces the mutable fields of a court.
func (s *CourtService) UpdateCourt(ctx context.Context, params UpdateCourtParams) (court Court, err error) {
	if s == nil {
		err = fmt.Errorf("CourtService is nil")
		return
	}
	if err = Authorize(params.Principal, ActionManageCourts); err != nil {
		return
	}
	if s.courts == nil {
		err = fmt.Errorf("court repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateCourt",
		"principal_id", params.Principal.UserID,
		"court_id", params.CourtID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update court", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "court updated")
	}()

	var existing Court
	existing, err = s.courts.GetCourt(ctx, params.CourtID)
	if err != nil {
		err = mapCourtRepoError(err)
		return
	}

	vErr := validateCourtInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := applyCourtInput(existing, params.Input)
	updated.UpdatedAt = s.now().UTC()

	court, err = s.courts.UpdateCourt(ctx, updated)
	if err != nil {
		err = mapCourtRepoError(err)
		return
	}
	return
}

// DeleteCourt removes a court. Its reservations and events are kept with the
// court reference cleared.
func (s *CourtService) DeleteCourt(ctx context.Context, principal Principal, courtID int64) error {
	if s == nil {
		return fmt.Errorf("CourtService is nil")
	}
	if err := Authorize(principal, ActionManageCourts); err != nil {
		return err
	}
	if s.courts == nil {
		return fmt.Errorf("court repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteCourt",
		"principal_id", principal.UserID,
		"court_id", courtID,
	)

	if err := s.courts.DeleteCourt(ctx, courtID); err != nil {
		err = mapCourtRepoError(err)
		logger.ErrorContext(ctx, "failed to delete court", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "court deleted")
	return nil
}

// GetCourt returns a single court. Courts are public.
func (s *CourtService) GetCourt(ctx context.Context, courtID int64) (Court, error) {
	if s == nil {
		return Court{}, fmt.Errorf("CourtService is nil")
	}
	if s.courts == nil {
		return Court{}, fmt.Errorf("court repository not configured")
	}
	court, err := s.courts.GetCourt(ctx, courtID)
	if err != nil {
		return Court{}, mapCourtRepoError(err)
	}
	return court, nil
}

// ListCourts returns the catalog of courts ordered by name.
func (s *CourtService) ListCourts(ctx context.Context) (courts []Court, err error) {
	if s == nil {
		err = fmt.Errorf("CourtService is nil")
		return
	}
	if s.courts == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListCourts")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list courts", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(courts)).DebugContext(ctx, "courts listed")
	}()

	var raw []Court
	raw, err = s.courts.ListCourts(ctx)
	if err != nil {
		err = storageError("list courts", err)
		return
	}

	courts = make([]Court, len(raw))
	copy(courts, raw)

	sort.Slice(courts, func(i, j int) bool {
		if strings.EqualFold(courts[i].Name, courts[j].Name) {
			return courts[i].ID < courts[j].ID
		}
		return strings.ToLower(courts[i].Name) < strings.ToLower(courts[j].Name)
	})

	return
}

func applyCourtInput(court Court, input CourtInput) Court {
	court.Name = strings.TrimSpace(input.Name)
	court.CourtType = strings.TrimSpace(input.CourtType)
	court.Capacity = input.Capacity
	court.Description = strings.TrimSpace(input.Description)
	court.HourlyRate = roundRate(input.HourlyRate)
	court.IsAvailable = input.IsAvailable

	images := make([]string, 0, len(input.Images))
	for _, image := range input.Images {
		if trimmed := strings.TrimSpace(image); trimmed != "" {
			images = append(images, trimmed)
		}
	}
	court.Images = images
	return court
}

func validateCourtInput(input CourtInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("court_name", "court_name is required")
	}
	if strings.TrimSpace(input.CourtType) == "" {
		vErr.add("court_type", "court_type is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if input.HourlyRate < 0 || math.IsNaN(input.HourlyRate) || math.IsInf(input.HourlyRate, 0) {
		vErr.add("hourly_rate", "hourly_rate must be a non-negative number")
	}

	return vErr
}

func mapCourtRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fieldError("capacity", "capacity must be positive")
	}
	return storageError("court repository", err)
}
