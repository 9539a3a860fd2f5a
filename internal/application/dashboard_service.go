package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/court-reservations/internal/scheduler"
)

// TrendMonths is how many calendar months the reservation trend covers,
// including the current one.
const TrendMonths = 6

// DashboardRepository exposes the aggregate reads behind the staff dashboard.
type DashboardRepository interface {
	DashboardTotals(ctx context.Context) (DashboardTotals, error)
	ReservationSlices(ctx context.Context, from, to time.Time) ([]ReservationSlice, error)
}

// DashboardService computes the staff dashboard summary.
type DashboardService struct {
	repo   DashboardRepository
	cache  *summaryCache
	now    func() time.Time
	logger *slog.Logger
}

// NewDashboardService constructs a dashboard service. A non-positive cacheTTL
// uses the default.
func NewDashboardService(repo DashboardRepository, cacheTTL time.Duration, now func() time.Time) *DashboardService {
	return NewDashboardServiceWithLogger(repo, cacheTTL, now, nil)
}

// NewDashboardServiceWithLogger constructs a dashboard service with a specified logger.
func NewDashboardServiceWithLogger(repo DashboardRepository, cacheTTL time.Duration, now func() time.Time, logger *slog.Logger) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{
		repo:   repo,
		cache:  newSummaryCache(cacheTTL, 0, now),
		now:    now,
		logger: defaultLogger(logger),
	}
}

// Invalidate drops cached summaries.
func (s *DashboardService) Invalidate() {
	if s != nil {
		s.cache.Invalidate()
	}
}

// Summary returns totals, current-month figures and the monthly trend.
func (s *DashboardService) Summary(ctx context.Context, principal Principal) (summary DashboardSummary, err error) {
	if s == nil {
		err = fmt.Errorf("DashboardService is nil")
		return
	}
	if err = Authorize(principal, ActionViewDashboard); err != nil {
		return
	}
	if s.repo == nil {
		err = fmt.Errorf("dashboard repository not configured")
		return
	}

	now := s.now().UTC()
	key := summaryCacheKey(now)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	logger := serviceLogger(ctx, s.logger, "DashboardService", "Summary", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build dashboard summary", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "dashboard summary computed")
	}()

	var totals DashboardTotals
	totals, err = s.repo.DashboardTotals(ctx)
	if err != nil {
		err = storageError("dashboard totals", err)
		return
	}

	current := scheduler.MonthWindow(now)
	first := current.Start.AddDate(0, -(TrendMonths - 1), 0)

	var slices []ReservationSlice
	slices, err = s.repo.ReservationSlices(ctx, first, current.End)
	if err != nil {
		err = storageError("reservation slices", err)
		return
	}

	trends := buildTrends(first, slices)
	last := trends[len(trends)-1]

	byStatus := make(map[string]int, len(totals.ByStatus))
	for k, v := range totals.ByStatus {
		byStatus[k] = v
	}

	summary = DashboardSummary{
		TotalUsers:        totals.TotalUsers,
		ActiveUsers:       totals.ActiveUsers,
		TotalReservations: totals.TotalReservations,
		MonthReservations: last.Reservations,
		TotalRevenue:      roundRate(totals.TotalRevenue),
		MonthRevenue:      last.Revenue,
		ByStatus:          byStatus,
		Trends:            trends,
		GeneratedAt:       now,
	}
	s.cache.Store(key, summary)
	return
}

// buildTrends buckets slices into TrendMonths months starting at first.
// Every reservation is counted; revenue skips cancelled ones.
func buildTrends(first time.Time, slices []ReservationSlice) []MonthlyTrend {
	trends := make([]MonthlyTrend, TrendMonths)
	index := make(map[string]int, TrendMonths)
	for i := range trends {
		month := first.AddDate(0, i, 0).Format("2006-01")
		trends[i].Month = month
		index[month] = i
	}

	for _, slice := range slices {
		i, ok := index[slice.Start.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		trends[i].Reservations++
		if slice.Status != scheduler.StatusCancelled {
			trends[i].Revenue += slice.Rate
		}
	}
	for i := range trends {
		trends[i].Revenue = roundRate(trends[i].Revenue)
	}
	return trends
}
