package sqlstore

import (
	"context"
	"time"

	"github.com/example/court-reservations/internal/persistence"
)

type totalsRow struct {
	TotalUsers        int     `db:"total_users"`
	ActiveUsers       int     `db:"active_users"`
	TotalReservations int     `db:"total_reservations"`
	TotalRevenue      float64 `db:"total_revenue"`
}

type statusCountRow struct {
	Status string `db:"status"`
	Count  int    `db:"n"`
}

type sliceRow struct {
	Start  dbTime  `db:"start_date_time"`
	Rate   float64 `db:"rate"`
	Status string  `db:"status"`
}

// DashboardTotals aggregates user and reservation counters. Revenue ignores
// cancelled reservations.
func (s *Storage) DashboardTotals(ctx context.Context) (persistence.DashboardTotals, error) {
	var totals totalsRow
	err := s.db.GetContext(ctx, &totals, s.db.Rebind(`
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE is_active = ?) AS active_users,
			(SELECT COUNT(*) FROM reservations) AS total_reservations,
			(SELECT COALESCE(SUM(rate), 0) FROM reservations WHERE status <> 'Cancelled') AS total_revenue
	`), true)
	if err != nil {
		return persistence.DashboardTotals{}, s.mapError(err)
	}

	var counts []statusCountRow
	if err := s.db.SelectContext(ctx, &counts, `
		SELECT status, COUNT(*) AS n FROM reservations GROUP BY status ORDER BY status
	`); err != nil {
		return persistence.DashboardTotals{}, s.mapError(err)
	}

	byStatus := make(map[string]int, len(counts))
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}

	return persistence.DashboardTotals{
		TotalUsers:        totals.TotalUsers,
		ActiveUsers:       totals.ActiveUsers,
		TotalReservations: totals.TotalReservations,
		TotalRevenue:      totals.TotalRevenue,
		ByStatus:          byStatus,
	}, nil
}

// ReservationSlices returns the start, rate and status of reservations
// starting within [from, to).
func (s *Storage) ReservationSlices(ctx context.Context, from, to time.Time) ([]persistence.ReservationSlice, error) {
	var rows []sliceRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT start_date_time, rate, status FROM reservations
		WHERE start_date_time >= ? AND start_date_time < ?
		ORDER BY start_date_time ASC
	`), s.timestamp(from), s.timestamp(to)); err != nil {
		return nil, s.mapError(err)
	}

	slices := make([]persistence.ReservationSlice, 0, len(rows))
	for _, row := range rows {
		slices = append(slices, persistence.ReservationSlice{
			Start:  row.Start.Time(),
			Rate:   row.Rate,
			Status: row.Status,
		})
	}
	return slices, nil
}
