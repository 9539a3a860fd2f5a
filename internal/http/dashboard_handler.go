package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/court-reservations/internal/application"
)

type dashboardService interface {
	Summary(ctx context.Context, principal application.Principal) (application.DashboardSummary, error)
}

type DashboardHandler struct {
	service   dashboardService
	responder responder
	logger    *slog.Logger
}

func NewDashboardHandler(service dashboardService, logger *slog.Logger) *DashboardHandler {
	base := defaultLogger(logger)
	return &DashboardHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	summary, err := h.service.Summary(r.Context(), principal)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "DashboardHandler", "Summary", "principal_id", principal.UserID).
			ErrorContext(r.Context(), "dashboard summary failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	trends := make([]trendDTO, 0, len(summary.Trends))
	for _, t := range summary.Trends {
		trends = append(trends, trendDTO{Month: t.Month, Reservations: t.Reservations, Revenue: t.Revenue})
	}
	byStatus := summary.ByStatus
	if byStatus == nil {
		byStatus = map[string]int{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, dashboardResponse{
		TotalUsers:        summary.TotalUsers,
		ActiveUsers:       summary.ActiveUsers,
		TotalReservations: summary.TotalReservations,
		MonthReservations: summary.MonthReservations,
		TotalRevenue:      summary.TotalRevenue,
		MonthRevenue:      summary.MonthRevenue,
		ByStatus:          byStatus,
		ReservationTrends: trends,
		GeneratedAt:       formatTime(summary.GeneratedAt),
	})
}

type dashboardResponse struct {
	TotalUsers        int            `json:"totalUsers"`
	ActiveUsers       int            `json:"activeUsers"`
	TotalReservations int            `json:"totalReservations"`
	MonthReservations int            `json:"monthReservations"`
	TotalRevenue      float64        `json:"totalRevenue"`
	MonthRevenue      float64        `json:"monthRevenue"`
	ByStatus          map[string]int `json:"reservationsByStatus"`
	ReservationTrends []trendDTO     `json:"reservationTrends"`
	GeneratedAt       string         `json:"generatedAt"`
}

type trendDTO struct {
	Month        string  `json:"month"`
	Reservations int     `json:"reservations"`
	Revenue      float64 `json:"revenue"`
}
