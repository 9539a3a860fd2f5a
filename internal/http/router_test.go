package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/example/court-reservations/internal/application"
	"github.com/example/court-reservations/internal/testfixtures"
)

const testPassword = "correct-horse-battery"

type apiHarness struct {
	t        *testing.T
	handler  http.Handler
	services *testfixtures.Services
	factory  *testfixtures.ServiceFactory
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	factory := testfixtures.NewServiceFactory()
	services := factory.NewSQLiteServices(t, application.NopPublisher{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(RouterConfig{
		Auth:         NewAuthHandler(services.Auth, services.Users, logger),
		Users:        NewUserHandler(services.Users, logger),
		Courts:       NewCourtHandler(services.Courts, services.Reservations, logger),
		Reservations: NewReservationHandler(services.Reservations, logger),
		Tasks:        NewTaskHandler(services.Tasks, logger),
		Events:       NewEventHandler(services.Events, logger),
		Dashboard:    NewDashboardHandler(services.Dashboard, logger),
		Sessions:     services.Auth,
		Logger:       logger,
		Middleware:   []func(http.Handler) http.Handler{RequestLogger(logger)},
	})

	return &apiHarness{t: t, handler: router, services: services, factory: factory}
}

func (h *apiHarness) seedUser(role application.Role) testfixtures.UserFixture {
	h.t.Helper()
	hash, err := application.HashPassword(testPassword)
	if err != nil {
		h.t.Fatalf("failed to hash password: %v", err)
	}
	return h.services.Harness.SeedUser(h.t, testfixtures.NewUserFixture(
		testfixtures.WithUserRole(role),
		testfixtures.WithUserPasswordHash(hash),
	))
}

func (h *apiHarness) login(user testfixtures.UserFixture) string {
	h.t.Helper()
	result, err := h.services.Auth.Authenticate(context.Background(), application.AuthenticateParams{
		Email:    user.Email,
		Password: testPassword,
	})
	if err != nil {
		h.t.Fatalf("failed to authenticate %s: %v", user.Email, err)
	}
	return result.Token
}

func (h *apiHarness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAuthEndpoints(t *testing.T) {
	api := newAPIHarness(t)

	rec := api.do(http.MethodPost, "/signup", "", map[string]string{
		"email":     "New.Player@Example.com",
		"password":  testPassword,
		"full_name": "New Player",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from signup, got %d: %s", rec.Code, rec.Body.String())
	}
	signedUp := decodeBody[userResponse](t, rec)
	if signedUp.User.Role != "customer" || signedUp.User.Email != "new.player@example.com" {
		t.Fatalf("unexpected signed up user: %+v", signedUp.User)
	}

	rec = api.do(http.MethodPost, "/signup", "", map[string]string{
		"email":     "new.player@example.com",
		"password":  testPassword,
		"full_name": "Duplicate",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/login", "", map[string]string{"email": "new.player@example.com", "password": "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/login", "", map[string]string{"email": "new.player@example.com", "password": testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d: %s", rec.Code, rec.Body.String())
	}
	login := decodeBody[loginResponse](t, rec)
	if login.Token == "" || login.User.ID != signedUp.User.ID {
		t.Fatalf("unexpected login response: %+v", login)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != login.Token || !cookie.HttpOnly {
		t.Fatalf("expected httponly token cookie, got %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: login.Token})
	meRec := httptest.NewRecorder()
	api.handler.ServeHTTP(meRec, req)
	if meRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me with cookie, got %d: %s", meRec.Code, meRec.Body.String())
	}

	rec = api.do(http.MethodPost, "/logout", login.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from logout, got %d", rec.Code)
	}

	rec = api.do(http.MethodGet, "/me", login.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestReservationEndpoints(t *testing.T) {
	api := newAPIHarness(t)

	customer := api.seedUser(application.RoleCustomer)
	other := api.seedUser(application.RoleCustomer)
	court := api.services.Harness.SeedCourt(t, testfixtures.NewCourtFixture(testfixtures.WithCourtHourlyRate(800)))
	token := api.login(customer)
	otherToken := api.login(other)

	booking := map[string]any{
		"court_id":        court.ID,
		"start_date_time": "2024-01-03T10:00:00Z",
		"end_date_time":   "2024-01-03T11:30:00Z",
	}

	t.Run("requires a session", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/reservations", "", booking)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	rec := api.do(http.MethodPost, "/reservations", token, booking)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[reservationResponse](t, rec).Reservation
	if created.Status != "Pending" || created.Rate != 1200 || created.ReservorID != customer.ID {
		t.Fatalf("unexpected reservation: %+v", created)
	}
	if created.CourtID == nil || *created.CourtID != court.ID {
		t.Fatalf("unexpected court id: %v", created.CourtID)
	}
	if created.Start != "2024-01-03T10:00:00Z" || created.End != "2024-01-03T11:30:00Z" {
		t.Fatalf("unexpected interval: %s - %s", created.Start, created.End)
	}

	t.Run("overlap answers 409 with conflicting ids", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/reservations", otherToken, map[string]any{
			"court_id":        court.ID,
			"start_date_time": "2024-01-03T12:00:00+01:00",
			"end_date_time":   "2024-01-03T13:00:00+01:00",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody[errorResponse](t, rec)
		if body.ErrorCode != "RESERVATION_CONFLICT" || len(body.ConflictingIDs) != 1 || body.ConflictingIDs[0] != created.ID {
			t.Fatalf("unexpected conflict body: %+v", body)
		}
	})

	t.Run("touching interval is accepted", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/reservations", otherToken, map[string]any{
			"court_id":        court.ID,
			"start_date_time": "2024-01-03T11:30:00Z",
			"end_date_time":   "2024-01-03T12:00:00Z",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("timestamps without offset are rejected", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/reservations", token, map[string]any{
			"court_id":        court.ID,
			"start_date_time": "2024-01-04T10:00:00",
			"end_date_time":   "2024-01-04T11:00:00Z",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if body.ErrorCode != "VALIDATION_ERROR" || body.Errors["start_date_time"] == "" {
			t.Fatalf("unexpected validation body: %+v", body)
		}
	})

	t.Run("customers cannot override the rate", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/reservations", token, map[string]any{
			"court_id":        court.ID,
			"start_date_time": "2024-01-05T10:00:00Z",
			"end_date_time":   "2024-01-05T11:00:00Z",
			"rate":            1,
		})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("availability lists the day", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/courts/"+itoa(court.ID)+"/availability?day=2024-01-03", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody[availabilityResponse](t, rec)
		if body.CourtID != court.ID || body.Day != "2024-01-03" || len(body.Reservations) != 2 {
			t.Fatalf("unexpected availability: %+v", body)
		}

		rec = api.do(http.MethodGet, "/courts/"+itoa(court.ID)+"/availability?day=03-01-2024", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed day, got %d", rec.Code)
		}
	})

	t.Run("other customers cannot see the reservation", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/reservations/"+itoa(created.ID), otherToken, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("owner cancels and the slot frees up", func(t *testing.T) {
		rec := api.do(http.MethodPatch, "/reservations/"+itoa(created.ID)+"/status", token, map[string]string{"status": "Cancelled"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := decodeBody[reservationResponse](t, rec).Reservation.Status; got != "Cancelled" {
			t.Fatalf("expected Cancelled, got %s", got)
		}

		rec = api.do(http.MethodPost, "/reservations", otherToken, map[string]any{
			"court_id":        court.ID,
			"start_date_time": "2024-01-03T10:00:00Z",
			"end_date_time":   "2024-01-03T11:00:00Z",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 after cancellation, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("list is scoped to the customer", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/reservations", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody[listReservationsResponse](t, rec)
		if len(body.Reservations) != 1 || body.Reservations[0].ID != created.ID {
			t.Fatalf("unexpected reservations: %+v", body.Reservations)
		}
	})
}

func TestCourtEndpoints(t *testing.T) {
	api := newAPIHarness(t)

	manager := api.seedUser(application.RoleManager)
	customer := api.seedUser(application.RoleCustomer)
	managerToken := api.login(manager)

	payload := map[string]any{
		"court_name":  "Center Court",
		"court_type":  "tennis",
		"capacity":    4,
		"hourly_rate": 1500,
		"images":      []string{"center.jpg"},
	}

	rec := api.do(http.MethodPost, "/courts", api.login(customer), payload)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/courts", managerToken, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	court := decodeBody[courtResponse](t, rec).Court
	if !court.IsAvailable || court.HourlyRate != 1500 || len(court.Images) != 1 {
		t.Fatalf("unexpected court: %+v", court)
	}

	rec = api.do(http.MethodPost, "/courts", managerToken, map[string]any{"court_type": "tennis"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody[errorResponse](t, rec); body.Errors["court_name"] == "" || body.Errors["capacity"] == "" {
		t.Fatalf("expected field errors, got %+v", body.Errors)
	}

	rec = api.do(http.MethodGet, "/courts", "", nil)
	if rec.Code != http.StatusOK || len(decodeBody[listCourtsResponse](t, rec).Courts) != 1 {
		t.Fatalf("unexpected court list: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(http.MethodGet, "/courts/9999", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = api.do(http.MethodGet, "/courts/abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}

	rec = api.do(http.MethodDelete, "/courts/"+itoa(court.ID), managerToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = api.do(http.MethodPut, "/reservations", managerToken, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestEventAndDashboardEndpoints(t *testing.T) {
	api := newAPIHarness(t)

	manager := api.seedUser(application.RoleManager)
	first := api.seedUser(application.RoleCustomer)
	second := api.seedUser(application.RoleCustomer)
	court := api.services.Harness.SeedCourt(t, testfixtures.NewCourtFixture())
	managerToken := api.login(manager)

	rec := api.do(http.MethodPost, "/events", managerToken, map[string]any{
		"court_id":         court.ID,
		"title":            "Friday futsal",
		"start_date_time":  "2024-01-05T18:00:00Z",
		"end_date_time":    "2024-01-05T20:00:00Z",
		"max_participants": 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	event := decodeBody[eventResponse](t, rec).Event
	path := "/events/" + itoa(event.ID) + "/join"

	rec = api.do(http.MethodPost, path, api.login(first), nil)
	if rec.Code != http.StatusOK || decodeBody[eventResponse](t, rec).Event.CurrentParticipants != 1 {
		t.Fatalf("unexpected join result: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(http.MethodPost, path, api.login(second), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 when full, got %d", rec.Code)
	}
	if body := decodeBody[errorResponse](t, rec); body.ErrorCode != "EVENT_FULL" {
		t.Fatalf("unexpected error code: %s", body.ErrorCode)
	}

	rec = api.do(http.MethodGet, "/events/"+itoa(event.ID)+"/participants", managerToken, nil)
	if rec.Code != http.StatusOK || len(decodeBody[listParticipantsResponse](t, rec).Participants) != 1 {
		t.Fatalf("unexpected participants: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(http.MethodGet, "/dashboard", api.login(first), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer dashboard, got %d", rec.Code)
	}

	rec = api.do(http.MethodGet, "/dashboard", managerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	summary := decodeBody[dashboardResponse](t, rec)
	if summary.TotalUsers != 3 || len(summary.ReservationTrends) != application.TrendMonths {
		t.Fatalf("unexpected dashboard: %+v", summary)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
