package http

import (
	"log/slog"
	"net/http"
)

type RouterConfig struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Courts       *CourtHandler
	Reservations *ReservationHandler
	Tasks        *TaskHandler
	Events       *EventHandler
	Dashboard    *DashboardHandler

	// Sessions guards every non public route. Without it the principal is
	// never populated and protected routes answer 401.
	Sessions   SessionValidator
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

// NewRouter registers the API routes. Public routes are sign up, login and
// the read side of courts, availability and events.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Sessions == nil {
			return RequireSession(missingValidator{}, cfg.Logger)(h)
		}
		return RequireSession(cfg.Sessions, cfg.Logger)(h)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("POST /signup", cfg.Auth.SignUp)
		mux.HandleFunc("POST /login", cfg.Auth.Login)
		mux.HandleFunc("POST /logout", cfg.Auth.Logout)
		mux.Handle("GET /me", protect(cfg.Auth.Me))
	}

	if cfg.Users != nil {
		mux.Handle("GET /users", protect(cfg.Users.List))
		mux.Handle("POST /users", protect(cfg.Users.Create))
		mux.Handle("GET /users/{id}", protect(cfg.Users.Get))
		mux.Handle("PATCH /users/{id}", protect(cfg.Users.Update))
		mux.Handle("DELETE /users/{id}", protect(cfg.Users.Deactivate))
	}

	if cfg.Courts != nil {
		mux.HandleFunc("GET /courts", cfg.Courts.List)
		mux.Handle("POST /courts", protect(cfg.Courts.Create))
		mux.HandleFunc("GET /courts/{id}", cfg.Courts.Get)
		mux.Handle("PUT /courts/{id}", protect(cfg.Courts.Update))
		mux.Handle("DELETE /courts/{id}", protect(cfg.Courts.Delete))
		mux.HandleFunc("GET /courts/{id}/availability", cfg.Courts.Availability)
	}

	if cfg.Reservations != nil {
		mux.Handle("GET /reservations", protect(cfg.Reservations.List))
		mux.Handle("POST /reservations", protect(cfg.Reservations.Create))
		mux.Handle("GET /reservations/{id}", protect(cfg.Reservations.Get))
		mux.Handle("PATCH /reservations/{id}/status", protect(cfg.Reservations.UpdateStatus))
	}

	if cfg.Tasks != nil {
		mux.Handle("GET /tasks", protect(cfg.Tasks.List))
		mux.Handle("POST /tasks", protect(cfg.Tasks.Create))
		mux.Handle("GET /tasks/{id}", protect(cfg.Tasks.Get))
		mux.Handle("PUT /tasks/{id}", protect(cfg.Tasks.Update))
		mux.Handle("PATCH /tasks/{id}/status", protect(cfg.Tasks.UpdateStatus))
		mux.Handle("DELETE /tasks/{id}", protect(cfg.Tasks.Delete))
	}

	if cfg.Events != nil {
		mux.HandleFunc("GET /events", cfg.Events.List)
		mux.Handle("POST /events", protect(cfg.Events.Create))
		mux.HandleFunc("GET /events/{id}", cfg.Events.Get)
		mux.Handle("PUT /events/{id}", protect(cfg.Events.Update))
		mux.Handle("DELETE /events/{id}", protect(cfg.Events.Delete))
		mux.Handle("POST /events/{id}/join", protect(cfg.Events.Join))
		mux.Handle("DELETE /events/{id}/join", protect(cfg.Events.Leave))
		mux.Handle("GET /events/{id}/participants", protect(cfg.Events.Participants))
	}

	if cfg.Dashboard != nil {
		mux.Handle("GET /dashboard", protect(cfg.Dashboard.Summary))
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
