// Package http provides HTTP handlers and middleware for the court reservation API.
//
// The router exposes the following endpoints:
//   - POST /signup, POST /login, POST /logout, GET /me: account and session
//     endpoints. Login returns {"token","expires_at","user"} and also sets the
//     httponly `token` cookie. Requests authenticate with either that cookie or
//     an `Authorization: Bearer` header.
//   - GET /users, POST /users, GET|PATCH|DELETE /users/{id}: staff user
//     management. DELETE deactivates the account.
//   - GET /courts, GET /courts/{id}, GET /courts/{id}/availability?day=YYYY-MM-DD
//     are public. POST /courts, PUT|DELETE /courts/{id} require a manager.
//   - POST /reservations, GET /reservations, GET /reservations/{id},
//     PATCH /reservations/{id}/status. A booking that overlaps an active
//     reservation answers 409 with error_code RESERVATION_CONFLICT and the
//     conflicting_ids.
//   - /tasks, /events (with /join and /participants) and GET /dashboard.
//
// Validation failures answer 400 with a per field `errors` object. All
// timestamps are RFC3339 with an explicit offset and are returned in UTC.
package http
