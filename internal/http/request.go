package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/court-reservations/internal/scheduler"
)

const (
	msgInvalidTimestamp = "must be an RFC3339 timestamp with an explicit offset"
	msgInvalidDay       = "must be a date in YYYY-MM-DD format"
)

// pathID parses the named path segment as a positive identifier.
func pathID(r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue(name))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive identifier from the query string.
func queryID(r *http.Request, name string, problems map[string]string) *int64 {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		problems[name] = "must be a positive integer"
		return nil
	}
	return &id
}

// queryTime parses an optional RFC3339 timestamp from the query string.
func queryTime(r *http.Request, name string, problems map[string]string) *time.Time {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	t, err := scheduler.ParseTimestamp(raw)
	if err != nil {
		problems[name] = msgInvalidTimestamp
		return nil
	}
	return &t
}

// bodyTime parses a timestamp field of a request body. Empty values stay zero
// so the service reports them as missing.
func bodyTime(raw, field string, problems map[string]string) time.Time {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}
	}
	t, err := scheduler.ParseTimestamp(raw)
	if err != nil {
		problems[field] = msgInvalidTimestamp
		return time.Time{}
	}
	return t
}

// optionalBodyTime parses a nullable timestamp field of a request body.
func optionalBodyTime(raw *string, field string, problems map[string]string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	t := bodyTime(*raw, field, problems)
	if t.IsZero() {
		return nil
	}
	return &t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}
