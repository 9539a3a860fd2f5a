package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingBound is returned when either end of an interval is the zero time.
	ErrMissingBound = errors.New("scheduler: interval bound is required")
	// ErrEmptyInterval is returned when end does not come strictly after start.
	ErrEmptyInterval = errors.New("scheduler: end must be after start")
	// ErrNaiveTimestamp is returned for timestamps without an explicit UTC offset.
	ErrNaiveTimestamp = errors.New("scheduler: timestamp must include a UTC offset")
)

// Precision is the resolution timestamps are stored at.
const Precision = time.Microsecond

// Interval is a half-open range [Start, End) in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates and normalises the supplied bounds.
func NewInterval(start, end time.Time) (Interval, error) {
	if start.IsZero() || end.IsZero() {
		return Interval{}, ErrMissingBound
	}
	iv := Interval{Start: Normalize(start), End: Normalize(end)}
	if !iv.End.After(iv.Start) {
		return Interval{}, ErrEmptyInterval
	}
	return iv, nil
}

// Normalize converts t to the canonical zone and precision.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}

// Overlaps reports whether the two intervals share at least one instant.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Overlaps is the method form of the package level Overlaps.
func (iv Interval) Overlaps(other Interval) bool {
	return Overlaps(iv, other)
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Hours returns the interval length in fractional hours.
func (iv Interval) Hours() float64 {
	return iv.Duration().Hours()
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339Nano), iv.End.Format(time.RFC3339Nano))
}

// DayWindow returns the UTC calendar day containing day as an interval.
func DayWindow(day time.Time) Interval {
	d := day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// MonthWindow returns the UTC calendar month containing ref.
func MonthWindow(ref time.Time) Interval {
	r := ref.UTC()
	start := time.Date(r.Year(), r.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}

// ParseTimestamp parses an RFC3339 timestamp that carries an explicit offset
// and returns it in UTC. Values such as "2024-01-01T10:00:00" are rejected.
func ParseTimestamp(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, ErrMissingBound
	}
	t, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		if _, naiveErr := time.Parse("2006-01-02T15:04:05", trimmed); naiveErr == nil {
			return time.Time{}, ErrNaiveTimestamp
		}
		return time.Time{}, fmt.Errorf("scheduler: parse timestamp %q: %w", trimmed, err)
	}
	return Normalize(t), nil
}

// ParseDay parses a YYYY-MM-DD calendar date as a UTC midnight.
func ParseDay(value string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: parse day %q: %w", value, err)
	}
	return t, nil
}
