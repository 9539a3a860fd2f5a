package scheduler

import (
	"sort"
	"strings"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
)

// ActiveStatuses lists the statuses that block other bookings.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return StatusPending, true
	case "confirmed":
		return StatusConfirmed, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return "", false
}

// IsActive reports whether a reservation in this status counts toward conflicts.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsActiveStatus is IsActive for a raw stored status value.
func IsActiveStatus(status string) bool {
	return Status(status).IsActive()
}

// ActiveStatusValues returns ActiveStatuses as plain strings for storage queries.
func ActiveStatusValues() []string {
	values := make([]string, len(ActiveStatuses))
	for i, s := range ActiveStatuses {
		values[i] = string(s)
	}
	return values
}

// CanTransition reports whether from -> to is a legal status change.
// Nothing leaves Cancelled and a status never transitions to itself.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	}
	return false
}

// Booking is the minimal view of a reservation needed for conflict checks.
type Booking struct {
	ID       int64
	CourtID  int64
	Status   Status
	Interval Interval
}

// Conflict pairs a candidate with an existing booking it collides with.
type Conflict struct {
	WithID   int64
	CourtID  int64
	Interval Interval
}

// DetectConflicts returns the existing bookings that block candidate, ordered
// by start time then id. Only bookings on the same court with an active status
// are considered; the candidate itself is skipped when it carries an id.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	var conflicts []Conflict
	for _, b := range existing {
		if b.CourtID != candidate.CourtID {
			continue
		}
		if candidate.ID != 0 && b.ID == candidate.ID {
			continue
		}
		if !b.Status.IsActive() {
			continue
		}
		if !Overlaps(b.Interval, candidate.Interval) {
			continue
		}
		conflicts = append(conflicts, Conflict{WithID: b.ID, CourtID: b.CourtID, Interval: b.Interval})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Interval.Start.Equal(conflicts[j].Interval.Start) {
			return conflicts[i].WithID < conflicts[j].WithID
		}
		return conflicts[i].Interval.Start.Before(conflicts[j].Interval.Start)
	})
	return conflicts
}

// ConflictIDs extracts the booking ids from conflicts preserving order.
func ConflictIDs(conflicts []Conflict) []int64 {
	if len(conflicts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.WithID)
	}
	return ids
}
