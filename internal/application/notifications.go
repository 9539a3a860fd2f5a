package application

import (
	"context"
	"time"
)

// Routing keys for domain notifications.
const (
	TopicReservationCreated       = "reservation.created"
	TopicReservationStatusChanged = "reservation.status_changed"
	TopicTaskAssigned             = "task.assigned"
)

// Publisher delivers domain notifications after a change has been committed.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// NopPublisher discards notifications.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// ReservationNotification is the payload of reservation topics.
type ReservationNotification struct {
	ReservationID  int64     `json:"reservation_id"`
	CourtID        *int64    `json:"court_id"`
	ReservorID     int64     `json:"reservor_id"`
	Start          time.Time `json:"start_date_time"`
	End            time.Time `json:"end_date_time"`
	Rate           float64   `json:"rate"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// TaskNotification is the payload of task topics.
type TaskNotification struct {
	TaskID     int64      `json:"task_id"`
	AssigneeID int64      `json:"assignee_id"`
	AssignerID int64      `json:"assigner_id"`
	Title      string     `json:"title"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func reservationNotification(r Reservation, previous string, at time.Time) ReservationNotification {
	return ReservationNotification{
		ReservationID:  r.ID,
		CourtID:        r.CourtID,
		ReservorID:     r.ReservorID,
		Start:          r.Start,
		End:            r.End,
		Rate:           r.Rate,
		Status:         string(r.Status),
		PreviousStatus: previous,
		OccurredAt:     at,
	}
}
