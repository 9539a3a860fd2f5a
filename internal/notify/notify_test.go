package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/court-reservations/internal/application"
)

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMessage{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func TestAMQPPublisher_PublishesJSONWithTopicRoutingKey(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "courts.events", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	fixed := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	p.newID = func() string { return "msg-1" }

	courtID := int64(2)
	payload := application.ReservationNotification{
		ReservationID: 10,
		CourtID:       &courtID,
		ReservorID:    3,
		Status:        "Pending",
		OccurredAt:    fixed,
	}

	if err := p.Publish(context.Background(), application.TopicReservationCreated, payload); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "courts.events" || got.key != application.TopicReservationCreated {
		t.Fatalf("unexpected routing: %s/%s", got.exchange, got.key)
	}
	if got.msg.ContentType != "application/json" || got.msg.MessageId != "msg-1" || !got.msg.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected message properties: %+v", got.msg)
	}
	if got.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery, got %d", got.msg.DeliveryMode)
	}

	var decoded map[string]any
	if err := json.Unmarshal(got.msg.Body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded["reservation_id"] != float64(10) || decoded["court_id"] != float64(2) || decoded["status"] != "Pending" {
		t.Fatalf("unexpected body: %s", got.msg.Body)
	}
}

func TestAMQPPublisher_WrapsChannelErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newPublisher(ch, "courts.events", nil)

	err := p.Publish(context.Background(), application.TopicTaskAssigned, application.TaskNotification{TaskID: 1})
	if err == nil || !strings.Contains(err.Error(), "channel closed") {
		t.Fatalf("expected wrapped channel error, got %v", err)
	}
}

func TestAMQPPublisher_RejectsUnencodablePayload(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "courts.events", nil)

	if err := p.Publish(context.Background(), "bad", make(chan int)); err == nil {
		t.Fatalf("expected marshal error")
	}
	if len(ch.published) != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestAMQPPublisher_CloseStopsPublishing(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "courts.events", nil)

	if err := p.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !ch.closed {
		t.Fatalf("expected channel to be closed")
	}
	if err := p.Publish(context.Background(), "topic", struct{}{}); err == nil {
		t.Fatalf("expected publish after close to fail")
	}
}

func TestLogPublisher_LogsTopic(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	if err := p.Publish(context.Background(), application.TopicReservationStatusChanged, map[string]int{"reservation_id": 4}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["topic"] != application.TopicReservationStatusChanged || entry["component"] != "notify" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestWithHook_RunsBeforeForwarding(t *testing.T) {
	ch := &fakeChannel{}
	inner := newPublisher(ch, "courts.events", nil)

	var topics []string
	p := WithHook(inner, func(_ context.Context, topic string) {
		topics = append(topics, topic)
	})

	if err := p.Publish(context.Background(), application.TopicReservationCreated, struct{}{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(topics) != 1 || topics[0] != application.TopicReservationCreated {
		t.Fatalf("expected hook to observe topic, got %v", topics)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected message to be forwarded, got %d", len(ch.published))
	}

	ch.err = errors.New("broker gone")
	if err := p.Publish(context.Background(), application.TopicTaskAssigned, struct{}{}); err == nil {
		t.Fatalf("expected forwarding error to surface")
	}
	if len(topics) != 2 {
		t.Fatalf("expected hook to run even when forwarding fails")
	}
}
