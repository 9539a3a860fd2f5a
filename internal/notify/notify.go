// Package notify delivers booking and task notifications to downstream
// consumers through a RabbitMQ topic exchange.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/court-reservations/internal/application"
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON messages to a topic exchange, using the
// notification topic as routing key.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

var _ application.Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials url and declares a durable topic exchange.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	p := newPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger.With("component", "notify", "exchange", exchange),
	}
}

// Publish implements application.Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s notification: %w", topic, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    p.newID(),
		Timestamp:    p.now().UTC(),
		Type:         topic,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return fmt.Errorf("publisher closed")
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "notification published", "topic", topic, "message_id", msg.MessageId)
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// LogPublisher writes notifications to a logger. It is used when no broker
// is configured.
type LogPublisher struct {
	logger *slog.Logger
}

var _ application.Publisher = (*LogPublisher)(nil)

// NewLogPublisher returns a publisher that logs at info level.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "notify")}
}

// Publish implements application.Publisher.
func (p *LogPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.logger.InfoContext(ctx, "notification", "topic", topic, "payload", payload)
	return nil
}

// Hooked runs a local callback for every notification before forwarding it.
type Hooked struct {
	next application.Publisher
	hook func(ctx context.Context, topic string)
}

var _ application.Publisher = (*Hooked)(nil)

// WithHook wraps next. A nil next discards notifications after the hook ran.
func WithHook(next application.Publisher, hook func(ctx context.Context, topic string)) *Hooked {
	if next == nil {
		next = application.NopPublisher{}
	}
	return &Hooked{next: next, hook: hook}
}

// Publish implements application.Publisher.
func (h *Hooked) Publish(ctx context.Context, topic string, payload any) error {
	if h.hook != nil {
		h.hook(ctx, topic)
	}
	return h.next.Publish(ctx, topic, payload)
}
