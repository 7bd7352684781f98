// Package notify publishes payment and audit events to a RabbitMQ topic
// exchange.
//
// Routing keys follow "paytrail.payment.<event>" and
// "paytrail.audit.<category>", so consumers can bind to
// "paytrail.payment.#" or "paytrail.audit.delete" as they need.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/plugin"
)

// DefaultExchange is the topic exchange events are published to.
const DefaultExchange = "paytrail.events"

// Event types.
const (
	EventPaymentCreated      = "payment.created"
	EventPaymentCompleted    = "payment.completed"
	EventPaymentFailed       = "payment.failed"
	EventPaymentRefunded     = "payment.refunded"
	EventPaymentNotesUpdated = "payment.notes_updated"
	EventAuditRecorded       = "audit.recorded"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Sink)(nil)
	_ plugin.OnShutdown            = (*Sink)(nil)
	_ plugin.OnPaymentCreated      = (*Sink)(nil)
	_ plugin.OnPaymentTransitioned = (*Sink)(nil)
	_ plugin.OnPaymentNotesUpdated = (*Sink)(nil)
	_ plugin.OnAuditRecorded       = (*Sink)(nil)
)

// Channel is the subset of *amqp.Channel the sink publishes through.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Event is the JSON body of every published message.
type Event struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	OccurredAt time.Time        `json:"occurred_at"`
	ActorID    *int64           `json:"actor_id,omitempty"`
	Payment    *payment.Payment `json:"payment,omitempty"`
	From       payment.Status   `json:"from,omitempty"`
	Entry      *audit.Entry     `json:"entry,omitempty"`
}

// Sink publishes ledger events to an AMQP exchange. Publish failures are
// logged by the plugin registry and never fail the ledger operation.
type Sink struct {
	mu       sync.Mutex
	channel  Channel
	closer   io.Closer
	exchange string
	logger   *slog.Logger
	clock    func() time.Time
}

// Option configures a Sink.
type Option func(*Sink)

// WithExchange overrides DefaultExchange.
func WithExchange(name string) Option {
	return func(s *Sink) {
		if name != "" {
			s.exchange = name
		}
	}
}

// WithLogger sets the logger for the sink.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Sink) {
		s.clock = clock
	}
}

// New creates a Sink publishing through ch. The exchange must already exist.
func New(ch Channel, opts ...Option) *Sink {
	s := &Sink{
		channel:  ch,
		exchange: DefaultExchange,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to the broker at url, declares a durable topic exchange and
// returns a Sink that owns the connection. OnShutdown closes it.
func Dial(url string, opts ...Option) (*Sink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}

	s := New(ch, opts...)
	s.closer = conn

	err = ch.ExchangeDeclare(
		s.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: declare exchange %s: %w", s.exchange, err)
	}

	s.logger.Info("notify: connected", "exchange", s.exchange)
	return s, nil
}

// Name implements plugin.Plugin.
func (s *Sink) Name() string { return "notify-amqp" }

// OnShutdown implements plugin.OnShutdown.
func (s *Sink) OnShutdown(_ context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OnPaymentCreated implements plugin.OnPaymentCreated.
func (s *Sink) OnPaymentCreated(_ context.Context, req audit.RequestInfo, p *payment.Payment) error {
	return s.publish(Event{Type: EventPaymentCreated, ActorID: req.ActorID, Payment: p})
}

// OnPaymentTransitioned implements plugin.OnPaymentTransitioned.
func (s *Sink) OnPaymentTransitioned(_ context.Context, req audit.RequestInfo, p *payment.Payment, from payment.Status) error {
	return s.publish(Event{Type: "payment." + string(p.Status), ActorID: req.ActorID, Payment: p, From: from})
}

// OnPaymentNotesUpdated implements plugin.OnPaymentNotesUpdated.
func (s *Sink) OnPaymentNotesUpdated(_ context.Context, req audit.RequestInfo, p *payment.Payment) error {
	return s.publish(Event{Type: EventPaymentNotesUpdated, ActorID: req.ActorID, Payment: p})
}

// OnAuditRecorded implements plugin.OnAuditRecorded.
func (s *Sink) OnAuditRecorded(_ context.Context, e *audit.Entry) error {
	return s.publish(Event{Type: EventAuditRecorded, ActorID: e.ActorID, Entry: e})
}

// RoutingKey returns the routing key evt is published under.
func RoutingKey(evt Event) string {
	if evt.Entry != nil {
		return "paytrail.audit." + string(evt.Entry.Category)
	}
	return "paytrail." + evt.Type
}

func (s *Sink) publish(evt Event) error {
	evt.ID = id.NewEventID().String()
	evt.OccurredAt = s.clock().UTC()

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", evt.Type, err)
	}

	headers := amqp.Table{"event_type": evt.Type}
	if evt.ActorID != nil {
		headers["actor_id"] = strconv.FormatInt(*evt.ActorID, 10)
	}
	if evt.Payment != nil {
		headers["payment_id"] = evt.Payment.ID.String()
		headers["transaction_id"] = evt.Payment.TransactionID
		headers["customer_id"] = strconv.FormatInt(evt.Payment.CustomerID, 10)
	}
	if evt.Entry != nil {
		headers["audit_entry_id"] = strconv.FormatInt(evt.Entry.ID, 10)
		headers["category"] = string(evt.Entry.Category)
	}

	key := RoutingKey(evt)

	s.mu.Lock()
	err = s.channel.Publish(
		s.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    evt.ID,
			Timestamp:    evt.OccurredAt,
			Type:         evt.Type,
			Headers:      headers,
		},
	)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("notify: publish %s: %w", key, err)
	}

	s.logger.Debug("notify: event published", "routing_key", key, "event_id", evt.ID)
	return nil
}
