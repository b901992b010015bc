package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeName = "bookstore.events"
	exchangeType = "topic"
	eventVersion = "1.0.0"

	// Event types
	EventTypeCatalogIngested   = "catalog.ingested"
	EventTypeCatalogMaintained = "catalog.maintained"
	EventTypeTestDataGenerated = "testdata.generated"
	EventTypeTestDataCleared   = "testdata.cleared"

	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
	confirmTimeout = 5 * time.Second
)

var (
	errNacked         = errors.New("broker rejected event")
	errConfirmTimeout = errors.New("no confirmation from broker")
)

// Notifier announces completed runs
type Notifier interface {
	PublishRunCompleted(ctx context.Context, eventType, runID string, payload map[string]interface{}) error
	IsHealthy() bool
	Close() error
}

// Publisher sends run events to a topic exchange and waits for the
// broker to confirm each one.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.Logger
}

// Event represents a domain event
type Event struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	EventVersion  string                 `json:"event_version"`
	Timestamp     string                 `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

type correlationKey struct{}

// WithCorrelationID attaches a correlation id to ctx
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id attached to ctx, if any
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NewEvent builds the envelope for a run-completed event. The run id is
// always part of the payload.
func NewEvent(ctx context.Context, eventType, runID string, payload map[string]interface{}) Event {
	body := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["run_id"] = runID

	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: CorrelationID(ctx),
		Payload:       body,
	}
}

// NewPublisher dials url, declares the exchange and puts the channel in
// confirm mode.
func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	p := &Publisher{conn: conn, log: log}

	if p.channel, err = conn.Channel(); err != nil {
		p.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := p.channel.ExchangeDeclare(exchangeName, exchangeType, true, false, false, false, nil); err != nil {
		p.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchangeName, err)
	}
	if err := p.channel.Confirm(false); err != nil {
		p.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	log.Info("Event publisher ready", zap.String("exchange", exchangeName))
	return p, nil
}

// PublishRunCompleted publishes the outcome of a run, routed by its event type
func (p *Publisher) PublishRunCompleted(ctx context.Context, eventType, runID string, payload map[string]interface{}) error {
	event := NewEvent(ctx, eventType, runID, payload)
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", eventType, err)
	}

	log := p.log.With(
		zap.String("event_id", event.EventID),
		zap.String("event_type", eventType),
		zap.String("run_id", runID),
	)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return err
			}
		}

		lastErr = p.publishOnce(ctx, event, body)
		if lastErr == nil {
			log.Debug("Event confirmed", zap.Int("attempt", attempt))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Event publish attempt failed", zap.Int("attempt", attempt), zap.Error(lastErr))
	}

	return fmt.Errorf("publish %s: gave up after %d attempts: %w", eventType, maxRetries, lastErr)
}

// publishOnce sends body and waits for the broker's confirmation
func (p *Publisher) publishOnce(ctx context.Context, event Event, body []byte) error {
	confirms := p.channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now(),
		MessageId:     event.EventID,
		CorrelationId: event.CorrelationID,
		Body:          body,
		Headers: amqp.Table{
			"event_type":    event.EventType,
			"event_version": event.EventVersion,
		},
	}
	if err := p.channel.PublishWithContext(ctx, exchangeName, event.EventType, false, false, msg); err != nil {
		return err
	}

	timer := time.NewTimer(confirmTimeout)
	defer timer.Stop()

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return errNacked
		}
		return nil
	case <-timer.C:
		return errConfirmTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff returns the wait before attempt n (n >= 2), doubling from
// initialBackoff up to maxBackoff
func backoff(n int) time.Duration {
	d := initialBackoff
	for i := 2; i < n && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsHealthy reports whether the broker connection is open
func (p *Publisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	if err := errors.Join(errs...); err != nil {
		p.log.Warn("Event publisher closed with errors", zap.Error(err))
		return err
	}
	return nil
}

// NopPublisher is used when no broker is configured. It logs events at
// debug level and reports healthy.
type NopPublisher struct {
	log *zap.Logger
}

func NewNopPublisher(log *zap.Logger) *NopPublisher {
	return &NopPublisher{log: log}
}

func (n *NopPublisher) PublishRunCompleted(ctx context.Context, eventType, runID string, payload map[string]interface{}) error {
	n.log.Debug("Event not published, no broker configured",
		zap.String("event_type", eventType),
		zap.String("run_id", runID),
	)
	return nil
}

func (n *NopPublisher) IsHealthy() bool { return true }

func (n *NopPublisher) Close() error { return nil }
