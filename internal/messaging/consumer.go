package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/metrics"
)

// HandlerFunc processes one delivery body. A transient error triggers a retry
// per the consumer's policy; validation and not-found errors drop the
// delivery after logging.
type HandlerFunc func(ctx context.Context, body []byte) error

// RetryPolicy bounds in-process redelivery attempts. A zero Initial means
// immediate retries.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

// ImmediateRetry retries without delay, for low-latency consumers.
func ImmediateRetry(maxAttempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts}
}

// ExponentialRetry doubles the delay per attempt from initial up to max.
func ExponentialRetry(maxAttempts int, initial, max time.Duration) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, Initial: initial, Max: max}
}

// Backoff returns the delay before the given retry attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.Initial <= 0 {
		return 0
	}
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Consumer runs handler loops over durable queues bound to the events
// exchange. Deliveries are acked manually; exhausted retries are parked in
// <queue>.parked for inspection rather than dropped.
type Consumer struct {
	conn   *amqp.Connection
	logger *zap.Logger
}

func NewConsumer(conn *amqp.Connection, logger *zap.Logger) *Consumer {
	return &Consumer{conn: conn, logger: logger}
}

// Start binds queue to routingKey on the events exchange and consumes it
// until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, queue, routingKey string, policy RetryPolicy, h HandlerFunc) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return fmt.Errorf("declare events exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", queue, routingKey, err)
	}
	if _, err := ch.QueueDeclare(ParkedQueue(queue), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", ParkedQueue(queue), err)
	}

	msgs, err := ch.Consume(queue, queue, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	logger := c.logger.With(zap.String("queue", queue))

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				logger.Info("stopping consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Warn("messages channel closed")
					return
				}
				c.process(ctx, ch, queue, policy, h, msg, logger)
			}
		}
	}()

	return nil
}

func (c *Consumer) process(ctx context.Context, ch *amqp.Channel, queue string, policy RetryPolicy, h HandlerFunc, msg amqp.Delivery, logger *zap.Logger) {
	for attempt := 1; ; attempt++ {
		err := h(ctx, msg.Body)
		if err == nil {
			metrics.EventsConsumed.WithLabelValues(queue, "ok").Inc()
			_ = msg.Ack(false)
			return
		}

		kind := apperr.KindOf(err)
		if kind != apperr.KindTransient {
			// Validation, not-found and conflict outcomes are final for
			// this delivery; redelivering cannot change them.
			logger.Warn("dropping delivery",
				zap.String("kind", kind.String()),
				zap.Error(err))
			metrics.EventsConsumed.WithLabelValues(queue, kind.String()).Inc()
			_ = msg.Ack(false)
			return
		}

		if attempt >= policy.MaxAttempts {
			logger.Error("retries exhausted, parking delivery",
				zap.Int("attempts", attempt),
				zap.Error(err))
			c.park(ctx, ch, queue, msg, logger)
			return
		}

		logger.Warn("handler failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if delay := policy.Backoff(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				// Requeue so another instance picks the delivery up.
				_ = msg.Nack(false, true)
				return
			case <-time.After(delay):
			}
		}
	}
}

func (c *Consumer) park(ctx context.Context, ch *amqp.Channel, queue string, msg amqp.Delivery, logger *zap.Logger) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(
		pubCtx,
		"", // default exchange
		ParkedQueue(queue),
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
		},
	)
	if err != nil {
		logger.Error("park failed, requeueing", zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}

	metrics.EventsParked.WithLabelValues(queue).Inc()
	metrics.EventsConsumed.WithLabelValues(queue, "parked").Inc()
	_ = msg.Ack(false)
}
