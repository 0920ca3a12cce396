// Package consumer binds the moderation service to the durable JetStream
// work queue that delivers storage events.
package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wardenworks/imgwarden/internal/logging"
	"github.com/wardenworks/imgwarden/internal/messaging"
	natsclient "github.com/wardenworks/imgwarden/internal/messaging/nats"
	"github.com/wardenworks/imgwarden/internal/metrics"
	"github.com/wardenworks/imgwarden/internal/middleware"
	"github.com/wardenworks/imgwarden/internal/models"
)

// EventProcessor handles one delivered storage event. A non-nil error asks
// the broker to redeliver.
type EventProcessor interface {
	Process(ctx context.Context, payload []byte, receivedAt time.Time) (*models.Invocation, error)
}

// Consumer drains the storage-events stream and feeds each delivery to the
// processor.
type Consumer struct {
	js        *natsclient.JetStreamClient
	processor EventProcessor
	logger    *logging.Logger
	stop      func()
}

// New creates a Consumer over an established JetStream client.
func New(js *natsclient.JetStreamClient, processor EventProcessor, logger *logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{js: js, processor: processor, logger: logger}
}

// Start ensures the stream and durable consumer exist and begins pulling
// deliveries. It returns once the subscription is active.
func (c *Consumer) Start(ctx context.Context) error {
	streamCfg := natsclient.DefaultStreamConfig(messaging.StreamStorageEvents, []string{messaging.SubjectObjectsCreated})
	if err := c.js.EnsureStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	consumerCfg := natsclient.DefaultConsumerConfig(messaging.ConsumerModerator, messaging.SubjectObjectsCreated)
	if err := c.js.EnsureConsumer(ctx, messaging.StreamStorageEvents, consumerCfg); err != nil {
		return fmt.Errorf("ensure consumer: %w", err)
	}

	stop, err := c.js.Consume(ctx, messaging.StreamStorageEvents, consumerCfg, c.Handle)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.stop = stop

	c.logger.InfoContext(ctx, "consuming storage events",
		logging.Service("consumer"),
	)
	return nil
}

// Stop halts message delivery. In-flight handlers finish; unacked messages
// are redelivered after the ack wait.
func (c *Consumer) Stop() {
	if c.stop != nil {
		c.stop()
	}
}

// Handle processes one delivery. It is the messaging.MessageHandler wired
// into the durable consumer.
func (c *Consumer) Handle(ctx context.Context, msg *messaging.Message) error {
	ctx = middleware.WithRequestID(ctx, uuid.New().String())

	receivedAt := msg.Timestamp
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	inv, err := c.processor.Process(ctx, msg.Data, receivedAt)
	if err != nil {
		metrics.EventsTotal.WithLabelValues("broker", "redelivered").Inc()
		return err
	}

	metrics.EventsTotal.WithLabelValues("broker", string(inv.Status)).Inc()
	return nil
}
