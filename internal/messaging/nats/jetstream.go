package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/wardenworks/imgwarden/internal/messaging"
)

// JetStreamClient extends Client with durable, at-least-once delivery.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig defines the durable stream capturing storage events.
type StreamConfig struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
	MaxBytes int64
}

// ConsumerConfig defines the durable consumer this service reads from.
type ConsumerConfig struct {
	Name          string
	FilterSubject string

	// AckWait is how long the broker waits for an ack before redelivery.
	AckWait time.Duration

	// MaxDeliver caps delivery attempts per message.
	MaxDeliver int

	// NakDelay is the redelivery delay applied when a handler fails.
	NakDelay time.Duration
}

// DefaultStreamConfig returns stream defaults for storage events.
func DefaultStreamConfig(name string, subjects []string) StreamConfig {
	return StreamConfig{
		Name:     name,
		Subjects: subjects,
		MaxAge:   24 * time.Hour,
		MaxBytes: 1024 * 1024 * 1024,
	}
}

// DefaultConsumerConfig returns consumer defaults.
func DefaultConsumerConfig(name, filterSubject string) ConsumerConfig {
	return ConsumerConfig{
		Name:          name,
		FilterSubject: filterSubject,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		NakDelay:      5 * time.Second,
	}
}

// NewJetStreamClient creates a JetStream-enabled client.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamClient{Client: client, js: js}, nil
}

// EnsureStream creates or updates the stream.
func (c *JetStreamClient) EnsureStream(ctx context.Context, cfg StreamConfig) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create/update stream %s: %w", cfg.Name, err)
	}
	return nil
}

// EnsureConsumer creates or updates the durable consumer on the stream.
func (c *JetStreamClient) EnsureConsumer(ctx context.Context, streamName string, cfg ConsumerConfig) error {
	stream, err := c.js.Stream(ctx, streamName)
	if err != nil {
		return fmt.Errorf("failed to get stream %s: %w", streamName, err)
	}

	_, err = stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cfg.Name,
		Durable:       cfg.Name,
		FilterSubject: cfg.FilterSubject,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create/update consumer %s: %w", cfg.Name, err)
	}
	return nil
}

// Consume reads messages from the durable consumer and dispatches them to
// the handler. A handler error NAKs the message for delayed redelivery;
// success ACKs it. The returned stop function halts consumption.
func (c *JetStreamClient) Consume(ctx context.Context, streamName string, cfg ConsumerConfig, handler messaging.MessageHandler) (func(), error) {
	stream, err := c.js.Stream(ctx, streamName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", streamName, err)
	}

	consumer, err := stream.Consumer(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer %s: %w", cfg.Name, err)
	}

	consumeCtx, cancel := context.WithCancel(ctx)

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		m := &messaging.Message{
			Subject:   msg.Subject(),
			Data:      msg.Data(),
			Timestamp: time.Now(),
		}
		if headers := msg.Headers(); headers != nil {
			m.Metadata = make(map[string]string, len(headers))
			for k := range headers {
				m.Metadata[k] = headers.Get(k)
			}
		}

		if err := handler(consumeCtx, m); err != nil {
			_ = msg.NakWithDelay(cfg.NakDelay)
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	return func() {
		cons.Stop()
		cancel()
	}, nil
}

// PublishSync publishes to JetStream and waits for the broker's ack.
func (c *JetStreamClient) PublishSync(ctx context.Context, subject string, data []byte) error {
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("jetstream publish %s: %w", subject, err)
	}
	return nil
}
