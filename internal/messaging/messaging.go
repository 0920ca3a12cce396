// Package messaging abstracts the message broker that delivers storage
// events. The service is written against these interfaces so tests can run
// without a broker.
package messaging

import (
	"context"
	"time"
)

// Message is a single delivery from the broker.
type Message struct {
	// Subject is the topic the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional message headers.
	Metadata map[string]string

	// Timestamp is when the message was received by this process.
	Timestamp time.Time
}

// MessageHandler processes a received message. Returning an error signals
// processing failure; durable subscriptions will redeliver the message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a fire-and-forget message to the subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishJSON marshals v to JSON and publishes it to the subject.
	PublishJSON(ctx context.Context, subject string, v any) error

	// Close releases any resources held by the publisher.
	Close() error
}
