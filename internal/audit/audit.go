// Package audit writes searchable moderation audit documents. The sink is
// observability only: nothing in the pipeline reads it back, and a write
// failure never fails the invocation.
package audit

import (
	"context"

	"github.com/wardenworks/imgwarden/internal/models"
)

// Sink receives one document per invocation.
type Sink interface {
	Write(ctx context.Context, inv *models.Invocation) error
}

// NoopSink discards audit documents. Used when the audit index is disabled.
type NoopSink struct{}

// Write discards the document.
func (NoopSink) Write(ctx context.Context, inv *models.Invocation) error {
	return nil
}
