// Package repository persists the audit trail of moderation invocations.
// The pipeline never reads these records; they exist for operators.
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/wardenworks/imgwarden/internal/models"
)

// Repository records invocation outcomes.
type Repository interface {
	RecordInvocation(ctx context.Context, inv *models.Invocation) error
	ListRecent(ctx context.Context, limit int) ([]*models.Invocation, error)
	Ping(ctx context.Context) error
	Close() error
}

// MemoryRepository is an in-memory Repository for tests and for running
// without a database.
type MemoryRepository struct {
	mu          sync.RWMutex
	invocations []*models.Invocation
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// RecordInvocation stores a copy of the invocation record.
func (r *MemoryRepository) RecordInvocation(ctx context.Context, inv *models.Invocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := *inv
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invocations = append(r.invocations, &stored)
	return nil
}

// ListRecent returns up to limit invocations, newest first.
func (r *MemoryRepository) ListRecent(ctx context.Context, limit int) ([]*models.Invocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Invocation, len(r.invocations))
	for i, inv := range r.invocations {
		copied := *inv
		out[i] = &copied
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping always succeeds for the in-memory repository.
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}
