package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardenworks/imgwarden/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a connection pool and verifies connectivity.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// RecordInvocation inserts one invocation record.
func (r *PostgresRepository) RecordInvocation(ctx context.Context, inv *models.Invocation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO moderation_invocations
			(id, bucket, key, status, cause, age_ms, adult, violence, received_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.Bucket, inv.Key, string(inv.Status), inv.Cause,
		inv.AgeMS, inv.Adult, inv.Violence, inv.ReceivedAt, inv.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invocation %s: %w", inv.ID, err)
	}
	return nil
}

// ListRecent returns up to limit invocations, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.Invocation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, bucket, key, status, cause, age_ms, adult, violence, received_at, completed_at
		FROM moderation_invocations
		ORDER BY completed_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	var out []*models.Invocation
	for rows.Next() {
		var inv models.Invocation
		var status string
		if err := rows.Scan(&inv.ID, &inv.Bucket, &inv.Key, &status, &inv.Cause,
			&inv.AgeMS, &inv.Adult, &inv.Violence, &inv.ReceivedAt, &inv.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		inv.Status = models.OutcomeStatus(status)
		out = append(out, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return out, nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
