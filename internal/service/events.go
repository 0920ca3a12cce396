package service

import "time"

// OutcomeRecordedEvent is published after every completed invocation so
// downstream consumers can follow moderation results without polling the
// outcomes API.
type OutcomeRecordedEvent struct {
	InvocationID string    `json:"invocation_id"`
	Bucket       string    `json:"bucket,omitempty"`
	Key          string    `json:"key,omitempty"`
	Status       string    `json:"status"`
	Cause        string    `json:"cause,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}
