// Package guard decides whether a delivered event is still fresh enough to
// process. Delivery is at-least-once: the broker redelivers on timeout or
// handler failure, and a redelivery that arrives long after the triggering
// upload should not re-run the pipeline.
package guard

import (
	"encoding/json"
	"log/slog"
	"time"
)

// DefaultMaxEventAge is the oldest an event may be and still be processed.
const DefaultMaxEventAge = 10 * time.Second

// TimestampState classifies the origin-timestamp field of a payload.
type TimestampState int

const (
	// TimestampAbsent means the payload carried no timestamp field.
	TimestampAbsent TimestampState = iota
	// TimestampInvalid means a timestamp field was present but unparseable.
	TimestampInvalid
	// TimestampValid means a well-formed RFC 3339 timestamp was found.
	TimestampValid
)

// Guard is a pure time-window filter over event payloads. It keeps no state
// across invocations, so it filters stale deliveries but cannot detect
// duplicates inside the window.
type Guard struct {
	maxAge time.Duration
	logger *slog.Logger
}

// New creates a Guard with the given maximum event age. A zero or negative
// maxAge falls back to DefaultMaxEventAge.
func New(maxAge time.Duration, logger *slog.Logger) *Guard {
	if maxAge <= 0 {
		maxAge = DefaultMaxEventAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{maxAge: maxAge, logger: logger}
}

// OriginTimestamp extracts the origin timestamp embedded in a JSON payload.
// The returned state distinguishes absent, invalid and valid timestamps so
// callers can map each case deterministically.
func OriginTimestamp(payload []byte) (time.Time, TimestampState) {
	var body struct {
		Timestamp *string `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Timestamp == nil {
		return time.Time{}, TimestampAbsent
	}

	ts, err := time.Parse(time.RFC3339, *body.Timestamp)
	if err != nil {
		return time.Time{}, TimestampInvalid
	}
	return ts, TimestampValid
}

// Age returns the elapsed time between the event's origin timestamp and now,
// both normalized to UTC. Events with no usable timestamp are treated as
// originating now (age zero), failing open toward processing.
func (g *Guard) Age(payload []byte, now time.Time) time.Duration {
	origin, state := OriginTimestamp(payload)
	if state != TimestampValid {
		return 0
	}
	return now.UTC().Sub(origin.UTC())
}

// ShouldProcess reports whether the event should be processed given its age.
// Events older than the configured maximum are dropped; an age exactly at
// the maximum still processes. Negative age (clock skew, future timestamp)
// is treated as fresh.
func (g *Guard) ShouldProcess(payload []byte, now time.Time) bool {
	age := g.Age(payload, now)
	if age > g.maxAge {
		g.logger.Info("dropping stale event",
			slog.Int64("age_ms", age.Milliseconds()),
			slog.Int64("max_age_ms", g.maxAge.Milliseconds()),
			slog.String("payload", string(payload)),
		)
		return false
	}

	g.logger.Info("processing event",
		slog.Int64("age_ms", age.Milliseconds()),
		slog.String("payload", string(payload)),
	)
	return true
}
