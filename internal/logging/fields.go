package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService  = "service"
	FieldEventID  = "event_id"
	FieldBucket   = "bucket"
	FieldObject   = "object"
	FieldVerdict  = "verdict"
	FieldOutcome  = "outcome"
	FieldAgeMS    = "age_ms"
	FieldDuration = "duration_ms"
	FieldError    = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// EventID returns a slog attribute for the invocation's event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// Bucket returns a slog attribute for a bucket name.
func Bucket(name string) slog.Attr {
	return slog.String(FieldBucket, name)
}

// Object returns a slog attribute for an object key.
func Object(key string) slog.Attr {
	return slog.String(FieldObject, key)
}

// Verdict returns a slog attribute for a moderation verdict.
func Verdict(v string) slog.Attr {
	return slog.String(FieldVerdict, v)
}

// Outcome returns a slog attribute for an invocation outcome.
func Outcome(o string) slog.Attr {
	return slog.String(FieldOutcome, o)
}

// AgeMS returns a slog attribute for an event age in milliseconds.
func AgeMS(ms int64) slog.Attr {
	return slog.Int64(FieldAgeMS, ms)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
