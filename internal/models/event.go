// Package models defines the event and outcome types shared across the
// moderation pipeline.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedReference indicates an event that does not identify an object.
var ErrMalformedReference = errors.New("malformed object reference")

// ObjectCreatedEvent is the storage-change descriptor delivered when an
// object lands in a watched bucket. Timestamp carries the origin time of the
// change as set by the notifier; it is optional and may be absent on older
// notifier versions.
type ObjectCreatedEvent struct {
	Bucket         string `json:"bucket"`
	Name           string `json:"name"`
	ContentType    string `json:"contentType,omitempty"`
	Size           int64  `json:"size,omitempty"`
	TimeCreated    string `json:"timeCreated,omitempty"`
	Metageneration string `json:"metageneration,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// Ref returns the object reference named by the event.
func (e *ObjectCreatedEvent) Ref() ObjectReference {
	return ObjectReference{Bucket: e.Bucket, Key: e.Name}
}

// ObjectReference identifies a stored object by bucket and key.
type ObjectReference struct {
	Bucket string
	Key    string
}

// Validate checks that both components of the reference are present.
func (r ObjectReference) Validate() error {
	if r.Bucket == "" || r.Key == "" {
		return ErrMalformedReference
	}
	return nil
}

// URI returns the canonical object URI used when naming the object to
// external services.
func (r ObjectReference) URI() string {
	return fmt.Sprintf("blob://%s/%s", r.Bucket, r.Key)
}

func (r ObjectReference) String() string {
	return r.URI()
}

// OutcomeStatus describes how a single invocation ended.
type OutcomeStatus string

const (
	// StatusDropped means the event was too old to process.
	StatusDropped OutcomeStatus = "dropped"
	// StatusAccepted means the object was classified safe; no action taken.
	StatusAccepted OutcomeStatus = "accepted"
	// StatusRemediated means the object was blurred and re-published.
	StatusRemediated OutcomeStatus = "remediated"
	// StatusFailed means classification or remediation failed.
	StatusFailed OutcomeStatus = "failed"
)

// Invocation is the record of one event delivery from receipt to outcome.
type Invocation struct {
	ID          string        `json:"id"`
	Bucket      string        `json:"bucket"`
	Key         string        `json:"key"`
	Status      OutcomeStatus `json:"status"`
	Cause       string        `json:"cause,omitempty"`
	AgeMS       int64         `json:"age_ms"`
	Adult       string        `json:"adult,omitempty"`
	Violence    string        `json:"violence,omitempty"`
	ReceivedAt  time.Time     `json:"received_at"`
	CompletedAt time.Time     `json:"completed_at"`
}
