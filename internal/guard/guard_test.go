package guard

import (
	"fmt"
	"testing"
	"time"
)

var now = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func payloadAt(ts time.Time) []byte {
	return []byte(fmt.Sprintf(`{"bucket":"uploads","name":"cat.jpg","timestamp":%q}`, ts.Format(time.RFC3339)))
}

func TestShouldProcess_AgeWindow(t *testing.T) {
	g := New(10*time.Second, nil)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "fresh", age: 0, want: true},
		{name: "inside window", age: 5 * time.Second, want: true},
		{name: "exactly at threshold", age: 10 * time.Second, want: true},
		{name: "just past threshold", age: 10*time.Second + time.Millisecond, want: false},
		{name: "well past threshold", age: 15 * time.Second, want: false},
		{name: "negative age is fresh", age: -30 * time.Second, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := payloadAt(now.Add(-tt.age))
			if got := g.ShouldProcess(payload, now); got != tt.want {
				t.Errorf("ShouldProcess(age=%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestShouldProcess_TimezoneOffset(t *testing.T) {
	g := New(10*time.Second, nil)

	// Same instant expressed with a +02:00 offset must not look two hours old.
	offset := time.FixedZone("CEST", 2*60*60)
	payload := payloadAt(now.In(offset))

	if !g.ShouldProcess(payload, now) {
		t.Error("ShouldProcess() = false for an offset timestamp at the same instant")
	}
}

func TestShouldProcess_NoUsableTimestamp(t *testing.T) {
	g := New(10*time.Second, nil)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "no timestamp field", payload: []byte(`{"bucket":"uploads","name":"cat.jpg"}`)},
		{name: "malformed timestamp", payload: []byte(`{"timestamp":"yesterday-ish"}`)},
		{name: "not json", payload: []byte(`plain text`)},
		{name: "empty payload", payload: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !g.ShouldProcess(tt.payload, now) {
				t.Error("ShouldProcess() = false, want true (fail open)")
			}
		})
	}
}

func TestOriginTimestamp(t *testing.T) {
	ts, state := OriginTimestamp([]byte(`{"timestamp":"2026-08-29T10:00:00+02:00"}`))
	if state != TimestampValid {
		t.Fatalf("state = %v, want TimestampValid", state)
	}
	want := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	if !ts.UTC().Equal(want) {
		t.Errorf("timestamp = %v, want %v", ts.UTC(), want)
	}

	if _, state := OriginTimestamp([]byte(`{"bucket":"b"}`)); state != TimestampAbsent {
		t.Errorf("state = %v, want TimestampAbsent", state)
	}
	if _, state := OriginTimestamp([]byte(`{"timestamp":"nope"}`)); state != TimestampInvalid {
		t.Errorf("state = %v, want TimestampInvalid", state)
	}
}

func TestNew_DefaultMaxAge(t *testing.T) {
	g := New(0, nil)
	if g.maxAge != DefaultMaxEventAge {
		t.Errorf("maxAge = %v, want %v", g.maxAge, DefaultMaxEventAge)
	}
}
