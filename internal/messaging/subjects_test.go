package messaging

import (
	"strings"
	"testing"
)

func TestSubjectNaming(t *testing.T) {
	// Subjects follow {domain}.{resource}.{action}.
	for _, subject := range []string{SubjectObjectsCreated, SubjectOutcomesRecorded} {
		parts := strings.Split(subject, ".")
		if len(parts) != 3 {
			t.Errorf("subject %q has %d segments, want 3", subject, len(parts))
		}
		for _, p := range parts {
			if p == "" {
				t.Errorf("subject %q has an empty segment", subject)
			}
		}
	}
}

func TestStreamAndConsumerNames(t *testing.T) {
	if StreamStorageEvents == "" || ConsumerModerator == "" {
		t.Error("stream and consumer names must be non-empty")
	}
	if strings.Contains(ConsumerModerator, ".") {
		t.Errorf("consumer name %q must not contain subject separators", ConsumerModerator)
	}
}
