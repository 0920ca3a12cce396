package vision

import (
	"errors"
	"fmt"
)

// Likelihood is the ordinal confidence scale used by the safety classifier.
// VeryLikely is the maximum "definite positive" level.
type Likelihood int

const (
	LikelihoodUnknown Likelihood = iota
	VeryUnlikely
	Unlikely
	Possible
	Likely
	VeryLikely
)

var likelihoodNames = map[Likelihood]string{
	LikelihoodUnknown: "UNKNOWN",
	VeryUnlikely:      "VERY_UNLIKELY",
	Unlikely:          "UNLIKELY",
	Possible:          "POSSIBLE",
	Likely:            "LIKELY",
	VeryLikely:        "VERY_LIKELY",
}

func (l Likelihood) String() string {
	if name, ok := likelihoodNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLikelihood converts the classifier's wire representation to a
// Likelihood. Unrecognized values map to LikelihoodUnknown.
func ParseLikelihood(s string) Likelihood {
	for l, name := range likelihoodNames {
		if name == s {
			return l
		}
	}
	return LikelihoodUnknown
}

// SafeSearch holds the per-category safety scores for one image.
type SafeSearch struct {
	Adult    Likelihood
	Violence Likelihood
}

// AnnotationError is a per-item error reported by the classifier for an
// otherwise successful call. It is terminal for the object: the caller logs
// it and does not remediate, but the delivery is considered handled.
type AnnotationError struct {
	Code    int
	Message string
}

func (e *AnnotationError) Error() string {
	return fmt.Sprintf("annotation error (code %d): %s", e.Code, e.Message)
}

// ErrNoAnnotations is returned when the classifier responds successfully but
// with zero results, so no safety decision can be made for the object.
var ErrNoAnnotations = errors.New("classifier returned no annotations")
