// Package decision maps classification results to a moderation verdict.
package decision

import "github.com/wardenworks/imgwarden/internal/vision"

// Verdict is the routing decision for a classified object.
type Verdict int

const (
	// Accept leaves the object untouched.
	Accept Verdict = iota
	// Remediate blurs the object and re-publishes it to quarantine.
	Remediate
)

func (v Verdict) String() string {
	if v == Remediate {
		return "remediate"
	}
	return "accept"
}

// Decide returns Remediate iff either category is at the maximum positive
// level. The threshold is deliberately fixed at VeryLikely rather than a
// lower cutoff so that merely "likely" content is never blurred.
func Decide(scores vision.SafeSearch) Verdict {
	if scores.Adult == vision.VeryLikely || scores.Violence == vision.VeryLikely {
		return Remediate
	}
	return Accept
}
