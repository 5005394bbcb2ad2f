// Package moderation wraps an LLM or image operation so a content-
// policy refusal is met with bounded, rewriting retry instead of an
// immediate failure (spec §4.G). Banned-vocabulary scanning is
// grounded on internal/ahocorasick, the teacher's multi-pattern
// scanner used elsewhere in the pack for fast literal matching; the
// rewrite-similarity index is a plain TF-cosine vector space, grounded
// on the teacher's preference for explicit, dependency-light numeric
// code over pulling in an NLP library for a narrow need.
package moderation

import (
	"regexp"
	"strings"
)

// refusalPattern matches the provider-reported refusal shapes named in
// spec §4.G: an HTTP 400 response (or an unknown status, passed as 0)
// whose message names a content policy violation or says "inappropriate".
var refusalPattern = regexp.MustCompile(`(?i)content[\s_-]?policy[\s_-]?violation|inappropriate`)

// IsContentPolicyRefusal reports whether message looks like a
// provider's content-policy refusal (spec §4.G detection rule).
func IsContentPolicyRefusal(statusCode int, message string) bool {
	if statusCode != 0 && statusCode != 400 {
		return false
	}
	return refusalPattern.MatchString(strings.ToLower(message))
}
