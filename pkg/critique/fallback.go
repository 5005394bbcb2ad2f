package critique

import (
	"fmt"
	"strings"

	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// band is the three-way severity the fallback path assigns, keyed to
// score thresholds (spec §4.F): >=80 minor, 60-79 moderate, <60 major.
type band string

const (
	bandMinor    band = "minor"
	bandModerate band = "moderate"
	bandMajor    band = "major"
)

func bandFor(score100 float64) band {
	switch {
	case score100 >= 80:
		return bandMinor
	case score100 >= 60:
		return bandModerate
	default:
		return bandMajor
	}
}

// equivalentScore100 derives a 0-100 equivalent from whichever signal
// is authoritative for this session (spec §9): the absolute score
// directly, or the candidate's rank position as a percentile.
func equivalentScore100(in Input) float64 {
	if in.AbsoluteScore != nil {
		return *in.AbsoluteScore
	}
	if in.TotalRanked <= 1 {
		return 100
	}
	percentile := float64(in.TotalRanked-in.Rank+1) / float64(in.TotalRanked)
	return percentile * 100
}

// fallback produces a graded, rule-based critique when no LLM is
// configured or the LLM path failed (spec §4.F). It never returns an
// error: this is the path everything else falls back to.
func (g *Generator) fallback(in Input) Output {
	score := equivalentScore100(in)
	b := bandFor(score)

	focus := "content (subjects, objects, setting)"
	if in.Dimension == types.DimensionHow {
		focus = "style (lighting, composition, palette)"
	}

	var critique, recommendation, reason string
	switch b {
	case bandMinor:
		critique = fmt.Sprintf("Ranked %d of %d; strong overall with room for small refinements in %s.", in.Rank, in.TotalRanked, focus)
		recommendation = "Apply a minor revision: keep the composition, adjust only small details."
		reason = "Score band is minor (>=80 equivalent); large changes risk losing what already works."
	case bandModerate:
		critique = fmt.Sprintf("Ranked %d of %d; competitive but several weaknesses in %s remain unaddressed.", in.Rank, in.TotalRanked, focus)
		recommendation = "Apply a moderate revision targeting the weaknesses noted below."
		reason = "Score band is moderate (60-79 equivalent); partial rework is warranted."
	default:
		critique = fmt.Sprintf("Ranked %d of %d; %s falls well short of the reference prompt.", in.Rank, in.TotalRanked, focus)
		recommendation = "Apply a major revision: reconsider the approach to " + focus + "."
		reason = "Score band is major (<60 equivalent); incremental edits are unlikely to be sufficient."
	}

	if len(in.Feedback.Weaknesses) > 0 {
		reason += " Weaknesses: " + strings.Join(in.Feedback.Weaknesses, "; ")
	}

	return Output{
		Critique:       critique,
		Recommendation: recommendation,
		Reason:         reason,
		Dimension:      in.Dimension,
		Metadata: map[string]any{
			"source":            "fallback",
			"band":              string(b),
			"preservedStrengths": in.Feedback.Strengths,
		},
	}
}
