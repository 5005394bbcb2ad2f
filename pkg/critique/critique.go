// Package critique converts ranking-engine output into actionable,
// dimension-aware structured feedback (spec §4.F), grounded on
// internal/detectors/judge's rating-parse-with-fallback pattern:
// prefer an upstream LLM call, fall back to a deterministic rule-based
// path that degrades gracefully rather than failing the candidate.
package critique

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/ranking"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// Input is what the generator needs to produce one critique: the
// dimension being refined next, the aggregated feedback for this
// candidate from the ranking engine (or a legacy absolute evaluation),
// and its position in the iteration's ranking.
type Input struct {
	Dimension  types.Dimension
	Feedback   ranking.Feedback
	Rank       int // 1 = best
	TotalRanked int
	// CombinedScore/AbsoluteScore: exactly one is meaningful,
	// matching the session's RankingMode (spec §9).
	CombinedScore float64
	AbsoluteScore *float64 // 0-100 scale, nil when rank mode is authoritative
}

// Output is the generator's uniform return shape (spec §4.F): three
// non-empty strings plus dimension and free-form metadata.
type Output struct {
	Critique       string
	Recommendation string
	Reason         string
	Dimension      types.Dimension
	Metadata       map[string]any
}

// Generator produces one critique per survivor per iteration. LLM may
// be nil, in which case Generate always uses the rule-based fallback.
type Generator struct {
	LLM types.LLM
}

// New builds a Generator. A nil llm is valid: Generate then always
// uses the deterministic fallback.
func New(llm types.LLM) *Generator {
	return &Generator{LLM: llm}
}

// Generate produces a critique for one candidate. It preserves the
// candidate's recorded strengths (spec §4.F: "must preserve
// strengths") by instructing the LLM not to dilute them and, in the
// fallback path, by echoing them back verbatim in Metadata rather than
// silently dropping them.
func (g *Generator) Generate(ctx context.Context, in Input) (Output, error) {
	if g.LLM == nil {
		return g.fallback(in), nil
	}

	prompt := buildCritiquePrompt(in)
	result, err := g.LLM.Refine(ctx, prompt, types.RefineParams{
		Dimension: in.Dimension,
		Critique: types.Critique{
			Critique: "generate-critique",
		},
	})
	if err != nil {
		return g.fallback(in), nil
	}

	out, parseErr := parseCritique(result.Text, in.Dimension)
	if parseErr != nil {
		return g.fallback(in), nil
	}
	return out, nil
}

func buildCritiquePrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dimension: %s\n", in.Dimension)
	fmt.Fprintf(&b, "Rank: %d of %d\n", in.Rank, in.TotalRanked)
	if len(in.Feedback.Strengths) > 0 {
		fmt.Fprintf(&b, "Preserve these strengths: %s\n", strings.Join(in.Feedback.Strengths, "; "))
	}
	if len(in.Feedback.Weaknesses) > 0 {
		fmt.Fprintf(&b, "Address these weaknesses: %s\n", strings.Join(in.Feedback.Weaknesses, "; "))
	}
	if in.Dimension == types.DimensionWhat {
		b.WriteString("Focus only on content: subjects, objects, setting.\n")
	} else {
		b.WriteString("Focus only on style: lighting, composition, palette.\n")
	}
	return b.String()
}

// parseCritique expects the LLM to emit three pipe-separated sections;
// this is intentionally permissive line-splitting, not a strict
// schema, since the fallback path already covers malformed output.
func parseCritique(text string, dim types.Dimension) (Output, error) {
	parts := strings.SplitN(text, "|", 3)
	if len(parts) != 3 {
		return Output{}, apperrors.New(apperrors.ParseFailure, "critique response missing three pipe-separated sections")
	}
	critique := strings.TrimSpace(parts[0])
	recommendation := strings.TrimSpace(parts[1])
	reason := strings.TrimSpace(parts[2])
	if critique == "" || recommendation == "" || reason == "" {
		return Output{}, apperrors.New(apperrors.ParseFailure, "critique response has an empty section")
	}
	return Output{
		Critique:       critique,
		Recommendation: recommendation,
		Reason:         reason,
		Dimension:      dim,
		Metadata:       map[string]any{"source": "llm"},
	}, nil
}
