package types

import "context"

// ImageRef identifies a generated image for a Vision or VLM call. A
// provider needs at least one of the two fields populated.
type ImageRef struct {
	URL       string
	LocalPath string
}

// VisionResult is the uniform return shape for an absolute-evaluation
// Vision call (spec §4.A, deprecated in favour of ranking mode).
type VisionResult struct {
	Alignment float64 // [0,100]
	Aesthetic float64 // [0,10]
	Analysis  string
	Strengths []string
	Weaknesses []string
	Meta      map[string]any
}

// Vision is the absolute-scoring evaluator contract, retained for
// backward compatibility with the legacy scoring code path (spec §9).
// New code should prefer VLM pairwise comparison.
type Vision interface {
	Analyze(ctx context.Context, image ImageRef, referencePrompt string) (VisionResult, error)

	Name() string
	Description() string
}
