package types

import "context"

// Critique is the structured feedback a refine() call consumes, produced
// by the critique generator (spec §4.F).
type Critique struct {
	Critique       string
	Recommendation string
	Reason         string
}

// ExpandParams parametrises a cold-start expansion of the user prompt
// along one dimension.
type ExpandParams struct {
	Dimension       Dimension
	Style           string
	Descriptiveness string
}

// RefineParams parametrises a warm-iteration refinement of a surviving
// candidate's prompt along one dimension.
type RefineParams struct {
	Dimension          Dimension
	Critique           Critique
	OriginalUserPrompt string
	Style              string
}

// CombineParams parametrises the merge of a WHAT and HOW prompt strand
// into one generation prompt.
type CombineParams struct {
	Style           string
	Descriptiveness string
}

// LLMResult is the uniform return shape for every LLM call. Meta carries
// provider-specific accounting (token usage, model id) that callers may
// inspect but must not depend on.
type LLMResult struct {
	Text string
	Meta map[string]any
}

// LLM is the uniform contract over text-generation providers (spec
// §4.A). Implementations must return a non-empty, whitespace-trimmed
// Text on success, and must internally raise the effective output
// token budget for variants that expose a reasoning budget, so that a
// full response still fits after internal reasoning tokens are spent.
type LLM interface {
	Expand(ctx context.Context, prompt string, params ExpandParams) (LLMResult, error)
	Refine(ctx context.Context, prompt string, params RefineParams) (LLMResult, error)
	Combine(ctx context.Context, whatPrompt, howPrompt string, params CombineParams) (LLMResult, error)

	Name() string
	Description() string
}
