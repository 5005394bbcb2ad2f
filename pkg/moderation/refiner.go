package moderation

import (
	"context"
	"fmt"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// Rewriter rewrites a prompt that triggered a content-policy refusal.
// guidance carries the scanner's findings and the nearest known-good
// phrasing, if any, so the implementation can bias its rewrite.
type Rewriter interface {
	Rewrite(ctx context.Context, prompt string, guidance string) (string, error)
}

// LLMRewriter adapts any types.LLM into a Rewriter by reusing its
// warm-iteration Refine call: the rewrite guidance is passed through
// the same Critique/Recommendation shape a ranking-driven refinement
// would use, so the sub-LLM sees a familiar instruction format (spec
// §4.G "dedicated sub-LLM", §4.A LLM.Refine).
type LLMRewriter struct {
	LLM types.LLM
}

func (r LLMRewriter) Rewrite(ctx context.Context, prompt, guidance string) (string, error) {
	result, err := r.LLM.Refine(ctx, prompt, types.RefineParams{
		Dimension:          types.DimensionWhat,
		OriginalUserPrompt: prompt,
		Critique: types.Critique{
			Critique:       "a content provider rejected this prompt on policy grounds",
			Recommendation: "preserve the core creative intent and subject, make minimal substitutions, soften graphic vocabulary",
			Reason:         guidance,
		},
	})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// Refiner bounds content-policy retry with rewriting (spec §4.G).
type Refiner struct {
	rewriter   Rewriter
	scanner    *PhraseScanner
	tracker    *ViolationTracker
	maxRetries int
}

// New builds a Refiner. maxRetries defaults to 3 (spec §4.G default).
func New(rewriter Rewriter, scanner *PhraseScanner, tracker *ViolationTracker, maxRetries int) *Refiner {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Refiner{rewriter: rewriter, scanner: scanner, tracker: tracker, maxRetries: maxRetries}
}

// Operation is the content-policy-sensitive work the refiner wraps: it
// takes the current prompt candidate and returns the provider error it
// encountered, if any.
type Operation func(ctx context.Context, prompt string) error

// Run executes op against prompt, and on a content-policy refusal,
// rewrites the prompt and retries up to maxRetries times before
// surfacing ContentPolicyExhausted (spec §4.G).
func (r *Refiner) Run(ctx context.Context, prompt string, statusCode int, message string, op Operation) (string, error) {
	current := prompt
	for attempt := 0; ; attempt++ {
		err := op(ctx, current)
		if err == nil {
			if attempt > 0 {
				r.tracker.RecordSuccess(prompt, current)
			}
			return current, nil
		}
		if !IsContentPolicyRefusal(statusCode, message) && !apperrors.Is(err, apperrors.ContentPolicy) {
			return current, err
		}
		if attempt >= r.maxRetries {
			r.tracker.RecordFailure(prompt, err.Error())
			return current, apperrors.Wrap(apperrors.ContentPolicyExhausted,
				fmt.Sprintf("exhausted %d rewrite attempts", r.maxRetries), err)
		}

		guidance := r.buildGuidance(current)
		rewritten, rerr := r.rewriter.Rewrite(ctx, current, guidance)
		if rerr != nil {
			r.tracker.RecordFailure(prompt, rerr.Error())
			return current, apperrors.Wrap(apperrors.ContentPolicyExhausted, "rewrite attempt failed", rerr)
		}
		current = rewritten
	}
}

// buildGuidance summarises the scanner's findings and the closest
// known-good rewrite, to bias the sub-LLM (spec §4.G).
func (r *Refiner) buildGuidance(prompt string) string {
	guidance := "no specific banned phrases detected; soften tone generally"
	if r.scanner != nil {
		if flagged := r.scanner.Flag(prompt); len(flagged) > 0 {
			guidance = fmt.Sprintf("flagged phrases: %v", flagged)
		}
	}
	if r.tracker != nil {
		if nearest, sim, ok := r.tracker.NearestSuccessful(prompt); ok && sim > 0.3 {
			guidance += fmt.Sprintf("; a similar past rewrite that succeeded: %q", nearest.Rewritten)
		}
	}
	return guidance
}
