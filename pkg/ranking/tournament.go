package ranking

import (
	"context"
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/comparison"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// tournament ranks ids via tournament-with-transitivity (spec §4.D):
// each round walks a linear sequence of challengers against the
// current champion, preferring graph inference over a fresh VLM call,
// and the round's champion is appended to the final order before the
// next round runs over the rest.
func (e *Engine) tournament(
	ctx context.Context,
	ids []string,
	images map[string]types.ImageRef,
	referencePrompt string,
	graph *comparison.Graph,
	feedback map[string]Feedback,
	errs *[]error,
) ([]string, error) {
	remaining := append([]string(nil), ids...)
	ordered := make([]string, 0, len(ids))

	for len(remaining) > 1 {
		champion := remaining[0]
		challengerIdx := 1

		for ; challengerIdx < len(remaining); challengerIdx++ {
			challenger := remaining[challengerIdx]

			winner, err := e.resolvePair(ctx, champion, challenger, images, referencePrompt, graph, feedback)
			if err != nil {
				wrapped := apperrors.Wrap(apperrors.ComparisonFailure, "tournament round", err)
				*errs = append(*errs, wrapped)
				if !e.opts.GracefulDegradation {
					return nil, wrapped
				}
				continue
			}
			if winner == challenger {
				champion = challenger
			}
		}

		ordered = append(ordered, champion)
		remaining = removeFirst(remaining, champion)
	}
	if len(remaining) == 1 {
		ordered = append(ordered, remaining[0])
	}
	return ordered, nil
}

// resolvePair returns the winner of (a, b), consulting the comparison
// graph before calling the VLM (spec §4.D: "the engine first queries
// the graph for an inferred winner and only calls the VLM when
// inference fails").
func (e *Engine) resolvePair(
	ctx context.Context,
	a, b string,
	images map[string]types.ImageRef,
	referencePrompt string,
	graph *comparison.Graph,
	feedback map[string]Feedback,
) (string, error) {
	if inf, ok := graph.CanInfer(a, b); ok {
		e.reportProgress(a, b, false, 0)
		return inf.Winner, nil
	}

	start := time.Now()
	v, err := e.compareWithEnsemble(ctx, a, b, images[a], images[b], referencePrompt)
	e.reportProgress(a, b, true, time.Since(start))
	if err != nil {
		return "", err
	}
	graph.Record(a, b, v.winner, &v.ranksA, &v.ranksB)
	mergeFeedback(feedback, a, v.strengthsA, v.weaknessesA)
	mergeFeedback(feedback, b, v.strengthsB, v.weaknessesB)
	return v.winner, nil
}

// removeFirst returns a copy of ids with the first occurrence of id
// removed, preserving order of the rest.
func removeFirst(ids []string, id string) []string {
	out := make([]string, 0, len(ids)-1)
	removed := false
	for _, x := range ids {
		if !removed && x == id {
			removed = true
			continue
		}
		out = append(out, x)
	}
	return out
}
