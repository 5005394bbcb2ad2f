package ranking

import (
	"context"
	"math"

	"github.com/kestrel-labs/imagerefine/pkg/types"
	"golang.org/x/sync/errgroup"
)

// vote is the outcome of compareWithEnsemble: the majority winner,
// the per-candidate averaged-then-recombined ranks, aggregated
// feedback, and the ensemble's confidence.
type vote struct {
	winner      string
	ranksA      types.Ranks
	ranksB      types.Ranks
	strengthsA  []string
	weaknessesA []string
	strengthsB  []string
	weaknessesB []string
	confidence  float64
}

// slotToCandidate maps a presentation slot back to the original
// candidate id, undoing the per-trial swap decision.
func slotToCandidate(slot types.Slot, swapped bool, a, b string) string {
	if !swapped {
		if slot == types.SlotA {
			return a
		}
		return b
	}
	if slot == types.SlotA {
		return b
	}
	return a
}

// compareWithEnsemble runs k presentation-randomised VLM comparisons in
// parallel and recombines them (spec §4.D "Ensemble voting"). k calls
// are dispatched concurrently via errgroup, same pattern as the
// teacher's attackengine branch fan-out.
func (e *Engine) compareWithEnsemble(ctx context.Context, a, b string, imgA, imgB types.ImageRef, referencePrompt string) (vote, error) {
	k := e.opts.EnsembleSize

	type trial struct {
		swapped bool
		result  types.VLMResult
	}
	trials := make([]trial, k)
	swaps := make([]bool, k)
	for i := 0; i < k; i++ {
		swaps[i] = e.opts.Rand.Bool()
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < k; i++ {
		i := i
		g.Go(func() error {
			first, second := imgA, imgB
			if swaps[i] {
				first, second = imgB, imgA
			}
			res, err := e.vlm.ComparePair(gctx, first, second, referencePrompt, types.VLMParams{})
			if err != nil {
				return err
			}
			trials[i] = trial{swapped: swaps[i], result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return vote{}, err
	}

	var votesA, votesB int
	var sumAlignA, sumAesA, sumAlignB, sumAesB float64
	var nA, nB int
	var strengthsA, weaknessesA, strengthsB, weaknessesB []string

	for _, t := range trials {
		winnerID := slotToCandidate(t.result.Winner, t.swapped, a, b)

		ranksForA, ranksForB := t.result.RanksA, t.result.RanksB
		if t.swapped {
			ranksForA, ranksForB = t.result.RanksB, t.result.RanksA
		}
		sumAlignA += float64(ranksForA.Alignment)
		sumAesA += float64(ranksForA.Aesthetics)
		nA++
		sumAlignB += float64(ranksForB.Alignment)
		sumAesB += float64(ranksForB.Aesthetics)
		nB++

		if winnerID == a {
			votesA++
			strengthsA = dedupAppend(strengthsA, t.result.WinnerStrengths)
			weaknessesB = dedupAppend(weaknessesB, t.result.LoserWeaknesses)
		} else {
			votesB++
			strengthsB = dedupAppend(strengthsB, t.result.WinnerStrengths)
			weaknessesA = dedupAppend(weaknessesA, t.result.LoserWeaknesses)
		}
	}

	avgAlignA, avgAesA := sumAlignA/float64(nA), sumAesA/float64(nA)
	avgAlignB, avgAesB := sumAlignB/float64(nB), sumAesB/float64(nB)

	alpha := e.opts.Alpha
	combinedA := alpha*avgAlignA + (1-alpha)*avgAesA
	combinedB := alpha*avgAlignB + (1-alpha)*avgAesB

	ranksA := types.Ranks{Alignment: round(avgAlignA), Aesthetics: round(avgAesA), Combined: combinedA}
	ranksB := types.Ranks{Alignment: round(avgAlignB), Aesthetics: round(avgAesB), Combined: combinedB}

	winner := a
	confidence := 0.5
	switch {
	case votesA > votesB:
		winner = a
		confidence = float64(votesA) / float64(k)
	case votesB > votesA:
		winner = b
		confidence = float64(votesB) / float64(k)
	}

	return vote{
		winner:      winner,
		ranksA:      ranksA,
		ranksB:      ranksB,
		strengthsA:  strengthsA,
		weaknessesA: weaknessesA,
		strengthsB:  strengthsB,
		weaknessesB: weaknessesB,
		confidence:  confidence,
	}, nil
}

func round(f float64) int {
	return int(math.Round(f))
}
