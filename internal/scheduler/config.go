// Package scheduler drives the beam-search iteration loop (spec
// §4.H): cold-start expansion, warm-iteration refinement branching,
// bounded-fanout candidate generation, a rank/critique barrier per
// iteration, and final global-winner identification. Grounded on
// internal/attackengine's depth-loop-with-branching-and-pruning shape,
// retargeted from jailbreak-attempt scoring to image-candidate ranking.
package scheduler

import "github.com/kestrel-labs/imagerefine/pkg/types"

// Config holds parameters for one beam-search run (spec §3 Config,
// §4.H).
type Config struct {
	// BeamWidth is N, the number of candidates generated per iteration.
	BeamWidth int

	// Survivors is M, the number of top-ranked candidates that seed the
	// next iteration.
	Survivors int

	// MaxIterations is I. Zero means the session completes immediately
	// with no iterations and no final winner (spec §8 boundary).
	MaxIterations int

	// Alpha weights alignment vs. aesthetics in the combined rank.
	Alpha float64

	// EnsembleSize is k, parallel VLM votes per comparison.
	EnsembleSize int

	// MaxFanout bounds how many candidates generate concurrently within
	// one iteration (spec §5: "bounded parallel worker pool").
	MaxFanout int

	// Style and Descriptiveness seed the cold-start expansion calls.
	Style           string
	Descriptiveness string

	// ModerationMaxRetries records the content-moderation refiner's
	// rewrite bound. The engine does not read it: the bound in effect is
	// the one the refiner passed to New was built with (0 there means 3).
	ModerationMaxRetries int
}

// DefaultConfig returns sensible defaults (spec §4.H, §8 scenario 1).
func DefaultConfig() Config {
	return Config{
		BeamWidth:     4,
		Survivors:     2,
		MaxIterations: 6,
		Alpha:         0.7,
		EnsembleSize:  1,
		MaxFanout:     4,
	}
}

// DimensionForIteration implements the default alternation policy:
// even iterations refine WHAT, odd iterations refine HOW (spec §4.H
// step 1). Iteration 0 is always treated as a cold start by the
// scheduler regardless of this assignment; the dimension value is
// still authoritative metadata (spec §9 open question).
func DimensionForIteration(iteration int) types.Dimension {
	if iteration%2 == 0 {
		return types.DimensionWhat
	}
	return types.DimensionHow
}
