package ranking_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/kestrel-labs/imagerefine/pkg/comparison"
	"github.com/kestrel-labs/imagerefine/pkg/ranking"
	"github.com/kestrel-labs/imagerefine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedVLM always declares the first-presented image (slot A) the
// winner and counts its own calls.
type scriptedVLM struct {
	calls int64
}

func (s *scriptedVLM) ComparePair(context.Context, types.ImageRef, types.ImageRef, string, types.VLMParams) (types.VLMResult, error) {
	atomic.AddInt64(&s.calls, 1)
	return types.VLMResult{
		Winner: types.SlotA,
		RanksA: types.Ranks{Alignment: 1, Aesthetics: 1},
		RanksB: types.Ranks{Alignment: 2, Aesthetics: 2},
	}, nil
}
func (s *scriptedVLM) Name() string        { return "test.scripted" }
func (s *scriptedVLM) Description() string { return "" }

// noSwapRand never swaps presentation order, so slot A always holds
// the first argument passed to ComparePair.
type noSwapRand struct{}

func (noSwapRand) Bool() bool { return false }

func TestTransitiveInferenceSavesACall(t *testing.T) {
	// Seed the graph with A>B and B>C directly (as if computed by a
	// prior iteration), so the engine's all-pairs pass only needs to
	// resolve (A,C) -- and must do so by inference, not a VLM call
	// (spec §8 scenario 2).
	graph := comparison.New()
	graph.Record("A", "B", "A", nil, nil)
	graph.Record("B", "C", "B", nil, nil)

	vlm := &scriptedVLM{}
	engine := ranking.New(vlm, ranking.Options{EnsembleSize: 1, Rand: noSwapRand{}})

	images := map[string]types.ImageRef{
		"A": {LocalPath: "a.png"},
		"B": {LocalPath: "b.png"},
		"C": {LocalPath: "c.png"},
	}

	result, err := engine.Rank(context.Background(), images, "a mountain", graph)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(0), atomic.LoadInt64(&vlm.calls))
}

func TestAllPairsRanksCompleteOrder(t *testing.T) {
	vlm := &scriptedVLM{}
	engine := ranking.New(vlm, ranking.Options{EnsembleSize: 1, Rand: noSwapRand{}})

	images := map[string]types.ImageRef{
		"A": {LocalPath: "a.png"},
		"B": {LocalPath: "b.png"},
		"C": {LocalPath: "c.png"},
	}

	result, err := engine.Rank(context.Background(), images, "a mountain", nil)
	require.NoError(t, err)
	assert.Len(t, result.Rankings, 3)
	// Every pair present: slot A (lexicographically first of the
	// pair) always wins against a VLM that always picks slot A.
	assert.Equal(t, "A", result.Rankings[0].CandidateID)
}

func TestTournamentStrategyForLargeSets(t *testing.T) {
	vlm := &scriptedVLM{}
	engine := ranking.New(vlm, ranking.Options{EnsembleSize: 1, Rand: noSwapRand{}})

	images := make(map[string]types.ImageRef, 10)
	for i := 0; i < 10; i++ {
		images[fmt.Sprintf("c%d", i)] = types.ImageRef{LocalPath: fmt.Sprintf("c%d.png", i)}
	}

	result, err := engine.Rank(context.Background(), images, "a mountain", nil)
	require.NoError(t, err)
	assert.Len(t, result.Rankings, 10)
	// c0 is lexicographically first among "c0".."c9"? No -- Go's
	// string sort is lexicographic, so c0 < c1 < ... < c9 holds here
	// since all have equal length. Slot A always wins, and the
	// all-ids-sorted order feeds the tournament's initial remaining
	// slice, so c0 should win every round it enters.
	assert.Equal(t, "c0", result.Rankings[0].CandidateID)
}
