package types

import "context"

// Slot identifies which of the two presented images a comparison result
// refers to, independent of original candidate identity. The ranking
// engine maps Slot back to candidate id after presentation-randomised
// ensemble voting (spec §4.D).
type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

// Other returns the opposite slot.
func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

// Ranks holds the per-factor ordinal ranks (1 or 2) the comparator
// assigns to one of the two presented images, plus the derived
// combined rank (lower is better).
type Ranks struct {
	Alignment int
	Aesthetics int
	Combined  float64
}

// VLMParams parametrises one pairwise comparison call.
type VLMParams struct {
	Temperature float64
}

// VLMResult is the uniform return shape for one pairwise comparison
// call (spec §4.A). RanksA/RanksB are keyed by presentation slot, not
// by candidate identity — the caller is responsible for un-swapping
// when it randomised presentation order.
type VLMResult struct {
	Winner           Slot
	Reason           string
	RanksA           Ranks
	RanksB           Ranks
	WinnerStrengths  []string
	LoserWeaknesses  []string
}

// VLM is the pairwise-comparator contract (spec §4.A). Ties on an
// individual factor are permitted (both ranks = 1); Winner still picks
// one slot, driven by the combined rank.
type VLM interface {
	ComparePair(ctx context.Context, imageA, imageB ImageRef, referencePrompt string, params VLMParams) (VLMResult, error)

	Name() string
	Description() string
}
