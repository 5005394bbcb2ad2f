// Package comparison implements the pairwise comparison graph (spec
// §4.C): a DAG of "beats" facts with eager transitive closure, used by
// the ranking engine to avoid redundant VLM calls. It is grounded on
// the teacher's internal/attackengine.CandidateSet/Prune style of
// explicit, allocation-light map and slice manipulation rather than a
// generic graph library — the teacher never reaches for one either.
package comparison

import (
	"sort"
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// Fact is one recorded comparison outcome, direct or inferred (spec
// §3, §4.C). Ranks are keyed by candidate id (A, B), already un-swapped
// from presentation order by the caller.
type Fact struct {
	IDA       string      `json:"idA"`
	IDB       string      `json:"idB"`
	Winner    string      `json:"winner"` // candidate id of idA or idB
	RanksA    *types.Ranks `json:"ranksA,omitempty"`
	RanksB    *types.Ranks `json:"ranksB,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Graph is the in-memory comparison structure, parameterised on an
// opaque candidate identifier (spec §4.C uses K; this repo always uses
// string candidate ids, so the generic is monomorphised to keep the
// JSON shape simple).
type Graph struct {
	beats             map[string]map[string]struct{}
	losesTo           map[string]map[string]struct{}
	directComparisons []Fact
	candidateScores   map[string][]types.Ranks
}

// New returns an empty comparison graph.
func New() *Graph {
	return &Graph{
		beats:           make(map[string]map[string]struct{}),
		losesTo:         make(map[string]map[string]struct{}),
		candidateScores: make(map[string][]types.Ranks),
	}
}

func (g *Graph) ensure(k string) {
	if _, ok := g.beats[k]; !ok {
		g.beats[k] = make(map[string]struct{})
	}
	if _, ok := g.losesTo[k]; !ok {
		g.losesTo[k] = make(map[string]struct{})
	}
}

func (g *Graph) addBeats(winner, loser string) {
	g.ensure(winner)
	g.ensure(loser)
	g.beats[winner][loser] = struct{}{}
	g.losesTo[loser][winner] = struct{}{}
}

// Record appends a direct comparison fact and propagates the transitive
// closure (spec §4.C): for every x that beats winner, x now beats
// loser; for every y that loser beats, winner now beats y. Both
// closures are mirrored into losesTo.
func (g *Graph) Record(a, b, winner string, ranksA, ranksB *types.Ranks) {
	loser := b
	if winner == b {
		loser = a
	}

	g.directComparisons = append(g.directComparisons, Fact{
		IDA: a, IDB: b, Winner: winner,
		RanksA: ranksA, RanksB: ranksB,
		Timestamp: time.Now(),
	})

	g.addBeats(winner, loser)

	if ranksA != nil {
		g.candidateScores[a] = append(g.candidateScores[a], *ranksA)
	}
	if ranksB != nil {
		g.candidateScores[b] = append(g.candidateScores[b], *ranksB)
	}

	// x beats winner => x beats loser
	for x := range g.losesTo[winner] {
		g.addBeats(x, loser)
	}
	// loser beats y => winner beats y
	for y := range g.beats[loser] {
		g.addBeats(winner, y)
	}
}

// Inference is the result of CanInfer: the winner of an as-yet-unasked
// pair, deduced from the closure, and whether it was inferred rather
// than directly recorded.
type Inference struct {
	Winner   string
	Inferred bool
}

// CanInfer looks up whether a beats b or b beats a in the precomputed
// closure, in O(1). ok is false if neither relation is known.
func (g *Graph) CanInfer(a, b string) (Inference, bool) {
	if beatsSet, ok := g.beats[a]; ok {
		if _, found := beatsSet[b]; found {
			return Inference{Winner: a, Inferred: true}, true
		}
	}
	if beatsSet, ok := g.beats[b]; ok {
		if _, found := beatsSet[a]; found {
			return Inference{Winner: b, Inferred: true}, true
		}
	}
	return Inference{}, false
}

// Wins returns the number of candidates k is known (directly or by
// inference) to beat.
func (g *Graph) Wins(k string) int {
	return len(g.beats[k])
}

// Losses returns the number of candidates known to beat k.
func (g *Graph) Losses(k string) int {
	return len(g.losesTo[k])
}

// AggregateStats averages per-factor ranks over all comparisons
// recorded for candidate k.
func (g *Graph) AggregateStats(k string) types.Ranks {
	scores := g.candidateScores[k]
	if len(scores) == 0 {
		return types.Ranks{}
	}
	var sumAlign, sumAes, sumCombined float64
	for _, r := range scores {
		sumAlign += float64(r.Alignment)
		sumAes += float64(r.Aesthetics)
		sumCombined += r.Combined
	}
	n := float64(len(scores))
	return types.Ranks{
		Alignment:  int(sumAlign / n),
		Aesthetics: int(sumAes / n),
		Combined:   sumCombined / n,
	}
}

// RankEntry is one row of a materialised ranking (spec §3's ranking
// record).
type RankEntry struct {
	CandidateID string
	Rank        int
	Wins        int
	Losses      int
}

// Rankings sorts keys by (descending wins, ascending losses) and
// assigns dense ranks starting at 1 (spec §4.C).
func (g *Graph) Rankings(keys []string) []RankEntry {
	entries := make([]RankEntry, len(keys))
	for i, k := range keys {
		entries[i] = RankEntry{
			CandidateID: k,
			Wins:        len(g.beats[k]),
			Losses:      len(g.losesTo[k]),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Losses < entries[j].Losses
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// ToJSON returns only the direct comparison facts (spec §4.C:
// "persist only directComparisons; rebuild closure on load").
func (g *Graph) ToJSON() []Fact {
	out := make([]Fact, len(g.directComparisons))
	copy(out, g.directComparisons)
	return out
}

// FromJSON rebuilds a graph by replaying direct facts through Record,
// so the closure is identical to one built live (spec §8 round-trip
// property).
func FromJSON(facts []Fact) *Graph {
	g := New()
	for _, f := range facts {
		g.Record(f.IDA, f.IDB, f.Winner, f.RanksA, f.RanksB)
	}
	return g
}
