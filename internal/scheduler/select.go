package scheduler

import (
	"sort"

	"github.com/kestrel-labs/imagerefine/pkg/comparison"
)

// selectSurvivors returns the candidateIds of the top-survivors entries
// in rankings (lowest rank number wins), generalising the teacher's
// score-sort-and-truncate Prune into a rank-sort-and-truncate (spec
// §4.H step 5: "the top-M by rank survive").
func selectSurvivors(rankings []comparison.RankEntry, survivors int) map[string]bool {
	sorted := make([]comparison.RankEntry, len(rankings))
	copy(sorted, rankings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	n := survivors
	if n > len(sorted) {
		n = len(sorted)
	}

	survived := make(map[string]bool, len(sorted))
	for i, entry := range sorted {
		survived[entry.CandidateID] = i < n
	}
	return survived
}

// branchCounts distributes beamWidth children across len(parents)
// survivors as evenly as possible, round-robin with a deterministic
// tie-break on parent order (spec §9 open question: "round-robin with
// a deterministic tie-break on candidateId" -- parents is already
// sorted by candidateId by the caller).
func branchCounts(beamWidth, numParents int) []int {
	if numParents == 0 {
		return nil
	}
	counts := make([]int, numParents)
	base := beamWidth / numParents
	remainder := beamWidth % numParents
	for i := range counts {
		counts[i] = base
		if i < remainder {
			counts[i]++
		}
	}
	return counts
}
