package moderation

import "sync"

// rewriteRecord is one past successful rewrite, kept in vectorized form
// so later lookups avoid re-tokenizing the history on every call.
type rewriteRecord struct {
	Original  string
	Rewritten string
	vector    tfVector
}

// FailedRewrite is one exhausted rewrite attempt, kept for diagnostics
// (spec §4.G: "failed rewrites are also stored for diagnostics, capped
// at a configurable history length").
type FailedRewrite struct {
	Original string
	Reason   string
}

// ViolationTracker remembers past content-policy rewrites, successful
// and failed, so new rewrites can be biased toward known-good
// phrasings (spec §4.G).
type ViolationTracker struct {
	mu         sync.Mutex
	successful []rewriteRecord
	failed     []FailedRewrite
	maxHistory int
}

// NewViolationTracker builds a tracker capping each history list at
// maxHistory entries (oldest evicted first). maxHistory <= 0 means
// unbounded.
func NewViolationTracker(maxHistory int) *ViolationTracker {
	return &ViolationTracker{maxHistory: maxHistory}
}

// RecordSuccess appends a successful rewrite to the history.
func (t *ViolationTracker) RecordSuccess(original, rewritten string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successful = append(t.successful, rewriteRecord{
		Original: original, Rewritten: rewritten, vector: vectorize(original),
	})
	if t.maxHistory > 0 && len(t.successful) > t.maxHistory {
		t.successful = t.successful[len(t.successful)-t.maxHistory:]
	}
}

// RecordFailure appends an exhausted rewrite to the diagnostic history.
func (t *ViolationTracker) RecordFailure(original, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = append(t.failed, FailedRewrite{Original: original, Reason: reason})
	if t.maxHistory > 0 && len(t.failed) > t.maxHistory {
		t.failed = t.failed[len(t.failed)-t.maxHistory:]
	}
}

// NearestSuccessful returns the recorded successful rewrite whose
// original prompt is most similar to prompt, and its cosine
// similarity. ok is false if the history is empty.
func (t *ViolationTracker) NearestSuccessful(prompt string) (rewriteRecord, float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.successful) == 0 {
		return rewriteRecord{}, 0, false
	}

	target := vectorize(prompt)
	var best rewriteRecord
	var bestSim float64 = -1
	for _, rec := range t.successful {
		sim := cosineSimilarity(target, rec.vector)
		if sim > bestSim {
			best, bestSim = rec, sim
		}
	}
	return best, bestSim, true
}

// FailedHistory returns a copy of the failed-rewrite diagnostic log.
func (t *ViolationTracker) FailedHistory() []FailedRewrite {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]FailedRewrite, len(t.failed))
	copy(out, t.failed)
	return out
}
