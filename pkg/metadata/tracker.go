// Package metadata owns the session JSON document and its satellite
// files (rankings, tokens), serialising every write through a
// single-lane queue so concurrent candidate workers cannot interleave
// writes to the same file (spec §4.E). Grounded on the teacher's
// pkg/results JSON writers for document shape and on pkg/registry's
// mutex discipline for the concurrency-safety story; the queue itself
// follows the same one-goroutine-consumes-a-channel shape as
// pkg/ratelimit.Limiter's single-owner token bucket.
package metadata

import (
	"fmt"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/comparison"
	"github.com/kestrel-labs/imagerefine/pkg/session"
	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// job is one unit of serialised work: mutate the in-memory document
// and/or write a file, reporting the outcome back to the caller.
type job struct {
	fn   func() error
	done chan error
}

// Tracker is the session metadata tracker (spec §4.E). It owns one
// Session document in memory and mirrors every mutation to disk before
// returning, so a crash mid-iteration leaves a recoverable record.
type Tracker struct {
	paths    session.Paths
	doc      *session.Session
	rankings *RankingsDocument

	queue chan job
	done  chan struct{}
}

// New builds a Tracker over an in-memory session document that has not
// yet been written to disk. Call Initialize before recording anything.
func New(paths session.Paths, doc *session.Session) *Tracker {
	t := &Tracker{
		paths:    paths,
		doc:      doc,
		rankings: newRankingsDocument(doc.SessionID),
		queue:    make(chan job),
		done:     make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer close(t.done)
	for j := range t.queue {
		j.done <- j.fn()
	}
}

// Close stops the write-queue goroutine. Call after the session
// reaches a terminal state; further calls to Tracker methods after
// Close panic, matching the teacher's fail-fast posture on misuse of a
// torn-down resource.
func (t *Tracker) Close() {
	close(t.queue)
	<-t.done
}

// submit enqueues fn on the single write lane and blocks until it has
// run, so callers observe "persisted to disk immediately" semantics.
func (t *Tracker) submit(fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	t.queue <- j
	return <-j.done
}

// Initialize creates the session directory and writes the skeleton
// document (spec §4.E).
func (t *Tracker) Initialize() error {
	return t.submit(func() error {
		if err := ensureDir(t.paths.Dir()); err != nil {
			return apperrors.Wrap(apperrors.Fatal, "create session directory", err)
		}
		return writeJSONAtomic(t.paths.Metadata(), t.doc)
	})
}

// RecordAttempt appends a candidate with status="attempted" before any
// risky work and persists immediately (spec §4.E, §3 Lifecycle).
func (t *Tracker) RecordAttempt(iteration int, candidateID string, parentID *string, whatPrompt, howPrompt string, dimension types.Dimension, critique *types.Critique) error {
	return t.submit(func() error {
		it := t.ensureIteration(iteration, dimension)
		it.Candidates = append(it.Candidates, &session.Candidate{
			CandidateID: candidateID,
			ParentID:    parentID,
			WhatPrompt:  whatPrompt,
			HowPrompt:   howPrompt,
			Critique:    critique,
			Status:      session.CandidateAttempted,
		})
		return writeJSONAtomic(t.paths.Metadata(), t.doc)
	})
}

// AttemptResults is the payload for UpdateAttemptWithResults.
type AttemptResults struct {
	Combined       string
	NegativePrompt *string
	Image          *session.Image
	Evaluation     *session.Evaluation
	TotalScore     *float64
}

// UpdateAttemptWithResults transitions a candidate to status=completed
// and fills in its generation results (spec §4.E). survived may be nil
// when the selection phase has not run yet.
func (t *Tracker) UpdateAttemptWithResults(iteration int, candidateID string, results AttemptResults, survived *bool) error {
	return t.submit(func() error {
		c, ok := t.findCandidate(iteration, candidateID)
		if !ok {
			return fmt.Errorf("metadata: no candidate %s in iteration %d", candidateID, iteration)
		}
		combined := results.Combined
		c.Combined = &combined
		c.NegativePrompt = results.NegativePrompt
		c.Image = results.Image
		c.Evaluation = results.Evaluation
		c.TotalScore = results.TotalScore
		c.Status = session.CandidateCompleted
		if survived != nil {
			c.Survived = survived
		}
		return writeJSONAtomic(t.paths.Metadata(), t.doc)
	})
}

// MarkCandidateFailed transitions a candidate to status=failed,
// excluding it from ranking (spec §4.H failure semantics).
func (t *Tracker) MarkCandidateFailed(iteration int, candidateID string) error {
	return t.submit(func() error {
		c, ok := t.findCandidate(iteration, candidateID)
		if !ok {
			return fmt.Errorf("metadata: no candidate %s in iteration %d", candidateID, iteration)
		}
		c.Status = session.CandidateFailed
		return writeJSONAtomic(t.paths.Metadata(), t.doc)
	})
}

// EnrichCandidateWithRankingData attaches ranking-engine output to a
// completed candidate and, in rank mode, recomputes the iteration's
// bestCandidateId using the lowest combined rank (spec §4.E).
func (t *Tracker) EnrichCandidateWithRankingData(iteration int, candidateID string, comparisons []session.ComparisonRecord, aggregated *session.AggregatedFeedback, critique *types.Critique) error {
	return t.submit(func() error {
		it, ok := t.findIteration(iteration)
		if !ok {
			return fmt.Errorf("metadata: no iteration %d", iteration)
		}
		c, ok := findCandidateIn(it, candidateID)
		if !ok {
			return fmt.Errorf("metadata: no candidate %s in iteration %d", candidateID, iteration)
		}
		c.Comparisons = comparisons
		c.AggregatedFeedback = aggregated
		if critique != nil {
			c.Critique = critique
		}

		if t.doc.Config.RankingMode == session.RankingModeRank {
			recomputeBestByLowestCombined(it)
		}
		return writeJSONAtomic(t.paths.Metadata(), t.doc)
	})
}

// RecordIterationRanking writes one iteration's ranking entries to the
// rankings satellite file.
func (t *Tracker) RecordIterationRanking(iteration int, entries []comparison.RankEntry) error {
	return t.submit(func() error {
		t.rankings.Iterations[iteration] = entries
		return writeJSONAtomic(t.paths.Rankings(), t.rankings)
	})
}

// RecordFinalGlobalRanking writes the session's final global ranking
// (spec §4.E, §3).
func (t *Tracker) RecordFinalGlobalRanking(entries []comparison.RankEntry) error {
	return t.submit(func() error {
		t.rankings.FinalGlobalRanking = entries
		return writeJSONAtomic(t.paths.Rankings(), t.rankings)
	})
}

// MarkFinalWinner sets the session's winner and computes lineage by
// walking parentId backwards from it (spec §4.E).
func (t *Tracker) MarkFinalWinner(iteration int, candidateID string, totalScore float64) error {
	return t.submit(func() error {
		t.doc.Winner = &session.Winner{Iteration: iteration, CandidateID: candidateID, TotalScore: totalScore}
		t.doc.Lineage = computeLineage(t.doc, iteration, candidateID)
		t.doc.Status = session.StatusCompleted
		return writeJSONAtomic(t.paths.Metadata(), t.doc)
	})
}

// Complete marks the session completed with no winner, for the I=0
// boundary case (spec §8: "session completes immediately with no
// iterations, no final winner").
func (t *Tracker) Complete() error {
	return t.submit(func() error {
		t.doc.Status = session.StatusCompleted
		return writeJSONAtomic(t.paths.Metadata(), t.doc)
	})
}

// MarkFailed marks the whole session failed with a structured reason
// (spec §7 propagation policy: "user-visible failure is a session with
// status=failed and a structured error object").
func (t *Tracker) MarkFailed(reason string) error {
	return t.submit(func() error {
		t.doc.Status = session.StatusFailed
		t.doc.Error = reason
		return writeJSONAtomic(t.paths.Metadata(), t.doc)
	})
}

// PersistTokens dumps a session cost summary to tokens.json.
func (t *Tracker) PersistTokens(stats TokenStats) error {
	return t.submit(func() error {
		return writeJSONAtomic(t.paths.Tokens(), stats)
	})
}

// Snapshot returns a pointer to the live in-memory document. Callers
// must treat it as read-only; the tracker is the sole mutator.
func (t *Tracker) Snapshot() *session.Session {
	return t.doc
}

func (t *Tracker) ensureIteration(number int, dimension types.Dimension) *session.Iteration {
	if it, ok := t.findIteration(number); ok {
		return it
	}
	it := &session.Iteration{Number: number, Dimension: dimension, Candidates: []*session.Candidate{}}
	t.doc.Iterations = append(t.doc.Iterations, it)
	return it
}

func (t *Tracker) findIteration(number int) (*session.Iteration, bool) {
	return t.doc.FindIteration(number)
}

func (t *Tracker) findCandidate(iteration int, candidateID string) (*session.Candidate, bool) {
	return t.doc.FindCandidate(iteration, candidateID)
}

func findCandidateIn(it *session.Iteration, candidateID string) (*session.Candidate, bool) {
	for _, c := range it.Candidates {
		if c.CandidateID == candidateID {
			return c, true
		}
	}
	return nil, false
}

// recomputeBestByLowestCombined sets the iteration's bestCandidateId
// and bestScore to whichever completed candidate has the lowest
// combined rank (spec §4.E: "lower is better" in rank mode).
func recomputeBestByLowestCombined(it *session.Iteration) {
	var best *session.Candidate
	var bestCombined float64
	for _, c := range it.Candidates {
		if c.Status != session.CandidateCompleted || len(c.Comparisons) == 0 {
			continue
		}
		combined := c.Comparisons[len(c.Comparisons)-1].Ranks.Combined
		if best == nil || combined < bestCombined {
			best = c
			bestCombined = combined
		}
	}
	if best != nil {
		it.BestCandidateID = best.CandidateID
		score := bestCombined
		it.BestScore = &score
	}
}

// computeLineage walks parentId backwards from the winner to iteration
// 0, then reverses the result so index 0 is the root (spec §3, §4.E).
func computeLineage(doc *session.Session, iteration int, candidateID string) []session.LineageEntry {
	var reversed []session.LineageEntry
	curIter, curID := iteration, candidateID
	for {
		reversed = append(reversed, session.LineageEntry{Iteration: curIter, CandidateID: curID})
		c, ok := doc.FindCandidate(curIter, curID)
		if !ok || c.ParentID == nil {
			break
		}
		curIter--
		curID = *c.ParentID
	}
	lineage := make([]session.LineageEntry, len(reversed))
	for i, e := range reversed {
		lineage[len(reversed)-1-i] = e
	}
	return lineage
}
