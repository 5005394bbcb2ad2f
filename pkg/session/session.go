// Package session defines the on-disk data model for one image-refinement
// search (spec §3): Session, Iteration, Candidate, comparison facts
// attached to a candidate, ranking records, and lineage. The metadata
// tracker (pkg/metadata) is the only component that mutates a Session;
// everything else treats it as a value passed by pointer for reading.
package session

import (
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/types"
)

// Status is the overall lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// CandidateStatus tracks a candidate through its state machine (spec
// §4.H): attempted -> completed -> (survived=true|false), with an
// orthogonal critique-attached substate, or failed on exhaustion.
type CandidateStatus string

const (
	CandidateAttempted CandidateStatus = "attempted"
	CandidateCompleted CandidateStatus = "completed"
	CandidateFailed    CandidateStatus = "failed"
)

// RankingMode selects which of the two scoring code paths is
// authoritative for a session (spec §9): absolute Vision scores, or
// VLM-derived ranks. The two share storage slots on Candidate; exactly
// one is populated per session.
type RankingMode string

const (
	RankingModeRank  RankingMode = "rank"
	RankingModeScore RankingMode = "score"
)

// Config is the immutable search configuration recorded on a session at
// creation (spec §3).
type Config struct {
	BeamWidth     int         `json:"beamWidth"`     // N
	Survivors     int         `json:"survivors"`     // M
	MaxIterations int         `json:"maxIterations"` // I
	Alpha         float64     `json:"alpha"`         // alignment/aesthetic weight
	EnsembleSize  int         `json:"ensembleSize"`  // k
	RankingMode   RankingMode `json:"rankingMode"`
}

// Image is the recorded output of one Image.Generate call (spec §3,
// §4.A). BaseImagePath is the optional provider-declared pre-face-fix
// variant; the core only stores it.
type Image struct {
	URL           string `json:"url,omitempty"`
	LocalPath     string `json:"localPath"`
	BaseImagePath string `json:"baseImagePath,omitempty"`
}

// Evaluation is the legacy absolute-score record (spec §9), populated
// only when Config.RankingMode == RankingModeScore.
type Evaluation struct {
	Alignment  float64  `json:"alignment"`
	Aesthetic  float64  `json:"aesthetic"`
	Analysis   string   `json:"analysis"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}

// ComparisonRecord is one pairwise-comparison outcome involving this
// candidate, attached by the ranking engine (spec §4.D/§4.E).
type ComparisonRecord struct {
	OpponentID string      `json:"opponentId"`
	Won        bool        `json:"won"`
	Inferred   bool        `json:"inferred"`
	Ranks      types.Ranks `json:"ranks"`
	Timestamp  time.Time   `json:"timestamp"`
}

// AggregatedFeedback is the deduplicated strengths/weaknesses the
// ranking engine's ensemble voting collects for one candidate (spec
// §4.D step 5).
type AggregatedFeedback struct {
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}

// Candidate is one generated image attempt within an iteration (spec
// §3). ParentID is nil for iteration 0. Survived is nil until the
// iteration's selection phase runs.
type Candidate struct {
	CandidateID    string               `json:"candidateId"`
	ParentID       *string              `json:"parentId,omitempty"`
	WhatPrompt     string               `json:"whatPrompt"`
	HowPrompt      string               `json:"howPrompt"`
	Combined       *string              `json:"combined,omitempty"`
	NegativePrompt *string              `json:"negativePrompt,omitempty"`
	Critique       *types.Critique      `json:"critique,omitempty"`
	Image          *Image               `json:"image,omitempty"`
	Evaluation     *Evaluation          `json:"evaluation,omitempty"`
	TotalScore     *float64             `json:"totalScore,omitempty"`
	Status         CandidateStatus      `json:"status"`
	Survived       *bool                `json:"survived,omitempty"`
	Comparisons    []ComparisonRecord   `json:"comparisons,omitempty"`
	AggregatedFeedback *AggregatedFeedback `json:"aggregatedFeedback,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Iteration is one pass of the beam-search scheduler (spec §3, §4.H).
type Iteration struct {
	Number          int              `json:"number"`
	Dimension       types.Dimension  `json:"dimension"`
	Candidates      []*Candidate     `json:"candidates"`
	BestCandidateID string           `json:"bestCandidateId,omitempty"`
	BestScore       *float64         `json:"bestScore,omitempty"`
}

// LineageEntry is one hop in the root-to-winner chain.
type LineageEntry struct {
	Iteration   int    `json:"iteration"`
	CandidateID string `json:"candidateId"`
}

// Winner is the session's final selected candidate.
type Winner struct {
	Iteration   int     `json:"iteration"`
	CandidateID string  `json:"candidateId"`
	TotalScore  float64 `json:"totalScore"`
}

// Session is the full session JSON document (spec §3, §6).
type Session struct {
	SessionID  string       `json:"sessionId"`
	CreatedAt  time.Time    `json:"createdAt"`
	UserPrompt string       `json:"userPrompt"`
	Config     Config       `json:"config"`
	Iterations []*Iteration `json:"iterations"`
	Winner     *Winner      `json:"winner,omitempty"`
	Lineage    []LineageEntry `json:"lineage,omitempty"`
	Status     Status       `json:"status"`
	Error      string       `json:"error,omitempty"`
}

// New creates an empty session document for the given id and
// configuration. It does not touch the filesystem; call
// metadata.Tracker.Initialize to do that.
func New(sessionID, userPrompt string, cfg Config) *Session {
	return &Session{
		SessionID:  sessionID,
		CreatedAt:  time.Now(),
		UserPrompt: userPrompt,
		Config:     cfg,
		Iterations: make([]*Iteration, 0, cfg.MaxIterations),
		Status:     StatusRunning,
	}
}

// FindCandidate looks up a candidate by iteration number and id.
func (s *Session) FindCandidate(iteration int, candidateID string) (*Candidate, bool) {
	for _, it := range s.Iterations {
		if it.Number != iteration {
			continue
		}
		for _, c := range it.Candidates {
			if c.CandidateID == candidateID {
				return c, true
			}
		}
	}
	return nil, false
}

// FindIteration looks up an iteration by number.
func (s *Session) FindIteration(number int) (*Iteration, bool) {
	for _, it := range s.Iterations {
		if it.Number == number {
			return it, true
		}
	}
	return nil, false
}

// Survivors returns the candidates in this iteration with
// Survived == true.
func (it *Iteration) Survivors() []*Candidate {
	out := make([]*Candidate, 0, len(it.Candidates))
	for _, c := range it.Candidates {
		if c.Survived != nil && *c.Survived {
			out = append(out, c)
		}
	}
	return out
}

// Completed returns the candidates in this iteration with
// Status == CandidateCompleted.
func (it *Iteration) Completed() []*Candidate {
	out := make([]*Candidate, 0, len(it.Candidates))
	for _, c := range it.Candidates {
		if c.Status == CandidateCompleted {
			out = append(out, c)
		}
	}
	return out
}
