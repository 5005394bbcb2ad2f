package metadata

import "github.com/kestrel-labs/imagerefine/pkg/comparison"

// RankingsDocument is the rankings.json satellite file (spec §6):
// per-iteration rankings plus the session's final global ranking.
type RankingsDocument struct {
	SessionID          string                        `json:"sessionId"`
	Iterations         map[int][]comparison.RankEntry `json:"iterations"`
	FinalGlobalRanking []comparison.RankEntry         `json:"finalGlobalRanking,omitempty"`
}

func newRankingsDocument(sessionID string) *RankingsDocument {
	return &RankingsDocument{
		SessionID:  sessionID,
		Iterations: make(map[int][]comparison.RankEntry),
	}
}

// TokenStats is the optional session cost summary (spec §4.E
// persistTokens, tokens.json).
type TokenStats struct {
	PromptTokens     int64          `json:"promptTokens"`
	CompletionTokens int64          `json:"completionTokens"`
	TotalTokens      int64          `json:"totalTokens"`
	ByProvider       map[string]int64 `json:"byProvider,omitempty"`
}
