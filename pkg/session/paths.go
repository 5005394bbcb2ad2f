package session

import (
	"fmt"
	"path/filepath"
	"time"
)

// Paths resolves the on-disk layout for one session (spec §6):
// {root}/{YYYY-MM-DD}/{sessionId}/...
type Paths struct {
	Root      string
	Date      string
	SessionID string
}

// NewPaths builds a Paths rooted at root, date-partitioned using
// createdAt.
func NewPaths(root string, createdAt time.Time, sessionID string) Paths {
	return Paths{
		Root:      root,
		Date:      createdAt.Format("2006-01-02"),
		SessionID: sessionID,
	}
}

// Dir is the session's own directory.
func (p Paths) Dir() string {
	return filepath.Join(p.Root, p.Date, p.SessionID)
}

// Metadata is the full session document.
func (p Paths) Metadata() string {
	return filepath.Join(p.Dir(), "metadata.json")
}

// Rankings is the per-iteration and global rankings satellite file.
func (p Paths) Rankings() string {
	return filepath.Join(p.Dir(), "rankings.json")
}

// Tokens is the optional session cost summary.
func (p Paths) Tokens() string {
	return filepath.Join(p.Dir(), "tokens.json")
}

// CandidateImage is the canonical path for one completed candidate's
// image: iter{n}-cand{m}.png.
func (p Paths) CandidateImage(iteration int, candidateID string) string {
	return filepath.Join(p.Dir(), fmt.Sprintf("iter%d-cand%s.png", iteration, candidateID))
}

// CandidateBaseImage is the optional pre-face-fix variant:
// iter{n}-cand{m}-base.png.
func (p Paths) CandidateBaseImage(iteration int, candidateID string) string {
	return filepath.Join(p.Dir(), fmt.Sprintf("iter%d-cand%s-base.png", iteration, candidateID))
}

// Evaluation is an optional human-evaluation record:
// evaluation-{evaluationId}.json.
func (p Paths) Evaluation(evaluationID string) string {
	return filepath.Join(p.Dir(), fmt.Sprintf("evaluation-%s.json", evaluationID))
}

// ServicePortFile is the discovery file a local model service writes at
// startup: {services}/.{service}.port (spec §6).
func ServicePortFile(servicesDir, service string) string {
	return filepath.Join(servicesDir, fmt.Sprintf(".%s.port", service))
}

// StopLockFile is the manual-override marker per service (spec §4.B,
// §9): {services}/.{service}.STOP_LOCK.
func StopLockFile(servicesDir, service string) string {
	return filepath.Join(servicesDir, fmt.Sprintf(".%s.STOP_LOCK", service))
}
