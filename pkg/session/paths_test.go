package session_test

import (
	"testing"
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/session"
	"github.com/stretchr/testify/assert"
)

func TestPathsLayout(t *testing.T) {
	created := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	p := session.NewPaths("/data/sessions", created, "ses-100000-abcd1234")

	assert.Equal(t, "/data/sessions/2026-07-30/ses-100000-abcd1234", p.Dir())
	assert.Equal(t, "/data/sessions/2026-07-30/ses-100000-abcd1234/metadata.json", p.Metadata())
	assert.Equal(t, "/data/sessions/2026-07-30/ses-100000-abcd1234/rankings.json", p.Rankings())
	assert.Equal(t, "/data/sessions/2026-07-30/ses-100000-abcd1234/iter0-cand7.png", p.CandidateImage(0, "7"))
	assert.Equal(t, "/data/sessions/2026-07-30/ses-100000-abcd1234/iter0-cand7-base.png", p.CandidateBaseImage(0, "7"))
	assert.Equal(t, "/data/sessions/2026-07-30/ses-100000-abcd1234/evaluation-e1.json", p.Evaluation("e1"))
}

func TestServicePortAndStopLockFiles(t *testing.T) {
	assert.Equal(t, "/svc/.image.port", session.ServicePortFile("/svc", "image"))
	assert.Equal(t, "/svc/.image.STOP_LOCK", session.StopLockFile("/svc", "image"))
}
