package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSessionID generates a human-readable session id of the form
// ses-HHMMSS-xxxxxxxx (spec §3), where the last part is the first eight
// characters of a random uuid, so ids made within the same second differ.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("ses-%s-%s", now.Format("150405"), uuid.New().String()[:8])
}

// NewCandidateID generates an opaque candidate identifier, unique
// within its iteration (and in practice across the whole session).
func NewCandidateID() string {
	return uuid.New().String()
}
