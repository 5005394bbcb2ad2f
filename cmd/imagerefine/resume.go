package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrel-labs/imagerefine/pkg/session"
)

// ResumeCmd inspects a session already written to disk: one that
// completed, failed, or was interrupted mid-run. The beam-search
// scheduler itself has no resumable-from-checkpoint mode (spec §3
// Lifecycle treats a session as run start-to-finish); this command
// surfaces whatever the metadata tracker persisted so an operator can
// see how far an interrupted run got and what its current winner is.
type ResumeCmd struct {
	SessionID  string `arg:"" help:"Session id to inspect (e.g. ses-143022-a1b2c3d4)."`
	OutputRoot string `help:"Session output root directory." name:"output-root" type:"path" default:"./sessions"`
	Date       string `help:"Date partition (YYYY-MM-DD) the session was created under; if omitted, every date under output-root is searched." name:"date"`
	Format     string `help:"Summary output format." enum:",table,json" name:"format"`
}

func (r *ResumeCmd) Run() error {
	configureLogging()

	path, err := r.findMetadataFile()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session metadata: %w", err)
	}

	var doc session.Session
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse session metadata: %w", err)
	}

	return printSession(&doc, r.Format)
}

// findMetadataFile locates {output-root}/{date}/{sessionId}/metadata.json,
// searching every date partition when Date is unset.
func (r *ResumeCmd) findMetadataFile() (string, error) {
	if r.Date != "" {
		path := filepath.Join(r.OutputRoot, r.Date, r.SessionID, "metadata.json")
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("session %s not found under %s/%s: %w", r.SessionID, r.OutputRoot, r.Date, err)
		}
		return path, nil
	}

	entries, err := os.ReadDir(r.OutputRoot)
	if err != nil {
		return "", fmt.Errorf("read output root %s: %w", r.OutputRoot, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(r.OutputRoot, entry.Name(), r.SessionID, "metadata.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("session %s not found under any date partition of %s", r.SessionID, r.OutputRoot)
}
