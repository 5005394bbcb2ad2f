package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ensureDir creates dir (and parents) if it does not already exist.
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// writeJSONAtomic marshals v and writes it to path via a temp file plus
// rename, so a reader never observes a torn write even though the
// tracker's writes are already serialised (spec §5: "write-temp-then-
// rename is acceptable but not mandatory given small size" -- done
// anyway, it costs nothing at session-document scale).
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("metadata: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("metadata: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metadata: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("metadata: rename into place: %w", err)
	}
	return nil
}
