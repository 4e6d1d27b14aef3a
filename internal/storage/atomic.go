package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vulnhub-crawler/pkg/models"
)

// WriteJSON marshals v with two-space indentation and replaces path with
// the result. The data goes to a temp file in the same directory first, so
// readers see either the old file or the complete new one.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w: %w", path, models.ErrPersist, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w: %w", path, models.ErrPersist, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w: %w", path, models.ErrPersist, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w: %w", path, models.ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w: %w", path, models.ErrPersist, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w: %w", path, models.ErrPersist, err)
	}
	return nil
}
