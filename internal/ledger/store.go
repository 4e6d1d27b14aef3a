package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"vulnhub-crawler/internal/storage"
	"vulnhub-crawler/pkg/models"
)

// Store loads and durably saves a Set.
type Store interface {
	Load(ctx context.Context) (*Set, error)
	Persist(ctx context.Context, set *Set) error
}

// FileStore keeps the ledger as a JSON array of URLs, rewritten in full on
// every Persist.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

// Load treats a missing or blank file as an empty ledger. Anything else
// that is not a JSON array of strings is ErrLedgerCorrupt.
func (f *FileStore) Load(_ context.Context) (*Set, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w: %w", f.path, models.ErrLedgerCorrupt, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewSet(), nil
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w: %w: %w", f.path, models.ErrParse, models.ErrLedgerCorrupt, err)
	}
	return NewSet(urls...), nil
}

func (f *FileStore) Persist(_ context.Context, set *Set) error {
	return storage.WriteJSON(f.path, set.URLs())
}
