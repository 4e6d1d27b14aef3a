package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"vulnhub-crawler/pkg/models"
)

// Ledger is the single writer of the visited set. Workers may read it
// concurrently; Commit calls are serialized.
type Ledger struct {
	store Store
	set   *Set
	mu    sync.Mutex
}

// Open loads the persisted set from store.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	set, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Ledger{store: store, set: set}, nil
}

func (l *Ledger) Contains(url string) bool {
	return l.set.Contains(url)
}

func (l *Ledger) Len() int {
	return l.set.Len()
}

func (l *Ledger) URLs() []string {
	return l.set.URLs()
}

// Commit records url and persists the whole set before returning. When the
// write fails url is dropped again so memory matches what is on disk.
func (l *Ledger) Commit(ctx context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.set.Record(url) {
		return nil
	}
	if err := l.store.Persist(ctx, l.set); err != nil {
		l.set.Remove(url)
		return fmt.Errorf("commit %s: %w", url, withPersist(err))
	}
	return nil
}

func withPersist(err error) error {
	if errors.Is(err, models.ErrPersist) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrPersist, err)
}
