package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"vulnhub-crawler/pkg/models"
)

// TimestampLayout formats the suffix of every file a run writes.
const TimestampLayout = "2006-01-02_15-04-05"

const summaryPrefix = "vulnhub-vm-list"

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// FileSink writes one JSON file per item plus a run summary.
type FileSink struct {
	outputDir string
	itemsDir  string
	now       func() time.Time

	// mu serializes name reservation so two items with the same name in
	// the same second get distinct files.
	mu sync.Mutex
}

type Option func(*FileSink)

// WithClock replaces time.Now for file name timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *FileSink) { s.now = now }
}

func NewFileSink(outputDir, itemsDir string, opts ...Option) *FileSink {
	s := &FileSink{outputDir: outputDir, itemsDir: itemsDir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare creates the output and items directories.
func (s *FileSink) Prepare() error {
	for _, dir := range []string{s.outputDir, s.itemsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w: %w", dir, models.ErrPersist, err)
		}
	}
	return nil
}

// WriteItem stores record under the items directory and returns its path.
func (s *FileSink) WriteItem(record *models.ItemRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := SanitizeName(record.Release.Name) + "-" + s.now().Format(TimestampLayout)
	path := s.reserve(s.itemsDir, base)
	if err := WriteJSON(path, record); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRunSummary stores every record of the run, in order, as one JSON
// array. An empty run still produces a file containing [].
func (s *FileSink) WriteRunSummary(records []models.ItemRecord) (string, error) {
	if records == nil {
		records = []models.ItemRecord{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.reserve(s.outputDir, summaryPrefix+"-"+s.now().Format(TimestampLayout))
	if err := WriteJSON(path, records); err != nil {
		return "", err
	}
	return path, nil
}

// reserve returns the first of base.json, base-2.json, ... that does not
// exist yet. Callers hold mu.
func (s *FileSink) reserve(dir, base string) string {
	path := filepath.Join(dir, base+".json")
	for n := 2; fileExists(path); n++ {
		path = filepath.Join(dir, base+"-"+strconv.Itoa(n)+".json")
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SanitizeName turns an item name into a file name stem: punctuation is
// dropped, whitespace runs become underscores and the result is lowercase.
func SanitizeName(name string) string {
	cleaned := nonWord.ReplaceAllString(name, "")
	cleaned = whitespace.ReplaceAllString(strings.TrimSpace(cleaned), "_")
	cleaned = strings.ToLower(cleaned)
	if cleaned == "" {
		return "item"
	}
	return cleaned
}
