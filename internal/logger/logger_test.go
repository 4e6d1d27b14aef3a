package logger_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnhub-crawler/internal/logger"
)

func TestNew_JSONWritesStructuredFields(t *testing.T) {
	out := filepath.Join(t.TempDir(), "crawl.log")

	l, err := logger.New(logger.Config{Level: "info", Format: "json", OutputPaths: []string{out}})
	require.NoError(t, err)

	l.With(logger.String("run_id", "abc")).Info("Skipping already visited URL",
		logger.String("url", "https://www.vulnhub.com/entry/a"))
	l.Debug("filtered out by level")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"abc"`)
	assert.Contains(t, string(data), `"url":"https://www.vulnhub.com/entry/a"`)
	assert.NotContains(t, string(data), "filtered out by level")
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := logger.New(logger.Config{Format: "xml"})
	assert.Error(t, err)
}

func TestNop_IsSilentAndChainable(t *testing.T) {
	l := logger.NewNop()

	l.With(logger.Error(errors.New("boom"))).Error("still silent")
	assert.Same(t, l, l.With(logger.Int("n", 1)))
	assert.NoError(t, l.Sync())
}
