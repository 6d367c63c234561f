package logger_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/reader/internal/logger"
)

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	cfg := logger.Config{Format: "xml"}
	cfg.SetDefaults()

	assert.Equal(t, logger.DefaultLevel, cfg.Level)
	assert.Equal(t, logger.DefaultFormat, cfg.Format)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}

func TestNew_WritesJSONToConfiguredPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reader.log")

	log, err := logger.New(logger.Config{Level: "debug", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.With(logger.Component("ingest")).Info("source ingested",
		logger.String("source_id", "src-1"),
		logger.Int("added", 3),
		logger.Error(errors.New("nothing wrong")),
	)
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(raw))
	assert.Contains(t, line, `"msg":"source ingested"`)
	assert.Contains(t, line, `"component":"ingest"`)
	assert.Contains(t, line, `"added":3`)
}

func TestNewNop_DoesNothing(t *testing.T) {
	t.Parallel()

	log := logger.NewNop()
	log.Info("ignored", logger.String("k", "v"))

	assert.Same(t, log, log.With(logger.Bool("b", true)))
	assert.NoError(t, log.Sync())
}
