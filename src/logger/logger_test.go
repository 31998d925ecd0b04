package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextReturnsStoredLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Str("sync_type", "accounts").Msg("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), `"sync_type":"accounts"`)
}

func TestFromContextDefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestNewWithOptionsLevel(t *testing.T) {
	log := NewWithOptions(Options{Level: "warn"})
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())

	log = NewWithOptions(Options{Level: "not-a-level"})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewWithOptionsWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	log := NewWithOptions(Options{Level: "info", File: path})
	log.Info().Msg("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
