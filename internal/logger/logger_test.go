package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONAtConfiguredLevel(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")

	l, err := New(Config{Level: "warn", OutputPaths: []string{out}})
	require.NoError(t, err)

	l.Info("hidden")
	l.With(String("component", "docstore")).Warn("cache write failed", Error(errors.New("disk full")))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)

	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, `"msg":"cache write failed"`)
	assert.Contains(t, text, `"component":"docstore"`)
	assert.Contains(t, text, "disk full")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "warn", parseLevel("warning").String())
	assert.Equal(t, "info", parseLevel("bogus").String())
}

func TestNewNop(t *testing.T) {
	l := NewNop().With(String("k", "v"))
	l.Error("nothing happens")
	assert.NoError(t, l.Sync())
}
