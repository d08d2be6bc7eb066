package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchmix.log")
	logger, cleanup, err := Setup(Config{Level: "info", FilePath: path, WriteToStderr: false})
	require.NoError(t, err)

	logger.Info("indexing_started", "files", 3)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"indexing_started"`)
	assert.Contains(t, string(data), `"files":3`)
}

func TestSetup_DebugFilteredAtInfoLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchmix.log")
	logger, cleanup, err := Setup(Config{Level: "info", FilePath: path, WriteToStderr: false})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("visible")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rot.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// Two writes that together exceed 1 MB force one rotation.
	chunk := []byte(strings.Repeat("a", 700*1024) + "\n")
	_, err = w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write(chunk)
	require.NoError(t, err)

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file must exist")
}
