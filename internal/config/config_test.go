package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serr "github.com/searchmix/searchmix/internal/errors"
)

func TestDefault_Values(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./db/searchmix.db", cfg.DBPath)
	assert.False(t, cfg.IncludeCodeBlocks)
	assert.Equal(t, 10.0, cfg.Weights.Title)
	assert.Equal(t, 9.0, cfg.Weights.H1)
	assert.Equal(t, 1.5, cfg.Weights.H6)
	assert.Equal(t, 1.0, cfg.Weights.Body)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().DBPath, cfg.DBPath)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchmix.yaml")
	content := `db_path: /tmp/custom.db
include_code_blocks: true
weights:
  title: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.True(t, cfg.IncludeCodeBlocks)
	assert.Equal(t, 20.0, cfg.Weights.Title)
	// Untouched weights keep their defaults.
	assert.Equal(t, 9.0, cfg.Weights.H1)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, serr.HasCode(err, serr.ErrCodeConfigInvalid))
}

func TestValidate_RejectsNegativeWeight(t *testing.T) {
	cfg := Default()
	cfg.Weights.Body = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, serr.HasCode(err, serr.ErrCodeConfigInvalid))
}

func TestValidate_RejectsEmptyDBPath(t *testing.T) {
	cfg := Default()
	cfg.DBPath = ""
	assert.Error(t, cfg.Validate())
}
