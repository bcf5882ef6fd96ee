package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsSane(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3, cfg.TexturePoolSize)
	assert.Equal(t, "v1.3", cfg.MailslotSuffix)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("texture_pool_size = 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TexturePoolSize)
	assert.Equal(t, "v1.3", cfg.MailslotSuffix) // untouched field keeps default
}
