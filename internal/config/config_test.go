package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
jwt_secret: file-secret-16-chars-min
embedding:
  dimensions: 128
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "file-secret-16-chars-min", cfg.JWTSecret)
	assert.Equal(t, 128, cfg.Embedding.Dimensions)
	// Unset fields fall back to defaults.
	assert.Equal(t, "data/snippets.db", cfg.DBPath)
	assert.Equal(t, 1000, cfg.Embedding.CacheSize)
	assert.Equal(t, 16, cfg.Index.M)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\njwt_secret: file-secret-16-chars-min\n"), 0o644))

	t.Setenv("PORT", "7777")
	t.Setenv("DB_PATH", "/tmp/other.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Port)
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-16-chars-min")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load("")
	assert.Error(t, err)
}
