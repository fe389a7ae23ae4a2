package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	_, err := readToken(path)
	assert.ErrorIs(t, err, errNotLoggedIn)

	require.NoError(t, writeToken(path, "tok-1"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	require.NoError(t, removeToken(path))
	require.NoError(t, removeToken(path), "removing twice is not an error")
	_, err = readToken(path)
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestWriteToken_TightensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, writeToken(path, "new"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReadToken_Blank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := readToken(path)
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing default file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, fileConfig{}, cfg)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := "server: http://tasks.internal:8080\ntimeout: 3s\ntoken_file: /tmp/tok\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "http://tasks.internal:8080", cfg.Server)
		assert.Equal(t, 3*time.Second, cfg.Timeout)
		assert.Equal(t, "/tmp/tok", cfg.TokenFile)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
		_, err := loadConfig(path)
		assert.Error(t, err)
	})
}
