package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPathsFollowXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	assert.Equal(t, filepath.Join(dir, "cfg", "clicksim", "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join(dir, "data", "clicksim", "clicksim.db"), DefaultDBPath())
}

func TestXDGHomeFallsBackToUserHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")

	assert.Equal(t, filepath.Join(home, ".local", "share"), XDGDataHome())
	assert.Equal(t, filepath.Join(home, ".config"), XDGConfigHome())
}
