//go:build !windows && !darwin

package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformPathsXDG(t *testing.T) {
	t.Setenv("HOME", "/home/op")
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg-op")
	t.Setenv("XDG_CACHE_HOME", "relative/ignored")
	t.Setenv("XDG_STATE_HOME", "")

	assert.Equal(t, "/etc/xdg-op/boardcore", platformConfigDir("boardcore"))
	assert.Equal(t, filepath.Join("/home/op", ".cache", "boardcore"), platformCacheDir("boardcore"))
	assert.Equal(t, filepath.Join("/home/op", ".local", "state", "boardcore", "logs"), platformLogDir("boardcore"))
}
