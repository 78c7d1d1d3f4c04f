//go:build windows

package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformPathsWindows(t *testing.T) {
	t.Setenv("APPDATA", `C:\AppData\Roaming`)
	t.Setenv("LOCALAPPDATA", "")

	cfg := filepath.Join(`C:\AppData\Roaming`, "Board-Core")
	assert.Equal(t, cfg, platformConfigDir("Board:Core "))
	assert.Equal(t, filepath.Join(cfg, "Cache"), platformCacheDir("Board:Core "))
	assert.Equal(t, filepath.Join(cfg, "Logs"), platformLogDir("Board:Core "))

	t.Setenv("LOCALAPPDATA", `C:\AppData\Local`)
	assert.Equal(t, filepath.Join(`C:\AppData\Local`, "Board-Core", "Logs"), platformLogDir("Board:Core "))
}
