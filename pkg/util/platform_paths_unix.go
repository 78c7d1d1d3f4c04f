//go:build !windows && !darwin

package util

import "path/filepath"

// Linux and other Unixes follow the XDG base directories:
//   - Config: $XDG_CONFIG_HOME/<AppName>, default ~/.config/<AppName>
//   - Cache:  $XDG_CACHE_HOME/<AppName>, default ~/.cache/<AppName>
//   - Logs:   $XDG_STATE_HOME/<AppName>/logs, default ~/.local/state/<AppName>/logs

func platformConfigDir(appName string) string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), pathSegment(appName))
}

func platformCacheDir(appName string) string {
	return filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), pathSegment(appName))
}

func platformLogDir(appName string) string {
	return filepath.Join(xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")), pathSegment(appName), "logs")
}

// xdgDir ignores relative values, as the XDG spec requires.
func xdgDir(env, fallback string) string {
	if dir := envDir(env); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), fallback)
}
