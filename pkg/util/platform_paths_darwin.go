//go:build darwin

package util

import "path/filepath"

// macOS layout:
//   - Config: ~/Library/Application Support/<AppName>
//   - Cache:  ~/Library/Caches/<AppName>
//   - Logs:   ~/Library/Logs/<AppName>

func platformConfigDir(appName string) string {
	return filepath.Join(homeDir(), "Library", "Application Support", pathSegment(appName))
}

func platformCacheDir(appName string) string {
	return filepath.Join(homeDir(), "Library", "Caches", pathSegment(appName))
}

func platformLogDir(appName string) string {
	return filepath.Join(homeDir(), "Library", "Logs", pathSegment(appName))
}
