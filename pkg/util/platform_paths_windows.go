//go:build windows

package util

import (
	"os"
	"path/filepath"
	"strings"
)

// Windows layout:
//   - Config: %APPDATA%/<AppName>
//   - Cache:  %LOCALAPPDATA%/<AppName>/Cache, falling back to %APPDATA%
//   - Logs:   %LOCALAPPDATA%/<AppName>/Logs, falling back to %APPDATA%

func platformConfigDir(appName string) string {
	return filepath.Join(appDataDir("APPDATA", "Roaming"), pathSegment(appName))
}

func platformCacheDir(appName string) string {
	return filepath.Join(localAppDir(appName), "Cache")
}

func platformLogDir(appName string) string {
	return filepath.Join(localAppDir(appName), "Logs")
}

func localAppDir(appName string) string {
	if strings.TrimSpace(os.Getenv("LOCALAPPDATA")) == "" {
		return platformConfigDir(appName)
	}
	return filepath.Join(appDataDir("LOCALAPPDATA", "Local"), pathSegment(appName))
}

// appDataDir reads env, then guesses C:\Users\<User>\AppData\<sub>.
func appDataDir(env, sub string) string {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return filepath.Join(homeDir(), "AppData", sub)
}
