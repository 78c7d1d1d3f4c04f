package util

import (
	"os"
	"strings"
)

const defaultAppDir = "boardcore"

// invalidSegmentChars are replaced in directory names. The set is Windows' so a name maps
// to the same directory on every platform.
var invalidSegmentChars = strings.NewReplacer(
	"/", "-", "\\", "-",
	"<", "-", ">", "-", ":", "-", "\"", "-", "|", "-", "?", "-", "*", "-",
	"\x00", "",
)

// pathSegment turns an application name into a single directory name.
func pathSegment(name string) string {
	n := invalidSegmentChars.Replace(strings.TrimSpace(name))
	// Windows rejects trailing dots and spaces.
	n = strings.TrimRight(n, " .")
	if strings.TrimSpace(n) == "" {
		return defaultAppDir
	}
	return n
}

// homeDir never returns an empty string; the working directory is the last resort.
func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil && strings.TrimSpace(h) != "" {
		return h
	}
	if h := strings.TrimSpace(os.Getenv("HOME")); h != "" {
		return h
	}
	return "."
}

// envDir returns the absolute directory in env, or "" when unset or relative.
func envDir(env string) string {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" || !strings.HasPrefix(v, "/") && !strings.Contains(v, ":\\") {
		return ""
	}
	return v
}
