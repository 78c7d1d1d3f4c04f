package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/small-frappuccino/boardcore/pkg/theme"
)

var (
	// ConfiguredAppName can be set by host before Discord auth; when non-empty, EffectiveBotName() uses it.
	ConfiguredAppName string

	// DiscordBotName is set at runtime via SetBotName using the Discord API username.
	DiscordBotName string

	// Paths are recalculated when SetBotName or SetAppName is called.
	ApplicationSupportPath string
	ApplicationCachesPath  string
)

func init() {
	recomputePaths()
}

func recomputePaths() {
	ApplicationSupportPath = GetApplicationSupportPath()
	ApplicationCachesPath = GetApplicationCachesPath()
}

// SetBotName sets the bot name (from Discord API) and recomputes base paths.
func SetBotName(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	DiscordBotName = pathSegment(name)
	recomputePaths()
}

// SetAppName sets a configured application name and recomputes base paths.
// This allows host applications to control folder names before Discord auth.
func SetAppName(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	ConfiguredAppName = pathSegment(name)
	recomputePaths()
}

// SetTheme sets the active theme by name. Empty name resets to default.
func SetTheme(name string) error {
	return theme.SetCurrent(strings.TrimSpace(name))
}

// EffectiveBotName returns the current application/bot name, preferring a configured
// name when available, otherwise falling back to the Discord username, then a default.
func EffectiveBotName() string {
	if n := strings.TrimSpace(ConfiguredAppName); n != "" {
		return n
	}
	if n := strings.TrimSpace(DiscordBotName); n != "" {
		return n
	}
	return defaultAppDir
}

// GetApplicationSupportPath returns the base path for configuration files using the unified OS rules:
//   - Linux/Unix:  $XDG_CONFIG_HOME/<AppName>
//   - macOS:       ~/Library/Application Support/<AppName>
//   - Windows:     %APPDATA%/<AppName>
func GetApplicationSupportPath() string {
	app := EffectiveBotName()
	if dir := strings.TrimSpace(platformConfigDir(app)); dir != "" {
		return dir
	}
	return filepath.Join(".", "config", app)
}

// GetApplicationCachesPath returns the base path for cache files using the unified OS rules:
//   - Linux/Unix:  $XDG_CACHE_HOME/<AppName>
//   - macOS:       ~/Library/Caches/<AppName>
//   - Windows:     %LOCALAPPDATA%/<AppName>/Cache
func GetApplicationCachesPath() string {
	app := EffectiveBotName()
	if dir := strings.TrimSpace(platformCacheDir(app)); dir != "" {
		return dir
	}
	return filepath.Join(".", "cache", app)
}

// GetDatabasePath returns the SQLite path for user, guild and webhook records.
// Layout: <ConfigBase>/data/boardcore.db
func GetDatabasePath() string {
	return filepath.Join(ApplicationSupportPath, "data", "boardcore.db")
}

// GetLogDir returns the directory of the rotated log files:
//   - Linux/Unix:  $XDG_STATE_HOME/<AppName>/logs
//   - macOS:       ~/Library/Logs/<AppName>
//   - Windows:     %LOCALAPPDATA%/<AppName>/Logs
func GetLogDir() string {
	app := EffectiveBotName()
	if dir := strings.TrimSpace(platformLogDir(app)); dir != "" {
		return dir
	}
	return filepath.Join(".", "logs", app)
}

// EnsureDirs creates the directories of the default paths. Safe to call multiple times.
func EnsureDirs() error {
	for _, d := range []string{filepath.Dir(GetDatabasePath()), GetLogDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}
