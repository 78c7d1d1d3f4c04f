// Package config reads the runtime configuration from the process environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/small-frappuccino/boardcore/pkg/board"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/log"
	"github.com/small-frappuccino/boardcore/pkg/util"
)

// Environment variable names.
const (
	EnvToken            = "BOARDCORE_TOKEN"
	EnvRedisURL         = "BOARDCORE_REDIS_URL"
	EnvKeyNamespace     = "BOARDCORE_KEY_NAMESPACE"
	EnvStateTTL         = "BOARDCORE_STATE_TTL"
	EnvDBPath           = "BOARDCORE_DB_PATH"
	EnvBoardAPIKey      = "BOARDCORE_BOARD_API_KEY"
	EnvBoardAPIURL      = "BOARDCORE_BOARD_API_URL"
	EnvBoardRPS         = "BOARDCORE_BOARD_RPS"
	EnvBoardRetryWindow = "BOARDCORE_BOARD_RETRY_WINDOW"
	EnvControlAddr      = "BOARDCORE_CONTROL_ADDR"
	EnvLogLevel         = "BOARDCORE_LOG_LEVEL"
	EnvLogDir           = "BOARDCORE_LOG_DIR"
	EnvLogJSON          = "BOARDCORE_LOG_JSON"
	EnvDefaultLocale    = "BOARDCORE_DEFAULT_LOCALE"
	EnvTheme            = "BOARDCORE_THEME"
	EnvTaskWorkers      = "BOARDCORE_TASK_WORKERS"
)

const (
	DefaultStateTTL    = 10 * time.Minute
	DefaultNamespace   = "boardcore"
	DefaultBoardRPS    = 10
	DefaultControlAddr = "127.0.0.1:8377"
	DefaultTaskWorkers = 4
)

// ErrMissingToken is returned by Load when no bot token could be found.
var ErrMissingToken = errors.New("bot token not configured")

// Config is the resolved runtime configuration.
type Config struct {
	Token string

	// RedisURL selects the Redis token store; empty keeps state in memory.
	RedisURL     string
	KeyNamespace string
	StateTTL     time.Duration

	DBPath string

	BoardAPIKey      string
	BoardAPIURL      string
	BoardRPS         float64
	BoardRetryWindow time.Duration

	// ControlAddr is the listen address of /healthz and /metrics. "off" disables it.
	ControlAddr string

	LogLevel slog.Level
	LogDir   string
	LogJSON  bool

	DefaultLocale string
	Theme         string
	TaskWorkers   int
}

// Load resolves the configuration. The token is looked up with the
// $HOME/.local/bin/.env fallback, which also fills any other missing variable.
func Load() (Config, error) {
	token, err := util.LoadEnvWithLocalBinFallback(EnvToken)
	if err != nil {
		log.ApplicationLogger().Warn("Bot token lookup failed", "env", EnvToken, "err", err)
	}
	cfg := fromEnv()
	cfg.Token = strings.TrimSpace(token)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func fromEnv() Config {
	return Config{
		RedisURL:         util.EnvString(EnvRedisURL, ""),
		KeyNamespace:     util.EnvString(EnvKeyNamespace, DefaultNamespace),
		StateTTL:         util.EnvDuration(EnvStateTTL, DefaultStateTTL),
		DBPath:           util.EnvString(EnvDBPath, util.GetDatabasePath()),
		BoardAPIKey:      util.EnvString(EnvBoardAPIKey, ""),
		BoardAPIURL:      util.EnvString(EnvBoardAPIURL, board.DefaultBaseURL),
		BoardRPS:         util.EnvFloat64(EnvBoardRPS, DefaultBoardRPS),
		BoardRetryWindow: util.EnvDuration(EnvBoardRetryWindow, 10*time.Second),
		ControlAddr:      util.EnvString(EnvControlAddr, DefaultControlAddr),
		LogLevel:         log.ParseLevel(util.EnvString(EnvLogLevel, "info")),
		LogDir:           util.EnvString(EnvLogDir, util.GetLogDir()),
		LogJSON:          util.EnvBool(EnvLogJSON),
		DefaultLocale:    util.EnvString(EnvDefaultLocale, i18n.DefaultLocale),
		Theme:            util.EnvString(EnvTheme, ""),
		TaskWorkers:      int(util.EnvInt64(EnvTaskWorkers, DefaultTaskWorkers)),
	}
}

// Validate checks values that have no usable fallback.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: set %s", ErrMissingToken, EnvToken)
	}
	if c.StateTTL <= 0 {
		return fmt.Errorf("%s must be positive, got %s", EnvStateTTL, c.StateTTL)
	}
	if c.TaskWorkers <= 0 {
		return fmt.Errorf("%s must be positive, got %d", EnvTaskWorkers, c.TaskWorkers)
	}
	if strings.TrimSpace(c.KeyNamespace) == "" {
		return fmt.Errorf("%s must not be blank", EnvKeyNamespace)
	}
	return nil
}

// ControlEnabled reports whether the control server should listen.
func (c Config) ControlEnabled() bool {
	addr := strings.TrimSpace(c.ControlAddr)
	return addr != "" && !strings.EqualFold(addr, "off")
}

// LogConfig maps the logging fields onto the logger setup.
func (c Config) LogConfig() log.Config {
	return log.Config{
		Dir:        c.LogDir,
		Level:      c.LogLevel,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 14,
		JSON:       c.LogJSON,
		Console:    true,
	}
}
