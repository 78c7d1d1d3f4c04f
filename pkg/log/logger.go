package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Category selects which logger a message is routed to.
type Category int

const (
	Application Category = iota
	DiscordEvents
	Database
)

// Config controls where log output goes. Zero values fall back to sensible defaults.
type Config struct {
	Dir        string
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	JSON       bool
	// Console mirrors file output to stdout/stderr.
	Console bool
}

// Logger owns the category loggers and their rotating file writers.
type Logger struct {
	application *slog.Logger
	discord     *slog.Logger
	database    *slog.Logger
	error       *slog.Logger

	files []*lumberjack.Logger
}

var (
	mu sync.RWMutex
	// level is shared by every handler so it can change at runtime.
	level slog.LevelVar
	// GlobalLogger is set by SetupLogger. Before setup every category logs to stderr.
	GlobalLogger = newConsoleLogger(slog.LevelInfo)
)

func newConsoleLogger(l slog.Level) *Logger {
	level.Set(l)
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})
	base := slog.New(h)
	return &Logger{
		application: base.With("category", "application"),
		discord:     base.With("category", "discord"),
		database:    base.With("category", "database"),
		error:       base.With("category", "error"),
	}
}

// SetupLogger builds the global logger from cfg. Calling it again replaces the previous logger
// and closes its files.
func SetupLogger(cfg Config) error {
	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 20
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 14
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return err
	}

	level.Set(cfg.Level)
	l := &Logger{}
	open := func(name string, console io.Writer) *slog.Logger {
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, name),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		l.files = append(l.files, lj)

		var w io.Writer = lj
		if cfg.Console && console != nil {
			w = io.MultiWriter(console, lj)
		}
		opts := &slog.HandlerOptions{Level: &level}
		if cfg.JSON {
			return slog.New(slog.NewJSONHandler(w, opts))
		}
		return slog.New(slog.NewTextHandler(w, opts))
	}

	l.application = open("application.log", os.Stdout)
	l.discord = open("discord_events.log", os.Stdout)
	l.database = open("database.log", os.Stdout)
	l.error = open("error.log", os.Stderr)

	mu.Lock()
	prev := GlobalLogger
	GlobalLogger = l
	mu.Unlock()

	slog.SetDefault(l.application)
	_ = prev.Close()
	return nil
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level of every category logger.
func SetLevel(l slog.Level) { level.Set(l) }

// Level returns the current minimum level.
func Level() slog.Level { return level.Level() }

// Sync flushes nothing by itself (lumberjack writes through) but is kept so shutdown paths
// have a single place to hook into.
func (l *Logger) Sync() {}

// Close releases the rotating files.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// For returns the logger of a category.
func (l *Logger) For(c Category) *slog.Logger {
	switch c {
	case DiscordEvents:
		return l.discord
	case Database:
		return l.database
	default:
		return l.application
	}
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return GlobalLogger
}

func ApplicationLogger() *slog.Logger { return current().application }
func DiscordLogger() *slog.Logger     { return current().discord }
func DatabaseLogger() *slog.Logger    { return current().database }

// ErrorLoggerRaw returns the logger that writes to the error log only.
func ErrorLoggerRaw() *slog.Logger { return current().error }
