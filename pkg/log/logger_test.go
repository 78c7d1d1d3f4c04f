package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupLoggerWritesCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	if err := SetupLogger(Config{Dir: dir, Level: slog.LevelDebug}); err != nil {
		t.Fatalf("setup logger: %v", err)
	}
	t.Cleanup(func() { _ = GlobalLogger.Close() })

	ApplicationLogger().Info("app line", "k", "v")
	DatabaseLogger().Debug("db line")
	ErrorLoggerRaw().Error("err line")

	for name, want := range map[string]string{
		"application.log": "app line",
		"database.log":    "db line",
		"error.log":       "err line",
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(data), want) {
			t.Fatalf("%s missing %q: %s", name, want, data)
		}
	}
}
