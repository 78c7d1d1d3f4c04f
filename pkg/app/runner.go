package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/board"
	"github.com/small-frappuccino/boardcore/pkg/config"
	"github.com/small-frappuccino/boardcore/pkg/control"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/admin"
	"github.com/small-frappuccino/boardcore/pkg/discord/session"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/interaction/prompt"
	"github.com/small-frappuccino/boardcore/pkg/log"
	"github.com/small-frappuccino/boardcore/pkg/service"
	"github.com/small-frappuccino/boardcore/pkg/storage"
	"github.com/small-frappuccino/boardcore/pkg/task"
	"github.com/small-frappuccino/boardcore/pkg/tokenstore"
	"github.com/small-frappuccino/boardcore/pkg/util"
)

const shutdownTimeout = 30 * time.Second

// Run bootstraps the bot and blocks until an interrupt arrives.
// appName affects the config, database and log paths.
func Run(appName string) error {
	started := time.Now()

	// App name first (affects paths)
	util.SetAppName(appName)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := log.SetupLogger(cfg.LogConfig()); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	defer log.GlobalLogger.Sync()

	if err := util.SetTheme(cfg.Theme); err != nil {
		log.ApplicationLogger().Warn("Failed to apply theme; keeping default", "theme", cfg.Theme, "err", err)
	}

	log.ApplicationLogger().Info(formatStartupMessage(appName, AppVersion(), Version))

	if err := util.EnsureDirs(); err != nil {
		return fmt.Errorf("create application directories: %w", err)
	}

	store := storage.NewStore(cfg.DBPath)
	if err := store.Init(); err != nil {
		return fmt.Errorf("initialize SQLite store: %w", err)
	}
	defer func() { _ = store.Close() }()

	initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	tokens, err := openTokenStore(initCtx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer func() { _ = tokens.Close() }()

	catalog, err := i18n.Default()
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	actions := action.NewRegistry(tokens, cfg.StateTTL)
	prompts := prompt.NewEngine(tokens, actions, cfg.StateTTL)
	tasks := newTaskRouter(cfg)

	log.DiscordLogger().Info("Authenticating with Discord API (token redacted)")
	discordSession, err := session.NewDiscordSession(cfg.Token)
	if err != nil {
		tasks.Close()
		return fmt.Errorf("create discord session: %w", err)
	}
	if discordSession.State == nil || discordSession.State.User == nil {
		tasks.Close()
		_ = discordSession.Close()
		return fmt.Errorf("discord session state not properly initialized")
	}
	util.SetBotName(discordSession.State.User.Username)
	log.DiscordLogger().Info("Authenticated", "user", discordSession.State.User.Username)

	manager := service.NewManager()
	handler := commands.NewCommandHandler(discordSession, commands.HandlerDeps{
		Catalog:       catalog,
		DefaultLocale: cfg.DefaultLocale,
		Store:         store,
		Board:         newBoardClient(cfg),
		Prompts:       prompts,
		Actions:       actions,
		Tasks:         tasks,
		Status:        manager,
		Checks:        map[string]admin.Pinger{"storage": store, "tokenstore": tokens},
	})

	var controlServer *control.Server
	if cfg.ControlEnabled() {
		controlServer = control.NewServer(cfg.ControlAddr)
	}

	if err := registerServices(manager, discordSession, tasks, handler, controlServer); err != nil {
		return err
	}
	controlServer.AddCheck("storage", store)
	controlServer.AddCheck("tokenstore", tokens)
	controlServer.AddCheck("services", manager)

	if err := manager.StartAll(context.Background()); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	log.ApplicationLogger().Info("Initialized", "app", appName, "duration", time.Since(started).Round(time.Millisecond))
	log.ApplicationLogger().Info("Running. Press Ctrl+C to stop...", "app", appName)

	sig := util.WaitForInterrupt(context.Background())
	log.ApplicationLogger().Info("Stopping", "app", appName, "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeoutCause(context.Background(), shutdownTimeout, fmt.Errorf("application shutdown"))
	defer shutdownCancel()

	if err := manager.StopAll(shutdownCtx); err != nil {
		log.ErrorLoggerRaw().Error("Some services failed to stop cleanly", "err", err)
	}
	return nil
}

// registerServices wires the long-lived components into manager. The Discord session
// is already open, so its service only owns the close.
func registerServices(manager *service.Manager, s *discordgo.Session, tasks *task.TaskRouter, handler *commands.CommandHandler, controlServer *control.Server) error {
	wrappers := []*service.Wrapper{
		service.NewWrapper("tasks", nil, nil, func(context.Context) error {
			tasks.Close()
			return nil
		}),
		service.NewWrapper("discord", nil, nil, func(context.Context) error {
			if s == nil {
				return nil
			}
			return s.Close()
		}),
		service.NewWrapper("commands", []string{"discord", "tasks"},
			func(context.Context) error { return handler.SetupCommands() },
			func(context.Context) error { return handler.Shutdown() }),
	}
	if controlServer != nil {
		wrappers = append(wrappers, service.NewWrapper("control", nil,
			func(context.Context) error { return controlServer.Start() },
			controlServer.Stop))
	}
	for _, w := range wrappers {
		if err := manager.Register(w); err != nil {
			return fmt.Errorf("register %s service: %w", w.Name(), err)
		}
	}
	return nil
}

// openTokenStore picks Redis when a URL is configured and the in-memory store otherwise.
func openTokenStore(ctx context.Context, cfg config.Config) (tokenstore.Store, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.ApplicationLogger().Warn("No Redis URL configured; prompt state is kept in memory and lost on restart")
		return tokenstore.NewMemory(time.Minute), nil
	}
	r, err := tokenstore.NewRedis(ctx, cfg.RedisURL, tokenstore.WithNamespace(cfg.KeyNamespace))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func newTaskRouter(cfg config.Config) *task.TaskRouter {
	rc := task.Defaults()
	rc.GlobalMaxWorkers = cfg.TaskWorkers
	return task.NewRouter(rc)
}

func newBoardClient(cfg config.Config) *board.HTTPClient {
	return board.NewHTTPClient(cfg.BoardAPIURL, cfg.BoardAPIKey,
		board.WithRateLimit(cfg.BoardRPS, int(cfg.BoardRPS)),
		board.WithRetryWindow(cfg.BoardRetryWindow))
}

// formatStartupMessage names the host application and, when it differs, the core version.
func formatStartupMessage(appName, appVersion, coreVersion string) string {
	appName = strings.TrimSpace(appName)
	appVersion = strings.TrimSpace(appVersion)
	coreVersion = strings.TrimSpace(coreVersion)

	switch {
	case appVersion == "":
		return fmt.Sprintf("🚀 Starting %s (boardcore %s)...", appName, coreVersion)
	case appVersion == coreVersion:
		return fmt.Sprintf("🚀 Starting %s %s...", appName, appVersion)
	default:
		return fmt.Sprintf("🚀 Starting %s %s (boardcore %s)...", appName, appVersion, coreVersion)
	}
}
