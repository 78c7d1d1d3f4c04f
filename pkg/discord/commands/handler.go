package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/board"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/admin"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/boards"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/interaction"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/interaction/prompt"
	"github.com/small-frappuccino/boardcore/pkg/log"
	"github.com/small-frappuccino/boardcore/pkg/storage"
	"github.com/small-frappuccino/boardcore/pkg/task"
)

// HandlerDeps is everything the command layer needs from the application.
type HandlerDeps struct {
	Catalog       *i18n.Catalog
	DefaultLocale string
	Store         *storage.Store
	Board         board.Client
	Prompts       *prompt.Engine
	Actions       *action.Registry
	Tasks         *task.TaskRouter

	// Status and Checks feed /status; both may be nil.
	Status admin.ServiceLister
	Checks map[string]admin.Pinger
}

// CommandHandler is the main handler that coordinates all bot commands
type CommandHandler struct {
	session        *discordgo.Session
	deps           HandlerDeps
	router         *core.CommandRouter
	commandManager *core.CommandManager
}

// NewCommandHandler creates a new CommandHandler instance
func NewCommandHandler(session *discordgo.Session, deps HandlerDeps) *CommandHandler {
	return &CommandHandler{session: session, deps: deps}
}

// Register builds the router with every command and the component router, without
// talking to Discord. SetupCommands calls it when needed.
func (ch *CommandHandler) Register() error {
	if ch.router != nil {
		return nil
	}
	var locales core.LocaleResolver
	if ch.deps.Store != nil {
		locales = ch.deps.Store
	}
	builder := core.NewContextBuilder(ch.session, ch.deps.Catalog, locales, ch.deps.DefaultLocale)
	router := core.NewCommandRouter(ch.session, builder)
	router.SetComponentHandler(interaction.NewRouter(ch.deps.Prompts, ch.deps.Actions))

	cmds := boards.NewCommands(boards.Deps{
		Session: ch.session,
		Board:   ch.deps.Board,
		Store:   ch.deps.Store,
		Prompts: ch.deps.Prompts,
		Actions: ch.deps.Actions,
		Tasks:   ch.deps.Tasks,
		Catalog: ch.deps.Catalog,
	})
	if err := cmds.Register(router); err != nil {
		return fmt.Errorf("failed to register board commands: %w", err)
	}
	admin.NewStatusCommands(ch.deps.Status, ch.deps.Tasks, ch.deps.Checks).RegisterCommands(router)

	ch.router = router
	ch.commandManager = core.NewCommandManager(ch.session, router)
	return nil
}

// SetupCommands initializes and registers all bot commands
func (ch *CommandHandler) SetupCommands() error {
	log.ApplicationLogger().Info("Setting up bot commands...")

	if err := ch.Register(); err != nil {
		return err
	}

	// Configure commands on Discord
	if err := ch.commandManager.SetupCommands(); err != nil {
		return fmt.Errorf("failed to setup commands: %w", err)
	}

	log.ApplicationLogger().Info("Bot commands setup completed successfully", "commands", len(ch.router.GetRegistry().GetAllCommands()))
	return nil
}

// Shutdown performs cleanup for the command handler resources
func (ch *CommandHandler) Shutdown() error {
	log.ApplicationLogger().Info("Shutting down command handler...")
	return nil
}

// GetCommandManager returns the command manager (for tests or extensions)
func (ch *CommandHandler) GetCommandManager() *core.CommandManager {
	return ch.commandManager
}

// Router returns the command router, nil before Register.
func (ch *CommandHandler) Router() *core.CommandRouter {
	return ch.router
}
