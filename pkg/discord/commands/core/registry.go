package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/log"
)

// handlerTimeout bounds the work done for a single interaction, deferred follow-ups excluded.
const handlerTimeout = 10 * time.Second

// CommandRouter gerencia o roteamento e execução de comandos e componentes
type CommandRouter struct {
	registry        *CommandRegistry
	contextBuilder  *ContextBuilder
	permChecker     *PermissionChecker
	autocompleteMap map[string]AutocompleteHandler
	components      ComponentHandler
}

// NewCommandRouter cria um novo roteador de comandos
func NewCommandRouter(session *discordgo.Session, builder *ContextBuilder) *CommandRouter {
	if builder == nil {
		builder = NewContextBuilder(session, nil, nil, "")
	}
	return &CommandRouter{
		registry:        NewCommandRegistry(),
		contextBuilder:  builder,
		permChecker:     NewPermissionChecker(session),
		autocompleteMap: make(map[string]AutocompleteHandler),
	}
}

// RegisterCommand registra um comando simples
func (cr *CommandRouter) RegisterCommand(cmd Command) {
	cr.registry.Register(cmd)
}

// RegisterAutocomplete registra um handler de autocomplete
func (cr *CommandRouter) RegisterAutocomplete(commandName string, handler AutocompleteHandler) {
	cr.autocompleteMap[commandName] = handler
}

// SetComponentHandler define quem recebe interações de componentes
func (cr *CommandRouter) SetComponentHandler(h ComponentHandler) {
	cr.components = h
}

// HandleInteraction roteia interações para os handlers apropriados
func (cr *CommandRouter) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	std, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	ctx := cr.contextBuilder.BuildContext(std, i)
	defer recoverInteraction(ctx)

	switch {
	case IsAutocompleteInteraction(i):
		cr.handleAutocomplete(ctx)
	case IsSlashCommandInteraction(i):
		cr.handleSlashCommand(ctx)
	case IsComponentInteraction(i):
		cr.handleComponent(ctx)
	}
}

// recoverInteraction keeps a panicking handler from taking the gateway goroutine down.
func recoverInteraction(ctx *Context) {
	r := recover()
	if r == nil {
		return
	}
	log.ErrorLoggerRaw().Error("Interaction handler panicked",
		"panic", fmt.Sprint(r),
		"userID", ctx.UserID,
		"guildID", ctx.GuildID,
		"stack", string(debug.Stack()),
	)
	_ = ctx.Error(ctx.Tr("errors.generic", nil))
}

// handleSlashCommand processa comandos slash
func (cr *CommandRouter) handleSlashCommand(ctx *Context) {
	commandName := ctx.Interaction.ApplicationCommandData().Name
	logger := ctx.Logger.With("command", GetCommandPath(ctx.Interaction))

	logger.Debug("Processing slash command")

	cmd, exists := cr.registry.GetCommand(commandName)
	if !exists {
		logger.Error("Command not found")
		_ = ctx.Error(ctx.Tr("errors.command_not_found", nil))
		return
	}

	if cmd.RequiresGuild() && ctx.GuildID == "" {
		logger.Warn("Command used outside of guild")
		_ = ctx.Error(ctx.Tr("errors.guild_only", nil))
		return
	}

	if cmd.RequiresPermissions() && !cr.permChecker.HasPermission(ctx.Interaction) {
		logger.Warn("User without permission tried to use command")
		_ = ctx.Error(ctx.Tr("errors.no_permission", nil))
		return
	}

	logger.Info("Executing command")
	if err := cmd.Handle(ctx); err != nil {
		cr.reportError(ctx, logger, err)
	}
}

// handleComponent entrega cliques de botões e menus ao handler de componentes
func (cr *CommandRouter) handleComponent(ctx *Context) {
	if cr.components == nil {
		_ = ctx.Acknowledge()
		return
	}
	logger := ctx.Logger.With("customID", ctx.Interaction.MessageComponentData().CustomID)
	if err := cr.components.HandleComponent(ctx); err != nil {
		cr.reportError(ctx, logger, err)
	}
}

// reportError maps a handler error to an ephemeral reply.
func (cr *CommandRouter) reportError(ctx *Context, logger *slog.Logger, err error) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		logger.Warn("Command returned user error", "error", err)
		if cmdErr.Ephemeral {
			_ = ctx.Error(cmdErr.Message)
		} else {
			_ = ctx.Respond(Reply{Content: formatTextMessage(cmdErr.Message, ResponseError)})
		}
		return
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		logger.Warn("Command validation failed", "field", valErr.Field, "error", err)
		_ = ctx.Error(valErr.Message)
		return
	}
	logger.Error("Command execution failed", "error", err)
	_ = ctx.Error(ctx.Tr("errors.generic", nil))
}

// handleAutocomplete processa interações de autocomplete
func (cr *CommandRouter) handleAutocomplete(ctx *Context) {
	commandName := ctx.Interaction.ApplicationCommandData().Name

	handler, exists := cr.autocompleteMap[commandName]
	if !exists {
		_ = ctx.Autocomplete([]*discordgo.ApplicationCommandOptionChoice{})
		return
	}

	focusedOpt, hasFocus := HasFocusedOption(ctx.Interaction.ApplicationCommandData().Options)
	if !hasFocus {
		_ = ctx.Autocomplete([]*discordgo.ApplicationCommandOptionChoice{})
		return
	}

	choices, err := handler.HandleAutocomplete(ctx, focusedOpt.Name)
	if err != nil {
		ctx.Logger.Error("Autocomplete handler failed", "error", err)
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}

	_ = ctx.Autocomplete(choices)
}

// GetRegistry returns the command registry
func (cr *CommandRouter) GetRegistry() *CommandRegistry {
	return cr.registry
}

// GetPermissionChecker returns the permission checker
func (cr *CommandRouter) GetPermissionChecker() *PermissionChecker {
	return cr.permChecker
}

// CommandManager gerencia o ciclo de vida dos comandos no Discord
type CommandManager struct {
	session *discordgo.Session
	router  *CommandRouter
	logger  *slog.Logger
}

// NewCommandManager cria um novo gerenciador de comandos
func NewCommandManager(session *discordgo.Session, router *CommandRouter) *CommandManager {
	return &CommandManager{
		session: session,
		router:  router,
		logger:  log.ApplicationLogger().With("component", "command_manager"),
	}
}

// GetRouter retorna o roteador de comandos
func (cm *CommandManager) GetRouter() *CommandRouter {
	return cm.router
}

// SetupCommands registra o handler de interações e sincroniza comandos com o Discord
func (cm *CommandManager) SetupCommands() error {
	cm.session.AddHandler(cm.router.HandleInteraction)

	appID := cm.session.State.User.ID
	registered, err := cm.session.ApplicationCommands(appID, "")
	if err != nil {
		return fmt.Errorf("failed to fetch registered commands: %w", err)
	}

	regByName := make(map[string]*discordgo.ApplicationCommand, len(registered))
	for _, rc := range registered {
		regByName[rc.Name] = rc
	}

	codeCommands := cm.router.registry.GetAllCommands()

	created, updated, unchanged := 0, 0, 0
	for name, cmd := range codeCommands {
		desired := &discordgo.ApplicationCommand{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options:     cmd.Options(),
		}

		if existing, ok := regByName[name]; ok {
			if CompareCommands(existing, desired) {
				cm.logger.Debug("Command unchanged, skipping", "command", name)
				unchanged++
				continue
			}
			if _, err := cm.session.ApplicationCommandEdit(appID, "", existing.ID, desired); err != nil {
				return fmt.Errorf("error updating command '%s': %w", name, err)
			}
			cm.logger.Info("Command updated", "command", name)
			updated++
		} else {
			if _, err := cm.session.ApplicationCommandCreate(appID, "", desired); err != nil {
				return fmt.Errorf("error creating command '%s': %w", name, err)
			}
			cm.logger.Info("Command created", "command", name)
			created++
		}
	}

	// Remover comandos órfãos (existem no Discord mas não no código)
	deleted := 0
	for _, rc := range registered {
		if _, exists := codeCommands[rc.Name]; exists {
			continue
		}
		if err := cm.session.ApplicationCommandDelete(appID, "", rc.ID); err != nil {
			cm.logger.Warn("Error removing orphan command", "command", rc.Name, "error", err)
			continue
		}
		cm.logger.Info("Orphan command removed", "command", rc.Name)
		deleted++
	}

	cm.logger.Info("Command synchronization completed",
		"created", created,
		"updated", updated,
		"deleted", deleted,
		"unchanged", unchanged,
		"total", len(codeCommands),
	)
	return nil
}

// GroupCommand representa um comando que contém subcomandos
type GroupCommand struct {
	name        string
	description string
	subcommands map[string]SubCommand
	order       []string
	checker     *PermissionChecker
}

// NewGroupCommand cria um novo comando de grupo
func NewGroupCommand(name, description string, checker *PermissionChecker) *GroupCommand {
	return &GroupCommand{
		name:        name,
		description: description,
		subcommands: make(map[string]SubCommand),
		checker:     checker,
	}
}

// AddSubCommand adiciona um subcomando ao grupo
func (gc *GroupCommand) AddSubCommand(subcmd SubCommand) {
	if _, exists := gc.subcommands[subcmd.Name()]; !exists {
		gc.order = append(gc.order, subcmd.Name())
	}
	gc.subcommands[subcmd.Name()] = subcmd
}

func (gc *GroupCommand) Name() string        { return gc.name }
func (gc *GroupCommand) Description() string { return gc.description }

// Options constrói as opções do comando baseadas nos subcomandos, na ordem de registro
func (gc *GroupCommand) Options() []*discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(gc.order))
	for _, name := range gc.order {
		subcmd := gc.subcommands[name]
		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        subcmd.Name(),
			Description: subcmd.Description(),
			Options:     subcmd.Options(),
		})
	}
	return options
}

// RequiresGuild verifica se algum subcomando requer servidor
func (gc *GroupCommand) RequiresGuild() bool {
	for _, subcmd := range gc.subcommands {
		if subcmd.RequiresGuild() {
			return true
		}
	}
	return false
}

// RequiresPermissions is checked per subcommand in Handle.
func (gc *GroupCommand) RequiresPermissions() bool { return false }

// Handle roteia para o subcomando apropriado
func (gc *GroupCommand) Handle(ctx *Context) error {
	subCommandName := GetSubCommandName(ctx.Interaction)
	if subCommandName == "" {
		return NewCommandError(ctx.Tr("errors.no_subcommand", nil), true)
	}

	subcmd, exists := gc.subcommands[subCommandName]
	if !exists {
		return NewCommandError(ctx.Tr("errors.unknown_subcommand", nil), true)
	}

	if subcmd.RequiresGuild() && ctx.GuildID == "" {
		return NewCommandError(ctx.Tr("errors.guild_only", nil), true)
	}

	if subcmd.RequiresPermissions() && (gc.checker == nil || !gc.checker.HasPermission(ctx.Interaction)) {
		return NewCommandError(ctx.Tr("errors.no_permission", nil), true)
	}

	return subcmd.Handle(ctx)
}

// SimpleCommand implementa Command para comandos simples
type SimpleCommand struct {
	name                string
	description         string
	options             []*discordgo.ApplicationCommandOption
	handler             func(ctx *Context) error
	requiresGuild       bool
	requiresPermissions bool
}

// NewSimpleCommand cria um comando simples
func NewSimpleCommand(
	name, description string,
	options []*discordgo.ApplicationCommandOption,
	handler func(ctx *Context) error,
	requiresGuild, requiresPermissions bool,
) *SimpleCommand {
	return &SimpleCommand{
		name:                name,
		description:         description,
		options:             options,
		handler:             handler,
		requiresGuild:       requiresGuild,
		requiresPermissions: requiresPermissions,
	}
}

func (sc *SimpleCommand) Name() string        { return sc.name }
func (sc *SimpleCommand) Description() string { return sc.description }
func (sc *SimpleCommand) Options() []*discordgo.ApplicationCommandOption {
	return sc.options
}
func (sc *SimpleCommand) Handle(ctx *Context) error { return sc.handler(ctx) }
func (sc *SimpleCommand) RequiresGuild() bool       { return sc.requiresGuild }
func (sc *SimpleCommand) RequiresPermissions() bool { return sc.requiresPermissions }
