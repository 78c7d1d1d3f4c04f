package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
)

// Command representa um comando Discord
type Command interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresGuild() bool
	RequiresPermissions() bool
}

// SubCommand representa um subcomando dentro de um comando maior
type SubCommand interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresGuild() bool
	RequiresPermissions() bool
}

// ComponentHandler recebe cliques em botões e menus de seleção.
type ComponentHandler interface {
	HandleComponent(ctx *Context) error
}

// Context fornece contexto unificado para execução de comandos e componentes
type Context struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Logger      *slog.Logger
	GuildID     string
	UserID      string
	Locale      string
	T           i18n.Translator

	std context.Context

	mu        sync.Mutex
	responded bool
	deferred  bool
}

// Context returns the request-scoped context.Context.
func (c *Context) Context() context.Context {
	if c.std == nil {
		return context.Background()
	}
	return c.std
}

// WithContext replaces the request-scoped context.Context.
func (c *Context) WithContext(std context.Context) *Context {
	c.std = std
	return c
}

// Tr is T with a nil-safe fallback to the key.
func (c *Context) Tr(key string, params map[string]any) string {
	if c.T == nil {
		return i18n.Format(key, params)
	}
	return c.T(key, params)
}

// CommandRegistry gerencia registro e execução de comandos
type CommandRegistry struct {
	commands    map[string]Command
	subcommands map[string]map[string]SubCommand // [commandName][subcommandName]
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands:    make(map[string]Command),
		subcommands: make(map[string]map[string]SubCommand),
	}
}

// Register registra um comando no registry
func (r *CommandRegistry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// RegisterSubCommand registra um subcomando no registry
func (r *CommandRegistry) RegisterSubCommand(parentName string, subcmd SubCommand) {
	if r.subcommands[parentName] == nil {
		r.subcommands[parentName] = make(map[string]SubCommand)
	}
	r.subcommands[parentName][subcmd.Name()] = subcmd
}

// GetCommand retorna um comando pelo nome
func (r *CommandRegistry) GetCommand(name string) (Command, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetSubCommand retorna um subcomando pelo nome do comando pai e nome do subcomando
func (r *CommandRegistry) GetSubCommand(parentName, subName string) (SubCommand, bool) {
	if subs, exists := r.subcommands[parentName]; exists {
		if sub, exists := subs[subName]; exists {
			return sub, true
		}
	}
	return nil, false
}

// GetAllCommands retorna todos os comandos registrados
func (r *CommandRegistry) GetAllCommands() map[string]Command {
	return r.commands
}

// AutocompleteHandler define um handler para autocomplete
type AutocompleteHandler interface {
	HandleAutocomplete(ctx *Context, focusedOption string) ([]*discordgo.ApplicationCommandOptionChoice, error)
}

// CommandError representa erros específicos de comandos
type CommandError struct {
	Message   string
	Ephemeral bool
	Code      string
}

func (e *CommandError) Error() string {
	return e.Message
}

// NewCommandError cria um novo erro de comando
func NewCommandError(message string, ephemeral bool) *CommandError {
	return &CommandError{
		Message:   message,
		Ephemeral: ephemeral,
	}
}

// ValidationError representa erros de validação
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError cria um novo erro de validação
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
