// Package boards holds the slash commands that browse and manage a member's boards and the
// guild webhooks that relay board events. Multi-step flows run on prompts whose final
// choice hands off to the action kinds registered here.
package boards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/board"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/interaction/prompt"
	"github.com/small-frappuccino/boardcore/pkg/storage"
	"github.com/small-frappuccino/boardcore/pkg/task"
)

// Action kinds. The numbers are embedded in custom ids of live messages, so they never change.
const (
	KindSwitchBoard       action.Kind = 1
	KindArchiveCards      action.Kind = 2
	KindSetWebhookFilters action.Kind = 3
	KindRemoveWebhook     action.Kind = 4
)

// TaskArchiveCards is the task type of the archive follow-up.
const TaskArchiveCards = "boards.archive_cards"

const (
	linesPerPage      = 10
	defaultArchiveFan = 4
)

// Store is the persistence the commands need. *storage.Store implements it.
type Store interface {
	GetUser(ctx context.Context, userID string) (*storage.UserRecord, error)
	UpsertUser(ctx context.Context, u storage.UserRecord) error
	SetCurrentBoard(ctx context.Context, userID, boardID string) error
	SetUserLocale(ctx context.Context, userID, locale string) error
	GetGuild(ctx context.Context, guildID string) (*storage.GuildRecord, error)
	UpsertGuild(ctx context.Context, g storage.GuildRecord) error
	GetWebhook(ctx context.Context, guildID, id string) (*storage.WebhookRecord, error)
	ListWebhooks(ctx context.Context, guildID string) ([]storage.WebhookRecord, error)
	UpsertWebhook(ctx context.Context, w storage.WebhookRecord) error
	SetWebhookFilters(ctx context.Context, guildID, id string, filters board.WebhookFilters) error
	DeleteWebhook(ctx context.Context, guildID, id string) error
	CountWebhooks(ctx context.Context, guildID string) (int, error)
}

var _ Store = (*storage.Store)(nil)

// Deps are the collaborators shared by every command in the package.
type Deps struct {
	Session *discordgo.Session
	Board   board.Client
	Store   Store
	Prompts *prompt.Engine
	Actions *action.Registry
	Tasks   *task.TaskRouter
	Catalog *i18n.Catalog

	// ArchiveParallelism bounds concurrent archive calls per job. 0 uses 4.
	ArchiveParallelism int
}

// Commands registers and serves the board commands.
type Commands struct {
	deps Deps
}

func NewCommands(deps Deps) *Commands {
	if deps.ArchiveParallelism <= 0 {
		deps.ArchiveParallelism = defaultArchiveFan
	}
	return &Commands{deps: deps}
}

// Register adds the commands to router, the action kinds to the registry and the archive
// follow-up to the task router. It fails if a kind is already taken.
func (c *Commands) Register(router *core.CommandRouter) error {
	kinds := []struct {
		kind action.Kind
		h    action.HandlerFunc
	}{
		{KindSwitchBoard, action.HandlerFunc{NeedsData: true, Fn: c.handleSwitch}},
		{KindArchiveCards, action.HandlerFunc{NeedsData: true, Fn: c.handleArchive}},
		{KindSetWebhookFilters, action.HandlerFunc{Fn: c.handleSetFilters}},
		{KindRemoveWebhook, action.HandlerFunc{Fn: c.handleRemoveWebhook}},
	}
	for _, k := range kinds {
		if err := c.deps.Actions.Register(k.kind, k.h); err != nil {
			return fmt.Errorf("register board actions: %w", err)
		}
	}
	if c.deps.Tasks != nil {
		c.deps.Tasks.RegisterHandler(TaskArchiveCards, c.runArchive)
	}

	router.RegisterCommand(c.linkCommand())
	router.RegisterCommand(c.boardsCommand())
	router.RegisterCommand(c.switchCommand())
	router.RegisterCommand(c.archiveCommand())
	router.RegisterCommand(c.attachmentsCommand())
	router.RegisterCommand(c.webhookCommand(router.GetPermissionChecker()))
	router.RegisterCommand(c.languageCommand(router.GetPermissionChecker()))
	router.RegisterAutocomplete("webhook", webhookAutocomplete{store: c.deps.Store})
	return nil
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

// linkedUser returns the invoker's record, or a user error when they never ran /link.
func (c *Commands) linkedUser(ctx *core.Context) (*storage.UserRecord, error) {
	u, err := c.deps.Store.GetUser(ctx.Context(), ctx.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil || u.Token == "" {
		return nil, core.NewCommandError(ctx.Tr("board.not_linked", nil), true)
	}
	return u, nil
}

// currentBoard resolves the board the invoker switched to.
func (c *Commands) currentBoard(ctx *core.Context, u *storage.UserRecord) (board.Board, error) {
	if u.BoardID == "" {
		return board.Board{}, core.NewCommandError(ctx.Tr("board.no_current", nil), true)
	}
	b, err := c.deps.Board.Board(ctx.Context(), u.Token, u.BoardID)
	if err != nil {
		return board.Board{}, boardError(ctx, err)
	}
	return b, nil
}

// boardError turns expected board API failures into localized user errors.
func boardError(ctx *core.Context, err error) error {
	switch {
	case errors.Is(err, board.ErrUnauthorized):
		return core.NewCommandError(ctx.Tr("board.unauthorized", nil), true)
	case errors.Is(err, board.ErrNotFound):
		return core.NewCommandError(ctx.Tr("board.not_found", nil), true)
	case errors.Is(err, board.ErrRateLimited), errors.Is(err, board.ErrUnavailable):
		ctx.Logger.Warn("Board API unavailable", "error", err)
		return core.NewCommandError(ctx.Tr("board.unavailable", nil), true)
	default:
		return fmt.Errorf("board api: %w", err)
	}
}

// paginate groups lines into pages of at most n lines.
func paginate(lines []string, n int) []string {
	var pages []string
	for start := 0; start < len(lines); start += n {
		end := min(start+n, len(lines))
		pages = append(pages, strings.Join(lines[start:end], "\n"))
	}
	return pages
}

func info(ctx *core.Context, title, description string) error {
	return ctx.Respond(core.Reply{
		Embeds:    []*discordgo.MessageEmbed{core.Embed(core.ResponseInfo, title, description)},
		Ephemeral: true,
	})
}
