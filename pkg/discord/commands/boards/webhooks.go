package boards

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/board"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/discord/webhook"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/interaction/customid"
	"github.com/small-frappuccino/boardcore/pkg/interaction/prompt"
	"github.com/small-frappuccino/boardcore/pkg/storage"
	"github.com/small-frappuccino/boardcore/pkg/theme"
)

const webhookIDLength = 8

func (c *Commands) webhookCommand(checker *core.PermissionChecker) core.Command {
	group := core.NewGroupCommand("webhook", "Manage the board webhooks of this server", checker)
	idOption := stringOption("id", "Webhook id", true)
	idOption.Autocomplete = true

	group.AddSubCommand(core.NewSimpleCommand("list", "List the webhooks of this server", nil, c.handleWebhookList, true, false))
	group.AddSubCommand(core.NewSimpleCommand("add", "Relay your current board's events to a Discord webhook",
		[]*discordgo.ApplicationCommandOption{
			stringOption("url", "Discord webhook URL", true),
			stringOption("remote", "Id of the board-side webhook registration, if any", false),
		}, c.handleWebhookAdd, true, true))
	group.AddSubCommand(core.NewSimpleCommand("filters", "Choose which events a webhook receives",
		[]*discordgo.ApplicationCommandOption{idOption}, c.handleWebhookFilters, true, true))
	group.AddSubCommand(core.NewSimpleCommand("remove", "Remove a webhook",
		[]*discordgo.ApplicationCommandOption{idOption}, c.handleWebhookRemove, true, true))
	return group
}

// requireWebhook loads a webhook of the invoking guild or fails with a user error.
func (c *Commands) requireWebhook(ctx *core.Context, id string) (*storage.WebhookRecord, error) {
	rec, err := c.deps.Store.GetWebhook(ctx.Context(), ctx.GuildID, id)
	if err != nil {
		return nil, fmt.Errorf("load webhook: %w", err)
	}
	if rec == nil {
		return nil, core.NewCommandError(ctx.Tr("board.webhook_not_found", map[string]any{"id": id}), true)
	}
	return rec, nil
}

func targetOf(rec *storage.WebhookRecord) webhook.Target {
	return webhook.Target{ID: rec.DiscordWebhookID, Token: rec.DiscordWebhookToken}
}

func (c *Commands) handleWebhookList(ctx *core.Context) error {
	hooks, err := c.deps.Store.ListWebhooks(ctx.Context(), ctx.GuildID)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}
	if len(hooks) == 0 {
		return info(ctx, ctx.Tr("board.webhooks_title", nil), ctx.Tr("board.no_webhooks", nil))
	}
	lines := make([]string, 0, len(hooks))
	for _, h := range hooks {
		lines = append(lines, ctx.Tr("board.webhook_line", map[string]any{
			"id":      h.ID,
			"channel": h.ChannelID,
			"count":   h.Filters.Len(),
		}))
	}
	s, err := prompt.NewList(paginate(lines, linesPerPage), prompt.Display{
		Title: ctx.Tr("board.webhooks_title", nil),
		Color: theme.Webhook(),
	})
	if err != nil {
		return err
	}
	_, err = c.deps.Prompts.Send(ctx, s)
	return err
}

func (c *Commands) handleWebhookAdd(ctx *core.Context) error {
	opts := core.NewOptionExtractor(core.GetSubCommandOptions(ctx.Interaction))
	rawURL, err := opts.StringRequired("url")
	if err != nil {
		return err
	}
	target, err := webhook.ParseURL(rawURL)
	if err != nil {
		return core.NewCommandError(ctx.Tr("board.webhook_invalid", map[string]any{"reason": err.Error()}), true)
	}

	u, err := c.linkedUser(ctx)
	if err != nil {
		return err
	}
	b, err := c.currentBoard(ctx, u)
	if err != nil {
		return err
	}

	limit := storage.DefaultMaxWebhooks
	if g, err := c.deps.Store.GetGuild(ctx.Context(), ctx.GuildID); err != nil {
		return fmt.Errorf("load guild: %w", err)
	} else if g != nil && g.MaxWebhooks > 0 {
		limit = g.MaxWebhooks
	}
	count, err := c.deps.Store.CountWebhooks(ctx.Context(), ctx.GuildID)
	if err != nil {
		return fmt.Errorf("count webhooks: %w", err)
	}
	if count >= limit {
		return core.NewCommandError(ctx.Tr("board.webhook_limit", map[string]any{"max": limit}), true)
	}

	wh, err := webhook.Validate(ctx.Context(), c.deps.Session, target)
	if err != nil {
		var whErr *webhook.Error
		if errors.As(err, &whErr) {
			ctx.Logger.Warn("Webhook rejected", "webhookID", target.ID, "class", whErr.Class)
			return core.NewCommandError(ctx.Tr("board.webhook_unreachable", map[string]any{"reason": string(whErr.Class)}), true)
		}
		return err
	}

	id, err := c.newWebhookID(ctx)
	if err != nil {
		return err
	}
	rec := storage.WebhookRecord{
		ID:                  id,
		GuildID:             ctx.GuildID,
		BoardID:             b.ID,
		ChannelID:           wh.ChannelID,
		RemoteID:            opts.String("remote"),
		DiscordWebhookID:    target.ID,
		DiscordWebhookToken: target.Token,
		Filters:             board.DefaultWebhookFilters(),
		Active:              true,
		CreatedAt:           time.Now().UTC(),
	}
	if err := c.deps.Store.UpsertWebhook(ctx.Context(), rec); err != nil {
		return fmt.Errorf("save webhook: %w", err)
	}
	ctx.Logger.Info("Webhook added", "webhook", id, "board", b.ID, "channelID", wh.ChannelID)

	announce := &discordgo.MessageEmbed{
		Title:       ctx.Tr("board.webhook_connected_title", nil),
		Description: ctx.Tr("board.webhook_connected", map[string]any{"name": b.Name}),
		Color:       theme.Webhook(),
	}
	if err := webhook.Announce(ctx.Context(), c.deps.Session, target, announce); err != nil {
		ctx.Logger.Warn("Failed to announce webhook", "webhook", id, "error", err)
	}

	return ctx.Respond(core.Reply{
		Embeds: []*discordgo.MessageEmbed{core.Embed(core.ResponseSuccess, ctx.Tr("board.webhooks_title", nil),
			ctx.Tr("board.webhook_added", map[string]any{"id": id, "name": b.Name}))},
		Ephemeral: true,
	})
}

// newWebhookID picks a short id that is free in the guild.
func (c *Commands) newWebhookID(ctx *core.Context) (string, error) {
	for range 5 {
		id := action.NewOpaqueID()[:webhookIDLength]
		existing, err := c.deps.Store.GetWebhook(ctx.Context(), ctx.GuildID, id)
		if err != nil {
			return "", fmt.Errorf("check webhook id: %w", err)
		}
		if existing == nil {
			return id, nil
		}
	}
	return "", errors.New("could not allocate a webhook id")
}

func (c *Commands) handleWebhookFilters(ctx *core.Context) error {
	id, err := core.NewOptionExtractor(core.GetSubCommandOptions(ctx.Interaction)).StringRequired("id")
	if err != nil {
		return err
	}
	rec, err := c.requireWebhook(ctx, id)
	if err != nil {
		return err
	}

	groups := make([]prompt.Group, 0)
	for _, g := range board.FilterGroups() {
		options := make([]prompt.Option, 0, len(g.Flags))
		for _, flag := range g.Flags {
			options = append(options, prompt.Option{Label: board.FlagLabel(flag), Value: flag})
		}
		groups = append(groups, prompt.Group{Key: g.Key, Label: ctx.Tr("board.groups."+g.Key, nil), Options: options})
	}
	s, err := prompt.NewFilter(groups, rec.Filters.Names(), prompt.Display{
		Title:       ctx.Tr("board.filters_title", nil),
		Description: ctx.Tr("board.filters_prompt", nil),
		Footer:      rec.ID,
		Color:       theme.Filter(),
	})
	if err != nil {
		return err
	}
	s.ActionID, err = c.deps.Actions.Create(ctx.Context(), KindSetWebhookFilters, ctx.UserID, map[string]any{
		"webhook": rec.ID,
		"guild":   rec.GuildID,
	})
	if err != nil {
		return err
	}
	s.Ephemeral = true
	_, err = c.deps.Prompts.Send(ctx, s)
	return err
}

// handleSetFilters stores the flags chosen in the filter editor. An empty selection mutes
// the webhook.
func (c *Commands) handleSetFilters(ctx *core.Context, a *action.Pending, data []string) error {
	id, guildID := a.String("webhook"), a.String("guild")
	filters, err := board.WebhookFiltersFromNames(data...)
	if err != nil {
		return fmt.Errorf("webhook filters: %w", err)
	}
	rec, err := c.deps.Store.GetWebhook(ctx.Context(), guildID, id)
	if err != nil {
		return fmt.Errorf("load webhook: %w", err)
	}
	if rec == nil {
		return core.NewCommandError(ctx.Tr("board.webhook_not_found", map[string]any{"id": id}), true)
	}
	if err := c.deps.Store.SetWebhookFilters(ctx.Context(), guildID, id, filters); err != nil {
		return fmt.Errorf("save webhook filters: %w", err)
	}
	ctx.Logger.Info("Webhook filters saved", "webhook", id, "events", filters.Len())

	saved := ctx.Tr("board.filters_saved", map[string]any{"count": filters.Len(), "id": id})
	announce := &discordgo.MessageEmbed{
		Title:       ctx.Tr("board.filters_updated_title", nil),
		Description: saved,
		Color:       theme.Webhook(),
	}
	if err := webhook.Announce(ctx.Context(), c.deps.Session, targetOf(rec), announce); err != nil {
		ctx.Logger.Warn("Failed to announce filter change", "webhook", id, "error", err)
	}
	return ctx.Update(core.Reply{
		Embeds: []*discordgo.MessageEmbed{core.Embed(core.ResponseSuccess, ctx.Tr("board.filters_title", nil), saved)},
	})
}

func (c *Commands) handleWebhookRemove(ctx *core.Context) error {
	id, err := core.NewOptionExtractor(core.GetSubCommandOptions(ctx.Interaction)).StringRequired("id")
	if err != nil {
		return err
	}
	rec, err := c.requireWebhook(ctx, id)
	if err != nil {
		return err
	}
	confirmID, err := customid.FastAction(int(KindRemoveWebhook), rec.ID, ctx.UserID)
	if err != nil {
		return err
	}
	return ctx.Respond(core.Reply{
		Embeds: []*discordgo.MessageEmbed{core.Embed(core.ResponseWarning, ctx.Tr("board.webhooks_title", nil),
			ctx.Tr("board.remove_confirm", map[string]any{"id": rec.ID}))},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: ctx.Tr("board.remove_button", nil), Style: discordgo.DangerButton, CustomID: confirmID},
			discordgo.Button{Label: ctx.Tr("board.cancel_button", nil), Style: discordgo.SecondaryButton, CustomID: customid.Delete},
		}}},
	})
}

// handleRemoveWebhook runs from the confirmation button. Each side tolerates a webhook that
// is already gone, so a repeated click converges.
func (c *Commands) handleRemoveWebhook(ctx *core.Context, a *action.Pending, _ []string) error {
	id := a.Extra
	rec, err := c.requireWebhook(ctx, id)
	if err != nil {
		return err
	}
	if rec.RemoteID != "" {
		if u, err := c.deps.Store.GetUser(ctx.Context(), ctx.UserID); err != nil {
			return fmt.Errorf("load user: %w", err)
		} else if u != nil && u.Token != "" {
			if err := c.deps.Board.DeleteWebhook(ctx.Context(), u.Token, rec.RemoteID); err != nil && !errors.Is(err, board.ErrNotFound) {
				return boardError(ctx, err)
			}
		}
	}
	if err := webhook.Delete(ctx.Context(), c.deps.Session, targetOf(rec)); err != nil {
		return fmt.Errorf("delete discord webhook: %w", err)
	}
	if err := c.deps.Store.DeleteWebhook(ctx.Context(), ctx.GuildID, id); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	ctx.Logger.Info("Webhook removed", "webhook", id)
	return ctx.Update(core.Reply{
		Embeds: []*discordgo.MessageEmbed{core.Embed(core.ResponseSuccess, ctx.Tr("board.webhooks_title", nil),
			ctx.Tr("board.webhook_removed", map[string]any{"id": id}))},
	})
}

// webhookAutocomplete suggests webhook ids of the invoking guild.
type webhookAutocomplete struct {
	store Store
}

func (w webhookAutocomplete) HandleAutocomplete(ctx *core.Context, focused string) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	if focused != "id" || ctx.GuildID == "" {
		return []*discordgo.ApplicationCommandOptionChoice{}, nil
	}
	hooks, err := w.store.ListWebhooks(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, err
	}
	typed := ""
	if opt, ok := core.HasFocusedOption(core.GetSubCommandOptions(ctx.Interaction)); ok {
		typed = strings.ToLower(opt.StringValue())
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(hooks))
	for _, h := range hooks {
		if typed != "" && !strings.HasPrefix(h.ID, typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s (#%s)", h.ID, h.ChannelID),
			Value: h.ID,
		})
		if len(choices) == 25 {
			break
		}
	}
	return choices, nil
}
