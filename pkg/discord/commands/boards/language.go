package boards

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/storage"
)

func (c *Commands) languageCommand(checker *core.PermissionChecker) core.Command {
	code := stringOption("code", "Locale code", true)
	for _, l := range c.locales() {
		code.Choices = append(code.Choices, &discordgo.ApplicationCommandOptionChoice{Name: l, Value: l})
	}
	opts := []*discordgo.ApplicationCommandOption{code}

	group := core.NewGroupCommand("language", "Choose the language of the bot's replies", checker)
	group.AddSubCommand(core.NewSimpleCommand("me", "Set your own language", opts, c.handleUserLanguage, false, false))
	group.AddSubCommand(core.NewSimpleCommand("server", "Set the default language of this server", opts, c.handleGuildLanguage, true, true))
	return group
}

func (c *Commands) locales() []string {
	if c.deps.Catalog == nil {
		return nil
	}
	return c.deps.Catalog.Locales()
}

// localeOption reads the chosen code and rejects locales without a catalog.
func (c *Commands) localeOption(ctx *core.Context) (string, error) {
	code, err := core.NewOptionExtractor(core.GetSubCommandOptions(ctx.Interaction)).StringRequired("code")
	if err != nil {
		return "", err
	}
	if c.deps.Catalog == nil || !c.deps.Catalog.Supports(code) {
		return "", core.NewCommandError(ctx.Tr("language.unsupported", map[string]any{"locale": code}), true)
	}
	return code, nil
}

func (c *Commands) handleUserLanguage(ctx *core.Context) error {
	code, err := c.localeOption(ctx)
	if err != nil {
		return err
	}
	u, err := c.deps.Store.GetUser(ctx.Context(), ctx.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		err = c.deps.Store.UpsertUser(ctx.Context(), storage.UserRecord{UserID: ctx.UserID, Locale: code})
	} else {
		err = c.deps.Store.SetUserLocale(ctx.Context(), ctx.UserID, code)
	}
	if err != nil {
		return fmt.Errorf("save user locale: %w", err)
	}
	return c.languageSaved(ctx, code, "language.user_set")
}

func (c *Commands) handleGuildLanguage(ctx *core.Context) error {
	code, err := c.localeOption(ctx)
	if err != nil {
		return err
	}
	rec := storage.GuildRecord{GuildID: ctx.GuildID, Locale: code}
	if g, err := c.deps.Store.GetGuild(ctx.Context(), ctx.GuildID); err != nil {
		return fmt.Errorf("load guild: %w", err)
	} else if g != nil {
		rec.MaxWebhooks = g.MaxWebhooks
	}
	if err := c.deps.Store.UpsertGuild(ctx.Context(), rec); err != nil {
		return fmt.Errorf("save guild locale: %w", err)
	}
	return c.languageSaved(ctx, code, "language.guild_set")
}

// languageSaved confirms in the language just chosen.
func (c *Commands) languageSaved(ctx *core.Context, code, key string) error {
	ctx.Logger.Info("Locale changed", "locale", code, "scope", key)
	msg := c.deps.Catalog.Translator(code)(key, map[string]any{"locale": code})
	return ctx.Respond(core.Reply{
		Embeds:    []*discordgo.MessageEmbed{core.Embed(core.ResponseSuccess, "", msg)},
		Ephemeral: true,
	})
}
