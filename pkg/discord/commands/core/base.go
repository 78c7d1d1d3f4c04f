package core

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/log"
)

// LocaleResolver returns the locale stored for a user and for a guild. Empty means unset.
type LocaleResolver interface {
	PreferredLocales(ctx context.Context, userID, guildID string) (userLocale, guildLocale string)
}

// ContextBuilder creates contexts for command and component execution
type ContextBuilder struct {
	session       *discordgo.Session
	catalog       *i18n.Catalog
	locales       LocaleResolver
	defaultLocale string
}

// NewContextBuilder creates a new context builder. locales may be nil.
func NewContextBuilder(session *discordgo.Session, catalog *i18n.Catalog, locales LocaleResolver, defaultLocale string) *ContextBuilder {
	if defaultLocale == "" {
		defaultLocale = i18n.DefaultLocale
	}
	return &ContextBuilder{
		session:       session,
		catalog:       catalog,
		locales:       locales,
		defaultLocale: defaultLocale,
	}
}

// BuildContext creates a complete context for one interaction
func (cb *ContextBuilder) BuildContext(std context.Context, i *discordgo.InteractionCreate) *Context {
	userID := extractUserID(i)
	guildID := i.GuildID

	locale := cb.resolveLocale(std, i, userID, guildID)

	logger := log.DiscordLogger().With(
		"interactionID", i.ID,
		"userID", userID,
		"guildID", guildID,
	)

	ctx := &Context{
		Session:     cb.session,
		Interaction: i,
		Logger:      logger,
		GuildID:     guildID,
		UserID:      userID,
		Locale:      locale,
		std:         std,
	}
	if cb.catalog != nil {
		ctx.T = cb.catalog.Translator(locale)
	}
	return ctx
}

// resolveLocale walks user record, guild record, Discord locale, then the default.
func (cb *ContextBuilder) resolveLocale(std context.Context, i *discordgo.InteractionCreate, userID, guildID string) string {
	var userLocale, guildLocale string
	if cb.locales != nil {
		userLocale, guildLocale = cb.locales.PreferredLocales(std, userID, guildID)
	}
	candidates := []string{userLocale, guildLocale, string(i.Locale)}
	if i.GuildLocale != nil {
		candidates = append(candidates, string(*i.GuildLocale))
	}
	candidates = append(candidates, cb.defaultLocale)
	if cb.catalog == nil {
		for _, l := range candidates {
			if l != "" {
				return l
			}
		}
		return cb.defaultLocale
	}
	return cb.catalog.Resolve(candidates...)
}

// extractUserID extracts the user ID from the interaction
func extractUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	} else if i.User != nil {
		return i.User.ID
	}
	return ""
}

// GetSubCommandName extracts the subcommand name from the interaction
func GetSubCommandName(i *discordgo.InteractionCreate) string {
	options := i.ApplicationCommandData().Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Name
	}
	return ""
}

// GetSubCommandOptions extracts the subcommand options from the interaction
func GetSubCommandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Options
	}
	return options // Returns direct options if not a subcommand
}

// HasFocusedOption checks if there is a focused option (for autocomplete)
func HasFocusedOption(options []*discordgo.ApplicationCommandInteractionDataOption) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range options {
		if opt.Focused {
			return opt, true
		}
		// Checks recursively in subcommands
		if opt.Type == discordgo.ApplicationCommandOptionSubCommand && len(opt.Options) > 0 {
			if focused, found := HasFocusedOption(opt.Options); found {
				return focused, true
			}
		}
	}
	return nil, false
}

// GetCommandPath returns the full command path (command + subcommand if present)
func GetCommandPath(i *discordgo.InteractionCreate) string {
	path := i.ApplicationCommandData().Name

	subCmd := GetSubCommandName(i)
	if subCmd != "" {
		path += " " + subCmd
	}

	return path
}

// IsAutocompleteInteraction checks if the interaction is for autocomplete
func IsAutocompleteInteraction(i *discordgo.InteractionCreate) bool {
	return i.Type == discordgo.InteractionApplicationCommandAutocomplete
}

// IsSlashCommandInteraction checks if the interaction is a slash command
func IsSlashCommandInteraction(i *discordgo.InteractionCreate) bool {
	return i.Type == discordgo.InteractionApplicationCommand
}

// IsComponentInteraction checks if the interaction is a button or select menu
func IsComponentInteraction(i *discordgo.InteractionCreate) bool {
	return i.Type == discordgo.InteractionMessageComponent
}

// ValidateGuildContext validates if the context has the required server information
func ValidateGuildContext(ctx *Context) error {
	if ctx.GuildID == "" {
		return NewCommandError(ctx.Tr("errors.guild_only", nil), true)
	}
	return nil
}

// ValidateUserContext validates if the context has the required user information
func ValidateUserContext(ctx *Context) error {
	if ctx.UserID == "" {
		return NewCommandError(ctx.Tr("errors.no_user", nil), true)
	}
	return nil
}
