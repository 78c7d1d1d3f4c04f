// Package interaction routes message component callbacks to prompts and actions.
package interaction

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/interaction/customid"
	"github.com/small-frappuccino/boardcore/pkg/interaction/prompt"
	"github.com/small-frappuccino/boardcore/pkg/tokenstore"
)

// Router decodes a component's custom id and hands the click to the owner of its namespace.
// It implements core.ComponentHandler.
type Router struct {
	prompts *prompt.Engine
	actions *action.Registry
}

// NewRouter wires the prompt engine and the action registry together.
func NewRouter(prompts *prompt.Engine, actions *action.Registry) *Router {
	return &Router{prompts: prompts, actions: actions}
}

var _ core.ComponentHandler = (*Router)(nil)

// HandleComponent routes one click. Expected failures become localized ephemeral replies;
// anything else is returned for the command router to report.
func (r *Router) HandleComponent(ctx *core.Context) error {
	data := ctx.Interaction.MessageComponentData()
	id, err := customid.Parse(data.CustomID)
	if err != nil {
		ctx.Logger.Warn("Unroutable component", "customID", data.CustomID, "error", err)
		return core.NewCommandError(ctx.Tr("errors.malformed", nil), true)
	}

	switch id.Namespace {
	case customid.NamespaceNone:
		return ctx.Acknowledge()
	case customid.NamespaceDelete:
		return r.deleteMessage(ctx)
	case customid.NamespacePrompt:
		err = r.prompts.Handle(ctx, prompt.Flavor(id.Flavor), prompt.Action(id.Action), data.Values)
	case customid.NamespaceAction:
		if id.FastPath() {
			err = r.actions.Dispatch(ctx, action.Kind(id.Kind), id.Extra, id.User, data.Values)
		} else {
			err = r.actions.Resolve(ctx, id.OpaqueID, id.Extra, data.Values)
		}
	}
	return r.translate(ctx, err)
}

func (r *Router) translate(ctx *core.Context, err error) error {
	if err == nil {
		return nil
	}
	var key string
	switch {
	case errors.Is(err, prompt.ErrPromptExpired):
		ctx.Logger.Debug("Click on expired prompt")
		return ctx.Respond(prompt.RenderExpiredNotice(ctx.T))
	case errors.Is(err, prompt.ErrConflict):
		key = "prompt.conflict"
	case errors.Is(err, prompt.ErrNotOwner):
		key = "prompt.not_owner"
	case errors.Is(err, action.ErrActionExpired):
		key = "action.expired"
	case errors.Is(err, action.ErrForbidden):
		key = "action.forbidden"
	case errors.Is(err, action.ErrMissingRequiredData):
		key = "action.missing_data"
	case errors.Is(err, action.ErrUnknownActionKind):
		ctx.Logger.Warn("Component references unknown action kind", "error", err)
		key = "action.unknown"
	case errors.Is(err, tokenstore.ErrUnavailable):
		ctx.Logger.Error("Token store unavailable", "error", err)
		key = "errors.unavailable"
	default:
		return err
	}
	return core.NewCommandError(ctx.Tr(key, nil), true)
}

// deleteMessage removes the clicked message when the clicker ran the command that produced
// it or may manage messages in the channel.
func (r *Router) deleteMessage(ctx *core.Context) error {
	msg := ctx.Interaction.Message
	if msg == nil {
		return ctx.Acknowledge()
	}
	if invoker := invokerOf(msg); invoker != ctx.UserID && !canManageMessages(ctx.Interaction) {
		return core.NewCommandError(ctx.Tr("action.delete_forbidden", nil), true)
	}
	return ctx.DeleteMessage()
}

func invokerOf(msg *discordgo.Message) string {
	if md := msg.InteractionMetadata; md != nil && md.User != nil {
		return md.User.ID
	}
	if mi := msg.Interaction; mi != nil && mi.User != nil {
		return mi.User.ID
	}
	return ""
}

func canManageMessages(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&(discordgo.PermissionManageMessages|discordgo.PermissionAdministrator) != 0
}
