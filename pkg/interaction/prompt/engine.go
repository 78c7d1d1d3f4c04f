package prompt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/metrics"
	"github.com/small-frappuccino/boardcore/pkg/tokenstore"
)

// Key is the token store key of the prompt attached to a message.
func Key(messageID string) string { return "prompt:" + messageID }

// Engine sends prompts and applies their callbacks.
type Engine struct {
	store   tokenstore.Store
	actions *action.Registry
	ttl     time.Duration
}

// NewEngine creates an engine. actions may be nil when no prompt links an action.
func NewEngine(store tokenstore.Store, actions *action.Registry, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = tokenstore.DefaultTTL
	}
	return &Engine{store: store, actions: actions, ttl: ttl}
}

// Send renders s as the interaction's reply and stores it under the created message. The
// prompt belongs to the invoking user. When the state cannot be stored the message loses
// its controls and the linked action is discarded, so neither half outlives the other.
func (e *Engine) Send(ctx *core.Context, s State) (string, error) {
	if s.Body == nil || s.PageCount() == 0 {
		return "", ErrEmpty
	}
	s.UserID = ctx.UserID
	s.Version = 0
	s.Page = clampPage(s.Page, s.PageCount())

	msg, err := ctx.SendMessage(Render(s, ctx.T))
	if err != nil {
		e.discard(ctx.Context(), s.ActionID)
		return "", fmt.Errorf("send prompt: %w", err)
	}
	if err := e.store.Put(ctx.Context(), Key(msg.ID), s, e.ttl); err != nil {
		e.discard(ctx.Context(), s.ActionID)
		if editErr := ctx.Edit(Stripped(msg)); editErr != nil {
			ctx.Logger.Warn("Failed to strip prompt after store failure", "messageID", msg.ID, "error", editErr)
		}
		return "", fmt.Errorf("store prompt: %w", err)
	}
	ctx.Logger.Debug("Prompt sent", "messageID", msg.ID, "flavor", s.Flavor.String(), "pages", s.PageCount())
	return msg.ID, nil
}

// Handle applies one component callback to the prompt of the clicked message.
func (e *Engine) Handle(ctx *core.Context, flavor Flavor, act Action, values []string) error {
	msg := ctx.Interaction.Message
	if msg == nil {
		return ErrPromptExpired
	}
	key := Key(msg.ID)
	std := ctx.Context()

	var s State
	found, err := e.store.Get(std, key, &s)
	if err != nil {
		return err
	}
	if !found {
		return e.expired(ctx, flavor, act, msg)
	}
	if s.UserID != "" && s.UserID != ctx.UserID {
		return ErrNotOwner
	}
	if s.Flavor != flavor {
		ctx.Logger.Warn("Prompt flavor mismatch", "messageID", msg.ID, "stored", s.Flavor.String(), "clicked", flavor.String())
		return ctx.Acknowledge()
	}

	next, res := Apply(s, act, values)
	metrics.PromptTransitions.WithLabelValues(s.Flavor.String(), act.String()).Inc()

	switch res.Outcome {
	case OutcomeNoop:
		return ctx.Acknowledge()

	case OutcomeRender:
		next.Version = s.Version + 1
		if err := e.store.Swap(std, key, s.Version, next, e.ttl); err != nil {
			return e.swapError(err)
		}
		if err := e.touch(std, s.ActionID); err != nil {
			ctx.Logger.Warn("Failed to extend linked action", "actionID", s.ActionID, "error", err)
		}
		return ctx.Update(Render(next, ctx.T))

	case OutcomeStop:
		if err := e.store.Delete(std, key); err != nil {
			return err
		}
		e.discard(std, s.ActionID)
		return e.dismiss(ctx, s.Ephemeral)

	case OutcomeHandoff:
		if len(res.Values) == 0 && s.ActionID != "" && e.actions != nil {
			// Keep the prompt alive so the user can still pick something.
			need, err := e.actions.NeedsData(std, s.ActionID)
			if err != nil {
				return err
			}
			if need {
				return action.ErrMissingRequiredData
			}
		}
		var taken State
		ok, err := e.store.Take(std, key, &taken)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent callback finished the prompt first.
			return ErrPromptExpired
		}
		if taken.Version != s.Version {
			// A select landed between the read and the take; hand off what it stored.
			s = taken
			if _, again := Apply(taken, act, values); again.Outcome == OutcomeHandoff {
				res = again
			}
		}
		if s.ActionID != "" && e.actions != nil {
			if err := e.actions.Resolve(ctx, s.ActionID, "", res.Values); err != nil {
				return err
			}
		}
		if ctx.Responded() {
			return nil
		}
		return ctx.Update(RenderCompleted(s, ctx.T))
	}
	return ctx.Acknowledge()
}

// expired handles a click on a message whose state is gone. Stop still dismisses. Anything
// else strips the controls of a persistent message and reports ErrPromptExpired so the
// caller can send the notice.
func (e *Engine) expired(ctx *core.Context, flavor Flavor, act Action, msg *discordgo.Message) error {
	ephemeral := msg.Flags&discordgo.MessageFlagsEphemeral != 0
	if act == ActionStop {
		return e.dismiss(ctx, ephemeral)
	}
	metrics.PromptExpired.WithLabelValues(flavor.String()).Inc()
	if !ephemeral {
		if err := ctx.Update(Stripped(msg)); err != nil {
			ctx.Logger.Warn("Failed to strip expired prompt", "messageID", msg.ID, "error", err)
		}
	}
	return ErrPromptExpired
}

func (e *Engine) dismiss(ctx *core.Context, ephemeral bool) error {
	if ephemeral {
		return ctx.Update(RenderDismissed(ctx.T))
	}
	return ctx.DeleteMessage()
}

func (e *Engine) swapError(err error) error {
	switch {
	case errors.Is(err, tokenstore.ErrVersionMismatch):
		metrics.PromptConflicts.Inc()
		return ErrConflict
	case errors.Is(err, tokenstore.ErrNotFound):
		return ErrPromptExpired
	default:
		return err
	}
}

func (e *Engine) touch(ctx context.Context, actionID string) error {
	if e.actions == nil {
		return nil
	}
	return e.actions.Touch(ctx, actionID)
}

func (e *Engine) discard(ctx context.Context, actionID string) {
	if e.actions == nil || actionID == "" {
		return
	}
	_ = e.actions.Discard(ctx, actionID)
}
