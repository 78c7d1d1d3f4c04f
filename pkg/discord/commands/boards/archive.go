package boards

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/errutil"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/interaction/prompt"
	"github.com/small-frappuccino/boardcore/pkg/log"
	"github.com/small-frappuccino/boardcore/pkg/task"
	"github.com/small-frappuccino/boardcore/pkg/theme"
)

// archiveJob is the payload of TaskArchiveCards.
type archiveJob struct {
	Interaction *discordgo.Interaction
	Token       string
	BoardID     string
	CardIDs     []string
	T           i18n.Translator
}

func (c *Commands) archiveCommand() core.Command {
	return core.NewSimpleCommand("archive", "Archive cards of your current board", nil, c.handleArchiveCommand, false, false)
}

func (c *Commands) handleArchiveCommand(ctx *core.Context) error {
	u, err := c.linkedUser(ctx)
	if err != nil {
		return err
	}
	b, err := c.currentBoard(ctx, u)
	if err != nil {
		return err
	}
	cards, err := c.deps.Board.BoardCards(ctx.Context(), u.Token, b.ID)
	if err != nil {
		return boardError(ctx, err)
	}
	lists, err := c.deps.Board.BoardLists(ctx.Context(), u.Token, b.ID)
	if err != nil {
		return boardError(ctx, err)
	}
	listNames := make(map[string]string, len(lists))
	for _, l := range lists {
		listNames[l.ID] = l.Name
	}

	options := make([]prompt.Option, 0, len(cards))
	for _, card := range cards {
		if card.Closed {
			continue
		}
		options = append(options, prompt.Option{
			Label:       core.TruncateString(card.Name, 100),
			Value:       card.ID,
			Description: core.TruncateString(listNames[card.ListID], 100),
		})
	}
	if len(options) == 0 {
		return info(ctx, ctx.Tr("board.archive_title", nil), ctx.Tr("board.archive_none", nil))
	}

	s, err := prompt.NewSelect(options, nil, prompt.Display{
		Title:       ctx.Tr("board.archive_title", nil),
		Description: ctx.Tr("board.archive_prompt", nil),
		Footer:      b.Name,
		Color:       theme.Board(),
	})
	if err != nil {
		return err
	}
	s.ActionID, err = c.deps.Actions.Create(ctx.Context(), KindArchiveCards, ctx.UserID, map[string]any{"board": b.ID})
	if err != nil {
		return err
	}
	s.Ephemeral = true
	_, err = c.deps.Prompts.Send(ctx, s)
	return err
}

// handleArchive acknowledges the selection at once and leaves the remote calls to a task,
// which edits the same message when it is done.
func (c *Commands) handleArchive(ctx *core.Context, a *action.Pending, data []string) error {
	u, err := c.linkedUser(ctx)
	if err != nil {
		return err
	}
	if c.deps.Tasks == nil {
		return fmt.Errorf("archive cards: no task router")
	}

	working := core.Embed(core.ResponseLoading, ctx.Tr("board.archive_title", nil),
		ctx.Tr("board.archive_working", map[string]any{"count": len(data)}))
	if err := ctx.Update(core.Reply{Embeds: []*discordgo.MessageEmbed{working}}); err != nil {
		return err
	}

	job := archiveJob{
		Interaction: ctx.Interaction.Interaction,
		Token:       u.Token,
		BoardID:     a.String("board"),
		CardIDs:     append([]string(nil), data...),
		T:           ctx.T,
	}
	err = c.deps.Tasks.Dispatch(ctx.Context(), task.Task{
		Type:    TaskArchiveCards,
		Payload: job,
		Options: task.TaskOptions{
			GroupKey:       "archive:" + ctx.UserID,
			IdempotencyKey: "archive:" + ctx.Interaction.ID,
		},
	})
	if err != nil {
		return fmt.Errorf("dispatch archive: %w", err)
	}
	ctx.Logger.Info("Archive dispatched", "board", job.BoardID, "cards", len(job.CardIDs))
	return nil
}

// runArchive archives every card of the job, then reports the outcome on the prompt
// message. Archiving is idempotent, so a retry after a failed edit repeats it safely.
func (c *Commands) runArchive(ctx context.Context, payload any) error {
	job, ok := payload.(archiveJob)
	if !ok {
		return task.Permanent(fmt.Errorf("archive cards: unexpected payload %T", payload))
	}
	logger := log.ApplicationLogger().With("board", job.BoardID, "interactionID", job.Interaction.ID)

	started := time.Now()
	errs := task.ForEach(ctx, c.deps.ArchiveParallelism, job.CardIDs, func(ctx context.Context, cardID string) error {
		return c.deps.Board.ArchiveCard(ctx, job.Token, cardID)
	})
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			logger.Warn("Failed to archive card", "card", job.CardIDs[i], "error", err)
		}
	}
	archived := len(job.CardIDs) - failed
	logger.Info("Archive finished", "archived", archived, "failed", failed, "duration", time.Since(started).Round(time.Millisecond))

	tr := job.T
	if tr == nil {
		tr = func(key string, _ map[string]any) string { return key }
	}
	var embed *discordgo.MessageEmbed
	if failed == 0 {
		embed = core.Embed(core.ResponseSuccess, tr("board.archive_title", nil),
			tr("board.archived", map[string]any{"count": archived}))
	} else {
		embed = core.Embed(core.ResponseWarning, tr("board.archive_title", nil),
			tr("board.archive_partial", map[string]any{"count": archived, "failed": failed}))
	}

	_, err := core.EditOriginal(ctx, c.deps.Session, job.Interaction, core.Reply{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		if errutil.IsUnknownResource(err) {
			// The message was dismissed or the token lapsed; nothing left to report to.
			return task.Permanent(err)
		}
		return fmt.Errorf("report archive result: %w", err)
	}
	return nil
}
