package boards

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/board"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/interaction/prompt"
	"github.com/small-frappuccino/boardcore/pkg/storage"
	"github.com/small-frappuccino/boardcore/pkg/theme"
)

func (c *Commands) linkCommand() core.Command {
	return core.NewSimpleCommand("link", "Link your board account with an API token",
		[]*discordgo.ApplicationCommandOption{stringOption("token", "Your board API token", true)},
		c.handleLink, false, false)
}

func (c *Commands) handleLink(ctx *core.Context) error {
	token, err := core.NewOptionExtractor(ctx.Interaction.ApplicationCommandData().Options).StringRequired("token")
	if err != nil {
		return err
	}
	me, err := c.deps.Board.Me(ctx.Context(), token)
	if err != nil {
		if errors.Is(err, board.ErrUnauthorized) || errors.Is(err, board.ErrNotFound) {
			return core.NewCommandError(ctx.Tr("board.link_invalid", nil), true)
		}
		return boardError(ctx, err)
	}

	rec := storage.UserRecord{UserID: ctx.UserID, Token: token}
	if existing, err := c.deps.Store.GetUser(ctx.Context(), ctx.UserID); err != nil {
		return fmt.Errorf("load user: %w", err)
	} else if existing != nil {
		rec.Locale = existing.Locale
		// A different account cannot keep the old account's board.
		if existing.Token == token {
			rec.BoardID = existing.BoardID
		}
	}
	if err := c.deps.Store.UpsertUser(ctx.Context(), rec); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	name := me.FullName
	if name == "" {
		name = me.Username
	}
	ctx.Logger.Info("Board account linked", "member", me.ID)
	return ctx.Respond(core.Reply{
		Embeds:    []*discordgo.MessageEmbed{core.Embed(core.ResponseSuccess, "", ctx.Tr("board.linked", map[string]any{"name": name}))},
		Ephemeral: true,
	})
}

func (c *Commands) boardsCommand() core.Command {
	return core.NewSimpleCommand("boards", "List your boards", nil, c.handleBoards, false, false)
}

func (c *Commands) handleBoards(ctx *core.Context) error {
	u, err := c.linkedUser(ctx)
	if err != nil {
		return err
	}
	boards, err := c.deps.Board.MemberBoards(ctx.Context(), u.Token)
	if err != nil {
		return boardError(ctx, err)
	}
	if len(boards) == 0 {
		return info(ctx, ctx.Tr("board.boards_title", nil), ctx.Tr("board.no_boards", nil))
	}

	lines := make([]string, 0, len(boards))
	for _, b := range boards {
		current := ""
		if b.ID == u.BoardID {
			current = ctx.Tr("board.current_marker", nil)
		}
		lines = append(lines, ctx.Tr("board.board_line", map[string]any{"name": b.Name, "id": b.ID, "current": current}))
	}
	s, err := prompt.NewList(paginate(lines, linesPerPage), prompt.Display{
		Title: ctx.Tr("board.boards_title", nil),
		Color: theme.Board(),
	})
	if err != nil {
		return err
	}
	s.Ephemeral = true
	_, err = c.deps.Prompts.Send(ctx, s)
	return err
}

func (c *Commands) switchCommand() core.Command {
	return core.NewSimpleCommand("switch", "Choose the board you are working on", nil, c.handleSwitchCommand, false, false)
}

func (c *Commands) handleSwitchCommand(ctx *core.Context) error {
	u, err := c.linkedUser(ctx)
	if err != nil {
		return err
	}
	boards, err := c.deps.Board.MemberBoards(ctx.Context(), u.Token)
	if err != nil {
		return boardError(ctx, err)
	}
	options := make([]prompt.Option, 0, len(boards))
	for _, b := range boards {
		if b.Closed {
			continue
		}
		options = append(options, prompt.Option{
			Label:       core.TruncateString(b.Name, 100),
			Value:       b.ID,
			Description: core.TruncateString(b.Desc, 100),
		})
	}
	if len(options) == 0 {
		return info(ctx, ctx.Tr("board.switch_title", nil), ctx.Tr("board.no_boards", nil))
	}

	s, err := prompt.NewQuery(options, prompt.Display{
		Title:       ctx.Tr("board.switch_title", nil),
		Description: ctx.Tr("board.switch_prompt", nil),
		Color:       theme.Board(),
	})
	if err != nil {
		return err
	}
	if s.ActionID, err = c.deps.Actions.Create(ctx.Context(), KindSwitchBoard, ctx.UserID, nil); err != nil {
		return err
	}
	s.Ephemeral = true
	_, err = c.deps.Prompts.Send(ctx, s)
	return err
}

// handleSwitch receives the board id picked in the /switch prompt.
func (c *Commands) handleSwitch(ctx *core.Context, _ *action.Pending, data []string) error {
	u, err := c.linkedUser(ctx)
	if err != nil {
		return err
	}
	b, err := c.deps.Board.Board(ctx.Context(), u.Token, data[0])
	if err != nil {
		return boardError(ctx, err)
	}
	if err := c.deps.Store.SetCurrentBoard(ctx.Context(), ctx.UserID, b.ID); err != nil {
		return fmt.Errorf("save current board: %w", err)
	}
	ctx.Logger.Info("Switched board", "board", b.ID)
	return ctx.Update(core.Reply{
		Embeds: []*discordgo.MessageEmbed{core.Embed(core.ResponseSuccess,
			ctx.Tr("board.switch_title", nil), ctx.Tr("board.switched", map[string]any{"name": b.Name}))},
	})
}

func (c *Commands) attachmentsCommand() core.Command {
	return core.NewSimpleCommand("attachments", "Browse the attachments of a card",
		[]*discordgo.ApplicationCommandOption{stringOption("card", "Card id or short link id", true)},
		c.handleAttachments, false, false)
}

func (c *Commands) handleAttachments(ctx *core.Context) error {
	cardID, err := core.NewOptionExtractor(ctx.Interaction.ApplicationCommandData().Options).StringRequired("card")
	if err != nil {
		return err
	}
	u, err := c.linkedUser(ctx)
	if err != nil {
		return err
	}
	attachments, err := c.deps.Board.CardAttachments(ctx.Context(), u.Token, cardID)
	if errors.Is(err, board.ErrNotFound) {
		return core.NewCommandError(ctx.Tr("board.card_not_found", nil), true)
	}
	if err != nil {
		return boardError(ctx, err)
	}
	title := ctx.Tr("board.attachments_title", map[string]any{"name": cardID})
	if len(attachments) == 0 {
		return info(ctx, title, ctx.Tr("board.no_attachments", nil))
	}

	items := make([]prompt.Attachment, 0, len(attachments))
	for _, a := range attachments {
		items = append(items, prompt.Attachment{Name: a.Name, URL: a.URL, MimeType: a.MimeType, Bytes: a.Bytes})
	}
	s, err := prompt.NewAttachment(items, prompt.Display{Title: title, Color: theme.Board()})
	if err != nil {
		return err
	}
	_, err = c.deps.Prompts.Send(ctx, s)
	return err
}
