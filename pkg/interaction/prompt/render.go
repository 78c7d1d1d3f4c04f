package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/interaction/customid"
	"github.com/small-frappuccino/boardcore/pkg/theme"
)

// Discord component limits.
const (
	maxLabel       = 100
	maxDescription = 100
	maxPlaceholder = 150
	maxEmbedText   = 4096
)

// Render produces the message for s. It is used both on creation and after every
// transition, so a prompt always looks the same for the same state.
func Render(s State, tr i18n.Translator) core.Reply {
	tr = safeTranslator(tr)
	embed := &discordgo.MessageEmbed{
		Title:       s.Display.Title,
		Description: s.Display.Description,
		Color:       s.color(),
		Footer:      &discordgo.MessageEmbedFooter{Text: footer(s, tr)},
	}

	var components []discordgo.MessageComponent
	switch body := s.Body.(type) {
	case ListBody:
		embed.Description = joinText(s.Display.Description, body.Pages[clampPage(s.Page, len(body.Pages))])
		components = []discordgo.MessageComponent{navRow(s, tr, false)}
	case QueryBody:
		components = []discordgo.MessageComponent{
			optionMenu(s, body.Options, nil, 1, tr),
			navRow(s, tr, false),
		}
	case SelectBody:
		var selected []int
		if s.Page < len(body.Selected) {
			selected = body.Selected[s.Page]
		}
		start, end := pageBounds(s.Page, len(body.Options))
		components = []discordgo.MessageComponent{
			optionMenu(s, body.Options, selected, end-start, tr),
			navRow(s, tr, true),
		}
		if n := len(body.Flatten()); n > 0 {
			embed.Description = joinText(s.Display.Description, tr("prompt.selected_count", map[string]any{"count": n}))
		}
	case AttachmentBody:
		item := body.Items[clampPage(s.Page, len(body.Items))]
		embed.Title = firstNonEmpty(s.Display.Title, item.Name)
		embed.URL = item.URL
		embed.Description = joinText(s.Display.Description, attachmentText(item, tr))
		if item.IsImage() {
			embed.Image = &discordgo.MessageEmbedImage{URL: item.URL}
		}
		components = []discordgo.MessageComponent{navRow(s, tr, false)}
	case FilterBody:
		embed.Description = joinText(s.Display.Description, filterSummary(body, tr))
		components = filterRows(s, body, tr)
	}

	return core.Reply{
		Content:    s.Display.Content,
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
		Ephemeral:  s.Ephemeral,
	}
}

// RenderDismissed is what an ephemeral prompt turns into after stop.
func RenderDismissed(tr i18n.Translator) core.Reply {
	tr = safeTranslator(tr)
	return core.Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Description: tr("prompt.dismissed", nil),
			Color:       theme.Dismissed(),
		}},
	}
}

// RenderCompleted replaces a finished prompt when its action did not answer itself.
func RenderCompleted(s State, tr i18n.Translator) core.Reply {
	tr = safeTranslator(tr)
	return core.Reply{
		Content: s.Display.Content,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       s.Display.Title,
			Description: tr("prompt.completed", nil),
			Color:       theme.Success(),
		}},
	}
}

// RenderExpiredNotice is sent when a click arrives after the prompt's state is gone.
func RenderExpiredNotice(tr i18n.Translator) core.Reply {
	tr = safeTranslator(tr)
	return core.Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Description: tr("prompt.expired", nil),
			Color:       theme.Expired(),
		}},
		Ephemeral: true,
	}
}

// Stripped keeps a message's content and embeds but drops its controls.
func Stripped(msg *discordgo.Message) core.Reply {
	if msg == nil {
		return core.Reply{}
	}
	return core.Reply{Content: msg.Content, Embeds: msg.Embeds}
}

func (s State) color() int {
	if s.Display.Color != 0 {
		return s.Display.Color
	}
	if s.Flavor == FlavorFilter {
		return theme.Filter()
	}
	return theme.Prompt()
}

func footer(s State, tr i18n.Translator) string {
	page := tr("prompt.page", map[string]any{"page": s.Page + 1, "pages": s.PageCount()})
	if s.Display.Footer == "" {
		return page
	}
	return s.Display.Footer + " • " + page
}

func navRow(s State, tr i18n.Translator, withDone bool) discordgo.ActionsRow {
	f := int(s.Flavor)
	pages := s.PageCount()
	buttons := []discordgo.MessageComponent{
		discordgo.Button{
			Label:    tr("prompt.previous", nil),
			Style:    discordgo.SecondaryButton,
			CustomID: customid.Prompt(f, int(ActionPrevious)),
			Disabled: s.Page <= 0,
			Emoji:    &discordgo.ComponentEmoji{Name: "◀️"},
		},
		discordgo.Button{
			Label:    fmt.Sprintf("%d/%d", s.Page+1, pages),
			Style:    discordgo.SecondaryButton,
			CustomID: customid.None,
			Disabled: true,
		},
		discordgo.Button{
			Label:    tr("prompt.next", nil),
			Style:    discordgo.SecondaryButton,
			CustomID: customid.Prompt(f, int(ActionNext)),
			Disabled: s.Page >= pages-1,
			Emoji:    &discordgo.ComponentEmoji{Name: "▶️"},
		},
	}
	if withDone {
		buttons = append(buttons, discordgo.Button{
			Label:    tr("prompt.done", nil),
			Style:    discordgo.SuccessButton,
			CustomID: customid.Prompt(f, int(ActionDone)),
		})
	}
	buttons = append(buttons, discordgo.Button{
		Label:    tr("prompt.stop", nil),
		Style:    discordgo.DangerButton,
		CustomID: customid.Prompt(f, int(ActionStop)),
	})
	return discordgo.ActionsRow{Components: buttons}
}

// optionMenu renders the current page of options. Values are global indices.
func optionMenu(s State, options []Option, selected []int, maxValues int, tr i18n.Translator) discordgo.ActionsRow {
	start, end := pageBounds(s.Page, len(options))
	isSelected := make(map[int]bool, len(selected))
	for _, l := range selected {
		isSelected[l] = true
	}

	items := make([]discordgo.SelectMenuOption, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, menuOption(options[i], strconv.Itoa(i), isSelected[i-start]))
	}

	minValues := 1
	if s.Flavor == FlavorSelect {
		minValues = 0
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			CustomID:    customid.Prompt(int(s.Flavor), int(ActionSelect)),
			Placeholder: core.TruncateString(firstNonEmpty(s.Display.Placeholder, tr("prompt.select_placeholder", nil)), maxPlaceholder),
			MinValues:   &minValues,
			MaxValues:   maxValues,
			Options:     items,
		},
	}}
}

func menuOption(o Option, value string, selected bool) discordgo.SelectMenuOption {
	opt := discordgo.SelectMenuOption{
		Label:       core.TruncateString(firstNonEmpty(o.Label, o.Value), maxLabel),
		Value:       value,
		Description: core.TruncateString(o.Description, maxDescription),
		Default:     selected,
	}
	if o.Emoji != "" {
		opt.Emoji = &discordgo.ComponentEmoji{Name: o.Emoji}
	}
	return opt
}

func filterRows(s State, body FilterBody, tr i18n.Translator) []discordgo.MessageComponent {
	f := int(s.Flavor)
	page := clampPage(s.Page, len(body.Groups))

	groups := make([]discordgo.SelectMenuOption, 0, len(body.Groups))
	for i, g := range body.Groups {
		groups = append(groups, discordgo.SelectMenuOption{
			Label:   core.TruncateString(firstNonEmpty(g.Label, g.Key), maxLabel),
			Value:   strconv.Itoa(i),
			Default: i == page,
		})
	}
	one := 1

	selected := make(map[string]bool, len(body.Selected))
	for _, name := range body.Selected {
		selected[name] = true
	}
	group := body.Groups[page]
	flags := make([]discordgo.SelectMenuOption, 0, len(group.Options))
	for _, o := range group.Options {
		flags = append(flags, menuOption(o, o.Value, selected[o.Value]))
	}
	zero := 0

	rows := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    customid.Prompt(f, int(ActionSetPage)),
				Placeholder: tr("prompt.group_placeholder", nil),
				MinValues:   &one,
				MaxValues:   1,
				Options:     groups,
			},
		}},
	}
	if len(flags) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    customid.Prompt(f, int(ActionSelect)),
				Placeholder: core.TruncateString(firstNonEmpty(s.Display.Placeholder, tr("prompt.filter_placeholder", nil)), maxPlaceholder),
				MinValues:   &zero,
				MaxValues:   len(flags),
				Options:     flags,
			},
		}})
	}
	return append(rows, navRow(s, tr, true))
}

func filterSummary(body FilterBody, tr i18n.Translator) string {
	if len(body.Selected) == 0 {
		return tr("prompt.filter_none", nil)
	}
	var b strings.Builder
	b.WriteString(tr("prompt.filter_enabled", nil))
	for _, name := range body.Selected {
		line := "\n• `" + name + "`"
		if b.Len()+len(line) > maxEmbedText-16 {
			b.WriteString("\n…")
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func attachmentText(a Attachment, tr i18n.Translator) string {
	text := "[" + firstNonEmpty(a.Name, a.URL) + "](" + a.URL + ")"
	if a.Bytes > 0 {
		text += "\n" + tr("prompt.attachment_size", map[string]any{"size": humanBytes(a.Bytes)})
	}
	return text
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func joinText(head, body string) string {
	switch {
	case head == "":
		return core.TruncateString(body, maxEmbedText)
	case body == "":
		return core.TruncateString(head, maxEmbedText)
	default:
		return core.TruncateString(head+"\n\n"+body, maxEmbedText)
	}
}

func clampPage(page, pages int) int {
	if page < 0 {
		return 0
	}
	if page >= pages {
		return pages - 1
	}
	return page
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func safeTranslator(tr i18n.Translator) i18n.Translator {
	if tr != nil {
		return tr
	}
	return func(key string, params map[string]any) string { return i18n.Format(key, params) }
}
