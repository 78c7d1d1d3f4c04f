package prompt

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/interaction/customid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var english = i18n.MustDefault().Translator("en-US")

func rows(t *testing.T, components []discordgo.MessageComponent) []discordgo.ActionsRow {
	t.Helper()
	out := make([]discordgo.ActionsRow, 0, len(components))
	for _, c := range components {
		row, ok := c.(discordgo.ActionsRow)
		require.True(t, ok, "expected action row, got %T", c)
		out = append(out, row)
	}
	return out
}

func buttonsOf(row discordgo.ActionsRow) map[string]discordgo.Button {
	out := map[string]discordgo.Button{}
	for _, c := range row.Components {
		if b, ok := c.(discordgo.Button); ok {
			out[b.CustomID] = b
		}
	}
	return out
}

func TestRenderQueryPagesUseGlobalIndices(t *testing.T) {
	s, err := NewQuery(options(30), Display{Title: "Boards"})
	require.NoError(t, err)

	reply := Render(s, english)
	r := rows(t, reply.Components)
	require.Len(t, r, 2)
	menu := r[0].Components[0].(discordgo.SelectMenu)
	assert.Equal(t, customid.Prompt(int(FlavorQuery), int(ActionSelect)), menu.CustomID)
	require.Len(t, menu.Options, 25)
	assert.Equal(t, "0", menu.Options[0].Value)
	assert.Equal(t, "24", menu.Options[24].Value)

	nav := buttonsOf(r[1])
	assert.True(t, nav[customid.Prompt(int(FlavorQuery), int(ActionPrevious))].Disabled)
	assert.False(t, nav[customid.Prompt(int(FlavorQuery), int(ActionNext))].Disabled)
	assert.Equal(t, "1/2", nav[customid.None].Label)
	assert.Contains(t, reply.Embeds[0].Footer.Text, "Page 1/2")

	s.Page = 1
	r = rows(t, Render(s, english).Components)
	menu = r[0].Components[0].(discordgo.SelectMenu)
	require.Len(t, menu.Options, 5)
	assert.Equal(t, "25", menu.Options[0].Value)
	assert.True(t, buttonsOf(r[1])[customid.Prompt(int(FlavorQuery), int(ActionNext))].Disabled)
}

func TestRenderSelectMarksDefaults(t *testing.T) {
	s, err := NewSelect(options(30), []int{2, 26}, Display{})
	require.NoError(t, err)

	r := rows(t, Render(s, english).Components)
	menu := r[0].Components[0].(discordgo.SelectMenu)
	require.NotNil(t, menu.MinValues)
	assert.Equal(t, 0, *menu.MinValues)
	assert.Equal(t, 25, menu.MaxValues)
	for i, o := range menu.Options {
		assert.Equal(t, i == 2, o.Default, o.Value)
	}
	_, hasDone := buttonsOf(r[1])[customid.Prompt(int(FlavorSelect), int(ActionDone))]
	assert.True(t, hasDone)
}

func TestRenderFilterHasGroupAndFlagMenus(t *testing.T) {
	s, err := NewFilter(filterGroups(), []string{"D"}, Display{})
	require.NoError(t, err)
	s.Page = 1

	reply := Render(s, english)
	r := rows(t, reply.Components)
	require.Len(t, r, 3)

	groups := r[0].Components[0].(discordgo.SelectMenu)
	assert.Equal(t, customid.Prompt(int(FlavorFilter), int(ActionSetPage)), groups.CustomID)
	assert.True(t, groups.Options[1].Default)

	flags := r[1].Components[0].(discordgo.SelectMenu)
	assert.Equal(t, 3, flags.MaxValues)
	assert.Equal(t, "D", flags.Options[1].Value)
	assert.True(t, flags.Options[1].Default)
	assert.Contains(t, reply.Embeds[0].Description, "`D`")
}

func TestRenderAttachmentPreviewsImages(t *testing.T) {
	s, err := NewAttachment([]Attachment{
		{Name: "diagram.png", URL: "https://cdn.example/diagram.png", MimeType: "image/png", Bytes: 2048},
		{Name: "notes.txt", URL: "https://cdn.example/notes.txt", MimeType: "text/plain"},
	}, Display{})
	require.NoError(t, err)

	embed := Render(s, english).Embeds[0]
	require.NotNil(t, embed.Image)
	assert.Equal(t, "diagram.png", embed.Title)
	assert.Contains(t, embed.Description, "2.0 KiB")

	s.Page = 1
	assert.Nil(t, Render(s, english).Embeds[0].Image)
}

func TestRenderTruncatesLongLabels(t *testing.T) {
	s, _ := NewQuery([]Option{{Label: strings.Repeat("x", 150), Value: "v"}}, Display{})
	menu := rows(t, Render(s, english).Components)[0].Components[0].(discordgo.SelectMenu)
	assert.Len(t, []rune(menu.Options[0].Label), 100)
}

func TestRenderWithoutTranslatorUsesKeys(t *testing.T) {
	s, _ := NewList([]string{"only page"}, Display{})
	reply := Render(s, nil)
	assert.Equal(t, "only page", reply.Embeds[0].Description)
	assert.Equal(t, "prompt.page", reply.Embeds[0].Footer.Text)
}
