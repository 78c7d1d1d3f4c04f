package interaction

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/discord/discordtest"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/interaction/action"
	"github.com/small-frappuccino/boardcore/pkg/interaction/customid"
	"github.com/small-frappuccino/boardcore/pkg/interaction/prompt"
	"github.com/small-frappuccino/boardcore/pkg/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kindEcho   action.Kind = 1
	kindNeeded action.Kind = 2
)

type fixture struct {
	router  *core.CommandRouter
	store   *tokenstore.Memory
	actions *action.Registry
	rec     *discordtest.Recorder
	echoed  []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	session, rec := discordtest.NewSession(t)
	store := tokenstore.NewMemory(0)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{store: store, rec: rec, actions: action.NewRegistry(store, time.Minute)}
	f.actions.MustRegister(kindEcho, action.HandlerFunc{Fn: func(ctx *core.Context, a *action.Pending, data []string) error {
		f.echoed = append(f.echoed, a.Extra)
		return ctx.Update(core.Reply{Content: "echo " + a.Extra})
	}})
	f.actions.MustRegister(kindNeeded, action.HandlerFunc{NeedsData: true, Fn: func(ctx *core.Context, _ *action.Pending, data []string) error {
		return ctx.Acknowledge()
	}})

	builder := core.NewContextBuilder(session, i18n.MustDefault(), nil, "")
	f.router = core.NewCommandRouter(session, builder)
	f.router.SetComponentHandler(NewRouter(prompt.NewEngine(store, f.actions, time.Minute), f.actions))
	return f
}

func (f *fixture) click(customID, userID string, msg *discordgo.Message, values ...string) {
	f.router.HandleInteraction(nil, discordtest.Component(customID, userID, "guild", msg, values...))
}

func (f *fixture) lastEphemeral(t *testing.T) string {
	t.Helper()
	callbacks := f.rec.Callbacks(t)
	require.NotEmpty(t, callbacks)
	last := callbacks[len(callbacks)-1]
	if last.Type == discordgo.InteractionResponseChannelMessageWithSource {
		require.True(t, last.Data.Ephemeral())
		if last.Data.Content != "" {
			return last.Data.Content
		}
		return last.Data.Embeds[0].Description
	}
	followUps := f.rec.FollowUps(t)
	require.NotEmpty(t, followUps)
	fu := followUps[len(followUps)-1]
	require.True(t, fu.Ephemeral())
	if fu.Content != "" {
		return fu.Content
	}
	return fu.Embeds[0].Description
}

var msg = &discordgo.Message{ID: "m1", ChannelID: "c1"}

func TestNoneIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	f.click(customid.None, "u1", msg)
	callbacks := f.rec.Callbacks(t)
	require.Len(t, callbacks, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, callbacks[0].Type)
}

func TestMalformedCustomIDGetsNotice(t *testing.T) {
	f := newFixture(t)
	f.click("prompt:x:y", "u1", msg)
	assert.Contains(t, f.lastEphemeral(t), "no longer understood")
}

func TestStoredActionRunsOnceThenExpires(t *testing.T) {
	f := newFixture(t)
	id, err := f.actions.Create(context.Background(), kindEcho, "u1", nil)
	require.NoError(t, err)
	custom := customid.Action(id, int(kindEcho), "hello")

	f.click(custom, "u1", msg)
	assert.Equal(t, []string{"hello"}, f.echoed)

	f.rec.Reset()
	f.click(custom, "u1", msg)
	assert.Equal(t, []string{"hello"}, f.echoed)
	assert.Contains(t, f.lastEphemeral(t), "expired")
}

func TestStoredActionRejectsOtherUser(t *testing.T) {
	f := newFixture(t)
	id, _ := f.actions.Create(context.Background(), kindEcho, "u1", nil)

	f.click(customid.Action(id, int(kindEcho), ""), "u2", msg)
	assert.Empty(t, f.echoed)
	assert.Contains(t, f.lastEphemeral(t), "cannot use")

	found, err := f.store.Get(context.Background(), action.Key(id), nil)
	require.NoError(t, err)
	assert.True(t, found, "a forbidden click must not consume the action")
}

func TestFastPathActionNeedsNoStore(t *testing.T) {
	f := newFixture(t)
	custom, err := customid.FastAction(int(kindEcho), "inline", "")
	require.NoError(t, err)

	f.click(custom, "anyone", msg)
	assert.Equal(t, []string{"inline"}, f.echoed)
	assert.Zero(t, f.store.Len())
}

func TestMissingDataIsReported(t *testing.T) {
	f := newFixture(t)
	custom, _ := customid.FastAction(int(kindNeeded), "", "")
	f.click(custom, "u1", msg)
	assert.Contains(t, f.lastEphemeral(t), "Pick a value")
}

func TestUnknownKindIsReported(t *testing.T) {
	f := newFixture(t)
	custom, _ := customid.FastAction(99, "x", "")
	f.click(custom, "u1", msg)
	assert.Contains(t, f.lastEphemeral(t), "no longer supported")
}

func TestExpiredPromptGetsNoticeAfterStrip(t *testing.T) {
	f := newFixture(t)
	f.click(customid.Prompt(int(prompt.FlavorList), int(prompt.ActionNext)), "u1", msg)

	callbacks := f.rec.Callbacks(t)
	require.Len(t, callbacks, 1)
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, callbacks[0].Type)
	assert.Contains(t, f.lastEphemeral(t), "expired")
}

func TestDeleteRequiresInvoker(t *testing.T) {
	f := newFixture(t)
	owned := &discordgo.Message{
		ID:                  "m2",
		ChannelID:           "c1",
		InteractionMetadata: &discordgo.MessageInteractionMetadata{User: &discordgo.User{ID: "u1"}},
	}

	f.click(customid.Delete, "u2", owned)
	assert.Empty(t, f.rec.Matching(http.MethodDelete, "/messages/m2"))
	assert.True(t, strings.Contains(f.lastEphemeral(t), "Only the person"))

	f.rec.Reset()
	f.click(customid.Delete, "u1", owned)
	assert.Len(t, f.rec.Matching(http.MethodDelete, "/channels/c1/messages/m2"), 1)
}
