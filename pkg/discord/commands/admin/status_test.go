package admin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/discord/discordtest"
	"github.com/small-frappuccino/boardcore/pkg/i18n"
	"github.com/small-frappuccino/boardcore/pkg/service"
	"github.com/small-frappuccino/boardcore/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticServices []service.Info

func (s staticServices) Services() []service.Info { return s }

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStatusReportsServicesTasksAndChecks(t *testing.T) {
	session, rec := discordtest.NewSession(t)
	router := core.NewCommandRouter(session, core.NewContextBuilder(session, i18n.MustDefault(), nil, ""))

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tasks := task.NewRouter(task.Defaults())
	t.Cleanup(tasks.Close)

	sc := NewStatusCommands(staticServices{
		{Name: "tasks", State: service.StateRunning, Since: now.Add(-90 * time.Second)},
		{Name: "control", State: service.StateError, Since: now, LastError: errors.New("bind failed")},
	}, tasks, map[string]Pinger{
		"tokenstore": pingFunc(func(context.Context) error { return nil }),
		"storage":    pingFunc(func(context.Context) error { return errors.New("disk gone") }),
	})
	sc.now = func() time.Time { return now }
	sc.RegisterCommands(router)

	i := discordtest.Command("status", "u1", "g1")
	i.Member.Permissions = discordgo.PermissionAdministrator
	router.HandleInteraction(nil, i)

	callbacks := rec.Callbacks(t)
	require.Len(t, callbacks, 1)
	data := callbacks[0].Data
	require.NotNil(t, data)
	assert.True(t, data.Ephemeral())
	require.Len(t, data.Embeds, 1)

	desc := data.Embeds[0].Description
	assert.Contains(t, desc, "• tasks: running for 1m30s")
	assert.Contains(t, desc, "• control: error for 0s (last error: bind failed)")
	assert.Contains(t, desc, "• router: open")
	assert.Contains(t, desc, "• storage: ❌ disk gone")
	assert.Contains(t, desc, "• tokenstore: ✅ ok")
	assert.Less(t, strings.Index(desc, "storage"), strings.Index(desc, "tokenstore"))
}

func TestStatusWithoutSources(t *testing.T) {
	sc := NewStatusCommands(nil, nil, nil)
	assert.Empty(t, sc.formatServices())
	assert.Empty(t, sc.formatTasks())
	assert.Empty(t, sc.formatChecks(context.Background()))
}
