// Package admin holds operator commands that report on the running bot.
package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/service"
	"github.com/small-frappuccino/boardcore/pkg/task"
)

// ServiceLister is implemented by *service.Manager.
type ServiceLister interface {
	Services() []service.Info
}

// Pinger is a dependency whose reachability /status reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusCommands serves /status.
type StatusCommands struct {
	services ServiceLister
	tasks    *task.TaskRouter
	checks   map[string]Pinger
	now      func() time.Time
}

// NewStatusCommands creates the handler. Any argument may be nil.
func NewStatusCommands(services ServiceLister, tasks *task.TaskRouter, checks map[string]Pinger) *StatusCommands {
	return &StatusCommands{services: services, tasks: tasks, checks: checks, now: time.Now}
}

// RegisterCommands registers /status with the router.
func (sc *StatusCommands) RegisterCommands(router *core.CommandRouter) {
	router.RegisterCommand(core.NewSimpleCommand("status", "Show the health of the bot's services",
		nil, sc.handleStatus, true, true))
}

func (sc *StatusCommands) handleStatus(ctx *core.Context) error {
	sections := []string{sc.formatServices(), sc.formatTasks(), sc.formatChecks(ctx.Context())}
	var body []string
	for _, s := range sections {
		if s != "" {
			body = append(body, s)
		}
	}
	summary := strings.Join(body, "\n\n")
	if summary == "" {
		summary = "No status available"
	}
	embed := core.Embed(core.ResponseInfo, "📊 Status", summary)
	embed.Timestamp = sc.now().UTC().Format(time.RFC3339)
	return ctx.Respond(core.Reply{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: true})
}

func (sc *StatusCommands) formatServices() string {
	if sc.services == nil {
		return ""
	}
	infos := sc.services.Services()
	if len(infos) == 0 {
		return ""
	}
	lines := []string{"**Services**"}
	for _, info := range infos {
		line := fmt.Sprintf("• %s: %s for %s", info.Name, info.State, sc.now().Sub(info.Since).Round(time.Second))
		if info.LastError != nil {
			line += fmt.Sprintf(" (last error: %v)", info.LastError)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (sc *StatusCommands) formatTasks() string {
	if sc.tasks == nil {
		return ""
	}
	st := sc.tasks.Stats()
	state := "open"
	if st.RouterClosed {
		state = "closed"
	}
	return fmt.Sprintf("**Tasks**\n• router: %s\n• groups: %d\n• inflight keys: %d\n• handlers: %d",
		state, st.GroupsCount, st.InflightCount, st.RegisteredTypes)
}

func (sc *StatusCommands) formatChecks(std context.Context) string {
	if len(sc.checks) == 0 {
		return ""
	}
	names := make([]string, 0, len(sc.checks))
	for name := range sc.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := []string{"**Dependencies**"}
	for _, name := range names {
		cctx, cancel := context.WithTimeout(std, 2*time.Second)
		err := sc.checks[name].Ping(cctx)
		cancel()
		if err != nil {
			lines = append(lines, fmt.Sprintf("• %s: ❌ %v", name, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s: ✅ ok", name))
	}
	return strings.Join(lines, "\n")
}
