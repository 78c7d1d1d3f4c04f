package app

import (
	"context"
	"testing"
	"time"

	"github.com/small-frappuccino/boardcore/pkg/config"
	"github.com/small-frappuccino/boardcore/pkg/control"
	"github.com/small-frappuccino/boardcore/pkg/service"
	"github.com/small-frappuccino/boardcore/pkg/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatStartupMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		appName     string
		appVersion  string
		coreVersion string
		want        string
	}{
		{
			name:        "no app version includes boardcore",
			appName:     "trellobot",
			coreVersion: "v0.3.0",
			want:        "🚀 Starting trellobot (boardcore v0.3.0)...",
		},
		{
			name:        "different versions include both",
			appName:     "trellobot",
			appVersion:  "v1.2.0",
			coreVersion: "v0.3.0",
			want:        "🚀 Starting trellobot v1.2.0 (boardcore v0.3.0)...",
		},
		{
			name:        "same versions omit boardcore suffix",
			appName:     " trellobot ",
			appVersion:  " v0.3.0 ",
			coreVersion: "v0.3.0",
			want:        "🚀 Starting trellobot v0.3.0...",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, formatStartupMessage(tc.appName, tc.appVersion, tc.coreVersion))
		})
	}
}

func TestOpenTokenStore(t *testing.T) {
	s, err := openTokenStore(context.Background(), config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.IsType(t, &tokenstore.Memory{}, s)

	_, err = openTokenStore(context.Background(), config.Config{RedisURL: "mysql://nope"})
	assert.ErrorContains(t, err, "invalid redis URL")
}

func TestRegisterServicesOrder(t *testing.T) {
	cfg := config.Config{TaskWorkers: 2}
	tasks := newTaskRouter(cfg)

	m := service.NewManager()
	require.NoError(t, registerServices(m, nil, tasks, nil, control.NewServer("127.0.0.1:0")))

	var names []string
	for _, info := range m.Services() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"tasks", "discord", "commands", "control"}, names)

	// Without a control address only the core services exist.
	m = service.NewManager()
	require.NoError(t, registerServices(m, nil, tasks, nil, nil))
	assert.Len(t, m.Services(), 3)
	tasks.Close()
}

func TestNewBoardClientAppliesConfig(t *testing.T) {
	c := newBoardClient(config.Config{BoardAPIURL: "http://127.0.0.1:1", BoardRPS: 5, BoardRetryWindow: time.Second})
	require.NotNil(t, c)
}
