package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.entries = append(j.entries, s)
	j.mu.Unlock()
}

func recorded(j *journal, name string, deps []string, startErr error) *Wrapper {
	return NewWrapper(name, deps,
		func(context.Context) error {
			if startErr != nil {
				return startErr
			}
			j.add("start " + name)
			return nil
		},
		func(context.Context) error {
			j.add("stop " + name)
			return nil
		})
}

func TestStartFollowsDependenciesAndStopReverses(t *testing.T) {
	j := &journal{}
	m := NewManager()
	require.NoError(t, m.Register(recorded(j, "commands", []string{"tasks", "store"}, nil)))
	require.NoError(t, m.Register(recorded(j, "tasks", nil, nil)))
	require.NoError(t, m.Register(recorded(j, "store", nil, nil)))

	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.Ping(context.Background()))
	require.NoError(t, m.StopAll(context.Background()))

	assert.Equal(t, []string{
		"start tasks", "start store", "start commands",
		"stop commands", "stop store", "stop tasks",
	}, j.entries)
	for _, info := range m.Services() {
		assert.Equal(t, StateStopped, info.State, info.Name)
	}
}

func TestFailedStartRollsBack(t *testing.T) {
	j := &journal{}
	boom := errors.New("boom")
	m := NewManager()
	require.NoError(t, m.Register(recorded(j, "a", nil, nil)))
	require.NoError(t, m.Register(recorded(j, "b", []string{"a"}, boom)))

	err := m.StartAll(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start a", "stop a"}, j.entries)

	services := m.Services()
	assert.Equal(t, StateStopped, services[0].State)
	assert.Equal(t, StateError, services[1].State)
	assert.ErrorIs(t, services[1].LastError, boom)
	assert.Error(t, m.Ping(context.Background()))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(NewWrapper("a", nil, nil, nil)))
	assert.Error(t, m.Register(NewWrapper("a", nil, nil, nil)))
}

func TestStartOrderErrors(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(NewWrapper("a", []string{"b"}, nil, nil)))
	require.NoError(t, m.Register(NewWrapper("b", []string{"a"}, nil, nil)))
	assert.ErrorContains(t, m.StartAll(context.Background()), "circular dependency")

	m = NewManager()
	require.NoError(t, m.Register(NewWrapper("a", []string{"ghost"}, nil, nil)))
	assert.ErrorContains(t, m.StartAll(context.Background()), "unknown service 'ghost'")
}

func TestStopErrorsAreJoined(t *testing.T) {
	m := NewManager()
	e1, e2 := errors.New("one"), errors.New("two")
	require.NoError(t, m.Register(NewWrapper("a", nil, nil, func(context.Context) error { return e1 })))
	require.NoError(t, m.Register(NewWrapper("b", nil, nil, func(context.Context) error { return e2 })))
	require.NoError(t, m.StartAll(context.Background()))

	err := m.StopAll(context.Background())
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}
