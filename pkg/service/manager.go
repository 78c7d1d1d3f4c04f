// Package service starts and stops the long-lived parts of the bot in dependency order.
package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/small-frappuccino/boardcore/pkg/log"
)

// State is the lifecycle state of a registered service.
type State string

const (
	StateRegistered State = "registered"
	StateRunning    State = "running"
	StateStopped    State = "stopped"
	StateError      State = "error"
)

// Service is a component with a start/stop lifecycle.
type Service interface {
	Name() string

	// Dependencies names services that must be running first.
	Dependencies() []string

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Info describes a registered service.
type Info struct {
	Name      string
	State     State
	Since     time.Time
	LastError error
}

type entry struct {
	svc   Service
	state State
	since time.Time
	err   error
}

// Manager coordinates the lifecycle of all services.
type Manager struct {
	mu       sync.RWMutex
	services map[string]*entry
	order    []string // registration order, for deterministic starts
	logger   *slog.Logger
}

func NewManager() *Manager {
	return &Manager{
		services: make(map[string]*entry),
		logger:   log.ApplicationLogger().With("component", "service_manager"),
	}
}

// Register adds a service. Names must be unique.
func (m *Manager) Register(svc Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := svc.Name()
	if _, exists := m.services[name]; exists {
		return fmt.Errorf("service '%s' is already registered", name)
	}
	m.services[name] = &entry{svc: svc, state: StateRegistered, since: time.Now()}
	m.order = append(m.order, name)
	m.logger.Debug("Service registered", "service", name, "dependencies", svc.Dependencies())
	return nil
}

// StartAll starts every service after its dependencies. On failure the services already
// started are stopped again.
func (m *Manager) StartAll(ctx context.Context) error {
	order, err := m.startOrder()
	if err != nil {
		return fmt.Errorf("failed to calculate start order: %w", err)
	}
	for i, name := range order {
		if err := m.start(ctx, name); err != nil {
			_ = m.stopEach(ctx, slices.Backward(order[:i]))
			return fmt.Errorf("failed to start service '%s': %w", name, err)
		}
	}
	m.logger.Info("All services started", "services", len(order))
	return nil
}

// StopAll stops running services in reverse start order and joins their errors.
func (m *Manager) StopAll(ctx context.Context) error {
	order, err := m.startOrder()
	if err != nil {
		return fmt.Errorf("failed to calculate stop order: %w", err)
	}
	if err := m.stopEach(ctx, slices.Backward(order)); err != nil {
		m.logger.Error("Some services failed to stop cleanly", "error", err)
		return err
	}
	m.logger.Info("All services stopped")
	return nil
}

func (m *Manager) stopEach(ctx context.Context, names iter.Seq2[int, string]) error {
	var errs []error
	for _, name := range names {
		if err := m.stop(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("service '%s': %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) start(ctx context.Context, name string) error {
	m.mu.RLock()
	e := m.services[name]
	m.mu.RUnlock()

	started := time.Now()
	err := e.svc.Start(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	e.since = time.Now()
	if err != nil {
		e.state, e.err = StateError, err
		return err
	}
	e.state, e.err = StateRunning, nil
	m.logger.Info("Service started", "service", name, "duration", time.Since(started).Round(time.Millisecond))
	return nil
}

func (m *Manager) stop(ctx context.Context, name string) error {
	m.mu.RLock()
	e := m.services[name]
	running := e.state == StateRunning
	m.mu.RUnlock()
	if !running {
		return nil
	}

	err := e.svc.Stop(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	e.since = time.Now()
	if err != nil {
		e.state, e.err = StateError, err
		return err
	}
	e.state = StateStopped
	m.logger.Info("Service stopped", "service", name)
	return nil
}

// startOrder sorts services topologically, keeping registration order among independents.
func (m *Manager) startOrder() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visited := make(map[string]bool)
	temp := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if temp[name] {
			return fmt.Errorf("circular dependency detected involving service '%s'", name)
		}
		if visited[name] {
			return nil
		}
		temp[name] = true
		for _, dep := range m.services[name].svc.Dependencies() {
			if _, exists := m.services[dep]; !exists {
				return fmt.Errorf("service '%s' depends on unknown service '%s'", name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		temp[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range m.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Services returns a snapshot of every registered service in registration order.
func (m *Manager) Services() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.order))
	for _, name := range m.order {
		e := m.services[name]
		out = append(out, Info{Name: name, State: e.state, Since: e.since, LastError: e.err})
	}
	return out
}

// Ping reports an error while any registered service is not running, so the manager can
// back a health check.
func (m *Manager) Ping(context.Context) error {
	var down []string
	for _, info := range m.Services() {
		if info.State != StateRunning {
			down = append(down, fmt.Sprintf("%s=%s", info.Name, info.State))
		}
	}
	if len(down) > 0 {
		return fmt.Errorf("services not running: %v", down)
	}
	return nil
}
