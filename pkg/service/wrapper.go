package service

import "context"

// Wrapper adapts start and stop functions of an existing component to Service.
type Wrapper struct {
	name         string
	dependencies []string
	start        func(ctx context.Context) error
	stop         func(ctx context.Context) error
}

// NewWrapper creates a wrapper for an existing component. Either function may be nil.
func NewWrapper(name string, dependencies []string, start, stop func(ctx context.Context) error) *Wrapper {
	return &Wrapper{name: name, dependencies: dependencies, start: start, stop: stop}
}

func (w *Wrapper) Name() string           { return w.name }
func (w *Wrapper) Dependencies() []string { return w.dependencies }

func (w *Wrapper) Start(ctx context.Context) error {
	if w.start == nil {
		return nil
	}
	return w.start(ctx)
}

func (w *Wrapper) Stop(ctx context.Context) error {
	if w.stop == nil {
		return nil
	}
	return w.stop(ctx)
}
