// Package task runs follow-up work that outlives an interaction callback: a handler
// defers its response, dispatches a task, and the task edits the response when done.
package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/small-frappuccino/boardcore/pkg/log"
	"github.com/small-frappuccino/boardcore/pkg/metrics"
)

// TaskHandler processes a task payload. Wrap an error with Permanent to stop retrying.
type TaskHandler func(ctx context.Context, payload any) error

// TaskOptions configures how a task is dispatched and executed.
type TaskOptions struct {
	// GroupKey serializes tasks that share it (one interaction token, one board).
	// Empty means the global group.
	GroupKey string

	// IdempotencyKey rejects a second dispatch within IdempotencyTTL.
	IdempotencyKey string

	// MaxAttempts bounds handler executions. 0 uses RouterConfig.DefaultMaxAttempts.
	MaxAttempts int

	// IdempotencyTTL overrides RouterConfig.IdempotencyTTL when positive.
	IdempotencyTTL time.Duration
}

// Task is the unit of work handed to the router.
type Task struct {
	Type    string
	Payload any
	Options TaskOptions
}

// RouterConfig configures the TaskRouter.
type RouterConfig struct {
	DefaultMaxAttempts int

	// InitialBackoff and MaxBackoff shape the exponential retry delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	IdempotencyTTL time.Duration

	// GroupBuffer is the queue size of each group.
	GroupBuffer int

	// GroupIdleTTL after which an empty group worker exits.
	GroupIdleTTL time.Duration

	CleanupInterval time.Duration

	// GlobalMaxWorkers limits concurrent handler executions across groups. 0 is unlimited.
	GlobalMaxWorkers int
}

// Defaults returns a RouterConfig suited to interaction follow-ups, which must finish
// well inside the 15 minute interaction token lifetime.
func Defaults() RouterConfig {
	return RouterConfig{
		DefaultMaxAttempts: 3,
		InitialBackoff:     500 * time.Millisecond,
		MaxBackoff:         10 * time.Second,
		IdempotencyTTL:     time.Minute,
		GroupBuffer:        64,
		GroupIdleTTL:       2 * time.Minute,
		CleanupInterval:    time.Minute,
		GlobalMaxWorkers:   4,
	}
}

// Errors returned by the router.
var (
	ErrRouterClosed    = errors.New("task router is closed")
	ErrUnknownTaskType = errors.New("unknown task type")
	ErrDuplicateTask   = errors.New("duplicate task (idempotency key present)")
)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

const globalGroup = "_global"

// TaskRouter is an in-memory dispatcher with per-group serialization,
// idempotency and retry with exponential backoff.
type TaskRouter struct {
	mu       sync.RWMutex
	handlers map[string]TaskHandler
	groups   map[string]*groupWorker
	inflight map[string]time.Time // idempotencyKey -> expiry
	closed   bool
	cfg      RouterConfig

	wg      sync.WaitGroup
	closing chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once

	// nil when unlimited
	execSem chan struct{}
}

type groupWorker struct {
	key        string
	ch         chan Task
	lastActive atomic.Int64
	busy       atomic.Bool
	// pending counts Dispatch calls between lookup and send; the channel stays open while > 0.
	pending  int
	stopping bool
}

// NewRouter creates a TaskRouter; zero fields of cfg take the Defaults value.
func NewRouter(cfg RouterConfig) *TaskRouter {
	def := Defaults()
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = def.DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = def.IdempotencyTTL
	}
	if cfg.GroupBuffer <= 0 {
		cfg.GroupBuffer = def.GroupBuffer
	}
	if cfg.GroupIdleTTL <= 0 {
		cfg.GroupIdleTTL = def.GroupIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	tr := &TaskRouter{
		handlers: make(map[string]TaskHandler),
		groups:   make(map[string]*groupWorker),
		inflight: make(map[string]time.Time),
		cfg:      cfg,
		closing:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.GlobalMaxWorkers > 0 {
		tr.execSem = make(chan struct{}, cfg.GlobalMaxWorkers)
	}

	tr.wg.Add(1)
	go tr.backgroundLoop()
	return tr
}

// RegisterHandler registers a handler for the given task type.
func (tr *TaskRouter) RegisterHandler(taskType string, handler TaskHandler) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.handlers[taskType] = handler
}

// Dispatch enqueues a task. It blocks only while the group queue is full.
func (tr *TaskRouter) Dispatch(ctx context.Context, t Task) error {
	tr.mu.Lock()
	if tr.closed {
		tr.mu.Unlock()
		return ErrRouterClosed
	}
	if h, ok := tr.handlers[t.Type]; !ok || h == nil {
		tr.mu.Unlock()
		return ErrUnknownTaskType
	}

	eff := tr.effectiveOptions(t.Options)
	if eff.IdempotencyKey != "" {
		if expiry, exists := tr.inflight[eff.IdempotencyKey]; exists && time.Now().Before(expiry) {
			tr.mu.Unlock()
			return ErrDuplicateTask
		}
		tr.inflight[eff.IdempotencyKey] = time.Now().Add(eff.IdempotencyTTL)
	}

	key := eff.GroupKey
	if key == "" {
		key = globalGroup
	}
	gw := tr.ensureGroupLocked(key)
	gw.pending++
	tr.mu.Unlock()

	var err error
	select {
	case gw.ch <- t:
	case <-ctx.Done():
		err = ctx.Err()
	case <-tr.closing:
		err = ErrRouterClosed
	}

	tr.mu.Lock()
	gw.pending--
	if tr.closed {
		tr.stopGroupLocked(gw)
	}
	tr.mu.Unlock()

	if err != nil && eff.IdempotencyKey != "" {
		tr.mu.Lock()
		delete(tr.inflight, eff.IdempotencyKey)
		tr.mu.Unlock()
	}
	return err
}

// Shutdown stops accepting tasks, lets queued tasks finish until ctx ends, then
// cancels whatever is still running.
func (tr *TaskRouter) Shutdown(ctx context.Context) error {
	tr.once.Do(func() {
		tr.mu.Lock()
		tr.closed = true
		close(tr.closing)
		for _, gw := range tr.groups {
			tr.stopGroupLocked(gw)
		}
		tr.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		tr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tr.cancel()
		return nil
	case <-ctx.Done():
		tr.cancel()
		<-done
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline.
func (tr *TaskRouter) Close() {
	_ = tr.Shutdown(context.Background())
}

// Stats is a snapshot for debugging and health output.
type Stats struct {
	GroupsCount     int
	InflightCount   int
	RouterClosed    bool
	RegisteredTypes int
}

func (tr *TaskRouter) Stats() Stats {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return Stats{
		GroupsCount:     len(tr.groups),
		InflightCount:   len(tr.inflight),
		RouterClosed:    tr.closed,
		RegisteredTypes: len(tr.handlers),
	}
}

// --- Internals ---

func (tr *TaskRouter) effectiveOptions(opt TaskOptions) TaskOptions {
	if opt.MaxAttempts <= 0 {
		opt.MaxAttempts = tr.cfg.DefaultMaxAttempts
	}
	if opt.IdempotencyTTL <= 0 {
		opt.IdempotencyTTL = tr.cfg.IdempotencyTTL
	}
	return opt
}

func (tr *TaskRouter) ensureGroupLocked(key string) *groupWorker {
	if gw, ok := tr.groups[key]; ok && !gw.stopping {
		return gw
	}
	gw := &groupWorker{key: key, ch: make(chan Task, tr.cfg.GroupBuffer)}
	gw.lastActive.Store(time.Now().UnixNano())
	tr.groups[key] = gw
	tr.wg.Add(1)
	go tr.groupLoop(gw)
	return gw
}

// stopGroupLocked closes the queue once no Dispatch is mid-send.
func (tr *TaskRouter) stopGroupLocked(gw *groupWorker) {
	if gw.stopping || gw.pending > 0 {
		return
	}
	gw.stopping = true
	close(gw.ch)
	if tr.groups[gw.key] == gw {
		delete(tr.groups, gw.key)
	}
}

func (tr *TaskRouter) groupLoop(gw *groupWorker) {
	defer tr.wg.Done()
	for t := range gw.ch {
		gw.busy.Store(true)
		tr.run(gw.key, t)
		gw.lastActive.Store(time.Now().UnixNano())
		gw.busy.Store(false)
	}
}

func (tr *TaskRouter) run(group string, t Task) {
	tr.mu.RLock()
	handler := tr.handlers[t.Type]
	eff := tr.effectiveOptions(t.Options)
	tr.mu.RUnlock()

	if handler == nil {
		log.ApplicationLogger().Warn("Task dropped (handler not registered)", "type", t.Type, "group", group)
		metrics.TasksProcessed.WithLabelValues(t.Type, "dropped").Inc()
		return
	}

	attempt := 0
	op := func() error {
		attempt++
		if tr.execSem != nil {
			select {
			case tr.execSem <- struct{}{}:
			case <-tr.ctx.Done():
				return backoff.Permanent(tr.ctx.Err())
			}
			defer func() { <-tr.execSem }()
		}
		return handler(tr.ctx, t.Payload)
	}
	notify := func(err error, delay time.Duration) {
		log.ApplicationLogger().Warn("Task failed, scheduling retry",
			"type", t.Type,
			"group", group,
			"attempt", attempt,
			"max_attempts", eff.MaxAttempts,
			"backoff", delay.String(),
			"err", err,
		)
	}

	err := backoff.RetryNotify(op, tr.policy(eff.MaxAttempts), notify)
	if err != nil {
		metrics.TasksProcessed.WithLabelValues(t.Type, "failed").Inc()
		log.ErrorLoggerRaw().Error("Task failed; giving up",
			"type", t.Type,
			"group", group,
			"attempts", attempt,
			"err", err,
		)
		return
	}
	metrics.TasksProcessed.WithLabelValues(t.Type, "succeeded").Inc()
}

func (tr *TaskRouter) policy(maxAttempts int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = tr.cfg.InitialBackoff
	exp.MaxInterval = tr.cfg.MaxBackoff
	exp.RandomizationFactor = 0.1
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxAttempts-1)), tr.ctx)
}

func (tr *TaskRouter) backgroundLoop() {
	defer tr.wg.Done()
	t := time.NewTicker(tr.cfg.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-tr.closing:
			return
		case <-t.C:
			tr.cleanupOnce()
		}
	}
}

func (tr *TaskRouter) cleanupOnce() {
	now := time.Now()
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for k, expiry := range tr.inflight {
		if now.After(expiry) {
			delete(tr.inflight, k)
		}
	}
	for _, gw := range tr.groups {
		idle := now.Sub(time.Unix(0, gw.lastActive.Load()))
		if idle >= tr.cfg.GroupIdleTTL && len(gw.ch) == 0 && !gw.busy.Load() {
			tr.stopGroupLocked(gw)
		}
	}
}
