// Package action implements deferred actions: a pending operation is stored under an
// opaque id, embedded in a component's custom id, and consumed exactly once when the
// component (or a finished prompt) resolves it.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/small-frappuccino/boardcore/pkg/discord/commands/core"
	"github.com/small-frappuccino/boardcore/pkg/metrics"
	"github.com/small-frappuccino/boardcore/pkg/tokenstore"
)

var (
	ErrActionExpired       = errors.New("action expired")
	ErrUnknownActionKind   = errors.New("unknown action kind")
	ErrMissingRequiredData = errors.New("action requires data")
	ErrDuplicateKind       = errors.New("action kind already registered")
	// ErrForbidden is returned when someone other than the action's user triggers it.
	ErrForbidden = errors.New("action belongs to another user")
)

// Kind identifies an action handler. Kinds appear in custom ids, so their values must never
// be reused for a different handler.
type Kind int

func (k Kind) String() string { return strconv.Itoa(int(k)) }

// Handler runs a resolved action and responds through ctx.
type Handler interface {
	// RequiresData reports whether the handler needs a late-bound payload or an inline extra.
	RequiresData() bool
	Handle(ctx *core.Context, a *Pending, data []string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	NeedsData bool
	Fn        func(ctx *core.Context, a *Pending, data []string) error
}

func (h HandlerFunc) RequiresData() bool { return h.NeedsData }
func (h HandlerFunc) Handle(ctx *core.Context, a *Pending, data []string) error {
	return h.Fn(ctx, a, data)
}

// Pending is a stored (or inline) action. On the wire it is a flat JSON object:
// {"kind": 2, "user": "123", ...fields}.
type Pending struct {
	Kind Kind
	User string
	// ID is the opaque id. Empty for fast-path actions.
	ID string
	// Extra is the inline field of the custom id that triggered the action.
	Extra  string
	Fields map[string]json.RawMessage
}

func (p Pending) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Fields)+2)
	for k, v := range p.Fields {
		out[k] = v
	}
	kind, _ := json.Marshal(p.Kind)
	user, _ := json.Marshal(p.User)
	out["kind"] = kind
	out["user"] = user
	return json.Marshal(out)
}

func (p *Pending) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["kind"]; ok {
		if err := json.Unmarshal(v, &p.Kind); err != nil {
			return fmt.Errorf("decode action kind: %w", err)
		}
	}
	if v, ok := raw["user"]; ok {
		if err := json.Unmarshal(v, &p.User); err != nil {
			return fmt.Errorf("decode action user: %w", err)
		}
	}
	delete(raw, "kind")
	delete(raw, "user")
	p.Fields = raw
	return nil
}

// Field decodes a stored field into dst. It reports false when the field is absent.
func (p *Pending) Field(name string, dst any) (bool, error) {
	v, ok := p.Fields[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return true, fmt.Errorf("decode action field %q: %w", name, err)
	}
	return true, nil
}

// String returns a string field, or "" when absent or not a string.
func (p *Pending) String(name string) string {
	var s string
	if ok, err := p.Field(name, &s); !ok || err != nil {
		return ""
	}
	return s
}

// Registry maps kinds to handlers and owns the pending actions in the token store.
type Registry struct {
	store tokenstore.Store
	ttl   time.Duration

	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// NewRegistry creates a registry. ttl <= 0 uses tokenstore.DefaultTTL.
func NewRegistry(store tokenstore.Store, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = tokenstore.DefaultTTL
	}
	return &Registry{
		store:    store,
		ttl:      ttl,
		handlers: make(map[Kind]Handler),
	}
}

// Register binds kind to h. Registering a kind twice fails.
func (r *Registry) Register(kind Kind, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateKind, kind)
	}
	r.handlers[kind] = h
	return nil
}

// MustRegister is Register for startup wiring.
func (r *Registry) MustRegister(kind Kind, h Handler) {
	if err := r.Register(kind, h); err != nil {
		panic(err)
	}
}

// Kinds returns the registered kinds.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	return out
}

func (r *Registry) handler(kind Kind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// TTL is the lifetime given to pending actions.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Key is the token store key of an opaque id.
func Key(opaqueID string) string { return "action:" + opaqueID }

// NewOpaqueID returns 32 random hex characters.
func NewOpaqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create stores a pending action and returns its opaque id.
func (r *Registry) Create(ctx context.Context, kind Kind, userID string, fields map[string]any) (string, error) {
	p := Pending{Kind: kind, User: userID, Fields: make(map[string]json.RawMessage, len(fields))}
	for k, v := range fields {
		if k == "kind" || k == "user" {
			return "", fmt.Errorf("action field %q is reserved", k)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode action field %q: %w", k, err)
		}
		p.Fields[k] = b
	}
	id := NewOpaqueID()
	if err := r.store.Put(ctx, Key(id), p, r.ttl); err != nil {
		return "", fmt.Errorf("create action: %w", err)
	}
	return id, nil
}

// Touch resets the TTL of a pending action. Missing actions are not an error.
func (r *Registry) Touch(ctx context.Context, opaqueID string) error {
	if opaqueID == "" {
		return nil
	}
	_, err := r.store.Extend(ctx, Key(opaqueID), r.ttl)
	return err
}

// Discard drops a pending action without running it.
func (r *Registry) Discard(ctx context.Context, opaqueID string) error {
	if opaqueID == "" {
		return nil
	}
	return r.store.Delete(ctx, Key(opaqueID))
}

// NeedsData reports whether the handler of a stored action requires a payload, without
// consuming the action.
func (r *Registry) NeedsData(ctx context.Context, opaqueID string) (bool, error) {
	var p Pending
	found, err := r.store.Get(ctx, Key(opaqueID), &p)
	if err != nil {
		return false, err
	}
	if !found {
		return false, ErrActionExpired
	}
	h, ok := r.handler(p.Kind)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownActionKind, p.Kind)
	}
	return h.RequiresData(), nil
}

// Resolve consumes the pending action opaqueID and runs its handler. The action is deleted
// before the handler runs, so a retry after a failure reports ErrActionExpired instead of
// running twice.
func (r *Registry) Resolve(ctx *core.Context, opaqueID, extra string, data []string) (err error) {
	std := ctx.Context()
	var peek Pending
	found, err := r.store.Get(std, Key(opaqueID), &peek)
	if err != nil {
		return err
	}
	if !found {
		metrics.ActionResolutions.WithLabelValues("unknown", "expired").Inc()
		return ErrActionExpired
	}
	if peek.User != "" && peek.User != ctx.UserID {
		metrics.ActionResolutions.WithLabelValues(peek.Kind.String(), "forbidden").Inc()
		return ErrForbidden
	}

	var p Pending
	taken, err := r.store.Take(std, Key(opaqueID), &p)
	if err != nil {
		return err
	}
	if !taken {
		// Another callback consumed it between the peek and the take.
		metrics.ActionResolutions.WithLabelValues(peek.Kind.String(), "expired").Inc()
		return ErrActionExpired
	}
	p.ID = opaqueID
	p.Extra = extra
	return r.run(ctx, &p, data)
}

// Dispatch runs a fast-path action whose state is carried by the custom id itself.
func (r *Registry) Dispatch(ctx *core.Context, kind Kind, extra, user string, data []string) error {
	if user != "" && user != ctx.UserID {
		metrics.ActionResolutions.WithLabelValues(kind.String(), "forbidden").Inc()
		return ErrForbidden
	}
	return r.run(ctx, &Pending{Kind: kind, User: ctx.UserID, Extra: extra}, data)
}

func (r *Registry) run(ctx *core.Context, p *Pending, data []string) error {
	label := p.Kind.String()
	h, ok := r.handler(p.Kind)
	if !ok {
		metrics.ActionResolutions.WithLabelValues(label, "unknown_kind").Inc()
		return fmt.Errorf("%w: %d", ErrUnknownActionKind, p.Kind)
	}
	if h.RequiresData() && len(data) == 0 && p.Extra == "" {
		metrics.ActionResolutions.WithLabelValues(label, "missing_data").Inc()
		return fmt.Errorf("%w: kind %d", ErrMissingRequiredData, p.Kind)
	}
	if err := h.Handle(ctx, p, data); err != nil {
		metrics.ActionResolutions.WithLabelValues(label, "error").Inc()
		return err
	}
	metrics.ActionResolutions.WithLabelValues(label, "ok").Inc()
	return nil
}
