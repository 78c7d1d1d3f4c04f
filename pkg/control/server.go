package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/small-frappuccino/boardcore/pkg/log"
	"github.com/small-frappuccino/boardcore/pkg/metrics"
	"github.com/small-frappuccino/boardcore/pkg/theme"
)

const (
	defaultMaxBodyBytes = 16 * 1024
	checkTimeout        = 2 * time.Second
)

// Pinger is a dependency whose reachability is reported by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes health, metrics and runtime controls for a running boardcore instance.
type Server struct {
	addr       string
	httpServer *http.Server
	listener   net.Listener

	mu     sync.RWMutex
	checks map[string]Pinger
}

// NewServer returns nil if addr is empty.
func NewServer(addr string) *Server {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}

	s := &Server{addr: addr, checks: make(map[string]Pinger)}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// AddCheck registers a dependency reported under name.
func (s *Server) AddCheck(name string, p Pinger) {
	if s == nil || p == nil {
		return
	}
	s.mu.Lock()
	s.checks[name] = p
	s.mu.Unlock()
}

// Handler returns the routes without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/v1/runtime-config", s.handleRuntimeConfig)
	return mux
}

// Start opens the control server listening socket.
func (s *Server) Start() error {
	if s == nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind control server: %w", err)
	}
	s.listener = ln

	log.ApplicationLogger().Info("Control server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ApplicationLogger().Error("Control server stopped unexpectedly", "err", err)
		}
	}()

	return nil
}

// Addr is the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts down the control server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown control server: %w", err)
	}

	log.ApplicationLogger().Info("Control server stopped", "addr", s.addr)
	return nil
}

type healthReport struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	pingers := make([]Pinger, len(names))
	for i, name := range names {
		pingers[i] = s.checks[name]
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	report := healthReport{
		Status: "ok",
		Uptime: time.Since(metrics.ServerStartTime).Round(time.Second).String(),
		Checks: make(map[string]string, len(names)),
	}
	for i, name := range names {
		if err := pingers[i].Ping(ctx); err != nil {
			report.Status = "degraded"
			report.Checks[name] = err.Error()
			log.ApplicationLogger().Warn("Health check failed", "check", name, "err", err)
			continue
		}
		report.Checks[name] = "ok"
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// RuntimeConfig is the subset of settings that can change without a restart.
type RuntimeConfig struct {
	Theme    string `json:"bot_theme"`
	LogLevel string `json:"log_level"`
}

func currentRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Theme:    theme.Current().Name,
		LogLevel: strings.ToLower(log.Level().String()),
	}
}

func (s *Server) handleRuntimeConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "runtime_config": currentRuntimeConfig()})
		return
	case http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxBodyBytes)
	defer r.Body.Close()

	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if len(patch) == 0 {
		http.Error(w, "payload must contain at least one field", http.StatusBadRequest)
		return
	}

	// Validate everything before touching global state.
	apply := make([]func() error, 0, len(patch))
	for field, raw := range patch {
		setter, ok := runtimeConfigFieldSetters[field]
		if !ok {
			http.Error(w, fmt.Sprintf("unknown field %q", field), http.StatusBadRequest)
			return
		}
		fn, err := setter(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("field %s: %v", field, err), http.StatusBadRequest)
			return
		}
		apply = append(apply, fn)
	}
	for _, fn := range apply {
		if err := fn(); err != nil {
			http.Error(w, fmt.Sprintf("failed to apply runtime config: %v", err), http.StatusBadRequest)
			return
		}
	}

	log.ApplicationLogger().Info("Runtime config updated", "fields", len(patch))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "runtime_config": currentRuntimeConfig()})
}

type setterFunc func(json.RawMessage) (func() error, error)

var runtimeConfigFieldSetters = map[string]setterFunc{
	"bot_theme": func(raw json.RawMessage) (func() error, error) {
		v, err := decodeString(raw)
		if err != nil {
			return nil, err
		}
		return func() error { return theme.SetCurrent(strings.TrimSpace(v)) }, nil
	},
	"log_level": func(raw json.RawMessage) (func() error, error) {
		v, err := decodeString(raw)
		if err != nil {
			return nil, err
		}
		return func() error {
			log.SetLevel(log.ParseLevel(v))
			return nil
		}, nil
	},
}

func decodeString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty string value")
	}
	if bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ApplicationLogger().Error("Failed to encode control response", "err", err)
	}
}
