package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/aretw0/signaltree"
	"github.com/aretw0/signaltree/internal/logging"
	"github.com/aretw0/signaltree/internal/presentation/graph"
	"github.com/aretw0/signaltree/pkg/adapters/memory"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/ports"
	"github.com/aretw0/signaltree/pkg/session"
	"github.com/go-chi/chi/v5"
)

// Server exposes a set of compiled signals over HTTP.
type Server struct {
	signals  map[string]*signaltree.Signal
	sessions *session.Manager
	newStore func(signal string) ports.Store
	metrics  http.Handler
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSessions routes requests carrying a run_key through a session manager.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithStoreFactory sets how the host store of a run is obtained.
// Defaults to a fresh in-memory store per run.
func WithStoreFactory(fn func(signal string) ports.Store) Option {
	return func(s *Server) {
		s.newStore = fn
	}
}

// WithMetricsHandler mounts h under /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// RunRequest is the body of POST /signals/{name}/run.
type RunRequest struct {
	Args   map[string]any        `json:"args,omitempty"`
	RunKey string                `json:"run_key,omitempty"`
	Replay []domain.ReplayRecord `json:"replay,omitempty"`
}

// RunResponse is returned by POST /signals/{name}/run.
type RunResponse struct {
	Result *domain.SignalResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// SignalInfo describes a registered signal.
type SignalInfo struct {
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}

// NewHandler creates the HTTP handler for the given signals.
func NewHandler(signals map[string]*signaltree.Signal, opts ...Option) http.Handler {
	s := &Server{
		signals: signals,
		newStore: func(string) ports.Store {
			return memory.NewStore(nil)
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.Health)
	r.Get("/signals", s.ListSignals)
	r.Route("/signals/{name}", func(r chi.Router) {
		r.Get("/", s.GetSignal)
		r.Get("/graph", s.Graph)
		r.Post("/run", s.Run)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*signaltree.Signal, bool) {
	name := chi.URLParam(r, "name")
	sig, ok := s.signals[name]
	if !ok {
		http.Error(w, "signal not found: "+name, http.StatusNotFound)
		return nil, false
	}
	return sig, true
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListSignals handles GET /signals.
func (s *Server) ListSignals(w http.ResponseWriter, r *http.Request) {
	infos := make([]SignalInfo, 0, len(s.signals))
	for name, sig := range s.signals {
		infos = append(infos, describe(name, sig))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	s.writeJSON(w, http.StatusOK, infos)
}

// GetSignal handles GET /signals/{name}. It returns the compiled tree.
func (s *Server) GetSignal(w http.ResponseWriter, r *http.Request) {
	sig, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sig.Tree())
}

// Graph handles GET /signals/{name}/graph.
func (s *Server) Graph(w http.ResponseWriter, r *http.Request) {
	sig, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(sig.Tree(), nil)))
}

// Run handles POST /signals/{name}/run.
func (s *Server) Run(w http.ResponseWriter, r *http.Request) {
	sig, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("run: invalid request body", "error", err)
			return
		}
	}

	store := s.newStore(chi.URLParam(r, "name"))

	var (
		res *domain.SignalResult
		err error
	)
	var opts []signaltree.RunOption
	if len(body.Replay) > 0 {
		// Explicit records win over the ones a session would load.
		opts = append(opts, signaltree.WithReplay(body.Replay))
	}
	if body.RunKey != "" && s.sessions != nil {
		res, err = s.sessions.Run(r.Context(), body.RunKey, sig, store, body.Args, opts...)
	} else {
		if body.RunKey != "" {
			opts = append(opts, signaltree.WithRunID(body.RunKey))
		}
		res, err = sig.Run(r.Context(), store, body.Args, opts...)
	}

	if err != nil {
		s.logger.Error("run failed", "signal", sig.Name(), "error", err)
		s.writeJSON(w, statusFor(err), RunResponse{Result: res, Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, RunResponse{Result: res})
}

func statusFor(err error) int {
	var (
		serr *domain.SerializationError
		merr *domain.MissingArgsError
	)
	switch {
	case errors.As(err, &serr), errors.As(err, &merr):
		return http.StatusBadRequest
	case errors.As(err, new(*domain.StepExecutionError)):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func describe(name string, sig *signaltree.Signal) SignalInfo {
	info := SignalInfo{Name: name, Actions: []string{}}
	if tree := sig.Tree(); tree != nil {
		for _, a := range tree.Registry {
			info.Actions = append(info.Actions, a.Name)
		}
	}
	return info
}
