// Package server exposes a live topology over HTTP.
//
// Routes:
//
//	GET  /api/events       Server-Sent Events stream of domain events
//	GET  /api/graph        JSON snapshot of the last flush
//	GET  /api/graph.{fmt}  json, dot, svg, png or pdf rendering
//	POST /api/layout       coordinates written back by a layout engine
//	GET  /metrics          Prometheus metrics
//	GET  /healthz          liveness and graph counters
//
// The server is a [pipeline.Sink]: on every flush it serializes the snapshot
// to immutable bytes, which request handlers read without touching the
// graph store.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/graph"
	"github.com/Adirelle/docker-graph/pkg/pipeline"
	"github.com/Adirelle/docker-graph/pkg/render/nodelink"
	"github.com/Adirelle/docker-graph/pkg/stream"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

// maxLayoutBody bounds POST /api/layout bodies.
const maxLayoutBody = 8 << 20

// LayoutUpdater receives coordinates posted to /api/layout.
type LayoutUpdater interface {
	UpdateLayout(ctx context.Context, layout map[string]topology.Layout) error
}

// Options configures a [Server].
type Options struct {
	Hub      *stream.Hub
	Renderer *pipeline.Renderer
	Layout   LayoutUpdater
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
}

// published is the serialized state of one flush.
type published struct {
	json    []byte
	dot     string
	nodes   int
	links   int
	flushed time.Time
}

// Server serves the event stream and the latest graph.
type Server struct {
	hub      *stream.Hub
	renderer *pipeline.Renderer
	layout   LayoutUpdater
	gatherer prometheus.Gatherer
	logger   *log.Logger
	started  time.Time

	mu    sync.RWMutex
	state published
}

// New builds a server. Hub and Renderer are required.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		hub:      opts.Hub,
		renderer: opts.Renderer,
		layout:   opts.Layout,
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
		started:  time.Now(),
	}
}

// Flush publishes snap. It implements [pipeline.Sink].
func (s *Server) Flush(_ context.Context, snap topology.Snapshot) error {
	data, err := graph.MarshalGraph(snap)
	if err != nil {
		return err
	}
	state := published{
		json:    data,
		dot:     nodelink.ToDOT(snap, s.renderer.DOT),
		nodes:   len(snap.Nodes),
		links:   len(snap.Links),
		flushed: time.Now(),
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

func (s *Server) current() (published, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, !s.state.flushed.IsZero()
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.hub.ServeHTTP)
		r.Get("/graph", s.handleGraph(pipeline.FormatJSON))
		for _, format := range pipeline.Formats {
			r.Get("/graph"+pipeline.Extension(format), s.handleGraph(format))
		}
		r.Post("/layout", s.handleLayout)
	})
	return r
}

var contentTypes = map[string]string{
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
}

func (s *Server) handleGraph(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := s.current()
		if !ok {
			writeError(w, errors.New(errors.ErrCodeUnavailable, "graph not ready"))
			return
		}

		var data []byte
		switch format {
		case pipeline.FormatJSON:
			data = state.json
		case pipeline.FormatDOT:
			data = []byte(state.dot)
		default:
			var err error
			data, err = s.renderer.RenderDOT(r.Context(), state.dot, format)
			if err != nil {
				s.logger.Error("render failed", "format", format, "error", err)
				writeError(w, err)
				return
			}
		}

		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Last-Modified", state.flushed.UTC().Format(http.TimeFormat))
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	if s.layout == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "layout updates are disabled"))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLayoutBody))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	layout, err := graph.UnmarshalLayout(body)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.layout.UpdateLayout(r.Context(), layout); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type health struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Subscribers int       `json:"subscribers"`
	Nodes       int       `json:"nodes"`
	Links       int       `json:"links"`
	Flushed     time.Time `json:"flushed,omitzero"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state, _ := s.current()
	writeJSON(w, http.StatusOK, health{
		Status:      "ok",
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Subscribers: s.hub.Subscribers(),
		Nodes:       state.nodes,
		Links:       state.links,
		Flushed:     state.flushed,
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

var _ pipeline.Sink = (*Server)(nil)
