// Package api serves pipeline runs over HTTP.
//
// # Endpoints
//
//	POST /v1/runs                 run the pipeline; body is pipeline.Options JSON
//	GET  /v1/runs/{id}            summary of a run
//	GET  /v1/runs/{id}/dot        diagram of a run (view, format, founders, traits, grid)
//	GET  /healthz                 liveness and build version
//
// Run ids are random UUIDs. Finished runs are kept in memory for the life of
// the server; summaries also go to the runner's cache, so a shared Redis
// cache lets identical requests on other instances skip the run.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/phylocite/phylocite/pkg/buildinfo"
	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/pipeline"
	"github.com/phylocite/phylocite/pkg/render"
)

const (
	// DefaultMaxRecords caps num_records per request.
	DefaultMaxRecords = 100_000

	maxBodyBytes = 1 << 20
)

// Server holds finished runs and serves them.
type Server struct {
	runner     *pipeline.Runner
	logger     *log.Logger
	maxRecords int

	mu   sync.RWMutex
	runs map[string]*Run
}

// Run is a finished pipeline run.
type Run struct {
	ID      string           `json:"id"`
	Created time.Time        `json:"created"`
	Summary pipeline.Summary `json:"summary"`

	result *pipeline.Result
}

// Option configures a Server.
type Option func(*Server)

// WithMaxRecords overrides DefaultMaxRecords.
func WithMaxRecords(n int) Option {
	return func(s *Server) { s.maxRecords = n }
}

// New creates a server executing runs with runner.
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:     runner,
		logger:     logger,
		maxRecords: DefaultMaxRecords,
		runs:       make(map[string]*Run),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, health{Status: "ok", Build: buildinfo.Get()})
	})
	r.Route("/v1/runs", func(r chi.Router) {
		r.Post("/", s.createRun)
		r.Get("/{id}", s.getRun)
		r.Get("/{id}/dot", s.getDiagram)
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return errors.Wrap(errors.ErrCodeIO, err, "listen on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.DefaultOptions()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "decode options"))
		return
	}
	// Output files and keyword weight files are local to the server.
	opts.Output = pipeline.OutputOptions{}
	opts.Traits.WeightsFile = ""
	if opts.Simulation.NumRecords > s.maxRecords {
		writeError(w, errors.New(errors.ErrCodeInvalidConfiguration,
			"num_records %d exceeds the limit of %d", opts.Simulation.NumRecords, s.maxRecords))
		return
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	run := &Run{
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		Summary: res.Summary(),
		result:  res,
	}
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	w.Header().Set("Location", "/v1/runs/"+run.ID)
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Run, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "run %q not found", id))
		return nil, false
	}
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "run %q not found", id))
		return nil, false
	}
	return run, true
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) getDiagram(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	ro := pipeline.RenderOptions{
		View:   q.Get("view"),
		Format: q.Get("format"),
		Grid:   q.Get("grid") == "true",
	}
	var err error
	if ro.Founders, err = parseIDs(q.Get("founders")); err != nil {
		writeError(w, err)
		return
	}
	if ro.Traits, err = parseIDs(q.Get("traits")); err != nil {
		writeError(w, err)
		return
	}

	data, _, err := s.runner.Render(r.Context(), run.result.Key, run.result.Analysis, ro)
	if err != nil {
		writeError(w, err)
		return
	}
	format, _ := render.ParseFormat(ro.Format)
	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// parseIDs parses a comma-separated list of non-negative integers.
func parseIDs(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid id %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func contentType(f render.Format) string {
	switch f {
	case render.FormatSVG:
		return "image/svg+xml"
	case render.FormatPDF:
		return "application/pdf"
	case render.FormatPNG:
		return "image/png"
	}
	return "text/vnd.graphviz; charset=utf-8"
}

type health struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func statusOf(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidConfiguration, errors.ErrCodeMalformedInput, errors.ErrCodeCyclicReference:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusOf(code), errorBody{Code: code, Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
