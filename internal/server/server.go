// Package server exposes the MusicMax dashboard: an embedded single-page UI
// and the JSON API behind it.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/musicmax-cli/internal/analysis"
	"github.com/KaramelBytes/musicmax-cli/internal/chart"
	"github.com/KaramelBytes/musicmax-cli/internal/chat"
	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"go.uber.org/zap"
)

//go:embed static/index.html
var indexHTML []byte

// DefaultTopGenres is the ranking size when the request does not name one.
const DefaultTopGenres = 10

// Options tunes request defaults.
type Options struct {
	Addr            string
	DefaultClusters int
	SearchLimit     int
	Seed            int64
	// SessionTTL drops chat sessions idle for longer; 0 means DefaultSessionTTL.
	SessionTTL time.Duration
}

// Server serves the dashboard UI and API.
type Server struct {
	store    *Store
	bridge   *chat.Bridge
	sessions *sessionManager
	opts     Options
	logger   *zap.Logger
}

// New wires a server. bridge may be nil, in which case chat answers 503.
func New(store *Store, bridge *chat.Bridge, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultClusters < 2 {
		opts.DefaultClusters = 3
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = dataset.DefaultSearchLimit
	}
	return &Server{store: store, bridge: bridge, sessions: newSessionManager(opts.SessionTTL), opts: opts, logger: logger}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/genres", s.handleGenres)
	mux.HandleFunc("GET /api/genres/{genre}/chart", s.handleGenreChart)
	mux.HandleFunc("GET /api/clusters", s.handleClusters)
	mux.HandleFunc("GET /api/columns", s.handleColumns)
	mux.HandleFunc("POST /api/tracks", s.handleAppend)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/session/key", s.handleSessionKey)
	mux.HandleFunc("DELETE /api/session", s.handleSessionReset)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	return s.loggingMiddleware(mux)
}

// Start listens on opts.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("dashboard listening", zap.String("addr", s.opts.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := s.store.Summary()
	resp := map[string]any{"status": "ok", "rows": s.store.Len(), "sessions": s.sessions.count()}
	if err != nil {
		resp["status"] = "degraded"
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Summary()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	top, err := intParam(r, "top", DefaultTopGenres)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"features": g.Features,
		"total":    len(g.Rows),
		"genres":   g.Ranked(analysis.PopularityFeature, top),
	})
}

func (s *Server) handleGenreChart(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Summary()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	fig, err := chart.GenreMetrics(r.PathValue("genre"), g)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, fig)
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Summary()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	k, err := intParam(r, "k", s.opts.DefaultClusters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	clustered, err := analysis.Cluster(g, k, s.opts.Seed)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	type assignment struct {
		Genre   string `json:"genre"`
		Cluster int    `json:"cluster"`
	}
	assignments := make([]assignment, len(clustered.Rows))
	for i, row := range clustered.Rows {
		assignments[i] = assignment{Genre: row.Genre, Cluster: row.Cluster}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"k":           k,
		"inertia":     clustered.Inertia,
		"iterations":  clustered.Iterations,
		"assignments": assignments,
		"sizes":       clustered.ClusterSizes(),
		"figures": map[string]chart.Figure{
			"sizes":  chart.ClusterSizes(clustered),
			"genres": chart.ClusterGenres(clustered),
		},
	})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.store.Columns()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": cols})
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := s.store.Append(rec)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"rows": rows})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter q is required"))
		return
	}
	limit, err := intParam(r, "limit", s.opts.SearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recs, err := s.store.Search(q, limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if recs == nil {
		recs = []dataset.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "found": len(recs) > 0, "results": recs})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(r)
	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]any{"has_api_key": false, "history": []chat.Turn{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"has_api_key": sess.HasAPIKey(), "history": nonNilTurns(sess.History())})
}

func (s *Server) handleSessionKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	key := strings.TrimSpace(body.APIKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, errors.New("api_key is required"))
		return
	}
	s.sessions.get(w, r).SetAPIKey(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	s.sessions.drop(r)
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("chat is not configured"))
		return
	}
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	sess := s.sessions.get(w, r)
	// Matching rows are optional context; an unloaded table just means none.
	records, err := s.store.Search(body.Query, s.opts.SearchLimit)
	if err != nil {
		s.logger.Debug("chat without dataset context", zap.Error(err))
		records = nil
	}
	answer, err := s.bridge.Ask(r.Context(), sess, body.Query, records)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, chat.ErrMissingCredential):
			status = http.StatusUnauthorized
		case errors.Is(err, chat.ErrEmptyQuery):
			status = http.StatusBadRequest
		case errors.Is(err, chat.ErrNoPromptBudget):
			status = http.StatusInternalServerError
		}
		writeError(w, status, err)
		return
	}
	if records == nil {
		records = []dataset.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response": answer,
		"context":  records,
		"history":  nonNilTurns(sess.History()),
	})
}

// statusFor maps data-layer errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotLoaded), errors.Is(err, dataset.ErrLoad):
		return http.StatusServiceUnavailable
	case errors.Is(err, chart.ErrUnknownGenre):
		return http.StatusNotFound
	case errors.Is(err, dataset.ErrInvalidRecord),
		errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, analysis.ErrInvalidK):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeRecord accepts a flat JSON object; numbers and booleans are kept in
// their literal form.
func decodeRecord(r *http.Request) (dataset.Record, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	rec := make(dataset.Record, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case nil:
			rec[k] = ""
		case string:
			rec[k] = x
		case json.Number:
			rec[k] = x.String()
		case bool:
			rec[k] = strconv.FormatBool(x)
		default:
			return nil, fmt.Errorf("%w: field %s must be a scalar", dataset.ErrInvalidRecord, k)
		}
	}
	return rec, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %q is not an integer", name, v)
	}
	return n, nil
}

func nonNilTurns(t []chat.Turn) []chat.Turn {
	if t == nil {
		return []chat.Turn{}
	}
	return t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
