package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reacttest/internal/config"
	"reacttest/internal/game"
	appLog "reacttest/internal/log"
	"reacttest/internal/model"
	"reacttest/internal/render"
	"reacttest/internal/stats"
)

// StatusSource reports what the engine is doing right now.
type StatusSource interface {
	Status() game.Status
}

// Server exposes the live game state, the recent results and a preview of
// the panel over HTTP. Nothing here can change the game.
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	engine  StatusSource
	history *stats.History
	canvas  *render.Canvas
}

// NewServer constructs a new Server. canvas may be nil, in which case
// /preview.png answers 503.
func NewServer(cfg *config.Config, engine StatusSource, history *stats.History, canvas *render.Canvas) *Server {
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		engine:  engine,
		history: history,
		canvas:  canvas,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="reacttest", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves s on cfg.Listen until ctx is done, then shuts down
// gracefully.
func StartServer(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/rounds", s.handleRounds)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "no such endpoint")
			return
		}
		http.NotFound(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not running")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// roundsResponse is the JSON response shape for /api/rounds.
type roundsResponse struct {
	Rounds []model.Result `json:"rounds"`
}

// handleRounds returns the most recent results, newest last.
//
// GET /api/rounds?limit=20
//   - limit: at most this many results (default: all kept)
func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	rs := s.history.Recent()
	limit := parseIntDefault(r.URL.Query().Get("limit"), len(rs))
	if limit < 0 {
		limit = 0
	}
	if limit < len(rs) {
		rs = rs[len(rs)-limit:]
	}
	if rs == nil {
		rs = []model.Result{}
	}
	writeJSON(w, http.StatusOK, roundsResponse{Rounds: rs})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.history.Summary())
}

// handlePreview renders the shadow canvas as PNG.
func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	if s.canvas == nil {
		writeError(w, http.StatusServiceUnavailable, "preview not available")
		return
	}
	var buf bytes.Buffer
	if err := s.canvas.EncodePNG(&buf); err != nil {
		appLog.Error("preview encode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to encode preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
