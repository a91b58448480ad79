// Package server exposes stored posts and digest runs over a small HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"reddigest/internal/pipeline"
	"reddigest/internal/store"
	"reddigest/internal/timewindow"
)

// Runner executes one digest cycle. The POST /api/v1/run handler drives it.
type Runner interface {
	Run(ctx context.Context, w timewindow.Window) (*pipeline.Result, error)
}

// Server provides the HTTP API.
type Server struct {
	store        store.Store
	runner       Runner
	lookbackDays int
	port         int
}

// New creates a new HTTP server. runner may be nil; /api/v1/run then reports
// 503.
func New(st store.Store, runner Runner, lookbackDays, port int) *Server {
	if port == 0 {
		port = 8080
	}
	if lookbackDays <= 0 {
		lookbackDays = timewindow.DefaultDays
	}
	return &Server{
		store:        st,
		runner:       runner,
		lookbackDays: lookbackDays,
		port:         port,
	}
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/posts", s.handlePosts)
	mux.HandleFunc("/api/v1/digests", s.handleDigests)
	mux.HandleFunc("/api/v1/digests/latest", s.handleLatestDigest)
	mux.HandleFunc("/api/v1/run", s.handleRun)
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("reddigest server listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	opts := store.ListOpts{Limit: 100}
	if sub := r.URL.Query().Get("subreddit"); sub != "" {
		opts.Subreddit = sub
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := timewindow.ParseTimestamp(since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		opts.Since = t
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			opts.Limit = n
		}
	}

	posts, err := s.store.ListPosts(r.Context(), opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  posts,
		"count": len(posts),
	})
}

func (s *Server) handleDigests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	digests, err := s.store.ListDigests(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  digests,
		"count": len(digests),
	})
}

func (s *Server) handleLatestDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	d, err := s.store.LatestDigest(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if d == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no digests yet"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": d})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if s.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "pipeline not configured"})
		return
	}

	window, err := timewindow.Resolve(
		r.URL.Query().Get("start"),
		r.URL.Query().Get("end"),
		s.lookbackDays,
		time.Now().UTC(),
	)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := s.runner.Run(r.Context(), window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"window":        window.String(),
		"digest_id":     res.DigestID,
		"preprocessing": res.Document.Preprocessing,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
