// Package server exposes the REST surface: current status, questions
// (blocking and streamed), the latest raw image, health and the
// WebSocket upgrade.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bridgewatch/internal/analysis"
	"bridgewatch/internal/capture"
	"bridgewatch/internal/frame"
	"bridgewatch/internal/ws"
)

// Server wires the analysis engine and frame store to HTTP handlers.
type Server struct {
	engine    *analysis.Engine
	store     *frame.Store
	scheduler *capture.Scheduler
	hub       *ws.Hub
	logger    *log.Logger
}

// New creates the HTTP server wiring. hub may be nil.
func New(engine *analysis.Engine, store *frame.Store, scheduler *capture.Scheduler, hub *ws.Hub, logger *log.Logger) *Server {
	return &Server{
		engine:    engine,
		store:     store,
		scheduler: scheduler,
		hub:       hub,
		logger:    logger,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/ask", s.handleAsk)
		r.Post("/ask/stream", s.handleAskStream)
		r.Get("/image/latest", s.handleLatestImage)
	})
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeHTTP)
	}
	return r
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res := s.engine.Analyze(r.Context(), "")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res := s.engine.Analyze(r.Context(), req.Question)
	writeJSON(w, http.StatusOK, res)
}

// handleAskStream streams the answer as server-sent events: one
// {"token": ...} data event per token, then an explicit "done" event
// carrying the full result. If the client disconnects mid-stream the
// analysis still runs to completion so caching and logging behave
// exactly as in the blocking path.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Deliberately detached from the request context: a disconnect must
	// not abort the in-flight generative call.
	ctx := context.WithoutCancel(r.Context())

	res := s.engine.AnalyzeStream(ctx, req.Question, func(token string) {
		payload, err := json.Marshal(map[string]string{"token": token})
		if err != nil {
			return
		}
		// Write errors mean the client is gone; the stream callback
		// keeps going so the result is still cached and logged.
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	})

	final, err := json.Marshal(res)
	if err != nil {
		s.logger.Printf("[Server] Failed to encode final stream event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", final)
	flusher.Flush()
}

func (s *Server) handleLatestImage(w http.ResponseWriter, r *http.Request) {
	f := s.store.Latest()
	if f == nil {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Captured-At", f.CapturedAt.UTC().Format(time.RFC3339))
	w.Write(f.Data)
}

type healthResponse struct {
	Status          string            `json:"status"`
	BufferDepth     int               `json:"buffer_depth"`
	PreservedAges   map[string]string `json:"preserved_ages"`
	LastCapture     *time.Time        `json:"last_capture,omitempty"`
	LastCaptureOK   bool              `json:"last_capture_ok"`
	ModelConfigured bool              `json:"model_configured"`
	CounterEnabled  bool              `json:"counter_enabled"`
	ConnectedWS     int               `json:"connected_ws_clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ages := make(map[string]string)
	for angle, age := range s.store.PreservedAges() {
		ages[string(angle)] = age.Round(time.Second).String()
	}

	resp := healthResponse{
		Status:          "ok",
		BufferDepth:     s.store.Depth(),
		PreservedAges:   ages,
		ModelConfigured: s.engine.ModelConfigured(),
		CounterEnabled:  s.engine.CounterEnabled(),
	}
	if s.scheduler != nil {
		lastAttempt, lastSuccess, lastErr := s.scheduler.Status()
		if !lastAttempt.IsZero() {
			resp.LastCapture = &lastAttempt
		}
		resp.LastCaptureOK = lastErr == nil && !lastSuccess.IsZero()
	}
	if s.hub != nil {
		resp.ConnectedWS = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
