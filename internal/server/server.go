// Package server exposes the conversation pipeline over HTTP. It parses
// requests and shapes responses; all conversation semantics live in the
// chat package.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/converse-go/internal/chat"
	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/models"
)

// Responder is the conversation entry point the routes call.
type Responder interface {
	Respond(ctx context.Context, owner, message string, role models.Role) (string, error)
	RespondStream(ctx context.Context, owner, message string, role models.Role, onToken func(token string) error) (string, error)
}

// HistoryStore lists persisted turns for the history route.
type HistoryStore interface {
	ListRecent(ctx context.Context, owner string, limit int) ([]models.Turn, error)
}

// Server holds route dependencies.
type Server struct {
	responder Responder
	history   HistoryStore
	collector *metrics.Collector
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// New creates the HTTP server wrapper.
func New(responder Responder, history HistoryStore, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		responder: responder,
		history:   history,
		collector: collector,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Get("/api/message", s.handleMessageInfo)
	r.Post("/api/message", s.handleMessage)
	r.Get("/api/message/ws", s.handleMessageWS)
	r.Post("/api/directive", s.handleDirective)
	r.Get("/api/history/{owner}", s.handleHistory)

	return r
}

type messageRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Role     string `json:"role,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.collector.Snapshot())
}

func (s *Server) handleMessageInfo(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "POST a {username, message} payload to converse",
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeMessageRequest(w, r)
	if !ok {
		return
	}

	response, err := s.responder.Respond(r.Context(), req.Username, req.Message, models.ParseRole(req.Role))
	if err != nil {
		s.respondPipelineError(w, req.Username, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: response})
}

type directiveRequest struct {
	Username  string `json:"username"`
	Directive string `json:"directive"`
}

// handleDirective seeds a system-role behavior turn for an owner so it is
// retrievable as history in later requests.
func (s *Server) handleDirective(w http.ResponseWriter, r *http.Request) {
	var req directiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Directive) == "" {
		respondError(w, http.StatusBadRequest, "username and directive are required")
		return
	}

	response, err := s.responder.Respond(r.Context(), req.Username, req.Directive, models.RoleSystem)
	if err != nil {
		s.respondPipelineError(w, req.Username, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: response})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.history.ListRecent(r.Context(), owner, limit)
	if err != nil {
		s.logger.Error("history listing failed", "owner", owner, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"owner": owner, "turns": turns})
}

func (s *Server) decodeMessageRequest(w http.ResponseWriter, r *http.Request) (messageRequest, bool) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return messageRequest{}, false
	}
	if strings.TrimSpace(req.Username) == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return messageRequest{}, false
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return messageRequest{}, false
	}
	return req, true
}

func (s *Server) respondPipelineError(w http.ResponseWriter, owner string, err error) {
	if errors.Is(err, chat.ErrModelInvocation) {
		respondError(w, http.StatusBadGateway, "model invocation failed")
		return
	}
	s.logger.Error("request failed", "owner", owner, "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	}
}
