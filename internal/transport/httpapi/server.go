// Package httpapi exposes the orchestrator over HTTP: POST /api/ask plus
// health and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finassist/internal/common/config"
	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/common/validation"
	"finassist/internal/models"
	"finassist/internal/orchestrator"
	"finassist/internal/orchestrator/cache"
)

const maxBodyBytes = 64 * 1024

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

type Server struct {
	orch   *orchestrator.Orchestrator
	cache  *cache.Cache
	checks map[string]HealthCheck
	logger logger.Logger
	http   *http.Server
}

func NewServer(
	cfg config.ServerConfig,
	orch *orchestrator.Orchestrator,
	responseCache *cache.Cache,
	checks map[string]HealthCheck,
	log logger.Logger,
) *Server {
	s := &Server{
		orch:   orch,
		cache:  responseCache,
		checks: checks,
		logger: log.With(map[string]interface{}{
			"component": "httpapi",
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ask", s.handleAsk)
	mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	// pprof registers on the default mux.
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}

	return s
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed is
// swallowed so a clean shutdown reads as a nil error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"addr": s.http.Addr,
	})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the routing table for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId,omitempty"`
	Language  string `json:"language,omitempty"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body", nil)
		return
	}

	result, err := validation.ValidateAskRequest(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body", nil)
		return
	}
	if !result.Valid {
		s.writeError(w, http.StatusBadRequest, "invalid request", result.GetErrorMessages())
		return
	}

	var req askRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body", nil)
		return
	}

	query := models.Query{
		Question:   strings.TrimSpace(req.Question),
		SessionID:  req.SessionID,
		Language:   req.Language,
		ReceivedAt: time.Now(),
	}

	resp, err := s.orch.Handle(r.Context(), query)
	if err != nil {
		var stdErr *stderrors.StandardError
		if errors.As(err, &stdErr) && stdErr.Code == stderrors.ErrCodeRequestCancelled {
			// Caller went away; nothing to write.
			s.logger.Warn("request cancelled mid-flight", map[string]interface{}{
				"path": r.URL.Path,
			})
			return
		}
		s.logger.Error("request handling failed", map[string]interface{}{
			"error": err.Error(),
		})
		s.writeError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	status := http.StatusOK
	if resp.Status == models.StatusFailed {
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}

	body := map[string]interface{}{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	s.writeJSON(w, status, body)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": false, "size": 0})
		return
	}

	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		s.logger.Error("cache stats failed", map[string]interface{}{
			"error": err.Error(),
		})
		s.writeError(w, http.StatusInternalServerError, "cache stats unavailable", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to write response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, details []string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Details: details})
}
