// Package api exposes the HTTP surface of the report service: a health probe
// and the report generation endpoint used by the fleet dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/jmcallister/fleetreport/internal/config"
	"github.com/jmcallister/fleetreport/internal/export"
	"github.com/jmcallister/fleetreport/internal/queue"
	"github.com/jmcallister/fleetreport/internal/repository"
)

const maxRequestBody = 1 << 20

// Generator runs a synchronous export. Satisfied by *export.Coordinator.
type Generator interface {
	Generate(ctx context.Context, req export.Request) (*export.Result, error)
}

// GenerateResponse is the wire shape of every /reports/generate reply.
type GenerateResponse struct {
	Success    bool   `json:"success"`
	ReportID   string `json:"reportId,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
	FileID     string `json:"fileId,omitempty"`
	FileURL    string `json:"fileUrl,omitempty"`
	Warning    string `json:"warning,omitempty"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Server exposes HTTP endpoints for report generation.
type Server struct {
	cfg       *config.Config
	generator Generator
	queue     *asynq.Client
	log       *zap.Logger
	server    *http.Server
	once      sync.Once
}

// New constructs a Server. The queue client may be nil; async requests are
// then rejected.
func New(cfg *config.Config, generator Generator, queueClient *asynq.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		generator: generator,
		queue:     queueClient,
		log:       log,
	}
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/reports/generate", s.handleGenerate)
	return corsMiddleware(loggingMiddleware(s.log, mux))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Handler(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", zap.String("address", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondJSON(w, http.StatusMethodNotAllowed, GenerateResponse{Error: "method not allowed"})
		return
	}

	var req export.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, GenerateResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if err := req.Prepare(export.Defaults{
		URLColumn:    s.cfg.ReportURLColumn,
		FileIDColumn: s.cfg.ReportFileIDColumn,
		FolderID:     s.cfg.DriveFolderID,
	}); err != nil {
		s.respondJSON(w, http.StatusBadRequest, GenerateResponse{Error: err.Error()})
		return
	}

	if req.Async {
		if s.queue == nil {
			s.respondJSON(w, http.StatusBadRequest, GenerateResponse{Error: "async processing is not enabled"})
			return
		}
		if err := queue.EnqueueExport(r.Context(), s.queue, req); err != nil {
			s.log.Error("enqueue export", zap.Error(err))
			s.respondJSON(w, http.StatusInternalServerError, GenerateResponse{Error: "failed to queue report"})
			return
		}
		s.respondJSON(w, http.StatusAccepted, GenerateResponse{
			Success:  true,
			ReportID: string(req.ReportID),
			Status:   "queued",
		})
		return
	}

	result, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.log.Error("report generation failed",
			zap.String("report_id", string(req.ReportID)), zap.Error(err))
		s.respondJSON(w, status, GenerateResponse{Error: err.Error()})
		return
	}

	s.respondJSON(w, http.StatusOK, GenerateResponse{
		Success:    true,
		ReportID:   result.ReportID,
		TemplateID: result.TemplateID,
		FileID:     result.FileID,
		FileURL:    result.FileURL,
		Warning:    result.Warning,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
