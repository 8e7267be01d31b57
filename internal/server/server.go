package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitesage/sitesage/internal/crawler"
	"github.com/sitesage/sitesage/internal/governor"
	"github.com/sitesage/sitesage/internal/model"
	"github.com/sitesage/sitesage/internal/pipeline"
)

// Error kinds returned in the response envelope. Clients branch on the
// kind, not on the human-readable message.
const (
	ErrKindInvalidInput     = "invalid_input"
	ErrKindStartUnreachable = "start_unreachable"
	ErrKindDegradedService  = "degraded_service"
	ErrKindInternal         = "internal_error"
)

// maxRequestBody bounds the request body size. A url plus a question
// never legitimately approaches this.
const maxRequestBody = 64 * 1024

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// AskRequest is the request body for the ask endpoint.
type AskRequest struct {
	URL      string `json:"url"`
	Question string `json:"question"`
}

// AskMetadata carries provenance in a successful response.
type AskMetadata struct {
	Namespace     string    `json:"namespace"`
	URL           string    `json:"url"`
	ProcessedAt   time.Time `json:"processed_at"`
	PagesIngested int       `json:"pages_ingested"`
	CacheHit      bool      `json:"cache_hit"`
}

// AskResponse is the response envelope for the ask endpoint.
type AskResponse struct {
	Success  bool         `json:"success"`
	Answer   string       `json:"answer,omitempty"`
	Metadata *AskMetadata `json:"metadata,omitempty"`
	Error    string       `json:"error,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// Server serves the question-answering API.
type Server struct {
	// factory builds a fresh pipeline per request.
	factory func() *pipeline.Pipeline

	addr    string
	logger  *slog.Logger
	timeout time.Duration

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRequestTimeout bounds one request end to end, ingestion included.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Server around a pipeline factory.
func New(factory func() *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		factory: factory,
		addr:    ":8080",
		timeout: 10 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info("server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve on %s: %w", s.addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		s.logger.Info("shutting down server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler returns the server's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleAsk answers one question about one site. Validation runs before
// the pipeline so malformed input never triggers a crawl or a model call.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	var req AskRequest
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrKindInvalidInput, "request body must be JSON with url and question fields")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	req.Question = strings.TrimSpace(req.Question)
	if req.URL == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, ErrKindInvalidInput, "url and question are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	logger.Info("ask received", "url", req.URL)

	report := &model.QueryReport{URL: req.URL, Question: req.Question}
	if err := s.factory().Execute(ctx, report); err != nil {
		status, kind := classifyError(err)
		logger.Warn("ask failed", "url", req.URL, "kind", kind, "error", err)
		writeError(w, status, kind, err.Error())
		return
	}

	result := report.Result
	writeJSON(w, http.StatusOK, &AskResponse{
		Success: true,
		Answer:  result.Answer,
		Metadata: &AskMetadata{
			Namespace:     string(result.Namespace),
			URL:           result.URL,
			ProcessedAt:   result.ProcessedAt,
			PagesIngested: result.PagesIngested,
			CacheHit:      result.CacheHit,
		},
	})
}

// classifyError maps a pipeline failure to an HTTP status and error kind.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidURL):
		return http.StatusBadRequest, ErrKindInvalidInput
	case errors.Is(err, crawler.ErrStartUnreachable):
		return http.StatusBadGateway, ErrKindStartUnreachable
	case errors.Is(err, governor.ErrRetriesExhausted):
		return http.StatusServiceUnavailable, ErrKindDegradedService
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrKindDegradedService
	default:
		return http.StatusInternalServerError, ErrKindInternal
	}
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, &AskResponse{
		Success: false,
		Error:   kind,
		Message: message,
	})
}

// writeJSON writes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
