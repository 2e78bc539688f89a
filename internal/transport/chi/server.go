// Package chi serves the read-only HTTP API: produced summaries, per-article
// stage event logs, health, and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

// SummaryReader reads persisted summaries.
type SummaryReader interface {
	Get(ctx context.Context, articleID string) (domain.Summary, error)
	List(ctx context.Context) ([]domain.Summary, error)
}

// EventReader reads per-article stage events.
type EventReader interface {
	List(ctx context.Context, articleID string) ([]domain.StageEvent, error)
}

// Pinger checks store reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the read-only API server.
type Server struct {
	summaries SummaryReader
	events    EventReader
	store     Pinger
	logger    *zap.Logger
}

// NewServer creates the API server.
func NewServer(summaries SummaryReader, events EventReader, store Pinger, logger *zap.Logger) *Server {
	return &Server{summaries: summaries, events: events, store: store, logger: logger}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/summaries", s.listSummaries)
		r.Get("/summaries/{articleID}", s.getSummary)
		r.Get("/articles/{articleID}/events", s.listEvents)
	})
	return r
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	sums, err := s.summaries.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]summaryResponse, len(sums))
	for i := range sums {
		items[i] = summaryToResponse(&sums[i])
	}
	writeJSON(w, http.StatusOK, summaryListResponse{Items: items, Total: len(items)})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")

	sum, err := s.summaries.Get(r.Context(), articleID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(&sum))
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")

	events, err := s.events.List(r.Context(), articleID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]eventResponse, len(events))
	for i, ev := range events {
		items[i] = eventResponse{
			RunID:  ev.RunID,
			Stage:  string(ev.Stage),
			Status: string(ev.Status),
			At:     ev.At.UTC().Format(time.RFC3339),
			Detail: ev.Detail,
		}
	}
	writeJSON(w, http.StatusOK, eventListResponse{Items: items, Total: len(items)})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status := "healthy"
	httpStatus := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "unreachable"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSummaryNotFound) {
		writeError(w, http.StatusNotFound, "summary_not_found", domain.ErrSummaryNotFound.Error())
		return
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

type summaryResponse struct {
	ArticleID  string  `json:"article_id"`
	Text       string  `json:"text"`
	Topic      string  `json:"topic"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	TraceRef   string  `json:"trace_ref"`
	ProducedAt string  `json:"produced_at"`
}

type summaryListResponse struct {
	Items []summaryResponse `json:"items"`
	Total int               `json:"total"`
}

type eventResponse struct {
	RunID  string `json:"run_id"`
	Stage  string `json:"stage"`
	Status string `json:"status"`
	At     string `json:"at"`
	Detail string `json:"detail,omitempty"`
}

type eventListResponse struct {
	Items []eventResponse `json:"items"`
	Total int             `json:"total"`
}

func summaryToResponse(sum *domain.Summary) summaryResponse {
	return summaryResponse{
		ArticleID:  sum.ArticleID(),
		Text:       sum.Text(),
		Topic:      sum.Topic(),
		Score:      sum.Score(),
		Confidence: sum.Confidence(),
		TraceRef:   sum.TraceRef(),
		ProducedAt: sum.ProducedAt().UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
