// Package endpoints exposes the assessment pipeline over HTTP.
package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EasterCompany/pulse-service/documents"
	"github.com/EasterCompany/pulse-service/health"
	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/EasterCompany/pulse-service/pipeline"
	"github.com/EasterCompany/pulse-service/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const DefaultWorkspaceHeader = "X-Pulse-Workspace"

type Options struct {
	Registry   *pipeline.Registry
	Statements interfaces.StatementSource
	Documents  interfaces.DocumentStore
	Health     *health.Checker
	Metrics    *utils.Metrics
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer        prometheus.Gatherer
	Logger          *zap.Logger
	WorkspaceHeader string
	DragThreshold   float64
	MaxUploadBytes  int64
}

// Server holds the handlers. Build one with New and serve Handler().
type Server struct {
	Options
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WorkspaceHeader == "" {
		opts.WorkspaceHeader = DefaultWorkspaceHeader
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Server{Options: opts}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/bento", s.handleDescribe)
	mux.HandleFunc("POST /api/bento/approve", s.handleApprove)
	mux.HandleFunc("GET /api/session", s.handleSnapshot)
	mux.HandleFunc("DELETE /api/session", s.handleStartOver)
	mux.HandleFunc("POST /api/session/retry", s.handleRetry)
	mux.HandleFunc("POST /api/assessment", s.handleStartAssessment)
	mux.HandleFunc("POST /api/assessment/swipe", s.handleSwipe)
	mux.HandleFunc("POST /api/assessment/previous", s.handlePrevious)
	mux.HandleFunc("POST /api/assessment/continue", s.handleContinue)
	mux.HandleFunc("POST /api/statements", s.handleStatements)

	mux.HandleFunc("GET /api/personas", s.handlePersonas)
	mux.HandleFunc("GET /api/personas/{id}", s.handlePersona)
	mux.HandleFunc("GET /api/personas/{id}/chat", s.handleOpenChat)
	mux.HandleFunc("POST /api/personas/{id}/chat", s.handleChat)
	mux.HandleFunc("GET /api/personas/{id}/documents", s.handleListDocuments)
	mux.HandleFunc("POST /api/personas/{id}/documents", s.handleUploadDocument)
	mux.HandleFunc("GET /api/personas/{id}/documents/{name}", s.handleReadDocument)

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))

	return Recover(s.Logger, LogRequests(s.Logger, mux))
}

func (s *Server) session(r *http.Request) (*pipeline.Session, error) {
	return s.Registry.Session(r.Context(), r.Header.Get(s.WorkspaceHeader))
}

// errorBody is the shape of every failure response.
type errorBody struct {
	Error    string         `json:"error"`
	Actions  []string       `json:"actions"`
	Redirect pipeline.Stage `json:"redirect,omitempty"`
	Step     pipeline.Step  `json:"step,omitempty"`
	Session  *pipeline.View `json:"session,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps pipeline and store errors onto HTTP. sess may be nil.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, sess *pipeline.Session, err error) {
	status, body := classify(err)
	if errors.As(err, new(*pipeline.StepError)) && sess != nil {
		body.Session = sess.Snapshot()
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	var (
		se *pipeline.StepError
		pe *pipeline.PreconditionError
	)
	switch {
	case errors.As(err, &se):
		return http.StatusBadGateway, errorBody{Error: se.Message, Step: se.Step, Actions: se.Actions()}
	case errors.As(err, &pe):
		return http.StatusConflict, errorBody{Error: pe.Error(), Redirect: pe.Redirect, Actions: []string{"redirect"}}
	case errors.Is(err, pipeline.ErrSynthesisInProgress):
		return http.StatusConflict, errorBody{Error: err.Error(), Actions: []string{"wait"}}
	case errors.Is(err, pipeline.ErrStaleRun), errors.Is(err, pipeline.ErrInvalidStage):
		return http.StatusConflict, errorBody{Error: err.Error(), Actions: []string{"reload"}}
	case errors.Is(err, pipeline.ErrInvalidInput), errors.Is(err, pipeline.ErrInvalidWorkspace),
		errors.Is(err, documents.ErrInvalidName), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Actions: []string{}}
	case errors.Is(err, pipeline.ErrPersonaNotFound), errors.Is(err, documents.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Actions: []string{}}
	case errors.Is(err, documents.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, errorBody{Error: err.Error(), Actions: []string{}}
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads this
		return 499, errorBody{Error: "request cancelled", Actions: []string{}}
	}
	return http.StatusInternalServerError, errorBody{Error: "Something went wrong. Please try again.", Actions: []string{"retry"}}
}
