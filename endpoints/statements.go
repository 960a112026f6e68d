package endpoints

import (
	"net/http"
	"strings"

	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/EasterCompany/pulse-service/stream"
	"go.uber.org/zap"
)

type statementsRequest struct {
	Bento               *interfaces.Bento `json:"bento"`
	RefinementDimension string            `json:"refinementDimension"`
}

// handleStatements streams a statement batch as NDJSON without touching any
// session: one statements envelope, then image updates as they finish.
func (s *Server) handleStatements(w http.ResponseWriter, r *http.Request) {
	var req statementsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	if req.Bento == nil || strings.TrimSpace(req.Bento.BusinessDescription) == "" {
		s.writeError(w, r, nil, badRequest("bento with a businessDescription is required"))
		return
	}

	body, err := s.Statements.Statements(r.Context(), req.Bento, strings.TrimSpace(req.RefinementDimension))
	if err != nil {
		s.Metrics.ObserveStepFailure("statements")
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:   "We couldn't prepare your statements. Please try again.",
			Actions: []string{"retry"},
		})
		s.Logger.Warn("statement stream failed", zap.Error(err))
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	lines, err := stream.Relay(w, body)
	if err != nil {
		s.Logger.Debug("statement stream interrupted", zap.Int("lines", lines), zap.Error(err))
	}
}
