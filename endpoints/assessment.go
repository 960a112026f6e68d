package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/EasterCompany/pulse-service/pipeline"
	"github.com/EasterCompany/pulse-service/swipe"
)

var errBadRequest = errors.New("bad request")

const maxJSONBody = 1 << 20

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
}

type describeRequest struct {
	Description string               `json:"description"`
	Kind        interfaces.BentoKind `json:"kind"`
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	var req describeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	view, err := sess.Describe(r.Context(), req.Description, req.Kind)
	s.respond(w, r, sess, view, err)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	view, err := sess.ApproveBento(r.Context())
	s.respond(w, r, sess, view, err)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleStartOver(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	view, err := sess.StartOver(r.Context())
	s.respond(w, r, sess, view, err)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	view, err := sess.Retry(r.Context())
	s.respond(w, r, sess, view, err)
}

type startRequest struct {
	PersonaID string `json:"personaId"`
	Dimension string `json:"dimension"`
}

func (s *Server) handleStartAssessment(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	var req startRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	view, err := sess.StartAssessment(r.Context(), req.PersonaID, req.Dimension)
	s.respond(w, r, sess, view, err)
}

// swipeRequest carries exactly one of a direction, an arrow key or a drag
// offset.
type swipeRequest struct {
	Direction interfaces.Direction `json:"direction"`
	Key       string               `json:"key"`
	Drag      *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"drag"`
}

func (req swipeRequest) direction(threshold float64) (interfaces.Direction, bool) {
	switch {
	case req.Direction != "":
		return req.Direction, true
	case req.Key != "":
		return swipe.DirectionFromKey(req.Key)
	case req.Drag != nil:
		return swipe.DirectionFromDrag(req.Drag.X, req.Drag.Y, threshold)
	}
	return "", false
}

type swipeResponse struct {
	*pipeline.View
	Accepted bool `json:"accepted"`
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	var req swipeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	dir, ok := req.direction(s.DragThreshold)
	if !ok {
		// a short drag or an unmapped key is not a swipe
		writeJSON(w, http.StatusOK, swipeResponse{View: sess.Snapshot()})
		return
	}
	view, accepted, err := sess.Swipe(dir)
	if err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, swipeResponse{View: view, Accepted: accepted})
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	view, moved, err := sess.Previous()
	if err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, swipeResponse{View: view, Accepted: moved})
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	view, err := sess.Continue(r.Context())
	s.respond(w, r, sess, view, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, sess *pipeline.Session, view *pipeline.View, err error) {
	if err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}
