package endpoints

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/EasterCompany/pulse-service/documents"
	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/EasterCompany/pulse-service/pipeline"
	"github.com/EasterCompany/pulse-service/stream"
	"go.uber.org/zap"
)

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	roster, err := sess.Personas(r.Context())
	if err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"personas": roster, "count": len(roster)})
}

func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	view, err := sess.Persona(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	history, err := sess.OpenChat(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// chatChunk is one line of a streamed chat reply. The final line has Done
// set and carries the saved turn.
type chatChunk struct {
	Text string             `json:"text,omitempty"`
	Done bool               `json:"done,omitempty"`
	Turn *pipeline.ChatTurn `json:"turn,omitempty"`
	Err  string             `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	var in pipeline.ChatInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, sess, err)
		return
	}
	id := r.PathValue("id")

	if streamed, _ := strconv.ParseBool(r.URL.Query().Get("stream")); !streamed {
		turn, err := sess.Chat(r.Context(), id, in)
		if err != nil {
			s.writeError(w, r, sess, err)
			return
		}
		writeJSON(w, http.StatusOK, turn)
		return
	}

	// Headers go out with the first chunk so validation errors can still
	// be reported with a status code.
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	started := false
	send := func(c chatChunk) error {
		if !started {
			w.Header().Set("Content-Type", stream.ContentType)
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(c); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	turn, err := sess.ChatStream(r.Context(), id, in, func(text string) error {
		return send(chatChunk{Text: text})
	})
	switch {
	case err != nil && !started:
		s.writeError(w, r, sess, err)
	case err != nil:
		s.Logger.Warn("chat stream failed", zap.String("persona", id), zap.Error(err))
		_ = send(chatChunk{Done: true, Err: "The reply was interrupted. Please try again."})
	default:
		_ = send(chatChunk{Done: true, Turn: turn})
	}
}

// persona resolves the path persona within the caller's workspace.
func (s *Server) persona(w http.ResponseWriter, r *http.Request) (string, bool) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, nil, err)
		return "", false
	}
	id := r.PathValue("id")
	if _, err := sess.Persona(r.Context(), id); err != nil {
		s.writeError(w, r, sess, err)
		return "", false
	}
	return id, true
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := s.persona(w, r)
	if !ok {
		return
	}
	docs, err := s.Documents.List(r.Context(), id)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.persona(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, nil, badRequest("multipart field \"file\" is required"))
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, s.MaxUploadBytes+1))
	if err != nil {
		s.writeError(w, r, nil, badRequest("could not read upload"))
		return
	}
	if int64(len(content)) > s.MaxUploadBytes {
		s.writeError(w, r, nil, documents.ErrTooLarge)
		return
	}
	name, err := documents.CleanName(header.Filename)
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	if err := s.Documents.Upload(r.Context(), id, name, content); err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, interfaces.Document{Name: name, Size: int64(len(content)), UpdatedAt: time.Now().UTC()})
}

func (s *Server) handleReadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.persona(w, r)
	if !ok {
		return
	}
	content, err := s.Documents.Read(r.Context(), id, r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, nil, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(content))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	_, _ = w.Write(content)
}
