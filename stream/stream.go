// Package stream encodes and decodes the newline-delimited JSON envelopes
// used to deliver statements followed by their images.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/EasterCompany/pulse-service/interfaces"
	"go.uber.org/zap"
)

const (
	TypeStatements  = "statements"
	TypeImageUpdate = "image_update"

	ContentType = "application/x-ndjson"
)

// ErrNoStatements is returned when a stream ends before its statements envelope.
var ErrNoStatements = errors.New("stream: ended before statements were delivered")

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ImageUpdate attaches a generated image to a statement already delivered.
type ImageUpdate struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
}

// Writer emits one envelope per line. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

func (w *Writer) WriteStatements(statements []interfaces.Statement) error {
	if statements == nil {
		statements = []interfaces.Statement{}
	}
	return w.write(TypeStatements, statements)
}

func (w *Writer) WriteImageUpdate(update ImageUpdate) error {
	return w.write(TypeImageUpdate, update)
}

func (w *Writer) write(typ string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("could not marshal %s envelope: %w", typ, err)
	}
	line, err := json.Marshal(Envelope{Type: typ, Data: payload})
	if err != nil {
		return fmt.Errorf("could not marshal envelope: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("could not write envelope: %w", err)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// Reader decodes envelopes from a stream, skipping lines that are not valid
// envelopes of a known type.
type Reader struct {
	r      *bufio.Reader
	logger *zap.Logger
}

func NewReader(r io.Reader, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{r: bufio.NewReader(r), logger: logger}
}

// Next returns the next well-formed envelope, or io.EOF at the end.
func (r *Reader) Next() (*Envelope, error) {
	for {
		line, err := r.r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if env, ok := r.decode(line); ok {
				return env, nil
			}
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("error reading stream: %w", err)
		}
	}
}

func (r *Reader) decode(line []byte) (*Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		r.logger.Warn("skipping malformed stream line", zap.Error(err), zap.Int("bytes", len(line)))
		return nil, false
	}
	switch env.Type {
	case TypeStatements, TypeImageUpdate:
		return &env, true
	}
	r.logger.Warn("skipping unknown envelope type", zap.String("type", env.Type))
	return nil, false
}

// Statements reads until the first decodable statements envelope and returns
// its payload.
// Image updates that arrive first are handed to early in order.
func (r *Reader) Statements(early func(ImageUpdate)) ([]interfaces.Statement, error) {
	for {
		env, err := r.Next()
		if err == io.EOF {
			return nil, ErrNoStatements
		}
		if err != nil {
			return nil, err
		}
		switch env.Type {
		case TypeStatements:
			var statements []interfaces.Statement
			if err := json.Unmarshal(env.Data, &statements); err != nil {
				r.logger.Warn("skipping malformed statements envelope", zap.Error(err))
				continue
			}
			return statements, nil
		case TypeImageUpdate:
			if u, ok := r.imageUpdate(env); ok && early != nil {
				early(u)
			}
		}
	}
}

// ImageUpdates delivers every remaining image update to fn until the stream
// ends. A clean end of stream returns nil.
func (r *Reader) ImageUpdates(fn func(ImageUpdate)) error {
	for {
		env, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if env.Type != TypeImageUpdate {
			r.logger.Warn("ignoring repeated statements envelope")
			continue
		}
		if u, ok := r.imageUpdate(env); ok {
			fn(u)
		}
	}
}

func (r *Reader) imageUpdate(env *Envelope) (ImageUpdate, bool) {
	var u ImageUpdate
	if err := json.Unmarshal(env.Data, &u); err != nil || u.ID == "" {
		r.logger.Warn("skipping malformed image update", zap.Error(err))
		return ImageUpdate{}, false
	}
	return u, true
}
