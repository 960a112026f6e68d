package interfaces

import (
	"context"
	"time"
)

// Document describes an uploaded file attached to a persona.
type Document struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DocumentStore keeps per-persona reference documents.
type DocumentStore interface {
	List(ctx context.Context, personaID string) ([]Document, error)
	Upload(ctx context.Context, personaID, name string, content []byte) error
	Read(ctx context.Context, personaID, name string) ([]byte, error)
	ReadText(ctx context.Context, personaID string, names []string, budget int) (string, error)
	Close() error
}
