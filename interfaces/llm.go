package interfaces

import (
	"context"
	"io"
)

// BentoGenerator turns a free-text business description into a Bento.
type BentoGenerator interface {
	GenerateBento(ctx context.Context, description string, kind BentoKind) (*Bento, error)
}

// StatementSource produces a newline-delimited JSON stream: one statements
// envelope followed by zero or more image_update envelopes. An empty
// refinementDimension requests a full pass.
type StatementSource interface {
	Statements(ctx context.Context, bento *Bento, refinementDimension string) (io.ReadCloser, error)
}

// PersonaSynthesizer builds a persona from the bento and merged results.
// existingID is empty for a brand new persona.
type PersonaSynthesizer interface {
	Synthesize(ctx context.Context, bento *Bento, results []AssessmentResult, existingID string) (*Persona, error)
}

// ChatService answers user turns in the voice of a persona.
// PersonaRefiner is an optional upgrade of PersonaSynthesizer that rewrites
// an existing persona in character instead of starting from its id alone.
type PersonaRefiner interface {
	Refine(ctx context.Context, bento *Bento, results []AssessmentResult, existing *Persona) (*Persona, error)
}

type ChatService interface {
	Reply(ctx context.Context, req ChatRequest) (*ChatReply, error)
	Stream(ctx context.Context, req ChatRequest, onChunk func(string) error) (string, error)
	Greeting(ctx context.Context, persona *Persona) (string, error)
}
