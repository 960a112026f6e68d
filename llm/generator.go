package llm

import (
	"context"
	"encoding/base64"
	"errors"
)

var (
	ErrGeneratorUnavailable = errors.New("llm: no model backend configured")
	ErrNoImage              = errors.New("llm: model returned no image")
)

// Request is a single text generation call.
type Request struct {
	Model  string
	System string
	Prompt string
	// JSON asks the backend for application/json output.
	JSON bool
}

// Image is raw image bytes returned by a model.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the image as a data: URL.
func (i *Image) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Generator is the model backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request, onChunk func(string) error) error
	GenerateImage(ctx context.Context, model, prompt string) (*Image, error)
}

// Unavailable is the Generator used when no backend is configured. Every
// call fails with ErrGeneratorUnavailable.
var Unavailable Generator = unavailable{}

type unavailable struct{}

func (unavailable) Generate(context.Context, Request) (string, error) {
	return "", ErrGeneratorUnavailable
}

func (unavailable) Stream(context.Context, Request, func(string) error) error {
	return ErrGeneratorUnavailable
}

func (unavailable) GenerateImage(context.Context, string, string) (*Image, error) {
	return nil, ErrGeneratorUnavailable
}
