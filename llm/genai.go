package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAI is a Generator backed by the Gemini API.
type GenAI struct {
	client *genai.Client
}

func NewGenAI(ctx context.Context, apiKey string) (*GenAI, error) {
	if apiKey == "" {
		return nil, ErrGeneratorUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAI{client: client}, nil
}

func contentConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func (g *GenAI) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), contentConfig(req))
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", req.Model, err)
	}
	return resp.Text(), nil
}

func (g *GenAI) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, genai.Text(req.Prompt), contentConfig(req)) {
		if err != nil {
			return fmt.Errorf("gemini %s stream: %w", req.Model, err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (g *GenAI) GenerateImage(ctx context.Context, model, prompt string) (*Image, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini %s image: %w", model, err)
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &Image{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}, nil
			}
		}
	}
	return nil, ErrNoImage
}
