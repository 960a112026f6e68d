package llm

import (
	"context"

	"github.com/EasterCompany/pulse-service/assessment"
	"github.com/EasterCompany/pulse-service/interfaces"
	"go.uber.org/zap"
)

var _ interfaces.PersonaRefiner = (*Client)(nil)

// Synthesize builds a persona from the bento and merged results. When
// existingID is set the persona keeps that id; otherwise a new one is
// assigned. The portrait is best-effort: a failed image leaves ImageURL
// empty and is not an error.
func (c *Client) Synthesize(ctx context.Context, bento *interfaces.Bento, results []interfaces.AssessmentResult, existingID string) (*interfaces.Persona, error) {
	return c.synthesize(ctx, bento, results, existingID, nil)
}

// Refine is Synthesize with the current persona passed to the prompt so the
// model keeps the same character.
func (c *Client) Refine(ctx context.Context, bento *interfaces.Bento, results []interfaces.AssessmentResult, existing *interfaces.Persona) (*interfaces.Persona, error) {
	return c.synthesize(ctx, bento, results, existing.ID, existing)
}

func (c *Client) synthesize(ctx context.Context, bento *interfaces.Bento, results []interfaces.AssessmentResult, existingID string, existing *interfaces.Persona) (*interfaces.Persona, error) {
	prompt, err := c.prompts.Render(promptPersona, struct {
		Bento    *interfaces.Bento
		Results  []interfaces.AssessmentResult
		Scores   []assessment.DimensionScore
		Existing *interfaces.Persona
	}{bento, results, assessment.Scores(results, c.prompts.DimensionNames()), existing})
	if err != nil {
		return nil, err
	}

	raw, err := c.text(ctx, "persona", Request{Model: c.models.Text, Prompt: prompt, JSON: true})
	if err != nil {
		return nil, err
	}
	out, err := Decode[personaOutput](raw)
	if err != nil {
		return nil, err
	}

	p := out.persona()
	p.ID = existingID
	if p.ID == "" {
		p.ID = c.newID()
	}
	now := c.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if existing != nil && !existing.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}

	if c.models.Image != "" {
		imagePrompt, err := c.prompts.Render(promptPersonaImage, p)
		if err == nil {
			p.ImageURL, err = c.image(ctx, "persona_image", imagePrompt)
		}
		if err != nil {
			p.ImageURL = ""
			c.metrics.ObserveImageFailures("persona", 1)
			c.logger.Warn("persona image generation failed", zap.String("persona", p.ID), zap.Error(err))
		}
	}
	return p, nil
}
