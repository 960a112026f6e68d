package llm

import (
	"context"
	"strings"

	"github.com/EasterCompany/pulse-service/interfaces"
)

// GenerateBento summarises a business description, either as the classic
// model/challenge bento or as a SWOT grid.
func (c *Client) GenerateBento(ctx context.Context, description string, kind interfaces.BentoKind) (*interfaces.Bento, error) {
	description = strings.TrimSpace(description)
	data := struct{ Description string }{description}

	bento := &interfaces.Bento{
		ID:                  c.newID(),
		BusinessDescription: description,
		CreatedAt:           c.now().UTC(),
	}

	switch kind {
	case interfaces.BentoKindSWOT:
		prompt, err := c.prompts.Render(promptSWOT, data)
		if err != nil {
			return nil, err
		}
		raw, err := c.text(ctx, "swot", Request{Model: c.models.Text, Prompt: prompt, JSON: true})
		if err != nil {
			return nil, err
		}
		out, err := Decode[swotOutput](raw)
		if err != nil {
			return nil, err
		}
		bento.Kind = interfaces.BentoKindSWOT
		bento.Panels = out.Panels
	default:
		prompt, err := c.prompts.Render(promptBento, data)
		if err != nil {
			return nil, err
		}
		raw, err := c.text(ctx, "bento", Request{Model: c.models.Text, Prompt: prompt, JSON: true})
		if err != nil {
			return nil, err
		}
		out, err := Decode[bentoOutput](raw)
		if err != nil {
			return nil, err
		}
		bento.Kind = interfaces.BentoKindSummary
		bento.BusinessModel = out.BusinessModel
		bento.CustomerChallenge = out.CustomerChallenge
		bento.ProductService = out.ProductService
		bento.Positioning = out.Positioning
		bento.WhyWeExist = out.WhyWeExist
		bento.Competitors = out.Competitors
	}
	return bento, nil
}
