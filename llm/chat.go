package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/EasterCompany/pulse-service/interfaces"
	"go.uber.org/zap"
)

type chatData struct {
	Persona    *interfaces.Persona
	History    []interfaces.ChatMessage
	Documents  string
	Dimensions []string
}

func (c *Client) chatData(req interfaces.ChatRequest) chatData {
	history := append(append([]interfaces.ChatMessage(nil), req.History...),
		interfaces.ChatMessage{Role: interfaces.ChatRoleUser, Content: req.Message})
	return chatData{
		Persona:    req.Persona,
		History:    history,
		Documents:  req.DocumentText,
		Dimensions: c.prompts.DimensionNames(),
	}
}

// Reply answers a user turn and classifies whether it corrects the persona.
// Output that does not parse is returned verbatim as a plain reply.
func (c *Client) Reply(ctx context.Context, req interfaces.ChatRequest) (*interfaces.ChatReply, error) {
	if req.Persona == nil {
		return nil, errors.New("chat requires a persona")
	}
	prompt, err := c.prompts.Render(promptChat, c.chatData(req))
	if err != nil {
		return nil, err
	}
	raw, err := c.text(ctx, "chat", Request{Model: c.models.Chat, Prompt: prompt, JSON: true})
	if err != nil {
		return nil, err
	}

	out, err := Decode[chatOutput](raw)
	var perr *ParseError
	if errors.As(err, &perr) {
		c.logger.Warn("chat reply was not valid JSON, returning raw text", zap.String("reason", perr.Reason))
		return &interfaces.ChatReply{Text: strings.TrimSpace(raw)}, nil
	}
	if err != nil {
		return nil, err
	}

	reply := &interfaces.ChatReply{Text: out.ResponseText, IsCorrection: out.IsCorrection}
	if out.IsCorrection && out.Dimension != nil {
		reply.Dimension = c.prompts.MatchDimension(*out.Dimension)
	}
	if reply.Dimension == "" {
		reply.IsCorrection = false
	}
	return reply, nil
}

// Stream answers a user turn as plain text delivered in chunks and returns
// the full reply. It does not classify corrections.
func (c *Client) Stream(ctx context.Context, req interfaces.ChatRequest, onChunk func(string) error) (string, error) {
	if req.Persona == nil {
		return "", errors.New("chat requires a persona")
	}
	prompt, err := c.prompts.Render(promptChatStream, c.chatData(req))
	if err != nil {
		return "", err
	}
	var full strings.Builder
	err = c.gen.Stream(ctx, Request{Model: c.models.Chat, Prompt: prompt}, func(chunk string) error {
		full.WriteString(chunk)
		return onChunk(chunk)
	})
	if err != nil {
		return full.String(), fmt.Errorf("chat stream failed: %w", err)
	}
	return full.String(), nil
}

// Greeting opens a conversation. It never fails: model errors fall back to
// a fixed greeting.
func (c *Client) Greeting(ctx context.Context, persona *interfaces.Persona) (string, error) {
	prompt, err := c.prompts.Render(promptGreeting, persona)
	if err != nil {
		return interfaces.FallbackGreeting(persona), nil
	}
	raw, err := c.text(ctx, "greeting", Request{Model: c.models.Chat, Prompt: prompt})
	if err != nil || strings.TrimSpace(raw) == "" {
		c.logger.Warn("greeting generation failed, using fallback", zap.Error(err))
		return interfaces.FallbackGreeting(persona), nil
	}
	return strings.TrimSpace(raw), nil
}
