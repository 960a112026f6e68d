package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/EasterCompany/pulse-service/interfaces"
	"go.uber.org/zap"
)

type chatTurn struct {
	run     uint64
	persona *interfaces.Persona
	req     interfaces.ChatRequest
}

// OpenChat returns the conversation with a persona. An empty conversation
// is started with a greeting.
func (s *Session) OpenChat(ctx context.Context, personaID string) ([]interfaces.ChatMessage, error) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()

	p, history, err := s.chatState(ctx, personaID)
	if err != nil || len(history) > 0 {
		return history, err
	}

	greeting, err := s.deps.Chat.Greeting(ctx, p)
	if err != nil || strings.TrimSpace(greeting) == "" {
		greeting = interfaces.FallbackGreeting(p)
	}
	history = []interfaces.ChatMessage{{Role: interfaces.ChatRolePersona, Content: greeting}}
	if err := s.commitChat(ctx, run, personaID, history); err != nil {
		return nil, err
	}
	return history, nil
}

// Chat sends one user turn and returns the classified reply.
func (s *Session) Chat(ctx context.Context, personaID string, in ChatInput) (*ChatTurn, error) {
	turn, err := s.prepareChat(ctx, personaID, in)
	if err != nil {
		return nil, err
	}
	dl := newDeadline(s.base, ctx, s.cfg.GenerationTimeout)
	reply, err := s.deps.Chat.Reply(dl.ctx, turn.req)
	err = dl.err(err)
	dl.release()
	if err != nil {
		return nil, fmt.Errorf("chat reply failed: %w", err)
	}
	return s.finishChat(ctx, turn, *reply)
}

// ChatStream sends one user turn and hands the reply to onChunk as it is
// generated. Streamed replies are never classified as corrections.
func (s *Session) ChatStream(ctx context.Context, personaID string, in ChatInput, onChunk func(string) error) (*ChatTurn, error) {
	turn, err := s.prepareChat(ctx, personaID, in)
	if err != nil {
		return nil, err
	}
	dl := newDeadline(s.base, ctx, s.cfg.GenerationTimeout)
	text, err := s.deps.Chat.Stream(dl.ctx, turn.req, onChunk)
	err = dl.err(err)
	dl.release()
	if err != nil {
		return nil, fmt.Errorf("chat stream failed: %w", err)
	}
	return s.finishChat(ctx, turn, interfaces.ChatReply{Text: text})
}

func (s *Session) chatState(ctx context.Context, personaID string) (*interfaces.Persona, []interfaces.ChatMessage, error) {
	p, err := s.ws.Persona(ctx, personaID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, personaID)
	}
	history, err := s.ws.ChatHistory(ctx, personaID)
	if err != nil {
		return nil, nil, err
	}
	return p, history, nil
}

func (s *Session) prepareChat(ctx context.Context, personaID string, in ChatInput) (*chatTurn, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, invalidInput("message is empty")
	}
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()

	p, history, err := s.chatState(ctx, personaID)
	if err != nil {
		return nil, err
	}

	var docs string
	if len(in.Documents) > 0 && s.deps.Documents != nil {
		docs, err = s.deps.Documents.ReadText(ctx, personaID, in.Documents, s.cfg.DocumentBudget)
		if err != nil {
			return nil, fmt.Errorf("could not read documents: %w", err)
		}
	}
	return &chatTurn{
		run:     run,
		persona: p,
		req: interfaces.ChatRequest{
			Persona:      p,
			History:      history,
			Message:      message,
			DocumentText: docs,
		},
	}, nil
}

func (s *Session) finishChat(ctx context.Context, turn *chatTurn, reply interfaces.ChatReply) (*ChatTurn, error) {
	history := append(append([]interfaces.ChatMessage(nil), turn.req.History...),
		interfaces.ChatMessage{Role: interfaces.ChatRoleUser, Content: turn.req.Message},
		interfaces.ChatMessage{Role: interfaces.ChatRolePersona, Content: reply.Text},
	)
	if err := s.commitChat(ctx, turn.run, turn.persona.ID, history); err != nil {
		return nil, err
	}

	out := &ChatTurn{Reply: reply, History: history}
	if reply.IsCorrection && reply.Dimension != "" {
		out.Refinement = &Refinement{PersonaID: turn.persona.ID, Dimension: reply.Dimension}
		s.logger.Info("chat correction detected",
			zap.String("persona", turn.persona.ID),
			zap.String("dimension", reply.Dimension))
	}
	return out, nil
}

// commitChat saves history unless the workspace was cleared while the
// reply was generated.
func (s *Session) commitChat(ctx context.Context, run uint64, personaID string, history []interfaces.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run != s.run {
		return s.stale("chat")
	}
	if err := s.ws.SaveChatHistory(context.WithoutCancel(ctx), personaID, history); err != nil {
		return fmt.Errorf("could not save chat history: %w", err)
	}
	return nil
}
