package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPersona(t *testing.T, h *harness) {
	t.Helper()
	_, err := h.ws.UpsertPersona(context.Background(), &interfaces.Persona{ID: "p1", Name: "Maya"})
	require.NoError(t, err)
}

func TestOpenChat_Greeting(t *testing.T) {
	h := newHarness(t)
	seedPersona(t, h)
	h.chat.greeting = "hey! i'm maya"

	history, err := h.s.OpenChat(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []interfaces.ChatMessage{{Role: interfaces.ChatRolePersona, Content: "hey! i'm maya"}}, history)

	h.chat.greeting = "a different greeting"
	history, err = h.s.OpenChat(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "hey! i'm maya", history[0].Content, "an existing conversation is not greeted again")
}

func TestOpenChat_FallbackGreeting(t *testing.T) {
	h := newHarness(t)
	seedPersona(t, h)
	h.chat.greetingErr = errors.New("down")

	history, err := h.s.OpenChat(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Hello, I'm Maya. It's nice to meet you.", history[0].Content)

	_, err = h.s.OpenChat(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrPersonaNotFound)
}

func TestChat_CorrectionOffersRefinement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedPersona(t, h)
	h.docs.text = "--- pricing.md ---\n£9 a month"
	h.chat.reply = interfaces.ChatReply{Text: "oh, sorry!", IsCorrection: true, Dimension: "spend"}

	turn, err := h.s.Chat(ctx, "p1", ChatInput{Message: " you'd pay for this ", Documents: []string{"pricing.md"}})
	require.NoError(t, err)
	assert.Equal(t, &Refinement{PersonaID: "p1", Dimension: "spend"}, turn.Refinement)
	require.Len(t, turn.History, 2)
	assert.Equal(t, "you'd pay for this", turn.History[0].Content)

	req := h.chat.requests[0]
	assert.Equal(t, "--- pricing.md ---\n£9 a month", req.DocumentText)
	assert.Equal(t, [][]string{{"pricing.md"}}, h.docs.asks)

	stored, err := h.ws.ChatHistory(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, turn.History, stored)
}

func TestChat_PlainReplyAndValidation(t *testing.T) {
	h := newHarness(t)
	seedPersona(t, h)
	h.chat.reply = interfaces.ChatReply{Text: "i like cheap stuff"}

	turn, err := h.s.Chat(context.Background(), "p1", ChatInput{Message: "what do you like?"})
	require.NoError(t, err)
	assert.Nil(t, turn.Refinement)
	assert.Empty(t, h.docs.asks)

	_, err = h.s.Chat(context.Background(), "p1", ChatInput{Message: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChatStream(t *testing.T) {
	h := newHarness(t)
	seedPersona(t, h)
	h.chat.chunks = []string{"hey ", "there"}

	var got []string
	turn, err := h.s.ChatStream(context.Background(), "p1", ChatInput{Message: "hi"}, func(c string) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hey ", "there"}, got)
	assert.Equal(t, "hey there", turn.History[1].Content)
	assert.False(t, turn.Reply.IsCorrection)
}

func TestChatHistorySurvivesRefinement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.approvedBento(t)
	h.statements.batches = [][]interfaces.Statement{batch("s", "spend"), batch("r", "spend")}
	_, err := h.s.StartAssessment(ctx, "", "")
	require.NoError(t, err)
	swipeAll(t, h.s, interfaces.DirectionRight)
	_, err = h.s.Continue(ctx)
	require.NoError(t, err)

	h.chat.reply = interfaces.ChatReply{Text: "sorry!", IsCorrection: true, Dimension: "spend"}
	turn, err := h.s.Chat(ctx, "persona-1", ChatInput{Message: "that's wrong"})
	require.NoError(t, err)

	_, err = h.s.StartAssessment(ctx, turn.Refinement.PersonaID, turn.Refinement.Dimension)
	require.NoError(t, err)
	swipeAll(t, h.s, interfaces.DirectionLeft)
	_, err = h.s.Continue(ctx)
	require.NoError(t, err)

	history, err := h.ws.ChatHistory(ctx, "persona-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
