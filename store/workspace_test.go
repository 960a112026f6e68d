package store

import (
	"context"
	"testing"

	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_BentoRoundTrip(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(NewMemory(), "acme")

	b, err := ws.Bento(ctx)
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, ws.SaveBento(ctx, &interfaces.Bento{ID: "b1", BusinessModel: "subscriptions", CustomerChallenge: "churn"}))
	b, err = ws.Bento(ctx)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "subscriptions", b.BusinessModel)
}

func TestWorkspace_UpsertPersonaKeepsPosition(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(NewMemory(), "acme")

	for _, id := range []string{"p1", "p2", "p3"} {
		replaced, err := ws.UpsertPersona(ctx, &interfaces.Persona{ID: id, Name: id})
		require.NoError(t, err)
		assert.False(t, replaced)
	}

	replaced, err := ws.UpsertPersona(ctx, &interfaces.Persona{ID: "p2", Name: "Refined"})
	require.NoError(t, err)
	assert.True(t, replaced)

	roster, err := ws.Personas(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, "p2", roster[1].ID)
	assert.Equal(t, "Refined", roster[1].Name)

	p, err := ws.Persona(ctx, "p3")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p3", p.Name)

	p, err = ws.Persona(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = ws.UpsertPersona(ctx, &interfaces.Persona{Name: "no id"})
	assert.Error(t, err)
}

func TestWorkspace_ResetOnlyTouchesOwnKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	a := NewWorkspace(s, "a")
	b := NewWorkspace(s, "b")

	require.NoError(t, a.SaveResults(ctx, "p1", []interfaces.AssessmentResult{{Dimension: "spend", Score: 1}}))
	require.NoError(t, a.SaveChatHistory(ctx, "p1", []interfaces.ChatMessage{{Role: interfaces.ChatRoleUser, Content: "hi"}}))
	require.NoError(t, a.SaveProgress(ctx, Progress{BentoApproved: true}))
	require.NoError(t, b.SaveResults(ctx, "p1", []interfaces.AssessmentResult{{Dimension: "social", Score: -1}}))

	n, err := a.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	results, err := a.Results(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, results)

	progress, err := a.Progress(ctx)
	require.NoError(t, err)
	assert.False(t, progress.BentoApproved)

	results, err = b.Results(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestWorkspace_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	ws := NewWorkspace(s, "acme")
	require.NoError(t, s.Set(ctx, ws.Prefix()+"bento", []byte("{broken")))

	_, err := ws.Bento(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not decode")
}
