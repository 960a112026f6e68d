package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBento_Summary(t *testing.T) {
	gen := newFakeGenerator().on("expert business analyst", "```json\n"+
		`{"businessModel":"monthly subscription","customerChallenge":"exam stress",`+
		`"competitors":[{"name":"Quizlet","domain":"quizlet.com"}]}`+"\n```")
	c := newTestClient(gen, Models{Text: "m"})

	bento, err := c.GenerateBento(context.Background(), "  a tutoring app for students ", interfaces.BentoKindSummary)

	require.NoError(t, err)
	assert.Equal(t, "id-1", bento.ID)
	assert.Equal(t, interfaces.BentoKindSummary, bento.Kind)
	assert.Equal(t, "a tutoring app for students", bento.BusinessDescription)
	assert.Equal(t, "monthly subscription", bento.BusinessModel)
	require.Len(t, bento.Competitors, 1)
	assert.Equal(t, "quizlet.com", bento.Competitors[0].Domain)
}

func TestGenerateBento_SWOT(t *testing.T) {
	gen := newFakeGenerator().on("SWOT analysis", `{"panels":[
		{"title":"Strengths","content":"cheap","colSpan":2,"rowSpan":1},
		{"title":"Threats","content":"big tech","colSpan":2,"rowSpan":1}]}`)
	c := newTestClient(gen, Models{Text: "m"})

	bento, err := c.GenerateBento(context.Background(), "a tutoring app", interfaces.BentoKindSWOT)

	require.NoError(t, err)
	assert.Equal(t, interfaces.BentoKindSWOT, bento.Kind)
	require.Len(t, bento.Panels, 2)
	assert.Equal(t, 2, bento.Panels[0].ColSpan)
	assert.Empty(t, bento.BusinessModel)
}

func TestGenerateBento_MissingFields(t *testing.T) {
	gen := newFakeGenerator().on("expert business analyst", `{"businessModel":"ads"}`)
	c := newTestClient(gen, Models{Text: "m"})

	_, err := c.GenerateBento(context.Background(), "x", interfaces.BentoKindSummary)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "missing")
}
