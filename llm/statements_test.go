package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/EasterCompany/pulse-service/cache"
	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/EasterCompany/pulse-service/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const fullPassReply = `{"statements":{
	"loyalty":["i stick with one trusted platform"],
	"spend":["i gladly budget monthly for tools 💸","i splurge on things that save time"]
}}`

var testBento = &interfaces.Bento{ID: "b1", BusinessDescription: "tutoring app", BusinessModel: "subscriptions", CustomerChallenge: "exam stress"}

func TestGenerateStatements_FullPass(t *testing.T) {
	gen := newFakeGenerator().on("swipe-survey statements", fullPassReply)
	c := newTestClient(gen, Models{Text: "text-model"})

	statements, err := c.GenerateStatements(context.Background(), testBento, "")

	require.NoError(t, err)
	require.Len(t, statements, 3)
	assert.Equal(t, "spend", statements[0].Dimension)
	assert.Equal(t, "spend", statements[1].Dimension)
	assert.Equal(t, "loyalty", statements[2].Dimension)
	assert.NotEqual(t, statements[0].ID, statements[1].ID)

	req := gen.lastRequest()
	assert.True(t, req.JSON)
	assert.Equal(t, "text-model", req.Model)
	assert.Contains(t, req.Prompt, "tutoring app")
	assert.Contains(t, req.Prompt, `"novelty"`)
}

func TestGenerateStatements_Refinement(t *testing.T) {
	gen := newFakeGenerator().on("simple quiz", `{"statements":[
		{"dimension":"spend","text":"i pay for quality"},
		{"dimension":"social","text":"my friends pick my apps"}]}`)
	c := newTestClient(gen, Models{Text: "m"})

	statements, err := c.GenerateStatements(context.Background(), testBento, "spend")

	require.NoError(t, err)
	require.Len(t, statements, 2)
	for _, s := range statements {
		assert.Equal(t, "spend", s.Dimension)
	}
	assert.Contains(t, gen.lastRequest().Prompt, "8-10")
}

func TestGenerateStatements_Failures(t *testing.T) {
	gen := newFakeGenerator()
	gen.textErr = errors.New("quota exceeded")
	c := newTestClient(gen, Models{Text: "m"})
	_, err := c.GenerateStatements(context.Background(), testBento, "")
	assert.ErrorContains(t, err, "quota exceeded")

	gen = newFakeGenerator().on("swipe-survey", "I can't help with that")
	c = newTestClient(gen, Models{Text: "m"})
	_, err = c.GenerateStatements(context.Background(), testBento, "")
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

func readAll(t *testing.T, body io.ReadCloser) ([]interfaces.Statement, []stream.ImageUpdate) {
	t.Helper()
	defer body.Close()
	r := stream.NewReader(body, nil)
	statements, err := r.Statements(nil)
	require.NoError(t, err)
	var updates []stream.ImageUpdate
	require.NoError(t, r.ImageUpdates(func(u stream.ImageUpdate) { updates = append(updates, u) }))
	return statements, updates
}

func TestStatements_StreamsTextThenImages(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := newFakeGenerator().on("swipe-survey", fullPassReply)
	gen.imageErr["splurge"] = errors.New("safety filter")
	c := newTestClient(gen, Models{Text: "m", Image: "img"})

	body, err := c.Statements(context.Background(), testBento, "")
	require.NoError(t, err)

	statements, updates := readAll(t, body)
	require.Len(t, statements, 3)
	require.Len(t, updates, 2)

	ids := map[string]bool{}
	for _, s := range statements {
		ids[s.ID] = true
	}
	for _, u := range updates {
		assert.True(t, ids[u.ID])
		assert.True(t, strings.HasPrefix(u.ImageURL, "data:image/png;base64,"))
	}
}

func TestStatements_NoImageModel(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := newFakeGenerator().on("swipe-survey", fullPassReply)
	c := newTestClient(gen, Models{Text: "m"})

	body, err := c.Statements(context.Background(), testBento, "")
	require.NoError(t, err)

	statements, updates := readAll(t, body)
	assert.Len(t, statements, 3)
	assert.Empty(t, updates)
	assert.Zero(t, gen.imageHits)
}

func TestStatements_ImageCache(t *testing.T) {
	defer goleak.VerifyNone(t)

	images, err := cache.NewImages(16)
	require.NoError(t, err)
	gen := newFakeGenerator().on("swipe-survey", fullPassReply)
	c := newTestClient(gen, Models{Text: "m", Image: "img"}, WithImageCache(images))

	for i := 0; i < 2; i++ {
		body, err := c.Statements(context.Background(), testBento, "")
		require.NoError(t, err)
		_, updates := readAll(t, body)
		assert.Len(t, updates, 3)
	}
	assert.Equal(t, 3, gen.imageHits)
}

func TestStatements_ErrorBeforeStream(t *testing.T) {
	gen := newFakeGenerator()
	gen.textErr = errors.New("unavailable")
	c := newTestClient(gen, Models{Text: "m", Image: "img"})

	body, err := c.Statements(context.Background(), testBento, "")
	assert.Error(t, err)
	assert.Nil(t, body)
}

func TestStatements_CloseStopsImages(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := newFakeGenerator().on("swipe-survey", fullPassReply)
	c := newTestClient(gen, Models{Text: "m", Image: "img"})

	body, err := c.Statements(context.Background(), testBento, "")
	require.NoError(t, err)
	require.NoError(t, body.Close())
}
