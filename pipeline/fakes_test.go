package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/EasterCompany/pulse-service/store"
	"github.com/EasterCompany/pulse-service/stream"
	"github.com/stretchr/testify/require"
)

type fakeBentos struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeBentos) GenerateBento(_ context.Context, description string, kind interfaces.BentoKind) (*interfaces.Bento, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &interfaces.Bento{
		ID:                  fmt.Sprintf("bento-%d", f.calls),
		Kind:                kind,
		BusinessDescription: description,
		BusinessModel:       "subscriptions",
		CustomerChallenge:   "exam stress",
	}, nil
}

// fakeStatements serves queued batches over a real NDJSON pipe. Image
// updates are written once gate is closed, or straight away when gate is nil.
type fakeStatements struct {
	mu      sync.Mutex
	batches [][]interfaces.Statement
	images  []stream.ImageUpdate
	gate    chan struct{}
	err     error
	block   bool
	calls   []string
}

func (f *fakeStatements) Statements(ctx context.Context, _ *interfaces.Bento, dimension string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, dimension)
	block, err := f.block, f.err
	var batch []interfaces.Statement
	if len(f.batches) > 0 {
		batch = f.batches[0]
		if len(f.batches) > 1 {
			f.batches = f.batches[1:]
		}
	}
	images, gate := f.images, f.gate
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		w := stream.NewWriter(pw)
		if err := w.WriteStatements(batch); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				_ = pw.CloseWithError(ctx.Err())
				return
			}
		}
		for _, u := range images {
			if err := w.WriteImageUpdate(u); err != nil {
				return
			}
		}
		_ = pw.Close()
	}()
	return pr, nil
}

type synthCall struct {
	results    []interfaces.AssessmentResult
	existingID string
}

type fakeSynth struct {
	mu       sync.Mutex
	err      error
	returnID string
	gate     chan struct{}
	started  chan struct{}
	calls    []synthCall
}

func (f *fakeSynth) Synthesize(ctx context.Context, _ *interfaces.Bento, results []interfaces.AssessmentResult, existingID string) (*interfaces.Persona, error) {
	f.mu.Lock()
	f.calls = append(f.calls, synthCall{results: append([]interfaces.AssessmentResult(nil), results...), existingID: existingID})
	err, id, gate, started := f.err, f.returnID, f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &interfaces.Persona{ID: id, Name: "Maya Chen", Role: "Student", Bio: "Studies economics."}, nil
}

// refiningSynth also offers Refine and records the persona it was given.
type refiningSynth struct {
	*fakeSynth
	refined []*interfaces.Persona
}

func (f *refiningSynth) Refine(ctx context.Context, bento *interfaces.Bento, results []interfaces.AssessmentResult, existing *interfaces.Persona) (*interfaces.Persona, error) {
	f.mu.Lock()
	f.refined = append(f.refined, existing)
	f.mu.Unlock()
	return f.Synthesize(ctx, bento, results, existing.ID)
}

func (f *fakeSynth) lastCall(t *testing.T) synthCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

type fakeChat struct {
	mu          sync.Mutex
	reply       interfaces.ChatReply
	greeting    string
	greetingErr error
	chunks      []string
	requests    []interfaces.ChatRequest
}

func (f *fakeChat) Reply(_ context.Context, req interfaces.ChatRequest) (*interfaces.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	r := f.reply
	return &r, nil
}

func (f *fakeChat) Stream(_ context.Context, req interfaces.ChatRequest, onChunk func(string) error) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	chunks := f.chunks
	f.mu.Unlock()
	for _, c := range chunks {
		if err := onChunk(c); err != nil {
			return "", err
		}
	}
	return strings.Join(chunks, ""), nil
}

func (f *fakeChat) Greeting(context.Context, *interfaces.Persona) (string, error) {
	return f.greeting, f.greetingErr
}

type fakeDocs struct {
	text string
	asks [][]string
}

func (f *fakeDocs) List(context.Context, string) ([]interfaces.Document, error) { return nil, nil }
func (f *fakeDocs) Upload(context.Context, string, string, []byte) error        { return nil }
func (f *fakeDocs) Read(context.Context, string, string) ([]byte, error)        { return nil, nil }
func (f *fakeDocs) Close() error                                                { return nil }

func (f *fakeDocs) ReadText(_ context.Context, _ string, names []string, _ int) (string, error) {
	f.asks = append(f.asks, names)
	return f.text, nil
}

type harness struct {
	reg        *Registry
	s          *Session
	st         *store.MemoryStore
	ws         *store.Workspace
	bentos     *fakeBentos
	statements *fakeStatements
	synth      *fakeSynth
	chat       *fakeChat
	docs       *fakeDocs
}

func newHarness(t *testing.T, tune ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		st:         store.NewMemory(),
		bentos:     &fakeBentos{},
		statements: &fakeStatements{},
		synth:      &fakeSynth{returnID: "persona-1"},
		chat:       &fakeChat{},
		docs:       &fakeDocs{},
	}
	cfg := Config{
		GenerationTimeout: time.Second,
		DocumentBudget:    1000,
		Dimensions:        []string{"spend", "loyalty"},
	}
	for _, fn := range tune {
		fn(&cfg)
	}
	ids := 0
	h.reg = NewRegistry(h.st, Deps{
		Bentos:      h.bentos,
		Statements:  h.statements,
		Synthesizer: h.synth,
		Chat:        h.chat,
		Documents:   h.docs,
		NewID: func() string {
			ids++
			return fmt.Sprintf("uuid-%d", ids)
		},
	}, cfg)
	t.Cleanup(h.reg.Close)

	s, err := h.reg.Session(context.Background(), "")
	require.NoError(t, err)
	h.s = s
	h.ws = store.NewWorkspace(h.st, DefaultWorkspace)
	return h
}

func (h *harness) approvedBento(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := h.s.Describe(ctx, "a tutoring app for students", "")
	require.NoError(t, err)
	_, err = h.s.ApproveBento(ctx)
	require.NoError(t, err)
}

func batch(prefix string, dims ...string) []interfaces.Statement {
	out := make([]interfaces.Statement, len(dims))
	for i, d := range dims {
		out[i] = interfaces.Statement{
			ID:        fmt.Sprintf("%s-%d", prefix, i+1),
			Dimension: d,
			Text:      fmt.Sprintf("statement %d about %s", i+1, d),
		}
	}
	return out
}

func swipeAll(t *testing.T, s *Session, dirs ...interfaces.Direction) *View {
	t.Helper()
	var view *View
	for _, d := range dirs {
		v, accepted, err := s.Swipe(d)
		require.NoError(t, err)
		require.True(t, accepted)
		view = v
	}
	return view
}

func repeat(d interfaces.Direction, n int) []interfaces.Direction {
	out := make([]interfaces.Direction, n)
	for i := range out {
		out[i] = d
	}
	return out
}
