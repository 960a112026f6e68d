package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// fakeGenerator answers by matching a marker substring in the prompt.
type fakeGenerator struct {
	mu        sync.Mutex
	replies   map[string]string
	textErr   error
	imageErr  map[string]error
	chunks    []string
	requests  []Request
	imageHits int
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{replies: map[string]string{}, imageErr: map[string]error{}}
}

func (f *fakeGenerator) on(marker, reply string) *fakeGenerator {
	f.replies[marker] = reply
	return f
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.textErr != nil {
		return "", f.textErr
	}
	for marker, reply := range f.replies {
		if strings.Contains(req.Prompt, marker) {
			return reply, nil
		}
	}
	return "", fmt.Errorf("no reply for prompt %.40q", req.Prompt)
}

func (f *fakeGenerator) Stream(_ context.Context, req Request, onChunk func(string) error) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	chunks := f.chunks
	f.mu.Unlock()
	for _, c := range chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGenerator) GenerateImage(_ context.Context, _ string, prompt string) (*Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageHits++
	for marker, err := range f.imageErr {
		if strings.Contains(prompt, marker) {
			return nil, err
		}
	}
	return &Image{MIMEType: "image/png", Data: []byte(prompt[:4])}, nil
}

func (f *fakeGenerator) lastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestClient(gen Generator, models Models, opts ...Option) *Client {
	prompts, err := LoadPrompts("")
	if err != nil {
		panic(err)
	}
	opts = append([]Option{WithIDs(sequentialIDs())}, opts...)
	return NewClient(gen, prompts, models, opts...)
}
