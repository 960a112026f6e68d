// Package llm talks to the generative model: it renders prompts, calls the
// backend, and coerces the output into domain types.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/EasterCompany/pulse-service/cache"
	"github.com/EasterCompany/pulse-service/utils"
	"github.com/EasterCompany/pulse-service/worker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Models names the backend model used for each kind of call. An empty
// Image model disables image generation.
type Models struct {
	Text  string
	Chat  string
	Image string
}

// Client implements the bento, statement, persona and chat collaborators on
// top of a Generator.
type Client struct {
	gen     Generator
	prompts *Prompts
	models  Models
	images  *cache.Images
	pool    *worker.WorkerPool
	metrics *utils.Metrics
	logger  *zap.Logger
	newID   func() string
	now     func() time.Time
}

type Option func(*Client)

func WithImageCache(c *cache.Images) Option { return func(cl *Client) { cl.images = c } }

func WithWorkerPool(p *worker.WorkerPool) Option { return func(cl *Client) { cl.pool = p } }

func WithMetrics(m *utils.Metrics) Option { return func(cl *Client) { cl.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(cl *Client) { cl.logger = l } }

// WithIDs replaces the uuid generator.
func WithIDs(next func() string) Option { return func(cl *Client) { cl.newID = next } }

func NewClient(gen Generator, prompts *Prompts, models Models, opts ...Option) *Client {
	c := &Client{
		gen:     gen,
		prompts: prompts,
		models:  models,
		logger:  zap.NewNop(),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = worker.New(4, c.logger)
	}
	return c
}

// Prompts exposes the loaded prompt pack.
func (c *Client) Prompts() *Prompts { return c.prompts }

func (c *Client) text(ctx context.Context, op string, req Request) (string, error) {
	start := time.Now()
	out, err := c.gen.Generate(ctx, req)
	c.metrics.ObserveGeneration(op, start, err)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", op, err)
	}
	return out, nil
}

// image returns a data URL for prompt, consulting the cache first. It
// returns "" with no error when image generation is disabled.
func (c *Client) image(ctx context.Context, op, prompt string) (string, error) {
	if c.models.Image == "" {
		return "", nil
	}
	if c.images != nil {
		if url, ok := c.images.Get(prompt); ok {
			return url, nil
		}
	}
	start := time.Now()
	img, err := c.gen.GenerateImage(ctx, c.models.Image, prompt)
	c.metrics.ObserveGeneration(op, start, err)
	if err != nil {
		return "", err
	}
	url := img.DataURL()
	if c.images != nil {
		c.images.Add(prompt, url)
	}
	return url, nil
}
