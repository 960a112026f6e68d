package llm

import (
	"context"
	"io"

	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/EasterCompany/pulse-service/stream"
	"github.com/EasterCompany/pulse-service/worker"
	"go.uber.org/zap"
)

type statementsInput struct {
	BusinessName        string                 `json:"business_name"`
	BusinessDescription string                 `json:"business_description"`
	Dimensions          []interfaces.Dimension `json:"dimensions"`
}

// Statements generates a batch of statements and returns the NDJSON stream
// carrying it. Text generation finishes before the stream is returned, so a
// model failure surfaces as an error here; images are then generated in the
// background and appended to the stream as they complete. Closing the
// stream or cancelling ctx stops image generation.
func (c *Client) Statements(ctx context.Context, bento *interfaces.Bento, refinementDimension string) (io.ReadCloser, error) {
	statements, err := c.GenerateStatements(ctx, bento, refinementDimension)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		imgCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		w := stream.NewWriter(pw)
		if err := w.WriteStatements(statements); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		c.streamImages(imgCtx, cancel, w, statements)
		_ = pw.Close()
	}()
	return pr, nil
}

// GenerateStatements asks the model for statement text only.
func (c *Client) GenerateStatements(ctx context.Context, bento *interfaces.Bento, refinementDimension string) ([]interfaces.Statement, error) {
	var (
		name   string
		prompt string
		err    error
	)
	if refinementDimension == "" {
		name = "statements"
		prompt, err = c.prompts.Render(promptStatements, struct{ Input statementsInput }{statementsInput{
			BusinessName:        "The User's Business",
			BusinessDescription: bento.BusinessDescription,
			Dimensions:          c.prompts.Dimensions,
		}})
	} else {
		name = "refinement"
		prompt, err = c.prompts.Render(promptRefinement, struct {
			Bento     *interfaces.Bento
			Dimension string
			Min, Max  int
		}{bento, refinementDimension, c.prompts.Refinement.Min, c.prompts.Refinement.Max})
	}
	if err != nil {
		return nil, err
	}

	raw, err := c.text(ctx, name, Request{Model: c.models.Text, Prompt: prompt, JSON: true})
	if err != nil {
		return nil, err
	}
	out, err := Decode[statementsOutput](raw)
	if err != nil {
		return nil, err
	}

	drafts := out.drafts(c.prompts.DimensionNames(), refinementDimension)
	statements := make([]interfaces.Statement, len(drafts))
	for i, d := range drafts {
		statements[i] = interfaces.Statement{ID: c.newID(), Dimension: d.Dimension, Text: d.Text}
	}
	return statements, nil
}

func (c *Client) streamImages(ctx context.Context, cancel context.CancelFunc, w *stream.Writer, statements []interfaces.Statement) {
	if c.models.Image == "" || len(statements) == 0 {
		return
	}
	jobs := make([]worker.Job, 0, len(statements))
	for _, s := range statements {
		prompt, err := c.prompts.Render(promptStatementImage, s)
		if err != nil {
			c.logger.Warn("could not render image prompt", zap.String("id", s.ID), zap.Error(err))
			continue
		}
		jobs = append(jobs, worker.Job{ID: s.ID, Prompt: prompt})
	}

	generate := func(ctx context.Context, job worker.Job) (string, error) {
		return c.image(ctx, "statement_image", job.Prompt)
	}
	emit := func(r worker.Result) {
		if err := w.WriteImageUpdate(stream.ImageUpdate{ID: r.ID, ImageURL: r.URL}); err != nil {
			cancel()
		}
	}

	failed, err := c.pool.Run(ctx, jobs, generate, emit)
	c.metrics.ObserveImageFailures("statement", failed)
	if err != nil {
		c.logger.Debug("statement images stopped early", zap.Error(err))
	}
}
