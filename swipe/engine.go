// Package swipe implements the card-by-card assessment state machine.
package swipe

import (
	"errors"
	"time"

	"github.com/EasterCompany/pulse-service/interfaces"
)

const (
	DefaultSettleDelay   = 300 * time.Millisecond
	DefaultDragThreshold = 100.0
)

var (
	ErrNotComplete      = errors.New("swipe: not every statement has been answered")
	ErrAlreadyContinued = errors.New("swipe: results were already handed off")
)

// State is the coarse position of an Engine.
type State int

const (
	StateAwaitingInput State = iota
	StateComplete
	StateContinued
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateComplete:
		return "complete"
	case StateContinued:
		return "continued"
	}
	return "unknown"
}

// Engine walks a fixed batch of statements and records one result per card.
// It is not safe for concurrent use; callers serialise access.
type Engine struct {
	statements  []interfaces.Statement
	results     []interfaces.AssessmentResult
	index       int
	continued   bool
	settle      time.Duration
	lockedUntil time.Time
	now         func() time.Time
}

type Option func(*Engine)

// WithSettleDelay sets how long inputs are ignored after each transition.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) { e.settle = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an engine positioned on the first statement. An empty batch
// is immediately complete.
func New(statements []interfaces.Statement, opts ...Option) *Engine {
	e := &Engine{
		statements: append([]interfaces.Statement(nil), statements...),
		results:    make([]interfaces.AssessmentResult, 0, len(statements)),
		settle:     DefaultSettleDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) State() State {
	switch {
	case e.continued:
		return StateContinued
	case e.index >= len(e.statements):
		return StateComplete
	}
	return StateAwaitingInput
}

// Index is the position of the current card, equal to the number of results.
func (e *Engine) Index() int { return e.index }

func (e *Engine) Total() int { return len(e.statements) }

// Current returns the statement awaiting input.
func (e *Engine) Current() (interfaces.Statement, bool) {
	if e.index >= len(e.statements) {
		return interfaces.Statement{}, false
	}
	return e.statements[e.index], true
}

func (e *Engine) Statements() []interfaces.Statement {
	return append([]interfaces.Statement(nil), e.statements...)
}

func (e *Engine) Results() []interfaces.AssessmentResult {
	return append([]interfaces.AssessmentResult(nil), e.results...)
}

// Locked reports whether the settle window from the last transition is open.
func (e *Engine) Locked() bool {
	return e.now().Before(e.lockedUntil)
}

// Swipe records a result for the current card and advances. It reports false
// when the input was ignored.
func (e *Engine) Swipe(d interfaces.Direction) bool {
	score, ok := d.Score()
	if !ok || e.Locked() || e.State() != StateAwaitingInput {
		return false
	}
	stmt := e.statements[e.index]
	e.results = append(e.results, interfaces.AssessmentResult{
		Dimension: stmt.Dimension,
		Score:     score,
		Text:      stmt.Text,
	})
	e.index++
	e.lock()
	return true
}

// Previous discards the last result and steps back one card. Only Continue
// leaves Complete, so Previous is ignored there.
func (e *Engine) Previous() bool {
	if e.index == 0 || e.State() != StateAwaitingInput || e.Locked() {
		return false
	}
	e.results = e.results[:len(e.results)-1]
	e.index--
	e.lock()
	return true
}

// Continue hands off the result log. It succeeds at most once.
func (e *Engine) Continue() ([]interfaces.AssessmentResult, error) {
	if e.continued {
		return nil, ErrAlreadyContinued
	}
	if e.index < len(e.statements) {
		return nil, ErrNotComplete
	}
	e.continued = true
	return e.Results(), nil
}

// PatchImage attaches an image to the statement with the given id, whether
// or not the user has already passed it.
func (e *Engine) PatchImage(id, url string) bool {
	for i := range e.statements {
		if e.statements[i].ID == id {
			e.statements[i].ImageURL = url
			return true
		}
	}
	return false
}

func (e *Engine) lock() {
	e.lockedUntil = e.now().Add(e.settle)
}
