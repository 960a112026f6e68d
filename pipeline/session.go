package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/EasterCompany/pulse-service/assessment"
	"github.com/EasterCompany/pulse-service/interfaces"
	"github.com/EasterCompany/pulse-service/store"
	"github.com/EasterCompany/pulse-service/stream"
	"github.com/EasterCompany/pulse-service/swipe"
	"github.com/EasterCompany/pulse-service/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the tunables shared by every session.
type Config struct {
	GenerationTimeout time.Duration
	SettleDelay       time.Duration
	DocumentBudget    int
	// Dimensions orders the dimension scores of a persona.
	Dimensions []string
}

// Deps are the collaborators a session calls out to.
type Deps struct {
	Bentos      interfaces.BentoGenerator
	Statements  interfaces.StatementSource
	Synthesizer interfaces.PersonaSynthesizer
	Chat        interfaces.ChatService
	Documents   interfaces.DocumentStore
	Metrics     *utils.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
	NewID       func() string
}

// Session is the wizard state of one workspace. All methods are safe for
// concurrent use. Generation calls run without the lock held; their results
// are committed under the lock only if the run they started in is still
// current.
type Session struct {
	ws     *store.Workspace
	deps   Deps
	cfg    Config
	base   context.Context
	logger *zap.Logger

	mu           sync.Mutex
	run          uint64
	runCtx       context.Context
	runCancel    context.CancelFunc
	stage        Stage
	bento        *interfaces.Bento
	progress     store.Progress
	persona      *interfaces.Persona
	engine       *swipe.Engine
	target       Refinement
	synthesizing bool
	failure      *StepError
	retry        func(context.Context) (*View, error)

	bg sync.WaitGroup
}

func newSession(base context.Context, ws *store.Workspace, deps Deps, cfg Config) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	s := &Session{
		ws:     ws,
		deps:   deps,
		cfg:    cfg,
		base:   base,
		logger: deps.Logger.With(zap.String("workspace", ws.Name())),
		stage:  StageDescribe,
	}
	s.runCtx, s.runCancel = context.WithCancel(base)
	return s
}

// load restores the resumable part of the wizard from the store.
func (s *Session) load(ctx context.Context) error {
	bento, err := s.ws.Bento(ctx)
	if err != nil {
		return err
	}
	progress, err := s.ws.Progress(ctx)
	if err != nil {
		return err
	}
	var persona *interfaces.Persona
	if progress.ActivePersonaID != "" {
		if persona, err = s.ws.Persona(ctx, progress.ActivePersonaID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bento, s.progress, s.persona = bento, progress, persona
	switch {
	case persona != nil:
		s.stage = StagePersona
	case bento != nil:
		s.stage = StageReview
	default:
		s.stage = StageDescribe
	}
	return nil
}

// beginRun invalidates everything in flight and returns the new run's id
// and context. Callers hold s.mu.
func (s *Session) beginRun() (uint64, context.Context) {
	s.runCancel()
	s.run++
	s.runCtx, s.runCancel = context.WithCancel(s.base)
	return s.run, s.runCtx
}

func (s *Session) stale(op string) error {
	s.deps.Metrics.ObserveStale()
	s.logger.Debug("discarding result from a previous run", zap.String("operation", op))
	return ErrStaleRun
}

// fail moves the session into the failed state. Callers hold s.mu.
func (s *Session) fail(step Step, err error, retry func(context.Context) (*View, error)) *StepError {
	se := stepError(step, err)
	s.stage = StageFailed
	s.failure = se
	s.retry = retry
	s.deps.Metrics.ObserveStepFailure(string(step))
	s.logger.Warn("generation step failed", zap.String("step", string(step)), zap.Error(err))
	return se
}

// Describe summarises the business into a bento and moves to review. Any
// assessment in progress is abandoned.
func (s *Session) Describe(ctx context.Context, description string, kind interfaces.BentoKind) (*View, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, invalidInput("business description is empty")
	}
	switch kind {
	case "":
		kind = interfaces.BentoKindSummary
	case interfaces.BentoKindSummary, interfaces.BentoKindSWOT:
	default:
		return nil, invalidInput(fmt.Sprintf("unknown bento kind %q", kind))
	}

	s.mu.Lock()
	if s.synthesizing {
		s.mu.Unlock()
		return nil, ErrSynthesisInProgress
	}
	run, runCtx := s.beginRun()
	s.stage = StageDescribe
	s.engine = nil
	s.target = Refinement{}
	s.failure, s.retry = nil, nil
	s.mu.Unlock()

	dl := newDeadline(runCtx, ctx, s.cfg.GenerationTimeout)
	bento, err := s.deps.Bentos.GenerateBento(dl.ctx, description, kind)
	err = dl.err(err)
	dl.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if run != s.run {
		return nil, s.stale("describe")
	}
	if err != nil {
		return nil, s.fail(StepBento, err, func(ctx context.Context) (*View, error) {
			return s.Describe(ctx, description, kind)
		})
	}

	commit := context.WithoutCancel(ctx)
	progress := store.Progress{ActivePersonaID: s.progress.ActivePersonaID}
	if err := s.ws.SaveBento(commit, bento); err != nil {
		return nil, fmt.Errorf("could not save bento: %w", err)
	}
	if err := s.ws.SaveProgress(commit, progress); err != nil {
		return nil, fmt.Errorf("could not save progress: %w", err)
	}
	s.bento, s.progress = bento, progress
	s.stage = StageReview
	s.logger.Info("bento generated", zap.String("bento", bento.ID), zap.String("kind", string(bento.Kind)))
	return s.snapshot(), nil
}

// ApproveBento confirms the reviewed bento. It is required before an
// assessment can start.
func (s *Session) ApproveBento(ctx context.Context) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bento == nil {
		return nil, &PreconditionError{Missing: "bento", Redirect: StageDescribe}
	}
	if s.stage != StageReview {
		return nil, invalidStage("approve the bento", s.stage)
	}
	progress := s.progress
	progress.BentoApproved = true
	if err := s.ws.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("could not save progress: %w", err)
	}
	s.progress = progress
	return s.snapshot(), nil
}

// StartAssessment loads a batch of statements and begins the swipe pass.
// With a persona and a dimension it is a refinement pass: the persona's
// stored results for that dimension are cleared before any statement is
// shown.
func (s *Session) StartAssessment(ctx context.Context, personaID, dimension string) (*View, error) {
	target := Refinement{PersonaID: strings.TrimSpace(personaID), Dimension: strings.TrimSpace(dimension)}
	if (target.PersonaID == "") != (target.Dimension == "") {
		return nil, invalidInput("a refinement needs both a persona and a dimension")
	}

	s.mu.Lock()
	if err := s.assessmentReady(ctx, target); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	run, runCtx := s.beginRun()
	s.stage = StageStatements
	s.engine = nil
	s.target = target
	s.failure, s.retry = nil, nil
	bento := s.bento
	s.mu.Unlock()

	retry := func(ctx context.Context) (*View, error) {
		return s.StartAssessment(ctx, target.PersonaID, target.Dimension)
	}

	dl := newDeadline(runCtx, ctx, s.cfg.GenerationTimeout)
	var (
		reader     *stream.Reader
		statements []interfaces.Statement
		early      []stream.ImageUpdate
	)
	body, err := s.deps.Statements.Statements(dl.ctx, bento, target.Dimension)
	if err == nil {
		reader = stream.NewReader(body, s.logger)
		statements, err = reader.Statements(func(u stream.ImageUpdate) { early = append(early, u) })
	}
	dl.stop()
	err = dl.err(err)

	s.mu.Lock()
	if run != s.run || err != nil {
		if body != nil {
			_ = body.Close()
		}
		dl.release()
		defer s.mu.Unlock()
		if run != s.run {
			return nil, s.stale("statements")
		}
		return nil, s.fail(StepStatements, err, retry)
	}

	eng := swipe.New(statements, swipe.WithSettleDelay(s.cfg.SettleDelay), swipe.WithClock(s.deps.Clock))
	for _, u := range early {
		eng.PatchImage(u.ID, u.ImageURL)
	}
	s.engine = eng
	s.syncStage()
	view := s.snapshot()
	s.bg.Add(1)
	s.mu.Unlock()

	s.logger.Info("assessment started",
		zap.Int("statements", len(statements)),
		zap.String("persona", target.PersonaID),
		zap.String("dimension", target.Dimension))
	go s.applyImages(run, eng, reader, body, dl)
	return view, nil
}

// assessmentReady checks what StartAssessment needs and applies the
// clear-on-entry rule for refinements. Callers hold s.mu.
func (s *Session) assessmentReady(ctx context.Context, target Refinement) error {
	if s.synthesizing {
		return ErrSynthesisInProgress
	}
	if s.bento == nil {
		return &PreconditionError{Missing: "bento", Redirect: StageDescribe}
	}
	if !s.progress.BentoApproved {
		return &PreconditionError{Missing: "bento approval", Redirect: StageReview}
	}
	switch s.stage {
	case StageReview, StagePersona, StageFailed:
	default:
		return invalidStage("start an assessment", s.stage)
	}
	if !target.active() {
		return nil
	}

	p, err := s.ws.Persona(ctx, target.PersonaID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPersonaNotFound, target.PersonaID)
	}
	results, err := s.ws.Results(ctx, target.PersonaID)
	if err != nil {
		return err
	}
	if err := s.ws.SaveResults(ctx, target.PersonaID, assessment.Without(results, target.Dimension)); err != nil {
		return fmt.Errorf("could not clear %s results: %w", target.Dimension, err)
	}
	return nil
}

// applyImages patches image updates into the engine they were generated
// for until the stream ends or the run is abandoned.
func (s *Session) applyImages(run uint64, eng *swipe.Engine, r *stream.Reader, body io.ReadCloser, dl *deadline) {
	defer s.bg.Done()
	defer dl.release()
	defer func() { _ = body.Close() }()

	patched := 0
	err := r.ImageUpdates(func(u stream.ImageUpdate) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if run != s.run || s.engine != eng {
			dl.cancel(ErrStaleRun)
			return
		}
		if eng.PatchImage(u.ID, u.ImageURL) {
			patched++
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("statement image stream ended early", zap.Error(err))
	}
	s.logger.Debug("statement images applied", zap.Int("patched", patched))
}

// syncStage follows the engine between swiping and complete. Callers hold s.mu.
func (s *Session) syncStage() {
	switch s.engine.State() {
	case swipe.StateAwaitingInput:
		s.stage = StageSwiping
	case swipe.StateComplete:
		s.stage = StageComplete
	}
}

// Swipe answers the current statement. The returned flag is false when the
// engine ignored the input, which includes every swipe after the last card.
func (s *Session) Swipe(d interfaces.Direction) (*View, bool, error) {
	if _, ok := d.Score(); !ok {
		return nil, false, invalidInput(fmt.Sprintf("unknown direction %q", d))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if (s.stage != StageSwiping && s.stage != StageComplete) || s.engine == nil {
		return nil, false, invalidStage("swipe", s.stage)
	}
	accepted := s.engine.Swipe(d)
	if accepted {
		s.deps.Metrics.ObserveSwipe(string(d))
	}
	s.syncStage()
	return s.snapshot(), accepted, nil
}

// Previous steps back one statement, discarding its answer. Once every
// statement is answered it is ignored like a swipe.
func (s *Session) Previous() (*View, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if (s.stage != StageSwiping && s.stage != StageComplete) || s.engine == nil {
		return nil, false, invalidStage("go back", s.stage)
	}
	if s.stage == StageComplete {
		return s.snapshot(), false, nil
	}
	moved := s.engine.Previous()
	s.syncStage()
	return s.snapshot(), moved, nil
}

type synthesisJob struct {
	run     uint64
	ctx     context.Context
	bento   *interfaces.Bento
	target  Refinement
	results []interfaces.AssessmentResult
	// nil on a full pass
	existing *interfaces.Persona
}

// Continue merges the finished pass into the persona's results and
// synthesizes the persona. A second call while the first is pending
// returns ErrSynthesisInProgress.
func (s *Session) Continue(ctx context.Context) (*View, error) {
	s.mu.Lock()
	if s.synthesizing {
		s.mu.Unlock()
		return nil, ErrSynthesisInProgress
	}
	if s.engine == nil {
		s.mu.Unlock()
		return nil, &PreconditionError{Missing: "assessment results", Redirect: StageReview}
	}
	if s.stage != StageComplete {
		stage := s.stage
		s.mu.Unlock()
		return nil, invalidStage("continue", stage)
	}

	var (
		prev     []interfaces.AssessmentResult
		existing *interfaces.Persona
	)
	if s.target.active() {
		var err error
		if prev, err = s.ws.Results(ctx, s.target.PersonaID); err == nil {
			existing, err = s.ws.Persona(ctx, s.target.PersonaID)
		}
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	log, err := s.engine.Continue()
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, swipe.ErrAlreadyContinued) {
			return nil, ErrSynthesisInProgress
		}
		return nil, invalidStage("continue", StageSwiping)
	}
	job := s.beginSynthesis(assessment.Merge(prev, log, s.target.Dimension), existing)
	s.mu.Unlock()

	return s.runSynthesis(ctx, job)
}

// beginSynthesis raises the in-flight latch. Callers hold s.mu.
func (s *Session) beginSynthesis(results []interfaces.AssessmentResult, existing *interfaces.Persona) synthesisJob {
	s.synthesizing = true
	s.stage = StageSynthesizing
	s.failure, s.retry = nil, nil
	return synthesisJob{run: s.run, ctx: s.runCtx, bento: s.bento, target: s.target, results: results, existing: existing}
}

// synthesize prefers Refine when the synthesizer offers it and a persona
// is being refined.
func (s *Session) synthesize(ctx context.Context, job synthesisJob) (*interfaces.Persona, error) {
	if r, ok := s.deps.Synthesizer.(interfaces.PersonaRefiner); ok && job.existing != nil {
		return r.Refine(ctx, job.bento, job.results, job.existing)
	}
	return s.deps.Synthesizer.Synthesize(ctx, job.bento, job.results, job.target.PersonaID)
}

func (s *Session) runSynthesis(ctx context.Context, job synthesisJob) (*View, error) {
	dl := newDeadline(job.ctx, ctx, s.cfg.GenerationTimeout)
	p, err := s.synthesize(dl.ctx, job)
	err = dl.err(err)
	dl.release()
	if err == nil && p == nil {
		err = errors.New("synthesizer returned no persona")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if job.run != s.run {
		return nil, s.stale("synthesis")
	}
	s.synthesizing = false
	retry := func(ctx context.Context) (*View, error) {
		s.mu.Lock()
		if s.stage != StageFailed || s.synthesizing {
			stage := s.stage
			s.mu.Unlock()
			return nil, invalidStage("retry synthesis", stage)
		}
		job := s.beginSynthesis(job.results, job.existing)
		s.mu.Unlock()
		return s.runSynthesis(ctx, job)
	}
	if err != nil {
		return nil, s.fail(StepSynthesis, err, retry)
	}

	// Identity is owned here, not by the synthesizer.
	switch {
	case job.target.active():
		p.ID = job.target.PersonaID
	case p.ID == "":
		p.ID = s.deps.NewID()
	}

	commit := context.WithoutCancel(ctx)
	replaced, err := s.ws.UpsertPersona(commit, p)
	if err == nil {
		err = s.ws.SaveResults(commit, p.ID, job.results)
	}
	progress := s.progress
	progress.ActivePersonaID = p.ID
	if err == nil {
		err = s.ws.SaveProgress(commit, progress)
	}
	if err != nil {
		return nil, s.fail(StepSynthesis, fmt.Errorf("could not save persona: %w", err), retry)
	}

	s.deps.Metrics.ObservePersona(replaced)
	s.progress = progress
	s.persona = p
	s.engine = nil
	s.target = Refinement{}
	s.stage = StagePersona
	s.logger.Info("persona saved",
		zap.String("persona", p.ID),
		zap.Bool("replaced", replaced),
		zap.Int("results", len(job.results)))
	return s.snapshot(), nil
}

// Retry re-runs the step that failed with the inputs it had.
func (s *Session) Retry(ctx context.Context) (*View, error) {
	s.mu.Lock()
	if s.stage != StageFailed || s.retry == nil {
		stage := s.stage
		s.mu.Unlock()
		return nil, invalidStage("retry", stage)
	}
	retry := s.retry
	s.mu.Unlock()
	return retry(ctx)
}

// StartOver abandons everything in flight and clears the workspace.
func (s *Session) StartOver(ctx context.Context) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginRun()
	s.stage = StageDescribe
	s.bento = nil
	s.progress = store.Progress{}
	s.persona = nil
	s.engine = nil
	s.target = Refinement{}
	s.synthesizing = false
	s.failure, s.retry = nil, nil

	n, err := s.ws.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not clear workspace: %w", err)
	}
	s.logger.Info("workspace cleared", zap.Int64("keys", n))
	return s.snapshot(), nil
}

func (s *Session) Snapshot() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot copies the session state. Callers hold s.mu.
func (s *Session) snapshot() *View {
	v := &View{
		Workspace:     s.ws.Name(),
		Stage:         s.stage,
		Run:           s.run,
		BentoApproved: s.progress.BentoApproved,
		Synthesizing:  s.synthesizing,
	}
	if s.bento != nil {
		b := *s.bento
		v.Bento = &b
	}
	if s.persona != nil {
		p := *s.persona
		v.Persona = &p
	}
	if s.target.active() {
		t := s.target
		v.Refinement = &t
	}
	if s.engine != nil {
		a := &AssessmentView{
			State:      s.engine.State().String(),
			Index:      s.engine.Index(),
			Total:      s.engine.Total(),
			Statements: s.engine.Statements(),
			Results:    s.engine.Results(),
			Locked:     s.engine.Locked(),
		}
		if cur, ok := s.engine.Current(); ok {
			a.Current = &cur
		}
		if a.Results == nil {
			a.Results = []interfaces.AssessmentResult{}
		}
		if a.Statements == nil {
			a.Statements = []interfaces.Statement{}
		}
		v.Assessment = a
	}
	if s.failure != nil {
		v.Failure = &FailureView{Step: s.failure.Step, Message: s.failure.Message, Actions: s.failure.Actions()}
	}
	return v
}

// Personas lists the roster with each persona's dimension scores.
func (s *Session) Personas(ctx context.Context) ([]PersonaView, error) {
	personas, err := s.ws.Personas(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PersonaView, 0, len(personas))
	for _, p := range personas {
		results, err := s.ws.Results(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PersonaView{Persona: p, Scores: assessment.Scores(results, s.cfg.Dimensions)})
	}
	return out, nil
}

func (s *Session) Persona(ctx context.Context, id string) (*PersonaView, error) {
	p, err := s.ws.Persona(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, id)
	}
	results, err := s.ws.Results(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PersonaView{Persona: *p, Scores: assessment.Scores(results, s.cfg.Dimensions)}, nil
}

// Wait blocks until background image streams have finished.
func (s *Session) Wait() { s.bg.Wait() }
