package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSynthesisInProgress rejects a second Continue while the first is pending.
	ErrSynthesisInProgress = errors.New("persona synthesis is already in progress")
	// ErrStaleRun is returned to the caller whose result was discarded
	// because the session was restarted while it ran.
	ErrStaleRun = errors.New("the session was restarted while this request was running")
	// ErrInvalidStage is wrapped when an operation does not apply to the
	// current stage.
	ErrInvalidStage = errors.New("operation is not available at this stage")
	// ErrInvalidInput is wrapped around request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersonaNotFound is returned when a persona id is not in the roster.
	ErrPersonaNotFound = errors.New("persona not found")
	// ErrInvalidWorkspace rejects workspace names outside [A-Za-z0-9_-].
	ErrInvalidWorkspace = errors.New("invalid workspace name")
)

// Step names a fallible generation step.
type Step string

const (
	StepBento      Step = "bento"
	StepStatements Step = "statements"
	StepSynthesis  Step = "synthesis"
)

const (
	ActionRetry     = "retry"
	ActionStartOver = "start_over"
)

// PreconditionError reports state that an operation needs but the session
// does not have. Redirect names the stage that produces it.
type PreconditionError struct {
	Missing  string `json:"missing"`
	Redirect Stage  `json:"redirect"`
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s is missing, go back to %s", e.Missing, e.Redirect)
}

// StepError is the failed-state variant: a generation step failed and the
// user may retry it or start over.
type StepError struct {
	Step    Step   `json:"step"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %s", e.Step, e.Message)
}

func (e *StepError) Unwrap() error { return e.Err }

// Actions lists what the user can do next.
func (e *StepError) Actions() []string {
	return []string{ActionRetry, ActionStartOver}
}

func stepError(step Step, err error) *StepError {
	return &StepError{Step: step, Message: userMessage(step, err), Err: err}
}

// userMessage is the plain-language text shown in the failed state.
func userMessage(step Step, err error) string {
	if errors.Is(err, errTimeout) {
		return fmt.Sprintf("The %s request took too long. Please try again.", step)
	}
	switch step {
	case StepBento:
		return "We couldn't summarise your business. Please try again."
	case StepStatements:
		return "We couldn't prepare your statements. Please try again."
	case StepSynthesis:
		return "We couldn't create your persona. Please try again."
	}
	return "Something went wrong. Please try again."
}

func invalidStage(op string, stage Stage) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidStage, op, stage)
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
