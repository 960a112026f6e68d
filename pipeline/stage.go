// Package pipeline drives the assessment wizard for one workspace: bento
// review, the swipe pass, persona synthesis and chat.
package pipeline

import (
	"github.com/EasterCompany/pulse-service/assessment"
	"github.com/EasterCompany/pulse-service/interfaces"
)

// Stage is the wizard step a session is on.
type Stage string

const (
	StageDescribe     Stage = "describe"
	StageReview       Stage = "review"
	StageStatements   Stage = "statements"
	StageSwiping      Stage = "swiping"
	StageComplete     Stage = "complete"
	StageSynthesizing Stage = "synthesizing"
	StagePersona      Stage = "persona"
	StageFailed       Stage = "failed"
)

// Refinement targets a single dimension of an existing persona. The zero
// value is a full pass.
type Refinement struct {
	PersonaID string `json:"personaId"`
	Dimension string `json:"dimension"`
}

func (r Refinement) active() bool { return r.PersonaID != "" }

// View is a point-in-time copy of a session for the HTTP layer.
type View struct {
	Workspace     string              `json:"workspace"`
	Stage         Stage               `json:"stage"`
	Run           uint64              `json:"run"`
	Bento         *interfaces.Bento   `json:"bento,omitempty"`
	BentoApproved bool                `json:"bentoApproved"`
	Assessment    *AssessmentView     `json:"assessment,omitempty"`
	Refinement    *Refinement         `json:"refinement,omitempty"`
	Persona       *interfaces.Persona `json:"persona,omitempty"`
	Synthesizing  bool                `json:"synthesizing"`
	Failure       *FailureView        `json:"failure,omitempty"`
}

type AssessmentView struct {
	State      string                        `json:"state"`
	Index      int                           `json:"index"`
	Total      int                           `json:"total"`
	Current    *interfaces.Statement         `json:"current,omitempty"`
	Statements []interfaces.Statement        `json:"statements"`
	Results    []interfaces.AssessmentResult `json:"results"`
	Locked     bool                          `json:"locked"`
}

type FailureView struct {
	Step    Step     `json:"step"`
	Message string   `json:"message"`
	Actions []string `json:"actions"`
}

// PersonaView is a roster entry with its dimension scores.
type PersonaView struct {
	Persona interfaces.Persona          `json:"persona"`
	Scores  []assessment.DimensionScore `json:"scores"`
}

// ChatInput is one user turn.
type ChatInput struct {
	Message   string   `json:"message"`
	Documents []string `json:"documents,omitempty"`
}

// ChatTurn is the outcome of a user turn. Refinement is set when the reply
// was classified as a correction, naming the pass that would address it.
type ChatTurn struct {
	Reply      interfaces.ChatReply     `json:"reply"`
	History    []interfaces.ChatMessage `json:"history"`
	Refinement *Refinement              `json:"refinement,omitempty"`
}
