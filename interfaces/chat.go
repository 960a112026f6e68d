package interfaces

import "fmt"

// ChatRole identifies the speaker of a chat message.
type ChatRole string

const (
	ChatRoleUser    ChatRole = "user"
	ChatRolePersona ChatRole = "persona"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatRequest is a single user turn addressed to a persona.
type ChatRequest struct {
	Persona      *Persona
	History      []ChatMessage
	Message      string
	DocumentText string
}

// ChatReply is the persona's answer. When IsCorrection is set the user has
// corrected the persona about Dimension and a refinement pass is offered.
type ChatReply struct {
	Text         string `json:"responseText"`
	IsCorrection bool   `json:"isCorrection"`
	Dimension    string `json:"dimension,omitempty"`
}

// FallbackGreeting opens a conversation when the model cannot.
func FallbackGreeting(p *Persona) string {
	return fmt.Sprintf("Hello, I'm %s. It's nice to meet you.", p.Name)
}
