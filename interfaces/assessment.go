// Package interfaces defines the domain types shared across the service and
// the contracts of its external collaborators.
package interfaces

// Direction is a swipe gesture on a statement card.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionDown  Direction = "down"
)

// Score maps a direction to its assessment score: disagree, agree, or neutral.
func (d Direction) Score() (int, bool) {
	switch d {
	case DirectionLeft:
		return -1, true
	case DirectionRight:
		return 1, true
	case DirectionDown:
		return 0, true
	}
	return 0, false
}

// Dimension is a named psychographic axis that statements probe.
type Dimension struct {
	Name       string `json:"name" yaml:"name"`
	Definition string `json:"definition" yaml:"definition"`
	Count      int    `json:"count" yaml:"count"`
}

// Statement is a single card shown to the user.
type Statement struct {
	ID        string `json:"id"`
	Dimension string `json:"dimension"`
	Text      string `json:"text"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// AssessmentResult records the user's reaction to one statement.
type AssessmentResult struct {
	Dimension string `json:"dimension"`
	Score     int    `json:"score"`
	Text      string `json:"text,omitempty"`
}
