package interfaces

import "time"

// BentoKind selects how a business description is summarised.
type BentoKind string

const (
	BentoKindSummary BentoKind = "summary"
	BentoKindSWOT    BentoKind = "swot"
)

// Competitor is a named rival business.
type Competitor struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// Panel is one cell of a SWOT bento grid.
type Panel struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	ColSpan int    `json:"colSpan"`
	RowSpan int    `json:"rowSpan"`
}

// Bento is the structured summary of the user's business.
type Bento struct {
	ID                  string       `json:"id"`
	Kind                BentoKind    `json:"kind,omitempty"`
	BusinessDescription string       `json:"businessDescription"`
	BusinessModel       string       `json:"businessModel"`
	CustomerChallenge   string       `json:"customerChallenge"`
	ProductService      string       `json:"productService,omitempty"`
	Positioning         string       `json:"positioning,omitempty"`
	WhyWeExist          string       `json:"whyWeExist,omitempty"`
	Competitors         []Competitor `json:"competitors,omitempty"`
	Panels              []Panel      `json:"panels,omitempty"`
	CreatedAt           time.Time    `json:"createdAt"`
}

// Persona is a synthesized customer profile.
type Persona struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Title            string    `json:"title,omitempty"`
	Age              int       `json:"age,omitempty"`
	Role             string    `json:"role,omitempty"`
	Experience       string    `json:"experience,omitempty"`
	Bio              string    `json:"bio"`
	Interests        string    `json:"interests,omitempty"`
	Disinterests     string    `json:"disinterests,omitempty"`
	Insights         []string  `json:"insights,omitempty"`
	VisualDescriptor string    `json:"visualDescriptor,omitempty"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
