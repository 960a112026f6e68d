package llm

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/EasterCompany/pulse-service/interfaces"
)

type bentoOutput struct {
	BusinessModel     string                  `json:"businessModel"`
	CustomerChallenge string                  `json:"customerChallenge"`
	ProductService    string                  `json:"productService"`
	Positioning       string                  `json:"positioning"`
	WhyWeExist        string                  `json:"whyWeExist"`
	Competitors       []interfaces.Competitor `json:"competitors"`
}

func (b *bentoOutput) Validate() error {
	if strings.TrimSpace(b.BusinessModel) == "" || strings.TrimSpace(b.CustomerChallenge) == "" {
		return errors.New("is missing businessModel or customerChallenge")
	}
	return nil
}

type swotOutput struct {
	Panels []interfaces.Panel `json:"panels"`
}

func (s *swotOutput) Validate() error {
	if len(s.Panels) == 0 {
		return errors.New("has no panels")
	}
	for _, p := range s.Panels {
		if strings.TrimSpace(p.Title) == "" {
			return errors.New("has a panel without a title")
		}
	}
	return nil
}

// statementsOutput accepts both the grouped full-pass shape
// {"statements":{"dim":["text"]}} and the flat refinement shape
// {"statements":[{"dimension":"dim","text":"text"}]}.
type statementsOutput struct {
	Statements json.RawMessage `json:"statements"`

	grouped map[string][]string
	flat    []struct {
		Dimension string `json:"dimension"`
		Text      string `json:"text"`
	}
}

func (s *statementsOutput) Validate() error {
	raw := strings.TrimSpace(string(s.Statements))
	if raw == "" || raw == "null" {
		return errors.New("has no statements")
	}
	if raw[0] == '{' {
		return json.Unmarshal(s.Statements, &s.grouped)
	}
	return json.Unmarshal(s.Statements, &s.flat)
}

type draft struct {
	Dimension string
	Text      string
}

// drafts flattens the output. A non-empty refinement dimension is forced
// onto every entry. Grouped output follows order, then any other
// dimension alphabetically.
func (s *statementsOutput) drafts(order []string, refinement string) []draft {
	var out []draft
	add := func(dim, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if refinement != "" {
			dim = refinement
		}
		out = append(out, draft{Dimension: dim, Text: text})
	}

	if s.grouped != nil {
		seen := make(map[string]bool)
		for _, d := range order {
			if texts, ok := s.grouped[d]; ok {
				seen[d] = true
				for _, t := range texts {
					add(d, t)
				}
			}
		}
		var rest []string
		for d := range s.grouped {
			if !seen[d] {
				rest = append(rest, d)
			}
		}
		sort.Strings(rest)
		for _, d := range rest {
			for _, t := range s.grouped[d] {
				add(d, t)
			}
		}
		return out
	}

	for _, f := range s.flat {
		add(f.Dimension, f.Text)
	}
	return out
}

// textList decodes either a string or a list of strings.
type textList string

func (t *textList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = textList(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = textList(strings.Join(list, ", "))
	return nil
}

// looseInt decodes a number or a numeric string.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = looseInt(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		*n = 0
		return nil
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.Atoi(s[start:end])
	if err != nil {
		return err
	}
	*n = looseInt(v)
	return nil
}

type personaOutput struct {
	Name               string   `json:"name"`
	PersonaName        string   `json:"personaName"`
	Title              string   `json:"title"`
	Age                looseInt `json:"age"`
	Role               string   `json:"role"`
	Experience         string   `json:"experience"`
	Bio                string   `json:"bio"`
	Summary            string   `json:"summary"`
	Interests          textList `json:"interests"`
	Disinterests       textList `json:"disinterests"`
	Insights           []string `json:"insights"`
	ActionableInsights []string `json:"actionableInsights"`
	VisualDescriptor   string   `json:"visualDescriptor"`
}

func (p *personaOutput) Validate() error {
	if p.Name == "" {
		p.Name = p.PersonaName
	}
	if p.Bio == "" {
		p.Bio = p.Summary
	}
	if len(p.Insights) == 0 {
		p.Insights = p.ActionableInsights
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("is missing the persona name")
	}
	if strings.TrimSpace(p.Bio) == "" {
		return errors.New("is missing the persona bio")
	}
	return nil
}

func (p *personaOutput) persona() *interfaces.Persona {
	return &interfaces.Persona{
		Name:             strings.TrimSpace(p.Name),
		Title:            p.Title,
		Age:              int(p.Age),
		Role:             p.Role,
		Experience:       p.Experience,
		Bio:              p.Bio,
		Interests:        string(p.Interests),
		Disinterests:     string(p.Disinterests),
		Insights:         p.Insights,
		VisualDescriptor: p.VisualDescriptor,
	}
}

type chatOutput struct {
	IsCorrection bool    `json:"isCorrection"`
	Dimension    *string `json:"dimension"`
	ResponseText string  `json:"responseText"`
}

func (c *chatOutput) Validate() error {
	if strings.TrimSpace(c.ResponseText) == "" {
		return errors.New("has no responseText")
	}
	return nil
}
