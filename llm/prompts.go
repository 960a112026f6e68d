package llm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/EasterCompany/pulse-service/interfaces"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptPack []byte

const (
	promptBento          = "bento"
	promptSWOT           = "swot"
	promptStatements     = "statements"
	promptRefinement     = "refinement"
	promptStatementImage = "statement_image"
	promptPersona        = "persona"
	promptPersonaImage   = "persona_image"
	promptChat           = "chat"
	promptChatStream     = "chat_stream"
	promptGreeting       = "greeting"
)

var requiredPrompts = []string{
	promptBento, promptSWOT, promptStatements, promptRefinement, promptStatementImage,
	promptPersona, promptPersonaImage, promptChat, promptChatStream, promptGreeting,
}

// Prompts is a parsed prompt pack: the dimension catalogue plus one template
// per model call.
type Prompts struct {
	Dimensions []interfaces.Dimension `yaml:"dimensions"`
	Refinement struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"refinement"`
	Templates map[string]string `yaml:"templates"`

	parsed map[string]*template.Template
}

// LoadPrompts reads the pack at path, or the embedded pack when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	if path == "" {
		return ParsePrompts(defaultPromptPack)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read prompt pack %s: %w", path, err)
	}
	return ParsePrompts(data)
}

// ParsePrompts decodes a YAML prompt pack and compiles its templates.
func ParsePrompts(data []byte) (*Prompts, error) {
	p := &Prompts{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("could not decode prompt pack: %w", err)
	}
	if len(p.Dimensions) == 0 {
		return nil, fmt.Errorf("prompt pack defines no dimensions")
	}
	for i, d := range p.Dimensions {
		if d.Name == "" || d.Count < 1 {
			return nil, fmt.Errorf("prompt pack dimension %d needs a name and a positive count", i)
		}
	}
	if p.Refinement.Min < 1 {
		p.Refinement.Min = 8
	}
	if p.Refinement.Max < p.Refinement.Min {
		p.Refinement.Max = p.Refinement.Min
	}

	funcMap := template.FuncMap{
		"join": strings.Join,
		"json": func(v interface{}) (string, error) {
			b, err := json.MarshalIndent(v, "", "  ")
			return string(b), err
		},
	}
	p.parsed = make(map[string]*template.Template, len(requiredPrompts))
	for _, name := range requiredPrompts {
		text, ok := p.Templates[name]
		if !ok || strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("prompt pack is missing template %q", name)
		}
		tmpl, err := template.New(name).Funcs(funcMap).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		p.parsed[name] = tmpl
	}
	return p, nil
}

// Render executes the named template.
func (p *Prompts) Render(name string, data interface{}) (string, error) {
	tmpl, ok := p.parsed[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// DimensionNames lists the catalogue in order.
func (p *Prompts) DimensionNames() []string {
	names := make([]string, len(p.Dimensions))
	for i, d := range p.Dimensions {
		names[i] = d.Name
	}
	return names
}

// MatchDimension maps a free-form topic onto a catalogue dimension by
// case-insensitive name or name prefix. Unknown topics come back trimmed
// and lowercased.
func (p *Prompts) MatchDimension(topic string) string {
	t := strings.ToLower(strings.TrimSpace(topic))
	for _, d := range p.Dimensions {
		if strings.ToLower(d.Name) == t {
			return d.Name
		}
	}
	// "spending" still names the spend dimension
	for _, d := range p.Dimensions {
		if strings.HasPrefix(t, strings.ToLower(d.Name)) {
			return d.Name
		}
	}
	return t
}
