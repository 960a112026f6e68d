package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EasterCompany/pulse-service/interfaces"
)

// Progress is the resumable wizard position of a workspace.
type Progress struct {
	BentoApproved   bool   `json:"bentoApproved"`
	ActivePersonaID string `json:"activePersonaId,omitempty"`
}

// Workspace is a typed view over the keys belonging to one workspace.
type Workspace struct {
	store Store
	name  string
}

func NewWorkspace(s Store, name string) *Workspace {
	return &Workspace{store: s, name: name}
}

func (w *Workspace) Name() string { return w.name }

// Prefix is the key prefix shared by everything in the workspace.
func (w *Workspace) Prefix() string {
	return "workspace:" + w.name + ":"
}

func (w *Workspace) key(parts ...string) string {
	k := w.Prefix()
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

func (w *Workspace) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := w.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("could not decode %s: %w", key, err)
	}
	return true, nil
}

func (w *Workspace) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", key, err)
	}
	return w.store.Set(ctx, key, data)
}

// Bento returns the saved bento, or nil when none exists.
func (w *Workspace) Bento(ctx context.Context) (*interfaces.Bento, error) {
	var b interfaces.Bento
	ok, err := w.getJSON(ctx, w.key("bento"), &b)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

func (w *Workspace) SaveBento(ctx context.Context, b *interfaces.Bento) error {
	return w.setJSON(ctx, w.key("bento"), b)
}

func (w *Workspace) Progress(ctx context.Context) (Progress, error) {
	var p Progress
	_, err := w.getJSON(ctx, w.key("progress"), &p)
	return p, err
}

func (w *Workspace) SaveProgress(ctx context.Context, p Progress) error {
	return w.setJSON(ctx, w.key("progress"), p)
}

// Personas returns the roster in creation order.
func (w *Workspace) Personas(ctx context.Context) ([]interfaces.Persona, error) {
	var roster []interfaces.Persona
	if _, err := w.getJSON(ctx, w.key("personas"), &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// Persona returns one roster entry, or nil when the id is unknown.
func (w *Workspace) Persona(ctx context.Context, id string) (*interfaces.Persona, error) {
	roster, err := w.Personas(ctx)
	if err != nil {
		return nil, err
	}
	for i := range roster {
		if roster[i].ID == id {
			return &roster[i], nil
		}
	}
	return nil, nil
}

// UpsertPersona replaces the entry with the same id in place, or appends a
// new one. It reports whether an existing entry was replaced.
func (w *Workspace) UpsertPersona(ctx context.Context, p *interfaces.Persona) (bool, error) {
	if p.ID == "" {
		return false, errors.New("persona has no id")
	}
	roster, err := w.Personas(ctx)
	if err != nil {
		return false, err
	}
	replaced := false
	for i := range roster {
		if roster[i].ID == p.ID {
			roster[i] = *p
			replaced = true
			break
		}
	}
	if !replaced {
		roster = append(roster, *p)
	}
	return replaced, w.setJSON(ctx, w.key("personas"), roster)
}

// Results returns the merged assessment results stored for a persona.
func (w *Workspace) Results(ctx context.Context, personaID string) ([]interfaces.AssessmentResult, error) {
	var results []interfaces.AssessmentResult
	if _, err := w.getJSON(ctx, w.key("results", personaID), &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (w *Workspace) SaveResults(ctx context.Context, personaID string, results []interfaces.AssessmentResult) error {
	if results == nil {
		results = []interfaces.AssessmentResult{}
	}
	return w.setJSON(ctx, w.key("results", personaID), results)
}

func (w *Workspace) ChatHistory(ctx context.Context, personaID string) ([]interfaces.ChatMessage, error) {
	var history []interfaces.ChatMessage
	if _, err := w.getJSON(ctx, w.key("chat", personaID), &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (w *Workspace) SaveChatHistory(ctx context.Context, personaID string, history []interfaces.ChatMessage) error {
	return w.setJSON(ctx, w.key("chat", personaID), history)
}

// Reset removes every key in the workspace.
func (w *Workspace) Reset(ctx context.Context) (int64, error) {
	return w.store.Clear(ctx, w.Prefix())
}
