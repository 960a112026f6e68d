package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/EasterCompany/pulse-service/store"
)

const DefaultWorkspace = "default"

// Workspace names end up in store key prefixes and SCAN patterns.
var workspaceName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Registry hands out one Session per workspace, loading it from the store
// on first use.
type Registry struct {
	store store.Store
	deps  Deps
	cfg   Config

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(st store.Store, deps Deps, cfg Config) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:    st,
		deps:     deps,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for name, or for DefaultWorkspace when name
// is empty.
func (r *Registry) Session(ctx context.Context, name string) (*Session, error) {
	if name == "" {
		name = DefaultWorkspace
	}
	if !workspaceName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWorkspace, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[name]; ok {
		return s, nil
	}
	s := newSession(r.ctx, store.NewWorkspace(r.store, name), r.deps, r.cfg)
	if err := s.load(ctx); err != nil {
		return nil, fmt.Errorf("could not load workspace %s: %w", name, err)
	}
	r.sessions[name] = s
	return s, nil
}

// Workspaces lists the names of the sessions loaded so far.
func (r *Registry) Workspaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close cancels every run in flight and waits for background work.
func (r *Registry) Close() {
	r.cancel()
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Wait()
	}
}
