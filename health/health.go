// Package health checks the components the service depends on.
package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	StatusOperational   = "operational"
	StatusOffline       = "offline"
	StatusNotConfigured = "not configured"
)

// ErrNotConfigured marks a component that is intentionally absent.
var ErrNotConfigured = errors.New("not configured")

// Check probes one component.
type Check func(ctx context.Context) error

// ComponentStatus is the outcome of the last check of a component.
type ComponentStatus struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	LastCheck    time.Time `json:"last_check"`
	ResponseTime int64     `json:"response_time"` // milliseconds
}

// Checker runs registered checks on demand, each under its own timeout.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
	logger  *zap.Logger
}

func NewChecker(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{checks: make(map[string]Check), timeout: timeout, logger: logger}
}

// Register adds a component. A nil check reports it as not configured.
func (c *Checker) Register(name string, check Check) {
	if check == nil {
		check = func(context.Context) error { return ErrNotConfigured }
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// CheckAll runs every check concurrently and returns the results sorted
// by name.
func (c *Checker) CheckAll(ctx context.Context) []ComponentStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()
	sort.Strings(names)

	out := make([]ComponentStatus, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			out[i] = c.run(ctx, name, checks[name])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Checker) run(ctx context.Context, name string, check Check) ComponentStatus {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	status := ComponentStatus{
		Name:         name,
		Status:       StatusOperational,
		LastCheck:    start.UTC(),
		ResponseTime: time.Since(start).Milliseconds(),
	}
	switch {
	case errors.Is(err, ErrNotConfigured):
		status.Status = StatusNotConfigured
	case err != nil:
		status.Status = StatusOffline
		status.Error = err.Error()
		c.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
	}
	return status
}

// Healthy reports whether no configured component is offline.
func Healthy(statuses []ComponentStatus) bool {
	for _, s := range statuses {
		if s.Status == StatusOffline {
			return false
		}
	}
	return true
}
