// Package registry makes sure at most one guide is live in a process.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Instance is anything that can be told to stand down.
type Instance interface {
	Deactivate(ctx context.Context) error
}

type Registry struct {
	mu       sync.Mutex
	activeID string
	active   Instance
}

func New() *Registry { return &Registry{} }

var global = New()

// Global is the process wide registry used when no other is injected.
func Global() *Registry { return global }

// Register makes instance the live one and returns its registration ID. A
// previously registered instance is deactivated before Register returns.
func (r *Registry) Register(ctx context.Context, instance Instance) (string, error) {
	if instance == nil {
		return "", fmt.Errorf("cannot register a nil instance")
	}

	id := uuid.NewString()

	r.mu.Lock()
	previous, previousID := r.active, r.activeID
	r.active, r.activeID = instance, id
	r.mu.Unlock()

	if previous != nil && previous != instance {
		if err := previous.Deactivate(ctx); err != nil {
			return id, fmt.Errorf("failed to deactivate previous instance %s: %w", previousID, err)
		}
	}
	return id, nil
}

// Unregister clears the registration if id is still the live one.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" || id != r.activeID {
		return false
	}
	r.active, r.activeID = nil, ""
	return true
}

// Active returns the live registration ID.
func (r *Registry) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID, r.activeID != ""
}
