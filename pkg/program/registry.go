package program

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Resolver resolves program names to handles. The manifest applier depends
// on this interface rather than on the Registry concrete type.
type Resolver interface {
	// Resolve returns the handle registered under name without taking a
	// reference; callers that retain the handle must Acquire it.
	Resolve(name string) (Handle, error)
}

// ErrNotRegistered is returned by Resolve for unknown program names.
type ErrNotRegistered struct {
	Name string
}

// Error returns the error message.
func (e *ErrNotRegistered) Error() string {
	return fmt.Sprintf("program not registered: %q", e.Name)
}

// Registry is a name-keyed collection of loaded programs.
//
// Each registered program gets a generated identifier and is held with one
// registry reference. Deregistering drops that reference; the program is
// unloaded once the hierarchy releases the rest.
type Registry struct {
	mu       sync.RWMutex
	programs map[string]*Func
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		programs: make(map[string]*Func),
		logger:   logger.With("component", "program.registry"),
	}
}

// RegisterFunc loads a function-backed program under name and returns its
// handle. Registering a name twice fails.
func (r *Registry) RegisterFunc(name string, fn VerdictFunc) (*Func, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.programs[name]; exists {
		return nil, fmt.Errorf("program already registered: %q", name)
	}

	f := NewFunc(uuid.NewString(), fn)
	f.onZero = func() {
		r.logger.Debug("program unloaded", "name", name, "program_id", f.id)
	}
	r.programs[name] = f

	r.logger.Info("program registered", "name", name, "program_id", f.id)
	return f, nil
}

// RegisterStatic loads a constant-verdict program under name.
func (r *Registry) RegisterStatic(name string, verdict int) (*Func, error) {
	return r.RegisterFunc(name, func(context.Context, any) int { return verdict })
}

// Resolve returns the handle registered under name.
func (r *Registry) Resolve(name string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.programs[name]
	if !ok {
		return nil, &ErrNotRegistered{Name: name}
	}
	return f, nil
}

// Deregister removes name from the registry and drops the registry's
// reference. Attachments holding their own references stay valid.
func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	f, ok := r.programs[name]
	if ok {
		delete(r.programs, name)
	}
	r.mu.Unlock()

	if !ok {
		return &ErrNotRegistered{Name: name}
	}
	f.Release()
	return nil
}

// Names returns the registered program names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.programs))
	for name := range r.programs {
		names = append(names, name)
	}
	return names
}
