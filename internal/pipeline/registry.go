package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jackzampolin/papercheck/internal/stages"
)

// Sentinel errors for the pipeline package.
var (
	// ErrStageAlreadyRegistered is returned when registering a duplicate stage.
	ErrStageAlreadyRegistered = errors.New("stage already registered")

	// ErrStageNotFound is returned when a chain names an unknown stage.
	ErrStageNotFound = errors.New("stage not found")

	// ErrDependencyOrder is returned when a stage is declared before a stage
	// it reads from.
	ErrDependencyOrder = errors.New("stage declared before its dependency")

	// ErrEmptyChain is returned when no stages are declared.
	ErrEmptyChain = errors.New("no stages declared")
)

// Registry holds the available stages by name.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]stages.Stage
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]stages.Stage),
	}
}

// Register adds a stage to the registry.
// Returns an error if a stage with the same name is already registered.
func (r *Registry) Register(s stages.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.stages[name]; exists {
		return fmt.Errorf("%w: %s", ErrStageAlreadyRegistered, name)
	}

	r.stages[name] = s
	return nil
}

// Chain returns the named stages in the declared order. Every name must be
// registered, appear once, and come after the stages it depends on.
func (r *Registry) Chain(names []string) ([]stages.Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		return nil, ErrEmptyChain
	}

	chain := make([]stages.Stage, 0, len(names))
	for i, name := range names {
		s, ok := r.stages[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrStageNotFound, name)
		}
		if slices.Contains(names[:i], name) {
			return nil, fmt.Errorf("%w: %q declared twice", ErrStageAlreadyRegistered, name)
		}
		for _, dep := range s.Dependencies() {
			if !slices.Contains(names[:i], dep) {
				return nil, fmt.Errorf("%w: %q depends on %q", ErrDependencyOrder, name, dep)
			}
		}
		chain = append(chain, s)
	}
	return chain, nil
}
