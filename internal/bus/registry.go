package bus

import (
	"fmt"
	"sync"

	"fundline/internal/processors"
	"fundline/pkg/events"
)

// Registry holds the processors subscribed to the bus. Registration order is
// preserved so fan-out order is stable across runs.
type Registry struct {
	mu     sync.RWMutex
	order  []processors.Processor
	byName map[string]processors.Processor
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]processors.Processor),
	}
}

func (r *Registry) Register(proc processors.Processor) error {
	if proc.Name() == "" {
		return fmt.Errorf("processor name is required")
	}
	if !events.ValidPattern(proc.Pattern()) {
		return fmt.Errorf("processor %s has invalid pattern %q", proc.Name(), proc.Pattern())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[proc.Name()]; exists {
		return fmt.Errorf("processor %s is already registered", proc.Name())
	}

	r.byName[proc.Name()] = proc
	r.order = append(r.order, proc)
	return nil
}

// Match returns every registered processor whose pattern covers eventType,
// in registration order.
func (r *Registry) Match(eventType string) []processors.Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []processors.Processor
	for _, proc := range r.order {
		if events.MatchesPattern(proc.Pattern(), eventType) {
			matched = append(matched, proc)
		}
	}
	return matched
}

func (r *Registry) Get(name string) (processors.Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	proc, ok := r.byName[name]
	return proc, ok
}

func (r *Registry) List() []processors.Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]processors.Processor, len(r.order))
	copy(out, r.order)
	return out
}
