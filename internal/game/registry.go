package game

import (
	"fmt"
	"sync"

	"arcade-engine/internal/session"
)

// Registry manages rule registration and lookup by session kind.
// It provides a thread-safe, plugin-style way to add game variants.
type Registry struct {
	rules map[session.Kind]Rule
	mu    sync.RWMutex
}

// NewRegistry creates a new rule registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[session.Kind]Rule),
	}
}

// Register adds a rule to the registry.
// If a rule for the same kind already exists, it is replaced.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("cannot register nil rule")
	}
	if rule.Kind() == "" {
		return fmt.Errorf("rule kind cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Kind()] = rule
	return nil
}

// Get retrieves a rule by kind.
func (r *Registry) Get(kind session.Kind) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[kind]
	return rule, ok
}

// Kinds returns all registered kinds.
func (r *Registry) Kinds() []session.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]session.Kind, 0, len(r.rules))
	for kind := range r.rules {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
