// Package persona manages the system prompts that shape the assistant's
// voice. A conversation may pick a persona by name; unknown or unset names
// fall back to the default assistant persona.
package persona

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultName is the persona applied when a conversation never picked one.
const DefaultName = "assistant"

const defaultPrompt = "You are a helpful assistant."

var (
	// ErrProtected indicates an attempt to remove the default persona.
	ErrProtected = errors.New("default persona cannot be removed")

	// ErrInvalid indicates an empty persona name or prompt.
	ErrInvalid = errors.New("invalid persona")
)

// Persona pairs a name with the system prompt sent upstream.
type Persona struct {
	Name   string
	Prompt string
}

// Registry is a thread-safe persona catalog.
type Registry struct {
	mu       sync.RWMutex
	personas map[string]Persona
}

// NewRegistry creates a registry seeded with the default persona plus any
// extras.
func NewRegistry(extras ...Persona) *Registry {
	r := &Registry{
		personas: map[string]Persona{
			DefaultName: {Name: DefaultName, Prompt: defaultPrompt},
		},
	}
	for _, p := range extras {
		if p.Name == "" || p.Prompt == "" {
			continue
		}
		r.personas[p.Name] = p
	}
	return r
}

// Get returns the persona for name, falling back to the default when name is
// empty or unknown. The boolean reports whether name resolved exactly.
func (r *Registry) Get(name string) (Persona, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.personas[name]; ok {
		return p, true
	}
	return r.personas[DefaultName], name == "" || name == DefaultName
}

// Add registers or replaces a persona.
func (r *Registry) Add(p Persona) error {
	if p.Name == "" || p.Prompt == "" {
		return fmt.Errorf("%w: name and prompt are required", ErrInvalid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.personas[p.Name] = p
	return nil
}

// Remove deletes a persona by name. The default persona is protected.
func (r *Registry) Remove(name string) error {
	if name == DefaultName {
		return ErrProtected
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.personas, name)
	return nil
}

// Names returns all persona names in sorted order, for command-choice
// registration.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.personas))
	for name := range r.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
