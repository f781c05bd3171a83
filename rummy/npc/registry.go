package npc

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"rummy-lite/rummy"
)

//go:embed personas.json
var defaultPersonasJSON []byte

// PersonaRegistry holds all NPC persona definitions.
type PersonaRegistry struct {
	mu       sync.RWMutex
	personas map[string]*NPCPersona
}

// NewRegistry creates an empty registry.
func NewRegistry() *PersonaRegistry {
	return &PersonaRegistry{
		personas: make(map[string]*NPCPersona),
	}
}

// DefaultRegistry returns a registry loaded with the built-in personas.
func DefaultRegistry() *PersonaRegistry {
	r := NewRegistry()
	if err := r.LoadFromJSON(defaultPersonasJSON); err != nil {
		panic(fmt.Sprintf("built-in personas: %v", err))
	}
	return r
}

// LoadFromFile loads NPC personas from a JSON file.
func (r *PersonaRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read personas file: %w", err)
	}
	return r.LoadFromJSON(data)
}

// LoadFromJSON loads NPC personas from raw JSON bytes.
func (r *PersonaRegistry) LoadFromJSON(data []byte) error {
	var list []*NPCPersona
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse personas JSON: %w", err)
	}
	for _, p := range list {
		if p.ID == "" {
			continue
		}
		if _, err := rummy.ParseDifficulty(p.Difficulty); err != nil {
			return fmt.Errorf("persona %s: %w", p.ID, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range list {
		if p.ID == "" {
			continue
		}
		r.personas[p.ID] = p
	}
	return nil
}

// Get returns a persona by ID.
func (r *PersonaRegistry) Get(id string) *NPCPersona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.personas[id]
}

// All returns every persona ordered by ID.
func (r *PersonaRegistry) All() []*NPCPersona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NPCPersona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByDifficulty returns the personas of one tier ordered by ID.
func (r *PersonaRegistry) ByDifficulty(d rummy.Difficulty) []*NPCPersona {
	var out []*NPCPersona
	for _, p := range r.All() {
		if p.Tier() == d {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the total number of registered personas.
func (r *PersonaRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.personas)
}
