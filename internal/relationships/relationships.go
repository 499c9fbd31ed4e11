// Package relationships tracks affection toward the characters the player can
// date.
package relationships

import (
	"maps"
	"slices"
)

// Affection bounds. Values are clamped like stats.
const (
	MinAffection = 0
	MaxAffection = 999
)

// Npc is a dateable character.
type Npc struct {
	ID               string `yaml:"id" json:"id"`
	Name             string `yaml:"name" json:"name"`
	InitialAffection int    `yaml:"initial_affection" json:"initial_affection"`
}

// DefaultCast is used when tuning does not list any characters. Affection
// never drops below MinAffection, so a rumor penalty against these low
// starting values is capped at the character's current affection.
func DefaultCast() []Npc {
	return []Npc{
		{ID: "npc_ash", Name: "Ashley", InitialAffection: 10},
		{ID: "npc_jen", Name: "Jen", InitialAffection: 25},
		{ID: "npc_max", Name: "Max", InitialAffection: 5},
	}
}

// Store maps character id to affection. Unknown characters read as 0.
type Store struct {
	affection map[string]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{affection: make(map[string]int)}
}

// Get returns the affection for id.
func (s *Store) Get(id string) int {
	return s.affection[id]
}

// SetInitial seeds id with a starting value.
func (s *Store) SetInitial(id string, value int) {
	s.affection[id] = clamp(value)
}

// Add applies a signed delta and returns the new value.
func (s *Store) Add(id string, delta int) int {
	v := clamp(s.affection[id] + delta)
	s.affection[id] = v
	return v
}

// IDs returns every known character id, sorted.
func (s *Store) IDs() []string {
	return slices.Sorted(maps.Keys(s.affection))
}

// Snapshot copies the affection map.
func (s *Store) Snapshot() map[string]int {
	return maps.Clone(s.affection)
}

// Restore replaces every value with data.
func (s *Store) Restore(data map[string]int) {
	clear(s.affection)
	for id, v := range data {
		s.affection[id] = clamp(v)
	}
}

func clamp(v int) int {
	return min(max(v, MinAffection), MaxAffection)
}
