// Package stats holds the player's bounded stat block.
package stats

import (
	"fmt"
	"strings"
)

// Stat identifies one player attribute.
type Stat uint8

const (
	Academics Stat = iota
	Art
	Athletics
	Stamina
	Charm
	Guts
	Stress
	GenKnowledge
)

// Bounds applied to every stat.
const (
	Min = 0
	Max = 999
)

var statNames = [...]string{
	"Academics",
	"Art",
	"Athletics",
	"Stamina",
	"Charm",
	"Guts",
	"Stress",
	"GenKnowledge",
}

// Short names used by dialogue variables.
var shortNames = [...]string{"ACAD", "ART", "ATH", "STA", "CHARM", "GUTS", "STRESS", "GK"}

// All lists every stat in declaration order.
func All() []Stat {
	out := make([]Stat, len(statNames))
	for i := range statNames {
		out[i] = Stat(i)
	}
	return out
}

// Valid reports whether s is a declared stat.
func (s Stat) Valid() bool { return int(s) < len(statNames) }

func (s Stat) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stat(%d)", uint8(s))
	}
	return statNames[s]
}

// Short returns the dialogue variable name of s.
func (s Stat) Short() string {
	if !s.Valid() {
		return s.String()
	}
	return shortNames[s]
}

// MarshalText lets stats key JSON objects by name.
func (s Stat) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stat %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stat name.
func (s *Stat) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse resolves a stat by its name, case-insensitively.
func Parse(name string) (Stat, error) {
	name = strings.TrimSpace(name)
	for i, n := range statNames {
		if strings.EqualFold(n, name) {
			return Stat(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stat %q", name)
}

// Store maps every stat to a value clamped to [Min, Max]. Values only change
// through signed deltas.
type Store struct {
	values [len(statNames)]int
}

// NewStore returns a store with every stat at zero.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current value of s.
func (st *Store) Get(s Stat) int {
	if !s.Valid() {
		return 0
	}
	return st.values[s]
}

// Add applies a signed delta to s, clamps, and returns the new value.
func (st *Store) Add(s Stat, delta int) int {
	if !s.Valid() {
		return 0
	}
	st.values[s] = clamp(st.values[s] + delta)
	return st.values[s]
}

// Snapshot copies every stat value.
func (st *Store) Snapshot() map[Stat]int {
	out := make(map[Stat]int, len(statNames))
	for i, v := range st.values {
		out[Stat(i)] = v
	}
	return out
}

// Restore moves each listed stat to its target value by applying the delta
// between current and target. Stats absent from target are left untouched.
func (st *Store) Restore(target map[Stat]int) {
	for _, s := range All() {
		v, ok := target[s]
		if !ok {
			continue
		}
		st.Add(s, v-st.Get(s))
	}
}

func clamp(v int) int {
	if v < Min {
		return Min
	}
	if v > Max {
		return Max
	}
	return v
}
