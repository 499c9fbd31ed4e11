// Package commands resolves the weekly activity the player picked into stat
// changes on every weekday.
package commands

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/talgya/heartweek/internal/stats"
)

// Range is an inclusive integer range.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// StatRange targets one stat with a range.
type StatRange struct {
	Stat stats.Stat
	Range
}

// Activity is one weekly command definition.
type Activity struct {
	ID          string
	Increase    []StatRange
	Decrease    []StatRange
	Stress      *Range  // optional, added to Stress
	StaminaCost *Range  // optional, subtracted from Stamina
	RepeatDecay float64 // (0,1], applied per consecutive week
}

// Catalog maps activity id to definition.
type Catalog map[string]Activity

// IDs returns the catalog ids sorted.
func (c Catalog) IDs() []string {
	return slices.Sorted(maps.Keys(c))
}

// ErrInvalidActivity is wrapped by InvalidActivityError.
var ErrInvalidActivity = errors.New("invalid activity")

// InvalidActivityError reports an activity id that is not in the catalog.
type InvalidActivityError struct {
	ID string
}

func (e *InvalidActivityError) Error() string {
	return fmt.Sprintf("invalid activity %q: not in catalog", e.ID)
}

func (e *InvalidActivityError) Unwrap() error { return ErrInvalidActivity }

// Selection is an optional activity id. The zero value means nothing is
// selected.
type Selection struct {
	ID  string
	Set bool
}

// Selected returns a set selection.
func Selected(id string) Selection { return Selection{ID: id, Set: true} }

// None is the empty selection.
var None = Selection{}

// Equal reports whether both selections are set to the same id.
func (s Selection) Equal(o Selection) bool {
	return s.Set && o.Set && s.ID == o.ID
}

func (s Selection) String() string {
	if !s.Set {
		return "<none>"
	}
	return s.ID
}

// Randomizer draws a uniform integer in [min, max], both ends inclusive.
type Randomizer interface {
	Range(min, max int) int
}

// RandomizerFunc adapts a function to Randomizer.
type RandomizerFunc func(min, max int) int

func (f RandomizerFunc) Range(min, max int) int { return f(min, max) }
