// Package tuning loads the game balance knobs from tuning.yaml.
package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/engine"
	"github.com/talgya/heartweek/internal/neglect"
	"github.com/talgya/heartweek/internal/relationships"
	"github.com/talgya/heartweek/internal/stats"
)

type Tuning struct {
	MaxYear      int `yaml:"max_year"`
	WeeksPerYear int `yaml:"weeks_per_year"`

	Bomb neglect.Config `yaml:"bomb"`

	Cast          []relationships.Npc `yaml:"cast"`
	StartingStats map[string]int      `yaml:"starting_stats"`
}

// Default returns the built-in tuning.
func Default() Tuning {
	return Tuning{
		MaxYear:      engine.DefaultMaxYear,
		WeeksPerYear: calendar.DefaultWeeksPerYear,
		Bomb:         neglect.DefaultConfig(),
		Cast:         relationships.DefaultCast(),
		StartingStats: map[string]int{
			"Stamina": 100,
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	return Parse(raw)
}

// Parse decodes raw YAML over the defaults and validates the result.
func Parse(raw []byte) (Tuning, error) {
	t := Default()
	t.Cast = nil
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if len(t.Cast) == 0 {
		t.Cast = relationships.DefaultCast()
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate checks ranges and cast ids.
func (t Tuning) Validate() error {
	var errs []error
	if t.MaxYear < 1 {
		errs = append(errs, fmt.Errorf("max_year must be at least 1, got %d", t.MaxYear))
	}
	if t.WeeksPerYear < 1 {
		errs = append(errs, fmt.Errorf("weeks_per_year must be at least 1, got %d", t.WeeksPerYear))
	}
	if err := t.Bomb.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bomb: %w", err))
	}
	seen := make(map[string]bool, len(t.Cast))
	for _, npc := range t.Cast {
		switch {
		case npc.ID == "":
			errs = append(errs, errors.New("cast: empty id"))
		case seen[npc.ID]:
			errs = append(errs, fmt.Errorf("cast: duplicate id %q", npc.ID))
		}
		seen[npc.ID] = true
	}
	if _, err := t.Stats(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Stats resolves StartingStats names to stats.
func (t Tuning) Stats() (map[stats.Stat]int, error) {
	out := make(map[stats.Stat]int, len(t.StartingStats))
	for name, v := range t.StartingStats {
		s, err := stats.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("starting_stats: %w", err)
		}
		out[s] = v
	}
	return out, nil
}
