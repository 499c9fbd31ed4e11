package commands

import (
	"log/slog"
	"math"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/entropy"
	"github.com/talgya/heartweek/internal/events"
	"github.com/talgya/heartweek/internal/stats"
)

// decaySlack tolerates factors written as e.g. 1.00001 in data files.
const decaySlack = 1.0001

// State is the resolver's persistent state.
type State struct {
	Current  Selection
	Previous Selection
	Streak   int
}

// Resolver owns the selected weekly activity and mutates the stat store on
// every weekday phase.
type Resolver struct {
	bus     *events.Bus
	stats   *stats.Store
	rng     Randomizer
	catalog Catalog

	current  Selection
	previous Selection
	streak   int

	cancels []func()
}

// NewResolver creates a resolver and subscribes it to the bus. A nil rng gets
// a randomly seeded source.
func NewResolver(bus *events.Bus, st *stats.Store, rng Randomizer) *Resolver {
	if rng == nil {
		rng = entropy.NewSource()
	}
	r := &Resolver{bus: bus, stats: st, rng: rng}
	r.cancels = []func(){
		events.Subscribe(bus, r.onPhaseStarted),
		events.Subscribe(bus, r.onWeekStarted),
	}
	return r
}

// Detach unsubscribes the resolver from the bus.
func (r *Resolver) Detach() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

// SetCatalog replaces the catalog wholesale.
func (r *Resolver) SetCatalog(c Catalog) {
	r.catalog = c
}

// Catalog returns the loaded catalog (nil if none).
func (r *Resolver) Catalog() Catalog {
	return r.catalog
}

// SelectWeekdayCommand picks the activity applied from the next weekday phase
// onward.
func (r *Resolver) SelectWeekdayCommand(id string) error {
	if _, ok := r.catalog[id]; !ok {
		return &InvalidActivityError{ID: id}
	}
	r.current = Selected(id)
	return nil
}

// Current returns the selected activity.
func (r *Resolver) Current() Selection { return r.current }

// Previous returns the activity selected the week before.
func (r *Resolver) Previous() Selection { return r.previous }

// Streak returns the count of consecutive weeks the current activity repeated.
func (r *Resolver) Streak() int { return r.streak }

// Snapshot returns the resolver state.
func (r *Resolver) Snapshot() State {
	return State{Current: r.current, Previous: r.previous, Streak: r.streak}
}

// Restore replaces the state without emitting events. The streak is clamped
// to be non-negative.
func (r *Resolver) Restore(s State) {
	r.current = s.Current
	r.previous = s.Previous
	r.streak = max(s.Streak, 0)
}

// Decay returns the multiplier for a factor after streak repeats.
func Decay(factor float64, streak int) float64 {
	if streak <= 0 || factor <= 0 || factor >= decaySlack {
		return 1
	}
	return math.Pow(min(factor, 1), float64(streak))
}

func (r *Resolver) onWeekStarted(events.WeekStarted) error {
	if r.current.Set && r.current.Equal(r.previous) {
		r.streak++
	} else {
		r.streak = 0
	}
	r.previous = r.current
	return nil
}

func (r *Resolver) onPhaseStarted(e events.PhaseStarted) error {
	if e.Phase != calendar.PhaseWeekday {
		return nil
	}
	if !r.current.Set || r.catalog == nil {
		slog.Debug("weekday resolution skipped", "date", e.Date.String(), "selected", r.current.Set, "catalog", r.catalog != nil)
		return nil
	}
	def, ok := r.catalog[r.current.ID]
	if !ok {
		slog.Warn("selected activity missing from catalog", "activity", r.current.ID)
		return nil
	}

	deltas := r.resolve(def)
	return r.bus.Publish(events.StatsChanged{Deltas: deltas})
}

// resolve draws and applies every delta of def and returns the aggregate.
func (r *Resolver) resolve(def Activity) map[stats.Stat]int {
	deltas := make(map[stats.Stat]int)
	add := func(s stats.Stat, v int) {
		deltas[s] += v
		r.stats.Add(s, v)
	}

	decay := Decay(def.RepeatDecay, r.streak)

	for _, sr := range def.Increase {
		if v := scaled(r.rng.Range(sr.Min, sr.Max), decay); v != 0 {
			add(sr.Stat, v)
		}
	}
	for _, sr := range def.Decrease {
		if v := scaled(r.rng.Range(sr.Min, sr.Max), decay); v != 0 {
			add(sr.Stat, -v)
		}
	}
	if def.Stress != nil {
		if v := r.rng.Range(def.Stress.Min, def.Stress.Max); v != 0 {
			add(stats.Stress, v)
		}
	}
	if def.StaminaCost != nil {
		if v := r.rng.Range(def.StaminaCost.Min, def.StaminaCost.Max); v != 0 {
			add(stats.Stamina, -v)
		}
	}
	return deltas
}

func scaled(raw int, decay float64) int {
	return int(math.Floor(float64(raw) * decay))
}
