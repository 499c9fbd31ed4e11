// Package neglect implements the bomb mechanic: characters left alone for too
// many weeks arm a bomb, and an armed bomb that is not defused in time
// detonates and spreads a rumor that costs every other character affection.
package neglect

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/talgya/heartweek/internal/events"
	"github.com/talgya/heartweek/internal/relationships"
)

// RumorReason tags the RumorSpread event that follows a detonation.
const RumorReason = "bomb detonation"

// Config holds the bomb tuning.
type Config struct {
	WeeksToArm    int `yaml:"weeks_to_arm" json:"weeks_to_arm"`
	FuseWeeks     int `yaml:"fuse_weeks" json:"fuse_weeks"`
	GlobalPenalty int `yaml:"global_penalty" json:"global_penalty"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{WeeksToArm: 8, FuseWeeks: 3, GlobalPenalty: 4}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.WeeksToArm <= 0 {
		errs = append(errs, fmt.Errorf("weeks_to_arm must be positive, got %d", c.WeeksToArm))
	}
	if c.FuseWeeks <= 0 {
		errs = append(errs, fmt.Errorf("fuse_weeks must be positive, got %d", c.FuseWeeks))
	}
	if c.GlobalPenalty < 0 {
		errs = append(errs, fmt.Errorf("global_penalty must not be negative, got %d", c.GlobalPenalty))
	}
	return errors.Join(errs...)
}

// Record is one character's neglect state. Fuse is only meaningful while
// Armed.
type Record struct {
	Weeks int  `json:"weeks"`
	Armed bool `json:"armed"`
	Fuse  int  `json:"fuse"`
}

// Engine tracks neglect per character and reacts to week ends and
// interactions.
type Engine struct {
	bus       *events.Bus
	cfg       Config
	affection *relationships.Store

	records map[string]*Record
	cancels []func()
}

// NewEngine creates an engine subscribed to WeekEnded and InteractionOccurred.
func NewEngine(bus *events.Bus, cfg Config, affection *relationships.Store) *Engine {
	e := &Engine{
		bus:       bus,
		cfg:       cfg,
		affection: affection,
		records:   make(map[string]*Record),
	}
	e.cancels = []func(){
		events.Subscribe(bus, e.onWeekEnded),
		events.Subscribe(bus, e.onInteraction),
	}
	return e
}

// Detach unsubscribes the engine from the bus.
func (e *Engine) Detach() {
	for _, cancel := range e.cancels {
		cancel()
	}
	e.cancels = nil
}

// Config returns the tuning in effect.
func (e *Engine) Config() Config { return e.cfg }

// EnsureTracked starts tracking id with a zero counter. Already tracked
// characters keep their state.
func (e *Engine) EnsureTracked(id string) {
	if _, ok := e.records[id]; !ok {
		e.records[id] = &Record{}
	}
}

// Tracked returns the tracked ids, sorted.
func (e *Engine) Tracked() []string {
	return slices.Sorted(maps.Keys(e.records))
}

// Record returns a copy of id's state and whether it is tracked.
func (e *Engine) Record(id string) (Record, bool) {
	r, ok := e.records[id]
	if !ok {
		return Record{}, false
	}
	return export(r), true
}

// IsArmed reports whether id has an armed bomb.
func (e *Engine) IsArmed(id string) bool {
	r, ok := e.records[id]
	return ok && r.Armed
}

// Weeks returns the weeks since id's last interaction.
func (e *Engine) Weeks(id string) int {
	if r, ok := e.records[id]; ok {
		return r.Weeks
	}
	return 0
}

// Fuse returns id's fuse count, 0 when unarmed.
func (e *Engine) Fuse(id string) int {
	if r, ok := e.records[id]; ok && r.Armed {
		return r.Fuse
	}
	return 0
}

// Snapshot copies every record. Unarmed records export a zero fuse.
func (e *Engine) Snapshot() map[string]Record {
	out := make(map[string]Record, len(e.records))
	for id, r := range e.records {
		out[id] = export(r)
	}
	return out
}

// Restore replaces all records without emitting events.
func (e *Engine) Restore(data map[string]Record) {
	clear(e.records)
	for id, r := range data {
		rec := Record{Weeks: max(r.Weeks, 0), Armed: r.Armed}
		if r.Armed {
			rec.Fuse = max(r.Fuse, 0)
		}
		e.records[id] = &rec
	}
}

func export(r *Record) Record {
	out := *r
	if !out.Armed {
		out.Fuse = 0
	}
	return out
}

// onWeekEnded burns armed fuses, then ages every record, then arms the ones
// that crossed WeeksToArm. A character whose bomb goes off in this pass is
// not aged for the week, so its neglect count restarts at 0 rather than 1.
func (e *Engine) onWeekEnded(ev events.WeekEnded) error {
	// Collect armed ids before detonations mutate the records.
	var armed []string
	for _, id := range e.Tracked() {
		if e.records[id].Armed {
			armed = append(armed, id)
		}
	}

	detonated := make(map[string]bool)
	for _, id := range armed {
		r := e.records[id]
		r.Fuse++
		if r.Fuse >= e.cfg.FuseWeeks {
			if err := e.detonate(id); err != nil {
				return err
			}
			detonated[id] = true
		}
	}

	for id, r := range e.records {
		if !detonated[id] {
			r.Weeks++
		}
	}

	for _, id := range e.Tracked() {
		r := e.records[id]
		if r.Armed || r.Weeks < e.cfg.WeeksToArm {
			continue
		}
		r.Armed = true
		r.Fuse = 0
		slog.Warn("bomb armed", "character", id, "weeks", r.Weeks, "year", ev.Year, "week", ev.Week)
		if err := e.bus.Publish(events.BombArmed{CharacterID: id}); err != nil {
			return err
		}
	}
	return nil
}

// detonate penalises every other tracked character and resets the source.
// Affection is clamped at MinAffection, so a character never loses more than
// they currently hold.
func (e *Engine) detonate(source string) error {
	penalty := e.cfg.GlobalPenalty
	slog.Warn("bomb detonated", "character", source, "penalty", penalty)

	if err := e.bus.Publish(events.BombDetonated{CharacterID: source, Penalty: penalty}); err != nil {
		return err
	}
	if err := e.bus.Publish(events.RumorSpread{SourceCharacterID: source, Penalty: penalty, Reason: RumorReason}); err != nil {
		return err
	}

	for _, id := range e.Tracked() {
		if id == source {
			continue
		}
		v := e.affection.Add(id, -penalty)
		if err := e.bus.Publish(events.AffectionChanged{CharacterID: id, NewValue: v}); err != nil {
			return err
		}
	}

	if r, ok := e.records[source]; ok {
		*r = Record{}
	}
	return nil
}

func (e *Engine) onInteraction(ev events.InteractionOccurred) error {
	r, ok := e.records[ev.CharacterID]
	if !ok {
		r = &Record{}
		e.records[ev.CharacterID] = r
	}
	if r.Armed {
		slog.Info("bomb defused", "character", ev.CharacterID, "fuse", r.Fuse, "outcome", string(ev.Outcome))
	}
	*r = Record{}
	return nil
}
