// Simulation ties together every weekly system and routes them over one bus.
package engine

import (
	"encoding"
	"fmt"
	"log/slog"

	"github.com/talgya/heartweek/internal/booking"
	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/commands"
	"github.com/talgya/heartweek/internal/events"
	"github.com/talgya/heartweek/internal/journal"
	"github.com/talgya/heartweek/internal/neglect"
	"github.com/talgya/heartweek/internal/relationships"
	"github.com/talgya/heartweek/internal/stats"
)

// Options configures a new Simulation. Zero values fall back to defaults.
type Options struct {
	Calendar      calendar.Lookup
	Catalog       commands.Catalog
	Bomb          neglect.Config
	MaxYear       int
	Cast          []relationships.Npc
	StartingStats map[stats.Stat]int
	Rand          commands.Randomizer
}

// Simulation holds the complete game state and wires systems together.
type Simulation struct {
	Bus       *events.Bus
	Clock     *Clock
	Stats     *stats.Store
	Affection *relationships.Store
	Commands  *commands.Resolver
	Neglect   *neglect.Engine
	Bookings  *booking.Ledger
	Journal   *journal.Journal
	Cast      []relationships.Npc

	rng commands.Randomizer

	// Statistics tracked across the session.
	Tally Tally
}

// Tally counts notable outcomes since the simulation was created.
type Tally struct {
	Weeks        int `json:"weeks"`
	Resolutions  int `json:"resolutions"`
	Armed        int `json:"armed"`
	Detonations  int `json:"detonations"`
	Interactions int `json:"interactions"`
}

// NewSimulation builds every component, seeds the cast and starting stats,
// and leaves the clock at Y1 W1 Mon without publishing anything.
func NewSimulation(opts Options) *Simulation {
	if opts.Bomb == (neglect.Config{}) {
		opts.Bomb = neglect.DefaultConfig()
	}
	if len(opts.Cast) == 0 {
		opts.Cast = relationships.DefaultCast()
	}

	bus := events.NewBus()
	s := &Simulation{
		Bus:       bus,
		Clock:     NewClock(bus, opts.Calendar, WithMaxYear(opts.MaxYear)),
		Stats:     stats.NewStore(),
		Affection: relationships.NewStore(),
		Cast:      opts.Cast,
		rng:       opts.Rand,
	}
	s.Commands = commands.NewResolver(bus, s.Stats, opts.Rand)
	s.Commands.SetCatalog(opts.Catalog)
	s.Neglect = neglect.NewEngine(bus, opts.Bomb, s.Affection)
	s.Bookings = booking.NewLedger(s.Clock.Calendar())
	s.Journal = journal.New(bus, func() (calendar.Date, calendar.Phase) {
		return s.Clock.Current(), s.Clock.Phase()
	})

	for _, npc := range s.Cast {
		s.Affection.SetInitial(npc.ID, npc.InitialAffection)
		s.Neglect.EnsureTracked(npc.ID)
	}
	for st, v := range opts.StartingStats {
		s.Stats.Add(st, v)
	}

	s.subscribeTally()
	return s
}

func (s *Simulation) subscribeTally() {
	events.Subscribe(s.Bus, func(events.StatsChanged) error {
		s.Tally.Resolutions++
		return nil
	})
	events.Subscribe(s.Bus, func(events.BombArmed) error {
		s.Tally.Armed++
		return nil
	})
	events.Subscribe(s.Bus, func(events.BombDetonated) error {
		s.Tally.Detonations++
		return nil
	})
	events.Subscribe(s.Bus, func(events.InteractionOccurred) error {
		s.Tally.Interactions++
		return nil
	})
	events.Subscribe(s.Bus, s.weeklySummary)
}

// weeklySummary logs the state of the week that just ended. It runs after
// the neglect engine has processed the same WeekEnded.
func (s *Simulation) weeklySummary(ev events.WeekEnded) error {
	s.Tally.Weeks++

	armed := 0
	for _, id := range s.Neglect.Tracked() {
		if s.Neglect.IsArmed(id) {
			armed++
		}
	}

	slog.Info("weekly summary",
		"year", ev.Year,
		"week", ev.Week,
		"activity", s.Commands.Current().String(),
		"streak", s.Commands.Streak(),
		"acad", s.Stats.Get(stats.Academics),
		"stamina", s.Stats.Get(stats.Stamina),
		"stress", s.Stats.Get(stats.Stress),
		"armed", armed,
		"detonations", s.Tally.Detonations,
	)
	return nil
}

// Start resets the clock to Y1 W1 Mon and publishes the opening WeekStarted
// and PhaseStarted.
func (s *Simulation) Start() error {
	return s.Clock.Reset(1, 1, calendar.Mon)
}

// Advance moves one phase forward.
func (s *Simulation) Advance() error {
	if err := s.Clock.Advance(); err != nil {
		return fmt.Errorf("advance from %s %s: %w", s.Clock.Current(), s.Clock.Phase(), err)
	}
	return nil
}

// AdvanceWeek advances until the next week has started. Advance only
// lands on Monday's Weekday phase through a rollover.
func (s *Simulation) AdvanceWeek() error {
	for {
		if err := s.Advance(); err != nil {
			return err
		}
		if s.AtWeekStart() {
			return nil
		}
	}
}

// AtWeekStart reports whether the clock sits on Monday's Weekday phase.
func (s *Simulation) AtWeekStart() bool {
	return s.Clock.Current().Day == calendar.Mon && s.Clock.Phase() == calendar.PhaseWeekday
}

// Select picks the weekly activity.
func (s *Simulation) Select(id string) error {
	return s.Commands.SelectWeekdayCommand(id)
}

// Interact reports a meeting with a character at the current date.
func (s *Simulation) Interact(characterID string, outcome events.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("interact with %s: unknown outcome %q", characterID, outcome)
	}
	return s.Bus.Publish(events.InteractionOccurred{
		Date:        s.Clock.Current(),
		CharacterID: characterID,
		Outcome:     outcome,
	})
}

// Book reserves a weekend or holiday date with a character.
func (s *Simulation) Book(characterID string, d calendar.Date, venue string) error {
	if d.Before(s.Clock.Current()) {
		return fmt.Errorf("book %s with %s: %w (date has passed)", d, characterID, booking.ErrNotBookable)
	}
	return s.Bookings.Book(characterID, d, venue)
}

// BookedToday returns today's booking, if any.
func (s *Simulation) BookedToday() (booking.Booking, bool) {
	return s.Bookings.Get(s.Clock.Current())
}

// Npc looks up a cast member by id.
func (s *Simulation) Npc(id string) (relationships.Npc, bool) {
	for _, npc := range s.Cast {
		if npc.ID == id {
			return npc, true
		}
	}
	return relationships.Npc{}, false
}

// Snapshot captures the whole simulation.
func (s *Simulation) Snapshot() State {
	return State{
		Version:   SaveVersion,
		Date:      s.Clock.Current(),
		Phase:     s.Clock.Phase(),
		Stats:     s.Stats.Snapshot(),
		Command:   encodeCommand(s.Commands.Snapshot()),
		Affection: s.Affection.Snapshot(),
		Neglect:   s.Neglect.Snapshot(),
		Bookings:  s.Bookings.Snapshot(),
		RNG:       s.rngState(),
	}
}

func (s *Simulation) rngState() []byte {
	m, ok := s.rng.(encoding.BinaryMarshaler)
	if !ok {
		return nil
	}
	b, err := m.MarshalBinary()
	if err != nil {
		slog.Warn("random source not saved", "error", err)
		return nil
	}
	return b
}

// Restore loads st. The clock and resolver are set silently; stats reach
// their targets through ordinary deltas. A saved random source position is
// applied when the simulation's source can take it; otherwise the current
// source is kept.
func (s *Simulation) Restore(st State) error {
	if st.Version > SaveVersion {
		return fmt.Errorf("save version %d is newer than supported %d", st.Version, SaveVersion)
	}
	if u, ok := s.rng.(encoding.BinaryUnmarshaler); ok && len(st.RNG) > 0 {
		if err := u.UnmarshalBinary(st.RNG); err != nil {
			return fmt.Errorf("restore random source: %w", err)
		}
	}
	if err := s.Clock.RestoreTo(st.Date.Year, st.Date.Week, st.Date.Day, st.Phase, false); err != nil {
		return fmt.Errorf("restore clock: %w", err)
	}
	s.Stats.Restore(st.Stats)
	s.Commands.Restore(st.Command.decode())
	s.Affection.Restore(st.Affection)
	s.Neglect.Restore(st.Neglect)
	s.Bookings.Restore(st.Bookings)

	for _, npc := range s.Cast {
		s.Neglect.EnsureTracked(npc.ID)
	}
	slog.Debug("simulation restored", "date", st.Date.String(), "phase", st.Phase.String())
	return nil
}

// Variables exposes the flat key/value view dialogue scripts read.
func (s *Simulation) Variables() map[string]any {
	d := s.Clock.Current()
	vars := map[string]any{
		"YEAR":  d.Year,
		"WEEK":  d.Week,
		"DOW":   d.Day.String(),
		"PHASE": s.Clock.Phase().String(),
	}
	for _, st := range stats.All() {
		vars[st.Short()] = s.Stats.Get(st)
	}
	for _, npc := range s.Cast {
		vars["AFF_"+npc.ID] = s.Affection.Get(npc.ID)
		vars["BOMB_"+npc.ID] = s.Neglect.IsArmed(npc.ID)
	}
	return vars
}
