package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/talgya/heartweek/internal/catalogs"
	"github.com/talgya/heartweek/internal/engine"
	"github.com/talgya/heartweek/internal/entropy"
	"github.com/talgya/heartweek/internal/persistence"
	"github.com/talgya/heartweek/internal/tuning"
)

// setup names every file a session reads.
type setup struct {
	DB       string
	Tuning   string
	Commands string
	Calendar string
	Seed     uint64
}

func flagSetup() setup {
	return setup{
		DB:       dbPath,
		Tuning:   tuningPath,
		Commands: commandsPath,
		Calendar: calendarPath,
		Seed:     seed,
	}
}

// session is one CLI invocation: a simulation bound to its save database.
type session struct {
	db  *persistence.DB
	sim *engine.Simulation
	rng *entropy.Source

	commandsDigest string
	calendarDigest string

	// started is set when this session began a new game.
	started bool
}

// build assembles a simulation from the tuning and catalog files without
// starting it.
func build(cfg setup) (*engine.Simulation, *entropy.Source, catalogs.Commands, catalogs.Calendar, error) {
	tun, err := tuning.Load(cfg.Tuning)
	if err != nil {
		return nil, nil, catalogs.Commands{}, catalogs.Calendar{}, fmt.Errorf("load tuning: %w", err)
	}
	cmds, err := catalogs.LoadCommands(cfg.Commands)
	if err != nil {
		return nil, nil, catalogs.Commands{}, catalogs.Calendar{}, fmt.Errorf("load commands: %w", err)
	}
	cal, err := catalogs.LoadCalendar(cfg.Calendar)
	if err != nil {
		return nil, nil, catalogs.Commands{}, catalogs.Calendar{}, fmt.Errorf("load calendar: %w", err)
	}
	start, err := tun.Stats()
	if err != nil {
		return nil, nil, catalogs.Commands{}, catalogs.Calendar{}, fmt.Errorf("tuning starting stats: %w", err)
	}

	rng := entropy.NewSource()
	if cfg.Seed != 0 {
		rng = entropy.NewSeeded(cfg.Seed)
	}

	sim := engine.NewSimulation(engine.Options{
		Calendar:      cal.School(tun.WeeksPerYear),
		Catalog:       cmds.Catalog,
		Bomb:          tun.Bomb,
		MaxYear:       tun.MaxYear,
		Cast:          tun.Cast,
		StartingStats: start,
		Rand:          rng,
	})
	return sim, rng, cmds, cal, nil
}

// openSession loads the saved game, or starts a new one when the database
// holds none. fresh discards any existing save and its event log.
func openSession(cfg setup, fresh bool) (*session, error) {
	if dir := filepath.Dir(cfg.DB); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	s, err := attach(db, cfg, fresh)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func attach(db *persistence.DB, cfg setup, fresh bool) (*session, error) {
	sim, rng, cmds, cal, err := build(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{
		db:             db,
		sim:            sim,
		rng:            rng,
		commandsDigest: cmds.Digest,
		calendarDigest: cal.Digest,
	}

	saved, err := db.HasState()
	if err != nil {
		return nil, err
	}
	if saved && !fresh {
		st, err := db.LoadState()
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		// The saved random source position wins over --seed, which only
		// seeds new games.
		if err := sim.Restore(st); err != nil {
			return nil, err
		}
		last, err := db.LastEventSeq()
		if err != nil {
			return nil, err
		}
		sim.Journal.Resume(last)
		slog.Debug("game restored", "date", st.Date.String(), "phase", st.Phase.String(), "events", last, "seed", rng.Seed())
		return s, nil
	}

	if err := s.begin(); err != nil {
		return nil, err
	}
	return s, nil
}

// begin clears the event log and publishes the opening phase of a new game.
func (s *session) begin() error {
	if err := s.db.ClearEvents(); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	if err := s.db.SaveMeta(persistence.MetaSeed, strconv.FormatUint(s.rng.Seed(), 10)); err != nil {
		return err
	}
	if err := s.db.SaveMeta(persistence.MetaCommandsDigest, s.commandsDigest); err != nil {
		return err
	}
	if err := s.db.SaveMeta(persistence.MetaCalendarDigest, s.calendarDigest); err != nil {
		return err
	}
	slog.Info("new game", "seed", s.rng.Seed(), "cast", len(s.sim.Cast))
	s.started = true
	return s.sim.Start()
}

// replace swaps in st as the current game, dropping the old event log.
func (s *session) replace(st engine.State) error {
	if err := s.sim.Restore(st); err != nil {
		return err
	}
	s.sim.Journal.Drain()
	if err := s.db.ClearEvents(); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

// save flushes journaled events and writes the full state.
func (s *session) save() error {
	if err := s.db.SaveEvents(s.sim.Journal.Drain()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if _, err := s.db.SaveState(s.sim.Snapshot()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// withSession runs fn against the saved game. The game is saved afterwards
// when fn succeeded and either mutates or a new game had to be started.
// A failed action leaves the previous save untouched.
func withSession(fresh, mutates bool, fn func(*session) error) error {
	s, err := openSession(flagSetup(), fresh)
	if err != nil {
		return err
	}
	err = fn(s)
	if err == nil && (mutates || s.started) {
		err = s.save()
	}
	return errors.Join(err, s.db.Close())
}
