package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/commands"
	"github.com/talgya/heartweek/internal/engine"
	"github.com/talgya/heartweek/internal/events"
	"github.com/talgya/heartweek/internal/persistence"
	"github.com/talgya/heartweek/internal/savefile"
	"github.com/talgya/heartweek/internal/stats"
)

// errWeeksDone stops the paced runner once the requested weeks have run.
var errWeeksDone = errors.New("requested weeks complete")

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new game, discarding the current save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(true, true, func(s *session) error {
				return renderStatus(cmd.OutOrStdout(), s, time.Time{})
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current date, stats and cast",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(false, false, func(s *session) error {
				return renderStatus(cmd.OutOrStdout(), s, savedAt(s.db))
			})
		},
	}
}

func savedAt(db *persistence.DB) time.Time {
	info, err := db.Info()
	if err != nil {
		return time.Time{}
	}
	return info.SavedAt
}

func renderStatus(w io.Writer, s *session, saved time.Time) error {
	sim := s.sim
	d := sim.Clock.Current()
	fmt.Fprintf(w, "Year %d, %s week, %s (%s)\n", d.Year, humanize.Ordinal(d.Week), d.Day, sim.Clock.Phase())
	if b, ok := sim.BookedToday(); ok {
		fmt.Fprintf(w, "Today: date with %s at %s\n", b.CharacterID, b.Venue)
	}
	if !saved.IsZero() {
		fmt.Fprintf(w, "Last saved %s\n", humanize.Time(saved))
	}

	fmt.Fprintf(w, "\nActivity: %s", sim.Commands.Current())
	if streak := sim.Commands.Streak(); streak > 0 {
		fmt.Fprintf(w, " (%s week in a row)", humanize.Ordinal(streak+1))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "\nStats:")
	for _, st := range stats.All() {
		fmt.Fprintf(w, "  %-13s %3d\n", st, sim.Stats.Get(st))
	}

	fmt.Fprintln(w, "\nCast:")
	for _, npc := range sim.Cast {
		weeks := sim.Neglect.Weeks(npc.ID)
		line := fmt.Sprintf("  %-10s affection %3d  last seen %s",
			npc.Name, sim.Affection.Get(npc.ID), weeksAgo(weeks))
		if sim.Neglect.IsArmed(npc.ID) {
			left := max(sim.Neglect.Config().FuseWeeks-sim.Neglect.Fuse(npc.ID), 0)
			line += fmt.Sprintf("  BOMB (%s left)", plural(left, "week"))
		}
		fmt.Fprintln(w, line)
	}

	if upcoming := sim.Bookings.Upcoming(d); len(upcoming) > 0 {
		fmt.Fprintln(w, "\nBookings:")
		for _, e := range upcoming {
			fmt.Fprintf(w, "  %s  %s at %s\n", e.Date, e.CharacterID, e.Venue)
		}
	}

	t := sim.Tally
	if t.Weeks > 0 || t.Resolutions > 0 {
		fmt.Fprintf(w, "\nThis session: %s weeks, %s activities, %d bombs armed, %d detonated\n",
			humanize.Comma(int64(t.Weeks)), humanize.Comma(int64(t.Resolutions)), t.Armed, t.Detonations)
	}
	return nil
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func weeksAgo(n int) string {
	switch n {
	case 0:
		return "this week"
	case 1:
		return "last week"
	}
	return fmt.Sprintf("%d weeks ago", n)
}

func newAdvanceCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Advance the clock by phases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("-n must be at least 1, got %d", steps)
			}
			return withSession(false, true, func(s *session) error {
				for range steps {
					if err := s.sim.Advance(); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Now %s (%s)\n", s.sim.Clock.Current(), s.sim.Clock.Phase())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of phases to advance")
	return cmd
}

func newRunCmd() *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run whole weeks, saving after each one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if weeks < 1 {
				return fmt.Errorf("--weeks must be at least 1, got %d", weeks)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withSession(false, true, func(s *session) error {
				done := 0
				eng := engine.NewEngine(s.sim.Advance)
				eng.Interval = runInterval
				eng.NewWeek = s.sim.AtWeekStart
				eng.OnWeek = func(uint64) error {
					if err := s.save(); err != nil {
						return err
					}
					done++
					if done >= weeks {
						return errWeeksDone
					}
					return nil
				}

				err := eng.Run(ctx, 0)
				fmt.Fprintf(cmd.OutOrStdout(), "Ran %d weeks (%d phases), now %s\n", done, eng.Steps, s.sim.Clock.Current())
				if errors.Is(err, errWeeksDone) || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&weeks, "weeks", 1, "number of weeks to run")
	cmd.Flags().DurationVar(&runInterval, "interval", 0, "pause between phases")
	return cmd
}

func newSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <activity>",
		Short: "Choose the weekday activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(false, true, func(s *session) error {
				if err := s.sim.Select(args[0]); err != nil {
					var invalid *commands.InvalidActivityError
					if errors.As(err, &invalid) {
						return fmt.Errorf("%w (known: %s)", err, strings.Join(s.sim.Commands.Catalog().IDs(), ", "))
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", args[0])
				return nil
			})
		},
	}
}

func newActivitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activities",
		Short: "List the weekday activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(false, false, func(s *session) error {
				renderActivities(cmd.OutOrStdout(), s.sim.Commands.Catalog(), s.sim.Commands.Current())
				return nil
			})
		},
	}
}

func renderActivities(w io.Writer, catalog commands.Catalog, current commands.Selection) {
	for _, id := range catalog.IDs() {
		a := catalog[id]
		mark := " "
		if current.Set && current.ID == id {
			mark = "*"
		}
		var parts []string
		for _, r := range a.Increase {
			parts = append(parts, fmt.Sprintf("+%s %d..%d", r.Stat.Short(), r.Min, r.Max))
		}
		for _, r := range a.Decrease {
			parts = append(parts, fmt.Sprintf("-%s %d..%d", r.Stat.Short(), r.Min, r.Max))
		}
		if a.Stress != nil {
			parts = append(parts, fmt.Sprintf("stress %d..%d", a.Stress.Min, a.Stress.Max))
		}
		if a.StaminaCost != nil {
			parts = append(parts, fmt.Sprintf("stamina %d..%d", a.StaminaCost.Min, a.StaminaCost.Max))
		}
		fmt.Fprintf(w, "%s %-14s %s  (repeat x%.2f)\n", mark, id, strings.Join(parts, ", "), a.RepeatDecay)
	}
}

func newInteractCmd() *cobra.Command {
	var outcome string
	cmd := &cobra.Command{
		Use:   "interact <npc>",
		Short: "Record a meeting with a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(false, true, func(s *session) error {
				id := args[0]
				if _, ok := s.sim.Npc(id); !ok {
					return fmt.Errorf("unknown character %q", id)
				}
				if err := s.sim.Interact(id, events.Outcome(outcome)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Met %s (%s), affection %d\n", id, outcome, s.sim.Affection.Get(id))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", string(events.OutcomeSuccess), "success, awkward or no_show")
	return cmd
}

func newBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "book <npc> <week> <day> <venue>",
		Short: "Book a weekend or holiday date this year",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			week, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("week %q: %w", args[1], err)
			}
			day, err := calendar.ParseDay(args[2])
			if err != nil {
				return err
			}
			return withSession(false, true, func(s *session) error {
				id := args[0]
				if _, ok := s.sim.Npc(id); !ok {
					return fmt.Errorf("unknown character %q", id)
				}
				d := calendar.NewDate(s.sim.Clock.Current().Year, week, day)
				if err := s.sim.Book(id, d, args[3]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Booked %s with %s at %s\n", d, id, args[3])
				return nil
			})
		},
	}
}

func newEventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the most recent journaled events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(false, false, func(s *session) error {
				if s.started {
					if err := s.save(); err != nil {
						return err
					}
				}
				entries, err := s.db.RecentEvents(limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for i := len(entries) - 1; i >= 0; i-- {
					fmt.Fprintln(w, entries[i])
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of events to show")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the current game to a portable save file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(false, false, func(s *session) error {
				h, err := savefile.Write(args[0], s.sim.Snapshot())
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%s %s) to %s\n", h.SaveID, h.Date, h.Phase, args[0])
				return nil
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the current game with a portable save file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, st, err := savefile.Read(args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			return withSession(false, true, func(s *session) error {
				if err := s.replace(st); err != nil {
					return fmt.Errorf("import: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s from %s (%s %s)\n",
					h.SaveID, humanize.Time(h.CreatedAt), h.Date, h.Phase)
				return nil
			})
		},
	}
}
