package commands

import (
	"errors"
	"testing"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/entropy"
	"github.com/talgya/heartweek/internal/events"
	"github.com/talgya/heartweek/internal/stats"
)

func studyCatalog() Catalog {
	return Catalog{
		"study": {
			ID:          "study",
			Increase:    []StatRange{{Stat: stats.Academics, Range: Range{Min: 2, Max: 4}}},
			Decrease:    []StatRange{{Stat: stats.Charm, Range: Range{Min: 1, Max: 1}}},
			Stress:      &Range{Min: 2, Max: 2},
			StaminaCost: &Range{Min: 3, Max: 3},
			RepeatDecay: 0.9,
		},
		"rest": {ID: "rest", RepeatDecay: 1},
	}
}

type harness struct {
	bus     *events.Bus
	st      *stats.Store
	r       *Resolver
	changes []events.StatsChanged
}

func newHarness(t *testing.T, rng Randomizer) *harness {
	t.Helper()
	h := &harness{bus: events.NewBus(), st: stats.NewStore()}
	h.r = NewResolver(h.bus, h.st, rng)
	h.r.SetCatalog(studyCatalog())
	events.Subscribe(h.bus, func(e events.StatsChanged) error {
		h.changes = append(h.changes, e)
		return nil
	})
	return h
}

func (h *harness) week(t *testing.T, week int) {
	t.Helper()
	if err := h.bus.Publish(events.WeekStarted{Year: 1, Week: week}); err != nil {
		t.Fatalf("WeekStarted: %v", err)
	}
}

func (h *harness) weekday(t *testing.T) {
	t.Helper()
	ev := events.PhaseStarted{Date: calendar.NewDate(1, 1, calendar.Mon), Phase: calendar.PhaseWeekday}
	if err := h.bus.Publish(ev); err != nil {
		t.Fatalf("PhaseStarted: %v", err)
	}
}

func TestResolver_DecayAcrossWeeks(t *testing.T) {
	h := newHarness(t, entropy.Fixed(4))
	h.st.Add(stats.Charm, 10)
	h.st.Add(stats.Stamina, 50)
	if err := h.r.SelectWeekdayCommand("study"); err != nil {
		t.Fatalf("select: %v", err)
	}

	h.week(t, 1)
	h.weekday(t)
	if got := h.st.Get(stats.Academics); got != 4 {
		t.Fatalf("week 1 academics = %d, want 4", got)
	}

	h.week(t, 2)
	if h.r.Streak() != 1 {
		t.Fatalf("streak = %d, want 1", h.r.Streak())
	}
	h.weekday(t)
	if got := h.st.Get(stats.Academics); got != 7 {
		t.Fatalf("week 2 academics = %d, want 4+3", got)
	}

	last := h.changes[len(h.changes)-1].Deltas
	if last[stats.Academics] != 3 || last[stats.Charm] != 0 {
		// Decrease of 1 decays to floor(0.9) = 0 and is skipped.
		t.Fatalf("week 2 deltas = %v", last)
	}
	if last[stats.Stress] != 2 || last[stats.Stamina] != -3 {
		t.Fatalf("stress and stamina are not decayed: %v", last)
	}
}

func TestResolver_FirstWeekSigns(t *testing.T) {
	h := newHarness(t, entropy.Fixed(4))
	h.st.Add(stats.Charm, 10)
	h.st.Add(stats.Stamina, 50)
	h.r.SelectWeekdayCommand("study")
	h.week(t, 1)
	h.weekday(t)

	if len(h.changes) != 1 {
		t.Fatalf("StatsChanged count = %d", len(h.changes))
	}
	d := h.changes[0].Deltas
	if d[stats.Academics] != 4 || d[stats.Charm] != -1 || d[stats.Stress] != 2 || d[stats.Stamina] != -3 {
		t.Fatalf("deltas = %v", d)
	}
	if h.st.Get(stats.Charm) != 9 || h.st.Get(stats.Stamina) != 47 {
		t.Fatalf("store not updated: charm=%d stamina=%d", h.st.Get(stats.Charm), h.st.Get(stats.Stamina))
	}
}

func TestResolver_StreakResetsOnChange(t *testing.T) {
	h := newHarness(t, entropy.Fixed(2))
	h.r.SelectWeekdayCommand("study")
	h.week(t, 1)
	h.week(t, 2)
	h.week(t, 3)
	if h.r.Streak() != 2 {
		t.Fatalf("streak = %d, want 2", h.r.Streak())
	}
	h.r.SelectWeekdayCommand("rest")
	h.week(t, 4)
	if h.r.Streak() != 0 {
		t.Fatalf("streak after switch = %d", h.r.Streak())
	}
	if !h.r.Previous().Equal(Selected("rest")) {
		t.Fatalf("previous = %v", h.r.Previous())
	}
}

func TestResolver_NoSelectionIsNoop(t *testing.T) {
	h := newHarness(t, entropy.Fixed(4))
	h.week(t, 1)
	h.week(t, 2)
	h.weekday(t)
	if len(h.changes) != 0 || h.r.Streak() != 0 {
		t.Fatalf("expected no resolution, got %v streak=%d", h.changes, h.r.Streak())
	}
}

func TestResolver_WeekendPhaseIgnored(t *testing.T) {
	h := newHarness(t, entropy.Fixed(4))
	h.r.SelectWeekdayCommand("study")
	ev := events.PhaseStarted{Date: calendar.NewDate(1, 1, calendar.Sat), Phase: calendar.PhaseSaturdayMorning}
	if err := h.bus.Publish(ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(h.changes) != 0 {
		t.Fatalf("weekend phase resolved an activity")
	}
}

func TestResolver_InvalidActivity(t *testing.T) {
	h := newHarness(t, entropy.Fixed(4))
	h.r.SelectWeekdayCommand("study")
	err := h.r.SelectWeekdayCommand("karaoke")
	if !errors.Is(err, ErrInvalidActivity) {
		t.Fatalf("err = %v, want ErrInvalidActivity", err)
	}
	var iae *InvalidActivityError
	if !errors.As(err, &iae) || iae.ID != "karaoke" {
		t.Fatalf("errors.As = %v", err)
	}
	if !h.r.Current().Equal(Selected("study")) {
		t.Fatalf("failed select must not change current: %v", h.r.Current())
	}
}

func TestResolver_ClampsAtCeiling(t *testing.T) {
	h := newHarness(t, entropy.Fixed(4))
	h.st.Add(stats.Academics, stats.Max-1)
	h.r.SelectWeekdayCommand("study")
	h.week(t, 1)
	h.weekday(t)
	if h.st.Get(stats.Academics) != stats.Max {
		t.Fatalf("academics = %d", h.st.Get(stats.Academics))
	}
}

func TestResolver_SnapshotRestore(t *testing.T) {
	h := newHarness(t, entropy.Fixed(4))
	h.r.Restore(State{Current: Selected("study"), Previous: Selected("study"), Streak: -3})
	if h.r.Streak() != 0 {
		t.Fatalf("negative streak should clamp, got %d", h.r.Streak())
	}
	h.r.Restore(State{Current: Selected("study"), Previous: Selected("study"), Streak: 2})
	if got := h.r.Snapshot(); got.Streak != 2 || !got.Current.Equal(Selected("study")) {
		t.Fatalf("snapshot = %+v", got)
	}
	if len(h.changes) != 0 {
		t.Fatalf("restore must not emit")
	}
}

func TestResolver_Detach(t *testing.T) {
	h := newHarness(t, entropy.Fixed(4))
	h.r.SelectWeekdayCommand("study")
	h.r.Detach()
	h.week(t, 1)
	h.weekday(t)
	if len(h.changes) != 0 || h.st.Get(stats.Academics) != 0 {
		t.Fatalf("detached resolver still reacted")
	}
}

func TestDecay_Monotonic(t *testing.T) {
	prev := Decay(0.8, 0)
	if prev != 1 {
		t.Fatalf("streak 0 decay = %v", prev)
	}
	for s := 1; s < 10; s++ {
		d := Decay(0.8, s)
		if d > prev {
			t.Fatalf("decay grew at streak %d: %v > %v", s, d, prev)
		}
		prev = d
	}
	if Decay(1.00005, 5) != 1 {
		t.Fatalf("factor within slack should not amplify")
	}
	if Decay(1.5, 3) != 1 || Decay(0, 3) != 1 {
		t.Fatalf("out-of-range factors disable decay")
	}
}
