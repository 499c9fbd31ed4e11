package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/events"
)

// DefaultMaxYear is the last school year; rollover past it stays in it.
const DefaultMaxYear = 4

var (
	ErrUnhandledPhase = errors.New("unhandled phase")
	ErrInvalidDate    = errors.New("invalid date")
)

// UnhandledPhaseError means the clock reached a phase with no successor.
type UnhandledPhaseError struct {
	Date  calendar.Date
	Phase calendar.Phase
}

func (e *UnhandledPhaseError) Error() string {
	return fmt.Sprintf("unhandled phase %s at %s", e.Phase, e.Date)
}

func (e *UnhandledPhaseError) Unwrap() error { return ErrUnhandledPhase }

// InvalidDateError rejects a reset or restore target.
type InvalidDateError struct {
	Date   calendar.Date
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %s: %s", e.Date, e.Reason)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// Clock is the phase state machine. It owns the (date, phase) cursor and
// publishes lifecycle events as the cursor moves.
type Clock struct {
	bus     *events.Bus
	cal     calendar.Lookup
	maxYear int

	date  calendar.Date
	phase calendar.Phase
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithMaxYear overrides DefaultMaxYear.
func WithMaxYear(n int) ClockOption {
	return func(c *Clock) {
		if n > 0 {
			c.maxYear = n
		}
	}
}

// NewClock creates a clock at Y1 W1 Mon, Weekday. No events are published.
// A nil lookup falls back to the plain weekend rule with the default year
// length.
func NewClock(bus *events.Bus, cal calendar.Lookup, opts ...ClockOption) *Clock {
	if cal == nil {
		cal = calendar.NewSimple(calendar.DefaultWeeksPerYear)
	}
	c := &Clock{
		bus:     bus,
		cal:     cal,
		maxYear: DefaultMaxYear,
		date:    calendar.NewDate(1, 1, calendar.Mon),
		phase:   calendar.PhaseWeekday,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the cursor date.
func (c *Clock) Current() calendar.Date { return c.date }

// Phase returns the cursor phase.
func (c *Clock) Phase() calendar.Phase { return c.phase }

// MaxYear returns the year cap.
func (c *Clock) MaxYear() int { return c.maxYear }

// Calendar returns the lookup in use.
func (c *Clock) Calendar() calendar.Lookup { return c.cal }

// Advance moves the cursor one phase forward.
func (c *Clock) Advance() error {
	next, phase, rollover, err := c.successor()
	if err != nil {
		return err
	}

	if err := c.bus.Publish(events.PhaseEnded{Date: c.date, Phase: c.phase}); err != nil {
		return err
	}
	if rollover {
		if err := c.bus.Publish(events.WeekEnded{Year: c.date.Year, Week: c.date.Week}); err != nil {
			return err
		}
	}

	c.date, c.phase = next, phase

	if rollover {
		if err := c.bus.Publish(events.WeekStarted{Year: c.date.Year, Week: c.date.Week}); err != nil {
			return err
		}
	}
	return c.bus.Publish(events.PhaseStarted{Date: c.date, Phase: c.phase})
}

// successor computes the next cursor without touching state.
func (c *Clock) successor() (calendar.Date, calendar.Phase, bool, error) {
	d := c.date
	switch c.phase {
	case calendar.PhaseWeekday:
		switch {
		case calendar.Classify(c.cal, d) == calendar.Holiday:
			return d, calendar.PhaseHolidayMorning, false, nil
		case d.Day == calendar.Sat:
			return d, calendar.PhaseSaturdayMorning, false, nil
		case d.Day == calendar.Sun:
			return d, calendar.PhaseSundayMorning, false, nil
		case d.Day == calendar.Fri:
			d.Day = calendar.Sat
			return d, calendar.PhaseSaturdayMorning, false, nil
		default:
			d.Day++
			return d, c.phaseFor(d), false, nil
		}

	case calendar.PhaseHolidayMorning:
		return d, calendar.PhaseHolidayDay, false, nil

	case calendar.PhaseHolidayDay:
		if d.Day == calendar.Sun {
			next, phase := c.nextWeek()
			return next, phase, true, nil
		}
		d.Day++
		return d, c.phaseFor(d), false, nil

	case calendar.PhaseSaturdayMorning:
		return d, calendar.PhaseSaturdayDay, false, nil

	case calendar.PhaseSaturdayDay:
		d.Day = calendar.Sun
		return d, calendar.PhaseSundayMorning, false, nil

	case calendar.PhaseSundayMorning:
		return d, calendar.PhaseSundayDay, false, nil

	case calendar.PhaseSundayDay:
		next, phase := c.nextWeek()
		return next, phase, true, nil
	}
	return d, c.phase, false, &UnhandledPhaseError{Date: d, Phase: c.phase}
}

func (c *Clock) nextWeek() (calendar.Date, calendar.Phase) {
	year, week := c.date.Year, c.date.Week+1
	if week > c.cal.WeeksInYear(year) {
		week = 1
		year = min(year+1, c.maxYear)
	}
	return calendar.NewDate(year, week, calendar.Mon), calendar.PhaseWeekday
}

// phaseFor classifies a freshly entered day, Holiday > Weekend > Weekday.
func (c *Clock) phaseFor(d calendar.Date) calendar.Phase {
	switch calendar.Classify(c.cal, d) {
	case calendar.Holiday:
		return calendar.PhaseHolidayMorning
	case calendar.Weekend:
		if d.Day == calendar.Sat {
			return calendar.PhaseSaturdayMorning
		}
		return calendar.PhaseSundayMorning
	}
	return calendar.PhaseWeekday
}

// Reset moves the cursor to (year, week, day) in the Weekday phase and
// publishes WeekStarted then PhaseStarted.
func (c *Clock) Reset(year, week int, day calendar.Day) error {
	d := calendar.NewDate(year, week, day)
	if err := c.validate(d); err != nil {
		return err
	}
	c.date, c.phase = d, calendar.PhaseWeekday
	return c.announce()
}

// StartNewWeek rewinds to Monday of the current week, Weekday phase, and
// publishes WeekStarted then PhaseStarted.
func (c *Clock) StartNewWeek() error {
	c.date.Day = calendar.Mon
	c.phase = calendar.PhaseWeekday
	return c.announce()
}

// RestoreTo sets the cursor directly. Lifecycle events are published only
// when emit is true.
func (c *Clock) RestoreTo(year, week int, day calendar.Day, phase calendar.Phase, emit bool) error {
	d := calendar.NewDate(year, week, day)
	if err := c.validate(d); err != nil {
		return err
	}
	if !phase.Valid() {
		return &UnhandledPhaseError{Date: d, Phase: phase}
	}
	c.date, c.phase = d, phase
	if !emit {
		return nil
	}
	return c.announce()
}

func (c *Clock) announce() error {
	if err := c.bus.Publish(events.WeekStarted{Year: c.date.Year, Week: c.date.Week}); err != nil {
		return err
	}
	return c.bus.Publish(events.PhaseStarted{Date: c.date, Phase: c.phase})
}

func (c *Clock) validate(d calendar.Date) error {
	switch {
	case !d.Day.Valid():
		return &InvalidDateError{Date: d, Reason: "day out of range"}
	case d.Year < 1 || d.Year > c.maxYear:
		return &InvalidDateError{Date: d, Reason: fmt.Sprintf("year must be in [1,%d]", c.maxYear)}
	case d.Week < 1 || d.Week > c.cal.WeeksInYear(d.Year):
		return &InvalidDateError{Date: d, Reason: fmt.Sprintf("week must be in [1,%d]", c.cal.WeeksInYear(d.Year))}
	}
	return nil
}
