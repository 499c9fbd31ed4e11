package calendar

import (
	"fmt"
	"strings"
)

// Phase is a sub-division of a day that decides which systems may act.
type Phase uint8

const (
	PhaseWeekday Phase = iota
	PhaseSaturdayMorning
	PhaseSaturdayDay
	PhaseSundayMorning
	PhaseSundayDay
	PhaseHolidayMorning
	PhaseHolidayDay
)

var phaseNames = [...]string{
	"Weekday",
	"SaturdayMorning",
	"SaturdayDay",
	"SundayMorning",
	"SundayDay",
	"HolidayMorning",
	"HolidayDay",
}

// Phases lists every phase.
func Phases() []Phase {
	out := make([]Phase, len(phaseNames))
	for i := range phaseNames {
		out[i] = Phase(i)
	}
	return out
}

// Valid reports whether p is a declared phase.
func (p Phase) Valid() bool { return int(p) < len(phaseNames) }

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
	return phaseNames[p]
}

// IsWeekend reports whether p belongs to the Saturday/Sunday flow.
func (p Phase) IsWeekend() bool {
	return p >= PhaseSaturdayMorning && p <= PhaseSundayDay
}

// IsHoliday reports whether p belongs to the holiday flow.
func (p Phase) IsHoliday() bool {
	return p == PhaseHolidayMorning || p == PhaseHolidayDay
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase parses a phase name, case-insensitively.
func ParsePhase(s string) (Phase, error) {
	s = strings.TrimSpace(s)
	for i, name := range phaseNames {
		if strings.EqualFold(name, s) {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}
