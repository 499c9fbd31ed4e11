package engine

import (
	"github.com/talgya/heartweek/internal/booking"
	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/commands"
	"github.com/talgya/heartweek/internal/neglect"
	"github.com/talgya/heartweek/internal/stats"
)

// SaveVersion is bumped whenever State changes shape.
const SaveVersion = 1

// State is a complete snapshot of a Simulation.
type State struct {
	Version int            `json:"version"`
	Date    calendar.Date  `json:"date"`
	Phase   calendar.Phase `json:"phase"`

	Stats     map[stats.Stat]int        `json:"stats"`
	Command   CommandState              `json:"command"`
	Affection map[string]int            `json:"affection"`
	Neglect   map[string]neglect.Record `json:"neglect"`
	Bookings  []booking.Entry           `json:"bookings"`

	// RNG is the random source position, empty when the source cannot be
	// serialised.
	RNG []byte `json:"rng,omitempty"`
}

// CommandState is the serialised form of commands.State. Absent selections
// are null, never "".
type CommandState struct {
	Current  *string `json:"current"`
	Previous *string `json:"previous"`
	Streak   int     `json:"streak"`
}

func encodeCommand(s commands.State) CommandState {
	return CommandState{
		Current:  selectionPtr(s.Current),
		Previous: selectionPtr(s.Previous),
		Streak:   s.Streak,
	}
}

func (c CommandState) decode() commands.State {
	return commands.State{
		Current:  ptrSelection(c.Current),
		Previous: ptrSelection(c.Previous),
		Streak:   c.Streak,
	}
}

func selectionPtr(s commands.Selection) *string {
	if !s.Set {
		return nil
	}
	id := s.ID
	return &id
}

func ptrSelection(p *string) commands.Selection {
	if p == nil {
		return commands.None
	}
	return commands.Selected(*p)
}
