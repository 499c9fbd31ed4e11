package events

import (
	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/stats"
)

// Kind is the closed set of event discriminants the bus routes on.
type Kind uint8

const (
	KindWeekStarted Kind = iota + 1
	KindWeekEnded
	KindPhaseStarted
	KindPhaseEnded
	KindStatsChanged
	KindAffectionChanged
	KindBombArmed
	KindBombDetonated
	KindRumorSpread
	KindInteractionOccurred
)

var kindNames = map[Kind]string{
	KindWeekStarted:         "week_started",
	KindWeekEnded:           "week_ended",
	KindPhaseStarted:        "phase_started",
	KindPhaseEnded:          "phase_ended",
	KindStatsChanged:        "stats_changed",
	KindAffectionChanged:    "affection_changed",
	KindBombArmed:           "bomb_armed",
	KindBombDetonated:       "bomb_detonated",
	KindRumorSpread:         "rumor_spread",
	KindInteractionOccurred: "interaction_occurred",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindWeekStarted; k <= KindInteractionOccurred; k++ {
		out = append(out, k)
	}
	return out
}

// Event is implemented by every payload type. Kind must be a value method so the
// zero value of a payload type reports its kind.
type Event interface {
	Kind() Kind
}

// WeekStarted fires when a new week begins (reset, new week, or rollover).
type WeekStarted struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// WeekEnded fires when SundayDay ends, before the cursor moves to the next week.
type WeekEnded struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// PhaseStarted fires after the clock cursor has moved into a phase.
type PhaseStarted struct {
	Date  calendar.Date  `json:"date"`
	Phase calendar.Phase `json:"phase"`
}

// PhaseEnded fires before the clock cursor leaves a phase.
type PhaseEnded struct {
	Date  calendar.Date  `json:"date"`
	Phase calendar.Phase `json:"phase"`
}

// StatsChanged carries the net signed delta per stat of one resolution.
type StatsChanged struct {
	Deltas map[stats.Stat]int `json:"deltas"`
}

// AffectionChanged reports a character's affection after a change.
type AffectionChanged struct {
	CharacterID string `json:"character_id"`
	NewValue    int    `json:"new_value"`
}

// BombArmed fires when a neglected character's bomb is armed.
type BombArmed struct {
	CharacterID string `json:"character_id"`
}

// BombDetonated fires when an armed fuse runs out.
type BombDetonated struct {
	CharacterID string `json:"character_id"`
	Penalty     int    `json:"penalty"`
}

// RumorSpread is the secondary notification of a detonation.
type RumorSpread struct {
	SourceCharacterID string `json:"source_character_id"`
	Penalty           int    `json:"penalty"`
	Reason            string `json:"reason"`
}

// Outcome tags the result of an interaction with a character.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeAwkward Outcome = "awkward"
	OutcomeNoShow  Outcome = "no_show"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeAwkward, OutcomeNoShow:
		return true
	}
	return false
}

// InteractionOccurred is produced by whatever runs dates or meetings.
type InteractionOccurred struct {
	Date        calendar.Date `json:"date"`
	CharacterID string        `json:"character_id"`
	Outcome     Outcome       `json:"outcome"`
}

func (WeekStarted) Kind() Kind         { return KindWeekStarted }
func (WeekEnded) Kind() Kind           { return KindWeekEnded }
func (PhaseStarted) Kind() Kind        { return KindPhaseStarted }
func (PhaseEnded) Kind() Kind          { return KindPhaseEnded }
func (StatsChanged) Kind() Kind        { return KindStatsChanged }
func (AffectionChanged) Kind() Kind    { return KindAffectionChanged }
func (BombArmed) Kind() Kind           { return KindBombArmed }
func (BombDetonated) Kind() Kind       { return KindBombDetonated }
func (RumorSpread) Kind() Kind         { return KindRumorSpread }
func (InteractionOccurred) Kind() Kind { return KindInteractionOccurred }
