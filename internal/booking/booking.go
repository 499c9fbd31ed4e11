// Package booking keeps the weekend and holiday date slots the player has
// promised to characters. One booking per calendar date.
package booking

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/talgya/heartweek/internal/calendar"
)

var (
	ErrNotBookable   = errors.New("date is not bookable")
	ErrAlreadyBooked = errors.New("date already booked")
)

// Booking is a promised slot with a character at a venue.
type Booking struct {
	CharacterID string `json:"character_id"`
	Venue       string `json:"venue"`
}

// Entry pairs a booking with its date; used for listing and snapshots.
type Entry struct {
	Date calendar.Date `json:"date"`
	Booking
}

// Ledger stores bookings keyed by date.
type Ledger struct {
	cal   calendar.Lookup
	slots map[calendar.Date]Booking
}

// NewLedger returns an empty ledger that asks cal which days are bookable.
func NewLedger(cal calendar.Lookup) *Ledger {
	return &Ledger{cal: cal, slots: make(map[calendar.Date]Booking)}
}

// IsBookable reports whether d is a weekend or holiday.
func (l *Ledger) IsBookable(d calendar.Date) bool {
	return calendar.Classify(l.cal, d) != calendar.Weekday
}

// IsFree reports whether nobody is booked on d.
func (l *Ledger) IsFree(d calendar.Date) bool {
	_, taken := l.slots[d]
	return !taken
}

// Book reserves d for characterID.
func (l *Ledger) Book(characterID string, d calendar.Date, venue string) error {
	if !d.Valid() || !l.IsBookable(d) {
		return fmt.Errorf("book %s with %s: %w", d, characterID, ErrNotBookable)
	}
	if prev, taken := l.slots[d]; taken {
		return fmt.Errorf("book %s with %s: %w (held by %s)", d, characterID, ErrAlreadyBooked, prev.CharacterID)
	}
	l.slots[d] = Booking{CharacterID: characterID, Venue: venue}
	return nil
}

// Cancel frees d. It reports whether a booking existed.
func (l *Ledger) Cancel(d calendar.Date) bool {
	_, ok := l.slots[d]
	delete(l.slots, d)
	return ok
}

// Get returns the booking on d.
func (l *Ledger) Get(d calendar.Date) (Booking, bool) {
	b, ok := l.slots[d]
	return b, ok
}

// Upcoming lists bookings on or after from in date order.
func (l *Ledger) Upcoming(from calendar.Date) []Entry {
	var out []Entry
	for _, e := range l.Snapshot() {
		if !e.Date.Before(from) {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot lists every booking in date order.
func (l *Ledger) Snapshot() []Entry {
	dates := slices.SortedFunc(maps.Keys(l.slots), calendar.Date.Compare)
	out := make([]Entry, 0, len(dates))
	for _, d := range dates {
		out = append(out, Entry{Date: d, Booking: l.slots[d]})
	}
	return out
}

// Restore replaces every booking. Later entries win on duplicate dates.
func (l *Ledger) Restore(entries []Entry) {
	clear(l.slots)
	for _, e := range entries {
		l.slots[e.Date] = e.Booking
	}
}
