// Package calendar defines the in-game date, day classification and the
// calendar lookup the clock consults when it moves between days.
package calendar

import (
	"cmp"
	"fmt"
	"strings"
)

// Day is a day of the week, Monday first.
type Day uint8

const (
	Mon Day = iota + 1
	Tue
	Wed
	Thu
	Fri
	Sat
	Sun
)

var dayNames = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Valid reports whether d is Mon..Sun.
func (d Day) Valid() bool { return d >= Mon && d <= Sun }

func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", uint8(d))
	}
	return dayNames[d]
}

// MarshalText encodes the day by name.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts a day name ("Tue", "tuesday") or its number (1..7).
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDay parses a day name or number.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if len(s) == 1 && s[0] >= '1' && s[0] <= '7' {
		return Day(s[0] - '0'), nil
	}
	if len(s) >= 3 {
		prefix := strings.ToLower(s[:3])
		for i := Mon; i <= Sun; i++ {
			if strings.ToLower(dayNames[i]) == prefix {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// DayType classifies a calendar day.
type DayType uint8

const (
	Weekday DayType = iota
	Weekend
	Holiday
)

func (t DayType) String() string {
	switch t {
	case Weekday:
		return "Weekday"
	case Weekend:
		return "Weekend"
	case Holiday:
		return "Holiday"
	default:
		return fmt.Sprintf("DayType(%d)", uint8(t))
	}
}

// Date is a position on the school calendar. It is a comparable value type and
// is safe to use as a map key.
type Date struct {
	Year int `json:"year"`
	Week int `json:"week"`
	Day  Day `json:"day"`
}

// NewDate builds a date.
func NewDate(year, week int, day Day) Date {
	return Date{Year: year, Week: week, Day: day}
}

// Valid reports whether every field is in range.
func (d Date) Valid() bool {
	return d.Year >= 1 && d.Week >= 1 && d.Day.Valid()
}

// Compare orders dates chronologically.
func (d Date) Compare(o Date) int {
	if c := cmp.Compare(d.Year, o.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(d.Week, o.Week); c != 0 {
		return c
	}
	return cmp.Compare(d.Day, o.Day)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

func (d Date) String() string {
	return fmt.Sprintf("Y%d W%d %s", d.Year, d.Week, d.Day)
}

// Lookup answers the two questions the clock needs about the calendar.
// Implementations must apply Holiday > Weekend > Weekday precedence.
type Lookup interface {
	DayType(year, week int, day Day) DayType
	WeeksInYear(year int) int
}

// Classify is a convenience for l.DayType on a Date.
func Classify(l Lookup, d Date) DayType {
	return l.DayType(d.Year, d.Week, d.Day)
}

// DefaultWeeksPerYear is used when a year has no explicit definition.
const DefaultWeeksPerYear = 42

func weekendOrWeekday(day Day) DayType {
	if day == Sat || day == Sun {
		return Weekend
	}
	return Weekday
}

// Simple is a calendar with a fixed year length, Saturday/Sunday weekends and no
// holidays.
type Simple struct {
	WeeksPerYear int
}

// NewSimple returns a Simple calendar; a non-positive length falls back to
// DefaultWeeksPerYear.
func NewSimple(weeksPerYear int) Simple {
	if weeksPerYear <= 0 {
		weeksPerYear = DefaultWeeksPerYear
	}
	return Simple{WeeksPerYear: weeksPerYear}
}

func (s Simple) DayType(_, _ int, day Day) DayType { return weekendOrWeekday(day) }

func (s Simple) WeeksInYear(int) int { return s.WeeksPerYear }

// YearDef describes one school year.
type YearDef struct {
	Year     int
	Weeks    int
	Holidays []Date
}

// School is a calendar built from per-year definitions with holidays.
type School struct {
	weeks        map[int]int
	holidays     map[Date]struct{}
	defaultWeeks int
}

// NewSchool builds a School calendar. Years without a definition use
// defaultWeeks (or DefaultWeeksPerYear when that is not positive).
func NewSchool(years []YearDef, defaultWeeks int) *School {
	if defaultWeeks <= 0 {
		defaultWeeks = DefaultWeeksPerYear
	}
	s := &School{
		weeks:        make(map[int]int, len(years)),
		holidays:     make(map[Date]struct{}),
		defaultWeeks: defaultWeeks,
	}
	for _, y := range years {
		if y.Weeks > 0 {
			s.weeks[y.Year] = y.Weeks
		}
		for _, h := range y.Holidays {
			h.Year = y.Year
			s.holidays[h] = struct{}{}
		}
	}
	return s
}

// DayType checks the holiday set before falling back to the weekend rule.
func (s *School) DayType(year, week int, day Day) DayType {
	if _, ok := s.holidays[NewDate(year, week, day)]; ok {
		return Holiday
	}
	return weekendOrWeekday(day)
}

func (s *School) WeeksInYear(year int) int {
	if w, ok := s.weeks[year]; ok {
		return w
	}
	return s.defaultWeeks
}

// IsHoliday reports whether d is a declared holiday.
func (s *School) IsHoliday(d Date) bool {
	_, ok := s.holidays[d]
	return ok
}
