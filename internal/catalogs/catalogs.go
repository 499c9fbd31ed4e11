// Package catalogs loads the JSON data files the simulation runs on: the
// weekly command definitions and the school calendar. Each file is checked
// against an embedded JSON Schema before it is decoded.
package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/commands"
	"github.com/talgya/heartweek/internal/stats"
)

//go:embed schemas/*.json
var schemaFS embed.FS

//go:embed defaults/*.json
var defaultsFS embed.FS

// Commands is the decoded commands.json.
type Commands struct {
	Catalog commands.Catalog
	Digest  string
}

// Calendar is the decoded calendar.json.
type Calendar struct {
	Years  []calendar.YearDef
	Digest string
}

// School builds the calendar lookup. Years not listed use defaultWeeks.
func (c Calendar) School(defaultWeeks int) *calendar.School {
	return calendar.NewSchool(c.Years, defaultWeeks)
}

type rangeDef struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type statRangeDef struct {
	Stat string `json:"stat"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
}

type commandDef struct {
	Inc         []statRangeDef `json:"inc"`
	Dec         []statRangeDef `json:"dec"`
	Stress      *rangeDef      `json:"stress"`
	StaminaCost *rangeDef      `json:"staminaCost"`
	RepeatDecay *float64       `json:"repeatDecay"`
}

type yearDef struct {
	Year     int      `json:"year"`
	Weeks    int      `json:"weeks"`
	Holidays []string `json:"holidays"`
}

type calendarDef struct {
	Years []yearDef `json:"years"`
}

var (
	commandsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) { return compile("commands.schema.json") })
	calendarSchema = sync.OnceValues(func() (*jsonschema.Schema, error) { return compile("calendar.schema.json") })
)

func compile(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	s, err := jsonschema.CompileString(name, string(raw))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return s, nil
}

func validate(schema func() (*jsonschema.Schema, error), file string, raw []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// LoadCommands reads commands.json from path, or the built-in catalog when
// path is empty.
func LoadCommands(path string) (Commands, error) {
	raw, err := readOrDefault(path, "commands.json")
	if err != nil {
		return Commands{}, err
	}
	return ParseCommands(raw)
}

// ParseCommands validates and decodes a commands.json document.
func ParseCommands(raw []byte) (Commands, error) {
	out := Commands{Digest: sha256Hex(raw)}
	if err := validate(commandsSchema, "commands.json", raw); err != nil {
		return out, err
	}

	var defs map[string]commandDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return out, fmt.Errorf("commands.json: %w", err)
	}

	out.Catalog = make(commands.Catalog, len(defs))
	for id, d := range defs {
		a, err := d.activity(id)
		if err != nil {
			return out, fmt.Errorf("commands.json: %s: %w", id, err)
		}
		out.Catalog[id] = a
	}
	return out, nil
}

func (d commandDef) activity(id string) (commands.Activity, error) {
	a := commands.Activity{ID: id, RepeatDecay: 1}
	if d.RepeatDecay != nil {
		a.RepeatDecay = *d.RepeatDecay
	}
	var err error
	if a.Increase, err = statRanges(d.Inc); err != nil {
		return a, fmt.Errorf("inc: %w", err)
	}
	if a.Decrease, err = statRanges(d.Dec); err != nil {
		return a, fmt.Errorf("dec: %w", err)
	}
	if a.Stress, err = optionalRange(d.Stress); err != nil {
		return a, fmt.Errorf("stress: %w", err)
	}
	if a.StaminaCost, err = optionalRange(d.StaminaCost); err != nil {
		return a, fmt.Errorf("staminaCost: %w", err)
	}
	return a, nil
}

func statRanges(defs []statRangeDef) ([]commands.StatRange, error) {
	out := make([]commands.StatRange, 0, len(defs))
	for _, d := range defs {
		s, err := stats.Parse(d.Stat)
		if err != nil {
			return nil, err
		}
		if d.Min > d.Max {
			return nil, fmt.Errorf("%s: min %d > max %d", d.Stat, d.Min, d.Max)
		}
		out = append(out, commands.StatRange{Stat: s, Range: commands.Range{Min: d.Min, Max: d.Max}})
	}
	return out, nil
}

func optionalRange(d *rangeDef) (*commands.Range, error) {
	if d == nil {
		return nil, nil
	}
	if d.Min > d.Max {
		return nil, fmt.Errorf("min %d > max %d", d.Min, d.Max)
	}
	return &commands.Range{Min: d.Min, Max: d.Max}, nil
}

// LoadCalendar reads calendar.json from path, or the built-in calendar when
// path is empty.
func LoadCalendar(path string) (Calendar, error) {
	raw, err := readOrDefault(path, "calendar.json")
	if err != nil {
		return Calendar{}, err
	}
	return ParseCalendar(raw)
}

// ParseCalendar validates and decodes a calendar.json document. Holidays are
// written "<week>-<day>" with day 1 (Mon) to 7 (Sun).
func ParseCalendar(raw []byte) (Calendar, error) {
	out := Calendar{Digest: sha256Hex(raw)}
	if err := validate(calendarSchema, "calendar.json", raw); err != nil {
		return out, err
	}

	var def calendarDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return out, fmt.Errorf("calendar.json: %w", err)
	}

	seen := make(map[int]bool, len(def.Years))
	for _, y := range def.Years {
		if seen[y.Year] {
			return out, fmt.Errorf("calendar.json: year %d defined twice", y.Year)
		}
		seen[y.Year] = true

		yd := calendar.YearDef{Year: y.Year, Weeks: y.Weeks}
		for _, h := range y.Holidays {
			d, err := parseHoliday(y.Year, h)
			if err != nil {
				return out, fmt.Errorf("calendar.json: year %d: %w", y.Year, err)
			}
			if d.Week > y.Weeks {
				return out, fmt.Errorf("calendar.json: year %d: holiday %q past week %d", y.Year, h, y.Weeks)
			}
			yd.Holidays = append(yd.Holidays, d)
		}
		out.Years = append(out.Years, yd)
	}
	return out, nil
}

func parseHoliday(year int, s string) (calendar.Date, error) {
	w, d, ok := strings.Cut(s, "-")
	if !ok {
		return calendar.Date{}, fmt.Errorf("holiday %q: want <week>-<day>", s)
	}
	week, err := strconv.Atoi(w)
	if err != nil || week < 1 {
		return calendar.Date{}, fmt.Errorf("holiday %q: bad week", s)
	}
	day, err := calendar.ParseDay(d)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("holiday %q: %w", s, err)
	}
	return calendar.NewDate(year, week, day), nil
}

func readOrDefault(path, name string) ([]byte, error) {
	if path == "" {
		return defaultsFS.ReadFile("defaults/" + name)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return raw, nil
}
