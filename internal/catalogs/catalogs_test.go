package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/stats"
)

func TestLoadCommands_Defaults(t *testing.T) {
	c, err := LoadCommands("")
	if err != nil {
		t.Fatalf("LoadCommands: %v", err)
	}
	study, ok := c.Catalog["study"]
	if !ok {
		t.Fatalf("default catalog missing study: %v", c.Catalog.IDs())
	}
	if study.RepeatDecay != 0.9 || len(study.Increase) == 0 || study.Increase[0].Stat != stats.Academics {
		t.Fatalf("study = %+v", study)
	}
	if study.Stress == nil || study.StaminaCost == nil {
		t.Fatalf("study should carry stress and stamina ranges")
	}
	if len(c.Digest) != 64 {
		t.Fatalf("digest = %q", c.Digest)
	}
}

func TestParseCommands_DecayDefaultsToOne(t *testing.T) {
	c, err := ParseCommands([]byte(`{"nap": {"dec": [{"stat": "stress", "min": 1, "max": 2}]}}`))
	if err != nil {
		t.Fatalf("ParseCommands: %v", err)
	}
	nap := c.Catalog["nap"]
	if nap.RepeatDecay != 1 || nap.Decrease[0].Stat != stats.Stress || nap.Stress != nil {
		t.Fatalf("nap = %+v", nap)
	}
}

func TestParseCommands_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":         `{}`,
		"unknown field": `{"study": {"bonus": 3}}`,
		"decay zero":    `{"study": {"repeatDecay": 0}}`,
		"decay high":    `{"study": {"repeatDecay": 1.5}}`,
		"fraction":      `{"study": {"inc": [{"stat": "Art", "min": 1.5, "max": 2}]}}`,
		"unknown stat":  `{"study": {"inc": [{"stat": "Luck", "min": 1, "max": 2}]}}`,
		"min over max":  `{"study": {"stress": {"min": 5, "max": 2}}}`,
		"bad id":        `{"Study Hall": {}}`,
		"not json":      `{"study":`,
	}
	for name, raw := range cases {
		if _, err := ParseCommands([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseCalendar_YearAwareHolidays(t *testing.T) {
	c, err := ParseCalendar([]byte(`{"years": [
		{"year": 1, "weeks": 10, "holidays": ["1-2", "4-7"]},
		{"year": 2, "weeks": 12}
	]}`))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	school := c.School(0)
	if school.DayType(1, 1, calendar.Tue) != calendar.Holiday {
		t.Fatalf("Y1 W1 Tue should be a holiday")
	}
	if school.DayType(2, 1, calendar.Tue) != calendar.Weekday {
		t.Fatalf("holidays must not leak into other years")
	}
	if school.DayType(1, 4, calendar.Sun) != calendar.Holiday {
		t.Fatalf("holiday overrides weekend")
	}
	if school.WeeksInYear(2) != 12 || school.WeeksInYear(3) != calendar.DefaultWeeksPerYear {
		t.Fatalf("weeks = %d/%d", school.WeeksInYear(2), school.WeeksInYear(3))
	}
}

func TestParseCalendar_Rejects(t *testing.T) {
	cases := map[string]string{
		"day 8":         `{"years": [{"year": 1, "weeks": 10, "holidays": ["1-8"]}]}`,
		"bad format":    `{"years": [{"year": 1, "weeks": 10, "holidays": ["Tue"]}]}`,
		"past year end": `{"years": [{"year": 1, "weeks": 10, "holidays": ["11-1"]}]}`,
		"duplicate":     `{"years": [{"year": 1, "weeks": 10}, {"year": 1, "weeks": 9}]}`,
		"no years":      `{}`,
	}
	for name, raw := range cases {
		if _, err := ParseCalendar([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadCalendar_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	if err := os.WriteFile(path, []byte(`{"years": [{"year": 1, "weeks": 3}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadCalendar(path)
	if err != nil {
		t.Fatalf("LoadCalendar: %v", err)
	}
	if len(c.Years) != 1 || c.Years[0].Weeks != 3 {
		t.Fatalf("years = %+v", c.Years)
	}

	if _, err := LoadCalendar(filepath.Join(t.TempDir(), "missing.json")); err == nil || !strings.Contains(err.Error(), "calendar.json") {
		t.Fatalf("missing file err = %v", err)
	}

	def, err := LoadCalendar("")
	if err != nil || len(def.Years) == 0 {
		t.Fatalf("default calendar: %v, %+v", err, def)
	}
}
